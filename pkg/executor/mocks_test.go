package executor

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/bumpworks/bump-engine/pkg/botlog"
	"github.com/bumpworks/bump-engine/pkg/ledger"
	"github.com/bumpworks/bump-engine/pkg/quote"
	"github.com/bumpworks/bump-engine/pkg/relay"
	"github.com/bumpworks/bump-engine/pkg/wallet"
)

type mockWalletSource struct {
	walletAtFunc  func(ctx context.Context, user common.Address, rotationIndex int) (wallet.BotWallet, error)
	signerKeyFunc func(ctx context.Context, user common.Address, index uint8) (*ecdsa.PrivateKey, error)
}

func (m *mockWalletSource) WalletAt(ctx context.Context, user common.Address, rotationIndex int) (wallet.BotWallet, error) {
	return m.walletAtFunc(ctx, user, rotationIndex)
}

func (m *mockWalletSource) SignerKey(ctx context.Context, user common.Address, index uint8) (*ecdsa.PrivateKey, error) {
	if m.signerKeyFunc == nil {
		return crypto.GenerateKey()
	}
	return m.signerKeyFunc(ctx, user, index)
}

type mockPriceSource struct {
	nativePriceFunc func(ctx context.Context) (decimal.Decimal, error)
}

func (m *mockPriceSource) NativePrice(ctx context.Context) (decimal.Decimal, error) {
	return m.nativePriceFunc(ctx)
}

type mockQuoter struct {
	getQuoteFunc func(ctx context.Context, req quote.Request) (*quote.Quote, error)
}

func (m *mockQuoter) GetQuote(ctx context.Context, req quote.Request) (*quote.Quote, error) {
	return m.getQuoteFunc(ctx, req)
}

type mockRelayer struct {
	submitCallsFunc    func(ctx context.Context, account common.Address, calls []relay.Call, sponsored bool, key *ecdsa.PrivateKey) (relay.OpHandle, error)
	waitForReceiptFunc func(ctx context.Context, handle relay.OpHandle) (relay.Receipt, error)
}

func (m *mockRelayer) SubmitCalls(ctx context.Context, account common.Address, calls []relay.Call, sponsored bool, key *ecdsa.PrivateKey) (relay.OpHandle, error) {
	return m.submitCallsFunc(ctx, account, calls, sponsored, key)
}

func (m *mockRelayer) WaitForReceipt(ctx context.Context, handle relay.OpHandle) (relay.Receipt, error) {
	return m.waitForReceiptFunc(ctx, handle)
}

type mockLedger struct {
	debitFunc func(ctx context.Context, user common.Address, scope ledger.Scope, amount *big.Int) (*big.Int, error)
}

func (m *mockLedger) Debit(ctx context.Context, user common.Address, scope ledger.Scope, amount *big.Int) (*big.Int, error) {
	return m.debitFunc(ctx, user, scope, amount)
}

type mockLogbook struct {
	appendFunc   func(ctx context.Context, entry *botlog.Entry) (int64, error)
	finalizeFunc func(ctx context.Context, id int64, status botlog.Status, txHash, message string) error
}

func (m *mockLogbook) Append(ctx context.Context, entry *botlog.Entry) (int64, error) {
	return m.appendFunc(ctx, entry)
}

func (m *mockLogbook) Finalize(ctx context.Context, id int64, status botlog.Status, txHash, message string) error {
	return m.finalizeFunc(ctx, id, status, txHash, message)
}

type mockSessions struct {
	advanceRotationFunc func(ctx context.Context, id int64) error
}

func (m *mockSessions) AdvanceRotation(ctx context.Context, id int64) error {
	return m.advanceRotationFunc(ctx, id)
}
