package api

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/bumpworks/bump-engine/pkg/botlog"
	"github.com/bumpworks/bump-engine/pkg/ledger"
	"github.com/bumpworks/bump-engine/pkg/session"
	"github.com/bumpworks/bump-engine/pkg/wallet"
)

type mockSessionService struct {
	startFunc      func(ctx context.Context, user, token common.Address, amountFiat decimal.Decimal, interval time.Duration) (*session.Session, error)
	stopFunc       func(ctx context.Context, user common.Address) error
	getRunningFunc func(ctx context.Context, user common.Address) (*session.Session, error)
}

func (m *mockSessionService) Start(ctx context.Context, user, token common.Address, amountFiat decimal.Decimal, interval time.Duration) (*session.Session, error) {
	return m.startFunc(ctx, user, token, amountFiat, interval)
}

func (m *mockSessionService) Stop(ctx context.Context, user common.Address) error {
	return m.stopFunc(ctx, user)
}

func (m *mockSessionService) GetRunning(ctx context.Context, user common.Address) (*session.Session, error) {
	return m.getRunningFunc(ctx, user)
}

type mockCreditService struct {
	creditFunc        func(ctx context.Context, user common.Address, scope ledger.Scope, amount *big.Int) (*big.Int, error)
	distributeFunc    func(ctx context.Context, user common.Address, wallets []common.Address, total *big.Int) error
	scopeBalanceFunc  func(ctx context.Context, user common.Address, scope ledger.Scope) (*big.Int, error)
	totalCreditFunc   func(ctx context.Context, user common.Address) (*big.Int, error)
	walletCreditsFunc func(ctx context.Context, user common.Address) ([]ledger.WalletCredit, error)
}

func (m *mockCreditService) Credit(ctx context.Context, user common.Address, scope ledger.Scope, amount *big.Int) (*big.Int, error) {
	return m.creditFunc(ctx, user, scope, amount)
}

func (m *mockCreditService) DistributeToWallets(ctx context.Context, user common.Address, wallets []common.Address, total *big.Int) error {
	return m.distributeFunc(ctx, user, wallets, total)
}

func (m *mockCreditService) ScopeBalance(ctx context.Context, user common.Address, scope ledger.Scope) (*big.Int, error) {
	return m.scopeBalanceFunc(ctx, user, scope)
}

func (m *mockCreditService) TotalCredit(ctx context.Context, user common.Address) (*big.Int, error) {
	return m.totalCreditFunc(ctx, user)
}

func (m *mockCreditService) WalletCredits(ctx context.Context, user common.Address) ([]ledger.WalletCredit, error) {
	return m.walletCreditsFunc(ctx, user)
}

type mockWalletService struct {
	getOrCreateFunc func(ctx context.Context, user common.Address) ([]wallet.BotWallet, error)
}

func (m *mockWalletService) GetOrCreateWallets(ctx context.Context, user common.Address) ([]wallet.BotWallet, error) {
	return m.getOrCreateFunc(ctx, user)
}

type mockLogService struct {
	listByUserFunc func(ctx context.Context, user common.Address, limit int) ([]*botlog.Entry, error)
}

func (m *mockLogService) ListByUser(ctx context.Context, user common.Address, limit int) ([]*botlog.Entry, error) {
	return m.listByUserFunc(ctx, user, limit)
}

type mockWaker struct {
	wakes int
}

func (m *mockWaker) Wake() {
	m.wakes++
}

type mockValidator struct {
	claims jwt.MapClaims
	err    error
}

func (m *mockValidator) ValidateToken(string) (jwt.MapClaims, error) {
	return m.claims, m.err
}
