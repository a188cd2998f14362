// Package executor performs one bump swap attempt end to end: wallet
// resolution, sizing, quoting, relayed submission, receipt wait and ledger
// settlement.
package executor

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bumpworks/bump-engine/internal/metrics"
	"github.com/bumpworks/bump-engine/pkg/botlog"
	"github.com/bumpworks/bump-engine/pkg/ledger"
	"github.com/bumpworks/bump-engine/pkg/quote"
	"github.com/bumpworks/bump-engine/pkg/relay"
	"github.com/bumpworks/bump-engine/pkg/session"
	"github.com/bumpworks/bump-engine/pkg/wallet"
)

var (
	ErrInsufficientCredit  = ledger.ErrInsufficientCredit
	ErrQuoteUnavailable    = errors.New("quote unavailable")
	ErrRelayRejected       = errors.New("relay rejected operation")
	ErrReceiptTimeout      = errors.New("receipt wait timed out")
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrLedgerUnavailable   = errors.New("ledger unavailable")
)

// WalletSource yields the rotation wallet for an attempt and decrypts its
// signing key.
type WalletSource interface {
	WalletAt(ctx context.Context, user common.Address, rotationIndex int) (wallet.BotWallet, error)
	SignerKey(ctx context.Context, user common.Address, index uint8) (*ecdsa.PrivateKey, error)
}

// PriceSource returns the native-asset fiat price.
type PriceSource interface {
	NativePrice(ctx context.Context) (decimal.Decimal, error)
}

// Quoter prices a swap and returns its call data.
type Quoter interface {
	GetQuote(ctx context.Context, req quote.Request) (*quote.Quote, error)
}

// Relayer submits signed, sponsored call batches and resolves their receipts.
type Relayer interface {
	SubmitCalls(ctx context.Context, account common.Address, calls []relay.Call, sponsored bool, key *ecdsa.PrivateKey) (relay.OpHandle, error)
	WaitForReceipt(ctx context.Context, handle relay.OpHandle) (relay.Receipt, error)
}

// Ledger settles confirmed swaps against wallet credit.
type Ledger interface {
	Debit(ctx context.Context, user common.Address, scope ledger.Scope, amount *big.Int) (*big.Int, error)
}

// Logbook records the audit trail of each attempt.
type Logbook interface {
	Append(ctx context.Context, entry *botlog.Entry) (int64, error)
	Finalize(ctx context.Context, id int64, status botlog.Status, txHash, message string) error
}

// Sessions advances the rotation index after each attempt.
type Sessions interface {
	AdvanceRotation(ctx context.Context, id int64) error
}

// Config carries the chain-level parameters of the executor.
type Config struct {
	NativeToken    common.Address
	SlippageBps    int
	ReceiptTimeout time.Duration
}

// Executor runs individual swap attempts for running sessions.
type Executor struct {
	cfg      Config
	wallets  WalletSource
	prices   PriceSource
	quoter   Quoter
	relayer  Relayer
	ledger   Ledger
	logbook  Logbook
	sessions Sessions
	logger   *zap.Logger
}

// New creates a swap executor.
func New(
	cfg Config,
	wallets WalletSource,
	prices PriceSource,
	quoter Quoter,
	relayer Relayer,
	ldg Ledger,
	logbook Logbook,
	sessions Sessions,
	logger *zap.Logger,
) *Executor {
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = 60 * time.Second
	}
	return &Executor{
		cfg:      cfg,
		wallets:  wallets,
		prices:   prices,
		quoter:   quoter,
		relayer:  relayer,
		ledger:   ldg,
		logbook:  logbook,
		sessions: sessions,
		logger:   logger,
	}
}

// ExecuteBump performs one swap attempt for the session. The rotation index
// advances exactly once per attempt whatever the outcome, so a repeatedly
// failing wallet cannot starve the rotation. Failures are recorded in the
// audit log and returned; none of them stop the session.
func (e *Executor) ExecuteBump(ctx context.Context, sess *session.Session) error {
	started := time.Now()
	defer func() {
		metrics.BumpDuration.Observe(time.Since(started).Seconds())
	}()

	defer func() {
		if err := e.sessions.AdvanceRotation(context.WithoutCancel(ctx), sess.ID); err != nil {
			metrics.ErrorsTotal.WithLabelValues("executor", "rotation_advance").Inc()
			e.logger.Error("failed to advance wallet rotation",
				zap.Int64("session_id", sess.ID),
				zap.Error(err))
		}
	}()

	logger := e.logger.With(
		zap.Int64("session_id", sess.ID),
		zap.String("user", sess.User.Hex()),
		zap.Int("rotation_index", sess.WalletRotationIndex))

	w, err := e.wallets.WalletAt(ctx, sess.User, sess.WalletRotationIndex)
	if err != nil {
		metrics.BumpsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to resolve rotation wallet: %w", err)
	}
	logger = logger.With(zap.String("wallet", w.AccountAddress.Hex()))

	price, err := e.prices.NativePrice(ctx)
	if err != nil {
		metrics.BumpsTotal.WithLabelValues("failed").Inc()
		e.appendFailed(ctx, sess, w, nil, fmt.Sprintf("price fetch failed: %v", err))
		return fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	amountWei, err := FiatToWei(sess.AmountFiat, price)
	if err != nil {
		metrics.BumpsTotal.WithLabelValues("failed").Inc()
		e.appendFailed(ctx, sess, w, nil, fmt.Sprintf("amount conversion failed: %v", err))
		return fmt.Errorf("failed to size swap: %w", err)
	}

	q, err := e.quoter.GetQuote(ctx, quote.Request{
		SellToken:   e.cfg.NativeToken,
		BuyToken:    sess.TokenAddress,
		SellAmount:  amountWei,
		Taker:       w.AccountAddress,
		SlippageBps: e.cfg.SlippageBps,
	})
	if err != nil {
		metrics.BumpsTotal.WithLabelValues("failed").Inc()
		e.appendFailed(ctx, sess, w, amountWei, fmt.Sprintf("quote failed: %v", err))
		return fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	if fatal, reason := q.Fatal(); fatal {
		metrics.BumpsTotal.WithLabelValues("failed").Inc()
		e.appendFailed(ctx, sess, w, amountWei, fmt.Sprintf("quote blocked: %s", reason))
		return fmt.Errorf("%w: %s", ErrQuoteUnavailable, reason)
	}

	signerKey, err := e.wallets.SignerKey(ctx, sess.User, w.Index)
	if err != nil {
		metrics.BumpsTotal.WithLabelValues("failed").Inc()
		e.appendFailed(ctx, sess, w, amountWei, fmt.Sprintf("signer key unavailable: %v", err))
		return fmt.Errorf("failed to decrypt signer key: %w", err)
	}

	// The pending row goes in before submission so a crash mid-submit still
	// leaves an auditable trace.
	pendingID, err := e.logbook.Append(ctx, &botlog.Entry{
		User:          sess.User,
		WalletAddress: w.AccountAddress,
		TokenAddress:  sess.TokenAddress,
		AmountWei:     amountWei,
		Status:        botlog.StatusPending,
		Message:       "swap submitted",
	})
	if err != nil {
		metrics.BumpsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to write pending log: %w", err)
	}

	handle, err := e.relayer.SubmitCalls(ctx, w.AccountAddress, []relay.Call{{
		To:    q.Tx.To,
		Data:  q.Tx.Data,
		Value: q.Tx.Value,
	}}, true, signerKey)
	if err != nil {
		metrics.BumpsTotal.WithLabelValues("failed").Inc()
		e.finalizeFailed(ctx, pendingID, fmt.Sprintf("relay rejected: %v", err))
		return fmt.Errorf("%w: %v", ErrRelayRejected, err)
	}

	receiptCtx, cancel := context.WithTimeout(ctx, e.cfg.ReceiptTimeout)
	defer cancel()

	receipt, err := e.relayer.WaitForReceipt(receiptCtx, handle)
	if err != nil {
		metrics.BumpsTotal.WithLabelValues("failed").Inc()
		switch {
		case errors.Is(err, relay.ErrReverted):
			e.finalizeFailed(ctx, pendingID, "Transaction reverted")
			return fmt.Errorf("%w: %v", ErrTransactionReverted, err)
		case errors.Is(err, context.DeadlineExceeded):
			e.finalizeFailed(ctx, pendingID, fmt.Sprintf("no receipt within %s", e.cfg.ReceiptTimeout))
			return fmt.Errorf("%w after %s", ErrReceiptTimeout, e.cfg.ReceiptTimeout)
		default:
			e.finalizeFailed(ctx, pendingID, fmt.Sprintf("receipt wait failed: %v", err))
			return fmt.Errorf("receipt wait failed: %w", err)
		}
	}

	if err := e.logbook.Finalize(ctx, pendingID, botlog.StatusSuccess, receipt.TxHash.Hex(), "swap confirmed"); err != nil {
		// The swap is on-chain; the log stays pending rather than failing
		// the attempt.
		metrics.ErrorsTotal.WithLabelValues("executor", "log_finalize").Inc()
		logger.Error("failed to finalize success log", zap.Int64("log_id", pendingID), zap.Error(err))
	}

	// Best-effort settlement. The swap is irrevocable, so a debit failure is
	// logged and the balance reconciles on the next successful write.
	if _, err := e.ledger.Debit(ctx, sess.User, ledger.WalletScope(w.AccountAddress), amountWei); err != nil {
		metrics.ErrorsTotal.WithLabelValues("executor", "ledger_debit").Inc()
		logger.Error("failed to debit wallet credit after confirmed swap",
			zap.String("amount_wei", amountWei.String()),
			zap.Error(err))
	} else {
		debited, _ := new(big.Float).SetInt(amountWei).Float64()
		metrics.CreditDebitedWei.Add(debited)
	}

	metrics.BumpsTotal.WithLabelValues("success").Inc()
	logger.Info("bump confirmed",
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.String("amount_wei", amountWei.String()))
	return nil
}

func (e *Executor) appendFailed(ctx context.Context, sess *session.Session, w wallet.BotWallet, amountWei *big.Int, msg string) {
	_, err := e.logbook.Append(ctx, &botlog.Entry{
		User:          sess.User,
		WalletAddress: w.AccountAddress,
		TokenAddress:  sess.TokenAddress,
		AmountWei:     amountWei,
		Status:        botlog.StatusFailed,
		Message:       "swap attempt failed",
		ErrorDetails:  msg,
	})
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("executor", "log_append").Inc()
		e.logger.Error("failed to write failed log", zap.Int64("session_id", sess.ID), zap.Error(err))
	}
}

func (e *Executor) finalizeFailed(ctx context.Context, id int64, msg string) {
	if err := e.logbook.Finalize(context.WithoutCancel(ctx), id, botlog.StatusFailed, "", msg); err != nil {
		metrics.ErrorsTotal.WithLabelValues("executor", "log_finalize").Inc()
		e.logger.Error("failed to finalize failed log", zap.Int64("log_id", id), zap.Error(err))
	}
}
