package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"
)

// Store provides ledger operations backed by PostgreSQL. All balance
// mutations are single atomic statements so concurrent funding and
// consumption on the same scope cannot lose updates.
type Store struct {
	db *bun.DB
}

// NewStore creates a new postgres-backed ledger store
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// userKey lower-cases the address so lookups are case-insensitive.
func userKey(user common.Address) string {
	return strings.ToLower(user.Hex())
}

// Debit consumes credit from the given scope. If amount exceeds the current
// balance the whole remaining balance is consumed and the balance floors at
// zero; the swap has already executed on-chain, so the ledger only bounds
// future spending. Returns the new balance. A missing row debits nothing.
func (s *Store) Debit(ctx context.Context, user common.Address, scope Scope, amount *big.Int) (*big.Int, error) {
	var newBalance string
	var err error

	if scope.IsMain() {
		err = s.db.NewRaw(
			`UPDATE credit_balances
			 SET balance = GREATEST(balance - ?::NUMERIC, 0), updated_at = NOW()
			 WHERE user_address = ?
			 RETURNING balance`,
			amount.String(), userKey(user),
		).Scan(ctx, &newBalance)
	} else {
		err = s.db.NewRaw(
			`UPDATE bot_wallet_credits
			 SET balance = GREATEST(balance - ?::NUMERIC, 0), updated_at = NOW()
			 WHERE user_address = ? AND bot_wallet_address = ?
			 RETURNING balance`,
			amount.String(), userKey(user), strings.ToLower(scope.Wallet().Hex()),
		).Scan(ctx, &newBalance)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to debit %s scope: %w", scope, err)
	}

	return parseNumeric(newBalance)
}

// Credit adds to the given scope's balance, creating the row if needed.
// The upsert keys on (user) or (user, wallet) so repeated funding calls can
// never create duplicate rows. Returns the new balance.
func (s *Store) Credit(ctx context.Context, user common.Address, scope Scope, amount *big.Int) (*big.Int, error) {
	var newBalance string
	var err error

	if scope.IsMain() {
		err = s.db.NewRaw(
			`INSERT INTO credit_balances (user_address, balance, updated_at)
			 VALUES (?, ?::NUMERIC, NOW())
			 ON CONFLICT (user_address)
			 DO UPDATE SET balance = credit_balances.balance + EXCLUDED.balance, updated_at = NOW()
			 RETURNING balance`,
			userKey(user), amount.String(),
		).Scan(ctx, &newBalance)
	} else {
		err = s.db.NewRaw(
			`INSERT INTO bot_wallet_credits (user_address, bot_wallet_address, balance, updated_at)
			 VALUES (?, ?, ?::NUMERIC, NOW())
			 ON CONFLICT (user_address, bot_wallet_address)
			 DO UPDATE SET balance = bot_wallet_credits.balance + EXCLUDED.balance, updated_at = NOW()
			 RETURNING balance`,
			userKey(user), strings.ToLower(scope.Wallet().Hex()), amount.String(),
		).Scan(ctx, &newBalance)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to credit %s scope: %w", scope, err)
	}

	return parseNumeric(newBalance)
}

// ScopeBalance returns the current balance of a single scope.
func (s *Store) ScopeBalance(ctx context.Context, user common.Address, scope Scope) (*big.Int, error) {
	var balance string
	var err error

	if scope.IsMain() {
		err = s.db.NewRaw(
			`SELECT balance FROM credit_balances WHERE user_address = ?`,
			userKey(user),
		).Scan(ctx, &balance)
	} else {
		err = s.db.NewRaw(
			`SELECT balance FROM bot_wallet_credits WHERE user_address = ? AND bot_wallet_address = ?`,
			userKey(user), strings.ToLower(scope.Wallet().Hex()),
		).Scan(ctx, &balance)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s scope balance: %w", scope, err)
	}

	return parseNumeric(balance)
}

// TotalCredit is the single source of truth for "can the user afford more
// bumps": main balance plus the sum over all bot-wallet balances.
func (s *Store) TotalCredit(ctx context.Context, user common.Address) (*big.Int, error) {
	var total string
	err := s.db.NewRaw(
		`SELECT COALESCE((SELECT balance FROM credit_balances WHERE user_address = ?), 0)
		      + COALESCE((SELECT SUM(balance) FROM bot_wallet_credits WHERE user_address = ?), 0)`,
		userKey(user), userKey(user),
	).Scan(ctx, &total)
	if err != nil {
		return nil, fmt.Errorf("failed to compute total credit: %w", err)
	}

	return parseNumeric(total)
}

// WalletCredits returns the per-wallet balances for a user.
func (s *Store) WalletCredits(ctx context.Context, user common.Address) ([]WalletCredit, error) {
	var daos []BotWalletCreditDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("user_address = ?", userKey(user)).
		Order("bot_wallet_address ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet credits: %w", err)
	}

	credits := make([]WalletCredit, len(daos))
	for i, dao := range daos {
		balance, err := parseNumeric(dao.Balance)
		if err != nil {
			return nil, err
		}
		credits[i] = WalletCredit{
			User:          common.HexToAddress(dao.UserAddress),
			WalletAddress: common.HexToAddress(dao.BotWalletAddress),
			Balance:       balance,
		}
	}
	return credits, nil
}

// DistributeToWallets moves total from the user's main balance onto the given
// rotation wallets, splitting evenly with the remainder on the first wallet.
// The whole move happens in one transaction; the main row is locked so a
// concurrent deposit cannot interleave.
func (s *Store) DistributeToWallets(ctx context.Context, user common.Address, wallets []common.Address, total *big.Int) error {
	if len(wallets) == 0 {
		return fmt.Errorf("no wallets to distribute to")
	}
	amounts := SplitAmount(total, len(wallets))

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var current string
		err := tx.NewRaw(
			`SELECT balance FROM credit_balances WHERE user_address = ? FOR UPDATE`,
			userKey(user),
		).Scan(ctx, &current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInsufficientCredit
		}
		if err != nil {
			return fmt.Errorf("failed to lock main balance: %w", err)
		}

		balance, err := parseNumeric(current)
		if err != nil {
			return err
		}
		if balance.Cmp(total) < 0 {
			return ErrInsufficientCredit
		}

		if _, err := tx.NewRaw(
			`UPDATE credit_balances
			 SET balance = balance - ?::NUMERIC, updated_at = NOW()
			 WHERE user_address = ?`,
			total.String(), userKey(user),
		).Exec(ctx); err != nil {
			return fmt.Errorf("failed to debit main balance: %w", err)
		}

		for i, wallet := range wallets {
			if _, err := tx.NewRaw(
				`INSERT INTO bot_wallet_credits (user_address, bot_wallet_address, balance, updated_at)
				 VALUES (?, ?, ?::NUMERIC, NOW())
				 ON CONFLICT (user_address, bot_wallet_address)
				 DO UPDATE SET balance = bot_wallet_credits.balance + EXCLUDED.balance, updated_at = NOW()`,
				userKey(user), strings.ToLower(wallet.Hex()), amounts[i].String(),
			).Exec(ctx); err != nil {
				return fmt.Errorf("failed to credit wallet %s: %w", wallet.Hex(), err)
			}
		}
		return nil
	})
}
