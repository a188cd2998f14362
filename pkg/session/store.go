package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/bumpworks/bump-engine/pkg/wallet"
)

// Store provides session persistence and the claim lease used by the
// scheduler for per-session mutual exclusion across worker instances.
type Store struct {
	db *bun.DB
}

// NewStore creates a new postgres-backed session store
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Start creates a running session for the user with rotation index 0.
// Returns ErrSessionAlreadyRunning if a running row already exists; the
// check runs inside the insert transaction and is additionally backed by the
// partial unique index, so a concurrent start cannot slip a second running
// row in.
func (s *Store) Start(ctx context.Context, user, token common.Address, amountFiat decimal.Decimal, interval time.Duration) (*Session, error) {
	if token == (common.Address{}) {
		return nil, fmt.Errorf("target token is required")
	}
	if !amountFiat.IsPositive() {
		return nil, fmt.Errorf("bump amount must be positive")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("bump interval must be positive")
	}

	dao := &SessionDao{
		UserAddress:         strings.ToLower(user.Hex()),
		TokenAddress:        strings.ToLower(token.Hex()),
		AmountFiat:          amountFiat.String(),
		IntervalSeconds:     int64(interval / time.Second),
		WalletRotationIndex: 0,
		Status:              string(StatusRunning),
		StartedAt:           time.Now().UTC(),
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*SessionDao)(nil)).
			Where("user_address = ?", dao.UserAddress).
			Where("status = ?", string(StatusRunning)).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check running session: %w", err)
		}
		if exists {
			return ErrSessionAlreadyRunning
		}

		_, err = tx.NewInsert().Model(dao).Exec(ctx)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrSessionAlreadyRunning) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return toSession(dao)
}

// GetRunning returns the user's running session, if any.
func (s *Store) GetRunning(ctx context.Context, user common.Address) (*Session, error) {
	dao := new(SessionDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("user_address = ?", strings.ToLower(user.Hex())).
		Where("status = ?", string(StatusRunning)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRunningSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get running session: %w", err)
	}
	return toSession(dao)
}

// Stop transitions the user's running session to stopped.
func (s *Store) Stop(ctx context.Context, user common.Address) error {
	res, err := s.db.NewUpdate().
		Model((*SessionDao)(nil)).
		Set("status = ?", string(StatusStopped)).
		Set("stopped_at = NOW()").
		Set("claimed_until = NULL").
		Where("user_address = ?", strings.ToLower(user.Hex())).
		Where("status = ?", string(StatusRunning)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to stop session: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNoRunningSession
	}
	return nil
}

// StopByID stops a specific session; used by the scheduler when a session
// hits a fatal condition (zero total credit).
func (s *Store) StopByID(ctx context.Context, id int64) error {
	_, err := s.db.NewUpdate().
		Model((*SessionDao)(nil)).
		Set("status = ?", string(StatusStopped)).
		Set("stopped_at = NOW()").
		Set("claimed_until = NULL").
		Where("id = ?", id).
		Where("status = ?", string(StatusRunning)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to stop session %d: %w", id, err)
	}
	return nil
}

// AdvanceRotation moves the session's wallet pointer forward by exactly one,
// wrapping modulo the pool size. Called once per attempt regardless of the
// attempt's outcome so that a single failing wallet cannot starve rotation.
func (s *Store) AdvanceRotation(ctx context.Context, id int64) error {
	_, err := s.db.NewUpdate().
		Model((*SessionDao)(nil)).
		Set("wallet_rotation_index = (wallet_rotation_index + 1) % ?", wallet.PoolSize).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to advance rotation: %w", err)
	}
	return nil
}

// ClaimDue atomically claims every running session whose interval has
// elapsed and that is not leased by another worker. Claimed sessions get
// claimed_until = now + leaseFor and last_attempt_at = now in the same
// statement, so two scheduler instances can never claim the same session
// within a lease window.
func (s *Store) ClaimDue(ctx context.Context, now time.Time, leaseFor time.Duration) ([]*Session, error) {
	var daos []SessionDao
	err := s.db.NewRaw(
		`UPDATE bot_sessions
		 SET claimed_until = ?, last_attempt_at = ?
		 WHERE id IN (
		   SELECT id FROM bot_sessions
		   WHERE status = ?
		     AND (last_attempt_at IS NULL OR last_attempt_at + make_interval(secs => interval_seconds) <= ?)
		     AND (claimed_until IS NULL OR claimed_until < ?)
		   FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		now.Add(leaseFor), now, string(StatusRunning), now, now,
	).Scan(ctx, &daos)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim due sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(daos))
	for i := range daos {
		sess, err := toSession(&daos[i])
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// ReleaseClaim clears the lease after an attempt finishes, making the
// session claimable again on its next due tick.
func (s *Store) ReleaseClaim(ctx context.Context, id int64) error {
	_, err := s.db.NewUpdate().
		Model((*SessionDao)(nil)).
		Set("claimed_until = NULL").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to release claim: %w", err)
	}
	return nil
}

// Get returns a session by id.
func (s *Store) Get(ctx context.Context, id int64) (*Session, error) {
	dao := new(SessionDao)
	err := s.db.NewSelect().Model(dao).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %d: %w", id, err)
	}
	return toSession(dao)
}
