package botlog

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"
)

// Store provides append-and-finalize access to the audit log.
type Store struct {
	db *bun.DB
}

// NewStore creates a new postgres-backed audit log store
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Append writes a new audit row and returns its id. The id of a pending row
// is retained by the executor so the row can be finalized after the
// transaction resolves.
func (s *Store) Append(ctx context.Context, entry *Entry) (int64, error) {
	dao := toLogDao(entry)
	_, err := s.db.NewInsert().Model(dao).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to append audit log: %w", err)
	}
	return dao.ID, nil
}

// Finalize attaches a terminal status, transaction hash and message to a
// pending row. This is the only mutation the audit log permits; rows that
// are already terminal are left untouched.
func (s *Store) Finalize(ctx context.Context, id int64, status Status, txHash, message string) error {
	q := s.db.NewUpdate().
		Model((*LogDao)(nil)).
		Set("status = ?", string(status)).
		Where("id = ?", id).
		Where("status = ?", string(StatusPending))

	if txHash != "" {
		q = q.Set("tx_hash = ?", txHash)
	}
	if message != "" {
		q = q.Set("message = ?", message)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to finalize audit log %d: %w", id, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("audit log %d is not pending", id)
	}
	return nil
}

// ListByUser returns the most recent audit entries for a user.
func (s *Store) ListByUser(ctx context.Context, user common.Address, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var daos []LogDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("user_address = ?", strings.ToLower(user.Hex())).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	entries := make([]*Entry, len(daos))
	for i := range daos {
		entries[i] = toEntry(&daos[i])
	}
	return entries, nil
}

// Get returns one audit entry by id.
func (s *Store) Get(ctx context.Context, id int64) (*Entry, error) {
	dao := new(LogDao)
	err := s.db.NewSelect().Model(dao).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log %d: %w", id, err)
	}
	return toEntry(dao), nil
}
