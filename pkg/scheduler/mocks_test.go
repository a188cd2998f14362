package scheduler

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bumpworks/bump-engine/pkg/botlog"
	"github.com/bumpworks/bump-engine/pkg/session"
)

type mockSessionStore struct {
	claimDueFunc     func(ctx context.Context, now time.Time, leaseFor time.Duration) ([]*session.Session, error)
	releaseClaimFunc func(ctx context.Context, id int64) error
	stopByIDFunc     func(ctx context.Context, id int64) error
}

func (m *mockSessionStore) ClaimDue(ctx context.Context, now time.Time, leaseFor time.Duration) ([]*session.Session, error) {
	return m.claimDueFunc(ctx, now, leaseFor)
}

func (m *mockSessionStore) ReleaseClaim(ctx context.Context, id int64) error {
	if m.releaseClaimFunc == nil {
		return nil
	}
	return m.releaseClaimFunc(ctx, id)
}

func (m *mockSessionStore) StopByID(ctx context.Context, id int64) error {
	if m.stopByIDFunc == nil {
		return nil
	}
	return m.stopByIDFunc(ctx, id)
}

type mockCreditSource struct {
	totalCreditFunc func(ctx context.Context, user common.Address) (*big.Int, error)
}

func (m *mockCreditSource) TotalCredit(ctx context.Context, user common.Address) (*big.Int, error) {
	return m.totalCreditFunc(ctx, user)
}

type mockBumpRunner struct {
	executeBumpFunc func(ctx context.Context, sess *session.Session) error
}

func (m *mockBumpRunner) ExecuteBump(ctx context.Context, sess *session.Session) error {
	return m.executeBumpFunc(ctx, sess)
}

type mockLogbook struct {
	appendFunc func(ctx context.Context, entry *botlog.Entry) (int64, error)
}

func (m *mockLogbook) Append(ctx context.Context, entry *botlog.Entry) (int64, error) {
	if m.appendFunc == nil {
		return 1, nil
	}
	return m.appendFunc(ctx, entry)
}
