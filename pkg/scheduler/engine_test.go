package scheduler

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bumpworks/bump-engine/internal/metrics"
	"github.com/bumpworks/bump-engine/pkg/botlog"
	"github.com/bumpworks/bump-engine/pkg/session"
)

var testUser = common.HexToAddress("0x1000000000000000000000000000000000000001")

func runningSession(id int64) *session.Session {
	return &session.Session{
		ID:              id,
		User:            testUser,
		TokenAddress:    common.HexToAddress("0x2000000000000000000000000000000000000002"),
		AmountFiat:      decimal.NewFromInt(10),
		IntervalSeconds: 300,
		Status:          session.StatusRunning,
	}
}

func testConfig() Config {
	return Config{
		PollInterval:  10 * time.Millisecond,
		LeaseDuration: time.Second,
	}
}

func TestEngine_DispatchesDueSessions(t *testing.T) {
	var claims int32
	store := &mockSessionStore{
		claimDueFunc: func(ctx context.Context, now time.Time, leaseFor time.Duration) ([]*session.Session, error) {
			if atomic.AddInt32(&claims, 1) == 1 {
				return []*session.Session{runningSession(1)}, nil
			}
			return nil, nil
		},
	}
	credit := &mockCreditSource{
		totalCreditFunc: func(ctx context.Context, user common.Address) (*big.Int, error) {
			return big.NewInt(1000), nil
		},
	}

	executed := make(chan int64, 1)
	runner := &mockBumpRunner{
		executeBumpFunc: func(ctx context.Context, sess *session.Session) error {
			executed <- sess.ID
			return nil
		},
	}

	engine := NewEngine(testConfig(), store, credit, runner, &mockLogbook{}, zap.NewNop())
	require.NoError(t, engine.Start(context.Background()))
	defer engine.Stop()

	select {
	case id := <-executed:
		assert.Equal(t, int64(1), id)
	case <-time.After(time.Second):
		t.Fatal("session was never dispatched")
	}
}

func TestEngine_StopsExhaustedSession(t *testing.T) {
	var claims int32
	store := &mockSessionStore{
		claimDueFunc: func(ctx context.Context, now time.Time, leaseFor time.Duration) ([]*session.Session, error) {
			if atomic.AddInt32(&claims, 1) == 1 {
				return []*session.Session{runningSession(2)}, nil
			}
			return nil, nil
		},
	}
	credit := &mockCreditSource{
		totalCreditFunc: func(ctx context.Context, user common.Address) (*big.Int, error) {
			return big.NewInt(0), nil
		},
	}

	stopped := make(chan int64, 1)
	store.stopByIDFunc = func(ctx context.Context, id int64) error {
		stopped <- id
		return nil
	}

	logged := make(chan *botlog.Entry, 1)
	logbook := &mockLogbook{
		appendFunc: func(ctx context.Context, entry *botlog.Entry) (int64, error) {
			logged <- entry
			return 1, nil
		},
	}

	runner := &mockBumpRunner{
		executeBumpFunc: func(ctx context.Context, sess *session.Session) error {
			t.Error("executor must not run for an exhausted session")
			return nil
		},
	}

	engine := NewEngine(testConfig(), store, credit, runner, logbook, zap.NewNop())
	require.NoError(t, engine.Start(context.Background()))
	defer engine.Stop()

	select {
	case id := <-stopped:
		assert.Equal(t, int64(2), id)
	case <-time.After(time.Second):
		t.Fatal("exhausted session was never stopped")
	}

	select {
	case entry := <-logged:
		assert.Equal(t, botlog.StatusInfo, entry.Status)
		assert.Equal(t, testUser, entry.User)
		assert.Contains(t, entry.Message, "credit exhausted")
	case <-time.After(time.Second):
		t.Fatal("session-stop log was never written")
	}
}

func TestEngine_WakeTriggersImmediatePoll(t *testing.T) {
	claimed := make(chan struct{}, 1)
	store := &mockSessionStore{
		claimDueFunc: func(ctx context.Context, now time.Time, leaseFor time.Duration) ([]*session.Session, error) {
			select {
			case claimed <- struct{}{}:
			default:
			}
			return nil, nil
		},
	}
	credit := &mockCreditSource{
		totalCreditFunc: func(ctx context.Context, user common.Address) (*big.Int, error) {
			return big.NewInt(1), nil
		},
	}
	runner := &mockBumpRunner{
		executeBumpFunc: func(ctx context.Context, sess *session.Session) error { return nil },
	}

	// A long poll interval so only Wake can plausibly trigger the claim.
	cfg := Config{PollInterval: time.Hour, LeaseDuration: time.Second}
	engine := NewEngine(cfg, store, credit, runner, &mockLogbook{}, zap.NewNop())
	require.NoError(t, engine.Start(context.Background()))
	defer engine.Stop()

	engine.Wake()

	select {
	case <-claimed:
	case <-time.After(time.Second):
		t.Fatal("wake did not trigger a poll")
	}
}

func TestEngine_InflightGuardSkipsBusySession(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var executions int32

	store := &mockSessionStore{
		claimDueFunc: func(ctx context.Context, now time.Time, leaseFor time.Duration) ([]*session.Session, error) {
			// The same session stays claimable so overlapping ticks race the
			// slow attempt.
			return []*session.Session{runningSession(3)}, nil
		},
	}
	credit := &mockCreditSource{
		totalCreditFunc: func(ctx context.Context, user common.Address) (*big.Int, error) {
			return big.NewInt(1000), nil
		},
	}
	runner := &mockBumpRunner{
		executeBumpFunc: func(ctx context.Context, sess *session.Session) error {
			atomic.AddInt32(&executions, 1)
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return nil
		},
	}

	engine := NewEngine(testConfig(), store, credit, runner, &mockLogbook{}, zap.NewNop())
	require.NoError(t, engine.Start(context.Background()))

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("attempt never started")
	}

	// Several more ticks elapse while the first attempt blocks.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&executions))

	close(release)
	engine.Stop()
}

func TestEngine_InflightGaugeReturnsToZero(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var claims int32

	store := &mockSessionStore{
		claimDueFunc: func(ctx context.Context, now time.Time, leaseFor time.Duration) ([]*session.Session, error) {
			if atomic.AddInt32(&claims, 1) == 1 {
				return []*session.Session{runningSession(6)}, nil
			}
			return nil, nil
		},
	}
	credit := &mockCreditSource{
		totalCreditFunc: func(ctx context.Context, user common.Address) (*big.Int, error) {
			return big.NewInt(1000), nil
		},
	}
	runner := &mockBumpRunner{
		executeBumpFunc: func(ctx context.Context, sess *session.Session) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return nil
		},
	}

	base := testutil.ToFloat64(metrics.InflightAttempts)

	engine := NewEngine(testConfig(), store, credit, runner, &mockLogbook{}, zap.NewNop())
	require.NoError(t, engine.Start(context.Background()))

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("attempt never started")
	}
	assert.Equal(t, base+1, testutil.ToFloat64(metrics.InflightAttempts))

	close(release)
	engine.Stop()

	// Empty ticks after the attempt finishes must not leave a stale reading.
	assert.Equal(t, base, testutil.ToFloat64(metrics.InflightAttempts))
}

func TestEngine_ClaimErrorDoesNotStopLoop(t *testing.T) {
	var claims int32
	executed := make(chan struct{}, 1)

	store := &mockSessionStore{
		claimDueFunc: func(ctx context.Context, now time.Time, leaseFor time.Duration) ([]*session.Session, error) {
			switch atomic.AddInt32(&claims, 1) {
			case 1:
				return nil, fmt.Errorf("database unavailable")
			case 2:
				return []*session.Session{runningSession(4)}, nil
			default:
				return nil, nil
			}
		},
	}
	credit := &mockCreditSource{
		totalCreditFunc: func(ctx context.Context, user common.Address) (*big.Int, error) {
			return big.NewInt(1000), nil
		},
	}
	runner := &mockBumpRunner{
		executeBumpFunc: func(ctx context.Context, sess *session.Session) error {
			select {
			case executed <- struct{}{}:
			default:
			}
			return nil
		},
	}

	engine := NewEngine(testConfig(), store, credit, runner, &mockLogbook{}, zap.NewNop())
	require.NoError(t, engine.Start(context.Background()))
	defer engine.Stop()

	select {
	case <-executed:
	case <-time.After(time.Second):
		t.Fatal("loop did not recover from claim error")
	}
}

func TestEngine_ReleasesClaimAfterAttempt(t *testing.T) {
	var claims int32
	released := make(chan int64, 1)
	var mu sync.Mutex

	store := &mockSessionStore{
		claimDueFunc: func(ctx context.Context, now time.Time, leaseFor time.Duration) ([]*session.Session, error) {
			if atomic.AddInt32(&claims, 1) == 1 {
				return []*session.Session{runningSession(5)}, nil
			}
			return nil, nil
		},
		releaseClaimFunc: func(ctx context.Context, id int64) error {
			mu.Lock()
			defer mu.Unlock()
			select {
			case released <- id:
			default:
			}
			return nil
		},
	}
	credit := &mockCreditSource{
		totalCreditFunc: func(ctx context.Context, user common.Address) (*big.Int, error) {
			return big.NewInt(1000), nil
		},
	}
	runner := &mockBumpRunner{
		executeBumpFunc: func(ctx context.Context, sess *session.Session) error {
			return fmt.Errorf("quote unavailable")
		},
	}

	engine := NewEngine(testConfig(), store, credit, runner, &mockLogbook{}, zap.NewNop())
	require.NoError(t, engine.Start(context.Background()))
	defer engine.Stop()

	select {
	case id := <-released:
		assert.Equal(t, int64(5), id)
	case <-time.After(time.Second):
		t.Fatal("claim was never released")
	}
}
