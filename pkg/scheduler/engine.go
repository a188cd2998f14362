// Package scheduler runs the poll loop that claims due sessions and
// dispatches swap attempts.
package scheduler

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bumpworks/bump-engine/internal/metrics"
	"github.com/bumpworks/bump-engine/pkg/botlog"
	"github.com/bumpworks/bump-engine/pkg/session"
)

// SessionStore defines the session operations the scheduler needs.
type SessionStore interface {
	ClaimDue(ctx context.Context, now time.Time, leaseFor time.Duration) ([]*session.Session, error)
	ReleaseClaim(ctx context.Context, id int64) error
	StopByID(ctx context.Context, id int64) error
}

// CreditSource reports a user's total remaining credit.
type CreditSource interface {
	TotalCredit(ctx context.Context, user common.Address) (*big.Int, error)
}

// BumpRunner executes a single swap attempt.
type BumpRunner interface {
	ExecuteBump(ctx context.Context, sess *session.Session) error
}

// Logbook records scheduler-level events for users.
type Logbook interface {
	Append(ctx context.Context, entry *botlog.Entry) (int64, error)
}

// Config carries the scheduler's timing parameters.
type Config struct {
	PollInterval  time.Duration
	LeaseDuration time.Duration
}

// Engine orchestrates recurring bump execution across all running sessions.
type Engine struct {
	cfg      Config
	sessions SessionStore
	credit   CreditSource
	runner   BumpRunner
	logbook  Logbook
	logger   *zap.Logger

	wakeCh chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[int64]struct{}
}

// NewEngine creates a new scheduler engine
func NewEngine(
	cfg Config,
	sessions SessionStore,
	credit CreditSource,
	runner BumpRunner,
	logbook Logbook,
	logger *zap.Logger,
) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 2 * cfg.PollInterval
	}
	return &Engine{
		cfg:      cfg,
		sessions: sessions,
		credit:   credit,
		runner:   runner,
		logbook:  logbook,
		logger:   logger,
		wakeCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		inflight: make(map[int64]struct{}),
	}
}

// Start starts the scheduler engine
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Starting scheduler engine",
		zap.Duration("poll_interval", e.cfg.PollInterval),
		zap.Duration("lease_duration", e.cfg.LeaseDuration))

	e.wg.Add(1)
	go e.run(ctx)

	e.logger.Info("Scheduler engine started")
	return nil
}

// Stop stops the scheduler engine and waits for in-flight attempts
func (e *Engine) Stop() {
	e.logger.Info("Stopping scheduler engine")
	close(e.stopCh)
	e.wg.Wait()
	e.logger.Info("Scheduler engine stopped")
}

// Wake nudges the engine to poll immediately, typically right after a session
// starts. The periodic tick remains the durable source of execution; a missed
// wake only delays the first attempt by one poll interval.
func (e *Engine) Wake() {
	select {
	case e.wakeCh <- struct{}{}:
	default:
	}
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case <-ticker.C:
		case <-e.wakeCh:
		}
		e.tick(ctx)
	}
}

// tick claims all due sessions and dispatches an attempt for each. Errors are
// logged and never propagate; one user's failure cannot block another's swap.
func (e *Engine) tick(ctx context.Context) {
	claimed, err := e.sessions.ClaimDue(ctx, time.Now(), e.cfg.LeaseDuration)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("scheduler", "claim").Inc()
		e.logger.Error("Failed to claim due sessions", zap.Error(err))
		return
	}
	if len(claimed) == 0 {
		return
	}

	metrics.SessionsClaimed.Add(float64(len(claimed)))
	e.logger.Debug("Claimed due sessions", zap.Int("count", len(claimed)))

	for _, sess := range claimed {
		e.dispatch(ctx, sess)
	}
}

func (e *Engine) dispatch(ctx context.Context, sess *session.Session) {
	e.mu.Lock()
	if _, busy := e.inflight[sess.ID]; busy {
		e.mu.Unlock()
		// A prior slow attempt still holds this session; the lease will make
		// it due again once it clears.
		e.logger.Warn("Session attempt still in flight, skipping",
			zap.Int64("session_id", sess.ID))
		return
	}
	e.inflight[sess.ID] = struct{}{}
	e.mu.Unlock()

	metrics.InflightAttempts.Inc()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			delete(e.inflight, sess.ID)
			e.mu.Unlock()
			metrics.InflightAttempts.Dec()
		}()
		e.attempt(ctx, sess)
	}()
}

func (e *Engine) attempt(ctx context.Context, sess *session.Session) {
	logger := e.logger.With(
		zap.Int64("session_id", sess.ID),
		zap.String("user", sess.User.Hex()))

	defer func() {
		if err := e.sessions.ReleaseClaim(context.WithoutCancel(ctx), sess.ID); err != nil {
			logger.Error("Failed to release session claim", zap.Error(err))
		}
	}()

	total, err := e.credit.TotalCredit(ctx, sess.User)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("scheduler", "credit_check").Inc()
		logger.Error("Failed to check total credit, skipping attempt", zap.Error(err))
		return
	}

	if total.Sign() <= 0 {
		logger.Info("Total credit exhausted, stopping session")
		if err := e.sessions.StopByID(ctx, sess.ID); err != nil {
			logger.Error("Failed to stop exhausted session", zap.Error(err))
			return
		}
		if _, err := e.logbook.Append(ctx, &botlog.Entry{
			User:         sess.User,
			TokenAddress: sess.TokenAddress,
			Status:       botlog.StatusInfo,
			Message:      "session stopped: credit exhausted",
		}); err != nil {
			logger.Error("Failed to write session-stop log", zap.Error(err))
		}
		return
	}

	if err := e.runner.ExecuteBump(ctx, sess); err != nil {
		// Per-attempt failures leave the session running; the next tick
		// retries with the next rotated wallet.
		logger.Warn("Swap attempt failed", zap.Error(err))
	}
}
