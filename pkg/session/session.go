// Package session holds the per-user bumping session state machine: whether
// bumping is active, its cadence, target token, per-bump fiat size, and the
// wallet rotation pointer.
package session

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Status represents the current state of a bump session
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
)

// IsTerminal reports whether the scheduler should ignore the session.
// Paused and completed exist in the schema for forward compatibility and
// are terminal-equivalent for scheduling.
func (s Status) IsTerminal() bool {
	return s != StatusRunning
}

var (
	// ErrNoRunningSession is returned when a user has no running session.
	ErrNoRunningSession = errors.New("no running session")
	// ErrSessionAlreadyRunning is returned when starting a session for a
	// user that already has one running. At most one running session per
	// user may exist at any time.
	ErrSessionAlreadyRunning = errors.New("session already running")
)

// Session is one active-or-historical bumping configuration for a user.
type Session struct {
	ID                  int64
	User                common.Address
	TokenAddress        common.Address
	AmountFiat          decimal.Decimal
	IntervalSeconds     int64
	WalletRotationIndex int
	Status              Status
	StartedAt           time.Time
	StoppedAt           *time.Time
	LastAttemptAt       *time.Time
	ClaimedUntil        *time.Time
}
