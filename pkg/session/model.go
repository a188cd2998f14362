package session

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// SessionDao maps to the 'bot_sessions' table. A partial unique index on
// user_address WHERE status = 'running' backs the at-most-one-running
// invariant at the database level.
type SessionDao struct {
	bun.BaseModel       `bun:"table:bot_sessions,alias:bs"`
	ID                  int64      `bun:"id,pk,autoincrement"`
	UserAddress         string     `bun:"user_address,notnull,type:varchar(42)"`
	TokenAddress        string     `bun:"token_address,notnull,type:varchar(42)"`
	AmountFiat          string     `bun:"amount_fiat,notnull,type:numeric(18,2)"`
	IntervalSeconds     int64      `bun:"interval_seconds,notnull"`
	WalletRotationIndex int16      `bun:"wallet_rotation_index,notnull,default:0"`
	Status              string     `bun:"status,notnull,type:varchar(16)"`
	StartedAt           time.Time  `bun:"started_at,nullzero,default:current_timestamp"`
	StoppedAt           *time.Time `bun:"stopped_at"`
	LastAttemptAt       *time.Time `bun:"last_attempt_at"`
	ClaimedUntil        *time.Time `bun:"claimed_until"`
}

func toSession(dao *SessionDao) (*Session, error) {
	amountFiat, err := decimal.NewFromString(dao.AmountFiat)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:                  dao.ID,
		User:                common.HexToAddress(dao.UserAddress),
		TokenAddress:        common.HexToAddress(dao.TokenAddress),
		AmountFiat:          amountFiat,
		IntervalSeconds:     dao.IntervalSeconds,
		WalletRotationIndex: int(dao.WalletRotationIndex),
		Status:              Status(dao.Status),
		StartedAt:           dao.StartedAt,
		StoppedAt:           dao.StoppedAt,
		LastAttemptAt:       dao.LastAttemptAt,
		ClaimedUntil:        dao.ClaimedUntil,
	}, nil
}
