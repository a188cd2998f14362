package ledger

import (
	"time"

	"github.com/uptrace/bun"
)

// CreditBalanceDao maps to the 'credit_balances' table: one row per user
// holding the main (undistributed) credit balance.
type CreditBalanceDao struct {
	bun.BaseModel `bun:"table:credit_balances,alias:cb"`
	UserAddress   string    `bun:"user_address,pk,type:varchar(42)"`
	Balance       string    `bun:"balance,notnull,type:numeric(78,0),default:'0'"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// BotWalletCreditDao maps to the 'bot_wallet_credits' table: one row per
// (user, bot wallet) pair. Uniqueness of the pair is enforced by a composite
// unique index created at migration time.
type BotWalletCreditDao struct {
	bun.BaseModel    `bun:"table:bot_wallet_credits,alias:bwc"`
	ID               int64     `bun:"id,pk,autoincrement"`
	UserAddress      string    `bun:"user_address,notnull,type:varchar(42)"`
	BotWalletAddress string    `bun:"bot_wallet_address,notnull,type:varchar(42)"`
	Balance          string    `bun:"balance,notnull,type:numeric(78,0),default:'0'"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}
