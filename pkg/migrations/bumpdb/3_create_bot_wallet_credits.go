package bumpdb

import (
	"context"
	"log"

	"github.com/bumpworks/bump-engine/pkg/ledger"
	mghelper "github.com/bumpworks/bump-engine/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating bot_wallet_credits table...")
		if err := mghelper.CreateSchema(ctx, db, &ledger.BotWalletCreditDao{}); err != nil {
			return err
		}
		// Upsert target for idempotent per-wallet funding.
		_, err := db.ExecContext(ctx,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_bot_wallet_credits_user_wallet
			 ON bot_wallet_credits (user_address, bot_wallet_address)`)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping bot_wallet_credits table...")
		return mghelper.DropTables(ctx, db, &ledger.BotWalletCreditDao{})
	})
}
