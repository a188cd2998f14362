package bumpdb

import (
	"context"
	"log"

	mghelper "github.com/bumpworks/bump-engine/pkg/pgutil/migrations"
	"github.com/bumpworks/bump-engine/pkg/wallet"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating bot_wallets table...")
		if err := mghelper.CreateSchema(ctx, db, &wallet.BotWalletDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelIndexes(ctx, db, &wallet.BotWalletDao{}, "user_address"); err != nil {
			return err
		}
		_, err := db.ExecContext(ctx,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_bot_wallets_user_index
			 ON bot_wallets (user_address, wallet_index)`)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping bot_wallets table...")
		return mghelper.DropTables(ctx, db, &wallet.BotWalletDao{})
	})
}
