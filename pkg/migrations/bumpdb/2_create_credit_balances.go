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
		log.Println("creating credit_balances table...")
		return mghelper.CreateSchema(ctx, db, &ledger.CreditBalanceDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping credit_balances table...")
		return mghelper.DropTables(ctx, db, &ledger.CreditBalanceDao{})
	})
}
