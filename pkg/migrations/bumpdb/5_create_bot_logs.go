package bumpdb

import (
	"context"
	"log"

	"github.com/bumpworks/bump-engine/pkg/botlog"
	mghelper "github.com/bumpworks/bump-engine/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating bot_logs table...")
		if err := mghelper.CreateSchema(ctx, db, &botlog.LogDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &botlog.LogDao{}, "user_address", "status")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping bot_logs table...")
		return mghelper.DropTables(ctx, db, &botlog.LogDao{})
	})
}
