package bumpdb

import (
	"context"
	"log"

	mghelper "github.com/bumpworks/bump-engine/pkg/pgutil/migrations"
	"github.com/bumpworks/bump-engine/pkg/session"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating bot_sessions table...")
		if err := mghelper.CreateSchema(ctx, db, &session.SessionDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelIndexes(ctx, db, &session.SessionDao{}, "user_address", "status"); err != nil {
			return err
		}
		// At most one running session per user, enforced by the store.
		_, err := db.ExecContext(ctx,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_bot_sessions_one_running
			 ON bot_sessions (user_address) WHERE status = 'running'`)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping bot_sessions table...")
		return mghelper.DropTables(ctx, db, &session.SessionDao{})
	})
}
