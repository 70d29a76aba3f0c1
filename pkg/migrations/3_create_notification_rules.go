package migrations

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/notificationstore"
	mghelper "github.com/CETANGZHI/crypto-monitor-backend/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating notification_rules table...")
		if err := mghelper.CreateSchema(ctx, db, &notificationstore.RuleDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &notificationstore.RuleDao{}, "account_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping notification_rules table...")
		return mghelper.DropTables(ctx, db, &notificationstore.RuleDao{})
	})
}
