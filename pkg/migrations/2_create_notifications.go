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
		log.Println("creating notifications table...")
		if err := mghelper.CreateSchema(ctx, db, &notificationstore.NotificationDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &notificationstore.NotificationDao{}, "account_id", "status", "type")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping notifications table...")
		return mghelper.DropTables(ctx, db, &notificationstore.NotificationDao{})
	})
}
