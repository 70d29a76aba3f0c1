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
		log.Println("creating notification_settings table...")
		return mghelper.CreateSchema(ctx, db, &notificationstore.SettingsDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping notification_settings table...")
		return mghelper.DropTables(ctx, db, &notificationstore.SettingsDao{})
	})
}
