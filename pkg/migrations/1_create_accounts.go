package migrations

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/accountstore"
	mghelper "github.com/CETANGZHI/crypto-monitor-backend/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating accounts table...")
		if err := mghelper.CreateSchema(ctx, db, &accountstore.AccountDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &accountstore.AccountDao{}, "status", "tier")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping accounts table...")
		return mghelper.DropTables(ctx, db, &accountstore.AccountDao{})
	})
}
