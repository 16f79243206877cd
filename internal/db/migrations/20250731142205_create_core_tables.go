package migrations

import (
	"context"

	"github.com/glyphworks/ocr-server/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		tables := []interface{}{
			(*models.APIKey)(nil),
			(*models.Job)(nil),
			(*models.Event)(nil),
			(*models.Document)(nil),
		}

		for _, table := range tables {
			if _, err := db.NewCreateTable().Model(table).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		tables := []interface{}{
			(*models.Document)(nil),
			(*models.Event)(nil),
			(*models.Job)(nil),
			(*models.APIKey)(nil),
		}

		for _, table := range tables {
			if _, err := db.NewDropTable().Model(table).IfExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}
