package migrations

import (
	"context"

	"github.com/glyphworks/ocr-server/internal/db/models"
	"github.com/uptrace/bun"
)

// Events and documents are always read per job, so both FK columns get
// an index.
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewCreateIndex().
			Model((*models.Event)(nil)).
			Index("events_job_id_idx").
			Column("job_id").
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}

		if _, err := db.NewCreateIndex().
			Model((*models.Document)(nil)).
			Index("documents_job_id_idx").
			Column("job_id").
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewDropIndex().
			Model((*models.Document)(nil)).
			Index("documents_job_id_idx").
			IfExists().
			Exec(ctx); err != nil {
			return err
		}

		if _, err := db.NewDropIndex().
			Model((*models.Event)(nil)).
			Index("events_job_id_idx").
			IfExists().
			Exec(ctx); err != nil {
			return err
		}

		return nil
	})
}
