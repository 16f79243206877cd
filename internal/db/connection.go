package db

import (
	"context"
	"fmt"

	"github.com/glyphworks/ocr-server/internal/config"
	"github.com/glyphworks/ocr-server/internal/db/drivers"
	"github.com/glyphworks/ocr-server/internal/db/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

// NewConnection opens the configured database. Outside production a query
// hook logs statements; set BUNDEBUG to override it either way.
func NewConnection(ctx context.Context, cfg *config.Config) (drivers.Driver, error) {
	var (
		driver drivers.Driver
		err    error
	)

	switch cfg.DB.Driver {
	case "sqlite":
		driver, err = drivers.NewSQLiteDriver(ctx, cfg.DB.DSN)
	case "libsql":
		driver, err = drivers.NewLibSQLDriver(ctx, cfg.DB.DSN)
	case "pg":
		driver, err = drivers.NewPGDriver(ctx, cfg.DB.DSN)
	default:
		return nil, fmt.Errorf("invalid database driver: %s", cfg.DB.Driver)
	}
	if err != nil {
		return nil, err
	}

	driver.GetDB().AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(cfg.Environment != "production"),
		bundebug.FromEnv("BUNDEBUG"),
	))

	return driver, nil
}

// CreateTables creates every table the server uses, skipping ones that
// already exist. Development setups rely on this instead of migrations.
func CreateTables(ctx context.Context, db *bun.DB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		tables := []interface{}{
			(*models.APIKey)(nil),
			(*models.Job)(nil),
			(*models.Event)(nil),
			(*models.Document)(nil),
		}

		for _, table := range tables {
			if _, err := tx.NewCreateTable().Model(table).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table: %w", err)
			}
		}

		return nil
	})
}
