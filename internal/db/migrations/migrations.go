package migrations

import (
	"fmt"

	"github.com/glyphworks/ocr-server/internal/config"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

// InitMigrations discovers SQL migration files next to the Go ones.
// Production builds register Go migrations only, through init.
func InitMigrations() error {
	cfg := config.GetConfig()

	if cfg != nil && cfg.Environment != "production" {
		if err := Migrations.DiscoverCaller(); err != nil {
			return fmt.Errorf("failed to discover migrations: %w", err)
		}
	}

	return nil
}
