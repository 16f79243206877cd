package drivers

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// LibSQLDriver connects to a remote libsql/Turso server over libsql:// or
// https:// DSNs. Local file DSNs belong to the sqlite driver.
type LibSQLDriver struct {
	db *bun.DB
}

func NewLibSQLDriver(ctx context.Context, dsn string) (*LibSQLDriver, error) {
	sqldb, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return &LibSQLDriver{db: db}, nil
}

func (d *LibSQLDriver) GetDB() *bun.DB {
	return d.db
}
