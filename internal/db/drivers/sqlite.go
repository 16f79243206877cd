package drivers

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// SQLiteDriver opens a local database file. The shim picks a cgo or pure-Go
// sqlite implementation depending on the build.
type SQLiteDriver struct {
	db *bun.DB
}

func NewSQLiteDriver(ctx context.Context, dsn string) (*SQLiteDriver, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return &SQLiteDriver{db: db}, nil
}

func (d *SQLiteDriver) GetDB() *bun.DB {
	return d.db
}
