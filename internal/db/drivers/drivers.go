package drivers

import "github.com/uptrace/bun"

// Driver is a dialect-specific handle to an open database.
type Driver interface {
	GetDB() *bun.DB
}
