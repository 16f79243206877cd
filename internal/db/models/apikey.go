package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// APIKey stores the sha3-256 digest of an issued key plus a display mask.
// The key itself is shown once at creation and never persisted.
type APIKey struct {
	bun.BaseModel `bun:"table:api_keys"`

	ID        uuid.UUID    `bun:",type:uuid,pk"`
	KeyHash   string       `bun:",notnull,unique"`
	KeyMask   string       `bun:",notnull"`
	IsRevoked bool         `bun:",notnull,default:false"`
	CreatedAt bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
}

func NewAPIKey(keyHash, keyMask string) *APIKey {
	return &APIKey{
		ID:      uuid.Must(uuid.NewRandom()),
		KeyHash: keyHash,
		KeyMask: keyMask,
	}
}
