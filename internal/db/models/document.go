package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Document is one recognized page: transcripts, grounding summary and the
// stored artifact URLs produced by a single inference. JobID is null for
// documents created through the synchronous endpoints.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID             uuid.UUID    `bun:",type:uuid,pk"`
	JobID          uuid.UUID    `bun:",type:uuid,nullzero"`
	Filename       string       `bun:",nullzero"`
	Task           string       `bun:",notnull"`
	ResolutionMode string       `bun:",notnull"`
	CleanText      string       `bun:",nullzero"`
	RawText        string       `bun:",nullzero"`
	HasGrounding   bool         `bun:",notnull,default:false"`
	BoxCount       int          `bun:",notnull,default:0"`
	InferenceTime  float64      `bun:",notnull,default:0"`
	NumTokens      int          `bun:",notnull,default:0"`
	TextURL        string       `bun:",nullzero"`
	OverlayURL     string       `bun:",nullzero"`
	CreatedAt      bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt      bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
}
