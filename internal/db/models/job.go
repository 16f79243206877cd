package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type JobStatus string

const (
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusQueued    JobStatus = "IN_QUEUE"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusProgress  JobStatus = "IN_PROGRESS"
)

// Job is one queued recognition request covering one or more page images.
// Input keeps the msgpack-encoded submission exactly as it was received.
type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID          uuid.UUID    `bun:",type:uuid,pk"`
	Status      JobStatus    `bun:",notnull"`
	Input       []byte       `bun:",notnull"`
	Events      []*Event     `bun:"rel:has-many,join:id=job_id"`
	Documents   []*Document  `bun:"rel:has-many,join:id=job_id"`
	CompletedAt bun.NullTime `bun:",nullzero"`
	UpdatedAt   bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
	CreatedAt   bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
}

func NewJob(input []byte) *Job {
	return &Job{
		ID:     uuid.Must(uuid.NewRandom()),
		Status: JobStatusQueued,
		Input:  input,
	}
}
