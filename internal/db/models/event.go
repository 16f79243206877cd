package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/vmihailenco/msgpack/v5"
)

type EventType string

const (
	EventJobQueued       EventType = "JOB_QUEUED"
	EventJobStarted      EventType = "JOB_STARTED"
	EventDocumentCreated EventType = "DOCUMENT_CREATED"
	EventItemFailed      EventType = "ITEM_FAILED"
	EventJobCompleted    EventType = "JOB_COMPLETED"
	EventJobFailed       EventType = "JOB_FAILED"
)

// Event is one entry in a job's progress history. Data is msgpack, shaped by
// the event type.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID        uuid.UUID    `bun:",type:uuid,pk"`
	Type      EventType    `bun:",notnull"`
	Data      []byte       `bun:",notnull"`
	JobID     uuid.UUID    `bun:",type:uuid,notnull"`
	Job       *Job         `bun:"rel:belongs-to,join:job_id=id"`
	CreatedAt bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
}

func NewEvent(jobID uuid.UUID, eventType EventType, data interface{}) *Event {
	encoded, err := msgpack.Marshal(data)
	if err != nil {
		panic(err)
	}

	return &Event{
		ID:    uuid.Must(uuid.NewRandom()),
		Type:  eventType,
		Data:  encoded,
		JobID: jobID,
	}
}
