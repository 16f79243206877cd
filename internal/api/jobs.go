package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/glyphworks/ocr-server/internal/app"
	"github.com/glyphworks/ocr-server/internal/db/models"
	"github.com/glyphworks/ocr-server/internal/services/recognition"
	"github.com/glyphworks/ocr-server/internal/types"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

type JobResponse struct {
	ID          string                 `json:"id"`
	Status      string                 `json:"status"`
	Input       map[string]interface{} `json:"input"`
	Events      []EventResponse        `json:"events"`
	Documents   []DocumentResponse     `json:"documents"`
	CreatedAt   time.Time              `json:"created_at"`
	CompletedAt *time.Time             `json:"completed_at"`
}

type EventResponse struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// SubmitJob queues a batch recognition job and answers immediately with
// its id. Progress arrives through the job's event stream or webhook.
func SubmitJob(c *gin.Context) {
	var params types.JobParamsRequest
	contentType := c.ContentType()
	if contentType == "" {
		contentType = "application/json" // Default to JSON
	}

	switch contentType {
	case "application/msgpack":
		if err := c.ShouldBindWith(&params, binding.MsgPack); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse msgpack request body"})
			return
		}
	case "application/json":
		if err := c.ShouldBindWith(&params, binding.JSON); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse json request body"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "unsupported content type: " + contentType})
		return
	}

	app := c.MustGet("app").(*app.App)
	id, err := recognition.NewJobRequest(app, &params)
	if err != nil {
		c.JSON(submitStatus(err), gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     id,
		"status": string(models.JobStatusQueued),
	})
}

func GetJob(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid job id"})
		return
	}

	app := c.MustGet("app").(*app.App)
	job, err := app.JobRepository.GetFullByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toJobResponse(job)})
}

func GetJobStatus(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid job id"})
		return
	}

	app := c.MustGet("app").(*app.App)
	job, err := app.JobRepository.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": job.Status})
}

// StreamJob relays a job's progress frames as server-sent events. Frames
// travel the queue as msgpack and are re-encoded to JSON for the wire;
// the final event is always the END sentinel.
func StreamJob(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid job id"})
		return
	}

	app := c.MustGet("app").(*app.App)
	if _, err := app.JobRepository.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	topic := recognition.StreamTopic(id)
	for {
		message, err := app.MQ().Receive(c.Request.Context(), topic)
		if err != nil {
			// Topic drained after END, queue shut down, or the client
			// went away.
			return
		}

		messageData, err := app.MQ().GetMessageData(message)
		if err != nil {
			continue
		}

		if bytes.Equal(messageData, []byte("END")) {
			if err := app.MQ().CloseTopic(topic); err != nil {
				app.Logger.Error("Failed to close stream topic", zap.String("topic", topic), zap.Error(err))
			}

			fmt.Fprintf(c.Writer, "data: {\"type\":\"message\", \"data\":\"%s\"}\n\n", "END")
			c.Writer.Flush()
			return
		}

		var frame types.StreamFrame
		if err := msgpack.Unmarshal(messageData, &frame); err != nil {
			app.Logger.Error("Dropped malformed stream frame", zap.String("topic", topic), zap.Error(err))
			continue
		}

		encoded, err := json.Marshal(frame)
		if err != nil {
			continue
		}

		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", encoded); err != nil {
			return
		}
		c.Writer.Flush()
	}
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, recognition.ErrNoItems),
		errors.Is(err, recognition.ErrUnknownTask):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func toJobResponse(job *models.Job) *JobResponse {
	events := make([]EventResponse, 0, len(job.Events))
	for _, event := range job.Events {
		var eventData map[string]interface{}
		if err := msgpack.Unmarshal(event.Data, &eventData); err != nil {
			eventData = nil
		}

		events = append(events, EventResponse{
			Type: string(event.Type),
			Data: eventData,
		})
	}

	documents := make([]DocumentResponse, 0, len(job.Documents))
	for _, doc := range job.Documents {
		documents = append(documents, toDocumentResponse(doc))
	}

	var decodedInput map[string]interface{}
	if err := msgpack.Unmarshal(job.Input, &decodedInput); err != nil {
		decodedInput = nil
	}

	var completedAt *time.Time
	if !job.CompletedAt.IsZero() {
		t := job.CompletedAt.Time
		completedAt = &t
	}

	return &JobResponse{
		ID:          job.ID.String(),
		Status:      string(job.Status),
		Input:       decodedInput,
		Events:      events,
		Documents:   documents,
		CreatedAt:   job.CreatedAt.Time,
		CompletedAt: completedAt,
	}
}
