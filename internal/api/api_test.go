package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/glyphworks/ocr-server/internal/db/models"
	"github.com/glyphworks/ocr-server/internal/ocr/engine"
	"github.com/glyphworks/ocr-server/internal/services/recognition"
	"github.com/glyphworks/ocr-server/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/vmihailenco/msgpack/v5"
)

func TestOcrStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: image data is empty", recognition.ErrInvalidImage), http.StatusBadRequest},
		{fmt.Errorf("%w: prompt is empty", recognition.ErrInvalidPrompt), http.StatusBadRequest},
		{recognition.ErrPromptRejected, http.StatusBadRequest},
		{recognition.ErrNoImage, http.StatusBadRequest},
		{recognition.ErrEngineUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: weights missing", engine.ErrModelLoad), http.StatusServiceUnavailable},
		{errors.New("inference blew up"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, ocrStatus(tc.err), tc.err.Error())
	}
}

func TestSubmitStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, submitStatus(recognition.ErrNoItems))
	require.Equal(t, http.StatusBadRequest, submitStatus(fmt.Errorf("%w %q", recognition.ErrUnknownTask, "translate")))
	require.Equal(t, http.StatusInternalServerError, submitStatus(errors.New("queue full")))
}

func TestToJobResponse(t *testing.T) {
	jobID := uuid.Must(uuid.NewRandom())

	input, err := msgpack.Marshal(types.JobParams{
		ID:    jobID.String(),
		Task:  "markdown",
		Items: []types.JobItem{{Filename: "page.png"}},
	})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	job := &models.Job{
		ID:     jobID,
		Status: models.JobStatusCompleted,
		Input:  input,
		Events: []*models.Event{
			models.NewEvent(jobID, models.EventJobQueued, map[string]interface{}{"items": 1}),
		},
		Documents: []*models.Document{
			{ID: uuid.Must(uuid.NewRandom()), JobID: jobID, Task: "markdown", ResolutionMode: "Base", CleanText: "hello"},
		},
		CreatedAt:   bun.NullTime{Time: now},
		CompletedAt: bun.NullTime{Time: now},
	}

	resp := toJobResponse(job)
	require.Equal(t, jobID.String(), resp.ID)
	require.Equal(t, string(models.JobStatusCompleted), resp.Status)
	require.Equal(t, "markdown", resp.Input["task"])
	require.Len(t, resp.Events, 1)
	require.Equal(t, string(models.EventJobQueued), resp.Events[0].Type)
	require.EqualValues(t, 1, resp.Events[0].Data["items"])
	require.Len(t, resp.Documents, 1)
	require.Equal(t, "hello", resp.Documents[0].Text)
	require.NotNil(t, resp.CompletedAt)
	require.Equal(t, now, *resp.CompletedAt)
}

func TestToJobResponsePending(t *testing.T) {
	jobID := uuid.Must(uuid.NewRandom())
	input, err := msgpack.Marshal(types.JobParams{ID: jobID.String(), Task: "ocr"})
	require.NoError(t, err)

	resp := toJobResponse(&models.Job{ID: jobID, Status: models.JobStatusQueued, Input: input})
	require.Equal(t, string(models.JobStatusQueued), resp.Status)
	require.Nil(t, resp.CompletedAt)
	require.Empty(t, resp.Documents)
}

func TestToDocumentResponseJobID(t *testing.T) {
	doc := &models.Document{ID: uuid.Must(uuid.NewRandom()), Task: "markdown", ResolutionMode: "Base"}
	resp := toDocumentResponse(doc)
	require.Empty(t, resp.JobID)

	doc.JobID = uuid.Must(uuid.NewRandom())
	resp = toDocumentResponse(doc)
	require.Equal(t, doc.JobID.String(), resp.JobID)
}
