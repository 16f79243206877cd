package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/glyphworks/ocr-server/internal/db"
	"github.com/glyphworks/ocr-server/internal/db/drivers"
	"github.com/glyphworks/ocr-server/internal/db/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/vmihailenco/msgpack/v5"
)

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	driver, err := drivers.NewSQLiteDriver(context.Background(), "file:"+filepath.Join(t.TempDir(), "glyph.db"))
	require.NoError(t, err)

	bunDB := driver.GetDB()
	require.NoError(t, db.CreateTables(context.Background(), bunDB))
	t.Cleanup(func() { bunDB.Close() })

	return bunDB
}

func TestJobLifecycle(t *testing.T) {
	bunDB := setupDB(t)
	ctx := context.Background()

	jobs := NewJobRepository(bunDB)
	events := NewEventRepository(bunDB)
	docs := NewDocumentRepository(bunDB)

	input, err := msgpack.Marshal(map[string]string{"task": "markdown"})
	require.NoError(t, err)

	job, err := jobs.Create(ctx, models.NewJob(input))
	require.NoError(t, err)
	require.Equal(t, models.JobStatusQueued, job.Status)
	require.False(t, job.CreatedAt.IsZero())
	require.True(t, job.CompletedAt.IsZero())

	id := job.ID.String()
	require.NoError(t, jobs.UpdateJobStatusByID(ctx, id, models.JobStatusProgress))

	_, err = events.Create(ctx, models.NewEvent(job.ID, models.EventJobStarted, map[string]string{"id": id}))
	require.NoError(t, err)

	_, err = docs.Create(ctx, &models.Document{
		ID:             uuid.Must(uuid.NewRandom()),
		JobID:          job.ID,
		Filename:       "page-1.png",
		Task:           "markdown",
		ResolutionMode: "Base",
		CleanText:      "# Title",
	})
	require.NoError(t, err)

	require.NoError(t, jobs.CompleteJobByID(ctx, id, models.JobStatusCompleted))

	full, err := jobs.GetFullByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCompleted, full.Status)
	require.False(t, full.CompletedAt.IsZero())
	require.Equal(t, input, full.Input)
	require.Len(t, full.Events, 1)
	require.Equal(t, models.EventJobStarted, full.Events[0].Type)
	require.Len(t, full.Documents, 1)
	require.Equal(t, "page-1.png", full.Documents[0].Filename)

	require.NoError(t, jobs.DeleteByID(ctx, id))
	_, err = jobs.GetByID(ctx, id)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSyncDocumentHasNoJob(t *testing.T) {
	bunDB := setupDB(t)
	ctx := context.Background()
	docs := NewDocumentRepository(bunDB)

	doc, err := docs.Create(ctx, &models.Document{
		ID:             uuid.Must(uuid.NewRandom()),
		Task:           "ocr",
		ResolutionMode: "Gundam (dynamic resolution)",
		RawText:        "plain transcript",
		HasGrounding:   true,
		BoxCount:       1,
		InferenceTime:  1.25,
		NumTokens:      4,
	})
	require.NoError(t, err)
	require.Equal(t, uuid.Nil, doc.JobID)

	got, err := docs.GetByID(ctx, doc.ID.String())
	require.NoError(t, err)
	require.Equal(t, uuid.Nil, got.JobID)
	require.Equal(t, 1.25, got.InferenceTime)
	require.Equal(t, 4, got.NumTokens)

	list, err := docs.ListByJobID(ctx, doc.ID.String())
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestDocumentListByJobID(t *testing.T) {
	bunDB := setupDB(t)
	ctx := context.Background()

	jobs := NewJobRepository(bunDB)
	docs := NewDocumentRepository(bunDB)

	job, err := jobs.Create(ctx, models.NewJob([]byte("input")))
	require.NoError(t, err)

	for _, name := range []string{"a.png", "b.png"} {
		_, err = docs.Create(ctx, &models.Document{
			ID:             uuid.Must(uuid.NewRandom()),
			JobID:          job.ID,
			Filename:       name,
			Task:           "free",
			ResolutionMode: "Tiny",
		})
		require.NoError(t, err)
	}

	list, err := docs.ListByJobID(ctx, job.ID.String())
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestAPIKeyRevocation(t *testing.T) {
	bunDB := setupDB(t)
	ctx := context.Background()
	keys := NewAPIKeyRepository(bunDB)

	created, err := keys.Create(ctx, models.NewAPIKey("digest-a", "glyp****2345"))
	require.NoError(t, err)
	require.False(t, created.IsRevoked)

	got, err := keys.GetByHash(ctx, "digest-a")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "glyp****2345", got.KeyMask)

	require.NoError(t, keys.RevokeByHash(ctx, "digest-a"))

	got, err = keys.GetByHash(ctx, "digest-a")
	require.NoError(t, err)
	require.True(t, got.IsRevoked)

	list, err := keys.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = keys.GetByHash(ctx, "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestWithTxRollsBack(t *testing.T) {
	bunDB := setupDB(t)
	ctx := context.Background()
	jobs := NewJobRepository(bunDB)

	err := bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := jobs.WithTx(&tx).Create(ctx, models.NewJob([]byte("input"))); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	count, err := bunDB.NewSelect().Model((*models.Job)(nil)).Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}
