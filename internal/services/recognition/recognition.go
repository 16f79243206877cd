// Package recognition turns submitted page images into documents. It owns
// the batch job lifecycle from submission through the queue to the final
// webhook, and exposes the same per-page pipeline to the synchronous
// endpoints.
package recognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/glyphworks/ocr-server/internal/app"
	"github.com/glyphworks/ocr-server/internal/config"
	"github.com/glyphworks/ocr-server/internal/db/models"
	"github.com/glyphworks/ocr-server/internal/mq"
	"github.com/glyphworks/ocr-server/internal/ocr/prompt"
	"github.com/glyphworks/ocr-server/internal/types"
	"github.com/glyphworks/ocr-server/internal/utils/webhookutil"
	"github.com/glyphworks/ocr-server/pkg/logger"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

const MaxWebhookAttempts = 3

// NewJobRequest persists a batch submission and hands it to the processor
// through the request topic. It returns the job id clients poll and stream
// against.
func NewJobRequest(app *app.App, request *types.JobParamsRequest) (string, error) {
	if len(request.Items) == 0 {
		return "", ErrNoItems
	}

	task := taskOrDefault(request.Task)
	if !prompt.IsKnown(task) {
		return "", fmt.Errorf("%w %q", ErrUnknownTask, task)
	}

	id := uuid.Must(uuid.NewRandom())
	params := &types.JobParams{
		ID:             id.String(),
		Items:          request.Items,
		Task:           task,
		CustomPrompt:   request.CustomPrompt,
		ResolutionMode: modeOrDefault(request.ResolutionMode),
		ShowLabels:     request.ShowLabels,
		WebhookUrl:     request.WebhookUrl,
	}

	input, err := msgpack.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job input: %w", err)
	}

	ctx := app.Context()

	job := models.NewJob(input)
	job.ID = id
	if _, err := app.JobRepository.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	createEvent(ctx, app, id, models.EventJobQueued, map[string]interface{}{
		"items": len(params.Items),
		"task":  params.Task,
	})

	if err := app.MQ().Publish(ctx, config.DefaultOcrTopic, input); err != nil {
		// The row exists but the processor will never see it.
		if uerr := app.JobRepository.UpdateJobStatusByID(ctx, params.ID, models.JobStatusFailed); uerr != nil {
			logger.Error("Failed to mark unpublished job failed", "job_id", params.ID, "error", uerr)
		}

		return "", fmt.Errorf("failed to publish job to queue: %w", err)
	}

	return params.ID, nil
}

// RunProcessor consumes the request topic until the app context ends or the
// queue closes. Jobs run one at a time; items inside a job run in submission
// order.
func RunProcessor(app *app.App) error {
	ctx := app.Context()
	queue := app.MQ()

	for {
		message, err := queue.Receive(ctx, config.DefaultOcrTopic)
		if err != nil {
			if errors.Is(err, mq.ErrQueueClosed) || errors.Is(err, mq.ErrTopicClosed) || errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		}

		data, err := queue.GetMessageData(message)
		if err != nil {
			logger.Error("Failed to read queued message", "error", err)
			continue
		}

		var params types.JobParams
		if err := msgpack.Unmarshal(data, &params); err != nil {
			logger.Error("Failed to parse job request", "error", err)
			continue
		}

		if err := processJob(ctx, app, &params); err != nil {
			logger.Error("Job failed", "job_id", params.ID, "error", err)
		}

		if err := queue.Ack(config.DefaultOcrTopic, message); err != nil {
			logger.Error("Failed to ack job message", "job_id", params.ID, "error", err)
		}
	}
}

// processJob runs every item of one job. A precondition failure, a dead
// runtime or a rejected prompt fails the whole job; once items start, their
// individual failures are recorded per item and the job still completes.
func processJob(ctx context.Context, app *app.App, params *types.JobParams) error {
	jobID, err := uuid.Parse(params.ID)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", params.ID, err)
	}

	job, err := app.JobRepository.GetByID(ctx, params.ID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}

	if job.Status != models.JobStatusQueued {
		return fmt.Errorf("job %s is not in queue: %s", params.ID, job.Status)
	}

	if err := app.JobRepository.UpdateJobStatusByID(ctx, params.ID, models.JobStatusProgress); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	createEvent(ctx, app, jobID, models.EventJobStarted, map[string]interface{}{
		"items": len(params.Items),
	})

	eng := app.Engine()
	if eng == nil {
		return failJob(ctx, app, params, jobID, ErrEngineUnavailable)
	}

	if params.Task == prompt.TaskCustom {
		if err := screenPrompt(ctx, app, params.CustomPrompt); err != nil {
			return failJob(ctx, app, params, jobID, err)
		}
	}

	if err := eng.Load(ctx); err != nil {
		return failJob(ctx, app, params, jobID, err)
	}

	topic := StreamTopic(params.ID)
	outputs := make([]types.DocumentOutput, 0, len(params.Items))
	failed := 0

	for i, item := range params.Items {
		output := processItem(ctx, app, params, jobID, i, item)
		if output.Error != "" {
			failed++
		}

		outputs = append(outputs, output)
		publishOutput(ctx, app, topic, output)
	}

	if err := app.JobRepository.CompleteJobByID(ctx, params.ID, models.JobStatusCompleted); err != nil {
		logger.Error("Failed to mark job completed", "job_id", params.ID, "error", err)
	}

	createEvent(ctx, app, jobID, models.EventJobCompleted, map[string]interface{}{
		"documents": len(outputs),
		"failed":    failed,
	})

	publishEnd(ctx, app, topic)

	if params.WebhookUrl != "" {
		notifyWebhook(ctx, app, params, string(models.JobStatusCompleted), outputs)
	}

	return nil
}

// failJob records a whole-job failure, closes the job's stream and fires the
// webhook with no documents. It returns cause so callers can hand the error
// straight up.
func failJob(ctx context.Context, app *app.App, params *types.JobParams, jobID uuid.UUID, cause error) error {
	if err := app.JobRepository.CompleteJobByID(ctx, params.ID, models.JobStatusFailed); err != nil {
		logger.Error("Failed to mark job failed", "job_id", params.ID, "error", err)
	}

	createEvent(ctx, app, jobID, models.EventJobFailed, map[string]interface{}{
		"error": cause.Error(),
	})

	publishEnd(ctx, app, StreamTopic(params.ID))

	if params.WebhookUrl != "" {
		notifyWebhook(ctx, app, params, string(models.JobStatusFailed), nil)
	}

	return cause
}

func publishOutput(ctx context.Context, app *app.App, topic string, output types.DocumentOutput) {
	frame := types.StreamFrame{Type: types.StreamFrameOutput, Data: output}
	if output.Error != "" {
		frame.Type = types.StreamFrameError
	}

	data, err := msgpack.Marshal(&frame)
	if err != nil {
		logger.Error("Failed to marshal stream frame", "job_id", output.JobID, "error", err)
		return
	}

	if err := app.MQ().Publish(ctx, topic, data); err != nil {
		logger.Error("Failed to publish stream frame", "job_id", output.JobID, "error", err)
	}
}

func publishEnd(ctx context.Context, app *app.App, topic string) {
	if err := app.MQ().Publish(ctx, topic, []byte("END")); err != nil {
		logger.Error("Failed to publish end of stream", "topic", topic, "error", err)
	}
}

// notifyWebhook delivers the job's terminal state. Inline image data is not
// echoed back in the input.
func notifyWebhook(ctx context.Context, app *app.App, params *types.JobParams, status string, outputs []types.DocumentOutput) {
	items := make([]types.JobItem, len(params.Items))
	for i, item := range params.Items {
		items[i] = types.JobItem{FileURL: item.FileURL, Filename: item.Filename}
	}

	payload := types.JobWebhookPayload{
		ID:        params.ID,
		Status:    status,
		Documents: outputs,
		Input: &types.JobParamsRequest{
			Items:          items,
			Task:           params.Task,
			CustomPrompt:   params.CustomPrompt,
			ResolutionMode: params.ResolutionMode,
			ShowLabels:     params.ShowLabels,
			WebhookUrl:     params.WebhookUrl,
		},
	}

	if err := webhookutil.InvokeWithRetries(ctx, params.WebhookUrl, payload, MaxWebhookAttempts); err != nil {
		logger.Error("Failed to deliver job webhook", "job_id", params.ID, "url", params.WebhookUrl, "error", err)
	}
}

func createEvent(ctx context.Context, app *app.App, jobID uuid.UUID, eventType models.EventType, data interface{}) {
	if _, err := app.EventRepository.Create(ctx, models.NewEvent(jobID, eventType, data)); err != nil {
		logger.Error("Failed to record job event", "job_id", jobID.String(), "type", string(eventType), "error", err)
	}
}

// StreamTopic is where a job's progress frames land. The SSE endpoint
// consumes it.
func StreamTopic(id string) string {
	return config.DefaultStreamsTopic + "/" + id
}
