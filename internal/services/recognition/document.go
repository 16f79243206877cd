package recognition

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/glyphworks/ocr-server/internal/app"
	"github.com/glyphworks/ocr-server/internal/db/models"
	"github.com/glyphworks/ocr-server/internal/ocr/markup"
	"github.com/glyphworks/ocr-server/internal/ocr/prompt"
	"github.com/glyphworks/ocr-server/internal/ocr/render"
	"github.com/glyphworks/ocr-server/internal/ocr/resolution"
	"github.com/glyphworks/ocr-server/internal/types"
	"github.com/glyphworks/ocr-server/internal/utils/imageutil"
	"github.com/glyphworks/ocr-server/pkg/logger"
	"github.com/google/uuid"
)

const (
	overlayQuality        = 95
	defaultResolutionMode = "Base"

	fetchTimeout = time.Minute
)

// pageParams collects everything one inference needs beyond the image
// itself. JobID is uuid.Nil for synchronous requests.
type pageParams struct {
	Task           string
	CustomPrompt   string
	ResolutionMode string
	ShowLabels     bool
	SaveArtifacts  bool
	Filename       string
	JobID          uuid.UUID
}

// ProcessImage runs one page through the recognition pipeline for the
// synchronous endpoints. Custom prompts are screened before any model work.
func ProcessImage(ctx context.Context, app *app.App, imageData []byte, filename string, request *types.OCRParamsRequest) (*types.OCRResult, error) {
	task := taskOrDefault(request.Task)

	if task == prompt.TaskCustom {
		if err := screenPrompt(ctx, app, request.CustomPrompt); err != nil {
			return nil, err
		}
	}

	return processDocument(ctx, app, imageData, pageParams{
		Task:           task,
		CustomPrompt:   request.CustomPrompt,
		ResolutionMode: modeOrDefault(request.ResolutionMode),
		ShowLabels:     request.ShowLabels,
		SaveArtifacts:  request.SaveArtifacts,
		Filename:       filename,
		JobID:          uuid.Nil,
	})
}

// processItem runs one page of a batch job. Failures never propagate; a
// failed page gets a placeholder document, an ITEM_FAILED event and an error
// output so the job can carry on with its remaining pages.
func processItem(ctx context.Context, app *app.App, params *types.JobParams, jobID uuid.UUID, index int, item types.JobItem) types.DocumentOutput {
	filename := item.Filename
	if filename == "" {
		filename = fmt.Sprintf("page-%d", index+1)
	}

	imageData, err := itemImage(ctx, item)
	if err == nil {
		var result *types.OCRResult
		result, err = processDocument(ctx, app, imageData, pageParams{
			Task:           params.Task,
			CustomPrompt:   params.CustomPrompt,
			ResolutionMode: params.ResolutionMode,
			ShowLabels:     params.ShowLabels,
			SaveArtifacts:  true,
			Filename:       filename,
			JobID:          jobID,
		})
		if err == nil {
			createEvent(ctx, app, jobID, models.EventDocumentCreated, map[string]interface{}{
				"document_id": result.DocumentID,
				"filename":    filename,
			})

			return types.DocumentOutput{
				JobID:      params.ID,
				DocumentID: result.DocumentID,
				Filename:   filename,
				Status:     string(models.JobStatusCompleted),
				Text:       result.Text,
				TextURL:    result.TextURL,
				OverlayURL: result.OverlayURL,
			}
		}
	}

	logger.Error("Job item failed", "job_id", params.ID, "filename", filename, "error", err)

	// A placeholder row keeps the page's slot in the job record.
	placeholder := &models.Document{
		ID:             uuid.Must(uuid.NewRandom()),
		JobID:          jobID,
		Filename:       filename,
		Task:           params.Task,
		ResolutionMode: params.ResolutionMode,
	}
	if _, derr := app.DocumentRepository.Create(ctx, placeholder); derr != nil {
		logger.Error("Failed to persist placeholder document", "job_id", params.ID, "error", derr)
	}

	createEvent(ctx, app, jobID, models.EventItemFailed, map[string]interface{}{
		"filename": filename,
		"error":    err.Error(),
	})

	return types.DocumentOutput{
		JobID:      params.ID,
		DocumentID: placeholder.ID.String(),
		Filename:   filename,
		Status:     string(models.JobStatusFailed),
		Error:      err.Error(),
	}
}

// processDocument is the pipeline both entry points share: validate and
// decode the image, build the prompt, run inference, parse the markup,
// store artifacts and persist the document row. A failed document insert
// does not discard the result; the caller still gets the recognized text,
// just without a document id.
func processDocument(ctx context.Context, app *app.App, imageData []byte, page pageParams) (*types.OCRResult, error) {
	started := time.Now()

	if err := imageutil.Validate(imageData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	img, _, err := imageutil.Decode(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	built := prompt.Build(page.Task, page.CustomPrompt)
	if err := prompt.Validate(built); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrompt, err)
	}

	eng := app.Engine()
	if eng == nil {
		return nil, ErrEngineUnavailable
	}

	if err := eng.Load(ctx); err != nil {
		return nil, err
	}

	inference, err := eng.Infer(ctx, img, built, resolution.Resolve(page.ResolutionMode))
	if err != nil {
		return nil, err
	}

	parsed := markup.Parse(inference.Text)

	result := &types.OCRResult{
		Text:             parsed.CleanText,
		RawText:          parsed.RawText,
		BoundingBoxes:    parsed.Boxes,
		BoundingBoxCount: len(parsed.Boxes),
		InferenceTime:    inference.Elapsed,
		NumTokens:        inference.NumTokens,
		Task:             page.Task,
		ResolutionMode:   page.ResolutionMode,
	}

	if page.SaveArtifacts {
		result.TextURL, result.OverlayURL = uploadArtifacts(app, img, parsed, page.ShowLabels)
	}

	doc := &models.Document{
		ID:             uuid.Must(uuid.NewRandom()),
		JobID:          page.JobID,
		Filename:       page.Filename,
		Task:           page.Task,
		ResolutionMode: page.ResolutionMode,
		CleanText:      parsed.CleanText,
		RawText:        parsed.RawText,
		HasGrounding:   parsed.HasGrounding,
		BoxCount:       len(parsed.Boxes),
		InferenceTime:  inference.Elapsed,
		NumTokens:      inference.NumTokens,
		TextURL:        result.TextURL,
		OverlayURL:     result.OverlayURL,
	}
	if _, err := app.DocumentRepository.Create(ctx, doc); err != nil {
		logger.Error("Failed to persist document", "filename", page.Filename, "error", err)
	} else {
		result.DocumentID = doc.ID.String()
	}

	result.TotalTime = time.Since(started).Seconds()

	return result, nil
}

// screenPrompt runs a custom prompt through the safety filter when one is
// configured. A filter transport error lets the prompt through; an explicit
// rejection does not.
func screenPrompt(ctx context.Context, app *app.App, customPrompt string) error {
	if app.SafetyFilter == nil {
		return nil
	}

	verdict, err := app.SafetyFilter.EvaluatePrompt(ctx, customPrompt)
	if err != nil {
		logger.Warn("Prompt safety check unavailable, continuing", "error", err)
		return nil
	}

	if !verdict.Accepted {
		return fmt.Errorf("%w: %s", ErrPromptRejected, verdict.Reason)
	}

	return nil
}

// uploadArtifacts stores the markdown transcript and the box overlay,
// returning their URLs. Either URL is empty when that artifact could not be
// produced or stored.
func uploadArtifacts(app *app.App, img image.Image, parsed markup.Result, showLabels bool) (string, string) {
	uploader := app.Uploader()
	if uploader == nil {
		return "", ""
	}

	var textURL, overlayURL string

	if parsed.CleanText != "" {
		urlc := make(chan string, 1)
		uploader.UploadBytes([]byte(parsed.CleanText), ".md", false, urlc)
		textURL = <-urlc
	}

	if len(parsed.Boxes) > 0 {
		overlay := render.Render(img, parsed.Boxes, showLabels, 0)
		encoded, err := imageutil.EncodeJPEG(overlay, overlayQuality)
		if err != nil {
			logger.Error("Failed to encode overlay", "error", err)
		} else {
			urlc := make(chan string, 1)
			uploader.UploadBytes(encoded, ".jpg", false, urlc)
			overlayURL = <-urlc
		}
	}

	return textURL, overlayURL
}

// itemImage materializes a job item's page image from whichever source it
// carries. Inline data wins when both are set.
func itemImage(ctx context.Context, item types.JobItem) ([]byte, error) {
	switch {
	case item.ImageBase64 != "":
		return DecodeBase64Image(item.ImageBase64)
	case item.FileURL != "":
		return fetchImage(ctx, item.FileURL)
	default:
		return nil, ErrNoImage
	}
}

// DecodeBase64Image decodes a base64 page image, tolerating an optional
// data URL prefix.
func DecodeBase64Image(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "data:") {
		if idx := strings.Index(encoded, ","); idx >= 0 {
			encoded = encoded[idx+1:]
		}
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}

	return data, nil
}

// fetchImage downloads a page image, refusing bodies past the size cap so
// one bad URL cannot balloon a job.
func fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: fetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, imageutil.MaxFileSize+1))
	if err != nil {
		return nil, err
	}

	if len(data) > imageutil.MaxFileSize {
		return nil, fmt.Errorf("image at %s exceeds %d bytes", url, imageutil.MaxFileSize)
	}

	return data, nil
}

func taskOrDefault(task string) string {
	if task == "" {
		return prompt.TaskMarkdown
	}

	return task
}

func modeOrDefault(mode string) string {
	if mode == "" {
		return defaultResolutionMode
	}

	return mode
}
