package types

import "github.com/glyphworks/ocr-server/internal/ocr/markup"

// OCRParamsRequest carries the knobs shared by every recognition
// request, whether it arrives as multipart form fields, JSON or
// msgpack.
type OCRParamsRequest struct {
	Task           string `json:"task" msgpack:"task" form:"task"`
	CustomPrompt   string `json:"custom_prompt,omitempty" msgpack:"custom_prompt,omitempty" form:"custom_prompt"`
	ResolutionMode string `json:"resolution_mode" msgpack:"resolution_mode" form:"resolution_mode"`
	ShowLabels     bool   `json:"show_labels" msgpack:"show_labels" form:"show_labels"`
	SaveArtifacts  bool   `json:"save_artifacts" msgpack:"save_artifacts" form:"save_artifacts"`
}

// OCRBase64Request is the body of POST /api/v1/ocr/base64.
type OCRBase64Request struct {
	OCRParamsRequest `msgpack:",inline"`

	ImageBase64 string `json:"image_base64" msgpack:"image_base64" form:"image_base64"`
	Filename    string `json:"filename,omitempty" msgpack:"filename,omitempty" form:"filename"`
}

// OCRResult is the data payload of a successful recognition response.
type OCRResult struct {
	Text             string               `json:"text" msgpack:"text"`
	RawText          string               `json:"raw_text" msgpack:"raw_text"`
	BoundingBoxes    []markup.BoundingBox `json:"bounding_boxes" msgpack:"bounding_boxes"`
	BoundingBoxCount int                  `json:"bounding_box_count" msgpack:"bounding_box_count"`
	InferenceTime    float64              `json:"inference_time" msgpack:"inference_time"`
	TotalTime        float64              `json:"total_time" msgpack:"total_time"`
	NumTokens        int                  `json:"num_tokens" msgpack:"num_tokens"`
	Task             string               `json:"task" msgpack:"task"`
	ResolutionMode   string               `json:"resolution_mode" msgpack:"resolution_mode"`
	TextURL          string               `json:"text_url,omitempty" msgpack:"text_url,omitempty"`
	OverlayURL       string               `json:"overlay_url,omitempty" msgpack:"overlay_url,omitempty"`
	DocumentID       string               `json:"document_id,omitempty" msgpack:"document_id,omitempty"`
}

// OCRResponse is the envelope every recognition endpoint answers with.
type OCRResponse struct {
	Success bool       `json:"success" msgpack:"success"`
	Message string     `json:"message,omitempty" msgpack:"message,omitempty"`
	Error   string     `json:"error,omitempty" msgpack:"error,omitempty"`
	Data    *OCRResult `json:"data,omitempty" msgpack:"data,omitempty"`
}

// JobItem is one page of a batch job. Exactly one of ImageBase64 or
// FileURL supplies the page image.
type JobItem struct {
	ImageBase64 string `json:"image_base64,omitempty" msgpack:"image_base64,omitempty"`
	FileURL     string `json:"file_url,omitempty" msgpack:"file_url,omitempty"`
	Filename    string `json:"filename,omitempty" msgpack:"filename,omitempty"`
}

// JobParamsRequest is the client's batch submission. No ID field; the
// server assigns one.
type JobParamsRequest struct {
	Items          []JobItem `json:"items" msgpack:"items"`
	Task           string    `json:"task" msgpack:"task"`
	CustomPrompt   string    `json:"custom_prompt,omitempty" msgpack:"custom_prompt,omitempty"`
	ResolutionMode string    `json:"resolution_mode" msgpack:"resolution_mode"`
	ShowLabels     bool      `json:"show_labels" msgpack:"show_labels"`
	WebhookUrl     string    `json:"webhook_url,omitempty" msgpack:"webhook_url,omitempty"`
}

// JobParams is the internal shape with the server-generated ID.
type JobParams struct {
	ID             string    `json:"id" msgpack:"id"`
	Items          []JobItem `json:"items" msgpack:"items"`
	Task           string    `json:"task" msgpack:"task"`
	CustomPrompt   string    `json:"custom_prompt,omitempty" msgpack:"custom_prompt,omitempty"`
	ResolutionMode string    `json:"resolution_mode" msgpack:"resolution_mode"`
	ShowLabels     bool      `json:"show_labels" msgpack:"show_labels"`
	WebhookUrl     string    `json:"webhook_url,omitempty" msgpack:"webhook_url,omitempty"`
}

// StreamFrame is one message on a job's stream topic. The final frame
// of every job is the bare END sentinel instead.
type StreamFrame struct {
	Type string      `json:"type" msgpack:"type"`
	Data interface{} `json:"data" msgpack:"data"`
}

const (
	StreamFrameOutput = "output"
	StreamFrameError  = "error"
)

// DocumentOutput announces one finished page on the stream and in
// webhook payloads.
type DocumentOutput struct {
	JobID      string `json:"job_id" msgpack:"job_id"`
	DocumentID string `json:"document_id,omitempty" msgpack:"document_id,omitempty"`
	Filename   string `json:"filename,omitempty" msgpack:"filename,omitempty"`
	Status     string `json:"status" msgpack:"status"`
	Text       string `json:"text,omitempty" msgpack:"text,omitempty"`
	TextURL    string `json:"text_url,omitempty" msgpack:"text_url,omitempty"`
	OverlayURL string `json:"overlay_url,omitempty" msgpack:"overlay_url,omitempty"`
	Error      string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// JobWebhookPayload is what a finished job POSTs to its webhook URL.
type JobWebhookPayload struct {
	ID        string            `json:"id" msgpack:"id"`
	Status    string            `json:"status" msgpack:"status"`
	Documents []DocumentOutput  `json:"documents" msgpack:"documents"`
	Input     *JobParamsRequest `json:"input,omitempty" msgpack:"input,omitempty"`
}
