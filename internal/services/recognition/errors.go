package recognition

import "errors"

var (
	// ErrNoItems rejects a batch submission without any pages.
	ErrNoItems = errors.New("job has no items")

	// ErrNoImage marks a job item carrying neither inline image data nor
	// a file URL.
	ErrNoImage = errors.New("job item has no image")

	// ErrInvalidImage wraps image bytes that fail validation or do not
	// decode.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInvalidPrompt wraps a built prompt that fails validation.
	ErrInvalidPrompt = errors.New("invalid prompt")

	// ErrUnknownTask rejects a submission naming a task outside the
	// supported set.
	ErrUnknownTask = errors.New("unknown task")

	// ErrEngineUnavailable means the model runtime could not be reached
	// when the server started, so no inference can run.
	ErrEngineUnavailable = errors.New("model runtime is not available")

	// ErrPromptRejected wraps the safety verdict for a refused custom
	// prompt.
	ErrPromptRejected = errors.New("custom prompt rejected")
)
