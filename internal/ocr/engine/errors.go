package engine

import "errors"

var (
	// ErrModelLoad wraps failures while loading model weights.
	ErrModelLoad = errors.New("model load failed")

	// ErrModelNotLoaded is returned when inference is requested before the
	// model reached the ready state.
	ErrModelNotLoaded = errors.New("model is not loaded")

	// ErrInferenceFailed wraps every failure between accepting an image and
	// producing a transcript.
	ErrInferenceFailed = errors.New("inference failed")

	// ErrArgumentMismatch is returned by batch inference when images and
	// prompts differ in length.
	ErrArgumentMismatch = errors.New("images and prompts must have the same length")
)
