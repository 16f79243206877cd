// Package engine orchestrates DeepSeek-OCR inference against a model
// runtime, tracking the model lifecycle and staging page images on disk for
// the runtime to read.
package engine

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/glyphworks/ocr-server/internal/ocr/resolution"
	"github.com/glyphworks/ocr-server/pkg/logger"
)

const stagingQuality = 95

// State is the model lifecycle state.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
)

// InferArgs is what a runtime needs to run one page of inference. ImagePath
// points at a staged JPEG and OutputPath at a scratch directory the runtime
// may write intermediates to; both live on a filesystem shared with the
// runtime and are released by the engine afterwards.
type InferArgs struct {
	Prompt     string
	ImagePath  string
	OutputPath string
	BaseSize   int
	ImageSize  int
	CropMode   bool
}

// Runtime is a backend that can hold model weights and run inference, such
// as the TCP client for the Python sidecar.
type Runtime interface {
	Load(ctx context.Context) error
	Unload(ctx context.Context) error
	Infer(ctx context.Context, args InferArgs) (string, error)
}

// InferenceResult is the outcome of one page of inference. Elapsed is wall
// clock seconds spent inside the runtime and NumTokens a rough estimate of
// generated tokens.
type InferenceResult struct {
	Text      string
	Elapsed   float64
	NumTokens int
}

// Engine serializes model lifecycle changes and inference. Inference is
// strictly sequential; the runtime holds a single copy of the model.
type Engine struct {
	runtime Runtime
	tempDir string

	mu      sync.Mutex
	stateMu sync.RWMutex
	state   State
}

func NewEngine(runtime Runtime, tempDir string) *Engine {
	return &Engine{
		runtime: runtime,
		tempDir: tempDir,
		state:   StateUnloaded,
	}
}

// State reports the current lifecycle state without blocking on in-flight
// loads or inference.
func (e *Engine) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

// Load brings the model into the ready state. Loading an already loaded
// model is a no-op.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State() == StateReady {
		logger.Info("Model already loaded, skipping")
		return nil
	}

	e.setState(StateLoading)
	logger.Info("Loading model")

	if err := e.runtime.Load(ctx); err != nil {
		e.setState(StateUnloaded)
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	e.setState(StateReady)
	logger.Info("Model loaded")

	return nil
}

// Unload releases the model. Unloading a model that is not loaded is a
// no-op.
func (e *Engine) Unload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State() != StateReady {
		logger.Info("Model not loaded, nothing to unload")
		return nil
	}

	if err := e.runtime.Unload(ctx); err != nil {
		return fmt.Errorf("failed to unload model: %w", err)
	}

	e.setState(StateUnloaded)
	logger.Info("Model unloaded")

	return nil
}

// Infer runs one page through the model. The image is staged as a JPEG in
// the engine's temp directory together with a scratch output directory, and
// both are removed before Infer returns, whether inference succeeds or not.
func (e *Engine) Infer(ctx context.Context, img image.Image, prompt string, params resolution.Params) (InferenceResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.infer(ctx, img, prompt, params)
}

// infer assumes e.mu is held.
func (e *Engine) infer(ctx context.Context, img image.Image, prompt string, params resolution.Params) (InferenceResult, error) {
	if e.State() != StateReady {
		return InferenceResult{}, ErrModelNotLoaded
	}

	imagePath, outputDir, err := e.stage(img)
	if err != nil {
		return InferenceResult{}, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}
	defer e.release(imagePath, outputDir)

	logger.Debug("Running inference",
		"prompt", prompt, "image", imagePath,
		"base_size", params.BaseSize, "image_size", params.ImageSize, "crop_mode", params.CropMode)

	start := time.Now()
	text, err := e.runtime.Infer(ctx, InferArgs{
		Prompt:     prompt,
		ImagePath:  imagePath,
		OutputPath: outputDir,
		BaseSize:   params.BaseSize,
		ImageSize:  params.ImageSize,
		CropMode:   params.CropMode,
	})
	if err != nil {
		return InferenceResult{}, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}

	elapsed := time.Since(start).Seconds()
	result := InferenceResult{
		Text:      text,
		Elapsed:   elapsed,
		NumTokens: utf8.RuneCountInString(text) / 4,
	}

	logger.Info("Inference finished", "elapsed", elapsed, "tokens", result.NumTokens)

	return result, nil
}

// InferBatch runs inference sequentially over images[i] with prompts[i].
// A length mismatch fails the whole batch before any model work; after
// that, a failed page yields a zero-value result in its slot and the batch
// carries on. Results keep input order.
func (e *Engine) InferBatch(ctx context.Context, images []image.Image, prompts []string, params resolution.Params) ([]InferenceResult, error) {
	if len(images) != len(prompts) {
		return nil, fmt.Errorf("%w: %d images, %d prompts", ErrArgumentMismatch, len(images), len(prompts))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	logger.Info("Starting batch inference", "pages", len(images))
	start := time.Now()

	results := make([]InferenceResult, 0, len(images))
	for i, img := range images {
		res, err := e.infer(ctx, img, prompts[i], params)
		if err != nil {
			logger.Error("Batch page failed", "page", i+1, "error", err)
			res = InferenceResult{}
		}

		results = append(results, res)
	}

	logger.Info("Batch inference finished", "pages", len(images), "elapsed", time.Since(start).Seconds())

	return results, nil
}

// stage writes img as a JPEG next to a fresh scratch directory, both inside
// the engine's temp directory.
func (e *Engine) stage(img image.Image) (string, string, error) {
	f, err := os.CreateTemp(e.tempDir, "page-*.jpg")
	if err != nil {
		return "", "", fmt.Errorf("failed to stage image: %w", err)
	}

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: stagingQuality}); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", "", fmt.Errorf("failed to stage image: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", "", fmt.Errorf("failed to stage image: %w", err)
	}

	outputDir, err := os.MkdirTemp(e.tempDir, "scratch-")
	if err != nil {
		os.Remove(f.Name())
		return "", "", fmt.Errorf("failed to create scratch directory: %w", err)
	}

	return f.Name(), outputDir, nil
}

// release removes staged files. Failures are logged and swallowed so they
// never mask an inference result.
func (e *Engine) release(imagePath string, outputDir string) {
	if err := os.Remove(imagePath); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove staged image", "path", imagePath, "error", err)
	}

	if err := os.RemoveAll(outputDir); err != nil {
		logger.Warn("Failed to remove scratch directory", "path", outputDir, "error", err)
	}
}
