package config

import "errors"

const (
	DefaultHomeDir = "~/.glyphworks"
	DefaultModelID = "deepseek-ai/DeepSeek-OCR"

	DefaultPort    = 8711
	DefaultTcpPort = 8712

	// Seconds. Covers model loads, which can take minutes on cold caches.
	DefaultRuntimeTimeout = 600
)

var (
	DefaultOcrTopic     = "glyphworks/ocr/requests"
	DefaultStreamsTopic = "glyphworks/streams"
)

var (
	ErrHomeDirNotSet       = errors.New("glyph home directory is not set")
	ErrHomeDirExpandFailed = errors.New("failed to expand glyph home directory")
)
