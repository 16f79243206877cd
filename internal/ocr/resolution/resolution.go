// Package resolution maps resolution mode labels to the sizing parameters
// DeepSeek-OCR accepts.
package resolution

import (
	"strings"

	"github.com/glyphworks/ocr-server/pkg/logger"
)

// Params control how the runtime scales and tiles a page before inference.
// ImageSize is the tile size and only differs from BaseSize when CropMode
// is on.
type Params struct {
	BaseSize  int
	ImageSize int
	CropMode  bool
}

// Mode pairs a recognizable label with its sizing parameters.
type Mode struct {
	Name        string
	Description string
	Params      Params
}

// Ordered. Resolve scans top to bottom, so earlier names win when a label
// mentions more than one.
var modes = []Mode{
	{Name: "Tiny", Description: "512x512, fastest", Params: Params{BaseSize: 512, ImageSize: 512}},
	{Name: "Small", Description: "640x640, fast", Params: Params{BaseSize: 640, ImageSize: 640}},
	{Name: "Base", Description: "1024x1024, balanced", Params: Params{BaseSize: 1024, ImageSize: 1024}},
	{Name: "Large", Description: "1280x1280, most accurate", Params: Params{BaseSize: 1280, ImageSize: 1280}},
	{Name: "Gundam", Description: "1024 global view with 640 tiles, for dense documents", Params: Params{BaseSize: 1024, ImageSize: 640, CropMode: true}},
}

// DefaultParams is what unrecognized labels resolve to. It matches Base.
var DefaultParams = Params{BaseSize: 1024, ImageSize: 1024}

// Resolve picks sizing parameters for a mode label. A label matches a mode
// when it contains the mode's name anywhere, case sensitively, and the first
// match in mode order wins. Unrecognized labels resolve to Base.
func Resolve(label string) Params {
	for _, m := range modes {
		if strings.Contains(label, m.Name) {
			return m.Params
		}
	}

	logger.Warn("Unknown resolution mode, using Base", "mode", label)
	return DefaultParams
}

// Modes lists the supported resolution modes in matching order.
func Modes() []Mode {
	out := make([]Mode, len(modes))
	copy(out, modes)
	return out
}
