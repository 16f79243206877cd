package render

import (
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/glyphworks/ocr-server/pkg/logger"
)

// Common system font locations, checked in order.
var fontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/Library/Fonts/Arial.ttf",
	"C:\\Windows\\Fonts\\arial.ttf",
}

var (
	fontOnce   sync.Once
	systemFont *sfnt.Font
)

// loadFace returns a label face at the requested size, falling back to the
// builtin fixed-size bitmap font when no system font can be loaded.
func loadFace(size int) font.Face {
	fontOnce.Do(func() {
		for _, path := range fontPaths {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}

			f, err := opentype.Parse(data)
			if err != nil {
				continue
			}

			systemFont = f
			return
		}

		logger.Warn("No usable system font found, box labels will use the builtin bitmap font")
	})

	if systemFont == nil {
		return basicfont.Face7x13
	}

	face, err := opentype.NewFace(systemFont, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		logger.Warn("Failed to build font face, box labels will use the builtin bitmap font", "error", err)
		return basicfont.Face7x13
	}

	return face
}
