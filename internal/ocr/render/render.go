// Package render draws grounded bounding boxes onto page images.
package render

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/glyphworks/ocr-server/internal/ocr/markup"
)

// DefaultStrokeWidth is used when the caller passes a non-positive width.
const DefaultStrokeWidth = 3

const (
	maxLabelRunes = 20
	labelGap      = 5
)

// Box colors, cycled by box index.
var palette = []color.NRGBA{
	{255, 0, 0, 255},
	{0, 255, 0, 255},
	{0, 0, 255, 255},
	{255, 255, 0, 255},
	{255, 0, 255, 255},
	{0, 255, 255, 255},
	{255, 128, 0, 255},
	{128, 0, 255, 255},
}

var white = color.NRGBA{255, 255, 255, 255}

// Render draws boxes onto a copy of img, leaving the input untouched. With
// no boxes the copy comes back unmodified. Box coordinates are the
// normalized 0..1 values produced by the markup parser.
func Render(img image.Image, boxes []markup.BoundingBox, showLabels bool, strokeWidth int) *image.NRGBA {
	out := imaging.Clone(img)
	if len(boxes) == 0 {
		return out
	}

	if strokeWidth <= 0 {
		strokeWidth = DefaultStrokeWidth
	}

	w := out.Bounds().Dx()
	h := out.Bounds().Dy()

	var face font.Face
	var size int
	if showLabels {
		size = fontSize(w, h)
		face = loadFace(size)
	}

	for i, box := range boxes {
		c := palette[i%len(palette)]
		x0, y0, x1, y1 := toPixels(box, w, h)
		drawRect(out, x0, y0, x1, y1, c, strokeWidth)

		if showLabels && box.Label != "" {
			drawLabel(out, face, box.Label, x0, y0, size, c)
		}
	}

	return out
}

func fontSize(w, h int) int {
	size := min(w, h) / 50
	if size < 12 {
		size = 12
	}

	return size
}

func toPixels(box markup.BoundingBox, w, h int) (int, int, int, int) {
	x0 := int(box.X0 * float64(w))
	y0 := int(box.Y0 * float64(h))
	x1 := int(box.X1 * float64(w))
	y1 := int(box.Y1 * float64(h))
	return x0, y0, x1, y1
}

func truncateLabel(label string) string {
	runes := []rune(label)
	if len(runes) <= maxLabelRunes {
		return label
	}

	return string(runes[:maxLabelRunes]) + "..."
}

func drawLabel(img *image.NRGBA, face font.Face, label string, x, y, size int, c color.NRGBA) {
	if face == nil {
		return
	}

	label = truncateLabel(label)

	top := y - size - labelGap
	if top < 0 {
		top = 0
	}

	metrics := face.Metrics()
	textH := (metrics.Ascent + metrics.Descent).Ceil()
	textW := font.MeasureString(face, label).Ceil()

	fillRect(img, x, top, x+textW, top+textH, c)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(white),
		Face: face,
		Dot:  fixed.P(x, top+metrics.Ascent.Ceil()),
	}
	d.DrawString(label)
}

func drawRect(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func fillRect(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	for y := y0; y < y1; y++ {
		drawHLine(img, y, x0, x1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}

	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}

	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
