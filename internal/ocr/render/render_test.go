package render

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/glyphworks/ocr-server/internal/ocr/markup"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = 200
		img.Pix[i+1] = 200
		img.Pix[i+2] = 200
		img.Pix[i+3] = 255
	}

	return img
}

func TestRenderNoBoxesReturnsUntouchedCopy(t *testing.T) {
	src := testImage(40, 30)

	out := Render(src, nil, true, 3)

	require.NotSame(t, src, out)
	require.Equal(t, imaging.Clone(src).Pix, out.Pix)
}

func TestRenderLeavesInputUnmodified(t *testing.T) {
	src := testImage(100, 100)
	boxes := []markup.BoundingBox{{Label: "x", X0: 0.25, Y0: 0.25, X1: 0.75, Y1: 0.75}}

	Render(src, boxes, true, 3)

	require.Equal(t, testImage(100, 100).Pix, src.Pix)
}

func TestRenderDrawsBoxOutline(t *testing.T) {
	src := testImage(100, 100)
	boxes := []markup.BoundingBox{{X0: 0.25, Y0: 0.25, X1: 0.75, Y1: 0.75}}

	out := Render(src, boxes, false, 3)

	red := color.NRGBA{255, 0, 0, 255}
	gray := color.NRGBA{200, 200, 200, 255}

	require.Equal(t, red, out.NRGBAAt(25, 25))
	require.Equal(t, red, out.NRGBAAt(50, 25))
	require.Equal(t, red, out.NRGBAAt(25, 50))
	require.Equal(t, red, out.NRGBAAt(74, 74))
	require.Equal(t, gray, out.NRGBAAt(50, 50))
	require.Equal(t, gray, out.NRGBAAt(10, 10))
}

func TestRenderCyclesPalette(t *testing.T) {
	src := testImage(100, 100)
	boxes := []markup.BoundingBox{
		{X0: 0.25, Y0: 0.25, X1: 0.75, Y1: 0.75},
		{X0: 0.0, Y0: 0.5, X1: 0.25, Y1: 0.75},
	}

	out := Render(src, boxes, false, 3)

	require.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(25, 25))
	require.Equal(t, color.NRGBA{0, 255, 0, 255}, out.NRGBAAt(0, 50))
}

func TestRenderOutOfRangeBoxDoesNotPanic(t *testing.T) {
	src := testImage(50, 50)
	boxes := []markup.BoundingBox{{X0: -0.5, Y0: -0.5, X1: 2.0, Y1: 2.0}}

	require.NotPanics(t, func() {
		Render(src, boxes, true, 3)
	})
}

func TestRenderLabelBackgroundAboveBox(t *testing.T) {
	src := testImage(100, 100)
	boxes := []markup.BoundingBox{{Label: "hi", X0: 0.25, Y0: 0.3125, X1: 0.75, Y1: 0.75}}

	out := Render(src, boxes, true, 3)

	// y0 is pixel 31; with font size 12 the label background starts at
	// row 31-12-5 = 14, well clear of the outline.
	require.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(25, 14))
}

func TestRenderDefaultStrokeWidth(t *testing.T) {
	src := testImage(100, 100)
	boxes := []markup.BoundingBox{{X0: 0.25, Y0: 0.25, X1: 0.75, Y1: 0.75}}

	out := Render(src, boxes, false, 0)

	red := color.NRGBA{255, 0, 0, 255}
	require.Equal(t, red, out.NRGBAAt(50, 25))
	require.Equal(t, red, out.NRGBAAt(50, 27))
	require.Equal(t, color.NRGBA{200, 200, 200, 255}, out.NRGBAAt(50, 28))
}

func TestTruncateLabel(t *testing.T) {
	require.Equal(t, "short", truncateLabel("short"))
	require.Equal(t, strings.Repeat("a", 20), truncateLabel(strings.Repeat("a", 20)))
	require.Equal(t, strings.Repeat("a", 20)+"...", truncateLabel(strings.Repeat("a", 21)))

	long := strings.Repeat("字", 25)
	require.Equal(t, strings.Repeat("字", 20)+"...", truncateLabel(long))
}

func TestFontSize(t *testing.T) {
	require.Equal(t, 12, fontSize(100, 100))
	require.Equal(t, 12, fontSize(640, 480))
	require.Equal(t, 20, fontSize(1200, 1000))
	require.Equal(t, 40, fontSize(3000, 2000))
}
