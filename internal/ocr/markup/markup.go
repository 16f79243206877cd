// Package markup parses the grounding markup DeepSeek-OCR wraps around
// recognized text. A grounded span looks like
//
//	<|ref|>label<|/ref|><|det|>[[x0,y0],[x1,y1]]<|/det|>
//
// with coordinates on a 0-999 grid relative to the page.
package markup

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/glyphworks/ocr-server/pkg/logger"
)

const (
	groundingTag = "<|grounding|>"
	refOpen      = "<|ref|>"
	detOpen      = "<|det|>"

	coordScale = 999.0
)

var (
	spanRe = regexp.MustCompile(`(?s)<\|ref\|>(.*?)<\|/ref\|><\|det\|>(.*?)<\|/det\|>`)

	// Coordinates are parsed strictly rather than evaluated, so anything the
	// model emits outside this shape is dropped.
	coordsRe = regexp.MustCompile(`^\[\s*\[\s*(\d+(?:\.\d+)?)\s*,\s*(\d+(?:\.\d+)?)\s*\]\s*,\s*\[\s*(\d+(?:\.\d+)?)\s*,\s*(\d+(?:\.\d+)?)\s*\]\s*\]$`)
)

// BoundingBox is a grounded span with corner coordinates normalized to the
// 0..1 range.
type BoundingBox struct {
	Label string  `json:"label"`
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
}

// Result holds everything extracted from one raw model transcript.
type Result struct {
	RawText      string
	CleanText    string
	Boxes        []BoundingBox
	HasGrounding bool
}

// Parse extracts grounded bounding boxes from a raw transcript and produces
// a cleaned copy with the markup removed.
func Parse(raw string) Result {
	return Result{
		RawText:      raw,
		CleanText:    CleanText(raw),
		Boxes:        ExtractBoxes(raw),
		HasGrounding: strings.Contains(raw, refOpen) && strings.Contains(raw, detOpen),
	}
}

// ExtractBoxes collects the grounded spans of a raw transcript. Boxes keep
// the order they appear in, duplicates included. Spans whose coordinates do
// not parse are skipped.
func ExtractBoxes(raw string) []BoundingBox {
	var boxes []BoundingBox
	for _, m := range spanRe.FindAllStringSubmatch(raw, -1) {
		box, ok := parseCoords(m[2])
		if !ok {
			logger.Debug("Skipping span with malformed coordinates", "coords", m[2])
			continue
		}

		box.Label = m[1]
		boxes = append(boxes, box)
	}

	return boxes
}

// CleanText replaces each well-formed span with its label and strips the
// grounding tag. Labels of spans with malformed coordinates still show up;
// orphaned ref or det literals are left alone.
func CleanText(raw string) string {
	clean := spanRe.ReplaceAllString(raw, "$1")
	clean = strings.ReplaceAll(clean, groundingTag, "")
	return strings.TrimSpace(clean)
}

func parseCoords(s string) (BoundingBox, bool) {
	m := coordsRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return BoundingBox{}, false
	}

	var vals [4]float64
	for i, field := range m[1:] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return BoundingBox{}, false
		}

		vals[i] = v / coordScale
	}

	return BoundingBox{X0: vals[0], Y0: vals[1], X1: vals[2], Y1: vals[3]}, true
}
