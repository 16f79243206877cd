package markup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSingleSpan(t *testing.T) {
	raw := "<|ref|>Title<|/ref|><|det|>[[100,50],[300,120]]<|/det|>"

	res := Parse(raw)

	require.Equal(t, raw, res.RawText)
	require.True(t, res.HasGrounding)
	require.Equal(t, "Title", res.CleanText)
	require.Len(t, res.Boxes, 1)

	box := res.Boxes[0]
	require.Equal(t, "Title", box.Label)
	require.InDelta(t, 100.0/999.0, box.X0, 1e-9)
	require.InDelta(t, 50.0/999.0, box.Y0, 1e-9)
	require.InDelta(t, 300.0/999.0, box.X1, 1e-9)
	require.InDelta(t, 120.0/999.0, box.Y1, 1e-9)
}

func TestParsePreservesOrderAndDuplicates(t *testing.T) {
	raw := "<|ref|>a<|/ref|><|det|>[[1,2],[3,4]]<|/det|>" +
		" middle " +
		"<|ref|>b<|/ref|><|det|>[[5,6],[7,8]]<|/det|>" +
		"<|ref|>a<|/ref|><|det|>[[1,2],[3,4]]<|/det|>"

	res := Parse(raw)

	require.Len(t, res.Boxes, 3)
	require.Equal(t, "a", res.Boxes[0].Label)
	require.Equal(t, "b", res.Boxes[1].Label)
	require.Equal(t, "a", res.Boxes[2].Label)
	require.Equal(t, res.Boxes[0], res.Boxes[2])
	require.Equal(t, "a middle ba", res.CleanText)
}

func TestParseSkipsMalformedCoordinates(t *testing.T) {
	tests := []struct {
		name string
		det  string
	}{
		{"not a list", "bad"},
		{"single point", "[[1,2]]"},
		{"missing bracket", "[[1,2],[3,4]"},
		{"negative values", "[[-1,2],[3,4]]"},
		{"trailing garbage", "[[1,2],[3,4]]; rm -rf"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "<|ref|>x<|/ref|><|det|>" + tt.det + "<|/det|>"

			res := Parse(raw)

			require.Empty(t, res.Boxes)
			require.True(t, res.HasGrounding)
			require.Equal(t, "x", res.CleanText)
		})
	}
}

func TestParseMixedGoodAndBadSpans(t *testing.T) {
	raw := "<|ref|>good<|/ref|><|det|>[[0,0],[999,999]]<|/det|>" +
		"<|ref|>bad<|/ref|><|det|>oops<|/det|>"

	res := Parse(raw)

	require.Len(t, res.Boxes, 1)
	require.Equal(t, "good", res.Boxes[0].Label)
	require.InDelta(t, 1.0, res.Boxes[0].X1, 1e-9)
	require.Equal(t, "goodbad", res.CleanText)
}

func TestParseAcceptsSpacedAndFloatCoordinates(t *testing.T) {
	raw := "<|ref|>x<|/ref|><|det|> [[10.5, 20], [30, 40.25]] <|/det|>"

	res := Parse(raw)

	require.Len(t, res.Boxes, 1)
	require.InDelta(t, 10.5/999.0, res.Boxes[0].X0, 1e-9)
	require.InDelta(t, 40.25/999.0, res.Boxes[0].Y1, 1e-9)
}

func TestParseLabelSpanningLines(t *testing.T) {
	raw := "<|ref|>two\nlines<|/ref|><|det|>[[1,1],[2,2]]<|/det|>"

	res := Parse(raw)

	require.Len(t, res.Boxes, 1)
	require.Equal(t, "two\nlines", res.Boxes[0].Label)
}

func TestParseStripsGroundingTag(t *testing.T) {
	res := Parse("<|grounding|>Hello world")

	require.False(t, res.HasGrounding)
	require.Equal(t, "Hello world", res.CleanText)
	require.Empty(t, res.Boxes)
}

func TestParsePlainText(t *testing.T) {
	res := Parse("  just some text  ")

	require.False(t, res.HasGrounding)
	require.Equal(t, "just some text", res.CleanText)
	require.Empty(t, res.Boxes)
	require.Equal(t, "  just some text  ", res.RawText)
}

func TestHasGroundingNeedsBothTags(t *testing.T) {
	require.False(t, Parse("<|ref|>x<|/ref|>").HasGrounding)
	require.False(t, Parse("<|det|>[[1,1],[2,2]]<|/det|>").HasGrounding)
	require.True(t, Parse("<|ref|>x<|/ref|><|det|>bad<|/det|>").HasGrounding)
}

func TestParseLeavesOrphanedTagsVisible(t *testing.T) {
	raw := "before <|ref|>dangling<|/ref|> after"

	res := Parse(raw)

	require.Equal(t, "before <|ref|>dangling<|/ref|> after", res.CleanText)
	require.Empty(t, res.Boxes)
}

func TestParseEmptyInput(t *testing.T) {
	res := Parse("")

	require.False(t, res.HasGrounding)
	require.Empty(t, res.CleanText)
	require.Empty(t, res.Boxes)
}

func TestExtractBoxes(t *testing.T) {
	raw := "<|ref|>a<|/ref|><|det|>[[1,2],[3,4]]<|/det|>" +
		"<|ref|>bad<|/ref|><|det|>nope<|/det|>"

	boxes := ExtractBoxes(raw)

	require.Len(t, boxes, 1)
	require.Equal(t, "a", boxes[0].Label)
	require.Nil(t, ExtractBoxes("no spans here"))
}

func TestCleanText(t *testing.T) {
	raw := "<|grounding|> <|ref|>Title<|/ref|><|det|>[[1,1],[2,2]]<|/det|> body "

	require.Equal(t, "Title body", CleanText(raw))
	require.Equal(t, "plain", CleanText("plain"))
}
