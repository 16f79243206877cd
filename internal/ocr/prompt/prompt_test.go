package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPredefinedTasks(t *testing.T) {
	tests := []struct {
		task string
		want string
	}{
		{TaskMarkdown, "<image>\n<|grounding|>Convert the document to markdown."},
		{TaskOCR, "<image>\n<|grounding|>OCR this image."},
		{TaskFree, "<image>\nFree OCR."},
		{TaskFigure, "<image>\nParse the figure."},
		{TaskDescribe, "<image>\nDescribe this image in detail."},
	}

	for _, tt := range tests {
		t.Run(tt.task, func(t *testing.T) {
			require.Equal(t, tt.want, Build(tt.task, ""))
		})
	}
}

func TestBuildCustomTask(t *testing.T) {
	t.Run("adds image token when missing", func(t *testing.T) {
		require.Equal(t, "<image>\nRead all the numbers", Build(TaskCustom, "Read all the numbers"))
	})

	t.Run("keeps existing image token", func(t *testing.T) {
		require.Equal(t, "<image>\nExtract the table", Build(TaskCustom, "<image>\nExtract the table"))
	})

	t.Run("trims whitespace", func(t *testing.T) {
		require.Equal(t, "<image>\nRead this", Build(TaskCustom, "  Read this  "))
	})

	t.Run("blank prompt falls back to markdown", func(t *testing.T) {
		require.Equal(t, Build(TaskMarkdown, ""), Build(TaskCustom, "   "))
	})
}

func TestBuildUnknownTaskFallsBackToMarkdown(t *testing.T) {
	require.Equal(t, Build(TaskMarkdown, ""), Build("translate", ""))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate("<image>\nOCR this image."))

	require.Error(t, Validate(""))
	require.Error(t, Validate("   "))
	require.Error(t, Validate("no image token here"))
	require.Error(t, Validate("<image>\n"+strings.Repeat("x", 1000)))
	require.NoError(t, Validate("<image>"+strings.Repeat("x", 993)))
}

func TestTasksIncludesEveryTemplateAndCustom(t *testing.T) {
	tasks := Tasks()
	require.Len(t, tasks, len(templates)+1)

	for _, task := range tasks {
		require.True(t, IsKnown(task), task)
		require.NotEqual(t, "unknown task", Describe(task))
	}

	require.False(t, IsKnown("translate"))
}

func TestGroundingOnlyOnGroundedTasks(t *testing.T) {
	require.Contains(t, Build(TaskMarkdown, ""), "<|grounding|>")
	require.Contains(t, Build(TaskOCR, ""), "<|grounding|>")
	require.NotContains(t, Build(TaskFree, ""), "<|grounding|>")
	require.NotContains(t, Build(TaskFigure, ""), "<|grounding|>")
	require.NotContains(t, Build(TaskDescribe, ""), "<|grounding|>")
}
