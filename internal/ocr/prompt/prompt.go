// Package prompt builds the instruction prompts DeepSeek-OCR understands.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/glyphworks/ocr-server/pkg/logger"
)

// Task identifiers accepted by the API.
const (
	TaskMarkdown = "markdown"
	TaskOCR      = "ocr"
	TaskFree     = "free"
	TaskFigure   = "figure"
	TaskDescribe = "describe"
	TaskCustom   = "custom"
)

const imageToken = "<image>"

const maxPromptRunes = 1000

var templates = map[string]string{
	TaskMarkdown: imageToken + "\n<|grounding|>Convert the document to markdown.",
	TaskOCR:      imageToken + "\n<|grounding|>OCR this image.",
	TaskFree:     imageToken + "\nFree OCR.",
	TaskFigure:   imageToken + "\nParse the figure.",
	TaskDescribe: imageToken + "\nDescribe this image in detail.",
}

var descriptions = map[string]string{
	TaskMarkdown: "Convert the document to markdown, preserving structure and layout",
	TaskOCR:      "Recognize all text in the image, with positions",
	TaskFree:     "Extract plain text only, ignoring layout",
	TaskFigure:   "Parse charts, figures and diagrams",
	TaskDescribe: "Describe the image in detail",
	TaskCustom:   "Run a caller-provided instruction",
}

// Build assembles the prompt for a task. The custom task uses customPrompt,
// prefixing the image token when it is missing and falling back to the
// markdown template when the prompt is blank. Unknown tasks also fall back
// to markdown.
func Build(task string, customPrompt string) string {
	if task == TaskCustom {
		custom := strings.TrimSpace(customPrompt)
		if custom == "" {
			logger.Warn("Custom prompt is empty, using the markdown template")
			return templates[TaskMarkdown]
		}

		if !strings.Contains(custom, imageToken) {
			custom = imageToken + "\n" + custom
		}

		return custom
	}

	if tmpl, ok := templates[task]; ok {
		return tmpl
	}

	logger.Warn("Unknown task, using the markdown template", "task", task)
	return templates[TaskMarkdown]
}

// Validate reports whether a fully built prompt can be sent to the runtime.
func Validate(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("prompt must not be empty")
	}

	if !strings.Contains(p, imageToken) {
		return fmt.Errorf("prompt must contain the %s token", imageToken)
	}

	if utf8.RuneCountInString(p) > maxPromptRunes {
		return fmt.Errorf("prompt must not exceed %d characters", maxPromptRunes)
	}

	return nil
}

// Tasks lists every supported task identifier, predefined tasks first.
func Tasks() []string {
	return []string{TaskMarkdown, TaskOCR, TaskFree, TaskFigure, TaskDescribe, TaskCustom}
}

// Describe returns a short human readable summary of a task.
func Describe(task string) string {
	if d, ok := descriptions[task]; ok {
		return d
	}

	return "unknown task"
}

// IsKnown reports whether task is one of the supported identifiers.
func IsKnown(task string) bool {
	if task == TaskCustom {
		return true
	}

	_, ok := templates[task]
	return ok
}
