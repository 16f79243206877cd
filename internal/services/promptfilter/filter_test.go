package promptfilter

import (
	"bytes"
	"html/template"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSafetyFilterRequiresKey(t *testing.T) {
	_, err := NewSafetyFilter("")
	require.Error(t, err)

	filter, err := NewSafetyFilter("sk-test")
	require.NoError(t, err)
	require.NotNil(t, filter)
}

func TestEvaluateResponse(t *testing.T) {
	tests := []struct {
		name     string
		res      ChatGPTFilterResponse
		accepted bool
		reason   string
	}{
		{
			name:     "clean prompt",
			res:      ChatGPTFilterResponse{Languages: []string{"en"}},
			accepted: true,
		},
		{
			name:     "injection rejected",
			res:      ChatGPTFilterResponse{Injection: true},
			accepted: false,
			reason:   "attempts to override document processing instructions",
		},
		{
			name:     "fabrication rejected",
			res:      ChatGPTFilterResponse{Fabrication: true},
			accepted: false,
			reason:   "asks to fabricate or alter document content",
		},
		{
			name:     "harmful rejected",
			res:      ChatGPTFilterResponse{Harmful: true},
			accepted: false,
			reason:   "asks for harmful use of document content",
		},
		{
			name:     "off task allowed",
			res:      ChatGPTFilterResponse{OffTask: true},
			accepted: true,
		},
		{
			name:     "injection outranks the rest",
			res:      ChatGPTFilterResponse{Injection: true, Fabrication: true, Harmful: true},
			accepted: false,
			reason:   "attempts to override document processing instructions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateResponse(&tt.res)
			require.Equal(t, tt.accepted, got.Accepted)
			require.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestSystemPromptTemplateRenders(t *testing.T) {
	tmpl, err := template.New("systemPrompt").Parse(SystemPrompt)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, taskSummaries()))

	rendered := buf.String()
	require.Contains(t, rendered, "markdown - Convert the document to markdown")
	require.Contains(t, rendered, `"injection": (boolean)`)
	require.NotContains(t, rendered, "custom - ")
}
