package promptfilter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/glyphworks/ocr-server/internal/ocr/prompt"
)

// SafetyFilter screens custom OCR prompts before they reach the model.
// Built-in task prompts never pass through it.
type SafetyFilter struct {
	client *openai.Client
}

func NewSafetyFilter(apiKey string) (*SafetyFilter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	return &SafetyFilter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

type PromptFilterResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}

// Pinned so repeated evaluations of the same prompt classify the same way.
const SEED int64 = 420

type taskSummary struct {
	Name        string
	Description string
}

func taskSummaries() []taskSummary {
	var summaries []taskSummary
	for _, task := range prompt.Tasks() {
		if task == prompt.TaskCustom {
			continue
		}

		summaries = append(summaries, taskSummary{
			Name:        task,
			Description: prompt.Describe(task),
		})
	}

	return summaries
}

func (f *SafetyFilter) InvokeChatGPT(ctx context.Context, customPrompt string) (*ChatGPTFilterResponse, error) {
	tmpl, err := template.New("systemPrompt").Parse(SystemPrompt)
	if err != nil {
		return nil, err
	}

	var tmplBuffer bytes.Buffer
	if err := tmpl.Execute(&tmplBuffer, taskSummaries()); err != nil {
		return nil, err
	}

	completion, err := f.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(tmplBuffer.String()),
			openai.UserMessage(fmt.Sprintf("Instruction: %s", customPrompt)),
		}),
		ResponseFormat: openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			openai.ResponseFormatJSONObjectParam{
				Type: openai.F(openai.ResponseFormatJSONObjectTypeJSONObject),
			},
		),
		Seed:        openai.F(SEED),
		Model:       openai.F(openai.ChatModelGPT4oMini),
		Temperature: openai.F(0.2),
	})

	if err != nil {
		return nil, fmt.Errorf("request to ChatGPT failed: %w", err)
	}

	if len(completion.Choices) == 0 || len(completion.Choices[0].Message.Content) == 0 {
		return nil, fmt.Errorf("could not filter or validate prompt")
	}

	var res ChatGPTFilterResponse
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &res); err != nil {
		return nil, fmt.Errorf("could not parse response: %w", err)
	}

	return &res, nil
}

func (f *SafetyFilter) EvaluatePrompt(ctx context.Context, customPrompt string) (*PromptFilterResponse, error) {
	res, err := f.InvokeChatGPT(ctx, customPrompt)
	if err != nil {
		return nil, err
	}

	response := EvaluateResponse(res)
	return &response, nil
}

// EvaluateResponse maps a classification to an accept or reject
// decision. Off-task prompts are allowed through; the model will simply
// do a poor job, which is the caller's problem, not a safety one.
func EvaluateResponse(res *ChatGPTFilterResponse) PromptFilterResponse {
	if res.Injection {
		return PromptFilterResponse{
			Accepted: false,
			Reason:   "attempts to override document processing instructions",
		}
	} else if res.Fabrication {
		return PromptFilterResponse{
			Accepted: false,
			Reason:   "asks to fabricate or alter document content",
		}
	} else if res.Harmful {
		return PromptFilterResponse{
			Accepted: false,
			Reason:   "asks for harmful use of document content",
		}
	}

	return PromptFilterResponse{
		Accepted: true,
	}
}
