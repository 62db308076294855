package fill

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"

	"github.com/swarmflow/swarmflow/pkg/api"
)

const systemPrompt = "You are a form data generator. Return only valid JSON, in plaintext."

// OpenAIConfig tunes the model call. The zero value is usable; defaults
// reproduce the established generation settings.
type OpenAIConfig struct {
	Model       string
	Temperature float64
	TopP        float64
}

func (c OpenAIConfig) withDefaults() OpenAIConfig {
	if c.Model == "" {
		c.Model = openai.ChatModelGPT4o
	}
	if c.Temperature == 0 {
		c.Temperature = 0.5
	}
	if c.TopP == 0 {
		c.TopP = 0.01
	}
	return c
}

// OpenAIFiller fills task fields with a single chat completion. The model is
// shown the field names as a JSON object with null values and asked to
// produce the same object with realistic values.
type OpenAIFiller struct {
	client openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIFiller builds a filler from an API key.
func NewOpenAIFiller(apiKey string, cfg OpenAIConfig) *OpenAIFiller {
	return &OpenAIFiller{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		cfg:    cfg.withDefaults(),
	}
}

var _ Filler = (*OpenAIFiller)(nil)

func (o *OpenAIFiller) Fill(ctx context.Context, fields []api.Field, extra string) (map[string]any, error) {
	skeleton, err := fieldSkeleton(fields)
	if err != nil {
		return nil, err
	}
	prompt := "Generate realistic values for these form fields: " + skeleton
	if extra != "" {
		prompt += "\n\nUse this report as context:\n" + extra
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       o.cfg.Model,
		Temperature: openai.Float(o.cfg.Temperature),
		TopP:        openai.Float(o.cfg.TopP),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrFillFailure, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion returned no choices", api.ErrFillFailure)
	}
	return ParseModelJSON(resp.Choices[0].Message.Content)
}

// ParseModelJSON decodes a model reply into field values, tolerating the
// fenced code blocks models tend to wrap JSON in.
func ParseModelJSON(reply string) (map[string]any, error) {
	cleaned := strings.TrimSpace(stripFences(reply))
	if !gjson.Valid(cleaned) {
		return nil, fmt.Errorf("%w: reply is not valid JSON: %.80q", api.ErrFillFailure, reply)
	}
	doc := gjson.Parse(cleaned)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: reply is not a JSON object: %.80q", api.ErrFillFailure, reply)
	}
	out := make(map[string]any)
	doc.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value.Value()
		return true
	})
	return out, nil
}

func stripFences(reply string) string {
	reply = strings.ReplaceAll(reply, "```json", "")
	return strings.ReplaceAll(reply, "```", "")
}
