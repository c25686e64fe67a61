package analysis

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/wb-go/wbf/zlog"
)

// Fallback is recorded as the annotation whenever analysis cannot run.
// The pipeline treats analysis as best effort, so this string stands in
// for a real description rather than failing the item.
const Fallback = "AI analysis unavailable"

const prompt = "Analyze this image for upscaling. Describe the main subject, " +
	"lighting, and any noise/blur issues in one concise sentence."

// Describer produces a short descriptive annotation for a media file.
type Describer interface {
	Describe(ctx context.Context, data []byte, mime string) (string, error)
}

// Client is a vision-model-backed Describer using an OpenAI-compatible API.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a Client. An empty apiKey yields a client that always
// falls back, which keeps the pipeline usable without credentials.
func NewClient(apiKey, baseURL, model string) *Client {
	if apiKey == "" {
		return &Client{model: model}
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{api: openai.NewClientWithConfig(cfg), model: model}
}

// Describe asks the vision model for a one-sentence description of the
// media content. It never fails past its own boundary: any error is logged
// and the fixed fallback annotation is returned instead.
func (c *Client) Describe(ctx context.Context, data []byte, mime string) (string, error) {
	if c.api == nil {
		return Fallback, nil
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	})
	if err != nil {
		zlog.Logger.Err(err).Msg("analysis request failed")
		return Fallback, nil
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "Analysis complete.", nil
	}

	return resp.Choices[0].Message.Content, nil
}
