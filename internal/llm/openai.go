// Package llm – OpenAI-compatible implementation of Client.
package llm

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Client using the official openai-go SDK (chat
// completions). A custom BaseURL points it at any OpenAI-compatible gateway.
type OpenAIClient struct {
	client openai.Client
}

// OpenAISettings configures the production model client.
type OpenAISettings struct {
	APIKey  string
	BaseURL string // optional; empty uses the SDK default
}

// NewOpenAIClient validates settings and builds the client.
func NewOpenAIClient(cfg OpenAISettings) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...)}, nil
}

// Complete sends one chat completion and maps the first choice onto the
// engine's Response shape.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	if req.ModelID == "" {
		return Response{}, errors.New("llm: model id is required")
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.ModelID),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemText),
			openai.UserMessage(req.UserText),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, err
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("llm: empty choices")
	}
	return Response{
		ReplyText:  resp.Choices[0].Message.Content,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}
