package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/eliasbr/fanvoice/internal/config"
)

// Completer produces the persona reply for one fan message.
type Completer interface {
	Reply(ctx context.Context, fanMessage string) (string, error)
}

// Client implements Completer over the OpenAI Chat Completions API.
type Client struct {
	client *openai.Client
	cfg    config.LLMConfig
}

func NewClient(cfg config.LLMConfig) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(apiCfg),
		cfg:    cfg,
	}
}

// Reply requests a persona-conditioned completion for the fan's message. On
// success the returned text is never empty: missing content falls back to
// DefaultReply.
func (c *Client) Reply(ctx context.Context, fanMessage string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: PersonaPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userTurn, fanMessage)},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: float32(c.cfg.Temperature),
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if content == "" {
		content = DefaultReply
	}
	return content, nil
}
