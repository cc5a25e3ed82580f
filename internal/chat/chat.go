package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("chat assistant disabled: no API key configured")

const systemPrompt = "You are an expert crypto and airdrop assistant for Telegram users. " +
	"Respond in %s. Keep it short and to the point, use bullet points when it fits. " +
	"When the topic is trading, add a one-line disclaimer that this is not financial advice."

var languageNames = map[string]string{
	"en": "English",
	"id": "Indonesian",
}

type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the OpenAI endpoint, e.g. for a compatible gateway.
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// Client answers free-form questions through the chat completions API.
type Client struct {
	api     *openai.Client
	model   string
	system  string
	timeout time.Duration
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	language, ok := languageNames[cfg.Language]
	if !ok {
		language = languageNames["en"]
	}

	c := &Client{
		model:   cfg.Model,
		system:  fmt.Sprintf(systemPrompt, language),
		timeout: cfg.Timeout,
	}
	if cfg.APIKey == "" {
		log.Info("chat assistant disabled")
		return c
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}
	c.api = openai.NewClientWithConfig(apiConfig)
	return c
}

func (c *Client) Enabled() bool {
	return c != nil && c.api != nil
}

// Ask answers an explicit /ask question.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	return c.complete(ctx, question, 0.5, 450)
}

// Reply answers a free-text message no price pattern matched.
func (c *Client) Reply(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, text, 0.6, 280)
}

// Summarize condenses an airdrop announcement to a few sentences with the
// steps to join and a scam warning where relevant.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	prompt := "Summarize this airdrop in at most 3 sentences, add short steps to join and a scam warning if needed:\n\n" + text
	return c.complete(ctx, prompt, 0.3, 220)
}

func (c *Client) complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
