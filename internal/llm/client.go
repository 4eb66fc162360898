package llm

import (
	"context"
	"errors"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smart-trendz/trendz/config"
	"github.com/smart-trendz/trendz/models"
)

// Generator produces a completion for a system prompt plus conversation turns.
type Generator interface {
	Complete(ctx context.Context, system string, turns []models.Turn) (string, error)
}

// Client wraps the OpenAI chat completion API with timeouts, classification
// and bounded retries for transient failures.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	retries     int
	backoff     time.Duration
	logger      *log.Logger
}

func NewClient(cfg config.LLMConfig) *Client {
	retries := cfg.MaxRetries
	if retries < 0 || retries > 2 {
		retries = 2
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		api:         openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		retries:     retries,
		backoff:     time.Second,
		logger:      log.New(log.Writer(), "[LLM] ", log.LstdFlags),
	}
}

// Complete sends the prompt and returns the assistant message. Transient
// failures (rate limit, timeout) retry with exponential backoff; auth and
// backend errors fail immediately.
func (c *Client) Complete(ctx context.Context, system string, turns []models.Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, turn := range turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}

	var lastErr *GenerationError
	tries := c.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.api.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		})
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 {
				return "", &GenerationError{Kind: KindBackend, Err: errors.New("empty completion")}
			}
			return resp.Choices[0].Message.Content, nil
		}

		lastErr = Classify(err)
		if !lastErr.Transient() {
			return "", lastErr
		}
		c.logger.Printf("attempt %d/%d failed (%s), retrying", attempt+1, tries, lastErr.Kind)

		if attempt < tries-1 {
			select {
			case <-time.After(c.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return "", Classify(ctx.Err())
			}
		}
	}
	return "", lastErr
}
