package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 4000
	defaultTimeout     = 2 * time.Minute
)

// OpenAIConfig holds configuration for the OpenAI chat client.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string        // Optional, for compatible gateways and tests
	Temperature float64       // 0 means DefaultTemperature
	MaxTokens   int           // 0 means DefaultMaxTokens
	Timeout     time.Duration // Per call
	MaxRetries  int           // SDK transport retries
	HTTPClient  *http.Client  // Optional (tests)
}

// OpenAI implements Client with the official SDK.
type OpenAI struct {
	client      openai.Client
	temperature float64
	maxTokens   int64
	timeout     time.Duration
}

// NewOpenAI creates a chat-completions client.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		client:      openai.NewClient(opts...),
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
		timeout:     cfg.Timeout,
	}
}

// Complete sends one chat completion and returns the first choice's content.
func (o *OpenAI) Complete(ctx context.Context, model string, p Prompt) (string, error) {
	if model == "" {
		model = DefaultModel
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessageParamUnion
	if p.System != "" {
		messages = append(messages, openai.SystemMessage(p.System))
	}
	messages = append(messages, openai.UserMessage(p.User))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Messages:            messages,
		Temperature:         openai.Float(o.temperature),
		MaxCompletionTokens: openai.Int(o.maxTokens),
	})
	if err != nil {
		return "", mapOpenAIError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content (finish reason %q)", ErrMalformedResponse, resp.Choices[0].FinishReason)
	}
	return content, nil
}

func mapOpenAIError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Code == "insufficient_quota":
			return fmt.Errorf("%w: status %d: %s", ErrQuota, apiErr.StatusCode, apiErr.Message)
		case apiErr.StatusCode == http.StatusRequestTimeout || apiErr.StatusCode == http.StatusGatewayTimeout:
			return fmt.Errorf("%w: status %d: %s", ErrTimeout, apiErr.StatusCode, apiErr.Message)
		case apiErr.StatusCode >= 500:
			return fmt.Errorf("%w: status %d: %s", ErrUnavailable, apiErr.StatusCode, apiErr.Message)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("openai error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("openai error (status %d)", apiErr.StatusCode)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

var _ Client = (*OpenAI)(nil)
