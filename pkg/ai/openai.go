package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrEmptyCompletion indicates the provider answered without any usable content.
var ErrEmptyCompletion = errors.New("empty completion")

// OpenAIConfig defines configuration options for the OpenAI completer.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAICompleter implements Completer against the OpenAI chat completion API.
type OpenAICompleter struct {
	client *openai.Client
	model  string
	tracer trace.Tracer
}

// NewOpenAICompleter builds a new completer using the provided configuration.
func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAICompleter{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		tracer: otel.Tracer("github.com/noah-isme/promptvault-api/pkg/ai/openai"),
	}, nil
}

// Provider names the backing service.
func (c *OpenAICompleter) Provider() string {
	return "openai"
}

// Complete sends a single chat completion request and returns the first choice.
func (c *OpenAICompleter) Complete(parent context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	ctx, span := c.tracer.Start(parent, "openai.complete", trace.WithAttributes(
		attribute.String("model", model),
		attribute.Int("max_tokens", req.MaxTokens),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.User,
			},
		},
	}
	if req.JSONMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	completionDuration.WithLabelValues(c.Provider(), model).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", c.fail(span, model, fmt.Errorf("openai complete: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", c.fail(span, model, fmt.Errorf("no choices returned from openai: %w", ErrEmptyCompletion))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", c.fail(span, model, fmt.Errorf("openai returned blank content: %w", ErrEmptyCompletion))
	}

	span.SetAttributes(attribute.Int("usage.total_tokens", resp.Usage.TotalTokens))
	return content, nil
}

func (c *OpenAICompleter) fail(span trace.Span, model string, err error) error {
	completionFailures.WithLabelValues(c.Provider(), model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
