package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicConfig configures the Anthropic completer.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AnthropicCompleter implements Completer against the Anthropic Messages API.
type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
	tracer trace.Tracer
}

// NewAnthropicCompleter constructs a completer backed by the official SDK.
func NewAnthropicCompleter(cfg AnthropicConfig) (*AnthropicCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultAnthropicModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicCompleter{
		client: &client,
		model:  cfg.Model,
		tracer: otel.Tracer("github.com/noah-isme/promptvault-api/pkg/ai/anthropic"),
	}, nil
}

// Provider names the backing service.
func (c *AnthropicCompleter) Provider() string {
	return "anthropic"
}

// Complete sends a single message request and joins the text blocks of the reply.
func (c *AnthropicCompleter) Complete(parent context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	ctx, span := c.tracer.Start(parent, "anthropic.complete", trace.WithAttributes(
		attribute.String("model", model),
		attribute.Int("max_tokens", req.MaxTokens),
	))
	defer span.End()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	completionDuration.WithLabelValues(c.Provider(), model).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", c.fail(span, model, fmt.Errorf("anthropic complete: %w", err))
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			builder.WriteString(block.AsText().Text)
		}
	}

	content := strings.TrimSpace(builder.String())
	if content == "" {
		return "", c.fail(span, model, fmt.Errorf("anthropic returned no text: %w", ErrEmptyCompletion))
	}

	span.SetAttributes(attribute.Int64("usage.output_tokens", resp.Usage.OutputTokens))
	return content, nil
}

func (c *AnthropicCompleter) fail(span trace.Span, model string, err error) error {
	completionFailures.WithLabelValues(c.Provider(), model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
