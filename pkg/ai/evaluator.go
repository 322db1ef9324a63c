package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultEvaluationTemperature = 0.3
	defaultEvaluationMaxTokens   = 1000
	defaultTaggingTemperature    = 0.2
	defaultTaggingMaxTokens      = 500
	defaultCallTimeout           = 30 * time.Second
)

// StageTransport marks failures that happened before a reply was received.
const StageTransport = "transport"

// EvaluatorConfig tunes the scoring request.
type EvaluatorConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	CallTimeout time.Duration
}

// DefaultEvaluatorConfig returns the scoring defaults.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		Temperature: defaultEvaluationTemperature,
		MaxTokens:   defaultEvaluationMaxTokens,
		CallTimeout: defaultCallTimeout,
	}
}

// PromptEvaluator scores prompts through a Completer. It never returns an
// error: any failure yields FallbackScore.
type PromptEvaluator struct {
	completer Completer
	cfg       EvaluatorConfig
	logger    zerolog.Logger
}

// NewPromptEvaluator constructs an evaluator.
func NewPromptEvaluator(completer Completer, cfg EvaluatorConfig, logger zerolog.Logger) (*PromptEvaluator, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultEvaluationMaxTokens
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}

	return &PromptEvaluator{
		completer: completer,
		cfg:       cfg,
		logger:    logger.With().Str("component", "prompt_evaluator").Logger(),
	}, nil
}

// Provider names the backing completion service.
func (e *PromptEvaluator) Provider() string {
	return e.completer.Provider()
}

// Evaluate scores the prompt described by input.
func (e *PromptEvaluator) Evaluate(parent context.Context, input EvaluationInput) (PromptScore, error) {
	ctx, cancel := context.WithTimeout(parent, e.cfg.CallTimeout)
	defer cancel()

	raw, err := e.completer.Complete(ctx, CompletionRequest{
		System:      evaluatorSystemPrompt(),
		User:        buildEvaluationPrompt(input),
		Model:       e.cfg.Model,
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return e.fallback(input, StageTransport, err), nil
	}

	score, err := ParseScore(raw)
	if err != nil {
		return e.fallback(input, failureStage(err), err), nil
	}

	return score, nil
}

func (e *PromptEvaluator) fallback(input EvaluationInput, stage string, err error) PromptScore {
	fallbacksTotal.WithLabelValues("score", stage).Inc()
	e.logger.Warn().Err(err).Str("stage", stage).Int("content_length", len(input.Content)).Msg("prompt evaluation failed, assigning default score")
	return FallbackScore(input.Content)
}

func failureStage(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Stage
	}
	return StageTransport
}
