package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// TaggerConfig tunes the tagging request.
type TaggerConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	CallTimeout time.Duration
}

// DefaultTaggerConfig returns the tagging defaults.
func DefaultTaggerConfig() TaggerConfig {
	return TaggerConfig{
		Temperature: defaultTaggingTemperature,
		MaxTokens:   defaultTaggingMaxTokens,
		CallTimeout: defaultCallTimeout,
	}
}

// AutoTagger suggests tags through its own completion request, independent
// of scoring. Failures yield FallbackTags.
type AutoTagger struct {
	completer Completer
	cfg       TaggerConfig
	logger    zerolog.Logger
}

// NewAutoTagger constructs a tagger.
func NewAutoTagger(completer Completer, cfg TaggerConfig, logger zerolog.Logger) (*AutoTagger, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultTaggingMaxTokens
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}

	return &AutoTagger{
		completer: completer,
		cfg:       cfg,
		logger:    logger.With().Str("component", "auto_tagger").Logger(),
	}, nil
}

// Tag suggests tags for the prompt described by input.
func (t *AutoTagger) Tag(parent context.Context, input EvaluationInput) (AutoTagResult, error) {
	ctx, cancel := context.WithTimeout(parent, t.cfg.CallTimeout)
	defer cancel()

	raw, err := t.completer.Complete(ctx, CompletionRequest{
		System:      taggerSystemPrompt(),
		User:        buildTaggingPrompt(input),
		Model:       t.cfg.Model,
		Temperature: t.cfg.Temperature,
		MaxTokens:   t.cfg.MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return t.fallback(StageTransport, err), nil
	}

	result, err := ParseAutoTags(raw)
	if err != nil {
		return t.fallback(failureStage(err), err), nil
	}

	return result, nil
}

func (t *AutoTagger) fallback(stage string, err error) AutoTagResult {
	fallbacksTotal.WithLabelValues("tags", stage).Inc()
	t.logger.Warn().Err(err).Str("stage", stage).Msg("auto-tagging failed, assigning default tags")
	return FallbackTags()
}
