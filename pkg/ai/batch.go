package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchWindowSize = 5
	defaultBatchDelay      = time.Second
)

// BatchConfig controls how a batch is paced against the provider's rate limits.
type BatchConfig struct {
	WindowSize  int
	WindowDelay time.Duration
}

// DefaultBatchConfig returns the batch pacing defaults.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		WindowSize:  defaultBatchWindowSize,
		WindowDelay: defaultBatchDelay,
	}
}

// BatchOrchestrator evaluates many prompts in fixed-size concurrent windows
// with a pause between consecutive windows.
type BatchOrchestrator struct {
	evaluator Evaluator
	cfg       BatchConfig
	logger    zerolog.Logger
}

// NewBatchOrchestrator constructs an orchestrator. A non-positive window size
// falls back to the default; a negative delay is treated as zero.
func NewBatchOrchestrator(evaluator Evaluator, cfg BatchConfig, logger zerolog.Logger) (*BatchOrchestrator, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = defaultBatchWindowSize
	}
	if cfg.WindowDelay < 0 {
		cfg.WindowDelay = 0
	}

	return &BatchOrchestrator{
		evaluator: evaluator,
		cfg:       cfg,
		logger:    logger.With().Str("component", "batch_orchestrator").Logger(),
	}, nil
}

// Run evaluates every item and returns one result per item in input order.
// A failing item never aborts the batch. When ctx is cancelled the items that
// have not started yet receive the batch fallback carrying the context error.
func (o *BatchOrchestrator) Run(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, len(items))
	if len(items) == 0 {
		return results
	}

	start := time.Now()
	windows := 0
	for offset := 0; offset < len(items); offset += o.cfg.WindowSize {
		if offset > 0 {
			if err := o.pause(ctx); err != nil {
				o.abandon(items[offset:], results[offset:], err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			o.abandon(items[offset:], results[offset:], err)
			break
		}

		end := offset + o.cfg.WindowSize
		if end > len(items) {
			end = len(items)
		}

		o.runWindow(ctx, items[offset:end], results[offset:end])
		windows++
		o.logger.Debug().Int("window", windows).Int("size", end-offset).Msg("batch window completed")
	}

	failed := 0
	for _, result := range results {
		if result.Error != "" {
			failed++
		}
	}
	o.logger.Info().
		Int("items", len(items)).
		Int("windows", windows).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("batch evaluation finished")

	return results
}

func (o *BatchOrchestrator) runWindow(ctx context.Context, items []BatchItem, results []BatchResult) {
	var group errgroup.Group
	for i := range items {
		i := i
		group.Go(func() error {
			results[i] = o.evaluateItem(ctx, items[i])
			return nil
		})
	}
	_ = group.Wait()
}

func (o *BatchOrchestrator) evaluateItem(ctx context.Context, item BatchItem) (result BatchResult) {
	defer func() {
		if r := recover(); r != nil {
			result = o.failure(item, fmt.Errorf("evaluation panicked: %v", r))
		}
	}()

	score, err := o.evaluator.Evaluate(ctx, EvaluationInput{
		Content:     item.Content,
		Title:       item.Title,
		Description: item.Description,
	})
	if err != nil {
		return o.failure(item, err)
	}

	return BatchResult{ID: item.ID, Score: score}
}

func (o *BatchOrchestrator) failure(item BatchItem, err error) BatchResult {
	fallbacksTotal.WithLabelValues("batch", StageTransport).Inc()
	o.logger.Warn().Err(err).Str("item_id", item.ID).Msg("batch item evaluation failed")
	return BatchResult{
		ID:    item.ID,
		Score: BatchFailureScore(),
		Error: err.Error(),
	}
}

func (o *BatchOrchestrator) abandon(items []BatchItem, results []BatchResult, err error) {
	for i, item := range items {
		results[i] = o.failure(item, err)
	}
}

func (o *BatchOrchestrator) pause(ctx context.Context) error {
	if o.cfg.WindowDelay == 0 {
		return nil
	}

	timer := time.NewTimer(o.cfg.WindowDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
