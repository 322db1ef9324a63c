package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/noah-isme/promptvault-api/internal/dto"
	"github.com/noah-isme/promptvault-api/internal/models"
	"github.com/noah-isme/promptvault-api/internal/observability"
	"github.com/noah-isme/promptvault-api/internal/repository"
	"github.com/noah-isme/promptvault-api/pkg/ai"
	"github.com/noah-isme/promptvault-api/pkg/scoring"
)

// Evaluation triggers recorded on metrics and events.
const (
	TriggerCreate = "create"
	TriggerManual = "manual"
	TriggerBatch  = "batch"
)

var (
	// ErrEvaluatorUnavailable indicates no AI provider is configured.
	ErrEvaluatorUnavailable = errors.New("prompt evaluator is not configured")
	// ErrEvaluationNotFound indicates the prompt has never been evaluated.
	ErrEvaluationNotFound = errors.New("evaluation not found")
	// ErrBatchTooLarge indicates a batch exceeds the configured item limit.
	ErrBatchTooLarge = errors.New("too many prompts in batch")
)

// BatchRunner evaluates many prompts with paced concurrency.
type BatchRunner interface {
	Run(ctx context.Context, items []ai.BatchItem) []ai.BatchResult
}

// EvaluationOptions tunes the evaluation service.
type EvaluationOptions struct {
	Provider      string
	MaxBatchItems int
}

// EvaluationService scores prompts and reports aggregate statistics.
type EvaluationService interface {
	EvaluatePrompt(ctx context.Context, prompt *models.Prompt, trigger string) (dto.EvaluationResponse, error)
	Evaluate(ctx context.Context, promptID uint, actor Actor) (dto.EvaluationResponse, error)
	GetEvaluation(ctx context.Context, promptID uint, actor Actor) (dto.EvaluationResponse, error)
	BatchEvaluate(ctx context.Context, req dto.BatchEvaluateRequest, actor Actor) (dto.BatchEvaluateResponse, error)
	Stats(ctx context.Context, req dto.ScoringStatsRequest, actor Actor) (dto.ScoringStatsResponse, error)
}

type evaluationService struct {
	prompts     repository.PromptRepository
	evaluations repository.EvaluationRepository
	evaluator   ai.Evaluator
	tagger      ai.Tagger
	batch       BatchRunner
	publisher   EventPublisher
	cache       StatsCache
	validator   *validator.Validate
	opts        EvaluationOptions
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewEvaluationService wires the AI components to persistence. A nil evaluator disables scoring
// while statistics and stored evaluations remain readable.
func NewEvaluationService(
	prompts repository.PromptRepository,
	evaluations repository.EvaluationRepository,
	evaluator ai.Evaluator,
	tagger ai.Tagger,
	batch BatchRunner,
	publisher EventPublisher,
	cache StatsCache,
	validate *validator.Validate,
	opts EvaluationOptions,
	logger zerolog.Logger,
) EvaluationService {
	if publisher == nil {
		publisher = noopEventPublisher{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if opts.MaxBatchItems <= 0 {
		opts.MaxBatchItems = 100
	}
	return &evaluationService{
		prompts:     prompts,
		evaluations: evaluations,
		evaluator:   evaluator,
		tagger:      tagger,
		batch:       batch,
		publisher:   publisher,
		cache:       cache,
		validator:   validate,
		opts:        opts,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/promptvault-api/internal/service/evaluation"),
		now:         time.Now,
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, promptID uint, actor Actor) (dto.EvaluationResponse, error) {
	prompt, err := s.loadPrompt(ctx, promptID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	if !actor.CanManage(prompt) {
		return dto.EvaluationResponse{}, ErrPromptForbidden
	}
	return s.EvaluatePrompt(ctx, &prompt, TriggerManual)
}

// EvaluatePrompt scores and tags a prompt in parallel, persists both results and folds the
// outcome back into the prompt. Ownership is the caller's concern.
func (s *evaluationService) EvaluatePrompt(ctx context.Context, prompt *models.Prompt, trigger string) (dto.EvaluationResponse, error) {
	if s.evaluator == nil {
		return dto.EvaluationResponse{}, ErrEvaluatorUnavailable
	}

	ctx, span := s.tracer.Start(ctx, "evaluation.evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("prompt.id", int(prompt.ID)),
		attribute.String("evaluation.trigger", trigger),
	)

	input := ai.EvaluationInput{Content: prompt.Content, Title: prompt.Title, Description: prompt.Description}

	var (
		score   ai.PromptScore
		tagging *ai.AutoTagResult
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		result, err := s.evaluator.Evaluate(groupCtx, input)
		score = result
		return err
	})
	if s.tagger != nil {
		group.Go(func() error {
			result, err := s.tagger.Tag(groupCtx, input)
			tagging = &result
			return err
		})
	}
	if err := group.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		return dto.EvaluationResponse{}, err
	}

	evaluation := models.NewPromptEvaluation(prompt.ID, score, s.opts.Provider)
	if err := s.evaluations.SaveEvaluation(ctx, &evaluation); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist evaluation failed")
		return dto.EvaluationResponse{}, err
	}

	var autoTag *models.PromptAutoTag
	var autoTags []string
	if tagging != nil {
		record := models.NewPromptAutoTag(prompt.ID, *tagging, s.opts.Provider)
		if err := s.evaluations.SaveAutoTags(ctx, &record); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist tags failed")
			return dto.EvaluationResponse{}, err
		}
		autoTag = &record
		autoTags = tagging.Tags
	}

	applyScore(prompt, score, autoTags)
	if err := s.prompts.Update(ctx, prompt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update prompt failed")
		return dto.EvaluationResponse{}, err
	}

	observability.Evaluations().WithLabelValues(trigger).Inc()
	s.publish(ctx, *prompt, score, trigger, "")
	s.invalidateStats(ctx)

	s.logger.Info().
		Uint("prompt_id", prompt.ID).
		Str("trigger", trigger).
		Int("overall", score.Overall).
		Str("category", string(score.Category)).
		Msg("prompt evaluated")

	span.SetStatus(codes.Ok, "evaluated")
	return dto.NewEvaluationResponse(evaluation, autoTag), nil
}

func (s *evaluationService) GetEvaluation(ctx context.Context, promptID uint, actor Actor) (dto.EvaluationResponse, error) {
	prompt, err := s.loadPrompt(ctx, promptID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	if !actor.CanView(prompt) {
		return dto.EvaluationResponse{}, ErrPromptNotFound
	}

	evaluation, err := s.evaluations.LatestEvaluation(ctx, promptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrEvaluationNotFound
		}
		return dto.EvaluationResponse{}, err
	}

	var autoTag *models.PromptAutoTag
	tags, err := s.evaluations.LatestAutoTags(ctx, promptID)
	switch {
	case err == nil:
		autoTag = &tags
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.EvaluationResponse{}, err
	}

	return dto.NewEvaluationResponse(evaluation, autoTag), nil
}

// BatchEvaluate runs the requested prompts through the batch runner. Results follow request
// order, duplicates included; ids that cannot be evaluated are reported without calling the AI.
func (s *evaluationService) BatchEvaluate(ctx context.Context, req dto.BatchEvaluateRequest, actor Actor) (dto.BatchEvaluateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.BatchEvaluateResponse{}, err
	}
	if len(req.PromptIDs) > s.opts.MaxBatchItems {
		return dto.BatchEvaluateResponse{}, ErrBatchTooLarge
	}
	if s.batch == nil {
		return dto.BatchEvaluateResponse{}, ErrEvaluatorUnavailable
	}

	ctx, span := s.tracer.Start(ctx, "evaluation.batch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.requested", len(req.PromptIDs)))

	found, err := s.prompts.ListByIDs(ctx, req.PromptIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load prompts failed")
		return dto.BatchEvaluateResponse{}, err
	}
	byID := make(map[uint]models.Prompt, len(found))
	for _, prompt := range found {
		byID[prompt.ID] = prompt
	}

	batchID := uuid.NewString()
	response := dto.BatchEvaluateResponse{
		BatchID: batchID,
		Total:   len(req.PromptIDs),
		Results: make([]dto.BatchItemResponse, len(req.PromptIDs)),
	}

	items := make([]ai.BatchItem, 0, len(req.PromptIDs))
	positions := make([]int, 0, len(req.PromptIDs))
	for i, id := range req.PromptIDs {
		response.Results[i].PromptID = id
		prompt, ok := byID[id]
		switch {
		case !ok || !actor.CanView(prompt):
			response.Results[i].Error = ErrPromptNotFound.Error()
			continue
		case !actor.CanManage(prompt):
			response.Results[i].Error = ErrPromptForbidden.Error()
			continue
		}
		items = append(items, ai.BatchItem{
			ID:          strconv.FormatUint(uint64(id), 10),
			Content:     prompt.Content,
			Title:       prompt.Title,
			Description: prompt.Description,
		})
		positions = append(positions, i)
	}

	results := s.batch.Run(ctx, items)

	records := make([]models.PromptEvaluation, 0, len(results))
	scored := make(map[uint]ai.PromptScore, len(results))
	for i, result := range results {
		position := positions[i]
		promptID := req.PromptIDs[position]

		score := result.Score
		response.Results[position].Score = &score
		response.Results[position].Error = result.Error

		record := models.NewPromptEvaluation(promptID, result.Score, s.opts.Provider)
		record.BatchID = batchID
		record.Error = result.Error
		records = append(records, record)

		if result.Error == "" {
			scored[promptID] = result.Score
			observability.BatchItems().WithLabelValues("ok").Inc()
		} else {
			observability.BatchItems().WithLabelValues("error").Inc()
		}
	}

	for _, item := range response.Results {
		if item.Error != "" {
			response.Failed++
		}
	}

	// Persistence outlives a cancelled request so completed AI work is not lost.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.evaluations.SaveEvaluations(persistCtx, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist batch failed")
		return dto.BatchEvaluateResponse{}, err
	}

	for promptID, score := range scored {
		prompt := byID[promptID]
		applyScore(&prompt, score, nil)
		if err := s.prompts.Update(persistCtx, &prompt); err != nil {
			s.logger.Warn().Err(err).Uint("prompt_id", promptID).Msg("failed to apply batch score to prompt")
			continue
		}
		observability.Evaluations().WithLabelValues(TriggerBatch).Inc()
		s.publish(persistCtx, prompt, score, TriggerBatch, batchID)
	}
	if len(scored) > 0 {
		s.invalidateStats(persistCtx)
	}

	span.SetAttributes(
		attribute.String("batch.id", batchID),
		attribute.Int("batch.failed", response.Failed),
	)
	s.logger.Info().
		Str("batch_id", batchID).
		Int("total", response.Total).
		Int("failed", response.Failed).
		Msg("batch evaluation completed")

	span.SetStatus(codes.Ok, "completed")
	return response, nil
}

func (s *evaluationService) Stats(ctx context.Context, req dto.ScoringStatsRequest, actor Actor) (dto.ScoringStatsResponse, error) {
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if err := s.validator.Struct(req); err != nil {
		return dto.ScoringStatsResponse{}, err
	}

	filter := repository.ScoreFilter{Category: req.Category}
	owner := "public"
	if req.Mine {
		id := actor.ID
		filter.OwnerID = &id
		owner = fmt.Sprintf("user:%d", id)
	}

	cacheKey := owner + ":" + req.Category
	var generation int64
	if s.cache != nil {
		stats, gen, ok := s.cache.Get(ctx, cacheKey)
		if ok {
			return dto.ScoringStatsResponse{ScoringStats: stats, CacheHit: true}, nil
		}
		generation = gen
	}

	evaluations, err := s.evaluations.ListLatestScores(ctx, filter)
	if err != nil {
		return dto.ScoringStatsResponse{}, err
	}
	scores := make([]ai.PromptScore, 0, len(evaluations))
	for _, evaluation := range evaluations {
		scores = append(scores, evaluation.Score())
	}
	stats := scoring.CalculateScoringStats(scores)

	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, generation, stats)
	}

	return dto.ScoringStatsResponse{ScoringStats: stats}, nil
}

func (s *evaluationService) loadPrompt(ctx context.Context, id uint) (models.Prompt, error) {
	prompt, err := s.prompts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Prompt{}, ErrPromptNotFound
		}
		return models.Prompt{}, err
	}
	return prompt, nil
}

func (s *evaluationService) publish(ctx context.Context, prompt models.Prompt, score ai.PromptScore, trigger, batchID string) {
	event := EvaluationEvent{
		PromptID:    prompt.ID,
		OwnerID:     prompt.UserID,
		Trigger:     trigger,
		BatchID:     batchID,
		Score:       score,
		Tags:        prompt.Tags,
		Provider:    s.opts.Provider,
		EvaluatedAt: s.now().UTC(),
	}
	if err := s.publisher.PublishEvaluation(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("prompt_id", prompt.ID).Msg("failed to publish evaluation event")
	}
}

func (s *evaluationService) invalidateStats(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func applyScore(prompt *models.Prompt, score ai.PromptScore, autoTags []string) {
	overall := score.Overall
	prompt.OverallScore = &overall
	prompt.Category = string(score.Category)
	prompt.Complexity = string(score.Complexity)
	prompt.Tags = mergeTags(prompt.Tags, score.SuggestedTags, autoTags)
}

// mergeTags keeps existing tags first and caps the result at ai.MaxSuggestedTags.
func mergeTags(groups ...[]string) []string {
	var combined []string
	for _, group := range groups {
		combined = append(combined, group...)
	}
	merged := models.NormalizeTags(combined)
	if len(merged) > ai.MaxSuggestedTags {
		merged = merged[:ai.MaxSuggestedTags]
	}
	return merged
}
