package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/promptvault-api/internal/models"
)

// ScoreFilter narrows the evaluations used for statistics.
type ScoreFilter struct {
	OwnerID  *uint
	Category string
}

// EvaluationRepository persists evaluation and tagging results.
type EvaluationRepository interface {
	SaveEvaluation(ctx context.Context, evaluation *models.PromptEvaluation) error
	SaveEvaluations(ctx context.Context, evaluations []models.PromptEvaluation) error
	SaveAutoTags(ctx context.Context, tags *models.PromptAutoTag) error
	LatestEvaluation(ctx context.Context, promptID uint) (models.PromptEvaluation, error)
	LatestAutoTags(ctx context.Context, promptID uint) (models.PromptAutoTag, error)
	ListLatestScores(ctx context.Context, filter ScoreFilter) ([]models.PromptEvaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository constructs an evaluation repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) SaveEvaluation(ctx context.Context, evaluation *models.PromptEvaluation) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *evaluationRepository) SaveEvaluations(ctx context.Context, evaluations []models.PromptEvaluation) error {
	if len(evaluations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&evaluations).Error
	})
}

func (r *evaluationRepository) SaveAutoTags(ctx context.Context, tags *models.PromptAutoTag) error {
	return r.db.WithContext(ctx).Create(tags).Error
}

func (r *evaluationRepository) LatestEvaluation(ctx context.Context, promptID uint) (models.PromptEvaluation, error) {
	var evaluation models.PromptEvaluation
	err := r.db.WithContext(ctx).
		Where("prompt_id = ?", promptID).
		Order("id DESC").
		First(&evaluation).Error
	return evaluation, err
}

func (r *evaluationRepository) LatestAutoTags(ctx context.Context, promptID uint) (models.PromptAutoTag, error) {
	var tags models.PromptAutoTag
	err := r.db.WithContext(ctx).
		Where("prompt_id = ?", promptID).
		Order("id DESC").
		First(&tags).Error
	return tags, err
}

// ListLatestScores returns the most recent successful evaluation of each matching prompt.
// Degraded batch rows are skipped. Without an owner only public prompts are considered.
func (r *evaluationRepository) ListLatestScores(ctx context.Context, filter ScoreFilter) ([]models.PromptEvaluation, error) {
	latest := r.db.Model(&models.PromptEvaluation{}).
		Select("MAX(id)").
		Where("error = ''").
		Group("prompt_id")

	query := r.db.WithContext(ctx).
		Model(&models.PromptEvaluation{}).
		Select("prompt_evaluations.*").
		Joins("JOIN prompts ON prompts.id = prompt_evaluations.prompt_id").
		Where("prompt_evaluations.id IN (?)", latest)

	if filter.OwnerID != nil {
		query = query.Where("prompts.user_id = ?", *filter.OwnerID)
	} else {
		query = query.Where("prompts.visibility = ?", models.PromptVisibilityPublic)
	}

	if category := strings.ToLower(strings.TrimSpace(filter.Category)); category != "" {
		query = query.Where("prompt_evaluations.category = ?", category)
	}

	var evaluations []models.PromptEvaluation
	if err := query.Order("prompt_evaluations.id ASC").Find(&evaluations).Error; err != nil {
		return nil, err
	}
	return evaluations, nil
}
