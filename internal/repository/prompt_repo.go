package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/promptvault-api/internal/models"
)

// PromptFilter narrows prompt listing queries.
type PromptFilter struct {
	Search     string
	Category   string
	Complexity string
	Tags       []string
	OwnerID    *uint
	ViewerID   uint
	AllPrivate bool
	Sort       string
	Page       int
	PageSize   int
}

// PromptRepository manages prompt persistence.
type PromptRepository interface {
	Create(ctx context.Context, prompt *models.Prompt) error
	Update(ctx context.Context, prompt *models.Prompt) error
	GetByID(ctx context.Context, id uint) (models.Prompt, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Prompt, error)
	List(ctx context.Context, filter PromptFilter) ([]models.Prompt, int64, error)
	IncrementUsage(ctx context.Context, id uint) (int64, error)
}

type promptRepository struct {
	db *gorm.DB
}

// NewPromptRepository constructs a prompt repository.
func NewPromptRepository(db *gorm.DB) PromptRepository {
	return &promptRepository{db: db}
}

func (r *promptRepository) Create(ctx context.Context, prompt *models.Prompt) error {
	return r.db.WithContext(ctx).Create(prompt).Error
}

func (r *promptRepository) Update(ctx context.Context, prompt *models.Prompt) error {
	return r.db.WithContext(ctx).Save(prompt).Error
}

func (r *promptRepository) GetByID(ctx context.Context, id uint) (models.Prompt, error) {
	var prompt models.Prompt
	err := r.db.WithContext(ctx).First(&prompt, id).Error
	return prompt, err
}

// ListByIDs returns the prompts matching ids in ascending id order; missing ids are skipped.
func (r *promptRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Prompt, error) {
	if len(ids) == 0 {
		return []models.Prompt{}, nil
	}
	var prompts []models.Prompt
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&prompts).Error
	return prompts, err
}

func (r *promptRepository) List(ctx context.Context, filter PromptFilter) ([]models.Prompt, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Prompt{})

	switch {
	case filter.OwnerID != nil:
		query = query.Where("user_id = ?", *filter.OwnerID)
		if !filter.AllPrivate && *filter.OwnerID != filter.ViewerID {
			query = query.Where("visibility = ?", models.PromptVisibilityPublic)
		}
	case filter.AllPrivate:
	case filter.ViewerID != 0:
		query = query.Where("visibility = ? OR user_id = ?", models.PromptVisibilityPublic, filter.ViewerID)
	default:
		query = query.Where("visibility = ?", models.PromptVisibilityPublic)
	}

	if filter.Category != "" {
		query = query.Where("category = ?", strings.ToLower(filter.Category))
	}
	if filter.Complexity != "" {
		query = query.Where("complexity = ?", strings.ToLower(filter.Complexity))
	}

	for _, tag := range models.NormalizeTags(filter.Tags) {
		query = query.Where(`tags LIKE ? ESCAPE '\'`, "%|"+escapeLike(tag)+"|%")
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var prompts []models.Prompt
	if err := query.Order(promptOrder(filter.Sort)).Find(&prompts).Error; err != nil {
		return nil, 0, err
	}

	return prompts, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes user input match literally inside a LIKE pattern.
func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

func (r *promptRepository) IncrementUsage(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Prompt{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&models.Prompt{}).Where("id = ?", id).Pluck("usage_count", &count).Error
	return count, err
}

func promptOrder(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "score":
		return "overall_score DESC, id DESC"
	case "usage":
		return "usage_count DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}
