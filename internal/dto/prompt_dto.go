package dto

import (
	"time"

	"github.com/noah-isme/promptvault-api/internal/models"
	"github.com/noah-isme/promptvault-api/pkg/ai"
	"github.com/noah-isme/promptvault-api/pkg/scoring"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta computes page counts for a list response.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: totalPages}
}

// PromptCreateRequest is the payload for submitting a prompt as text.
type PromptCreateRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description" validate:"max=2000"`
	Content     string   `json:"content" validate:"required"`
	Visibility  string   `json:"visibility" validate:"omitempty,oneof=public private"`
	Tags        []string `json:"tags" validate:"max=10,dive,max=40"`
}

// PromptUploadRequest carries the form fields sent alongside an uploaded prompt file.
type PromptUploadRequest struct {
	Title       string `form:"title" validate:"max=255"`
	Description string `form:"description" validate:"max=2000"`
	Visibility  string `form:"visibility" validate:"omitempty,oneof=public private"`
	Tags        string `form:"tags"`
}

// PromptListRequest describes prompt browsing filters.
type PromptListRequest struct {
	Search     string
	Category   string
	Complexity string
	Tags       []string
	Mine       bool
	Sort       string
	Page       int
	PageSize   int
}

// PromptResponse represents a prompt returned to clients.
type PromptResponse struct {
	ID           uint                `json:"id"`
	UserID       uint                `json:"user_id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Content      string              `json:"content"`
	FileURL      string              `json:"file_url,omitempty"`
	Visibility   string              `json:"visibility"`
	Category     string              `json:"category,omitempty"`
	Complexity   string              `json:"complexity,omitempty"`
	Tags         []string            `json:"tags"`
	OverallScore *int                `json:"overall_score"`
	UsageCount   int64               `json:"usage_count"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Evaluation   *EvaluationResponse `json:"evaluation,omitempty"`
}

// NewPromptResponse maps a prompt model to its response form.
func NewPromptResponse(prompt models.Prompt) PromptResponse {
	tags := prompt.Tags
	if tags == nil {
		tags = []string{}
	}
	return PromptResponse{
		ID:           prompt.ID,
		UserID:       prompt.UserID,
		Title:        prompt.Title,
		Description:  prompt.Description,
		Content:      prompt.Content,
		FileURL:      prompt.FileURL,
		Visibility:   prompt.Visibility,
		Category:     prompt.Category,
		Complexity:   prompt.Complexity,
		Tags:         tags,
		OverallScore: prompt.OverallScore,
		UsageCount:   prompt.UsageCount,
		CreatedAt:    prompt.CreatedAt,
		UpdatedAt:    prompt.UpdatedAt,
	}
}

// PromptListResult wraps paginated prompts.
type PromptListResult struct {
	Items      []PromptResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

// PromptUsageResponse reports the updated usage counter.
type PromptUsageResponse struct {
	ID         uint  `json:"id"`
	UsageCount int64 `json:"usage_count"`
}

// AutoTagResponse is the tagging outcome returned to clients.
type AutoTagResponse struct {
	Tags       []string  `json:"tags"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
	CreatedAt  time.Time `json:"created_at"`
}

// EvaluationResponse is the latest evaluation of a prompt.
type EvaluationResponse struct {
	ID          uint             `json:"id"`
	PromptID    uint             `json:"prompt_id"`
	Score       ai.PromptScore   `json:"score"`
	AutoTags    *AutoTagResponse `json:"auto_tags,omitempty"`
	Provider    string           `json:"provider"`
	BatchID     string           `json:"batch_id,omitempty"`
	EvaluatedAt time.Time        `json:"evaluated_at"`
}

// NewEvaluationResponse maps stored evaluation rows to a response.
func NewEvaluationResponse(evaluation models.PromptEvaluation, tags *models.PromptAutoTag) EvaluationResponse {
	response := EvaluationResponse{
		ID:          evaluation.ID,
		PromptID:    evaluation.PromptID,
		Score:       evaluation.Score(),
		Provider:    evaluation.Provider,
		BatchID:     evaluation.BatchID,
		EvaluatedAt: evaluation.CreatedAt,
	}
	if tags != nil {
		list := []string(tags.Tags)
		if list == nil {
			list = []string{}
		}
		response.AutoTags = &AutoTagResponse{
			Tags:       list,
			Confidence: tags.Confidence,
			Reasoning:  tags.Reasoning,
			CreatedAt:  tags.CreatedAt,
		}
	}
	return response
}

// BatchEvaluateRequest lists the prompts to evaluate in one batch.
type BatchEvaluateRequest struct {
	PromptIDs []uint `json:"prompt_ids" validate:"required,min=1,dive,gt=0"`
}

// BatchItemResponse is the outcome for one requested prompt.
type BatchItemResponse struct {
	PromptID uint            `json:"prompt_id"`
	Score    *ai.PromptScore `json:"score,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// BatchEvaluateResponse summarises a batch run.
type BatchEvaluateResponse struct {
	BatchID string              `json:"batch_id"`
	Total   int                 `json:"total"`
	Failed  int                 `json:"failed"`
	Results []BatchItemResponse `json:"results"`
}

// ScoringStatsRequest narrows the statistics report.
type ScoringStatsRequest struct {
	Category string `validate:"omitempty,oneof=creative technical business educational other"`
	Mine     bool
}

// ScoringStatsResponse wraps computed statistics.
type ScoringStatsResponse struct {
	scoring.ScoringStats
	CacheHit bool `json:"cache_hit"`
}
