package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/promptvault-api/pkg/ai"
)

// PromptEvaluation captures one AI scoring run for a prompt.
type PromptEvaluation struct {
	ID              uint                                  `gorm:"primaryKey" json:"id"`
	PromptID        uint                                  `gorm:"index;not null" json:"prompt_id"`
	Clarity         int                                   `gorm:"not null" json:"clarity"`
	Structure       int                                   `gorm:"not null" json:"structure"`
	Usefulness      int                                   `gorm:"not null" json:"usefulness"`
	Overall         int                                   `gorm:"not null" json:"overall"`
	Reasoning       datatypes.JSONType[ai.ScoreReasoning] `json:"reasoning"`
	SuggestedTags   datatypes.JSONSlice[string]           `json:"suggested_tags"`
	Category        string                                `gorm:"size:32;index;not null" json:"category"`
	Complexity      string                                `gorm:"size:32;not null" json:"complexity"`
	EstimatedTokens *int                                  `json:"estimated_tokens"`
	Provider        string                                `gorm:"size:32" json:"provider"`
	BatchID         string                                `gorm:"size:64;index" json:"batch_id"`
	Error           string                                `gorm:"type:text" json:"error"`
	CreatedAt       time.Time                             `json:"created_at"`
}

// PromptAutoTag captures one AI tagging run for a prompt.
type PromptAutoTag struct {
	ID         uint                        `gorm:"primaryKey" json:"id"`
	PromptID   uint                        `gorm:"index;not null" json:"prompt_id"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	Confidence float64                     `gorm:"not null" json:"confidence"`
	Reasoning  string                      `gorm:"type:text" json:"reasoning"`
	Provider   string                      `gorm:"size:32" json:"provider"`
	CreatedAt  time.Time                   `json:"created_at"`
}

// NewPromptEvaluation maps a score onto its persisted form.
func NewPromptEvaluation(promptID uint, score ai.PromptScore, provider string) PromptEvaluation {
	return PromptEvaluation{
		PromptID:        promptID,
		Clarity:         score.Clarity,
		Structure:       score.Structure,
		Usefulness:      score.Usefulness,
		Overall:         score.Overall,
		Reasoning:       datatypes.NewJSONType(score.Reasoning),
		SuggestedTags:   datatypes.NewJSONSlice(append([]string{}, score.SuggestedTags...)),
		Category:        string(score.Category),
		Complexity:      string(score.Complexity),
		EstimatedTokens: score.EstimatedTokens,
		Provider:        provider,
	}
}

// Score converts the stored evaluation back into an ai.PromptScore.
func (e PromptEvaluation) Score() ai.PromptScore {
	tags := []string(e.SuggestedTags)
	if tags == nil {
		tags = []string{}
	}
	return ai.PromptScore{
		Clarity:         e.Clarity,
		Structure:       e.Structure,
		Usefulness:      e.Usefulness,
		Overall:         e.Overall,
		Reasoning:       e.Reasoning.Data(),
		SuggestedTags:   tags,
		Category:        ai.Category(e.Category),
		Complexity:      ai.Complexity(e.Complexity),
		EstimatedTokens: e.EstimatedTokens,
	}
}

// NewPromptAutoTag maps a tagging result onto its persisted form.
func NewPromptAutoTag(promptID uint, result ai.AutoTagResult, provider string) PromptAutoTag {
	return PromptAutoTag{
		PromptID:   promptID,
		Tags:       datatypes.NewJSONSlice(append([]string{}, result.Tags...)),
		Confidence: result.Confidence,
		Reasoning:  result.Reasoning,
		Provider:   provider,
	}
}
