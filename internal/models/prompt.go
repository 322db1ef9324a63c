package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Prompt visibility values.
const (
	PromptVisibilityPublic  = "public"
	PromptVisibilityPrivate = "private"
)

// Prompt is an uploaded AI prompt artefact.
type Prompt struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	UserID        uint               `gorm:"index;not null" json:"user_id"`
	Title         string             `gorm:"size:255;not null" json:"title"`
	Description   string             `gorm:"type:text" json:"description"`
	Content       string             `gorm:"type:text;not null" json:"content"`
	FileURL       string             `gorm:"size:512" json:"file_url"`
	MimeType      string             `gorm:"size:128" json:"mime_type"`
	Checksum      string             `gorm:"size:128;index" json:"checksum"`
	Visibility    string             `gorm:"size:16;index;not null;default:public" json:"visibility"`
	Category      string             `gorm:"size:32;index" json:"category"`
	Complexity    string             `gorm:"size:32;index" json:"complexity"`
	TagsRaw       string             `gorm:"column:tags;type:text" json:"-"`
	OverallScore  *int               `gorm:"index" json:"overall_score"`
	UsageCount    int64              `gorm:"not null;default:0" json:"usage_count"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Tags          []string           `gorm:"-" json:"tags"`
	Evaluations   []PromptEvaluation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	AutoTagRounds []PromptAutoTag    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// BeforeSave normalises tag data before persisting.
func (p *Prompt) BeforeSave(tx *gorm.DB) error {
	p.TagsRaw = encodeTags(p.Tags)
	if p.Visibility == "" {
		p.Visibility = PromptVisibilityPublic
	}
	return nil
}

// AfterFind hydrates tag list after retrieval.
func (p *Prompt) AfterFind(tx *gorm.DB) error {
	p.Tags = decodeTags(p.TagsRaw)
	return nil
}

// IsPrivate reports whether only the owner may see the prompt.
func (p Prompt) IsPrivate() bool {
	return p.Visibility == PromptVisibilityPrivate
}

// HasEvaluation reports whether the prompt has been scored.
func (p Prompt) HasEvaluation() bool {
	return p.OverallScore != nil
}

// encodeTags stores tags as a pipe-delimited column so they can be matched with LIKE.
func encodeTags(tags []string) string {
	cleaned := NormalizeTags(tags)
	if len(cleaned) == 0 {
		return ""
	}
	return "|" + strings.Join(cleaned, "|") + "|"
}

func decodeTags(raw string) []string {
	raw = strings.Trim(raw, "|")
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, "|")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		tags = append(tags, trimmed)
	}
	return tags
}

// NormalizeTags lowercases, trims and deduplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(strings.ToLower(tag))
		trimmed = strings.ReplaceAll(trimmed, "|", "")
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}
