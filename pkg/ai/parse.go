package ai

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	//go:embed schema/prompt_score.schema.json
	promptScoreSchemaSource string

	//go:embed schema/auto_tag.schema.json
	autoTagSchemaSource string

	promptScoreSchema = jsonschema.MustCompileString("prompt_score.schema.json", promptScoreSchemaSource)
	autoTagSchema     = jsonschema.MustCompileString("auto_tag.schema.json", autoTagSchemaSource)
)

// ErrInvalidResponse is the sentinel matched by every ValidationError.
var ErrInvalidResponse = errors.New("invalid model response")

// Validation stages reported by ValidationError.
const (
	StageDecode = "decode"
	StageSchema = "schema"
)

// ValidationError reports why a model reply was rejected. A reply is
// accepted or rejected as a whole.
type ValidationError struct {
	Stage string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrInvalidResponse.Error(), e.Stage, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrInvalidResponse.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidResponse
}

type scorePayload struct {
	Clarity         float64        `json:"clarity"`
	Structure       float64        `json:"structure"`
	Usefulness      float64        `json:"usefulness"`
	Overall         float64        `json:"overall"`
	Reasoning       ScoreReasoning `json:"reasoning"`
	SuggestedTags   []string       `json:"suggestedTags"`
	Category        Category       `json:"category"`
	Complexity      Complexity     `json:"complexity"`
	EstimatedTokens *float64       `json:"estimatedTokens"`
}

// ParseScore validates a raw model reply against the score schema and
// decodes it into a PromptScore.
func ParseScore(raw string) (PromptScore, error) {
	if err := validateDocument(raw, promptScoreSchema); err != nil {
		return PromptScore{}, err
	}

	var data scorePayload
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return PromptScore{}, &ValidationError{Stage: StageDecode, Err: err}
	}

	score := PromptScore{
		Clarity:       int(data.Clarity),
		Structure:     int(data.Structure),
		Usefulness:    int(data.Usefulness),
		Overall:       int(data.Overall),
		Reasoning:     data.Reasoning,
		SuggestedTags: data.SuggestedTags,
		Category:      data.Category,
		Complexity:    data.Complexity,
	}
	if score.SuggestedTags == nil {
		score.SuggestedTags = []string{}
	}
	if data.EstimatedTokens != nil {
		tokens := int(math.Round(*data.EstimatedTokens))
		score.EstimatedTokens = &tokens
	}

	return score, nil
}

// ParseAutoTags validates a raw model reply against the tagging schema and
// decodes it into an AutoTagResult.
func ParseAutoTags(raw string) (AutoTagResult, error) {
	if err := validateDocument(raw, autoTagSchema); err != nil {
		return AutoTagResult{}, err
	}

	var result AutoTagResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return AutoTagResult{}, &ValidationError{Stage: StageDecode, Err: err}
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}

	return result, nil
}

func validateDocument(raw string, schema *jsonschema.Schema) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &ValidationError{Stage: StageDecode, Err: ErrEmptyCompletion}
	}

	var document interface{}
	if err := json.Unmarshal([]byte(trimmed), &document); err != nil {
		return &ValidationError{Stage: StageDecode, Err: err}
	}

	if err := schema.Validate(document); err != nil {
		return &ValidationError{Stage: StageSchema, Err: err}
	}

	return nil
}
