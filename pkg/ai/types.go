package ai

import "context"

// Category classifies the domain a prompt belongs to.
type Category string

// Supported prompt categories.
const (
	CategoryCreative    Category = "creative"
	CategoryTechnical   Category = "technical"
	CategoryBusiness    Category = "business"
	CategoryEducational Category = "educational"
	CategoryOther       Category = "other"
)

// Complexity describes how demanding a prompt is to use well.
type Complexity string

// Supported complexity levels.
const (
	ComplexityBeginner     Complexity = "beginner"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
)

// MaxSuggestedTags bounds the number of tags accepted from the model.
const MaxSuggestedTags = 10

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCreative, CategoryTechnical, CategoryBusiness, CategoryEducational, CategoryOther:
		return true
	default:
		return false
	}
}

// Valid reports whether c is one of the known complexity levels.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexityBeginner, ComplexityIntermediate, ComplexityAdvanced:
		return true
	default:
		return false
	}
}

// ScoreReasoning holds one justification per score dimension.
type ScoreReasoning struct {
	Clarity    string `json:"clarity"`
	Structure  string `json:"structure"`
	Usefulness string `json:"usefulness"`
	Overall    string `json:"overall"`
}

// PromptScore is the evaluation outcome for a single prompt.
type PromptScore struct {
	Clarity         int            `json:"clarity"`
	Structure       int            `json:"structure"`
	Usefulness      int            `json:"usefulness"`
	Overall         int            `json:"overall"`
	Reasoning       ScoreReasoning `json:"reasoning"`
	SuggestedTags   []string       `json:"suggestedTags"`
	Category        Category       `json:"category"`
	Complexity      Complexity     `json:"complexity"`
	EstimatedTokens *int           `json:"estimatedTokens,omitempty"`
}

// AutoTagResult is the outcome of the tagging call for a single prompt.
type AutoTagResult struct {
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// EvaluationInput contains the artefacts needed to evaluate a prompt.
type EvaluationInput struct {
	Content     string
	Title       string
	Description string
}

// BatchItem is an identified prompt submitted to the batch orchestrator.
// ID is a correlation key only; it is neither validated nor deduplicated.
type BatchItem struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// BatchResult pairs a batch item with its score. Error is set only when the
// item could not be evaluated and the batch fallback was substituted.
type BatchResult struct {
	ID    string      `json:"id"`
	Score PromptScore `json:"score"`
	Error string      `json:"error,omitempty"`
}

// Evaluator scores prompt content.
type Evaluator interface {
	Evaluate(ctx context.Context, input EvaluationInput) (PromptScore, error)
}

// Tagger suggests tags for prompt content.
type Tagger interface {
	Tag(ctx context.Context, input EvaluationInput) (AutoTagResult, error)
}

// CompletionRequest is a provider-neutral chat completion request made of a
// system instruction and a single user message.
type CompletionRequest struct {
	System      string
	User        string
	Model       string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// Completer sends a completion request to a language model and returns the
// raw textual reply.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Provider() string
}
