package ai

import "unicode/utf8"

const (
	fallbackScoreValue     = 5
	fallbackScoreReasoning = "Evaluation failed — default score assigned"

	batchFailureScoreValue = 1
	batchFailureReasoning  = "Evaluation error — batch fallback assigned"

	fallbackTagConfidence = 0.1
	fallbackTagReasoning  = "Auto-tagging failed — default tags assigned."
)

// EstimateTokens approximates the token count of content as one token per
// four characters, rounded up.
func EstimateTokens(content string) int {
	chars := utf8.RuneCountInString(content)
	return (chars + 3) / 4
}

// FallbackScore is the neutral score substituted when a single evaluation fails.
func FallbackScore(content string) PromptScore {
	tokens := EstimateTokens(content)
	return PromptScore{
		Clarity:    fallbackScoreValue,
		Structure:  fallbackScoreValue,
		Usefulness: fallbackScoreValue,
		Overall:    fallbackScoreValue,
		Reasoning: ScoreReasoning{
			Clarity:    fallbackScoreReasoning,
			Structure:  fallbackScoreReasoning,
			Usefulness: fallbackScoreReasoning,
			Overall:    fallbackScoreReasoning,
		},
		SuggestedTags:   []string{"untagged"},
		Category:        CategoryOther,
		Complexity:      ComplexityIntermediate,
		EstimatedTokens: &tokens,
	}
}

// BatchFailureScore is the pessimistic score recorded for a batch item whose
// evaluation could not complete at all.
func BatchFailureScore() PromptScore {
	return PromptScore{
		Clarity:    batchFailureScoreValue,
		Structure:  batchFailureScoreValue,
		Usefulness: batchFailureScoreValue,
		Overall:    batchFailureScoreValue,
		Reasoning: ScoreReasoning{
			Clarity:    batchFailureReasoning,
			Structure:  batchFailureReasoning,
			Usefulness: batchFailureReasoning,
			Overall:    batchFailureReasoning,
		},
		SuggestedTags: []string{"error"},
		Category:      CategoryOther,
		Complexity:    ComplexityIntermediate,
	}
}

// FallbackTags is the low-confidence result substituted when tagging fails.
func FallbackTags() AutoTagResult {
	return AutoTagResult{
		Tags:       []string{"prompt", "untagged"},
		Confidence: fallbackTagConfidence,
		Reasoning:  fallbackTagReasoning,
	}
}
