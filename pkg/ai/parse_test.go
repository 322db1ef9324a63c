package ai

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

const validScoreJSON = `{
  "clarity": 8,
  "structure": 7,
  "usefulness": 9,
  "overall": 8,
  "reasoning": {
    "clarity": "Clear intent",
    "structure": "Well sectioned",
    "usefulness": "Broadly applicable",
    "overall": "Strong prompt"
  },
  "suggestedTags": ["writing", "email", "writing"],
  "category": "business",
  "complexity": "beginner",
  "estimatedTokens": 120
}`

func TestParseScoreAcceptsValidResponse(t *testing.T) {
	score, err := ParseScore(validScoreJSON)
	require.NoError(t, err)
	require.Equal(t, 8, score.Clarity)
	require.Equal(t, 7, score.Structure)
	require.Equal(t, 9, score.Usefulness)
	require.Equal(t, 8, score.Overall)
	require.Equal(t, "Well sectioned", score.Reasoning.Structure)
	require.Equal(t, []string{"writing", "email", "writing"}, score.SuggestedTags, "duplicates are kept")
	require.Equal(t, CategoryBusiness, score.Category)
	require.Equal(t, ComplexityBeginner, score.Complexity)
	require.NotNil(t, score.EstimatedTokens)
	require.Equal(t, 120, *score.EstimatedTokens)
}

func TestParseScoreAcceptsIntegralFloatsAndMissingTokens(t *testing.T) {
	raw := `{"clarity":7.0,"structure":1,"usefulness":10,"overall":5,
	"reasoning":{"clarity":"a","structure":"b","usefulness":"c","overall":"d"},
	"suggestedTags":[],"category":"other","complexity":"advanced"}`

	score, err := ParseScore(raw)
	require.NoError(t, err)
	require.Equal(t, 7, score.Clarity)
	require.Nil(t, score.EstimatedTokens)
	require.Empty(t, score.SuggestedTags)
}

func TestParseScoreRejectsMalformedResponses(t *testing.T) {
	cases := map[string]string{
		"not json":          "Sure! Here is my evaluation.",
		"empty":             "   ",
		"fenced":            "```json\n" + validScoreJSON + "\n```",
		"score too high":    `{"clarity":11,"structure":7,"usefulness":9,"overall":8,"reasoning":{"clarity":"a","structure":"b","usefulness":"c","overall":"d"},"suggestedTags":[],"category":"business","complexity":"beginner"}`,
		"score too low":     `{"clarity":0,"structure":7,"usefulness":9,"overall":8,"reasoning":{"clarity":"a","structure":"b","usefulness":"c","overall":"d"},"suggestedTags":[],"category":"business","complexity":"beginner"}`,
		"fractional score":  `{"clarity":7.5,"structure":7,"usefulness":9,"overall":8,"reasoning":{"clarity":"a","structure":"b","usefulness":"c","overall":"d"},"suggestedTags":[],"category":"business","complexity":"beginner"}`,
		"missing reasoning": `{"clarity":7,"structure":7,"usefulness":9,"overall":8,"reasoning":{"clarity":"a","structure":"b","usefulness":"c"},"suggestedTags":[],"category":"business","complexity":"beginner"}`,
		"bad category":      `{"clarity":7,"structure":7,"usefulness":9,"overall":8,"reasoning":{"clarity":"a","structure":"b","usefulness":"c","overall":"d"},"suggestedTags":[],"category":"finance","complexity":"beginner"}`,
		"bad complexity":    `{"clarity":7,"structure":7,"usefulness":9,"overall":8,"reasoning":{"clarity":"a","structure":"b","usefulness":"c","overall":"d"},"suggestedTags":[],"category":"business","complexity":"expert"}`,
		"too many tags":     `{"clarity":7,"structure":7,"usefulness":9,"overall":8,"reasoning":{"clarity":"a","structure":"b","usefulness":"c","overall":"d"},"suggestedTags":["1","2","3","4","5","6","7","8","9","10","11"],"category":"business","complexity":"beginner"}`,
		"string tokens":     `{"clarity":7,"structure":7,"usefulness":9,"overall":8,"reasoning":{"clarity":"a","structure":"b","usefulness":"c","overall":"d"},"suggestedTags":[],"category":"business","complexity":"beginner","estimatedTokens":"many"}`,
		"missing overall":   `{"clarity":7,"structure":7,"usefulness":9,"reasoning":{"clarity":"a","structure":"b","usefulness":"c","overall":"d"},"suggestedTags":[],"category":"business","complexity":"beginner"}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScore(raw)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidResponse))

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			require.NotEmpty(t, validationErr.Stage)
		})
	}
}

func TestParseScoreReportsStage(t *testing.T) {
	_, err := ParseScore("nope")
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, StageDecode, validationErr.Stage)

	_, err = ParseScore(`{"clarity":7}`)
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, StageSchema, validationErr.Stage)
}

func TestParseScoreRejectsOutOfRangeTokenEstimates(t *testing.T) {
	base := `{"clarity":7,"structure":7,"usefulness":9,"overall":8,"reasoning":{"clarity":"a","structure":"b","usefulness":"c","overall":"d"},"suggestedTags":[],"category":"business","complexity":"beginner","estimatedTokens":%s}`

	for _, tokens := range []string{"1e300", "10000001", "-1"} {
		t.Run(tokens, func(t *testing.T) {
			score, err := ParseScore(fmt.Sprintf(base, tokens))
			require.ErrorIs(t, err, ErrInvalidResponse)
			require.Nil(t, score.EstimatedTokens)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			require.Equal(t, StageSchema, validationErr.Stage)
		})
	}

	score, err := ParseScore(fmt.Sprintf(base, "10000000"))
	require.NoError(t, err)
	require.Equal(t, 10000000, *score.EstimatedTokens)
}

func TestParseAutoTags(t *testing.T) {
	result, err := ParseAutoTags(`{"tags":["marketing","email"],"confidence":0.82,"reasoning":"Email copy for campaigns"}`)
	require.NoError(t, err)
	require.Equal(t, []string{"marketing", "email"}, result.Tags)
	require.InDelta(t, 0.82, result.Confidence, 0.0001)
	require.Equal(t, "Email copy for campaigns", result.Reasoning)

	_, err = ParseAutoTags(`{"tags":["a"],"confidence":1.5,"reasoning":"x"}`)
	require.ErrorIs(t, err, ErrInvalidResponse)

	_, err = ParseAutoTags(`{"tags":["a"],"reasoning":"x"}`)
	require.ErrorIs(t, err, ErrInvalidResponse)
}
