package contract_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/promptvault-api/internal/dto"
	"github.com/noah-isme/promptvault-api/internal/handler"
	"github.com/noah-isme/promptvault-api/internal/service"
	"github.com/noah-isme/promptvault-api/pkg/ai"
	"github.com/noah-isme/promptvault-api/pkg/scoring"
)

type stubEvaluationService struct {
	service.EvaluationService
	scores []ai.PromptScore
}

func (s stubEvaluationService) Stats(context.Context, dto.ScoringStatsRequest, service.Actor) (dto.ScoringStatsResponse, error) {
	return dto.ScoringStatsResponse{ScoringStats: scoring.CalculateScoringStats(s.scores)}, nil
}

func (s stubEvaluationService) BatchEvaluate(_ context.Context, req dto.BatchEvaluateRequest, _ service.Actor) (dto.BatchEvaluateResponse, error) {
	resp := dto.BatchEvaluateResponse{BatchID: "3f6c1f0e-batch", Total: len(req.PromptIDs)}
	for i, id := range req.PromptIDs {
		if i%2 == 1 {
			resp.Failed++
			resp.Results = append(resp.Results, dto.BatchItemResponse{PromptID: id, Error: "prompt not found"})
			continue
		}
		score := s.scores[i%len(s.scores)]
		resp.Results = append(resp.Results, dto.BatchItemResponse{PromptID: id, Score: &score})
	}
	return resp, nil
}

func sampleScores() []ai.PromptScore {
	tokens := 120
	return []ai.PromptScore{
		{
			Clarity: 8, Structure: 7, Usefulness: 9, Overall: 8,
			Reasoning:       ai.ScoreReasoning{Clarity: "clear goal", Structure: "ordered", Usefulness: "reusable", Overall: "solid"},
			SuggestedTags:   []string{"email", "sales"},
			Category:        ai.CategoryBusiness,
			Complexity:      ai.ComplexityBeginner,
			EstimatedTokens: &tokens,
		},
		{
			Clarity: 3, Structure: 4, Usefulness: 5, Overall: 4,
			Reasoning:     ai.ScoreReasoning{Clarity: "vague", Structure: "loose", Usefulness: "narrow", Overall: "weak"},
			SuggestedTags: []string{"email"},
			Category:      ai.CategoryCreative,
			Complexity:    ai.ComplexityIntermediate,
		},
	}
}

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func validateBody(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestScoringStatsContract(t *testing.T) {
	schema := compileSchema(t, "scoring_stats.schema.json")
	stats := handler.NewStatsHandler(stubEvaluationService{scores: sampleScores()}, zerolog.Nop())

	app := fiber.New()
	stats.Register(app.Group("/api/v1/stats"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/stats/scoring", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateBody(t, schema, resp)
}

func TestScoringStatsContractEmptyCorpus(t *testing.T) {
	schema := compileSchema(t, "scoring_stats.schema.json")
	stats := handler.NewStatsHandler(stubEvaluationService{}, zerolog.Nop())

	app := fiber.New()
	stats.Register(app.Group("/api/v1/stats"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/stats/scoring?category=technical", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateBody(t, schema, resp)
}

func TestBatchEvaluationContract(t *testing.T) {
	schema := compileSchema(t, "batch_evaluation.schema.json")
	prompts := handler.NewPromptHandler(nil, stubEvaluationService{scores: sampleScores()}, nil, zerolog.Nop())

	app := fiber.New()
	prompts.Register(app.Group("/api/v1/prompts"))

	payload, err := json.Marshal(dto.BatchEvaluateRequest{PromptIDs: []uint{4, 5, 6}})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/prompts/evaluate/batch", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateBody(t, schema, resp)
}
