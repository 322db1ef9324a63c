package router_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/promptvault-api/internal/config"
	"github.com/noah-isme/promptvault-api/internal/handler"
	"github.com/noah-isme/promptvault-api/internal/middleware"
	"github.com/noah-isme/promptvault-api/internal/router"
	"github.com/noah-isme/promptvault-api/internal/service"
)

func TestRegisterProtectsPromptRoutes(t *testing.T) {
	app := fiber.New()
	logger := zerolog.Nop()
	var evaluations service.EvaluationService
	router.Register(app, config.Config{AppName: "PromptVault API"}, router.Dependencies{
		PromptHandler: handler.NewPromptHandler(nil, evaluations, nil, logger),
		StatsHandler:  handler.NewStatsHandler(evaluations, logger),
		JWTMiddleware: middleware.JWTProtected("secret"),
	})

	for _, path := range []string{"/api/v1/prompts", "/api/v1/stats/scoring"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "PromptVault API", resp.Header.Get("X-Application"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "go_goroutines")
}
