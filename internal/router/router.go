package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/promptvault-api/internal/config"
	"github.com/noah-isme/promptvault-api/internal/handler"
	"github.com/noah-isme/promptvault-api/internal/middleware"
	"github.com/noah-isme/promptvault-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	PromptHandler *handler.PromptHandler
	StatsHandler  *handler.StatsHandler
	JWTMiddleware fiber.Handler
	HealthProbes  map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	requireUser := middleware.WithAuth(func(c *fiber.Ctx) error { return c.Next() }, middleware.AuthOptions{Role: middleware.AuthRoleUser})

	if deps.PromptHandler != nil {
		prompts := api.Group("/prompts", jwtMiddleware, requireUser)
		deps.PromptHandler.Register(prompts)
	}

	if deps.StatsHandler != nil {
		stats := api.Group("/stats", jwtMiddleware, requireUser)
		deps.StatsHandler.Register(stats)
	}
}
