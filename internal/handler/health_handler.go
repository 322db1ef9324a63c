package handler

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/promptvault-api/internal/config"
	"github.com/noah-isme/promptvault-api/internal/utils"
)

const healthProbeTimeout = 2 * time.Second

// HealthProbe reports whether one backing dependency answers.
type HealthProbe func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	AIProvider  string            `json:"ai_provider"`
	Components  map[string]string `json:"components,omitempty"`
}

// HealthCheck reports service identity and the state of each probed dependency. A failing
// probe marks the service degraded and answers 503 so load balancers drain the instance.
func HealthCheck(cfg config.Config, probes map[string]HealthProbe) fiber.Handler {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)

	provider := "disabled"
	if cfg.AIEnabled() {
		provider = cfg.AIProvider
	}

	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			AIProvider:  provider,
		}

		if len(names) > 0 {
			payload.Components = make(map[string]string, len(names))
			for _, name := range names {
				ctx, cancel := context.WithTimeout(c.UserContext(), healthProbeTimeout)
				err := probes[name](ctx)
				cancel()
				if err != nil {
					payload.Components[name] = "unavailable"
					payload.Status = "degraded"
					continue
				}
				payload.Components[name] = "ok"
			}
		}

		if payload.Status != "ok" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(utils.APIResponse{
				Success: false,
				Data:    payload,
				Message: "service degraded",
			})
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
