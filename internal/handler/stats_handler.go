package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptvault-api/internal/dto"
	"github.com/noah-isme/promptvault-api/internal/service"
	"github.com/noah-isme/promptvault-api/internal/utils"
)

// StatsHandler exposes aggregate scoring statistics.
type StatsHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewStatsHandler constructs a stats handler.
func NewStatsHandler(service service.EvaluationService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Register wires stats routes.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/scoring", h.scoring)
}

func (h *StatsHandler) scoring(c *fiber.Ctx) error {
	req := dto.ScoringStatsRequest{
		Category: c.Query("category"),
		Mine:     parseQueryBool(c, "mine"),
	}

	result, err := h.service.Stats(c.UserContext(), req, actorFromContext(c))
	if err != nil {
		if isValidationError(err) {
			return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to compute scoring stats")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to compute scoring stats")
	}

	return utils.SendSuccess(c, "scoring stats retrieved", result)
}
