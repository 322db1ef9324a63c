package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptvault-api/internal/dto"
	"github.com/noah-isme/promptvault-api/internal/service"
	"github.com/noah-isme/promptvault-api/internal/utils"
)

// PromptHandler exposes prompt library and evaluation endpoints.
type PromptHandler struct {
	prompts       service.PromptService
	evaluations   service.EvaluationService
	evaluateGuard fiber.Handler
	logger        zerolog.Logger
}

// NewPromptHandler constructs a prompt handler. The guard, typically a rate limiter, runs before
// every route that calls the AI provider.
func NewPromptHandler(prompts service.PromptService, evaluations service.EvaluationService, evaluateGuard fiber.Handler, logger zerolog.Logger) *PromptHandler {
	if evaluateGuard == nil {
		evaluateGuard = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &PromptHandler{
		prompts:       prompts,
		evaluations:   evaluations,
		evaluateGuard: evaluateGuard,
		logger:        logger.With().Str("component", "prompt_handler").Logger(),
	}
}

// Register wires prompt routes.
func (h *PromptHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Post("/upload", h.upload)
	router.Get("", h.list)
	router.Post("/evaluate/batch", h.evaluateGuard, h.batchEvaluate)
	router.Get("/:id", h.get)
	router.Post("/:id/use", h.use)
	router.Post("/:id/evaluate", h.evaluateGuard, h.evaluate)
	router.Get("/:id/evaluation", h.evaluation)
}

func (h *PromptHandler) create(c *fiber.Ctx) error {
	var req dto.PromptCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.prompts.Create(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return h.handleError(c, err, "failed to create prompt")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "prompt created", result)
}

func (h *PromptHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	meta := dto.PromptUploadRequest{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Visibility:  c.FormValue("visibility"),
		Tags:        c.FormValue("tags"),
	}

	result, err := h.prompts.Upload(c.UserContext(), actorFromContext(c), file, meta)
	if err != nil {
		return h.handleError(c, err, "upload failed")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "prompt uploaded", result)
}

func (h *PromptHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	req := dto.PromptListRequest{
		Search:     strings.TrimSpace(c.Query("search")),
		Category:   strings.TrimSpace(c.Query("category")),
		Complexity: strings.TrimSpace(c.Query("complexity")),
		Tags:       splitAndTrim(c.Query("tags")),
		Mine:       parseQueryBool(c, "mine"),
		Sort:       c.Query("sort"),
		Page:       page,
		PageSize:   pageSize,
	}

	result, err := h.prompts.List(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return h.handleError(c, err, "failed to list prompts")
	}

	return utils.OK(c, result.Items, "prompts retrieved", result.Pagination)
}

func (h *PromptHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid prompt id")
	}

	result, err := h.prompts.Get(c.UserContext(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to load prompt")
	}

	return utils.SendSuccess(c, "prompt retrieved", result)
}

func (h *PromptHandler) use(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid prompt id")
	}

	result, err := h.prompts.Use(c.UserContext(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to record prompt usage")
	}

	return utils.SendSuccess(c, "prompt usage recorded", result)
}

func (h *PromptHandler) evaluate(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid prompt id")
	}

	result, err := h.evaluations.Evaluate(c.UserContext(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to evaluate prompt")
	}

	return utils.SendSuccess(c, "prompt evaluated", result)
}

func (h *PromptHandler) evaluation(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid prompt id")
	}

	result, err := h.evaluations.GetEvaluation(c.UserContext(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to load evaluation")
	}

	return utils.SendSuccess(c, "evaluation retrieved", result)
}

func (h *PromptHandler) batchEvaluate(c *fiber.Ctx) error {
	var req dto.BatchEvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.evaluations.BatchEvaluate(c.UserContext(), req, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err, "batch evaluation failed")
	}

	requestLogger(h.logger, c).Info().
		Str("batch_id", result.BatchID).
		Int("total", result.Total).
		Int("failed", result.Failed).
		Msg("batch evaluation served")

	return utils.SendSuccess(c, "batch evaluation completed", result)
}

func (h *PromptHandler) handleError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrPromptInvalid), errors.Is(err, service.ErrBatchTooLarge):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPromptNotFound), errors.Is(err, service.ErrEvaluationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPromptForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, service.ErrEvaluatorUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
