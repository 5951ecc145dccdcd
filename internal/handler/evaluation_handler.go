package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tutorq-api/internal/dto"
	"github.com/noah-isme/tutorq-api/internal/service"
	"github.com/noah-isme/tutorq-api/internal/utils"
)

// EvaluationHandler exposes on-demand AI evaluation of a session transcript.
type EvaluationHandler struct {
	service   service.EvaluationService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(service service.EvaluationService, validate *validator.Validate, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires evaluation routes. Extra handlers such as a rate limiter run
// before the evaluate endpoint.
func (h *EvaluationHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/evaluate", withGuards(guards, h.evaluate)...)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	var payload dto.EvaluateSessionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "session_id is required", validationDetails(err))
	}

	result, err := h.service.EvaluateSession(c.UserContext(), payload.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "session not found")
		case errors.Is(err, service.ErrTranscriptMissing):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEvaluatorUnavailable):
			return utils.SendError(c, fiber.StatusServiceUnavailable, "evaluation is not configured")
		default:
			requestLogger(h.logger, c).Error().Err(err).Str("session_id", payload.SessionID).Msg("session evaluation failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to evaluate session")
		}
	}

	message := "session evaluated"
	if result.Cached {
		message = "evaluation already exists"
	}
	return utils.SendSuccess(c, message, result)
}
