package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tutorq-api/internal/dto"
	"github.com/noah-isme/tutorq-api/internal/service"
	"github.com/noah-isme/tutorq-api/internal/utils"
)

// FirstSessionHandler exposes the first-session conversion report.
type FirstSessionHandler struct {
	service service.FirstSessionService
	logger  zerolog.Logger
}

// NewFirstSessionHandler constructs the handler.
func NewFirstSessionHandler(service service.FirstSessionService, logger zerolog.Logger) *FirstSessionHandler {
	return &FirstSessionHandler{
		service: service,
		logger:  logger.With().Str("component", "first_session_handler").Logger(),
	}
}

// Register wires first-session routes.
func (h *FirstSessionHandler) Register(router fiber.Router) {
	router.Get("/", h.report)
}

func (h *FirstSessionHandler) report(c *fiber.Ctx) error {
	days, err := parseQueryInt(c, "days")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid days")
	}

	report, err := h.service.Report(c.UserContext(), dto.FirstSessionRequest{Days: days, Subject: c.Query("subject")})
	if err != nil {
		if isValidationError(err) {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid query parameters", validationDetails(err))
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build first-session report")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch first session data")
	}

	return utils.SendSuccess(c, "first session report", report)
}
