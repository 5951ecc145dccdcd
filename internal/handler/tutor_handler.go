package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tutorq-api/internal/dto"
	"github.com/noah-isme/tutorq-api/internal/service"
	"github.com/noah-isme/tutorq-api/internal/utils"
)

// TutorHandler exposes the tutor overview and drill-down endpoints.
type TutorHandler struct {
	service service.TutorService
	logger  zerolog.Logger
}

// NewTutorHandler constructs a tutor handler.
func NewTutorHandler(service service.TutorService, logger zerolog.Logger) *TutorHandler {
	return &TutorHandler{
		service: service,
		logger:  logger.With().Str("component", "tutor_handler").Logger(),
	}
}

// Register wires tutor routes.
func (h *TutorHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:id", h.get)
}

func (h *TutorHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	req := dto.TutorListRequest{
		SortBy:    strings.TrimSpace(c.Query("sortBy")),
		Order:     strings.ToLower(strings.TrimSpace(c.Query("order"))),
		Subject:   c.Query("subject"),
		RiskLevel: strings.ToLower(strings.TrimSpace(c.Query("riskLevel"))),
		Limit:     limit,
		Offset:    offset,
	}

	result, err := h.service.List(c.UserContext(), req)
	if err != nil {
		if isValidationError(err) {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid query parameters", validationDetails(err))
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list tutors")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch tutors")
	}

	return utils.OK(c, result.Items, "tutors", result.Meta)
}

func (h *TutorHandler) get(c *fiber.Ctx) error {
	tutorID := strings.TrimSpace(c.Params("id"))
	if tutorID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "tutor id is required")
	}

	detail, err := h.service.Get(c.UserContext(), tutorID)
	if err != nil {
		if errors.Is(err, service.ErrTutorNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "tutor not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Str("tutor_id", tutorID).Msg("failed to fetch tutor")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch tutor details")
	}

	return utils.SendSuccess(c, "tutor detail", detail)
}
