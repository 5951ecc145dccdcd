package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tutorq-api/internal/riskmetrics"
	"github.com/noah-isme/tutorq-api/internal/service"
	"github.com/noah-isme/tutorq-api/internal/utils"
)

// AdminAnalyticsHandler exposes operator endpoints that trigger batch jobs.
type AdminAnalyticsHandler struct {
	analytics   service.AnalyticsPipelineService
	evaluations service.EvaluationService
	logger      zerolog.Logger
}

// NewAdminAnalyticsHandler constructs the handler.
func NewAdminAnalyticsHandler(analytics service.AnalyticsPipelineService, evaluations service.EvaluationService, logger zerolog.Logger) *AdminAnalyticsHandler {
	return &AdminAnalyticsHandler{
		analytics:   analytics,
		evaluations: evaluations,
		logger:      logger.With().Str("component", "admin_analytics_handler").Logger(),
	}
}

// Register attaches the batch routes to the router group. guards run before
// each route, typically authentication and role checks.
func (h *AdminAnalyticsHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/analytics/run", withGuards(guards, h.runAnalytics)...)
	router.Post("/evaluations/run", withGuards(guards, h.runEvaluations)...)
}

func (h *AdminAnalyticsHandler) runAnalytics(c *fiber.Ctx) error {
	summary, err := h.analytics.Run(c.UserContext())
	if err != nil {
		switch {
		case errors.Is(err, riskmetrics.ErrInvalidThresholds):
			requestLogger(h.logger, c).Error().Err(err).Msg("analytics thresholds rejected")
			return utils.SendError(c, fiber.StatusInternalServerError, "analytics thresholds are invalid")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return utils.Fail(c, fiber.StatusServiceUnavailable, "analytics run interrupted", summary)
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("analytics run failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "analytics run failed")
		}
	}

	return utils.SendSuccess(c, "analytics run complete", summary)
}

func (h *AdminAnalyticsHandler) runEvaluations(c *fiber.Ctx) error {
	summary, err := h.evaluations.RunPending(c.UserContext())
	if err != nil {
		if errors.Is(err, service.ErrEvaluatorUnavailable) {
			return utils.SendError(c, fiber.StatusServiceUnavailable, "evaluation is not configured")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("evaluation run failed")
		return utils.Fail(c, fiber.StatusInternalServerError, "evaluation run failed", summary)
	}

	return utils.SendSuccess(c, "evaluation run complete", summary)
}
