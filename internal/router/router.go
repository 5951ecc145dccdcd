package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/tutorq-api/internal/config"
	"github.com/noah-isme/tutorq-api/internal/handler"
	"github.com/noah-isme/tutorq-api/internal/middleware"
	"github.com/noah-isme/tutorq-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TutorHandler          *handler.TutorHandler
	FirstSessionHandler   *handler.FirstSessionHandler
	EvaluationHandler     *handler.EvaluationHandler
	AdminAnalyticsHandler *handler.AdminAnalyticsHandler
	SeedHandler           *handler.SeedHandler
	HealthProbes          map[string]handler.HealthProbe
	JWTMiddleware         fiber.Handler
	EvaluateLimiter       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	if deps.TutorHandler != nil {
		deps.TutorHandler.Register(api.Group("/tutors"))
	}

	if deps.FirstSessionHandler != nil {
		deps.FirstSessionHandler.Register(api.Group("/first-sessions"))
	}

	if deps.EvaluationHandler != nil {
		var guards []fiber.Handler
		if deps.EvaluateLimiter != nil {
			guards = append(guards, deps.EvaluateLimiter)
		}
		deps.EvaluationHandler.Register(api.Group("/sessions"), guards...)
	}

	admin := api.Group("/admin")

	// Seeding authenticates with its own token header instead of a JWT.
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(admin.Group("/seed"))
	}

	if deps.AdminAnalyticsHandler != nil {
		deps.AdminAnalyticsHandler.Register(admin, jwtMiddleware, middleware.RequireRole("admin"))
	}
}
