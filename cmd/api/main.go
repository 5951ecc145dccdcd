package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tutorq-api/internal/bootstrap"
	"github.com/noah-isme/tutorq-api/internal/config"
	"github.com/noah-isme/tutorq-api/internal/events"
	"github.com/noah-isme/tutorq-api/internal/handler"
	"github.com/noah-isme/tutorq-api/internal/middleware"
	"github.com/noah-isme/tutorq-api/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.ValidateForServer(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := bootstrap.NewLogger(cfg, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialise dependencies: %v", err)
	}
	defer container.Close()

	if err := container.Bus.Subscribe(ctx, invalidateOnEvents(container, logger)); err != nil {
		logger.Warn().Err(err).Msg("event subscription unavailable")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		TutorHandler:          handler.NewTutorHandler(container.Tutors, logger),
		FirstSessionHandler:   handler.NewFirstSessionHandler(container.FirstSessions, logger),
		EvaluationHandler:     handler.NewEvaluationHandler(container.Evaluations, container.Validator, logger),
		AdminAnalyticsHandler: handler.NewAdminAnalyticsHandler(container.Analytics, container.Evaluations, logger),
		SeedHandler:           handler.NewSeedHandler(container.Seed, logger),
		HealthProbes:          healthProbes(container),
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
		EvaluateLimiter:       middleware.RateLimit("evaluate", cfg.EvaluateRatePerMinute, time.Minute),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, app, logger)
}

// invalidateOnEvents drops cached dashboard views when another process
// finishes an analytics run.
func invalidateOnEvents(container *bootstrap.Container, logger zerolog.Logger) events.Handler {
	return func(event events.Event) {
		switch event.Type {
		case events.TypeAnalyticsCompleted:
			if err := container.Cache.Invalidate(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("failed to invalidate dashboard cache")
				return
			}
			logger.Info().Str("source", event.Source).Msg("dashboard cache invalidated after analytics run")
		case events.TypeEvaluationStored:
			logger.Debug().RawJSON("payload", event.Payload).Msg("session evaluation stored")
		}
	}
}

func healthProbes(container *bootstrap.Container) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := container.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if container.Redis != nil {
		probes["redis"] = func(ctx context.Context) error {
			return container.Redis.Ping(ctx).Err()
		}
	}
	return probes
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
