// Package bootstrap wires configuration, infrastructure clients and services
// shared by the HTTP server and the batch CLI.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/tutorq-api/internal/config"
	"github.com/noah-isme/tutorq-api/internal/database"
	"github.com/noah-isme/tutorq-api/internal/events"
	"github.com/noah-isme/tutorq-api/internal/repository"
	"github.com/noah-isme/tutorq-api/internal/service"
	"github.com/noah-isme/tutorq-api/pkg/ai"
)

// Container holds every long-lived dependency of a process.
type Container struct {
	Config    config.Config
	Logger    zerolog.Logger
	DB        *gorm.DB
	Redis     *redis.Client
	NATS      *nats.Conn
	Bus       *events.Bus
	Cache     *service.DashboardCache
	Validator *validator.Validate
	Evaluator ai.Evaluator

	Tutors        service.TutorService
	FirstSessions service.FirstSessionService
	Evaluations   service.EvaluationService
	Analytics     service.AnalyticsPipelineService
	Seed          service.SeedService
}

// NewLogger builds the process logger; development runs get human-readable output.
func NewLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level := zerolog.InfoLevel
	if cfg.AppEnv == "development" {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()
}

// New connects to PostgreSQL, migrates the schema and builds the container.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Container, error) {
	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return NewWithDB(ctx, cfg, logger, db)
}

// NewWithDB builds the container on an already opened database. Redis, NATS
// and the AI evaluator are optional and skipped when unconfigured.
func NewWithDB(ctx context.Context, cfg config.Config, logger zerolog.Logger, db *gorm.DB) (*Container, error) {
	c := &Container{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Validator: validator.New(validator.WithRequiredStructEnabled()),
	}

	if cfg.RedisURL != "" {
		client, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		c.Redis = client
	} else {
		logger.Warn().Msg("redis url not set; dashboard caching and redis events disabled")
	}

	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.NATS = conn
	}

	c.Bus = events.NewBus(c.Redis, c.NATS, cfg.EventsChannel, logger)
	c.Cache = service.NewDashboardCache(c.Redis, cfg.DashboardCacheTTL, logger)

	evaluator, err := newEvaluator(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Evaluator = evaluator

	tutors := repository.NewTutorRepository(db)
	sessions := repository.NewSessionRepository(db)
	evaluations := repository.NewEvaluationRepository(db)
	metrics := repository.NewTutorMetricRepository(db)

	c.Tutors = service.NewTutorService(tutors, sessions, metrics, c.Validator, c.Cache, cfg.Thresholds.WindowDays, logger)
	c.FirstSessions = service.NewFirstSessionService(sessions, metrics, c.Validator, c.Cache, logger)
	c.Evaluations = service.NewEvaluationService(sessions, evaluations, c.Evaluator, service.EvaluationConfig{
		BatchSize:  cfg.EvaluationBatchSize,
		MaxPerRun:  cfg.EvaluationMaxPerRun,
		BatchPause: cfg.EvaluationBatchPause,
	}, c.Bus, logger)
	c.Analytics = service.NewAnalyticsPipelineService(tutors, sessions, evaluations, metrics, service.AnalyticsPipelineConfig{
		Thresholds:  cfg.Thresholds,
		Concurrency: cfg.AnalyticsConcurrency,
	}, c.Cache, c.Bus, logger)
	c.Seed = service.NewSeedService(repository.NewSeedRepository(db), c.Validator, c.Cache, cfg.SeedEnabled, cfg.SeedToken, logger)

	return c, nil
}

func newEvaluator(cfg config.Config, logger zerolog.Logger) (ai.Evaluator, error) {
	switch cfg.AIProvider {
	case "", "none":
		return nil, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn().Msg("openai api key not set; session evaluation disabled")
			return nil, nil
		}
		evaluator, err := ai.NewOpenAIEvaluator(ai.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.AIModel,
			MaxTokens:   cfg.AIMaxTokens,
			Temperature: cfg.AITemperature,
			MaxRetries:  cfg.AIMaxRetries,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return evaluator, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}
}

// Close releases every client the container opened.
func (c *Container) Close() {
	if c.Bus != nil {
		c.Bus.Close()
	}
	if c.NATS != nil {
		c.NATS.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
