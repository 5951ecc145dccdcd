package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/tutorq-api/internal/riskmetrics"
)

// Config holds runtime configuration values for the API service and batch commands.
type Config struct {
	AppName               string
	AppEnv                string
	AppPort               string
	DatabaseURL           string
	RedisURL              string
	NATSURL               string
	EventsChannel         string
	JWTSecret             string
	DashboardCacheTTL     time.Duration
	AIProvider            string
	AIModel               string
	AIMaxTokens           int
	AITemperature         float32
	AIMaxRetries          int
	OpenAIAPIKey          string
	EvaluationBatchSize   int
	EvaluationMaxPerRun   int
	EvaluationBatchPause  time.Duration
	EvaluateRatePerMinute int
	AnalyticsConcurrency  int
	Thresholds            riskmetrics.Thresholds
	SeedEnabled           bool
	SeedToken             string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// ValidateForServer checks the values only the HTTP server depends on.
func (c Config) ValidateForServer() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database url must be provided")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret must be provided")
	}
	return nil
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TUTORQ")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaults := riskmetrics.DefaultThresholds()

	v.SetDefault("app.name", "TutorQ API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.channel", "tutorq")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4o")
	v.SetDefault("ai.max_tokens", 1000)
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("evaluation.batch_size", 5)
	v.SetDefault("evaluation.max_per_run", 100)
	v.SetDefault("evaluation.batch_pause", "1s")
	v.SetDefault("rate_limit.evaluate_per_minute", 10)
	v.SetDefault("analytics.concurrency", 4)
	v.SetDefault("analytics.window_days", defaults.WindowDays)
	v.SetDefault("analytics.thresholds.high_rescheduler", defaults.HighReschedulerThreshold)
	v.SetDefault("analytics.thresholds.no_show_high", defaults.NoShowHighThreshold)
	v.SetDefault("analytics.thresholds.no_show_medium", defaults.NoShowMediumThreshold)
	v.SetDefault("analytics.thresholds.poor_first_session", defaults.PoorFirstSessionThreshold)
	v.SetDefault("analytics.thresholds.churn_rating_low", defaults.ChurnRiskRatingLowThreshold)
	v.SetDefault("analytics.thresholds.churn_ai_score_low", defaults.ChurnRiskAIScoreLowThreshold)
	v.SetDefault("seed.enabled", false)

	ttl, err := parseDuration(v.GetString("dashboard.cache_ttl"), 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	pause, err := parseDuration(v.GetString("evaluation.batch_pause"), time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid evaluation batch pause: %w", err)
	}

	thresholds := riskmetrics.Thresholds{
		WindowDays:                   v.GetInt("analytics.window_days"),
		HighReschedulerThreshold:     v.GetFloat64("analytics.thresholds.high_rescheduler"),
		NoShowHighThreshold:          v.GetFloat64("analytics.thresholds.no_show_high"),
		NoShowMediumThreshold:        v.GetFloat64("analytics.thresholds.no_show_medium"),
		PoorFirstSessionThreshold:    v.GetFloat64("analytics.thresholds.poor_first_session"),
		ChurnRiskRatingLowThreshold:  v.GetFloat64("analytics.thresholds.churn_rating_low"),
		ChurnRiskAIScoreLowThreshold: v.GetFloat64("analytics.thresholds.churn_ai_score_low"),
	}
	if err := thresholds.Validate(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		DatabaseURL:           v.GetString("database.url"),
		RedisURL:              v.GetString("redis.url"),
		NATSURL:               v.GetString("nats.url"),
		EventsChannel:         v.GetString("events.channel"),
		JWTSecret:             v.GetString("jwt.secret"),
		DashboardCacheTTL:     ttl,
		AIProvider:            strings.ToLower(v.GetString("ai.provider")),
		AIModel:               v.GetString("ai.model"),
		AIMaxTokens:           v.GetInt("ai.max_tokens"),
		AITemperature:         float32(v.GetFloat64("ai.temperature")),
		AIMaxRetries:          v.GetInt("ai.max_retries"),
		OpenAIAPIKey:          v.GetString("openai_api_key"),
		EvaluationBatchSize:   v.GetInt("evaluation.batch_size"),
		EvaluationMaxPerRun:   v.GetInt("evaluation.max_per_run"),
		EvaluationBatchPause:  pause,
		EvaluateRatePerMinute: v.GetInt("rate_limit.evaluate_per_minute"),
		AnalyticsConcurrency:  v.GetInt("analytics.concurrency"),
		Thresholds:            thresholds,
		SeedEnabled:           v.GetBool("seed.enabled"),
		SeedToken:             v.GetString("seed.token"),
	}

	if cfg.EvaluationBatchSize <= 0 {
		cfg.EvaluationBatchSize = 5
	}

	if cfg.EvaluationMaxPerRun <= 0 {
		cfg.EvaluationMaxPerRun = 100
	}

	if cfg.AnalyticsConcurrency <= 0 {
		cfg.AnalyticsConcurrency = 4
	}

	if cfg.AIMaxRetries <= 0 {
		cfg.AIMaxRetries = 3
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
