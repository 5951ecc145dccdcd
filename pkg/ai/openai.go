package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const providerOpenAI = "openai"

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tutorq",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI evaluation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutorq",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of AI evaluation attempts that failed",
	}, []string{"model"})

	aiCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutorq",
		Subsystem: "ai",
		Name:      "evaluation_cache_hits_total",
		Help:      "Number of evaluations served from the in-memory cache",
	}, []string{"model"})
)

// ErrMissingTranscript is returned when there is nothing to evaluate.
var ErrMissingTranscript = errors.New("transcript is empty")

// ChatCompleter is the subset of the OpenAI client used by the evaluator.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig defines configuration options for the OpenAI evaluator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	MaxRetries  int
	// BaseBackoff is multiplied by 2^attempt between retries.
	BaseBackoff time.Duration
	Logger      zerolog.Logger
	// Client overrides the HTTP client built from APIKey.
	Client ChatCompleter
}

// OpenAIEvaluator implements Evaluator against the OpenAI chat completion API.
type OpenAIEvaluator struct {
	client ChatCompleter
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error

	mu    sync.RWMutex
	cache map[string]EvaluationResult
}

// NewOpenAIEvaluator builds a new evaluator using the provided configuration.
func NewOpenAIEvaluator(cfg OpenAIConfig) (*OpenAIEvaluator, error) {
	if cfg.Client == nil && cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}

	client := cfg.Client
	if client == nil {
		client = openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey))
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIEvaluator{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/tutorq-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_evaluator").Logger(),
		sleep:  sleepContext,
		cache:  make(map[string]EvaluationResult),
	}, nil
}

// Provider returns the provider identifier stored with each evaluation.
func (e *OpenAIEvaluator) Provider() string { return providerOpenAI }

// Model returns the configured chat model.
func (e *OpenAIEvaluator) Model() string { return e.cfg.Model }

// Evaluate grades the transcript, retrying transient failures with exponential backoff.
// Results are memoised per session id until Forget or Reset is called.
func (e *OpenAIEvaluator) Evaluate(parent context.Context, input SessionInput, transcript string) (EvaluationResult, error) {
	if strings.TrimSpace(transcript) == "" {
		return EvaluationResult{}, ErrMissingTranscript
	}

	if cached, ok := e.cached(input.SessionID); ok {
		aiCacheHits.WithLabelValues(e.cfg.Model).Inc()
		return cached, nil
	}

	ctx, span := e.tracer.Start(parent, "openai.evaluate", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.String("session_id", input.SessionID),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: evaluatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(input, transcript)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		result, err := e.attempt(ctx, request)
		if err == nil {
			span.SetAttributes(attribute.Int("quality_score", result.QualityScore), attribute.Int("attempts", attempt))
			e.store(input.SessionID, result)
			return result, nil
		}

		lastErr = err
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		e.logger.Warn().Err(err).Str("session_id", input.SessionID).Int("attempt", attempt).Msg("evaluation attempt failed")

		if attempt == e.cfg.MaxRetries {
			break
		}
		if err := e.sleep(ctx, e.cfg.BaseBackoff*time.Duration(1<<attempt)); err != nil {
			lastErr = err
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return EvaluationResult{}, fmt.Errorf("openai evaluate session %s: %w", input.SessionID, lastErr)
}

func (e *OpenAIEvaluator) attempt(ctx context.Context, request openai.ChatCompletionRequest) (EvaluationResult, error) {
	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(e.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return EvaluationResult{}, err
	}

	if len(resp.Choices) == 0 {
		return EvaluationResult{}, fmt.Errorf("no choices returned from openai")
	}

	result, err := ParseEvaluationResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return EvaluationResult{}, err
	}

	result.Raw = map[string]interface{}{
		"model":             resp.Model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}
	return result, nil
}

// Forget drops the memoised evaluation for one session.
func (e *OpenAIEvaluator) Forget(sessionID string) {
	e.mu.Lock()
	delete(e.cache, sessionID)
	e.mu.Unlock()
}

// Reset drops every memoised evaluation.
func (e *OpenAIEvaluator) Reset() {
	e.mu.Lock()
	e.cache = make(map[string]EvaluationResult)
	e.mu.Unlock()
}

func (e *OpenAIEvaluator) cached(sessionID string) (EvaluationResult, bool) {
	if sessionID == "" {
		return EvaluationResult{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	result, ok := e.cache[sessionID]
	return result, ok
}

func (e *OpenAIEvaluator) store(sessionID string, result EvaluationResult) {
	if sessionID == "" {
		return
	}
	e.mu.Lock()
	e.cache[sessionID] = result
	e.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
