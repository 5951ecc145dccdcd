package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/tutorq-api/internal/dto"
	"github.com/noah-isme/tutorq-api/internal/events"
	"github.com/noah-isme/tutorq-api/internal/models"
	"github.com/noah-isme/tutorq-api/internal/observability"
	"github.com/noah-isme/tutorq-api/internal/repository"
	"github.com/noah-isme/tutorq-api/pkg/ai"
)

var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTranscriptMissing indicates the session has nothing to evaluate.
	ErrTranscriptMissing = errors.New("no transcript available for this session")
	// ErrEvaluatorUnavailable indicates no AI evaluator is configured.
	ErrEvaluatorUnavailable = errors.New("evaluator unavailable")
)

// EvaluationService grades session transcripts with the configured AI evaluator.
type EvaluationService interface {
	EvaluateSession(ctx context.Context, sessionID string) (dto.SessionEvaluationResponse, error)
	RunPending(ctx context.Context) (dto.EvaluationRunSummary, error)
}

// EvaluationConfig controls batch evaluation runs.
type EvaluationConfig struct {
	BatchSize  int
	MaxPerRun  int
	BatchPause time.Duration
}

type evaluationService struct {
	sessions    repository.SessionRepository
	evaluations repository.EvaluationRepository
	evaluator   ai.Evaluator
	cfg         EvaluationConfig
	publisher   events.Publisher
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewEvaluationService constructs the evaluation service. evaluator may be nil
// when no provider is configured; stored evaluations are still served.
func NewEvaluationService(sessions repository.SessionRepository, evaluations repository.EvaluationRepository, evaluator ai.Evaluator, cfg EvaluationConfig, publisher events.Publisher, logger zerolog.Logger) EvaluationService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.MaxPerRun <= 0 {
		cfg.MaxPerRun = 100
	}
	if publisher == nil {
		publisher = events.Discard{}
	}

	return &evaluationService{
		sessions:    sessions,
		evaluations: evaluations,
		evaluator:   evaluator,
		cfg:         cfg,
		publisher:   publisher,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/tutorq-api/internal/service/evaluation"),
		now:         time.Now,
		sleep:       pause,
	}
}

func (s *evaluationService) EvaluateSession(ctx context.Context, sessionID string) (dto.SessionEvaluationResponse, error) {
	sessionID = strings.TrimSpace(sessionID)
	spanCtx, span := s.tracer.Start(ctx, "evaluations.evaluate_session", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	existing, err := s.evaluations.GetBySessionID(spanCtx, sessionID)
	if err == nil {
		observability.Evaluations().WithLabelValues("cached").Inc()
		return dto.NewSessionEvaluationResponse(existing, true), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		return dto.SessionEvaluationResponse{}, err
	}

	session, err := s.sessions.GetByID(spanCtx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionEvaluationResponse{}, ErrSessionNotFound
		}
		span.RecordError(err)
		return dto.SessionEvaluationResponse{}, err
	}

	evaluation, written, err := s.evaluateAndStore(spanCtx, session)
	if err != nil {
		span.RecordError(err)
		return dto.SessionEvaluationResponse{}, err
	}

	return dto.NewSessionEvaluationResponse(evaluation, !written), nil
}

func (s *evaluationService) RunPending(ctx context.Context) (dto.EvaluationRunSummary, error) {
	if s.evaluator == nil {
		return dto.EvaluationRunSummary{}, ErrEvaluatorUnavailable
	}

	started := s.now().UTC()
	spanCtx, span := s.tracer.Start(ctx, "evaluations.run_pending")
	defer span.End()

	pending, err := s.sessions.ListPendingEvaluation(spanCtx, s.cfg.MaxPerRun)
	if err != nil {
		span.RecordError(err)
		return dto.EvaluationRunSummary{}, fmt.Errorf("list pending sessions: %w", err)
	}

	summary := dto.EvaluationRunSummary{Pending: len(pending), StartedAt: started}
	var mu sync.Mutex

	for offset := 0; offset < len(pending); offset += s.cfg.BatchSize {
		if offset > 0 {
			if err := s.sleep(spanCtx, s.cfg.BatchPause); err != nil {
				break
			}
		}

		end := offset + s.cfg.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		summary.Batches++

		group := errgroup.Group{}
		for _, session := range pending[offset:end] {
			group.Go(func() error {
				_, _, err := s.evaluateAndStore(spanCtx, session)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					summary.Failed++
					s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("session evaluation failed")
					return nil
				}
				summary.Evaluated++
				return nil
			})
		}
		_ = group.Wait()

		s.logger.Info().
			Int("batch", summary.Batches).
			Int("evaluated", summary.Evaluated).
			Int("failed", summary.Failed).
			Msg("evaluation batch complete")
	}

	summary.ScoreDistribution = map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	buckets, err := s.evaluations.ScoreDistribution(context.WithoutCancel(spanCtx))
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load score distribution")
	}
	for _, bucket := range buckets {
		summary.ScoreDistribution[bucket.QualityScore] = bucket.Count
	}

	finished := s.now().UTC()
	summary.FinishedAt = finished
	summary.DurationMS = finished.Sub(started).Milliseconds()

	span.SetAttributes(attribute.Int("evaluations.evaluated", summary.Evaluated), attribute.Int("evaluations.failed", summary.Failed))
	s.logger.Info().
		Int("pending", summary.Pending).
		Int("evaluated", summary.Evaluated).
		Int("failed", summary.Failed).
		Interface("score_distribution", summary.ScoreDistribution).
		Int64("duration_ms", summary.DurationMS).
		Msg("evaluation run finished")

	if err := spanCtx.Err(); err != nil {
		return summary, fmt.Errorf("evaluation run interrupted: %w", err)
	}
	return summary, nil
}

// evaluateAndStore grades the session and persists the result. The flag is
// false when a concurrent writer stored an evaluation first; the stored row is
// returned in that case.
func (s *evaluationService) evaluateAndStore(ctx context.Context, session models.Session) (models.SessionEvaluation, bool, error) {
	if session.Transcript == nil || strings.TrimSpace(session.Transcript.TranscriptText) == "" {
		return models.SessionEvaluation{}, false, ErrTranscriptMissing
	}
	if s.evaluator == nil {
		return models.SessionEvaluation{}, false, ErrEvaluatorUnavailable
	}

	result, err := s.evaluator.Evaluate(ctx, sessionInput(session), session.Transcript.TranscriptText)
	if err != nil {
		observability.Evaluations().WithLabelValues("failed").Inc()
		return models.SessionEvaluation{}, false, fmt.Errorf("evaluate session %s: %w", session.ID, err)
	}

	evaluation := models.SessionEvaluation{
		SessionID:           session.ID,
		QualityScore:        result.QualityScore,
		Strengths:           datatypes.JSONSlice[string](result.Strengths),
		AreasForImprovement: datatypes.JSONSlice[string](result.AreasForImprovement),
		RiskTags:            datatypes.JSONSlice[string](result.RiskTags),
		Provider:            s.evaluator.Provider(),
		Model:               s.evaluator.Model(),
		Raw:                 datatypes.JSONMap(result.Raw),
		CreatedAt:           s.now().UTC(),
	}

	written, err := s.evaluations.Create(ctx, &evaluation)
	if err != nil {
		observability.Evaluations().WithLabelValues("failed").Inc()
		return models.SessionEvaluation{}, false, fmt.Errorf("store evaluation: %w", err)
	}
	if !written {
		existing, err := s.evaluations.GetBySessionID(ctx, session.ID)
		if err != nil {
			return models.SessionEvaluation{}, false, err
		}
		observability.Evaluations().WithLabelValues("cached").Inc()
		return existing, false, nil
	}

	observability.Evaluations().WithLabelValues("evaluated").Inc()
	s.logger.Info().Str("session_id", session.ID).Int("quality_score", evaluation.QualityScore).Msg("session evaluated")

	if err := s.publisher.Publish(ctx, events.TypeEvaluationStored, map[string]interface{}{
		"session_id":    session.ID,
		"tutor_id":      session.TutorID,
		"quality_score": evaluation.QualityScore,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish evaluation event")
	}

	return evaluation, true, nil
}

func sessionInput(session models.Session) ai.SessionInput {
	input := ai.SessionInput{
		SessionID:       session.ID,
		Subject:         session.Subject,
		FirstSession:    session.IsFirstSessionForStudent,
		Status:          session.Status,
		DurationMinutes: session.DurationMinutes,
		StudentRating:   session.StudentRating,
	}
	if session.StudentFeedback != nil {
		input.StudentFeedback = *session.StudentFeedback
	}
	return input
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
