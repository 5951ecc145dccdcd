package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/tutorq-api/internal/dto"
	"github.com/noah-isme/tutorq-api/internal/events"
	"github.com/noah-isme/tutorq-api/internal/models"
	"github.com/noah-isme/tutorq-api/internal/observability"
	"github.com/noah-isme/tutorq-api/internal/repository"
	"github.com/noah-isme/tutorq-api/internal/riskmetrics"
)

const (
	defaultAnalyticsConcurrency = 4
	maxFailedTutorSamples       = 10

	tutorOutcomeUpdated = "updated"
	tutorOutcomeSkipped = "skipped"
	tutorOutcomeFailed  = "failed"
)

// AnalyticsPipelineService recomputes the metrics snapshot of every tutor.
type AnalyticsPipelineService interface {
	Run(ctx context.Context) (dto.AnalyticsRunSummary, error)
}

// AnalyticsPipelineConfig tunes a pipeline run.
type AnalyticsPipelineConfig struct {
	Thresholds  riskmetrics.Thresholds
	Concurrency int
}

type analyticsPipelineService struct {
	tutors      repository.TutorRepository
	sessions    repository.SessionRepository
	evaluations repository.EvaluationRepository
	metrics     repository.TutorMetricRepository
	cfg         AnalyticsPipelineConfig
	cache       *DashboardCache
	publisher   events.Publisher
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewAnalyticsPipelineService constructs the analytics pipeline. cache and
// publisher may be nil.
func NewAnalyticsPipelineService(
	tutors repository.TutorRepository,
	sessions repository.SessionRepository,
	evaluations repository.EvaluationRepository,
	metrics repository.TutorMetricRepository,
	cfg AnalyticsPipelineConfig,
	cache *DashboardCache,
	publisher events.Publisher,
	logger zerolog.Logger,
) AnalyticsPipelineService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultAnalyticsConcurrency
	}
	if publisher == nil {
		publisher = events.Discard{}
	}

	return &analyticsPipelineService{
		tutors:      tutors,
		sessions:    sessions,
		evaluations: evaluations,
		metrics:     metrics,
		cfg:         cfg,
		cache:       cache,
		publisher:   publisher,
		logger:      logger.With().Str("component", "analytics_pipeline_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/tutorq-api/internal/service/analytics"),
		now:         time.Now,
	}
}

type runAggregate struct {
	mu            sync.Mutex
	summary       dto.AnalyticsRunSummary
	rescheduleSum float64
	noShowSum     float64
	dropoutSum    float64
}

func (a *runAggregate) record(outcome string, tutorID string, snapshot riskmetrics.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch outcome {
	case tutorOutcomeSkipped:
		a.summary.TutorsSkipped++
	case tutorOutcomeFailed:
		a.summary.TutorsFailed++
		if len(a.summary.FailedTutorSamples) < maxFailedTutorSamples {
			a.summary.FailedTutorSamples = append(a.summary.FailedTutorSamples, tutorID)
		}
	case tutorOutcomeUpdated:
		a.summary.TutorsUpdated++
		a.summary.ChurnRiskLabels[string(snapshot.ChurnRiskLabel)]++
		a.summary.NoShowRiskLabels[string(snapshot.NoShowRiskLabel)]++
		if snapshot.HighReschedulerFlag {
			a.summary.Flags.HighRescheduler++
		}
		if snapshot.PoorFirstSessionFlag {
			a.summary.Flags.PoorFirstSession++
		}
		a.rescheduleSum += snapshot.TutorRescheduleRate
		a.noShowSum += snapshot.TutorNoShowRate
		a.dropoutSum += snapshot.FirstSessionDropoutRate
	}
	observability.AnalyticsTutors().WithLabelValues(outcome).Inc()
}

func (s *analyticsPipelineService) Run(ctx context.Context) (dto.AnalyticsRunSummary, error) {
	if err := s.cfg.Thresholds.Validate(); err != nil {
		return dto.AnalyticsRunSummary{}, err
	}

	now := s.now().UTC()
	windowStart := s.cfg.Thresholds.WindowStart(now)

	spanCtx, span := s.tracer.Start(ctx, "analytics.run", trace.WithAttributes(
		attribute.Int("analytics.window_days", s.cfg.Thresholds.WindowDays),
		attribute.Int("analytics.concurrency", s.cfg.Concurrency),
	))
	defer span.End()

	tutorIDs, err := s.tutors.ListIDs(spanCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.AnalyticsRuns().WithLabelValues("failed").Inc()
		return dto.AnalyticsRunSummary{}, fmt.Errorf("list tutors: %w", err)
	}

	aggregate := &runAggregate{summary: dto.AnalyticsRunSummary{
		TutorsScanned:    len(tutorIDs),
		ChurnRiskLabels:  emptyLabelCounts(),
		NoShowRiskLabels: emptyLabelCounts(),
		WindowStart:      windowStart,
		StartedAt:        now,
	}}

	s.logger.Info().
		Int("tutors", len(tutorIDs)).
		Time("window_start", windowStart).
		Int("concurrency", s.cfg.Concurrency).
		Msg("analytics run started")

	group := errgroup.Group{}
	group.SetLimit(s.cfg.Concurrency)

	cancelled := false
	for _, tutorID := range tutorIDs {
		if spanCtx.Err() != nil {
			cancelled = true
			break
		}

		group.Go(func() error {
			snapshot, outcome, err := s.processTutor(spanCtx, tutorID, windowStart, now)
			if err != nil {
				s.logger.Error().Err(err).Str("tutor_id", tutorID).Msg("failed to compute tutor metrics")
			}
			aggregate.record(outcome, tutorID, snapshot)
			return nil
		})
	}
	_ = group.Wait()

	summary := aggregate.summary
	if summary.TutorsUpdated > 0 {
		updated := float64(summary.TutorsUpdated)
		summary.AverageRates = dto.AverageRates{
			RescheduleRate:          aggregate.rescheduleSum / updated,
			NoShowRate:              aggregate.noShowSum / updated,
			FirstSessionDropoutRate: aggregate.dropoutSum / updated,
		}
	}

	finished := s.now().UTC()
	summary.FinishedAt = finished
	summary.DurationMS = finished.Sub(now).Milliseconds()
	summary.Cancelled = cancelled || spanCtx.Err() != nil

	span.SetAttributes(
		attribute.Int("analytics.tutors_updated", summary.TutorsUpdated),
		attribute.Int("analytics.tutors_failed", summary.TutorsFailed),
	)
	observability.AnalyticsRunDuration().Observe(finished.Sub(now).Seconds())

	if summary.TutorsUpdated > 0 {
		// Cache and event fan-out run even when the caller cancelled mid-run.
		if err := s.cache.Invalidate(context.WithoutCancel(spanCtx)); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate dashboard cache")
		}
		if err := s.publisher.Publish(context.WithoutCancel(spanCtx), events.TypeAnalyticsCompleted, summary); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish analytics event")
		}
	}

	s.logSummary(summary)

	if summary.Cancelled {
		observability.AnalyticsRuns().WithLabelValues("cancelled").Inc()
		span.SetStatus(codes.Error, "cancelled")
		return summary, fmt.Errorf("analytics run interrupted: %w", context.Cause(spanCtx))
	}

	observability.AnalyticsRuns().WithLabelValues("succeeded").Inc()
	return summary, nil
}

func (s *analyticsPipelineService) processTutor(ctx context.Context, tutorID string, windowStart, now time.Time) (riskmetrics.Snapshot, string, error) {
	sessions, err := s.sessions.ListByTutorSince(ctx, tutorID, windowStart)
	if err != nil {
		return riskmetrics.Snapshot{}, tutorOutcomeFailed, fmt.Errorf("load sessions: %w", err)
	}
	if len(sessions) == 0 {
		return riskmetrics.Snapshot{}, tutorOutcomeSkipped, nil
	}

	sessionIDs := make([]string, 0, len(sessions))
	for _, session := range sessions {
		sessionIDs = append(sessionIDs, session.ID)
	}

	evaluations, err := s.evaluations.ListBySessionIDs(ctx, sessionIDs)
	if err != nil {
		return riskmetrics.Snapshot{}, tutorOutcomeFailed, fmt.Errorf("load evaluations: %w", err)
	}

	snapshot, ok := riskmetrics.Compute(tutorID, toEngineSessions(sessions), toEngineEvaluations(evaluations), s.cfg.Thresholds, now)
	if !ok {
		return riskmetrics.Snapshot{}, tutorOutcomeSkipped, nil
	}

	metric := snapshotToMetric(snapshot)
	if err := s.metrics.Upsert(ctx, &metric); err != nil {
		return riskmetrics.Snapshot{}, tutorOutcomeFailed, fmt.Errorf("store metrics: %w", err)
	}

	return snapshot, tutorOutcomeUpdated, nil
}

func (s *analyticsPipelineService) logSummary(summary dto.AnalyticsRunSummary) {
	s.logger.Info().
		Int("tutors_scanned", summary.TutorsScanned).
		Int("tutors_updated", summary.TutorsUpdated).
		Int("tutors_skipped", summary.TutorsSkipped).
		Int("tutors_failed", summary.TutorsFailed).
		Interface("churn_risk_labels", summary.ChurnRiskLabels).
		Interface("no_show_risk_labels", summary.NoShowRiskLabels).
		Int("high_rescheduler_flags", summary.Flags.HighRescheduler).
		Int("poor_first_session_flags", summary.Flags.PoorFirstSession).
		Float64("avg_reschedule_rate", summary.AverageRates.RescheduleRate).
		Float64("avg_no_show_rate", summary.AverageRates.NoShowRate).
		Float64("avg_first_session_dropout_rate", summary.AverageRates.FirstSessionDropoutRate).
		Int64("duration_ms", summary.DurationMS).
		Bool("cancelled", summary.Cancelled).
		Msg("analytics run finished")
}

func emptyLabelCounts() map[string]int {
	return map[string]int{
		models.RiskLabelLow:    0,
		models.RiskLabelMedium: 0,
		models.RiskLabelHigh:   0,
	}
}

func toEngineSessions(sessions []models.Session) []riskmetrics.Session {
	result := make([]riskmetrics.Session, 0, len(sessions))
	for _, session := range sessions {
		item := riskmetrics.Session{
			Status:       riskmetrics.Status(session.Status),
			FirstSession: session.IsFirstSessionForStudent,
			Rating:       session.StudentRating,
			Churned:      session.StudentChurnedAfterSession,
		}
		if session.RescheduleInitiator != nil {
			item.Initiator = riskmetrics.Initiator(*session.RescheduleInitiator)
		}
		result = append(result, item)
	}
	return result
}

func toEngineEvaluations(evaluations []models.SessionEvaluation) []riskmetrics.Evaluation {
	result := make([]riskmetrics.Evaluation, 0, len(evaluations))
	for _, evaluation := range evaluations {
		result = append(result, riskmetrics.Evaluation{QualityScore: evaluation.QualityScore})
	}
	return result
}

func snapshotToMetric(snapshot riskmetrics.Snapshot) models.TutorMetric {
	return models.TutorMetric{
		TutorID:                 snapshot.TutorID,
		TotalSessionsLast30d:    snapshot.TotalSessions,
		FirstSessionsLast30d:    snapshot.FirstSessions,
		FirstSessionDropoutRate: snapshot.FirstSessionDropoutRate,
		TutorRescheduleRate:     snapshot.TutorRescheduleRate,
		TutorNoShowRate:         snapshot.TutorNoShowRate,
		AvgStudentRatingLast30d: snapshot.AvgStudentRating,
		AIAvgQualityScore:       snapshot.AIAvgQualityScore,
		ChurnRiskLabel:          string(snapshot.ChurnRiskLabel),
		NoShowRiskLabel:         string(snapshot.NoShowRiskLabel),
		HighReschedulerFlag:     snapshot.HighReschedulerFlag,
		PoorFirstSessionFlag:    snapshot.PoorFirstSessionFlag,
		UpdatedAt:               snapshot.ComputedAt,
	}
}
