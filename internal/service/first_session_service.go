package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/tutorq-api/internal/dto"
	"github.com/noah-isme/tutorq-api/internal/repository"
)

const (
	defaultFirstSessionDays = 30
	flaggedTutorMinSessions = 2
	flaggedTutorListLimit   = 20
)

// FirstSessionService reports how first sessions convert into retained students.
type FirstSessionService interface {
	Report(ctx context.Context, req dto.FirstSessionRequest) (dto.FirstSessionReport, error)
}

type firstSessionService struct {
	sessions  repository.SessionRepository
	metrics   repository.TutorMetricRepository
	validator *validator.Validate
	cache     *DashboardCache
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewFirstSessionService constructs the first-session report service.
func NewFirstSessionService(sessions repository.SessionRepository, metrics repository.TutorMetricRepository, validate *validator.Validate, cache *DashboardCache, logger zerolog.Logger) FirstSessionService {
	return &firstSessionService{
		sessions:  sessions,
		metrics:   metrics,
		validator: validate,
		cache:     cache,
		logger:    logger.With().Str("component", "first_session_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/tutorq-api/internal/service/first_session"),
		now:       time.Now,
	}
}

func (s *firstSessionService) Report(ctx context.Context, req dto.FirstSessionRequest) (dto.FirstSessionReport, error) {
	if req.Days == 0 {
		req.Days = defaultFirstSessionDays
	}
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return dto.FirstSessionReport{}, err
	}

	cacheKey := fmt.Sprintf("first-sessions:%d:%s", req.Days, req.Subject)
	var cached dto.FirstSessionReport
	if s.cache.get(ctx, "first_sessions", cacheKey, &cached) {
		return cached, nil
	}

	spanCtx, span := s.tracer.Start(ctx, "first_sessions.report", trace.WithAttributes(
		attribute.Int("first_sessions.days", req.Days),
	))
	defer span.End()

	since := s.now().UTC().AddDate(0, 0, -req.Days)

	subjectStats, err := s.sessions.FirstSessionStatsBySubject(spanCtx, since, req.Subject)
	if err != nil {
		span.RecordError(err)
		return dto.FirstSessionReport{}, err
	}

	overall, err := s.sessions.FirstSessionOverview(spanCtx, since)
	if err != nil {
		span.RecordError(err)
		return dto.FirstSessionReport{}, err
	}

	flagged, err := s.metrics.ListPoorFirstSession(spanCtx, flaggedTutorMinSessions, flaggedTutorListLimit)
	if err != nil {
		span.RecordError(err)
		return dto.FirstSessionReport{}, err
	}

	report := dto.FirstSessionReport{
		Overview: dto.FirstSessionOverview{
			TotalFirstSessions: overall.Total,
			BadFirstSessions:   overall.Bad,
			Window:             fmt.Sprintf("Last %d days", req.Days),
		},
		BySubject:            make([]dto.SubjectFirstSessionStat, 0, len(subjectStats)),
		PoorPerformingTutors: make([]dto.FlaggedTutorResponse, 0, len(flagged)),
	}
	if overall.Total > 0 {
		report.Overview.OverallDropoutRate = float64(overall.Bad) / float64(overall.Total) * 100
	}
	if overall.AvgRating != nil {
		report.Overview.AvgRating = roundTenth(*overall.AvgRating)
	}

	for _, stat := range subjectStats {
		item := dto.SubjectFirstSessionStat{
			Subject:            stat.Subject,
			TotalFirstSessions: stat.Total,
			BadFirstSessions:   stat.Bad,
		}
		if stat.Total > 0 {
			item.DropoutRate = float64(stat.Bad) / float64(stat.Total)
		}
		report.BySubject = append(report.BySubject, item)
	}
	sort.SliceStable(report.BySubject, func(i, j int) bool {
		if report.BySubject[i].DropoutRate != report.BySubject[j].DropoutRate {
			return report.BySubject[i].DropoutRate > report.BySubject[j].DropoutRate
		}
		return report.BySubject[i].Subject < report.BySubject[j].Subject
	})

	for _, row := range flagged {
		report.PoorPerformingTutors = append(report.PoorPerformingTutors, dto.NewFlaggedTutorResponse(row))
	}

	s.cache.set(ctx, cacheKey, report)
	return report, nil
}
