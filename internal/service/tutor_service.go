package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/tutorq-api/internal/dto"
	"github.com/noah-isme/tutorq-api/internal/models"
	"github.com/noah-isme/tutorq-api/internal/repository"
)

const (
	defaultTutorListLimit = 50
	tutorDetailSessions   = 50
	ratingTrendWeeks      = 4
)

// ErrTutorNotFound indicates the requested tutor does not exist.
var ErrTutorNotFound = errors.New("tutor not found")

// TutorService serves the tutor overview and drill-down views.
type TutorService interface {
	List(ctx context.Context, req dto.TutorListRequest) (dto.TutorListResponse, error)
	Get(ctx context.Context, tutorID string) (dto.TutorDetailResponse, error)
}

type tutorService struct {
	tutors     repository.TutorRepository
	sessions   repository.SessionRepository
	metrics    repository.TutorMetricRepository
	validator  *validator.Validate
	cache      *DashboardCache
	windowDays int
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewTutorService constructs the tutor dashboard service.
func NewTutorService(tutors repository.TutorRepository, sessions repository.SessionRepository, metrics repository.TutorMetricRepository, validate *validator.Validate, cache *DashboardCache, windowDays int, logger zerolog.Logger) TutorService {
	if windowDays <= 0 {
		windowDays = 30
	}

	return &tutorService{
		tutors:     tutors,
		sessions:   sessions,
		metrics:    metrics,
		validator:  validate,
		cache:      cache,
		windowDays: windowDays,
		logger:     logger.With().Str("component", "tutor_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/tutorq-api/internal/service/tutor"),
		now:        time.Now,
	}
}

func (s *tutorService) List(ctx context.Context, req dto.TutorListRequest) (dto.TutorListResponse, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return dto.TutorListResponse{}, err
	}

	if req.SortBy == "" {
		req.SortBy = repository.TutorSortChurnRisk
	}
	if req.Order == "" {
		req.Order = "desc"
	}
	if req.Limit == 0 {
		req.Limit = defaultTutorListLimit
	}

	cacheKey := fmt.Sprintf("tutors:%s:%s:%s:%s:%d:%d", req.SortBy, req.Order, strings.ToLower(req.Subject), req.RiskLevel, req.Limit, req.Offset)
	var cached dto.TutorListResponse
	if s.cache.get(ctx, "tutors", cacheKey, &cached) {
		return cached, nil
	}

	spanCtx, span := s.tracer.Start(ctx, "tutors.list", trace.WithAttributes(
		attribute.String("tutors.sort", req.SortBy),
		attribute.String("tutors.order", req.Order),
	))
	defer span.End()

	rows, total, err := s.tutors.List(spanCtx, repository.TutorListFilter{
		Subject:   req.Subject,
		RiskLevel: req.RiskLevel,
		SortBy:    req.SortBy,
		Desc:      req.Order == "desc",
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
	if err != nil {
		span.RecordError(err)
		return dto.TutorListResponse{}, err
	}

	items := make([]dto.TutorListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.NewTutorListItem(row))
	}

	response := dto.TutorListResponse{
		Items: items,
		Meta: dto.ListMeta{
			Total:   total,
			Limit:   req.Limit,
			Offset:  req.Offset,
			HasMore: int64(req.Offset+len(items)) < total,
		},
	}

	s.cache.set(ctx, cacheKey, response)
	return response, nil
}

func (s *tutorService) Get(ctx context.Context, tutorID string) (dto.TutorDetailResponse, error) {
	tutorID = strings.TrimSpace(tutorID)
	spanCtx, span := s.tracer.Start(ctx, "tutors.get", trace.WithAttributes(attribute.String("tutor.id", tutorID)))
	defer span.End()

	tutor, err := s.tutors.GetByID(spanCtx, tutorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TutorDetailResponse{}, ErrTutorNotFound
		}
		span.RecordError(err)
		return dto.TutorDetailResponse{}, err
	}

	response := dto.TutorDetailResponse{Tutor: dto.NewTutorResponse(tutor)}

	metric, err := s.metrics.GetByTutorID(spanCtx, tutorID)
	switch {
	case err == nil:
		response.Metrics = dto.NewTutorMetricsResponse(metric)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		span.RecordError(err)
		return dto.TutorDetailResponse{}, err
	}

	now := s.now().UTC()
	sessions, err := s.sessions.ListRecentByTutor(spanCtx, tutorID, now.AddDate(0, 0, -s.windowDays), tutorDetailSessions)
	if err != nil {
		span.RecordError(err)
		return dto.TutorDetailResponse{}, err
	}

	response.Sessions = make([]dto.SessionDetail, 0, len(sessions))
	for _, session := range sessions {
		response.Sessions = append(response.Sessions, dto.NewSessionDetail(session))
		response.Stats.TotalSessions++
		if session.Status == models.SessionStatusCompleted {
			response.Stats.CompletedSessions++
		}
		if session.IsFirstSessionForStudent {
			response.Stats.FirstSessions++
		}
		if session.Evaluation != nil {
			response.Stats.EvaluatedSessions++
		}
	}
	response.RatingTrend = ratingTrend(sessions, now)

	return response, nil
}

// ratingTrend buckets rated sessions into the trailing four weeks, oldest first.
func ratingTrend(sessions []models.Session, now time.Time) []dto.RatingTrendPoint {
	trend := make([]dto.RatingTrendPoint, 0, ratingTrendWeeks)
	for i := ratingTrendWeeks - 1; i >= 0; i-- {
		weekStart := now.AddDate(0, 0, -(i+1)*7)
		weekEnd := now.AddDate(0, 0, -i*7)

		sum, count := 0, 0
		for _, session := range sessions {
			if session.StudentRating == nil {
				continue
			}
			if session.ScheduledStartAt.Before(weekStart) || !session.ScheduledStartAt.Before(weekEnd) {
				continue
			}
			sum += *session.StudentRating
			count++
		}

		point := dto.RatingTrendPoint{Week: fmt.Sprintf("Week %d", ratingTrendWeeks-i), Count: count}
		if count > 0 {
			point.AvgRating = roundTenth(float64(sum) / float64(count))
		}
		trend = append(trend, point)
	}
	return trend
}

func roundTenth(value float64) float64 {
	return math.Round(value*10) / 10
}
