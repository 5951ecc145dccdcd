package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/tutorq-api/internal/events"
	"github.com/noah-isme/tutorq-api/internal/models"
	"github.com/noah-isme/tutorq-api/internal/repository"
	"github.com/noah-isme/tutorq-api/internal/riskmetrics"
)

type flakySessionRepo struct {
	repository.SessionRepository
	failFor string
}

func (r flakySessionRepo) ListByTutorSince(ctx context.Context, tutorID string, since time.Time) ([]models.Session, error) {
	if tutorID == r.failFor {
		return nil, errors.New("connection reset")
	}
	return r.SessionRepository.ListByTutorSince(ctx, tutorID, since)
}

type failingTutorRepo struct {
	repository.TutorRepository
}

func (failingTutorRepo) ListIDs(context.Context) ([]string, error) {
	return nil, errors.New("database unavailable")
}

type staticTutorRepo struct {
	repository.TutorRepository
	ids []string
}

func (r staticTutorRepo) ListIDs(context.Context) ([]string, error) {
	return r.ids, nil
}

func newPipeline(t *testing.T, db *gorm.DB, sessions repository.SessionRepository, cache *DashboardCache, publisher events.Publisher) *analyticsPipelineService {
	t.Helper()
	if sessions == nil {
		sessions = repository.NewSessionRepository(db)
	}
	svc := NewAnalyticsPipelineService(
		repository.NewTutorRepository(db),
		sessions,
		repository.NewEvaluationRepository(db),
		repository.NewTutorMetricRepository(db),
		AnalyticsPipelineConfig{Thresholds: riskmetrics.DefaultThresholds(), Concurrency: 2},
		cache,
		publisher,
		testLogger(),
	).(*analyticsPipelineService)
	svc.now = fixedNow
	return svc
}

func seedPipelineFixture(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, id := range []string{"tutor_a", "tutor_b", "tutor_c", "tutor_d"} {
		insertTutor(t, db, id, "Geometry")
	}

	for i, rating := range []int{5, 5, 4, 5} {
		insertSession(t, db, models.Session{
			ID:                       "a" + string(rune('0'+i)),
			TutorID:                  "tutor_a",
			StudentRating:            ptr(rating),
			IsFirstSessionForStudent: i == 0,
		})
	}

	insertSession(t, db, models.Session{ID: "b0", TutorID: "tutor_b", ScheduledStartAt: serviceNow.AddDate(0, 0, -45)})
	insertSession(t, db, models.Session{ID: "c0", TutorID: "tutor_c"})

	insertSession(t, db, models.Session{ID: "d0", TutorID: "tutor_d", Status: models.SessionStatusNoShow})
	insertSession(t, db, models.Session{ID: "d1", TutorID: "tutor_d", Status: models.SessionStatusNoShow})
	insertSession(t, db, models.Session{ID: "d2", TutorID: "tutor_d", Status: models.SessionStatusRescheduled, RescheduleInitiator: ptr(models.RescheduleInitiatorTutor)})
	insertSession(t, db, models.Session{
		ID:                         "d3",
		TutorID:                    "tutor_d",
		StudentRating:              ptr(2),
		IsFirstSessionForStudent:   true,
		StudentChurnedAfterSession: true,
	})
}

func TestAnalyticsPipelineRunSummarisesOutcomes(t *testing.T) {
	db := newServiceDB(t)
	seedPipelineFixture(t, db)

	cache, server := newTestCache(t)
	require.NoError(t, server.Set("dashboard:tutors:stale", "{}"))
	publisher := &recordingPublisher{}

	svc := newPipeline(t, db, flakySessionRepo{SessionRepository: repository.NewSessionRepository(db), failFor: "tutor_c"}, cache, publisher)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 4, summary.TutorsScanned)
	require.Equal(t, 2, summary.TutorsUpdated)
	require.Equal(t, 1, summary.TutorsSkipped)
	require.Equal(t, 1, summary.TutorsFailed)
	require.Equal(t, []string{"tutor_c"}, summary.FailedTutorSamples)
	require.Equal(t, 1, summary.NoShowRiskLabels[models.RiskLabelHigh])
	require.Equal(t, 1, summary.NoShowRiskLabels[models.RiskLabelLow])
	require.Equal(t, 1, summary.ChurnRiskLabels[models.RiskLabelHigh])
	require.Equal(t, 1, summary.Flags.HighRescheduler)
	require.Equal(t, 1, summary.Flags.PoorFirstSession)
	require.InDelta(t, 0.25, summary.AverageRates.NoShowRate, 1e-9)
	require.Equal(t, serviceNow.AddDate(0, 0, -30), summary.WindowStart)
	require.False(t, summary.Cancelled)

	var stored []models.TutorMetric
	require.NoError(t, db.Order("tutor_id").Find(&stored).Error)
	require.Len(t, stored, 2)
	require.Equal(t, "tutor_a", stored[0].TutorID)
	require.Equal(t, "tutor_d", stored[1].TutorID)
	require.InDelta(t, 0.5, stored[1].TutorNoShowRate, 1e-9)
	require.InDelta(t, 0.25, stored[1].TutorRescheduleRate, 1e-9)
	require.InDelta(t, 1.0, stored[1].FirstSessionDropoutRate, 1e-9)
	require.True(t, stored[1].HighReschedulerFlag)
	require.True(t, stored[1].PoorFirstSessionFlag)
	require.True(t, stored[1].UpdatedAt.Equal(serviceNow))

	require.False(t, server.Exists("dashboard:tutors:stale"))
	require.Equal(t, []string{events.TypeAnalyticsCompleted}, publisher.published())
}

func TestAnalyticsPipelineRunIsIdempotent(t *testing.T) {
	db := newServiceDB(t)
	seedPipelineFixture(t, db)
	svc := newPipeline(t, db, nil, nil, nil)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	var before []models.TutorMetric
	require.NoError(t, db.Order("tutor_id").Find(&before).Error)

	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	var after []models.TutorMetric
	require.NoError(t, db.Order("tutor_id").Find(&after).Error)

	require.Equal(t, first.TutorsUpdated, second.TutorsUpdated)
	require.Len(t, after, len(before))
	for i := range before {
		require.Equal(t, before[i].TutorID, after[i].TutorID)
		require.Equal(t, before[i].ChurnRiskLabel, after[i].ChurnRiskLabel)
		require.Equal(t, before[i].NoShowRiskLabel, after[i].NoShowRiskLabel)
		require.InDelta(t, before[i].TutorNoShowRate, after[i].TutorNoShowRate, 1e-9)
	}
}

func TestAnalyticsPipelineRunUsesAIScores(t *testing.T) {
	db := newServiceDB(t)
	insertTutor(t, db, "tutor_ai", "Chemistry")
	insertSession(t, db, models.Session{ID: "ai0", TutorID: "tutor_ai", StudentRating: ptr(5)})
	insertSession(t, db, models.Session{ID: "ai1", TutorID: "tutor_ai", StudentRating: ptr(5)})
	require.NoError(t, db.Create(&models.SessionEvaluation{SessionID: "ai0", QualityScore: 2, Strengths: []string{}, AreasForImprovement: []string{}, RiskTags: []string{}}).Error)
	require.NoError(t, db.Create(&models.SessionEvaluation{SessionID: "ai1", QualityScore: 3, Strengths: []string{}, AreasForImprovement: []string{}, RiskTags: []string{}}).Error)

	svc := newPipeline(t, db, nil, nil, nil)
	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	var metric models.TutorMetric
	require.NoError(t, db.First(&metric, "tutor_id = ?", "tutor_ai").Error)
	require.NotNil(t, metric.AIAvgQualityScore)
	require.InDelta(t, 2.5, *metric.AIAvgQualityScore, 1e-9)
	require.NotNil(t, metric.AvgStudentRatingLast30d)
	require.InDelta(t, 5.0, *metric.AvgStudentRatingLast30d, 1e-9)
}

func TestAnalyticsPipelineRunListFailureIsFatal(t *testing.T) {
	db := newServiceDB(t)
	publisher := &recordingPublisher{}
	svc := newPipeline(t, db, nil, nil, publisher)
	svc.tutors = failingTutorRepo{}

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "list tutors")
	require.Empty(t, publisher.published())
}

func TestAnalyticsPipelineRunHonoursCancellation(t *testing.T) {
	db := newServiceDB(t)
	seedPipelineFixture(t, db)
	svc := newPipeline(t, db, nil, nil, nil)
	svc.tutors = staticTutorRepo{ids: []string{"tutor_a", "tutor_d"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := svc.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, summary.Cancelled)
	require.Zero(t, summary.TutorsUpdated)

	var count int64
	require.NoError(t, db.Model(&models.TutorMetric{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestAnalyticsPipelineRunRejectsInvalidThresholds(t *testing.T) {
	db := newServiceDB(t)
	svc := newPipeline(t, db, nil, nil, nil)
	svc.cfg.Thresholds.NoShowMediumThreshold = 0.5
	svc.cfg.Thresholds.NoShowHighThreshold = 0.1

	_, err := svc.Run(context.Background())
	require.ErrorIs(t, err, riskmetrics.ErrInvalidThresholds)
}
