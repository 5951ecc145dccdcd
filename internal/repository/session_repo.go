package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/tutorq-api/internal/models"
)

// FirstSessionStat aggregates first-session outcomes for one subject (or overall).
type FirstSessionStat struct {
	Subject   string   `gorm:"column:subject"`
	Total     int64    `gorm:"column:total"`
	Bad       int64    `gorm:"column:bad"`
	AvgRating *float64 `gorm:"column:avg_rating"`
}

const firstSessionAggregates = `COUNT(*) AS total,
	COALESCE(SUM(CASE WHEN student_churned_after_session OR student_rating <= 2 THEN 1 ELSE 0 END), 0) AS bad,
	AVG(student_rating) AS avg_rating`

// SessionRepository exposes the session reads used by analytics, evaluation and the dashboard.
type SessionRepository interface {
	GetByID(ctx context.Context, id string) (models.Session, error)
	ListByTutorSince(ctx context.Context, tutorID string, since time.Time) ([]models.Session, error)
	ListRecentByTutor(ctx context.Context, tutorID string, since time.Time, limit int) ([]models.Session, error)
	ListPendingEvaluation(ctx context.Context, limit int) ([]models.Session, error)
	FirstSessionStatsBySubject(ctx context.Context, since time.Time, subject string) ([]FirstSessionStat, error)
	FirstSessionOverview(ctx context.Context, since time.Time) (FirstSessionStat, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Preload("Transcript").
		Preload("Evaluation").
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return models.Session{}, err
	}

	return session, nil
}

func (r *sessionRepository) ListByTutorSince(ctx context.Context, tutorID string, since time.Time) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.WithContext(ctx).
		Where("tutor_id = ? AND scheduled_start_at >= ?", tutorID, since).
		Order("scheduled_start_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionRepository) ListRecentByTutor(ctx context.Context, tutorID string, since time.Time, limit int) ([]models.Session, error) {
	query := r.db.WithContext(ctx).
		Preload("Transcript").
		Preload("Evaluation").
		Where("tutor_id = ? AND scheduled_start_at >= ?", tutorID, since).
		Order("scheduled_start_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var sessions []models.Session
	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionRepository) ListPendingEvaluation(ctx context.Context, limit int) ([]models.Session, error) {
	query := r.db.WithContext(ctx).
		Preload("Transcript").
		Where("has_transcript = ?", true).
		Where("NOT EXISTS (SELECT 1 FROM session_ai_evaluations e WHERE e.session_id = sessions.session_id)").
		Order("scheduled_start_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var sessions []models.Session
	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionRepository) FirstSessionStatsBySubject(ctx context.Context, since time.Time, subject string) ([]FirstSessionStat, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Session{}).
		Select("subject, "+firstSessionAggregates).
		Where("is_first_session_for_student = ? AND scheduled_start_at >= ?", true, since)
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}

	var stats []FirstSessionStat
	if err := query.Group("subject").Scan(&stats).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *sessionRepository) FirstSessionOverview(ctx context.Context, since time.Time) (FirstSessionStat, error) {
	var stat FirstSessionStat
	err := r.db.WithContext(ctx).
		Model(&models.Session{}).
		Select(firstSessionAggregates).
		Where("is_first_session_for_student = ? AND scheduled_start_at >= ?", true, since).
		Scan(&stat).Error
	if err != nil {
		return FirstSessionStat{}, err
	}

	return stat, nil
}
