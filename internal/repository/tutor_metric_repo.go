package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/tutorq-api/internal/models"
)

var tutorMetricColumns = []string{
	"total_sessions_last_30d",
	"first_sessions_last_30d",
	"first_session_dropout_rate",
	"tutor_reschedule_rate",
	"tutor_no_show_rate",
	"avg_student_rating_last_30d",
	"ai_avg_quality_score",
	"churn_risk_label",
	"no_show_risk_label",
	"high_rescheduler_flag",
	"poor_first_session_flag",
	"updated_at",
}

// FlaggedTutor is a tutor whose first sessions are underperforming.
type FlaggedTutor struct {
	TutorID                 string                      `gorm:"column:tutor_id"`
	Name                    string                      `gorm:"column:name"`
	Subjects                datatypes.JSONSlice[string] `gorm:"column:subjects"`
	FirstSessionDropoutRate float64                     `gorm:"column:first_session_dropout_rate"`
	FirstSessionsLast30d    int                         `gorm:"column:first_sessions_last_30d"`
	AvgStudentRatingLast30d *float64                    `gorm:"column:avg_student_rating_last_30d"`
	PoorFirstSessionFlag    bool                        `gorm:"column:poor_first_session_flag"`
}

// TutorMetricRepository stores the latest metrics snapshot per tutor.
type TutorMetricRepository interface {
	Upsert(ctx context.Context, metric *models.TutorMetric) error
	GetByTutorID(ctx context.Context, tutorID string) (models.TutorMetric, error)
	ListPoorFirstSession(ctx context.Context, minFirstSessions, limit int) ([]FlaggedTutor, error)
}

type tutorMetricRepository struct {
	db *gorm.DB
}

// NewTutorMetricRepository constructs a tutor metric repository.
func NewTutorMetricRepository(db *gorm.DB) TutorMetricRepository {
	return &tutorMetricRepository{db: db}
}

// Upsert inserts the snapshot or replaces every field of the existing one.
func (r *tutorMetricRepository) Upsert(ctx context.Context, metric *models.TutorMetric) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tutor_id"}},
		DoUpdates: clause.AssignmentColumns(tutorMetricColumns),
	}).Create(metric).Error
}

func (r *tutorMetricRepository) GetByTutorID(ctx context.Context, tutorID string) (models.TutorMetric, error) {
	var metric models.TutorMetric
	if err := r.db.WithContext(ctx).Where("tutor_id = ?", tutorID).First(&metric).Error; err != nil {
		return models.TutorMetric{}, err
	}

	return metric, nil
}

func (r *tutorMetricRepository) ListPoorFirstSession(ctx context.Context, minFirstSessions, limit int) ([]FlaggedTutor, error) {
	query := r.db.WithContext(ctx).
		Table("tutors AS t").
		Select(`t.tutor_id, t.name, t.subjects, m.first_session_dropout_rate, m.first_sessions_last_30d,
			m.avg_student_rating_last_30d, m.poor_first_session_flag`).
		Joins("JOIN tutor_metrics AS m ON m.tutor_id = t.tutor_id").
		Where("m.poor_first_session_flag = ? AND m.first_sessions_last_30d >= ?", true, minFirstSessions).
		Order("m.first_session_dropout_rate DESC, t.tutor_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var tutors []FlaggedTutor
	if err := query.Scan(&tutors).Error; err != nil {
		return nil, err
	}

	return tutors, nil
}
