package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/tutorq-api/internal/models"
)

// Tutor list sort keys accepted by TutorRepository.List.
const (
	TutorSortChurnRisk      = "churnRisk"
	TutorSortRescheduleRate = "rescheduleRate"
	TutorSortNoShowRate     = "noShowRate"
	TutorSortRating         = "rating"
	TutorSortAIScore        = "aiScore"
	TutorSortName           = "name"
)

var tutorSortExpressions = map[string]string{
	TutorSortChurnRisk:      "CASE m.churn_risk_label WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END",
	TutorSortRescheduleRate: "COALESCE(m.tutor_reschedule_rate, 0)",
	TutorSortNoShowRate:     "COALESCE(m.tutor_no_show_rate, 0)",
	TutorSortRating:         "COALESCE(m.avg_student_rating_last_30d, 0)",
	TutorSortAIScore:        "COALESCE(m.ai_avg_quality_score, 0)",
	TutorSortName:           "t.name",
}

// IsValidTutorSort reports whether the key is a supported sort column.
func IsValidTutorSort(key string) bool {
	_, ok := tutorSortExpressions[key]
	return ok
}

// TutorListFilter narrows and orders the tutor overview listing.
type TutorListFilter struct {
	Subject   string
	RiskLevel string
	SortBy    string
	Desc      bool
	Limit     int
	Offset    int
}

// TutorSummary is a tutor row joined with its latest metrics snapshot. Metric
// columns are nil when the tutor has never been scored.
type TutorSummary struct {
	TutorID                 string                      `gorm:"column:tutor_id"`
	Name                    string                      `gorm:"column:name"`
	Subjects                datatypes.JSONSlice[string] `gorm:"column:subjects"`
	YearsExperience         *int                        `gorm:"column:years_experience"`
	TotalSessionsLast30d    *int                        `gorm:"column:total_sessions_last_30d"`
	FirstSessionsLast30d    *int                        `gorm:"column:first_sessions_last_30d"`
	FirstSessionDropoutRate *float64                    `gorm:"column:first_session_dropout_rate"`
	TutorRescheduleRate     *float64                    `gorm:"column:tutor_reschedule_rate"`
	TutorNoShowRate         *float64                    `gorm:"column:tutor_no_show_rate"`
	AvgStudentRatingLast30d *float64                    `gorm:"column:avg_student_rating_last_30d"`
	AIAvgQualityScore       *float64                    `gorm:"column:ai_avg_quality_score"`
	ChurnRiskLabel          *string                     `gorm:"column:churn_risk_label"`
	NoShowRiskLabel         *string                     `gorm:"column:no_show_risk_label"`
	HighReschedulerFlag     *bool                       `gorm:"column:high_rescheduler_flag"`
	PoorFirstSessionFlag    *bool                       `gorm:"column:poor_first_session_flag"`
	MetricsUpdatedAt        *time.Time                  `gorm:"column:metrics_updated_at"`
}

// TutorRepository provides access to tutor records.
type TutorRepository interface {
	ListIDs(ctx context.Context) ([]string, error)
	GetByID(ctx context.Context, id string) (models.Tutor, error)
	List(ctx context.Context, filter TutorListFilter) ([]TutorSummary, int64, error)
}

type tutorRepository struct {
	db *gorm.DB
}

// NewTutorRepository constructs a tutor repository.
func NewTutorRepository(db *gorm.DB) TutorRepository {
	return &tutorRepository{db: db}
}

func (r *tutorRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Tutor{}).Order("tutor_id ASC").Pluck("tutor_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *tutorRepository) GetByID(ctx context.Context, id string) (models.Tutor, error) {
	var tutor models.Tutor
	if err := r.db.WithContext(ctx).Where("tutor_id = ?", id).First(&tutor).Error; err != nil {
		return models.Tutor{}, err
	}

	return tutor, nil
}

func (r *tutorRepository) List(ctx context.Context, filter TutorListFilter) ([]TutorSummary, int64, error) {
	query := r.db.WithContext(ctx).
		Table("tutors AS t").
		Joins("LEFT JOIN tutor_metrics AS m ON m.tutor_id = t.tutor_id")

	if subject := strings.TrimSpace(filter.Subject); subject != "" {
		query = query.Where("LOWER(CAST(t.subjects AS TEXT)) LIKE ?", "%"+strings.ToLower(subject)+"%")
	}

	if filter.RiskLevel != "" {
		query = query.Where("m.churn_risk_label = ?", filter.RiskLevel)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	expression, ok := tutorSortExpressions[filter.SortBy]
	if !ok {
		expression = tutorSortExpressions[TutorSortChurnRisk]
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}

	query = query.Select(`t.tutor_id, t.name, t.subjects, t.years_experience,
		m.total_sessions_last_30d, m.first_sessions_last_30d, m.first_session_dropout_rate,
		m.tutor_reschedule_rate, m.tutor_no_show_rate, m.avg_student_rating_last_30d,
		m.ai_avg_quality_score, m.churn_risk_label, m.no_show_risk_label,
		m.high_rescheduler_flag, m.poor_first_session_flag, m.updated_at AS metrics_updated_at`).
		Order(expression + " " + direction + ", t.tutor_id ASC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var rows []TutorSummary
	if err := query.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}
