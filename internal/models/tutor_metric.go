package models

import "time"

const (
	// RiskLabelLow is the lowest risk severity.
	RiskLabelLow = "low"
	// RiskLabelMedium is the intermediate risk severity.
	RiskLabelMedium = "medium"
	// RiskLabelHigh is the highest risk severity.
	RiskLabelHigh = "high"
)

// TutorMetric is the latest metrics snapshot for a tutor, replaced wholesale on
// every analytics run.
type TutorMetric struct {
	TutorID                 string    `gorm:"primaryKey;size:255" json:"tutor_id"`
	TotalSessionsLast30d    int       `gorm:"column:total_sessions_last_30d;not null" json:"total_sessions_last_30d"`
	FirstSessionsLast30d    int       `gorm:"column:first_sessions_last_30d;not null" json:"first_sessions_last_30d"`
	FirstSessionDropoutRate float64   `gorm:"column:first_session_dropout_rate;not null" json:"first_session_dropout_rate"`
	TutorRescheduleRate     float64   `gorm:"column:tutor_reschedule_rate;not null" json:"tutor_reschedule_rate"`
	TutorNoShowRate         float64   `gorm:"column:tutor_no_show_rate;not null" json:"tutor_no_show_rate"`
	AvgStudentRatingLast30d *float64  `gorm:"column:avg_student_rating_last_30d" json:"avg_student_rating_last_30d"`
	AIAvgQualityScore       *float64  `gorm:"column:ai_avg_quality_score" json:"ai_avg_quality_score"`
	ChurnRiskLabel          string    `gorm:"column:churn_risk_label;size:16;index" json:"churn_risk_label"`
	NoShowRiskLabel         string    `gorm:"column:no_show_risk_label;size:16" json:"no_show_risk_label"`
	HighReschedulerFlag     bool      `gorm:"column:high_rescheduler_flag;not null" json:"high_rescheduler_flag"`
	PoorFirstSessionFlag    bool      `gorm:"column:poor_first_session_flag;not null" json:"poor_first_session_flag"`
	UpdatedAt               time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updated_at"`
}

// AllModels lists every persisted model in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Tutor{},
		&Student{},
		&Session{},
		&SessionTranscript{},
		&SessionEvaluation{},
		&TutorMetric{},
	}
}
