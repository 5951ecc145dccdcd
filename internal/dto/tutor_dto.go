package dto

import (
	"time"

	"github.com/noah-isme/tutorq-api/internal/models"
	"github.com/noah-isme/tutorq-api/internal/repository"
)

// TutorListRequest captures query parameters for the tutor overview.
type TutorListRequest struct {
	SortBy    string `validate:"omitempty,oneof=churnRisk rescheduleRate noShowRate rating aiScore name"`
	Order     string `validate:"omitempty,oneof=asc desc"`
	Subject   string `validate:"omitempty,max=100"`
	RiskLevel string `validate:"omitempty,oneof=low medium high"`
	Limit     int    `validate:"gte=0,lte=200"`
	Offset    int    `validate:"gte=0"`
}

// ListMeta describes offset pagination for list responses.
type ListMeta struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// TutorListResponse is the cached payload of the tutor overview.
type TutorListResponse struct {
	Items []TutorListItem `json:"items"`
	Meta  ListMeta        `json:"meta"`
}

// TutorMetricsResponse serialises a tutor's latest metrics snapshot.
type TutorMetricsResponse struct {
	TotalSessionsLast30d    int       `json:"total_sessions_last_30d"`
	FirstSessionsLast30d    int       `json:"first_sessions_last_30d"`
	FirstSessionDropoutRate float64   `json:"first_session_dropout_rate"`
	TutorRescheduleRate     float64   `json:"tutor_reschedule_rate"`
	TutorNoShowRate         float64   `json:"tutor_no_show_rate"`
	AvgStudentRatingLast30d *float64  `json:"avg_student_rating_last_30d"`
	AIAvgQualityScore       *float64  `json:"ai_avg_quality_score"`
	ChurnRiskLabel          string    `json:"churn_risk_label"`
	NoShowRiskLabel         string    `json:"no_show_risk_label"`
	HighReschedulerFlag     bool      `json:"high_rescheduler_flag"`
	PoorFirstSessionFlag    bool      `json:"poor_first_session_flag"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// TutorListItem is one row of the tutor overview.
type TutorListItem struct {
	TutorID         string                `json:"tutor_id"`
	Name            string                `json:"name"`
	Subjects        []string              `json:"subjects"`
	YearsExperience *int                  `json:"years_experience"`
	Metrics         *TutorMetricsResponse `json:"metrics"`
}

// TutorResponse serialises the tutor profile.
type TutorResponse struct {
	TutorID         string     `json:"tutor_id"`
	Name            string     `json:"name"`
	Subjects        []string   `json:"subjects"`
	YearsExperience *int       `json:"years_experience"`
	Timezone        string     `json:"timezone"`
	HireDate        *time.Time `json:"hire_date"`
}

// SessionDetail is a recent session enriched with its evaluation and transcript.
type SessionDetail struct {
	SessionID                  string     `json:"session_id"`
	StudentID                  string     `json:"student_id"`
	Subject                    string     `json:"subject"`
	ScheduledStartAt           time.Time  `json:"scheduled_start_at"`
	ActualStartAt              *time.Time `json:"actual_start_at"`
	DurationMinutes            int        `json:"duration_minutes"`
	Status                     string     `json:"status"`
	IsFirstSessionForStudent   bool       `json:"is_first_session_for_student"`
	RescheduleInitiator        *string    `json:"reschedule_initiator"`
	StudentRating              *int       `json:"student_rating"`
	StudentFeedback            *string    `json:"student_feedback"`
	StudentChurnedAfterSession bool       `json:"student_churned_after_session"`
	HasTranscript              bool       `json:"has_transcript"`
	AIQualityScore             *int       `json:"ai_quality_score"`
	AIStrengths                []string   `json:"ai_strengths"`
	AIAreasForImprovement      []string   `json:"ai_areas_for_improvement"`
	AIRiskTags                 []string   `json:"ai_risk_tags"`
	Transcript                 *string    `json:"transcript"`
}

// RatingTrendPoint is the average rating for one week of the trailing four.
type RatingTrendPoint struct {
	Week      string  `json:"week"`
	AvgRating float64 `json:"avg_rating"`
	Count     int     `json:"count"`
}

// TutorSessionStats counts the recent sessions shown on the detail view.
type TutorSessionStats struct {
	TotalSessions     int `json:"total_sessions"`
	CompletedSessions int `json:"completed_sessions"`
	FirstSessions     int `json:"first_sessions"`
	EvaluatedSessions int `json:"evaluated_sessions"`
}

// TutorDetailResponse is the drill-down payload for one tutor.
type TutorDetailResponse struct {
	Tutor       TutorResponse         `json:"tutor"`
	Metrics     *TutorMetricsResponse `json:"metrics"`
	Sessions    []SessionDetail       `json:"sessions"`
	RatingTrend []RatingTrendPoint    `json:"rating_trend"`
	Stats       TutorSessionStats     `json:"stats"`
}

// NewTutorResponse converts the model to its API shape.
func NewTutorResponse(tutor models.Tutor) TutorResponse {
	return TutorResponse{
		TutorID:         tutor.ID,
		Name:            tutor.Name,
		Subjects:        stringsOrEmpty(tutor.Subjects),
		YearsExperience: tutor.YearsExperience,
		Timezone:        tutor.Timezone,
		HireDate:        tutor.HireDate,
	}
}

// NewTutorMetricsResponse converts a stored snapshot.
func NewTutorMetricsResponse(metric models.TutorMetric) *TutorMetricsResponse {
	return &TutorMetricsResponse{
		TotalSessionsLast30d:    metric.TotalSessionsLast30d,
		FirstSessionsLast30d:    metric.FirstSessionsLast30d,
		FirstSessionDropoutRate: metric.FirstSessionDropoutRate,
		TutorRescheduleRate:     metric.TutorRescheduleRate,
		TutorNoShowRate:         metric.TutorNoShowRate,
		AvgStudentRatingLast30d: metric.AvgStudentRatingLast30d,
		AIAvgQualityScore:       metric.AIAvgQualityScore,
		ChurnRiskLabel:          metric.ChurnRiskLabel,
		NoShowRiskLabel:         metric.NoShowRiskLabel,
		HighReschedulerFlag:     metric.HighReschedulerFlag,
		PoorFirstSessionFlag:    metric.PoorFirstSessionFlag,
		UpdatedAt:               metric.UpdatedAt,
	}
}

// NewTutorListItem converts a joined summary row; metrics stay nil for unscored tutors.
func NewTutorListItem(row repository.TutorSummary) TutorListItem {
	item := TutorListItem{
		TutorID:         row.TutorID,
		Name:            row.Name,
		Subjects:        stringsOrEmpty(row.Subjects),
		YearsExperience: row.YearsExperience,
	}

	if row.MetricsUpdatedAt == nil {
		return item
	}

	item.Metrics = &TutorMetricsResponse{
		TotalSessionsLast30d:    derefInt(row.TotalSessionsLast30d),
		FirstSessionsLast30d:    derefInt(row.FirstSessionsLast30d),
		FirstSessionDropoutRate: derefFloat(row.FirstSessionDropoutRate),
		TutorRescheduleRate:     derefFloat(row.TutorRescheduleRate),
		TutorNoShowRate:         derefFloat(row.TutorNoShowRate),
		AvgStudentRatingLast30d: row.AvgStudentRatingLast30d,
		AIAvgQualityScore:       row.AIAvgQualityScore,
		ChurnRiskLabel:          derefString(row.ChurnRiskLabel),
		NoShowRiskLabel:         derefString(row.NoShowRiskLabel),
		HighReschedulerFlag:     row.HighReschedulerFlag != nil && *row.HighReschedulerFlag,
		PoorFirstSessionFlag:    row.PoorFirstSessionFlag != nil && *row.PoorFirstSessionFlag,
		UpdatedAt:               *row.MetricsUpdatedAt,
	}
	return item
}

// NewSessionDetail converts a session with its preloaded evaluation and transcript.
func NewSessionDetail(session models.Session) SessionDetail {
	detail := SessionDetail{
		SessionID:                  session.ID,
		StudentID:                  session.StudentID,
		Subject:                    session.Subject,
		ScheduledStartAt:           session.ScheduledStartAt,
		ActualStartAt:              session.ActualStartAt,
		DurationMinutes:            session.DurationMinutes,
		Status:                     session.Status,
		IsFirstSessionForStudent:   session.IsFirstSessionForStudent,
		RescheduleInitiator:        session.RescheduleInitiator,
		StudentRating:              session.StudentRating,
		StudentFeedback:            session.StudentFeedback,
		StudentChurnedAfterSession: session.StudentChurnedAfterSession,
		HasTranscript:              session.HasTranscript,
	}

	if session.Evaluation != nil {
		score := session.Evaluation.QualityScore
		detail.AIQualityScore = &score
		detail.AIStrengths = stringsOrEmpty(session.Evaluation.Strengths)
		detail.AIAreasForImprovement = stringsOrEmpty(session.Evaluation.AreasForImprovement)
		detail.AIRiskTags = stringsOrEmpty(session.Evaluation.RiskTags)
	}

	if session.Transcript != nil {
		text := session.Transcript.TranscriptText
		detail.Transcript = &text
	}

	return detail
}

func stringsOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func derefInt(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}

func derefFloat(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
