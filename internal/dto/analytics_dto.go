package dto

import "time"

// FlagCounts tallies the boolean flags raised in a run.
type FlagCounts struct {
	HighRescheduler  int `json:"high_rescheduler"`
	PoorFirstSession int `json:"poor_first_session"`
}

// AverageRates are means across the snapshots written in a run.
type AverageRates struct {
	RescheduleRate          float64 `json:"reschedule_rate"`
	NoShowRate              float64 `json:"no_show_rate"`
	FirstSessionDropoutRate float64 `json:"first_session_dropout_rate"`
}

// AnalyticsRunSummary reports the outcome of one analytics pipeline run.
type AnalyticsRunSummary struct {
	TutorsScanned      int            `json:"tutors_scanned"`
	TutorsUpdated      int            `json:"tutors_updated"`
	TutorsSkipped      int            `json:"tutors_skipped"`
	TutorsFailed       int            `json:"tutors_failed"`
	ChurnRiskLabels    map[string]int `json:"churn_risk_labels"`
	NoShowRiskLabels   map[string]int `json:"no_show_risk_labels"`
	Flags              FlagCounts     `json:"flags"`
	AverageRates       AverageRates   `json:"average_rates"`
	WindowStart        time.Time      `json:"window_start"`
	StartedAt          time.Time      `json:"started_at"`
	FinishedAt         time.Time      `json:"finished_at"`
	DurationMS         int64          `json:"duration_ms"`
	Cancelled          bool           `json:"cancelled"`
	FailedTutorSamples []string       `json:"failed_tutor_samples,omitempty"`
}
