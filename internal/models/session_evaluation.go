package models

import (
	"time"

	"gorm.io/datatypes"
)

// SessionEvaluation captures the outcome of an AI review of a session transcript.
type SessionEvaluation struct {
	SessionID           string                      `gorm:"primaryKey;size:255" json:"session_id"`
	QualityScore        int                         `gorm:"not null" json:"quality_score"`
	Strengths           datatypes.JSONSlice[string] `gorm:"not null" json:"strengths"`
	AreasForImprovement datatypes.JSONSlice[string] `gorm:"not null" json:"areas_for_improvement"`
	RiskTags            datatypes.JSONSlice[string] `gorm:"not null" json:"risk_tags"`
	Provider            string                      `gorm:"size:32" json:"provider"`
	Model               string                      `gorm:"size:64" json:"model"`
	Raw                 datatypes.JSONMap           `json:"raw,omitempty"`
	CreatedAt           time.Time                   `json:"created_at"`
}

// TableName keeps the historical table name used by the dashboard.
func (SessionEvaluation) TableName() string {
	return "session_ai_evaluations"
}
