package dto

import (
	"time"

	"github.com/noah-isme/tutorq-api/internal/models"
)

// EvaluateSessionRequest is the body of the evaluate-session endpoint.
type EvaluateSessionRequest struct {
	SessionID string `json:"session_id" validate:"required,max=255"`
}

// SessionEvaluationResponse serialises a stored AI evaluation.
type SessionEvaluationResponse struct {
	SessionID           string    `json:"session_id"`
	QualityScore        int       `json:"quality_score"`
	Strengths           []string  `json:"strengths"`
	AreasForImprovement []string  `json:"areas_for_improvement"`
	RiskTags            []string  `json:"risk_tags"`
	Provider            string    `json:"provider"`
	Model               string    `json:"model"`
	CreatedAt           time.Time `json:"created_at"`
	Cached              bool      `json:"cached"`
}

// EvaluationRunSummary reports a batch evaluation run.
type EvaluationRunSummary struct {
	Pending           int           `json:"pending"`
	Evaluated         int           `json:"evaluated"`
	Failed            int           `json:"failed"`
	Batches           int           `json:"batches"`
	ScoreDistribution map[int]int64 `json:"score_distribution"`
	StartedAt         time.Time     `json:"started_at"`
	FinishedAt        time.Time     `json:"finished_at"`
	DurationMS        int64         `json:"duration_ms"`
}

// NewSessionEvaluationResponse converts the stored evaluation.
func NewSessionEvaluationResponse(evaluation models.SessionEvaluation, cached bool) SessionEvaluationResponse {
	return SessionEvaluationResponse{
		SessionID:           evaluation.SessionID,
		QualityScore:        evaluation.QualityScore,
		Strengths:           stringsOrEmpty(evaluation.Strengths),
		AreasForImprovement: stringsOrEmpty(evaluation.AreasForImprovement),
		RiskTags:            stringsOrEmpty(evaluation.RiskTags),
		Provider:            evaluation.Provider,
		Model:               evaluation.Model,
		CreatedAt:           evaluation.CreatedAt,
		Cached:              cached,
	}
}
