package ai

import "context"

// SessionInput carries the session metadata shown to the model next to the transcript.
type SessionInput struct {
	SessionID       string
	Subject         string
	FirstSession    bool
	Status          string
	DurationMinutes int
	StudentRating   *int
	StudentFeedback string
}

// EvaluationResult is the structured quality assessment returned by the evaluator.
type EvaluationResult struct {
	QualityScore        int                    `json:"quality_score"`
	Strengths           []string               `json:"strengths"`
	AreasForImprovement []string               `json:"areas_for_improvement"`
	RiskTags            []string               `json:"risk_tags"`
	Raw                 map[string]interface{} `json:"raw,omitempty"`
}

// Evaluator describes an AI model capable of grading tutoring session transcripts.
type Evaluator interface {
	Evaluate(ctx context.Context, input SessionInput, transcript string) (EvaluationResult, error)
	Provider() string
	Model() string
}
