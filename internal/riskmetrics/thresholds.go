package riskmetrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidThresholds indicates a threshold set failed validation.
var ErrInvalidThresholds = errors.New("invalid risk thresholds")

// Thresholds holds the tunable cut-offs used when deriving flags and labels.
type Thresholds struct {
	WindowDays                   int     `validate:"gt=0"`
	HighReschedulerThreshold     float64 `validate:"gte=0,lte=1"`
	NoShowHighThreshold          float64 `validate:"gte=0,lte=1"`
	NoShowMediumThreshold        float64 `validate:"gte=0,lte=1,ltefield=NoShowHighThreshold"`
	PoorFirstSessionThreshold    float64 `validate:"gte=0,lte=1"`
	ChurnRiskRatingLowThreshold  float64 `validate:"gte=1,lte=5"`
	ChurnRiskAIScoreLowThreshold float64 `validate:"gte=1,lte=5"`
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WindowDays:                   30,
		HighReschedulerThreshold:     0.15,
		NoShowHighThreshold:          0.10,
		NoShowMediumThreshold:        0.05,
		PoorFirstSessionThreshold:    0.25,
		ChurnRiskRatingLowThreshold:  3.5,
		ChurnRiskAIScoreLowThreshold: 3.0,
	}
}

// Validate checks every threshold against its allowed range.
func (t Thresholds) Validate() error {
	if err := validator.New().Struct(t); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidThresholds, err)
	}
	return nil
}

// WindowStart returns the inclusive lower bound of the window ending at now.
func (t Thresholds) WindowStart(now time.Time) time.Time {
	return now.AddDate(0, 0, -t.WindowDays)
}
