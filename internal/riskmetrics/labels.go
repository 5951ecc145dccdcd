package riskmetrics

// Label is a categorical risk severity.
type Label string

const (
	LabelLow    Label = "low"
	LabelMedium Label = "medium"
	LabelHigh   Label = "high"
)

// Severity orders labels low < medium < high. Unknown labels rank zero.
func (l Label) Severity() int {
	switch l {
	case LabelHigh:
		return 3
	case LabelMedium:
		return 2
	case LabelLow:
		return 1
	default:
		return 0
	}
}

// NoShowRiskLabel evaluates the no-show rules in order; the first match wins.
func NoShowRiskLabel(noShowRate, rescheduleRate float64, avgRating *float64, t Thresholds) Label {
	if noShowRate > t.NoShowHighThreshold {
		return LabelHigh
	}

	if rescheduleRate > t.HighReschedulerThreshold && avgRating != nil && *avgRating < t.ChurnRiskRatingLowThreshold {
		return LabelHigh
	}

	if noShowRate > t.NoShowMediumThreshold {
		return LabelMedium
	}

	return LabelLow
}

// ChurnRiskScore sums the weighted churn factors.
func ChurnRiskScore(avgRating, aiAvgScore *float64, noShowRate, rescheduleRate, firstSessionDropoutRate float64, t Thresholds) int {
	score := 0

	if avgRating != nil && *avgRating < t.ChurnRiskRatingLowThreshold {
		if *avgRating < 3 {
			score += 2
		} else {
			score++
		}
	}

	if aiAvgScore != nil && *aiAvgScore < t.ChurnRiskAIScoreLowThreshold {
		if *aiAvgScore < 2.5 {
			score += 2
		} else {
			score++
		}
	}

	switch {
	case noShowRate > t.NoShowHighThreshold:
		score += 2
	case noShowRate > t.NoShowMediumThreshold:
		score++
	}

	if rescheduleRate > t.HighReschedulerThreshold {
		score++
	}

	if firstSessionDropoutRate > t.PoorFirstSessionThreshold {
		score += 2
	}

	return score
}

// ChurnRiskLabel maps the churn score onto a label: 4+ high, 2+ medium.
func ChurnRiskLabel(avgRating, aiAvgScore *float64, noShowRate, rescheduleRate, firstSessionDropoutRate float64, t Thresholds) Label {
	score := ChurnRiskScore(avgRating, aiAvgScore, noShowRate, rescheduleRate, firstSessionDropoutRate, t)
	switch {
	case score >= 4:
		return LabelHigh
	case score >= 2:
		return LabelMedium
	default:
		return LabelLow
	}
}
