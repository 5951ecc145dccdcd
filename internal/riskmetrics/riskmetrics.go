// Package riskmetrics turns a tutor's in-window session history into a
// metrics snapshot with rate, average and risk-label fields. Everything here
// is pure: callers load the inputs and persist the result.
package riskmetrics

import "time"

// Status mirrors the lifecycle state recorded on a session.
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
)

// Initiator identifies who asked for a reschedule.
type Initiator string

const (
	InitiatorTutor   Initiator = "tutor"
	InitiatorStudent Initiator = "student"
)

// Session is the subset of a session record the engine reads.
type Session struct {
	Status       Status
	FirstSession bool
	Initiator    Initiator
	Rating       *int
	Churned      bool
}

// Evaluation is the subset of an AI evaluation the engine reads.
type Evaluation struct {
	QualityScore int
}

// Snapshot is the per-tutor aggregate produced by Compute.
type Snapshot struct {
	TutorID                 string
	TotalSessions           int
	FirstSessions           int
	FirstSessionDropoutRate float64
	TutorRescheduleRate     float64
	TutorNoShowRate         float64
	AvgStudentRating        *float64
	AIAvgQualityScore       *float64
	ChurnRiskLabel          Label
	NoShowRiskLabel         Label
	HighReschedulerFlag     bool
	PoorFirstSessionFlag    bool
	ComputedAt              time.Time
}

// Compute aggregates the sessions and evaluations of a single tutor. The
// boolean result is false when sessions is empty; no snapshot is produced
// for a tutor without in-window activity.
func Compute(tutorID string, sessions []Session, evaluations []Evaluation, t Thresholds, now time.Time) (Snapshot, bool) {
	total := len(sessions)
	if total == 0 {
		return Snapshot{}, false
	}

	var (
		noShows          int
		tutorReschedules int
		firstSessions    int
		badFirstSessions int
		ratingSum        int
		ratingCount      int
	)

	for _, session := range sessions {
		switch session.Status {
		case StatusCompleted:
			if session.Rating != nil {
				ratingSum += *session.Rating
				ratingCount++
			}
		case StatusNoShow:
			noShows++
		case StatusRescheduled:
			if session.Initiator == InitiatorTutor {
				tutorReschedules++
			}
		}

		if session.FirstSession {
			firstSessions++
			if session.Churned || (session.Rating != nil && *session.Rating <= 2) {
				badFirstSessions++
			}
		}
	}

	snapshot := Snapshot{
		TutorID:             tutorID,
		TotalSessions:       total,
		FirstSessions:       firstSessions,
		TutorRescheduleRate: ratio(tutorReschedules, total),
		TutorNoShowRate:     ratio(noShows, total),
		ComputedAt:          now,
	}
	snapshot.FirstSessionDropoutRate = ratio(badFirstSessions, firstSessions)

	if ratingCount > 0 {
		avg := float64(ratingSum) / float64(ratingCount)
		snapshot.AvgStudentRating = &avg
	}

	if len(evaluations) > 0 {
		scoreSum := 0
		for _, evaluation := range evaluations {
			scoreSum += evaluation.QualityScore
		}
		avg := float64(scoreSum) / float64(len(evaluations))
		snapshot.AIAvgQualityScore = &avg
	}

	snapshot.NoShowRiskLabel = NoShowRiskLabel(snapshot.TutorNoShowRate, snapshot.TutorRescheduleRate, snapshot.AvgStudentRating, t)
	snapshot.ChurnRiskLabel = ChurnRiskLabel(
		snapshot.AvgStudentRating,
		snapshot.AIAvgQualityScore,
		snapshot.TutorNoShowRate,
		snapshot.TutorRescheduleRate,
		snapshot.FirstSessionDropoutRate,
		t,
	)
	snapshot.HighReschedulerFlag = snapshot.TutorRescheduleRate > t.HighReschedulerThreshold
	snapshot.PoorFirstSessionFlag = snapshot.FirstSessionDropoutRate > t.PoorFirstSessionThreshold

	return snapshot, true
}

// ratio returns part/whole, defining an empty denominator as zero.
func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}
