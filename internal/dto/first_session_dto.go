package dto

import "github.com/noah-isme/tutorq-api/internal/repository"

// FirstSessionRequest captures query parameters for the first-session report.
type FirstSessionRequest struct {
	Days    int    `validate:"gte=1,lte=365"`
	Subject string `validate:"omitempty,max=100"`
}

// FirstSessionOverview summarises every first session in the window.
type FirstSessionOverview struct {
	TotalFirstSessions int64   `json:"total_first_sessions"`
	BadFirstSessions   int64   `json:"bad_first_sessions"`
	OverallDropoutRate float64 `json:"overall_dropout_rate"`
	AvgRating          float64 `json:"avg_rating"`
	Window             string  `json:"window"`
}

// SubjectFirstSessionStat is the first-session outcome for one subject.
type SubjectFirstSessionStat struct {
	Subject            string  `json:"subject"`
	TotalFirstSessions int64   `json:"total_first_sessions"`
	BadFirstSessions   int64   `json:"bad_first_sessions"`
	DropoutRate        float64 `json:"dropout_rate"`
}

// FlaggedTutorResponse is a tutor with poorly performing first sessions.
type FlaggedTutorResponse struct {
	TutorID                 string   `json:"tutor_id"`
	Name                    string   `json:"name"`
	Subjects                []string `json:"subjects"`
	FirstSessionDropoutRate float64  `json:"first_session_dropout_rate"`
	FirstSessionsLast30d    int      `json:"first_sessions_last_30d"`
	AvgStudentRatingLast30d *float64 `json:"avg_student_rating_last_30d"`
	PoorFirstSessionFlag    bool     `json:"poor_first_session_flag"`
}

// FirstSessionReport is the payload of the first-session view.
type FirstSessionReport struct {
	Overview             FirstSessionOverview      `json:"overview"`
	BySubject            []SubjectFirstSessionStat `json:"by_subject"`
	PoorPerformingTutors []FlaggedTutorResponse    `json:"poor_performing_tutors"`
}

// NewFlaggedTutorResponse converts a repository row.
func NewFlaggedTutorResponse(row repository.FlaggedTutor) FlaggedTutorResponse {
	return FlaggedTutorResponse{
		TutorID:                 row.TutorID,
		Name:                    row.Name,
		Subjects:                stringsOrEmpty(row.Subjects),
		FirstSessionDropoutRate: row.FirstSessionDropoutRate,
		FirstSessionsLast30d:    row.FirstSessionsLast30d,
		AvgStudentRatingLast30d: row.AvgStudentRatingLast30d,
		PoorFirstSessionFlag:    row.PoorFirstSessionFlag,
	}
}
