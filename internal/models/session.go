package models

import "time"

const (
	// SessionStatusCompleted marks a session that took place.
	SessionStatusCompleted = "completed"
	// SessionStatusNoShow marks a session the tutor did not attend.
	SessionStatusNoShow = "no_show"
	// SessionStatusRescheduled marks a session moved to another slot.
	SessionStatusRescheduled = "rescheduled"

	// RescheduleInitiatorTutor marks a reschedule requested by the tutor.
	RescheduleInitiatorTutor = "tutor"
	// RescheduleInitiatorStudent marks a reschedule requested by the student.
	RescheduleInitiatorStudent = "student"
)

// Session is a single booked tutoring slot between a tutor and a student.
type Session struct {
	ID                         string             `gorm:"column:session_id;primaryKey;size:255" json:"session_id"`
	TutorID                    string             `gorm:"size:255;not null;index:idx_sessions_tutor_scheduled,priority:1" json:"tutor_id"`
	StudentID                  string             `gorm:"size:255;not null;index" json:"student_id"`
	Subject                    string             `gorm:"type:text;not null" json:"subject"`
	ScheduledStartAt           time.Time          `gorm:"not null;index:idx_sessions_tutor_scheduled,priority:2" json:"scheduled_start_at"`
	ActualStartAt              *time.Time         `json:"actual_start_at"`
	DurationMinutes            int                `gorm:"not null" json:"duration_minutes"`
	Status                     string             `gorm:"size:32;not null" json:"status"`
	IsFirstSessionForStudent   bool               `gorm:"not null" json:"is_first_session_for_student"`
	RescheduleInitiator        *string            `gorm:"size:16" json:"reschedule_initiator"`
	RescheduledFromSessionID   *string            `gorm:"size:255" json:"rescheduled_from_session_id"`
	StudentRating              *int               `json:"student_rating"`
	StudentFeedback            *string            `gorm:"type:text" json:"student_feedback"`
	StudentChurnedAfterSession bool               `gorm:"not null" json:"student_churned_after_session"`
	TutorChurnedWithin30d      bool               `gorm:"column:tutor_churned_within_30d;not null" json:"tutor_churned_within_30d"`
	HasTranscript              bool               `gorm:"not null;default:false" json:"has_transcript"`
	CreatedAt                  time.Time          `json:"created_at"`
	Transcript                 *SessionTranscript `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE" json:"transcript,omitempty"`
	Evaluation                 *SessionEvaluation `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE" json:"evaluation,omitempty"`
}

// SessionTranscript stores the dialogue captured for a session.
type SessionTranscript struct {
	SessionID      string `gorm:"primaryKey;size:255" json:"session_id"`
	TranscriptText string `gorm:"type:text;not null" json:"transcript_text"`
}
