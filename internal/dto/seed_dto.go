package dto

// SeedRequest controls the size and randomness of a synthetic dataset.
type SeedRequest struct {
	Tutors   int   `json:"tutors" validate:"gte=0,lte=1000"`
	Students int   `json:"students" validate:"gte=0,lte=20000"`
	Sessions int   `json:"sessions" validate:"gte=0,lte=100000"`
	Days     int   `json:"days" validate:"gte=0,lte=365"`
	Seed     int64 `json:"seed"`
}

// SeedSummary describes the dataset that was written.
type SeedSummary struct {
	Tutors        int   `json:"tutors"`
	Students      int   `json:"students"`
	Sessions      int   `json:"sessions"`
	Transcripts   int   `json:"transcripts"`
	Completed     int   `json:"completed"`
	NoShows       int   `json:"no_shows"`
	Rescheduled   int   `json:"rescheduled"`
	FirstSessions int   `json:"first_sessions"`
	StudentChurns int   `json:"student_churns"`
	Seed          int64 `json:"seed"`
	WindowDays    int   `json:"window_days"`
	DurationMS    int64 `json:"duration_ms"`
}
