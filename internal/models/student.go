package models

// Student represents a learner booked into tutoring sessions.
type Student struct {
	ID         string `gorm:"column:student_id;primaryKey;size:255" json:"student_id"`
	GradeLevel *int   `json:"grade_level"`
	Segment    string `gorm:"size:64" json:"segment"`
}
