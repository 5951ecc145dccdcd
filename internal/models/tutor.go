package models

import (
	"time"

	"gorm.io/datatypes"
)

// Tutor is a member of the tutoring staff whose sessions are scored.
type Tutor struct {
	ID              string                      `gorm:"column:tutor_id;primaryKey;size:255" json:"tutor_id"`
	Name            string                      `gorm:"type:text;not null" json:"name"`
	Subjects        datatypes.JSONSlice[string] `json:"subjects"`
	YearsExperience *int                        `json:"years_experience"`
	Timezone        string                      `gorm:"size:64" json:"timezone"`
	HireDate        *time.Time                  `gorm:"type:date" json:"hire_date"`
}
