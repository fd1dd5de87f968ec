package models

import "time"

// School is the participating team: every submission and every school-side
// user belongs to exactly one school.
type School struct {
	SchoolID     int        `gorm:"primaryKey;column:school_id" json:"school_id"`
	SchoolName   string     `gorm:"column:school_name" json:"school_name"`
	SchoolCode   string     `gorm:"column:school_code;unique" json:"school_code"`
	Region       string     `gorm:"column:region" json:"region"`
	ContactEmail string     `gorm:"column:contact_email" json:"contact_email"`
	IsActive     bool       `gorm:"column:is_active" json:"is_active"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt    *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (School) TableName() string {
	return "schools"
}
