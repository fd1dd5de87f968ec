package models

import "time"

// ReviewStatus is the lookup table behind submissions.status_id. Codes are
// immutable identifiers (draft, submitted, pending, approved, rejected);
// names are what the dashboard displays.
type ReviewStatus struct {
	StatusID   int        `gorm:"primaryKey;column:status_id" json:"status_id"`
	StatusCode string     `gorm:"column:status_code;unique" json:"status_code"`
	StatusName string     `gorm:"column:status_name" json:"status_name"`
	CreatedAt  *time.Time `gorm:"column:created_at" json:"created_at,omitempty"`
	UpdatedAt  *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`
}

func (ReviewStatus) TableName() string {
	return "review_statuses"
}
