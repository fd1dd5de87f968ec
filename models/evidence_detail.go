package models

import (
	"encoding/json"
	"time"
)

// EvidenceDetail carries the kind-specific payload of an evidence submission.
// PhotoRefs holds object-storage keys as a JSON array; the files themselves
// live outside this system.
type EvidenceDetail struct {
	DetailID     int             `gorm:"primaryKey;column:detail_id" json:"detail_id"`
	SubmissionID int             `gorm:"column:submission_id" json:"submission_id"`
	Title        string          `gorm:"column:title" json:"title"`
	Description  string          `gorm:"column:description" json:"description"`
	ActivityType string          `gorm:"column:activity_type" json:"activity_type"`
	PhotoRefs    json.RawMessage `gorm:"column:photo_refs" json:"photo_refs"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (EvidenceDetail) TableName() string {
	return "evidence_details"
}
