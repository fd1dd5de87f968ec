package models

import "time"

// AuditDetail carries the plastic-waste audit payload: counts of single-use
// items collected over the audit period. TotalItems is recomputed on every
// write, never taken from the client.
type AuditDetail struct {
	DetailID     int       `gorm:"primaryKey;column:detail_id" json:"detail_id"`
	SubmissionID int       `gorm:"column:submission_id" json:"submission_id"`
	PeriodLabel  string    `gorm:"column:period_label" json:"period_label"`
	BottleCount  int       `gorm:"column:bottle_count" json:"bottle_count"`
	BagCount     int       `gorm:"column:bag_count" json:"bag_count"`
	StrawCount   int       `gorm:"column:straw_count" json:"straw_count"`
	WrapperCount int       `gorm:"column:wrapper_count" json:"wrapper_count"`
	OtherCount   int       `gorm:"column:other_count" json:"other_count"`
	TotalItems   int       `gorm:"column:total_items" json:"total_items"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (AuditDetail) TableName() string {
	return "audit_details"
}

// SumItems returns the item total across all count columns.
func (a *AuditDetail) SumItems() int {
	return a.BottleCount + a.BagCount + a.StrawCount + a.WrapperCount + a.OtherCount
}
