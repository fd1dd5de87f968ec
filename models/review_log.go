package models

import "time"

// Review log actions.
const (
	ReviewActionApprove = "approve"
	ReviewActionReject  = "reject"
	ReviewActionDelete  = "delete"
)

// SubmissionReviewLog records one applied review action. Batch actions share
// a BatchID so a whole bulk decision can be traced from any of its rows.
type SubmissionReviewLog struct {
	LogID        int       `gorm:"primaryKey;column:log_id" json:"log_id"`
	SubmissionID int       `gorm:"column:submission_id" json:"submission_id"`
	Action       string    `gorm:"column:action" json:"action"`
	OldStatusID  int       `gorm:"column:old_status_id" json:"old_status_id"`
	NewStatusID  int       `gorm:"column:new_status_id" json:"new_status_id"`
	ReviewerID   int       `gorm:"column:reviewer_id" json:"reviewer_id"`
	Notes        *string   `gorm:"column:notes" json:"notes,omitempty"`
	BatchID      *string   `gorm:"column:batch_id" json:"batch_id,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

func (SubmissionReviewLog) TableName() string {
	return "submission_review_logs"
}
