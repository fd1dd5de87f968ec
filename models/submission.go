package models

import "time"

// Submission kinds. Evidence items enter the review pool as pending; audits
// start as drafts and only become reviewable once the school submits them.
const (
	SubmissionKindEvidence = "evidence"
	SubmissionKindAudit    = "audit"
)

type Submission struct {
	SubmissionID     int        `gorm:"primaryKey;column:submission_id" json:"submission_id"`
	SubmissionNumber string     `gorm:"column:submission_number;unique" json:"submission_number"`
	SubmissionKind   string     `gorm:"column:submission_kind" json:"submission_kind"`
	SchoolID         int        `gorm:"column:school_id" json:"school_id"`
	SubmittedBy      int        `gorm:"column:submitted_by" json:"submitted_by"`
	StatusID         int        `gorm:"column:status_id" json:"status_id"`
	ReviewNotes      *string    `gorm:"column:review_notes" json:"review_notes,omitempty"`
	SubmittedAt      *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ReviewedAt       *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy       *int       `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt        *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	// Relations
	School    *School         `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
	Status    *ReviewStatus   `gorm:"foreignKey:StatusID" json:"status,omitempty"`
	Submitter *User           `gorm:"foreignKey:SubmittedBy" json:"submitter,omitempty"`
	Reviewer  *User           `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
	Evidence  *EvidenceDetail `gorm:"foreignKey:SubmissionID" json:"evidence,omitempty"`
	Audit     *AuditDetail    `gorm:"foreignKey:SubmissionID" json:"audit,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}
