package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"eco-schools-api/config"
	"eco-schools-api/models"

	"gorm.io/gorm"
)

var (
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrRejectionNotesRequired = errors.New("rejection notes are required")
	ErrNotReviewable          = errors.New("submission is not awaiting review")
	ErrUnknownDecision        = errors.New("unknown review decision")
)

// TransitionResult reports what a review transition actually did. The status
// update and the notification are separate effects: the notification is
// dispatched after commit, and a notification failure never undoes the
// status change.
type TransitionResult struct {
	Submission         models.Submission `json:"submission"`
	StatusUpdated      bool              `json:"status_updated"`
	NotificationQueued bool              `json:"notification_queued"`
}

// ReviewService applies individual review decisions to submissions.
type ReviewService struct {
	db       *gorm.DB
	statuses *StatusService
	notify   *NotifyService
	counts   *CountsService
}

// NewReviewService instantiates the service. Notify and counts may be nil
// when the caller only needs the state machine itself.
func NewReviewService(db *gorm.DB, statuses *StatusService, notify *NotifyService, counts *CountsService) *ReviewService {
	if db == nil {
		db = config.DB
	}
	if statuses == nil {
		statuses = NewStatusService(db)
	}
	return &ReviewService{db: db, statuses: statuses, notify: notify, counts: counts}
}

// Approve moves a reviewable submission to approved. Notes are optional and
// stored with the decision when present.
func (s *ReviewService) Approve(submissionID, reviewerID int, notes string) (*TransitionResult, error) {
	return s.apply(submissionID, reviewerID, StatusCodeApproved, notes)
}

// Reject moves a reviewable submission to rejected. Notes are mandatory;
// a blank value fails before anything is written.
func (s *ReviewService) Reject(submissionID, reviewerID int, notes string) (*TransitionResult, error) {
	return s.apply(submissionID, reviewerID, StatusCodeRejected, notes)
}

func (s *ReviewService) apply(submissionID, reviewerID int, targetCode, notes string) (*TransitionResult, error) {
	if targetCode != StatusCodeApproved && targetCode != StatusCodeRejected {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDecision, targetCode)
	}

	notes = strings.TrimSpace(notes)
	if targetCode == StatusCodeRejected && notes == "" {
		return nil, ErrRejectionNotesRequired
	}

	var submission models.Submission
	if err := s.db.Where("submission_id = ? AND deleted_at IS NULL", submissionID).
		First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	reviewableCode, err := ReviewableCode(submission.SubmissionKind)
	if err != nil {
		return nil, err
	}
	ok, err := s.statuses.Matches(submission.StatusID, reviewableCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		current := "unknown"
		if status, serr := s.statuses.ByID(submission.StatusID); serr == nil {
			current = status.StatusCode
		}
		return nil, fmt.Errorf("%w: current status is %s", ErrNotReviewable, current)
	}

	targetStatusID, err := s.statuses.IDByCode(targetCode)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	updates := map[string]interface{}{
		"status_id":   targetStatusID,
		"updated_at":  now,
		"reviewed_at": now,
		"reviewed_by": reviewerID,
	}
	if notes != "" {
		updates["review_notes"] = notes
	}

	if err := tx.Model(&models.Submission{}).
		Where("submission_id = ?", submission.SubmissionID).
		Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update submission status: %w", err)
	}

	action := models.ReviewActionApprove
	if targetCode == StatusCodeRejected {
		action = models.ReviewActionReject
	}

	var logNotes *string
	if notes != "" {
		logNotes = &notes
	}
	if err := tx.Create(&models.SubmissionReviewLog{
		SubmissionID: submission.SubmissionID,
		Action:       action,
		OldStatusID:  submission.StatusID,
		NewStatusID:  targetStatusID,
		ReviewerID:   reviewerID,
		Notes:        logNotes,
		CreatedAt:    now,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to record review log: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("review transaction failed: %w", err)
	}

	submission.StatusID = targetStatusID
	submission.ReviewedAt = &now
	submission.ReviewedBy = &reviewerID
	if notes != "" {
		submission.ReviewNotes = &notes
	}

	if s.counts != nil {
		s.counts.InvalidateCounts()
	}

	queued := false
	if s.notify != nil {
		eventKey := EventSubmissionApproved
		if targetCode == StatusCodeRejected {
			eventKey = EventSubmissionRejected
		}
		queued = s.notify.DispatchSubmissionEvent(eventKey, submission, notes)
	}

	return &TransitionResult{
		Submission:         submission,
		StatusUpdated:      true,
		NotificationQueued: queued,
	}, nil
}
