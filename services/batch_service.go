package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"eco-schools-api/config"
	"eco-schools-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Batch kinds accepted by Open.
const (
	BatchKindApprove = "approve"
	BatchKindReject  = "reject"
	BatchKindDelete  = "delete"
)

var (
	ErrEmptyBatch       = errors.New("no submissions selected for the batch")
	ErrUnknownBatchKind = errors.New("unknown batch kind")
	ErrIntentExists     = errors.New("another bulk operation is already open for this view")
	ErrIntentNotFound   = errors.New("bulk operation not found")
	ErrIntentInFlight   = errors.New("bulk operation is already being submitted")
	ErrBatchAborted     = errors.New("batch aborted, no submissions were changed")
)

// Batch outcome states reported per submission.
const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// BatchIntent is the snapshot the dashboard confirms or cancels. TargetIDs
// are fixed at open time; selection changes made afterwards never reach an
// already-open intent.
type BatchIntent struct {
	IntentID  string    `json:"intent_id"`
	ViewKey   string    `json:"view_key"`
	Kind      string    `json:"kind"`
	TargetIDs []int     `json:"target_ids"`
	Notes     string    `json:"notes,omitempty"`
	InFlight  bool      `json:"in_flight"`
	CreatedAt time.Time `json:"created_at"`
}

// BatchOutcome is the per-submission result of a confirm attempt.
type BatchOutcome struct {
	SubmissionID int    `json:"submission_id"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
}

// BatchResult summarizes one confirm attempt. On failure Outcomes names the
// offending submissions; nothing was written in that case.
type BatchResult struct {
	BatchID             string         `json:"batch_id"`
	Kind                string         `json:"kind"`
	Processed           int            `json:"processed"`
	Outcomes            []BatchOutcome `json:"outcomes"`
	NotificationsQueued int            `json:"notifications_queued"`
}

// BatchService coordinates bulk review decisions: it snapshots the selection
// into an intent, applies the whole batch in one transaction on confirm, and
// keeps a failed intent around so the admin can resubmit without re-entering
// anything.
type BatchService struct {
	db        *gorm.DB
	statuses  *StatusService
	selection *SelectionService
	notify    *NotifyService
	counts    *CountsService

	mu      sync.Mutex
	intents map[string]*BatchIntent
	ttl     time.Duration
}

// NewBatchService instantiates the coordinator. Selection is required; notify
// and counts may be nil.
func NewBatchService(db *gorm.DB, statuses *StatusService, selection *SelectionService, notify *NotifyService, counts *CountsService) *BatchService {
	if db == nil {
		db = config.DB
	}
	if statuses == nil {
		statuses = NewStatusService(db)
	}
	return &BatchService{
		db:        db,
		statuses:  statuses,
		selection: selection,
		notify:    notify,
		counts:    counts,
		intents:   make(map[string]*BatchIntent),
		ttl:       2 * time.Hour,
	}
}

// Open creates the batch intent for a view. When explicitIDs is empty the
// current selection is snapshotted instead. Reject batches must carry notes.
func (s *BatchService) Open(viewKey, kind string, explicitIDs []int, notes string) (*BatchIntent, error) {
	switch kind {
	case BatchKindApprove, BatchKindReject, BatchKindDelete:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBatchKind, kind)
	}

	notes = strings.TrimSpace(notes)
	if kind == BatchKindReject && notes == "" {
		return nil, ErrRejectionNotesRequired
	}

	targetIDs := normalizeIDs(explicitIDs)
	if len(targetIDs) == 0 && s.selection != nil {
		targetIDs = s.selection.Snapshot(viewKey)
	}
	if len(targetIDs) == 0 {
		return nil, ErrEmptyBatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if existing, ok := s.intents[viewKey]; ok {
		if existing.InFlight {
			return nil, ErrIntentInFlight
		}
		return nil, ErrIntentExists
	}

	intent := &BatchIntent{
		IntentID:  uuid.New().String(),
		ViewKey:   viewKey,
		Kind:      kind,
		TargetIDs: targetIDs,
		Notes:     notes,
		CreatedAt: time.Now(),
	}
	s.intents[viewKey] = intent

	out := *intent
	return &out, nil
}

// Cancel discards an open intent and clears the view's selection. Nothing in
// the database is touched. An in-flight intent cannot be cancelled.
func (s *BatchService) Cancel(viewKey, intentID string) error {
	s.mu.Lock()
	intent, ok := s.intents[viewKey]
	if !ok || intent.IntentID != intentID {
		s.mu.Unlock()
		return ErrIntentNotFound
	}
	if intent.InFlight {
		s.mu.Unlock()
		return ErrIntentInFlight
	}
	delete(s.intents, viewKey)
	s.mu.Unlock()

	if s.selection != nil {
		s.selection.Clear(viewKey)
	}
	return nil
}

// Get returns a copy of the view's open intent, if any.
func (s *BatchService) Get(viewKey string) (*BatchIntent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[viewKey]
	if !ok {
		return nil, false
	}
	out := *intent
	return &out, true
}

// Confirm applies the intent's targets as one transaction. Any ineligible
// target aborts the whole batch; the returned result then names every
// offender and the intent stays open for a retry. On success the intent is
// destroyed, the selection cleared, and one notification dispatched per
// affected submission.
func (s *BatchService) Confirm(viewKey, intentID string, reviewerID int) (*BatchResult, error) {
	s.mu.Lock()
	intent, ok := s.intents[viewKey]
	if !ok || intent.IntentID != intentID {
		s.mu.Unlock()
		return nil, ErrIntentNotFound
	}
	if intent.InFlight {
		s.mu.Unlock()
		return nil, ErrIntentInFlight
	}
	intent.InFlight = true
	snapshot := *intent
	s.mu.Unlock()

	result, affected, err := s.applyBatch(&snapshot, reviewerID)

	s.mu.Lock()
	if current, ok := s.intents[viewKey]; ok && current.IntentID == intentID {
		if err != nil {
			current.InFlight = false
		} else {
			delete(s.intents, viewKey)
		}
	}
	s.mu.Unlock()

	if err != nil {
		return result, err
	}

	if s.selection != nil {
		s.selection.Clear(viewKey)
	}
	if s.counts != nil {
		s.counts.InvalidateCounts()
	}
	if s.notify != nil {
		eventKey := batchEventKey(snapshot.Kind)
		for _, sub := range affected {
			if s.notify.DispatchSubmissionEvent(eventKey, sub, snapshot.Notes) {
				result.NotificationsQueued++
			}
		}
	}

	return result, nil
}

func batchEventKey(kind string) string {
	switch kind {
	case BatchKindReject:
		return EventSubmissionRejected
	case BatchKindDelete:
		return EventSubmissionDeleted
	default:
		return EventSubmissionApproved
	}
}

type batchTargetRow struct {
	SubmissionID     int    `gorm:"column:submission_id"`
	SubmissionNumber string `gorm:"column:submission_number"`
	SubmissionKind   string `gorm:"column:submission_kind"`
	SchoolID         int    `gorm:"column:school_id"`
	SubmittedBy      int    `gorm:"column:submitted_by"`
	StatusID         int    `gorm:"column:status_id"`
}

func (batchTargetRow) TableName() string { return "submissions" }

func (s *BatchService) applyBatch(intent *BatchIntent, reviewerID int) (*BatchResult, []models.Submission, error) {
	result := &BatchResult{
		BatchID:  intent.IntentID,
		Kind:     intent.Kind,
		Outcomes: make([]BatchOutcome, 0, len(intent.TargetIDs)),
	}

	var rows []batchTargetRow
	if err := s.db.
		Select("submission_id, submission_number, submission_kind, school_id, submitted_by, status_id").
		Where("submission_id IN ? AND deleted_at IS NULL", intent.TargetIDs).
		Find(&rows).Error; err != nil {
		return result, nil, fmt.Errorf("failed to load batch targets: %w", err)
	}

	byID := make(map[int]batchTargetRow, len(rows))
	for _, row := range rows {
		byID[row.SubmissionID] = row
	}

	failures := 0
	for _, id := range intent.TargetIDs {
		row, ok := byID[id]
		if !ok {
			result.Outcomes = append(result.Outcomes, BatchOutcome{
				SubmissionID: id, Status: OutcomeFailed, Message: "submission not found",
			})
			failures++
			continue
		}

		if intent.Kind != BatchKindDelete {
			reviewableCode, err := ReviewableCode(row.SubmissionKind)
			if err != nil {
				result.Outcomes = append(result.Outcomes, BatchOutcome{
					SubmissionID: id, Status: OutcomeFailed, Message: err.Error(),
				})
				failures++
				continue
			}
			ok, err := s.statuses.Matches(row.StatusID, reviewableCode)
			if err != nil {
				return result, nil, err
			}
			if !ok {
				current := "unknown"
				if status, serr := s.statuses.ByID(row.StatusID); serr == nil {
					current = status.StatusCode
				}
				result.Outcomes = append(result.Outcomes, BatchOutcome{
					SubmissionID: id, Status: OutcomeFailed,
					Message: fmt.Sprintf("not awaiting review (current status is %s)", current),
				})
				failures++
				continue
			}
		}

		result.Outcomes = append(result.Outcomes, BatchOutcome{SubmissionID: id, Status: OutcomeApplied})
	}

	if failures > 0 {
		for i := range result.Outcomes {
			if result.Outcomes[i].Status == OutcomeApplied {
				result.Outcomes[i].Status = OutcomeSkipped
				result.Outcomes[i].Message = "batch aborted"
			}
		}
		return result, nil, ErrBatchAborted
	}

	now := time.Now()
	batchID := intent.IntentID

	var targetStatusID int
	if intent.Kind != BatchKindDelete {
		code := StatusCodeApproved
		if intent.Kind == BatchKindReject {
			code = StatusCodeRejected
		}
		id, err := s.statuses.IDByCode(code)
		if err != nil {
			return result, nil, err
		}
		targetStatusID = id
	}

	var logNotes *string
	if intent.Notes != "" {
		notes := intent.Notes
		logNotes = &notes
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return result, nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	affected := make([]models.Submission, 0, len(intent.TargetIDs))
	for _, id := range intent.TargetIDs {
		row := byID[id]

		var updates map[string]interface{}
		var action string
		newStatusID := row.StatusID

		switch intent.Kind {
		case BatchKindDelete:
			action = models.ReviewActionDelete
			updates = map[string]interface{}{
				"deleted_at": now,
				"updated_at": now,
			}
		default:
			action = models.ReviewActionApprove
			if intent.Kind == BatchKindReject {
				action = models.ReviewActionReject
			}
			newStatusID = targetStatusID
			updates = map[string]interface{}{
				"status_id":   targetStatusID,
				"updated_at":  now,
				"reviewed_at": now,
				"reviewed_by": reviewerID,
			}
			if intent.Notes != "" {
				updates["review_notes"] = intent.Notes
			}
		}

		if err := tx.Model(&models.Submission{}).
			Where("submission_id = ?", id).
			Updates(updates).Error; err != nil {
			tx.Rollback()
			return result, nil, fmt.Errorf("failed to update submission %d: %w", id, err)
		}

		if err := tx.Create(&models.SubmissionReviewLog{
			SubmissionID: id,
			Action:       action,
			OldStatusID:  row.StatusID,
			NewStatusID:  newStatusID,
			ReviewerID:   reviewerID,
			Notes:        logNotes,
			BatchID:      &batchID,
			CreatedAt:    now,
		}).Error; err != nil {
			tx.Rollback()
			return result, nil, fmt.Errorf("failed to record review log for submission %d: %w", id, err)
		}

		affected = append(affected, models.Submission{
			SubmissionID:     row.SubmissionID,
			SubmissionNumber: row.SubmissionNumber,
			SubmissionKind:   row.SubmissionKind,
			SchoolID:         row.SchoolID,
			SubmittedBy:      row.SubmittedBy,
			StatusID:         newStatusID,
		})
	}

	if err := tx.Commit().Error; err != nil {
		return result, nil, fmt.Errorf("batch transaction failed: %w", err)
	}

	result.Processed = len(affected)
	return result, affected, nil
}

func (s *BatchService) sweepLocked() {
	now := time.Now()
	for key, intent := range s.intents {
		if !intent.InFlight && now.Sub(intent.CreatedAt) > s.ttl {
			delete(s.intents, key)
		}
	}
}

func normalizeIDs(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
