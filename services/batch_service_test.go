package services

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/gorm"

	"eco-schools-api/models"
)

func newBatchFixture(db *gorm.DB) (*SelectionService, *BatchService) {
	selection := NewSelectionService(time.Hour)
	return selection, NewBatchService(db, nil, selection, nil, nil)
}

func TestOpenSnapshotsSelection(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	selection, svc := newBatchFixture(db)
	selection.Toggle("view-a", 8)
	selection.Toggle("view-a", 7)

	intent, err := svc.Open("view-a", BatchKindApprove, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(intent.TargetIDs) != 2 || intent.TargetIDs[0] != 7 || intent.TargetIDs[1] != 8 {
		t.Fatalf("unexpected target ids: %v", intent.TargetIDs)
	}

	// Later selection changes must not leak into the open intent.
	selection.Toggle("view-a", 99)
	selection.Toggle("view-a", 7)

	stored, ok := svc.Get("view-a")
	if !ok {
		t.Fatal("expected open intent for view-a")
	}
	if len(stored.TargetIDs) != 2 || stored.TargetIDs[0] != 7 || stored.TargetIDs[1] != 8 {
		t.Fatalf("intent targets changed after open: %v", stored.TargetIDs)
	}

	verifyExpectations(t, mock)
}

func TestOpenNormalizesExplicitIDs(t *testing.T) {
	resetServiceCaches()
	db, _, cleanup := newMockGormDB(t)
	defer cleanup()

	_, svc := newBatchFixture(db)
	intent, err := svc.Open("view-a", BatchKindApprove, []int{5, 2, 2, -1, 0, 9}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(intent.TargetIDs) != 3 || intent.TargetIDs[0] != 2 || intent.TargetIDs[1] != 5 || intent.TargetIDs[2] != 9 {
		t.Fatalf("expected sorted deduplicated ids, got %v", intent.TargetIDs)
	}
}

func TestOpenValidation(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	_, svc := newBatchFixture(db)

	if _, err := svc.Open("view-a", "archive", []int{1}, ""); !errors.Is(err, ErrUnknownBatchKind) {
		t.Fatalf("expected ErrUnknownBatchKind, got %v", err)
	}
	if _, err := svc.Open("view-a", BatchKindReject, []int{1}, "   "); !errors.Is(err, ErrRejectionNotesRequired) {
		t.Fatalf("expected ErrRejectionNotesRequired, got %v", err)
	}
	if _, err := svc.Open("view-a", BatchKindApprove, nil, ""); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch for empty selection, got %v", err)
	}

	verifyExpectations(t, mock)
}

func TestOpenRefusesSecondIntent(t *testing.T) {
	resetServiceCaches()
	db, _, cleanup := newMockGormDB(t)
	defer cleanup()

	_, svc := newBatchFixture(db)
	if _, err := svc.Open("view-a", BatchKindApprove, []int{1}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Open("view-a", BatchKindApprove, []int{2}, ""); !errors.Is(err, ErrIntentExists) {
		t.Fatalf("expected ErrIntentExists, got %v", err)
	}

	// A different view is unaffected.
	if _, err := svc.Open("view-b", BatchKindApprove, []int{2}, ""); err != nil {
		t.Fatalf("unexpected error for second view: %v", err)
	}
}

func TestCancelDiscardsIntentAndSelection(t *testing.T) {
	resetServiceCaches()
	db, _, cleanup := newMockGormDB(t)
	defer cleanup()

	selection, svc := newBatchFixture(db)
	selection.Toggle("view-a", 7)

	intent, err := svc.Open("view-a", BatchKindApprove, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Cancel("view-a", "not-the-id"); !errors.Is(err, ErrIntentNotFound) {
		t.Fatalf("expected ErrIntentNotFound for wrong intent id, got %v", err)
	}

	if err := svc.Cancel("view-a", intent.IntentID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.Get("view-a"); ok {
		t.Fatal("expected intent to be discarded")
	}
	if size := selection.Size("view-a"); size != 0 {
		t.Fatalf("expected selection cleared on cancel, got %d", size)
	}
}

func TestConfirmAppliesWholeBatch(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT submission_id, submission_number, submission_kind, school_id, submitted_by, status_id FROM `submissions`").
		WillReturnRows(
			submissionRow(7, "EV-2025-0007", models.SubmissionKindEvidence, 3, 11, testStatusPending).
				AddRow(8, "EV-2025-0008", models.SubmissionKindEvidence, 4, 12, testStatusPending))
	expectStatusLookup(mock, testStatusPending)
	expectStatusLookup(mock, testStatusApproved)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `submissions` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `submission_review_logs`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `submissions` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `submission_review_logs`").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	selection, svc := newBatchFixture(db)
	selection.Toggle("view-a", 7)
	selection.Toggle("view-a", 8)

	intent, err := svc.Open("view-a", BatchKindApprove, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Confirm("view-a", intent.IntentID, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("expected 2 processed, got %d", result.Processed)
	}
	if result.BatchID != intent.IntentID {
		t.Fatalf("expected batch id %s, got %s", intent.IntentID, result.BatchID)
	}
	for _, outcome := range result.Outcomes {
		if outcome.Status != OutcomeApplied {
			t.Fatalf("expected outcome applied for %d, got %s", outcome.SubmissionID, outcome.Status)
		}
	}
	if result.NotificationsQueued != 0 {
		t.Fatalf("expected no notifications without a dispatcher, got %d", result.NotificationsQueued)
	}

	if _, ok := svc.Get("view-a"); ok {
		t.Fatal("expected intent destroyed after success")
	}
	if size := selection.Size("view-a"); size != 0 {
		t.Fatalf("expected selection cleared after success, got %d", size)
	}

	verifyExpectations(t, mock)
}

func TestConfirmAbortsWhenAnyTargetIneligible(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	// One pending target and one already approved. No transaction may begin.
	mock.ExpectQuery("SELECT submission_id, submission_number, submission_kind, school_id, submitted_by, status_id FROM `submissions`").
		WillReturnRows(
			submissionRow(7, "EV-2025-0007", models.SubmissionKindEvidence, 3, 11, testStatusPending).
				AddRow(8, "EV-2025-0008", models.SubmissionKindEvidence, 4, 12, testStatusApproved))
	expectStatusLookup(mock, testStatusPending)
	expectStatusLookup(mock, testStatusApproved)

	selection, svc := newBatchFixture(db)
	selection.Toggle("view-a", 7)
	selection.Toggle("view-a", 8)

	intent, err := svc.Open("view-a", BatchKindApprove, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Confirm("view-a", intent.IntentID, 9)
	if !errors.Is(err, ErrBatchAborted) {
		t.Fatalf("expected ErrBatchAborted, got %v", err)
	}
	if result == nil || len(result.Outcomes) != 2 {
		t.Fatalf("expected outcomes for both targets, got %+v", result)
	}
	if result.Outcomes[0].SubmissionID != 7 || result.Outcomes[0].Status != OutcomeSkipped {
		t.Fatalf("expected target 7 skipped, got %+v", result.Outcomes[0])
	}
	if result.Outcomes[1].SubmissionID != 8 || result.Outcomes[1].Status != OutcomeFailed {
		t.Fatalf("expected target 8 failed, got %+v", result.Outcomes[1])
	}

	// The intent survives for a retry and the selection is untouched.
	stored, ok := svc.Get("view-a")
	if !ok {
		t.Fatal("expected intent retained after abort")
	}
	if stored.InFlight {
		t.Fatal("expected in-flight flag released after abort")
	}
	if size := selection.Size("view-a"); size != 2 {
		t.Fatalf("expected selection kept after abort, got %d", size)
	}

	verifyExpectations(t, mock)
}

func TestConfirmAbortsOnMissingTarget(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT submission_id, submission_number, submission_kind, school_id, submitted_by, status_id FROM `submissions`").
		WillReturnRows(submissionRow(7, "EV-2025-0007", models.SubmissionKindEvidence, 3, 11, testStatusPending))
	expectStatusLookup(mock, testStatusPending)

	_, svc := newBatchFixture(db)
	intent, err := svc.Open("view-a", BatchKindApprove, []int{7, 404}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Confirm("view-a", intent.IntentID, 9)
	if !errors.Is(err, ErrBatchAborted) {
		t.Fatalf("expected ErrBatchAborted, got %v", err)
	}
	if result.Outcomes[1].SubmissionID != 404 || result.Outcomes[1].Status != OutcomeFailed {
		t.Fatalf("expected missing target reported failed, got %+v", result.Outcomes[1])
	}
	if result.Outcomes[1].Message != "submission not found" {
		t.Fatalf("unexpected message: %s", result.Outcomes[1].Message)
	}

	verifyExpectations(t, mock)
}

func TestConfirmRejectWritesNotesAndBatchID(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	_, svc := newBatchFixture(db)
	intent, err := svc.Open("view-a", BatchKindReject, []int{5}, "missing photo evidence")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectQuery("SELECT submission_id, submission_number, submission_kind, school_id, submitted_by, status_id FROM `submissions`").
		WillReturnRows(submissionRow(5, "AU-2025-0005", models.SubmissionKindAudit, 3, 11, testStatusSubmitted))
	expectStatusLookup(mock, testStatusSubmitted)
	expectStatusLookup(mock, testStatusRejected)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `submissions` SET").
		WithArgs("missing photo evidence", sqlmock.AnyArg(), 9, testStatusRejected, sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `submission_review_logs`").
		WithArgs(5, models.ReviewActionReject, testStatusSubmitted, testStatusRejected, 9,
			"missing photo evidence", intent.IntentID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := svc.Confirm("view-a", intent.IntentID, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("expected 1 processed, got %d", result.Processed)
	}

	verifyExpectations(t, mock)
}

func TestConfirmDeleteIgnoresStatus(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	// Deletes need no eligibility check, so no status lookups happen.
	mock.ExpectQuery("SELECT submission_id, submission_number, submission_kind, school_id, submitted_by, status_id FROM `submissions`").
		WillReturnRows(submissionRow(6, "EV-2025-0006", models.SubmissionKindEvidence, 3, 11, testStatusApproved))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `submissions` SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `submission_review_logs`").
		WithArgs(6, models.ReviewActionDelete, testStatusApproved, testStatusApproved, 9,
			nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, svc := newBatchFixture(db)
	intent, err := svc.Open("view-a", BatchKindDelete, []int{6}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Confirm("view-a", intent.IntentID, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("expected 1 processed, got %d", result.Processed)
	}

	verifyExpectations(t, mock)
}

func TestConfirmRollsBackMidBatchFailure(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT submission_id, submission_number, submission_kind, school_id, submitted_by, status_id FROM `submissions`").
		WillReturnRows(
			submissionRow(7, "EV-2025-0007", models.SubmissionKindEvidence, 3, 11, testStatusPending).
				AddRow(8, "EV-2025-0008", models.SubmissionKindEvidence, 4, 12, testStatusPending))
	expectStatusLookup(mock, testStatusPending)
	expectStatusLookup(mock, testStatusApproved)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `submissions` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `submission_review_logs`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `submissions` SET").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	selection, svc := newBatchFixture(db)
	selection.Toggle("view-a", 7)
	selection.Toggle("view-a", 8)

	intent, err := svc.Open("view-a", BatchKindApprove, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Confirm("view-a", intent.IntentID, 9)
	if err == nil || errors.Is(err, ErrBatchAborted) {
		t.Fatalf("expected a transaction error, got %v", err)
	}

	stored, ok := svc.Get("view-a")
	if !ok || stored.InFlight {
		t.Fatal("expected intent retained and not in flight after failure")
	}
	if size := selection.Size("view-a"); size != 2 {
		t.Fatalf("expected selection kept after failure, got %d", size)
	}

	verifyExpectations(t, mock)
}

func TestConfirmUnknownIntent(t *testing.T) {
	resetServiceCaches()
	db, _, cleanup := newMockGormDB(t)
	defer cleanup()

	_, svc := newBatchFixture(db)
	if _, err := svc.Confirm("view-a", "missing", 9); !errors.Is(err, ErrIntentNotFound) {
		t.Fatalf("expected ErrIntentNotFound, got %v", err)
	}
}

func TestConfirmBlocksConcurrentSubmit(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT submission_id, submission_number, submission_kind, school_id, submitted_by, status_id FROM `submissions`").
		WillDelayFor(150 * time.Millisecond).
		WillReturnRows(submissionRow(7, "EV-2025-0007", models.SubmissionKindEvidence, 3, 11, testStatusPending))
	expectStatusLookup(mock, testStatusPending)
	expectStatusLookup(mock, testStatusApproved)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `submissions` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `submission_review_logs`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, svc := newBatchFixture(db)
	intent, err := svc.Open("view-a", BatchKindApprove, []int{7}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Confirm("view-a", intent.IntentID, 9)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)

	if _, err := svc.Confirm("view-a", intent.IntentID, 9); !errors.Is(err, ErrIntentInFlight) {
		t.Fatalf("expected ErrIntentInFlight for concurrent confirm, got %v", err)
	}
	if err := svc.Cancel("view-a", intent.IntentID); !errors.Is(err, ErrIntentInFlight) {
		t.Fatalf("expected ErrIntentInFlight for cancel during submit, got %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("unexpected error from the original confirm: %v", err)
	}

	verifyExpectations(t, mock)
}
