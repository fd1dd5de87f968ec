package services

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"eco-schools-api/models"
)

func TestRejectRequiresNotes(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	svc := NewReviewService(db, nil, nil, nil)

	for _, notes := range []string{"", "   ", "\n\t"} {
		if _, err := svc.Reject(42, 9, notes); !errors.Is(err, ErrRejectionNotesRequired) {
			t.Fatalf("expected ErrRejectionNotesRequired for notes %q, got %v", notes, err)
		}
	}

	// No expectations were queued above, so any query or transaction here
	// fails the test. A blank rejection must not reach the database.
	verifyExpectations(t, mock)
}

func TestApprovePendingEvidence(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `submissions`").
		WillReturnRows(submissionRow(42, "EV-2025-0007", models.SubmissionKindEvidence, 3, 11, testStatusPending))
	expectStatusLookup(mock, testStatusPending)
	expectStatusLookup(mock, testStatusApproved)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `submissions` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `submission_review_logs`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	svc := NewReviewService(db, nil, nil, nil)
	result, err := svc.Approve(42, 9, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.StatusUpdated {
		t.Fatal("expected status_updated to be true")
	}
	if result.NotificationQueued {
		t.Fatal("expected notification_queued to be false without a dispatcher")
	}
	if result.Submission.StatusID != testStatusApproved {
		t.Fatalf("expected status id %d, got %d", testStatusApproved, result.Submission.StatusID)
	}
	if result.Submission.ReviewedBy == nil || *result.Submission.ReviewedBy != 9 {
		t.Fatalf("expected reviewer 9 recorded, got %v", result.Submission.ReviewedBy)
	}
	if result.Submission.ReviewedAt == nil {
		t.Fatal("expected reviewed_at to be set")
	}

	verifyExpectations(t, mock)
}

func TestRejectPersistsTrimmedNotes(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `submissions`").
		WillReturnRows(submissionRow(42, "AU-2025-0002", models.SubmissionKindAudit, 3, 11, testStatusSubmitted))
	expectStatusLookup(mock, testStatusSubmitted)
	expectStatusLookup(mock, testStatusRejected)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `submissions` SET").
		WithArgs("photos are blurry", sqlmock.AnyArg(), 9, testStatusRejected, sqlmock.AnyArg(), 42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `submission_review_logs`").
		WithArgs(42, models.ReviewActionReject, testStatusSubmitted, testStatusRejected, 9,
			"photos are blurry", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	svc := NewReviewService(db, nil, nil, nil)
	result, err := svc.Reject(42, 9, "  photos are blurry  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Submission.ReviewNotes == nil || *result.Submission.ReviewNotes != "photos are blurry" {
		t.Fatalf("expected trimmed notes on the submission, got %v", result.Submission.ReviewNotes)
	}

	verifyExpectations(t, mock)
}

func TestApproveNotAwaitingReview(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	// Already approved: the lookup runs but no transaction may begin.
	mock.ExpectQuery("SELECT \\* FROM `submissions`").
		WillReturnRows(submissionRow(42, "EV-2025-0007", models.SubmissionKindEvidence, 3, 11, testStatusApproved))
	expectStatusLookup(mock, testStatusApproved)

	svc := NewReviewService(db, nil, nil, nil)
	_, err := svc.Approve(42, 9, "")
	if !errors.Is(err, ErrNotReviewable) {
		t.Fatalf("expected ErrNotReviewable, got %v", err)
	}

	verifyExpectations(t, mock)
}

func TestDraftAuditIsNotReviewable(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `submissions`").
		WillReturnRows(submissionRow(77, "AU-2025-0009", models.SubmissionKindAudit, 3, 11, testStatusDraft))
	expectStatusLookup(mock, testStatusDraft)

	svc := NewReviewService(db, nil, nil, nil)
	_, err := svc.Reject(77, 9, "incomplete counts")
	if !errors.Is(err, ErrNotReviewable) {
		t.Fatalf("expected ErrNotReviewable for a draft audit, got %v", err)
	}

	verifyExpectations(t, mock)
}

func TestApproveMissingSubmission(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `submissions`").
		WillReturnRows(sqlmock.NewRows([]string{"submission_id"}))

	svc := NewReviewService(db, nil, nil, nil)
	_, err := svc.Approve(404, 9, "")
	if !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}

	verifyExpectations(t, mock)
}

func TestApproveRollsBackWhenUpdateFails(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `submissions`").
		WillReturnRows(submissionRow(42, "EV-2025-0007", models.SubmissionKindEvidence, 3, 11, testStatusPending))
	expectStatusLookup(mock, testStatusPending)
	expectStatusLookup(mock, testStatusApproved)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `submissions` SET").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	svc := NewReviewService(db, nil, nil, nil)
	_, err := svc.Approve(42, 9, "")
	if err == nil {
		t.Fatal("expected error when the status update fails")
	}

	verifyExpectations(t, mock)
}
