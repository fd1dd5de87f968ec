package services

import (
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"eco-schools-api/models"
)

func TestStatusByCodeCachesRow(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	expectStatusLookup(mock, testStatusPending)

	svc := NewStatusService(db)
	status, err := svc.ByCode("pending")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.StatusID != testStatusPending {
		t.Fatalf("expected status id %d, got %d", testStatusPending, status.StatusID)
	}

	// Second lookup and the id lookup of the same row must hit the cache,
	// not the database. No further expectations are queued.
	if _, err := svc.ByCode(" Pending "); err != nil {
		t.Fatalf("unexpected error on cached lookup: %v", err)
	}
	if _, err := svc.ByID(testStatusPending); err != nil {
		t.Fatalf("unexpected error on cached id lookup: %v", err)
	}

	verifyExpectations(t, mock)
}

func TestStatusByCodeUnknown(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `review_statuses`").
		WillReturnRows(sqlmock.NewRows([]string{"status_id", "status_code", "status_name"}))

	svc := NewStatusService(db)
	_, err := svc.ByCode("mystery")
	if err == nil {
		t.Fatal("expected error for unknown status code")
	}
	if !strings.Contains(err.Error(), "review status with code mystery not found") {
		t.Fatalf("unexpected error message: %v", err)
	}

	verifyExpectations(t, mock)
}

func TestStatusByCodeRequiresCode(t *testing.T) {
	resetServiceCaches()
	db, _, cleanup := newMockGormDB(t)
	defer cleanup()

	svc := NewStatusService(db)
	if _, err := svc.ByCode("   "); err == nil {
		t.Fatal("expected error for blank status code")
	}
}

func TestStatusMatches(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	expectStatusLookup(mock, testStatusApproved)

	svc := NewStatusService(db)
	ok, err := svc.Matches(testStatusApproved, StatusCodeApproved, StatusCodeRejected)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected approved status to match approved/rejected")
	}

	ok, err = svc.Matches(testStatusApproved, StatusCodeDraft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected approved status not to match draft")
	}

	verifyExpectations(t, mock)
}

func TestStatusIDsByCodesDeduplicates(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	expectStatusLookup(mock, testStatusPending)
	expectStatusLookup(mock, testStatusSubmitted)

	svc := NewStatusService(db)
	ids, err := svc.IDsByCodes(StatusCodePending, StatusCodeSubmitted, StatusCodePending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != testStatusPending || ids[1] != testStatusSubmitted {
		t.Fatalf("unexpected ids: %v", ids)
	}

	verifyExpectations(t, mock)
}

func TestReviewableCode(t *testing.T) {
	code, err := ReviewableCode(models.SubmissionKindEvidence)
	if err != nil || code != StatusCodePending {
		t.Fatalf("expected pending for evidence, got %q (%v)", code, err)
	}

	code, err = ReviewableCode(models.SubmissionKindAudit)
	if err != nil || code != StatusCodeSubmitted {
		t.Fatalf("expected submitted for audit, got %q (%v)", code, err)
	}

	if _, err := ReviewableCode("essay"); err == nil {
		t.Fatal("expected error for unknown submission kind")
	}
}
