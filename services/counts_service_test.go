package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func expectPendingCountQueries(mock sqlmock.Sqlmock, evidence, audits int64) {
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(evidence))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(audits))
}

func TestPendingReviewComputesAndCaches(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	expectStatusLookup(mock, testStatusPending)
	expectStatusLookup(mock, testStatusSubmitted)
	expectPendingCountQueries(mock, 4, 3)

	svc := NewCountsService(db, nil)
	counts, err := svc.PendingReview()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.EvidencePending != 4 || counts.AuditsSubmitted != 3 || counts.Total != 7 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	// Second call must come from the cache. No expectations are queued.
	again, err := svc.PendingReview()
	if err != nil {
		t.Fatalf("unexpected error on cached call: %v", err)
	}
	if again.Total != 7 {
		t.Fatalf("expected cached total 7, got %d", again.Total)
	}

	verifyExpectations(t, mock)
}

func TestInvalidateCountsForcesRefetch(t *testing.T) {
	resetServiceCaches()
	db, mock, cleanup := newMockGormDB(t)
	defer cleanup()

	expectStatusLookup(mock, testStatusPending)
	expectStatusLookup(mock, testStatusSubmitted)
	expectPendingCountQueries(mock, 4, 3)

	svc := NewCountsService(db, nil)
	if _, err := svc.PendingReview(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.InvalidateCounts()

	// Status rows are still cached, so only the two count queries run again.
	expectPendingCountQueries(mock, 1, 0)

	counts, err := svc.PendingReview()
	if err != nil {
		t.Fatalf("unexpected error after invalidation: %v", err)
	}
	if counts.EvidencePending != 1 || counts.AuditsSubmitted != 0 || counts.Total != 1 {
		t.Fatalf("unexpected refreshed counts: %+v", counts)
	}

	verifyExpectations(t, mock)
}
