package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Status ids used by the fixtures below.
const (
	testStatusDraft     = 1
	testStatusSubmitted = 2
	testStatusPending   = 3
	testStatusApproved  = 4
	testStatusRejected  = 5
)

var testStatusCodes = map[int]string{
	testStatusDraft:     StatusCodeDraft,
	testStatusSubmitted: StatusCodeSubmitted,
	testStatusPending:   StatusCodePending,
	testStatusApproved:  StatusCodeApproved,
	testStatusRejected:  StatusCodeRejected,
}

func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to create gorm db: %v", err)
	}

	cleanup := func() {
		_ = sqlDB.Close()
	}
	return gormDB, mock, cleanup
}

// resetServiceCaches empties the package-level caches so each test starts
// with deterministic query traffic.
func resetServiceCaches() {
	ClearStatusCache()
	countsCache.Flush()
}

func statusRow(id int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"status_id", "status_code", "status_name"}).
		AddRow(id, testStatusCodes[id], testStatusCodes[id])
}

// expectStatusLookup queues the review_statuses SELECT issued on a status
// cache miss, whether looked up by id or by code.
func expectStatusLookup(mock sqlmock.Sqlmock, id int) {
	mock.ExpectQuery("SELECT \\* FROM `review_statuses`").WillReturnRows(statusRow(id))
}

func submissionRow(id int, number, kind string, schoolID, submittedBy, statusID int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"submission_id", "submission_number", "submission_kind",
		"school_id", "submitted_by", "status_id",
	}).AddRow(id, number, kind, schoolID, submittedBy, statusID)
}

func verifyExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
