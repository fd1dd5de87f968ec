package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"eco-schools-api/config"
	"eco-schools-api/models"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

const (
	// Canonical status codes mirror review_statuses.status_code.
	StatusCodeDraft     = "draft"
	StatusCodeSubmitted = "submitted"
	StatusCodePending   = "pending"
	StatusCodeApproved  = "approved"
	StatusCodeRejected  = "rejected"
)

// statusCache holds review_statuses rows keyed by code and id. Rows change
// only through seeding, so a modest TTL plus explicit ClearStatusCache is
// enough.
var statusCache = gocache.New(5*time.Minute, 10*time.Minute)

// StatusService resolves review status rows with caching.
type StatusService struct {
	db *gorm.DB
}

// NewStatusService instantiates the service.
func NewStatusService(db *gorm.DB) *StatusService {
	if db == nil {
		db = config.DB
	}
	return &StatusService{db: db}
}

// ClearStatusCache invalidates every cached status row.
func ClearStatusCache() {
	statusCache.Flush()
}

func normalizeStatusCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func statusCodeKey(code string) string { return "code:" + normalizeStatusCode(code) }
func statusIDKey(id int) string        { return "id:" + strconv.Itoa(id) }

func cacheStatus(status models.ReviewStatus) {
	if status.StatusID == 0 {
		return
	}
	statusCache.Set(statusCodeKey(status.StatusCode), status, gocache.DefaultExpiration)
	statusCache.Set(statusIDKey(status.StatusID), status, gocache.DefaultExpiration)
}

// ByCode returns the status row for a canonical code.
func (s *StatusService) ByCode(code string) (models.ReviewStatus, error) {
	key := normalizeStatusCode(code)
	if key == "" {
		return models.ReviewStatus{}, errors.New("status code is required")
	}

	if cached, ok := statusCache.Get(statusCodeKey(key)); ok {
		if status, ok := cached.(models.ReviewStatus); ok {
			return status, nil
		}
	}

	var status models.ReviewStatus
	err := s.db.Where("status_code = ?", key).First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ReviewStatus{}, fmt.Errorf("review status with code %s not found", key)
		}
		return models.ReviewStatus{}, err
	}

	cacheStatus(status)
	return status, nil
}

// ByID returns the status row for a status_id.
func (s *StatusService) ByID(id int) (models.ReviewStatus, error) {
	if cached, ok := statusCache.Get(statusIDKey(id)); ok {
		if status, ok := cached.(models.ReviewStatus); ok {
			return status, nil
		}
	}

	var status models.ReviewStatus
	err := s.db.Where("status_id = ?", id).First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ReviewStatus{}, fmt.Errorf("review status with id %d not found", id)
		}
		return models.ReviewStatus{}, err
	}

	cacheStatus(status)
	return status, nil
}

// IDByCode resolves the status_id for a canonical code.
func (s *StatusService) IDByCode(code string) (int, error) {
	status, err := s.ByCode(code)
	if err != nil {
		return 0, err
	}
	return status.StatusID, nil
}

// IDsByCodes resolves several codes at once, deduplicated.
func (s *StatusService) IDsByCodes(codes ...string) ([]int, error) {
	ids := make([]int, 0, len(codes))
	seen := make(map[int]struct{})
	for _, code := range codes {
		id, err := s.IDByCode(code)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// Matches reports whether statusID resolves to one of the given codes.
func (s *StatusService) Matches(statusID int, codes ...string) (bool, error) {
	status, err := s.ByID(statusID)
	if err != nil {
		return false, err
	}
	key := normalizeStatusCode(status.StatusCode)
	for _, code := range codes {
		if key == normalizeStatusCode(code) {
			return true, nil
		}
	}
	return false, nil
}

// EnsureIn verifies a status matches at least one of the provided codes.
func (s *StatusService) EnsureIn(statusID int, codes ...string) error {
	if len(codes) == 0 {
		return fmt.Errorf("no status codes provided")
	}
	ok, err := s.Matches(statusID, codes...)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("status %d is not in allowed codes %v", statusID, codes)
	}
	return nil
}

// ReviewableCode returns the status code that puts a submission of the given
// kind in front of reviewers.
func ReviewableCode(kind string) (string, error) {
	switch kind {
	case models.SubmissionKindEvidence:
		return StatusCodePending, nil
	case models.SubmissionKindAudit:
		return StatusCodeSubmitted, nil
	default:
		return "", fmt.Errorf("unknown submission kind %q", kind)
	}
}
