package services

import (
	"time"

	"eco-schools-api/config"
	"eco-schools-api/models"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// PendingCounts is the review-queue aggregate shown on the dashboard badge.
type PendingCounts struct {
	EvidencePending int64 `json:"evidence_pending"`
	AuditsSubmitted int64 `json:"audits_submitted"`
	Total           int64 `json:"total"`
}

var countsCache = gocache.New(30*time.Second, time.Minute)

const pendingCountsKey = "pending_counts"

// CountsService serves cached review-queue aggregates. Every successful
// transition or deletion invalidates the cache so dependent views re-fetch
// fresh numbers.
type CountsService struct {
	db       *gorm.DB
	statuses *StatusService
}

// NewCountsService instantiates the service.
func NewCountsService(db *gorm.DB, statuses *StatusService) *CountsService {
	if db == nil {
		db = config.DB
	}
	if statuses == nil {
		statuses = NewStatusService(db)
	}
	return &CountsService{db: db, statuses: statuses}
}

// PendingReview returns how many submissions currently await a decision.
func (c *CountsService) PendingReview() (PendingCounts, error) {
	if cached, ok := countsCache.Get(pendingCountsKey); ok {
		if counts, ok := cached.(PendingCounts); ok {
			return counts, nil
		}
	}

	pendingID, err := c.statuses.IDByCode(StatusCodePending)
	if err != nil {
		return PendingCounts{}, err
	}
	submittedID, err := c.statuses.IDByCode(StatusCodeSubmitted)
	if err != nil {
		return PendingCounts{}, err
	}

	var counts PendingCounts
	if err := c.db.Model(&models.Submission{}).
		Where("submission_kind = ? AND status_id = ? AND deleted_at IS NULL",
			models.SubmissionKindEvidence, pendingID).
		Count(&counts.EvidencePending).Error; err != nil {
		return PendingCounts{}, err
	}
	if err := c.db.Model(&models.Submission{}).
		Where("submission_kind = ? AND status_id = ? AND deleted_at IS NULL",
			models.SubmissionKindAudit, submittedID).
		Count(&counts.AuditsSubmitted).Error; err != nil {
		return PendingCounts{}, err
	}
	counts.Total = counts.EvidencePending + counts.AuditsSubmitted

	countsCache.Set(pendingCountsKey, counts, gocache.DefaultExpiration)
	return counts, nil
}

// InvalidateCounts discards the cached aggregate.
func (c *CountsService) InvalidateCounts() {
	countsCache.Delete(pendingCountsKey)
}
