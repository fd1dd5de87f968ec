package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eco-schools-api/services"
)

type reviewDecisionRequest struct {
	Notes string `json:"notes"`
}

func newReviewService() *services.ReviewService {
	return services.NewReviewService(nil, nil,
		services.NewNotifyService(nil),
		services.NewCountsService(nil, nil))
}

// ApproveSubmission approves one reviewable submission. Notes are optional.
// POST /api/v1/admin/submissions/:id/approve
func ApproveSubmission(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid submission id"})
		return
	}

	var req reviewDecisionRequest
	_ = c.ShouldBindJSON(&req)

	userID, _ := c.Get("userID")
	reviewerID, _ := userID.(int)

	result, err := newReviewService().Approve(id, reviewerID, req.Notes)
	if err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"message":             "submission approved",
		"submission":          result.Submission,
		"status_updated":      result.StatusUpdated,
		"notification_queued": result.NotificationQueued,
	})
}

// RejectSubmission rejects one reviewable submission. Notes are mandatory and
// the request fails before any database write when they are blank.
// POST /api/v1/admin/submissions/:id/reject
func RejectSubmission(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid submission id"})
		return
	}

	var req reviewDecisionRequest
	_ = c.ShouldBindJSON(&req)

	userID, _ := c.Get("userID")
	reviewerID, _ := userID.(int)

	result, err := newReviewService().Reject(id, reviewerID, req.Notes)
	if err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"message":             "submission rejected",
		"submission":          result.Submission,
		"status_updated":      result.StatusUpdated,
		"notification_queued": result.NotificationQueued,
	})
}

func respondReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRejectionNotesRequired):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, services.ErrSubmissionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, services.ErrNotReviewable):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to apply review decision"})
	}
}
