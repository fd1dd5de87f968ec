package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eco-schools-api/services"
)

// BatchController drives the bulk review workflow: open an intent from the
// current selection, confirm it as one all-or-nothing operation, or cancel it.
// The backing service is injected so the intent registry is shared with the
// selection state.
type BatchController struct {
	batches *services.BatchService
}

func NewBatchController(batches *services.BatchService) *BatchController {
	return &BatchController{batches: batches}
}

type openBatchRequest struct {
	Kind          string `json:"kind" binding:"required"`
	SubmissionIDs []int  `json:"submission_ids"`
	Notes         string `json:"notes"`
}

// OpenBatch snapshots the targets for a bulk operation and returns the intent
// the dashboard shows in its confirmation dialog. When submission_ids is
// omitted the view's current selection is used.
// POST /api/v1/admin/review-views/:viewKey/batch
func (ctl *BatchController) OpenBatch(c *gin.Context) {
	viewKey, ok := viewKeyParam(c)
	if !ok {
		return
	}

	var req openBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "kind is required"})
		return
	}

	intent, err := ctl.batches.Open(viewKey, strings.TrimSpace(req.Kind), req.SubmissionIDs, req.Notes)
	if err != nil {
		respondBatchError(c, err, nil)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"intent":  intent,
	})
}

// GetBatch returns the view's open intent, if any.
// GET /api/v1/admin/review-views/:viewKey/batch
func (ctl *BatchController) GetBatch(c *gin.Context) {
	viewKey, ok := viewKeyParam(c)
	if !ok {
		return
	}

	intent, found := ctl.batches.Get(viewKey)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no open bulk operation for this view"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"intent":  intent,
	})
}

// ConfirmBatch applies the intent. On success the selection is cleared and the
// intent destroyed; on failure the intent stays open and the response lists
// the outcome for every target so the admin can see exactly which submissions
// blocked the batch.
// POST /api/v1/admin/review-views/:viewKey/batch/:intentId/confirm
func (ctl *BatchController) ConfirmBatch(c *gin.Context) {
	viewKey, ok := viewKeyParam(c)
	if !ok {
		return
	}
	intentID := strings.TrimSpace(c.Param("intentId"))
	if intentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid intent id"})
		return
	}

	userID, _ := c.Get("userID")
	reviewerID, _ := userID.(int)

	result, err := ctl.batches.Confirm(viewKey, intentID, reviewerID)
	if err != nil {
		respondBatchError(c, err, result)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "bulk operation applied",
		"result":  result,
	})
}

// CancelBatch discards an open intent without touching any submission.
// DELETE /api/v1/admin/review-views/:viewKey/batch/:intentId
func (ctl *BatchController) CancelBatch(c *gin.Context) {
	viewKey, ok := viewKeyParam(c)
	if !ok {
		return
	}
	intentID := strings.TrimSpace(c.Param("intentId"))
	if intentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid intent id"})
		return
	}

	if err := ctl.batches.Cancel(viewKey, intentID); err != nil {
		respondBatchError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "bulk operation cancelled",
	})
}

func respondBatchError(c *gin.Context, err error, result *services.BatchResult) {
	switch {
	case errors.Is(err, services.ErrUnknownBatchKind),
		errors.Is(err, services.ErrRejectionNotesRequired),
		errors.Is(err, services.ErrEmptyBatch):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, services.ErrIntentExists),
		errors.Is(err, services.ErrIntentInFlight):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, services.ErrIntentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, services.ErrBatchAborted):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   err.Error(),
			"result":  result,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "bulk operation failed, the pending operation was kept for retry"})
	}
}
