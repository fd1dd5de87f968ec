package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eco-schools-api/services"
)

// SelectionController exposes the per-view selection set the dashboard ticks
// submissions into before opening a bulk operation. The backing service is
// injected so every route group shares the same in-memory state.
type SelectionController struct {
	selection *services.SelectionService
}

func NewSelectionController(selection *services.SelectionService) *SelectionController {
	return &SelectionController{selection: selection}
}

func viewKeyParam(c *gin.Context) (string, bool) {
	key := strings.TrimSpace(c.Param("viewKey"))
	if key == "" || len(key) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid view key"})
		return "", false
	}
	return key, true
}

// GetSelection returns the current selection of a review view.
// GET /api/v1/admin/review-views/:viewKey/selection
func (ctl *SelectionController) GetSelection(c *gin.Context) {
	viewKey, ok := viewKeyParam(c)
	if !ok {
		return
	}

	ids := ctl.selection.Snapshot(viewKey)
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"view_key":     viewKey,
		"selected_ids": ids,
		"count":        len(ids),
	})
}

type toggleSelectionRequest struct {
	SubmissionID int `json:"submission_id" binding:"required"`
}

// ToggleSelection flips one submission in or out of the selection.
// POST /api/v1/admin/review-views/:viewKey/selection/toggle
func (ctl *SelectionController) ToggleSelection(c *gin.Context) {
	viewKey, ok := viewKeyParam(c)
	if !ok {
		return
	}

	var req toggleSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "submission_id is required"})
		return
	}
	if req.SubmissionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid submission_id"})
		return
	}

	selected, count := ctl.selection.Toggle(viewKey, req.SubmissionID)
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"submission_id": req.SubmissionID,
		"selected":      selected,
		"count":         count,
	})
}

type selectAllRequest struct {
	VisibleIDs []int `json:"visible_ids"`
}

// SelectAllVisible implements the header checkbox: selecting exactly the rows
// the dashboard currently shows, or clearing the selection when it already
// equals them.
// POST /api/v1/admin/review-views/:viewKey/selection/select-all
func (ctl *SelectionController) SelectAllVisible(c *gin.Context) {
	viewKey, ok := viewKeyParam(c)
	if !ok {
		return
	}

	var req selectAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}

	count := ctl.selection.SelectAllVisible(viewKey, req.VisibleIDs)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   count,
	})
}

// ClearSelection empties the selection but keeps the view alive.
// DELETE /api/v1/admin/review-views/:viewKey/selection
func (ctl *SelectionController) ClearSelection(c *gin.Context) {
	viewKey, ok := viewKeyParam(c)
	if !ok {
		return
	}

	ctl.selection.Clear(viewKey)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "selection cleared",
	})
}

// CloseView forgets the view and its selection entirely. The dashboard calls
// this when the admin navigates away from the review screen.
// DELETE /api/v1/admin/review-views/:viewKey
func (ctl *SelectionController) CloseView(c *gin.Context) {
	viewKey, ok := viewKeyParam(c)
	if !ok {
		return
	}

	ctl.selection.DropView(viewKey)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "view closed",
	})
}
