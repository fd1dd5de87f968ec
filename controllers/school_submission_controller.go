package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eco-schools-api/config"
	"eco-schools-api/models"
	"eco-schools-api/services"
)

var submissionNumberMutex sync.Mutex

// generateSubmissionNumber creates a unique number like EV-2026-0042. The
// running counter is scoped to the calendar year; after too many collision
// probes the suffix falls back to a random fragment.
func generateSubmissionNumber(kind string) string {
	submissionNumberMutex.Lock()
	defer submissionNumberMutex.Unlock()

	prefix := "EV"
	if kind == models.SubmissionKindAudit {
		prefix = "AU"
	}
	year := time.Now().Format("2006")

	prefixYearLike := fmt.Sprintf("%s-%s%%", prefix, year)

	var count int64
	config.DB.Model(&models.Submission{}).
		Where("submission_kind = ? AND submission_number LIKE ?", kind, prefixYearLike).
		Count(&count)

	for i := int64(1); i <= 10; i++ {
		potential := fmt.Sprintf("%s-%s-%04d", prefix, year, count+i)

		var existing int64
		config.DB.Model(&models.Submission{}).
			Where("submission_number = ?", potential).
			Count(&existing)

		if existing == 0 {
			return potential
		}
	}

	fragment := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("%s-%s-R-%s", prefix, year, fragment)
}

func schoolContext(c *gin.Context) (schoolID, userID int, ok bool) {
	userVal, userExists := c.Get("userID")
	schoolVal, schoolExists := c.Get("schoolID")
	if !userExists || !schoolExists {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "no school associated with this account",
		})
		return 0, 0, false
	}
	userID, _ = userVal.(int)
	schoolID, _ = schoolVal.(int)
	if userID <= 0 || schoolID <= 0 {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "no school associated with this account",
		})
		return 0, 0, false
	}
	return schoolID, userID, true
}

func photoRefsJSON(values []string) json.RawMessage {
	if len(values) == 0 {
		return json.RawMessage("[]")
	}

	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	data, err := json.Marshal(cleaned)
	if err != nil {
		return json.RawMessage("[]")
	}
	return data
}

// GetSchoolSubmissions lists the authenticated school's own submissions.
// GET /api/v1/school/submissions
func GetSchoolSubmissions(c *gin.Context) {
	db := config.DB
	statuses := services.NewStatusService(nil)

	schoolID, _, ok := schoolContext(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	kind := strings.TrimSpace(c.Query("kind"))
	statusCode := strings.TrimSpace(c.Query("status"))

	query := db.Model(&models.Submission{}).
		Where("school_id = ? AND deleted_at IS NULL", schoolID)

	if kind != "" {
		if kind != models.SubmissionKindEvidence && kind != models.SubmissionKindAudit {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "kind must be evidence or audit",
			})
			return
		}
		query = query.Where("submission_kind = ?", kind)
	}

	if statusCode != "" {
		statusID, err := statuses.IDByCode(statusCode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "unknown status code: " + statusCode,
			})
			return
		}
		query = query.Where("status_id = ?", statusID)
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to count submissions",
		})
		return
	}

	offset := (page - 1) * limit

	var submissions []models.Submission
	if err := query.
		Preload("Status").
		Preload("Evidence").
		Preload("Audit").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&submissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to fetch submissions",
		})
		return
	}

	totalPages := int((totalCount + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"submissions": submissions,
		"pagination": gin.H{
			"current_page": page,
			"per_page":     limit,
			"total_count":  totalCount,
			"total_pages":  totalPages,
			"has_next":     page < totalPages,
			"has_prev":     page > 1,
		},
	})
}

// GetSchoolSubmissionDetail returns one of the school's own submissions with
// its detail record and any review notes.
// GET /api/v1/school/submissions/:id
func GetSchoolSubmissionDetail(c *gin.Context) {
	db := config.DB

	schoolID, _, ok := schoolContext(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid submission id"})
		return
	}

	var submission models.Submission
	if err := db.
		Preload("Status").
		Preload("Evidence").
		Preload("Audit").
		Where("submission_id = ? AND school_id = ? AND deleted_at IS NULL", id, schoolID).
		First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "submission not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": submission,
	})
}

type createEvidenceRequest struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description"`
	ActivityType string   `json:"activity_type"`
	PhotoRefs    []string `json:"photo_refs"`
}

// CreateEvidenceSubmission records a new evidence item. Evidence goes straight
// into the review pool, so it is created as pending with submitted_at set.
// POST /api/v1/school/evidence
func CreateEvidenceSubmission(c *gin.Context) {
	db := config.DB
	statuses := services.NewStatusService(nil)

	schoolID, userID, ok := schoolContext(c)
	if !ok {
		return
	}

	var req createEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "title is required"})
		return
	}

	pendingID, err := statuses.IDByCode(services.StatusCodePending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "review statuses are not configured"})
		return
	}

	now := time.Now()
	submission := models.Submission{
		SubmissionNumber: generateSubmissionNumber(models.SubmissionKindEvidence),
		SubmissionKind:   models.SubmissionKindEvidence,
		SchoolID:         schoolID,
		SubmittedBy:      userID,
		StatusID:         pendingID,
		SubmittedAt:      &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	tx := db.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to start transaction"})
		return
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&submission).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create submission"})
		return
	}

	detail := models.EvidenceDetail{
		SubmissionID: submission.SubmissionID,
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		ActivityType: strings.TrimSpace(req.ActivityType),
		PhotoRefs:    photoRefsJSON(req.PhotoRefs),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.Create(&detail).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create evidence detail"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to save submission"})
		return
	}

	services.NewCountsService(nil, nil).InvalidateCounts()
	services.NewNotifyService(nil).DispatchSubmissionEvent(services.EventSubmissionReceived, submission, "")

	submission.Evidence = &detail
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "evidence submitted for review",
		"submission": submission,
	})
}

type auditCountsRequest struct {
	PeriodLabel  string `json:"period_label" binding:"required"`
	BottleCount  int    `json:"bottle_count"`
	BagCount     int    `json:"bag_count"`
	StrawCount   int    `json:"straw_count"`
	WrapperCount int    `json:"wrapper_count"`
	OtherCount   int    `json:"other_count"`
}

func (r *auditCountsRequest) validate() error {
	if strings.TrimSpace(r.PeriodLabel) == "" {
		return fmt.Errorf("period_label is required")
	}
	if r.BottleCount < 0 || r.BagCount < 0 || r.StrawCount < 0 || r.WrapperCount < 0 || r.OtherCount < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	return nil
}

// CreateAuditDraft records a new plastic waste audit as a draft. Drafts stay
// editable and invisible to reviewers until the school submits them.
// POST /api/v1/school/audits
func CreateAuditDraft(c *gin.Context) {
	db := config.DB
	statuses := services.NewStatusService(nil)

	schoolID, userID, ok := schoolContext(c)
	if !ok {
		return
	}

	var req auditCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	draftID, err := statuses.IDByCode(services.StatusCodeDraft)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "review statuses are not configured"})
		return
	}

	now := time.Now()
	submission := models.Submission{
		SubmissionNumber: generateSubmissionNumber(models.SubmissionKindAudit),
		SubmissionKind:   models.SubmissionKindAudit,
		SchoolID:         schoolID,
		SubmittedBy:      userID,
		StatusID:         draftID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	detail := models.AuditDetail{
		PeriodLabel:  strings.TrimSpace(req.PeriodLabel),
		BottleCount:  req.BottleCount,
		BagCount:     req.BagCount,
		StrawCount:   req.StrawCount,
		WrapperCount: req.WrapperCount,
		OtherCount:   req.OtherCount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	detail.TotalItems = detail.SumItems()

	tx := db.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to start transaction"})
		return
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&submission).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create submission"})
		return
	}

	detail.SubmissionID = submission.SubmissionID
	if err := tx.Create(&detail).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create audit detail"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to save audit draft"})
		return
	}

	submission.Audit = &detail
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "audit draft created",
		"submission": submission,
	})
}

// UpdateAuditDraft edits an audit that is still a draft.
// PUT /api/v1/school/audits/:id
func UpdateAuditDraft(c *gin.Context) {
	db := config.DB
	statuses := services.NewStatusService(nil)

	schoolID, _, ok := schoolContext(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid submission id"})
		return
	}

	var req auditCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	var submission models.Submission
	if err := db.
		Where("submission_id = ? AND school_id = ? AND submission_kind = ? AND deleted_at IS NULL",
			id, schoolID, models.SubmissionKindAudit).
		First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "audit not found"})
		return
	}

	isDraft, err := statuses.Matches(submission.StatusID, services.StatusCodeDraft)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve submission status"})
		return
	}
	if !isDraft {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "only draft audits can be edited"})
		return
	}

	now := time.Now()
	total := req.BottleCount + req.BagCount + req.StrawCount + req.WrapperCount + req.OtherCount

	tx := db.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to start transaction"})
		return
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&models.AuditDetail{}).
		Where("submission_id = ?", submission.SubmissionID).
		Updates(map[string]interface{}{
			"period_label":  strings.TrimSpace(req.PeriodLabel),
			"bottle_count":  req.BottleCount,
			"bag_count":     req.BagCount,
			"straw_count":   req.StrawCount,
			"wrapper_count": req.WrapperCount,
			"other_count":   req.OtherCount,
			"total_items":   total,
			"updated_at":    now,
		}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update audit detail"})
		return
	}

	if err := tx.Model(&models.Submission{}).
		Where("submission_id = ?", submission.SubmissionID).
		Update("updated_at", now).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update submission"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to save audit"})
		return
	}

	var detail models.AuditDetail
	if err := db.Where("submission_id = ?", submission.SubmissionID).First(&detail).Error; err == nil {
		submission.Audit = &detail
	}
	submission.UpdatedAt = now

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "audit draft updated",
		"submission": submission,
	})
}

// SubmitAudit moves a draft audit into the review pool.
// POST /api/v1/school/audits/:id/submit
func SubmitAudit(c *gin.Context) {
	db := config.DB
	statuses := services.NewStatusService(nil)

	schoolID, _, ok := schoolContext(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid submission id"})
		return
	}

	var submission models.Submission
	if err := db.
		Where("submission_id = ? AND school_id = ? AND submission_kind = ? AND deleted_at IS NULL",
			id, schoolID, models.SubmissionKindAudit).
		First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "audit not found"})
		return
	}

	isDraft, err := statuses.Matches(submission.StatusID, services.StatusCodeDraft)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve submission status"})
		return
	}
	if !isDraft {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "only draft audits can be submitted"})
		return
	}

	submittedID, err := statuses.IDByCode(services.StatusCodeSubmitted)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "review statuses are not configured"})
		return
	}

	now := time.Now()
	if err := db.Model(&models.Submission{}).
		Where("submission_id = ?", submission.SubmissionID).
		Updates(map[string]interface{}{
			"status_id":    submittedID,
			"submitted_at": now,
			"updated_at":   now,
		}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to submit audit"})
		return
	}

	submission.StatusID = submittedID
	submission.SubmittedAt = &now
	submission.UpdatedAt = now

	services.NewCountsService(nil, nil).InvalidateCounts()
	services.NewNotifyService(nil).DispatchSubmissionEvent(services.EventSubmissionReceived, submission, "")

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "audit submitted for review",
		"submission": submission,
	})
}
