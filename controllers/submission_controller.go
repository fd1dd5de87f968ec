package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"eco-schools-api/config"
	"eco-schools-api/models"
	"eco-schools-api/services"
)

// GetAdminSubmissions returns the review listing for administrators with
// filtering, search, pagination, and sorting.
// GET /api/v1/admin/submissions
func GetAdminSubmissions(c *gin.Context) {
	db := config.DB
	statuses := services.NewStatusService(nil)

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
	schoolIDStr := strings.TrimSpace(c.Query("school_id"))
	search := strings.TrimSpace(c.Query("search"))
	sortBy := c.DefaultQuery("sort_by", "created_at")
	sortOrder := strings.ToUpper(c.DefaultQuery("sort_order", "DESC"))

	allowedSortFields := map[string]bool{
		"created_at":        true,
		"updated_at":        true,
		"submitted_at":      true,
		"submission_number": true,
		"status_id":         true,
		"school_id":         true,
	}
	if !allowedSortFields[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	query := db.Model(&models.Submission{}).Where("deleted_at IS NULL")

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

	if schoolIDStr != "" {
		schoolID, err := strconv.Atoi(schoolIDStr)
		if err != nil || schoolID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "invalid school_id",
			})
			return
		}
		query = query.Where("school_id = ?", schoolID)
	}

	if search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"submission_number LIKE ? OR school_id IN (SELECT school_id FROM schools WHERE school_name LIKE ?)",
			like, like,
		)
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
	orderClause := sortBy + " " + sortOrder

	var submissions []models.Submission
	if err := query.
		Preload("School").
		Preload("Status").
		Preload("Submitter").
		Order(orderClause).
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
		"filters": gin.H{
			"kind":      kind,
			"status":    statusCode,
			"school_id": schoolIDStr,
			"search":    search,
		},
		"sorting": gin.H{
			"sort_by":    sortBy,
			"sort_order": sortOrder,
		},
	})
}

// GetAdminSubmissionDetail returns one submission with its kind detail and
// review history.
// GET /api/v1/admin/submissions/:id
func GetAdminSubmissionDetail(c *gin.Context) {
	db := config.DB

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid submission id",
		})
		return
	}

	var submission models.Submission
	if err := db.
		Preload("School").
		Preload("Status").
		Preload("Submitter").
		Preload("Reviewer").
		Preload("Evidence").
		Preload("Audit").
		Where("submission_id = ? AND deleted_at IS NULL", id).
		First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "submission not found",
		})
		return
	}

	var reviewLogs []models.SubmissionReviewLog
	if err := db.
		Preload("Reviewer").
		Where("submission_id = ?", id).
		Order("created_at DESC").
		Find(&reviewLogs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to fetch review history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"submission":  submission,
		"review_logs": reviewLogs,
	})
}

// GetPendingReviewCount returns how many submissions are waiting for a
// decision, split by kind. Values come from a short-lived cache that review
// transitions invalidate.
// GET /api/v1/admin/submissions/pending-count
func GetPendingReviewCount(c *gin.Context) {
	counts := services.NewCountsService(nil, nil)

	pending, err := counts.PendingReview()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to count pending submissions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"counts":  pending,
	})
}
