package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eco-schools-api/config"
	"eco-schools-api/models"
	"eco-schools-api/services"
)

// GetDashboardStats returns dashboard statistics for the landing screen. The
// payload depends on the caller's role: admins see programme-wide numbers,
// school accounts see their own.
func GetDashboardStats(c *gin.Context) {
	userIDVal, userExists := c.Get("userID")
	roleIDVal, roleExists := c.Get("roleID")
	if !userExists || !roleExists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "authentication context missing",
		})
		return
	}

	userID, okUser := userIDVal.(int)
	roleID, okRole := roleIDVal.(int)
	if !okUser || !okRole {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "invalid user or role id",
		})
		return
	}

	var stats map[string]interface{}
	if roleID == roleIDAdmin {
		stats = getAdminDashboard()
	} else {
		schoolID := 0
		if v, ok := c.Get("schoolID"); ok {
			schoolID, _ = v.(int)
		}
		stats = getSchoolDashboard(userID, schoolID)
	}

	if stats == nil {
		stats = make(map[string]interface{})
	}

	stats["current_date"] = time.Now().Format("2006-01-02")

	c.JSON(http.StatusOK, gin.H{
		"stats": stats,
	})
}

func submissionCountsByStatus(scopeSchoolID int) map[string]int64 {
	byStatus := map[string]int64{}

	var rows []struct {
		StatusCode string `gorm:"column:status_code"`
		Total      int64  `gorm:"column:total"`
	}

	q := config.DB.Table("submissions s").
		Joins("JOIN review_statuses rs ON rs.status_id = s.status_id").
		Where("s.deleted_at IS NULL").
		Select("rs.status_code AS status_code, COUNT(*) AS total").
		Group("rs.status_code")
	if scopeSchoolID > 0 {
		q = q.Where("s.school_id = ?", scopeSchoolID)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return byStatus
	}

	for _, row := range rows {
		byStatus[row.StatusCode] = row.Total
	}
	return byStatus
}

// getAdminDashboard returns programme-wide statistics.
func getAdminDashboard() map[string]interface{} {
	stats := make(map[string]interface{})

	if pending, err := services.NewCountsService(nil, nil).PendingReview(); err == nil {
		stats["pending_review"] = pending
	}

	stats["submissions_by_status"] = submissionCountsByStatus(0)

	var kindRows []struct {
		SubmissionKind string `gorm:"column:submission_kind"`
		Total          int64  `gorm:"column:total"`
	}
	byKind := map[string]int64{}
	if err := config.DB.Table("submissions").
		Where("deleted_at IS NULL").
		Select("submission_kind, COUNT(*) AS total").
		Group("submission_kind").
		Scan(&kindRows).Error; err == nil {
		for _, row := range kindRows {
			byKind[row.SubmissionKind] = row.Total
		}
	}
	stats["submissions_by_kind"] = byKind

	var schoolStats struct {
		Total  int64 `json:"total"`
		Active int64 `json:"active"`
	}
	config.DB.Model(&models.School{}).
		Where("deleted_at IS NULL").
		Count(&schoolStats.Total)
	config.DB.Model(&models.School{}).
		Where("is_active = 1 AND deleted_at IS NULL").
		Count(&schoolStats.Active)
	stats["schools"] = schoolStats

	var activeUsers int64
	config.DB.Model(&models.User{}).
		Where("is_active = 1 AND deleted_at IS NULL").
		Count(&activeUsers)
	stats["active_users"] = activeUsers

	var plastic struct {
		TotalItems int64 `json:"total_items"`
	}
	config.DB.Table("audit_details ad").
		Joins("JOIN submissions s ON ad.submission_id = s.submission_id").
		Joins("JOIN review_statuses rs ON rs.status_id = s.status_id").
		Where("s.deleted_at IS NULL AND rs.status_code = ?", services.StatusCodeApproved).
		Select("COALESCE(SUM(ad.total_items),0)").
		Scan(&plastic.TotalItems)
	stats["plastic_items_recorded"] = plastic.TotalItems

	var recentLogs []models.SubmissionReviewLog
	if err := config.DB.
		Preload("Reviewer").
		Order("created_at DESC").
		Limit(10).
		Find(&recentLogs).Error; err == nil {
		stats["recent_decisions"] = recentLogs
	}

	return stats
}

// getSchoolDashboard returns statistics scoped to one school account.
func getSchoolDashboard(userID, schoolID int) map[string]interface{} {
	stats := make(map[string]interface{})

	if schoolID > 0 {
		stats["submissions_by_status"] = submissionCountsByStatus(schoolID)

		var plastic struct {
			TotalItems int64 `json:"total_items"`
		}
		config.DB.Table("audit_details ad").
			Joins("JOIN submissions s ON ad.submission_id = s.submission_id").
			Where("s.school_id = ? AND s.deleted_at IS NULL", schoolID).
			Select("COALESCE(SUM(ad.total_items),0)").
			Scan(&plastic.TotalItems)
		stats["plastic_items_recorded"] = plastic.TotalItems

		var recent []models.Submission
		if err := config.DB.
			Preload("Status").
			Where("school_id = ? AND deleted_at IS NULL", schoolID).
			Order("created_at DESC").
			Limit(5).
			Find(&recent).Error; err == nil {
			stats["recent_submissions"] = recent
		}
	}

	var unread int64
	config.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = 0", userID).
		Count(&unread)
	stats["unread_notifications"] = unread

	return stats
}
