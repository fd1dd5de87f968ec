package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"eco-schools-api/config"
	"eco-schools-api/models"
)

// GetSchools lists registered schools with filtering and pagination.
// GET /api/v1/admin/schools
func GetSchools(c *gin.Context) {
	db := config.DB

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := db.Model(&models.School{}).Where("deleted_at IS NULL")

	if region := strings.TrimSpace(c.Query("region")); region != "" {
		query = query.Where("region = ?", region)
	}

	if isActive := strings.TrimSpace(c.Query("is_active")); isActive != "" {
		if isActive == "true" || isActive == "1" {
			query = query.Where("is_active = 1")
		} else if isActive == "false" || isActive == "0" {
			query = query.Where("is_active = 0")
		}
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		query = query.Where("school_name LIKE ? OR school_code LIKE ?", like, like)
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to count schools"})
		return
	}

	offset := (page - 1) * limit

	var schools []models.School
	if err := query.
		Order("school_name ASC").
		Offset(offset).
		Limit(limit).
		Find(&schools).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch schools"})
		return
	}

	totalPages := int((totalCount + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"schools": schools,
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

// GetSchool returns one school together with its submission totals.
// GET /api/v1/admin/schools/:id
func GetSchool(c *gin.Context) {
	db := config.DB

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid school id"})
		return
	}

	var school models.School
	if err := db.Where("school_id = ? AND deleted_at IS NULL", id).First(&school).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "school not found"})
		return
	}

	var submissionCount int64
	db.Model(&models.Submission{}).
		Where("school_id = ? AND deleted_at IS NULL", id).
		Count(&submissionCount)

	var userCount int64
	db.Model(&models.User{}).
		Where("school_id = ? AND deleted_at IS NULL", id).
		Count(&userCount)

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"school":           school,
		"submission_count": submissionCount,
		"user_count":       userCount,
	})
}

type schoolRequest struct {
	SchoolName   string `json:"school_name" binding:"required"`
	SchoolCode   string `json:"school_code" binding:"required"`
	Region       string `json:"region"`
	ContactEmail string `json:"contact_email"`
	IsActive     *bool  `json:"is_active"`
}

// CreateSchool registers a new school.
// POST /api/v1/admin/schools
func CreateSchool(c *gin.Context) {
	db := config.DB

	var req schoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.SchoolCode))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "school_code is required"})
		return
	}

	var existing int64
	db.Model(&models.School{}).Where("school_code = ?", code).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "school_code already in use"})
		return
	}

	now := time.Now()
	school := models.School{
		SchoolName:   strings.TrimSpace(req.SchoolName),
		SchoolCode:   code,
		Region:       strings.TrimSpace(req.Region),
		ContactEmail: strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.IsActive != nil {
		school.IsActive = *req.IsActive
	}

	if err := db.Create(&school).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create school"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "school": school})
}

// UpdateSchool edits a school record.
// PUT /api/v1/admin/schools/:id
func UpdateSchool(c *gin.Context) {
	db := config.DB

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid school id"})
		return
	}

	var req schoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	var school models.School
	if err := db.Where("school_id = ? AND deleted_at IS NULL", id).First(&school).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "school not found"})
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.SchoolCode))
	if code != school.SchoolCode {
		var existing int64
		db.Model(&models.School{}).Where("school_code = ? AND school_id != ?", code, school.SchoolID).Count(&existing)
		if existing > 0 {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "school_code already in use"})
			return
		}
	}

	updates := map[string]interface{}{
		"school_name":   strings.TrimSpace(req.SchoolName),
		"school_code":   code,
		"region":        strings.TrimSpace(req.Region),
		"contact_email": strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		"updated_at":    time.Now(),
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := db.Model(&school).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update school"})
		return
	}

	if err := db.Where("school_id = ?", school.SchoolID).First(&school).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to reload school"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "school": school})
}

// DeleteSchool soft-deletes a school. Schools that still have active accounts
// cannot be removed.
// DELETE /api/v1/admin/schools/:id
func DeleteSchool(c *gin.Context) {
	db := config.DB

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid school id"})
		return
	}

	var school models.School
	if err := db.Where("school_id = ? AND deleted_at IS NULL", id).First(&school).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "school not found"})
		return
	}

	var activeUsers int64
	db.Model(&models.User{}).
		Where("school_id = ? AND is_active = 1 AND deleted_at IS NULL", id).
		Count(&activeUsers)
	if activeUsers > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "school still has active accounts",
		})
		return
	}

	now := time.Now()
	if err := db.Model(&school).Updates(map[string]interface{}{
		"is_active":  false,
		"deleted_at": now,
		"updated_at": now,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete school"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "school deleted"})
}
