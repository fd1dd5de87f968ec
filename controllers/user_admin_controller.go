package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"eco-schools-api/config"
	"eco-schools-api/models"
	"eco-schools-api/utils"
)

const (
	roleIDSchool = 1
	roleIDAdmin  = 3
)

// GetUsers lists user accounts with filtering and pagination.
// GET /api/v1/admin/users
func GetUsers(c *gin.Context) {
	db := config.DB

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := db.Model(&models.User{}).Where("deleted_at IS NULL")

	if roleIDStr := strings.TrimSpace(c.Query("role_id")); roleIDStr != "" {
		roleID, err := strconv.Atoi(roleIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid role_id"})
			return
		}
		query = query.Where("role_id = ?", roleID)
	}

	if schoolIDStr := strings.TrimSpace(c.Query("school_id")); schoolIDStr != "" {
		schoolID, err := strconv.Atoi(schoolIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid school_id"})
			return
		}
		query = query.Where("school_id = ?", schoolID)
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
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ?", like, like, like)
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to count users"})
		return
	}

	offset := (page - 1) * limit

	var users []models.User
	if err := query.
		Preload("Role").
		Preload("School").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch users"})
		return
	}

	totalPages := int((totalCount + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   users,
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

// GetUser returns one user account.
// GET /api/v1/admin/users/:id
func GetUser(c *gin.Context) {
	db := config.DB

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid user id"})
		return
	}

	var user models.User
	if err := db.
		Preload("Role").
		Preload("School").
		Where("user_id = ? AND deleted_at IS NULL", id).
		First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

type createUserRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	RoleID    int    `json:"role_id" binding:"required"`
	SchoolID  *int   `json:"school_id"`
}

// CreateUser creates a new account. School accounts must name the school they
// belong to; admin accounts never carry one.
// POST /api/v1/admin/users
func CreateUser(c *gin.Context) {
	db := config.DB

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if req.RoleID != roleIDSchool && req.RoleID != roleIDAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "role_id must be 1 (school) or 3 (admin)"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing int64
	db.Model(&models.User{}).Where("email = ?", email).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "email already in use"})
		return
	}

	var schoolID *int
	if req.RoleID == roleIDSchool {
		if req.SchoolID == nil || *req.SchoolID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "school accounts require a school_id"})
			return
		}
		var school models.School
		if err := db.Where("school_id = ? AND deleted_at IS NULL", *req.SchoolID).First(&school).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "school not found"})
			return
		}
		schoolID = req.SchoolID
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to hash password"})
		return
	}

	now := time.Now()
	user := models.User{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     email,
		Password:  hashed,
		RoleID:    req.RoleID,
		SchoolID:  schoolID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

type updateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	RoleID    *int    `json:"role_id"`
	SchoolID  *int    `json:"school_id"`
	IsActive  *bool   `json:"is_active"`
}

// UpdateUser applies a partial update to an account.
// PUT /api/v1/admin/users/:id
func UpdateUser(c *gin.Context) {
	db := config.DB

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid user id"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	var user models.User
	if err := db.Where("user_id = ? AND deleted_at IS NULL", id).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "user not found"})
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}

	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "first_name must not be empty"})
			return
		}
		updates["first_name"] = name
	}

	if req.LastName != nil {
		name := strings.TrimSpace(*req.LastName)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "last_name must not be empty"})
			return
		}
		updates["last_name"] = name
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "email must not be empty"})
			return
		}
		if email != user.Email {
			var existing int64
			db.Model(&models.User{}).Where("email = ? AND user_id != ?", email, user.UserID).Count(&existing)
			if existing > 0 {
				c.JSON(http.StatusConflict, gin.H{"success": false, "error": "email already in use"})
				return
			}
		}
		updates["email"] = email
	}

	roleID := user.RoleID
	if req.RoleID != nil {
		if *req.RoleID != roleIDSchool && *req.RoleID != roleIDAdmin {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "role_id must be 1 (school) or 3 (admin)"})
			return
		}
		roleID = *req.RoleID
		updates["role_id"] = roleID
	}

	if req.SchoolID != nil {
		if *req.SchoolID <= 0 {
			updates["school_id"] = nil
		} else {
			var school models.School
			if err := db.Where("school_id = ? AND deleted_at IS NULL", *req.SchoolID).First(&school).Error; err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "school not found"})
				return
			}
			updates["school_id"] = *req.SchoolID
		}
	}

	if roleID == roleIDSchool {
		schoolAfter := user.SchoolID
		if v, ok := updates["school_id"]; ok {
			if v == nil {
				schoolAfter = nil
			} else {
				sid := v.(int)
				schoolAfter = &sid
			}
		}
		if schoolAfter == nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "school accounts require a school_id"})
			return
		}
	}

	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update user"})
		return
	}

	if err := db.Preload("Role").Preload("School").
		Where("user_id = ?", user.UserID).First(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to reload user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ResetUserPassword sets a new password for an account.
// POST /api/v1/admin/users/:id/reset-password
func ResetUserPassword(c *gin.Context) {
	db := config.DB

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid user id"})
		return
	}

	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "new_password must be at least 8 characters"})
		return
	}

	var user models.User
	if err := db.Where("user_id = ? AND deleted_at IS NULL", id).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "user not found"})
		return
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to hash password"})
		return
	}

	if err := db.Model(&user).Updates(map[string]interface{}{
		"password":   hashed,
		"updated_at": time.Now(),
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to reset password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "password reset"})
}

// DeleteUser soft-deletes an account and deactivates it. Admins cannot delete
// their own account.
// DELETE /api/v1/admin/users/:id
func DeleteUser(c *gin.Context) {
	db := config.DB

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid user id"})
		return
	}

	callerID, _ := c.Get("userID")
	if caller, ok := callerID.(int); ok && caller == id {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "cannot delete your own account"})
		return
	}

	var user models.User
	if err := db.Where("user_id = ? AND deleted_at IS NULL", id).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "user not found"})
		return
	}

	now := time.Now()
	if err := db.Model(&user).Updates(map[string]interface{}{
		"is_active":  false,
		"deleted_at": now,
		"updated_at": now,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "user deleted"})
}
