// Bootstrap script: creates the schema and the reference rows a fresh
// installation needs (roles, review statuses, notification templates, the
// first admin account).
package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"eco-schools-api/config"
	"eco-schools-api/models"
	"eco-schools-api/services"
	"eco-schools-api/utils"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize database
	config.InitDB()

	if err := config.DB.AutoMigrate(
		&models.Role{},
		&models.School{},
		&models.User{},
		&models.ReviewStatus{},
		&models.Submission{},
		&models.EvidenceDetail{},
		&models.AuditDetail{},
		&models.SubmissionReviewLog{},
		&models.Notification{},
		&models.NotificationTemplate{},
	); err != nil {
		log.Fatal("Failed to migrate schema:", err)
	}

	seedRoles()
	seedReviewStatuses()
	seedNotificationTemplates()
	seedAdminAccount()

	log.Println("Seeding completed!")
}

func seedRoles() {
	roles := []models.Role{
		{RoleID: 1, Role: "school"},
		{RoleID: 3, Role: "admin"},
	}

	for _, role := range roles {
		var existing models.Role
		if err := config.DB.Where("role_id = ?", role.RoleID).First(&existing).Error; err == nil {
			continue
		}
		now := time.Now()
		role.CreatedAt = &now
		role.UpdatedAt = &now
		if err := config.DB.Create(&role).Error; err != nil {
			log.Printf("Failed to seed role %s: %v\n", role.Role, err)
			continue
		}
		log.Printf("Seeded role %s\n", role.Role)
	}
}

func seedReviewStatuses() {
	statuses := []models.ReviewStatus{
		{StatusCode: services.StatusCodeDraft, StatusName: "Draft"},
		{StatusCode: services.StatusCodeSubmitted, StatusName: "Submitted"},
		{StatusCode: services.StatusCodePending, StatusName: "Pending Review"},
		{StatusCode: services.StatusCodeApproved, StatusName: "Approved"},
		{StatusCode: services.StatusCodeRejected, StatusName: "Rejected"},
	}

	for _, status := range statuses {
		var existing models.ReviewStatus
		if err := config.DB.Where("status_code = ?", status.StatusCode).First(&existing).Error; err == nil {
			continue
		}
		now := time.Now()
		status.CreatedAt = &now
		status.UpdatedAt = &now
		if err := config.DB.Create(&status).Error; err != nil {
			log.Printf("Failed to seed status %s: %v\n", status.StatusCode, err)
			continue
		}
		log.Printf("Seeded review status %s\n", status.StatusCode)
	}
}

func seedNotificationTemplates() {
	pairs := []struct {
		EventKey string
		SendTo   string
	}{
		{services.EventSubmissionReceived, services.AudienceAdmin},
		{services.EventSubmissionApproved, services.AudienceSchool},
		{services.EventSubmissionRejected, services.AudienceSchool},
		{services.EventSubmissionDeleted, services.AudienceSchool},
	}

	for _, pair := range pairs {
		title, body, ok := services.DefaultTemplate(pair.EventKey, pair.SendTo)
		if !ok {
			continue
		}

		var existing models.NotificationTemplate
		if err := config.DB.Where("event_key = ? AND send_to = ?", pair.EventKey, pair.SendTo).
			First(&existing).Error; err == nil {
			continue
		}

		now := time.Now()
		tmpl := models.NotificationTemplate{
			EventKey:      pair.EventKey,
			SendTo:        pair.SendTo,
			TitleTemplate: title,
			BodyTemplate:  body,
			Variables:     []byte(`["submission_number","submission_kind","school_name","item_title","review_notes","web_url"]`),
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := config.DB.Create(&tmpl).Error; err != nil {
			log.Printf("Failed to seed template %s/%s: %v\n", pair.EventKey, pair.SendTo, err)
			continue
		}
		log.Printf("Seeded notification template %s/%s\n", pair.EventKey, pair.SendTo)
	}
}

func seedAdminAccount() {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin account")
		return
	}

	var existing models.User
	if err := config.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Printf("Admin account %s already exists, skipping\n", email)
		return
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		log.Fatal("Failed to hash admin password:", err)
	}

	now := time.Now()
	admin := models.User{
		FirstName: "Programme",
		LastName:  "Admin",
		Email:     email,
		Password:  hashed,
		RoleID:    3,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := config.DB.Create(&admin).Error; err != nil {
		log.Fatal("Failed to create admin account:", err)
	}
	log.Printf("Created admin account %s\n", email)
}
