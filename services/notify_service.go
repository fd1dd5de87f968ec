package services

import (
	"fmt"
	"html/template"
	"log"
	"os"
	"strings"
	"time"

	"eco-schools-api/config"
	"eco-schools-api/models"

	"gorm.io/gorm"
)

// Notification event keys and audiences, mirroring notification_templates.
const (
	EventSubmissionReceived = "submission_received"
	EventSubmissionApproved = "submission_approved"
	EventSubmissionRejected = "submission_rejected"
	EventSubmissionDeleted  = "submission_deleted"

	AudienceSchool = "school"
	AudienceAdmin  = "admin"
)

const roleIDAdmin = 3

type templatedMessage struct {
	Title string
	Body  string
}

// Built-in fallbacks keep notifications flowing when a template row was
// deactivated or never seeded.
var defaultTemplates = map[string]templatedMessage{
	EventSubmissionReceived + "/" + AudienceAdmin: {
		Title: "New submission {{submission_number}} awaiting review",
		Body:  "{{school_name}} submitted {{item_title}} ({{submission_kind}}). It is now in the review queue.",
	},
	EventSubmissionApproved + "/" + AudienceSchool: {
		Title: "Submission {{submission_number}} approved",
		Body:  "Good news! Your {{submission_kind}} submission \"{{item_title}}\" has been approved. {{review_notes}}",
	},
	EventSubmissionRejected + "/" + AudienceSchool: {
		Title: "Submission {{submission_number}} needs changes",
		Body:  "Your {{submission_kind}} submission \"{{item_title}}\" was not approved. Reviewer notes: {{review_notes}}",
	},
	EventSubmissionDeleted + "/" + AudienceSchool: {
		Title: "Submission {{submission_number}} removed",
		Body:  "Your {{submission_kind}} submission \"{{item_title}}\" was removed by the programme team. {{review_notes}}",
	},
}

// DefaultTemplate returns the built-in template for an event and audience.
// The template admin screen uses it to restore an edited row.
func DefaultTemplate(eventKey, sendTo string) (title, body string, ok bool) {
	tmpl, found := defaultTemplates[eventKey+"/"+sendTo]
	if !found {
		return "", "", false
	}
	return tmpl.Title, tmpl.Body, true
}

// NotifyService turns review outcomes into in-app notifications and emails.
// It runs strictly after the owning transaction commits; a failure here is
// logged and reported, never propagated into the review path.
type NotifyService struct {
	db *gorm.DB
}

// NewNotifyService instantiates the service.
func NewNotifyService(db *gorm.DB) *NotifyService {
	if db == nil {
		db = config.DB
	}
	return &NotifyService{db: db}
}

// DispatchSubmissionEvent creates the in-app notification rows for one
// submission event and queues the matching emails on a goroutine. It reports
// whether at least one notification row was stored.
func (n *NotifyService) DispatchSubmissionEvent(eventKey string, sub models.Submission, notes string) bool {
	audience := AudienceSchool
	if eventKey == EventSubmissionReceived {
		audience = AudienceAdmin
	}

	data, schoolEmails, submitterName := n.buildEventData(sub, notes)

	msg, err := n.renderTemplate(eventKey, audience, data)
	if err != nil {
		log.Printf("[Notify] render template %s/%s: %v", eventKey, audience, err)
		return false
	}

	notifType := notificationType(eventKey)

	queued := false
	switch audience {
	case AudienceAdmin:
		admins := n.activeAdmins()
		if len(admins) == 0 {
			log.Printf("[Notify] no active admins to notify for %s", eventKey)
			return false
		}
		adminEmails := make([]string, 0, len(admins))
		for _, admin := range admins {
			row := models.Notification{
				UserID:              admin.UserID,
				Title:               msg.Title,
				Message:             msg.Body,
				Type:                notifType,
				RelatedSubmissionID: &sub.SubmissionID,
				CreatedAt:           time.Now(),
			}
			if err := n.db.Create(&row).Error; err != nil {
				log.Printf("[Notify] store notification for user %d: %v", admin.UserID, err)
				continue
			}
			queued = true
			if admin.Email != "" {
				adminEmails = append(adminEmails, admin.Email)
			}
		}
		if len(adminEmails) > 0 {
			html := buildFormalEmailHTML(msg.Title, "Programme Team", msg.Body)
			go sendMailSafe(adminEmails, msg.Title, html)
		}

	default:
		row := models.Notification{
			UserID:              sub.SubmittedBy,
			Title:               msg.Title,
			Message:             msg.Body,
			Type:                notifType,
			RelatedSubmissionID: &sub.SubmissionID,
			CreatedAt:           time.Now(),
		}
		if err := n.db.Create(&row).Error; err != nil {
			log.Printf("[Notify] store notification for user %d: %v", sub.SubmittedBy, err)
		} else {
			queued = true
		}
		if len(schoolEmails) > 0 {
			html := buildFormalEmailHTML(msg.Title, submitterName, msg.Body)
			go sendMailSafe(schoolEmails, msg.Title, html)
		}
	}

	return queued
}

func notificationType(eventKey string) string {
	switch eventKey {
	case EventSubmissionApproved:
		return "success"
	case EventSubmissionRejected:
		return "error"
	case EventSubmissionDeleted:
		return "warning"
	default:
		return "info"
	}
}

func (n *NotifyService) renderTemplate(eventKey, audience string, data map[string]string) (templatedMessage, error) {
	var tmpl models.NotificationTemplate
	err := n.db.Where("event_key = ? AND send_to = ? AND is_active = 1", eventKey, audience).
		First(&tmpl).Error
	if err == nil {
		return templatedMessage{
			Title: applyTemplatePlaceholders(tmpl.TitleTemplate, data),
			Body:  applyTemplatePlaceholders(tmpl.BodyTemplate, data),
		}, nil
	}

	fallback, ok := defaultTemplates[eventKey+"/"+audience]
	if !ok {
		return templatedMessage{}, fmt.Errorf("no template for event %s -> %s", eventKey, audience)
	}
	return templatedMessage{
		Title: applyTemplatePlaceholders(fallback.Title, data),
		Body:  applyTemplatePlaceholders(fallback.Body, data),
	}, nil
}

func applyTemplatePlaceholders(text string, data map[string]string) string {
	result := text
	for key, value := range data {
		placeholder := "{{" + key + "}}"
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return strings.TrimSpace(result)
}

// buildEventData assembles the placeholder map plus the school-side email
// recipients for one submission.
func (n *NotifyService) buildEventData(sub models.Submission, notes string) (map[string]string, []string, string) {
	schoolName := "-"
	emails := make([]string, 0, 2)

	var school models.School
	if err := n.db.Select("school_id, school_name, contact_email").
		First(&school, "school_id = ?", sub.SchoolID).Error; err == nil {
		if strings.TrimSpace(school.SchoolName) != "" {
			schoolName = school.SchoolName
		}
		if addr := strings.TrimSpace(school.ContactEmail); addr != "" {
			emails = append(emails, addr)
		}
	}

	submitterName := schoolName
	var submitter models.User
	if err := n.db.Select("user_id, first_name, last_name, email").
		First(&submitter, "user_id = ?", sub.SubmittedBy).Error; err == nil {
		name := strings.TrimSpace(submitter.FirstName + " " + submitter.LastName)
		if name != "" {
			submitterName = name
		}
		if addr := strings.TrimSpace(submitter.Email); addr != "" && !containsFold(emails, addr) {
			emails = append(emails, addr)
		}
	}

	data := map[string]string{
		"submission_number": sub.SubmissionNumber,
		"submission_kind":   sub.SubmissionKind,
		"school_name":       schoolName,
		"item_title":        n.submissionTitle(sub),
		"review_notes":      strings.TrimSpace(notes),
		"web_url":           appBaseURL(),
	}
	return data, emails, submitterName
}

func containsFold(list []string, candidate string) bool {
	for _, v := range list {
		if strings.EqualFold(v, candidate) {
			return true
		}
	}
	return false
}

func (n *NotifyService) submissionTitle(sub models.Submission) string {
	var title string

	switch sub.SubmissionKind {
	case models.SubmissionKindEvidence:
		var d struct{ Title *string }
		if err := n.db.Raw(`SELECT title FROM evidence_details WHERE submission_id = ? LIMIT 1`, sub.SubmissionID).
			Scan(&d).Error; err == nil && d.Title != nil {
			title = *d.Title
		}
	case models.SubmissionKindAudit:
		var d struct{ PeriodLabel *string }
		if err := n.db.Raw(`SELECT period_label FROM audit_details WHERE submission_id = ? LIMIT 1`, sub.SubmissionID).
			Scan(&d).Error; err == nil && d.PeriodLabel != nil {
			title = "Plastic audit " + *d.PeriodLabel
		}
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return "-"
	}
	return title
}

func (n *NotifyService) activeAdmins() []models.User {
	var admins []models.User
	if err := n.db.Select("user_id, first_name, last_name, email").
		Where("role_id = ? AND is_active = 1 AND deleted_at IS NULL", roleIDAdmin).
		Find(&admins).Error; err != nil {
		log.Printf("[Notify] load admins: %v", err)
	}
	return admins
}

func appBaseURL() string {
	raw := strings.TrimSpace(os.Getenv("APP_BASE_URL"))
	if raw == "" {
		return "-"
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return raw
}

func buildFormalEmailHTML(subject, recipientName, message string) string {
	name := strings.TrimSpace(recipientName)
	if name == "" {
		name = "Participant"
	}

	escapedSubject := template.HTMLEscapeString(subject)
	escapedGreeting := template.HTMLEscapeString(fmt.Sprintf("Dear %s,", name))
	escapedMessage := template.HTMLEscapeString(strings.TrimSpace(message))
	escapedMessage = strings.ReplaceAll(strings.ReplaceAll(escapedMessage, "\r\n", "\n"), "\r", "\n")
	escapedMessage = strings.ReplaceAll(escapedMessage, "\n", "<br />")

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
  <div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
    <p style="margin:0 0 16px 0;font-size:16px;line-height:1.7;color:#111827;">%s</p>
    <p style="margin:0 0 0 0;font-size:16px;line-height:1.7;color:#111827;word-break:break-word;">%s</p>
  </div>
</div>
</body>
</html>`, escapedSubject, escapedGreeting, escapedMessage)
}

func sendMailSafe(to []string, subject, html string) {
	if err := config.SendMail(to, subject, html); err != nil {
		log.Printf("notification email send failed (subject=%q to=%v): %v", subject, to, err)
	}
}
