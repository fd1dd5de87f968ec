package config

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	netmail "net/mail"
	"os"
	"strconv"
	"strings"
	"sync"

	mail "github.com/go-mail/mail/v2"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SentMail is one message captured by the console provider. Handlers never
// read it; tests and local runs do.
type SentMail struct {
	To      []string
	Subject string
	HTML    string
}

var (
	outboxMu      sync.Mutex
	consoleOutbox []SentMail
)

// SendMail delivers one HTML email to the given recipients using the provider
// selected by MAIL_PROVIDER (smtp, sendgrid or console). Recipient-less calls
// are a no-op so callers can pass through empty audience lists.
func SendMail(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}

	switch strings.ToLower(os.Getenv("MAIL_PROVIDER")) {
	case "sendgrid":
		return sendViaSendgrid(to, subject, html)
	case "console":
		return sendToConsole(to, subject, html)
	default:
		return sendViaSMTP(to, subject, html)
	}
}

func sendViaSMTP(to []string, subject, html string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if smtpPort == 0 {
		smtpPort = 587
	}
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	from := mailFrom()

	if smtpHost == "" || from == "" {
		return fmt.Errorf("smtp not configured (SMTP_HOST/MAIL_FROM)")
	}

	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	d := mail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)

	// Mandatory STARTTLS on 587 works for the common relays (Gmail/Office365).
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         smtpHost,
		InsecureSkipVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1", // dev only
	}

	return d.DialAndSend(m)
}

func sendViaSendgrid(to []string, subject, html string) error {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	from := mailFrom()
	if apiKey == "" || from == "" {
		return fmt.Errorf("sendgrid not configured (SENDGRID_API_KEY/MAIL_FROM)")
	}

	fromName, fromAddr := splitFromHeader(from)

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(fromName, fromAddr))
	m.AddContent(sgmail.NewContent("text/html", html))

	p := sgmail.NewPersonalization()
	p.Subject = subject
	for _, addr := range to {
		p.AddTos(sgmail.NewEmail("", addr))
	}
	m.AddPersonalizations(p)

	req := sendgrid.GetRequest(apiKey, "/v3/mail/send", "https://api.sendgrid.com")
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected message: status %d body %s", res.StatusCode, res.Body)
	}
	return nil
}

func sendToConsole(to []string, subject, html string) error {
	outboxMu.Lock()
	consoleOutbox = append(consoleOutbox, SentMail{To: to, Subject: subject, HTML: html})
	outboxMu.Unlock()

	log.Printf("[Mail] (console) To: %s | Subject: %s | %d bytes of HTML",
		strings.Join(to, ", "), subject, len(html))
	return nil
}

// ConsoleOutbox returns a copy of every message the console provider captured.
func ConsoleOutbox() []SentMail {
	outboxMu.Lock()
	defer outboxMu.Unlock()
	out := make([]SentMail, len(consoleOutbox))
	copy(out, consoleOutbox)
	return out
}

// ResetConsoleOutbox discards captured console messages.
func ResetConsoleOutbox() {
	outboxMu.Lock()
	defer outboxMu.Unlock()
	consoleOutbox = nil
}

func mailFrom() string {
	return os.Getenv("MAIL_FROM") // e.g. "Eco-Schools Programme <no-reply@your.org>"
}

func splitFromHeader(from string) (name, addr string) {
	if parsed, err := netmail.ParseAddress(from); err == nil {
		return parsed.Name, parsed.Address
	}
	return "", from
}
