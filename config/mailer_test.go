package config

import "testing"

func TestSendMailConsoleProviderCapturesMessage(t *testing.T) {
	t.Setenv("MAIL_PROVIDER", "console")
	ResetConsoleOutbox()

	err := SendMail([]string{"head@greenfield.example"}, "Submission approved", "<p>hello</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outbox := ConsoleOutbox()
	if len(outbox) != 1 {
		t.Fatalf("expected 1 captured message, got %d", len(outbox))
	}
	msg := outbox[0]
	if len(msg.To) != 1 || msg.To[0] != "head@greenfield.example" {
		t.Fatalf("unexpected recipients: %v", msg.To)
	}
	if msg.Subject != "Submission approved" {
		t.Fatalf("unexpected subject: %q", msg.Subject)
	}
	if msg.HTML != "<p>hello</p>" {
		t.Fatalf("unexpected body: %q", msg.HTML)
	}
}

func TestSendMailSkipsEmptyRecipients(t *testing.T) {
	t.Setenv("MAIL_PROVIDER", "console")
	ResetConsoleOutbox()

	if err := SendMail(nil, "ignored", "ignored"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ConsoleOutbox()) != 0 {
		t.Fatal("expected no captured messages for an empty recipient list")
	}
}

func TestSendMailSMTPRequiresConfiguration(t *testing.T) {
	t.Setenv("MAIL_PROVIDER", "smtp")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("MAIL_FROM", "")

	if err := SendMail([]string{"someone@example.org"}, "subject", "body"); err == nil {
		t.Fatal("expected error when smtp is unconfigured")
	}
}
