package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func TestNewSMTPSenderRequiresConfig(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{Server: "smtp.example.com"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatal("Expected ErrNotConfigured, got", err)
	}
	if !strings.Contains(err.Error(), "SMTP_PASS") {
		t.Error("Expected missing keys in error, got", err)
	}
}

func TestSMTPSenderFormatsMessage(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{
		Server: "smtp.example.com", Port: "587", User: "u", Pass: "p",
		FromAddr: "noreply@example.com", FromName: "CASPIAN Restaurant",
	})
	if err != nil {
		t.Fatal(err)
	}

	var gotAddr string
	var gotMsg []byte
	s.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotMsg = addr, msg
		return nil
	}

	if err := s.Send(context.Background(), "ada@example.com", "Hi", "body"); err != nil {
		t.Fatal(err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Error("Expected server address, got", gotAddr)
	}
	msg := string(gotMsg)
	if !strings.HasPrefix(msg, "From: CASPIAN Restaurant <noreply@example.com>\r\nTo: ada@example.com\r\nSubject: Hi\r\n") {
		t.Errorf("Unexpected headers: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nbody") {
		t.Errorf("Unexpected body: %q", msg)
	}
}

func TestSMTPSenderHonoursContext(t *testing.T) {
	s, _ := NewSMTPSender(SMTPConfig{Server: "h", Port: "25", User: "u", Pass: "p", FromAddr: "a@b.c"})
	release := make(chan struct{})
	defer close(release)
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Send(ctx, "x@y.z", "s", "b"); !errors.Is(err, context.DeadlineExceeded) {
		t.Error("Expected deadline error, got", err)
	}
}

type recordSender struct{ subject, body string }

func (r *recordSender) Send(_ context.Context, _, subject, body string) error {
	r.subject, r.body = subject, body
	return nil
}

func TestMailerTemplates(t *testing.T) {
	rec := &recordSender{}
	m := NewMailer(rec, time.Second)

	m.SendSignupCode(context.Background(), "a@b.c", "Ada", "123456")
	if !strings.Contains(rec.body, "123456") || !strings.Contains(rec.subject, "Verify") {
		t.Errorf("Unexpected signup mail: %q %q", rec.subject, rec.body)
	}

	m.SendPasswordReset(context.Background(), "a@b.c", "Ada", "https://x/reset-password/tok")
	if !strings.Contains(rec.body, "https://x/reset-password/tok") {
		t.Error("Expected reset link in body")
	}
}

func TestDisabledSenderFailsDispatch(t *testing.T) {
	m := NewMailer(Disabled{}, time.Second)
	if err := m.SendWelcome(context.Background(), "a@b.c", "Ada"); !errors.Is(err, ErrNotConfigured) {
		t.Error("Expected ErrNotConfigured, got", err)
	}
}
