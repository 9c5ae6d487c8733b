package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

var ErrNotConfigured = errors.New("smtp is not configured")

// Sender delivers one plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Server   string
	Port     string
	User     string
	Pass     string
	FromAddr string
	FromName string
}

func (c SMTPConfig) missing() []string {
	var m []string
	if c.Server == "" {
		m = append(m, "SMTP_SERVER")
	}
	if c.Port == "" {
		m = append(m, "SMTP_PORT")
	}
	if c.User == "" {
		m = append(m, "SMTP_USER")
	}
	if c.Pass == "" {
		m = append(m, "SMTP_PASS")
	}
	if c.FromAddr == "" {
		m = append(m, "FROM_ADDR")
	}
	return m
}

type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if m := cfg.missing(); len(m) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(m, ", "))
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := []byte(fmt.Sprintf("From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n"+
		"%s",
		s.cfg.FromName, s.cfg.FromAddr, to, subject, body))

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Server)

	// net/smtp has no context support; abandon the dial when ctx ends.
	done := make(chan error, 1)
	go func() {
		done <- s.send(s.cfg.Server+":"+s.cfg.Port, auth, s.cfg.FromAddr, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send email: %w", ctx.Err())
	}
}

// Disabled rejects every message with Reason. It stands in for SMTP when the
// server runs without mail settings, so dispatch failures surface normally.
type Disabled struct {
	Reason error
}

func (d Disabled) Send(context.Context, string, string, string) error {
	if d.Reason == nil {
		return ErrNotConfigured
	}
	return d.Reason
}
