package email

import (
	"context"
	"fmt"
	"time"
)

const brand = "CASPIAN Restaurant"

// Mailer renders the account messages and hands them to a Sender.
type Mailer struct {
	sender  Sender
	timeout time.Duration
}

func NewMailer(sender Sender, timeout time.Duration) *Mailer {
	return &Mailer{sender: sender, timeout: timeout}
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.sender.Send(ctx, to, subject, body)
}

func (m *Mailer) SendSignupCode(ctx context.Context, to, name, code string) error {
	subject := "Verify Your Email - " + brand
	body := fmt.Sprintf("Hello %s,\n\n"+
		"Thank you for signing up with %s.\n\n"+
		"Your verification code is: %s\n\n"+
		"This code will expire in 10 minutes. If you did not sign up, please ignore this email.\n",
		name, brand, code)
	return m.send(ctx, to, subject, body)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	subject := "Password Reset Link - " + brand
	body := fmt.Sprintf("Hello %s,\n\n"+
		"We received a request to reset your password. Open the link below to choose a new one:\n\n"+
		"%s\n\n"+
		"This link will expire in 15 minutes. If you did not request a reset, you can ignore this email.\n",
		name, resetURL)
	return m.send(ctx, to, subject, body)
}

func (m *Mailer) SendWelcome(ctx context.Context, to, name string) error {
	subject := "Welcome to " + brand + "!"
	body := fmt.Sprintf("Hello %s,\n\n"+
		"Your account is ready. Spin the wheel once a day for a chance to win offers at %s.\n\n"+
		"See you soon!\n",
		name, brand)
	return m.send(ctx, to, subject, body)
}
