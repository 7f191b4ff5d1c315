package collab

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/voralek/sessguard/internal/core/domain"
)

// Mailer delivers transactional messages to a user.
type Mailer interface {
	// SendCode delivers a one-time login code.
	SendCode(ctx context.Context, toName, toEmail, code string) error

	// SendWelcome greets a freshly registered account.
	SendWelcome(ctx context.Context, toName, toEmail string) error
}

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

// NewSendGridMailer creates a mailer with the given API key and sender.
func NewSendGridMailer(apiKey, fromName, fromEmail string) (*SendGridMailer, error) {
	if apiKey == "" {
		return nil, domain.ErrMissingArgument.WithDetails("sendgrid api key")
	}
	if fromEmail == "" {
		return nil, domain.ErrMissingArgument.WithDetails("sender address")
	}
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}, nil
}

func (m *SendGridMailer) SendCode(ctx context.Context, toName, toEmail, code string) error {
	subject := "Your sign-in code"
	plain := fmt.Sprintf("Your one-time sign-in code is %s. It expires in a few minutes.", code)
	html := fmt.Sprintf("Your one-time sign-in code is <strong>%s</strong>. It expires in a few minutes.", code)
	return m.send(ctx, toName, toEmail, subject, plain, html)
}

func (m *SendGridMailer) SendWelcome(ctx context.Context, toName, toEmail string) error {
	subject := "Welcome to sessguard"
	plain := "Your account is ready. You can now sign in."
	html := "Your account is ready. You can now <strong>sign in</strong>."
	return m.send(ctx, toName, toEmail, subject, plain, html)
}

func (m *SendGridMailer) send(ctx context.Context, toName, toEmail, subject, plain, html string) error {
	from := sgmail.NewEmail(m.fromName, m.fromEmail)
	to := sgmail.NewEmail(toName, toEmail)
	msg := sgmail.NewSingleEmail(from, subject, to, plain, html)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return domain.ErrInternalServer.WithDetails("mail delivery failed").WithCause(err)
	}
	if resp.StatusCode >= 400 {
		return domain.ErrInternalServer.
			WithDetails(fmt.Sprintf("mail provider returned status %d", resp.StatusCode))
	}
	return nil
}

// NopMailer drops every message. Used in tests and code-less deployments.
type NopMailer struct{}

func (NopMailer) SendCode(context.Context, string, string, string) error { return nil }
func (NopMailer) SendWelcome(context.Context, string, string) error      { return nil }
