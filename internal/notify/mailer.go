// Package notify delivers one-time sign-in codes by email and SMS.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Mailer sends the one-time code email.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}

// SMTPSettings configures SMTPMailer.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Portal   string
}

// SMTPMailer sends mail through an authenticated SMTP relay.
type SMTPMailer struct {
	settings SMTPSettings
	logger   *zap.Logger
}

var codeEmail = template.Must(template.New("code").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <p>Use the code below to sign in to {{.Portal}}.</p>
  <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
  <p>The code can be used once and expires shortly. If you did not request it, ignore this email.</p>
</body>
</html>`))

// NewSMTPMailer builds a mailer. Port 465 uses implicit TLS, other ports STARTTLS.
func NewSMTPMailer(settings SMTPSettings, logger *zap.Logger) *SMTPMailer {
	if settings.Port == 0 {
		settings.Port = 465
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPMailer{settings: settings, logger: logger.Named("mailer")}
}

// SendVerificationCode emails code to the given address.
func (m *SMTPMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	msg, err := verificationMessage(m.settings.From, to, m.settings.Portal, code)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.settings.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.settings.Username),
		mail.WithPassword(m.settings.Password),
	}
	if m.settings.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(m.settings.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	m.logger.Info("verification email sent", zap.String("to", to))
	return nil
}

func verificationMessage(from, to, portal, code string) (*mail.Msg, error) {
	var body bytes.Buffer
	if err := codeEmail.Execute(&body, map[string]string{"Portal": portal, "Code": code}); err != nil {
		return nil, fmt.Errorf("render verification email: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject("Sign in to " + portal)
	msg.SetBodyString(mail.TypeTextHTML, body.String())
	msg.AddAlternativeString(mail.TypeTextPlain, fmt.Sprintf("Your %s sign-in code is %s", portal, code))
	return msg, nil
}

// LogMailer logs instead of sending. It is used when SMTP is not configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a logging mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger.Named("mailer")}
}

// SendVerificationCode records that a code would have been sent.
func (m *LogMailer) SendVerificationCode(_ context.Context, to, _ string) error {
	m.logger.Warn("smtp not configured, verification email skipped", zap.String("to", to))
	return nil
}
