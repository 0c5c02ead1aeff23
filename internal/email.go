package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"printdock.app/api/internal/config"
	"printdock.app/api/internal/database"
)

type Mailer interface {
	SendWelcome(ctx context.Context, user *database.User) error
}

// SMTPMailer sends mail through the configured SMTP relay.
type SMTPMailer struct {
	client   *mail.Client
	from     string
	entryURL string
}

func NewMailer(cfg *config.Config) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.EmailPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.EmailUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.EmailUser),
			mail.WithPassword(cfg.EmailPassword),
		)
	}
	client, err := mail.NewClient(cfg.EmailHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.EmailFrom, entryURL: cfg.EntryURL}, nil
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, user *database.User) error {
	msg, err := welcomeMessage(m.from, m.entryURL, user)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	return nil
}

func welcomeMessage(from, entryURL string, user *database.User) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid from email address '%s': %s", from, err)
	}
	if err := msg.To(user.Email); err != nil {
		return nil, fmt.Errorf("invalid to email address '%s': %s", user.Email, err)
	}
	msg.Subject("Welcome to PrintDock")

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", user.Firstname)
	body.WriteString("Your PrintDock account is ready. Upload the files you want printed and they will be waiting for you on your dashboard.\n\n")
	fmt.Fprintf(&body, "Sign in: %s\n", entryURL)
	msg.SetBodyString(mail.TypeTextPlain, body.String())
	return msg, nil
}
