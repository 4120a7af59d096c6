package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"storefront-service/internal/config"
)

// Message is one outbound HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through an SMTP relay with gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a mailer from SMTP settings. The From header is "<name> <user>".
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   fmt.Sprintf("%s <%s>", cfg.From, cfg.User),
	}
}

// Send dials, delivers and hangs up. gomail has no context support, so a
// cancelled ctx abandons the wait but not the in-flight SMTP session.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetHeader("Message-ID", "<"+uuid.NewString()+"@storefront>")
	gm.SetBody("text/html", msg.HTML)

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("notify: failed to send %q to %s: %w", msg.Subject, msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify: send %q to %s abandoned: %w", msg.Subject, msg.To, ctx.Err())
	}
}

// LogSender writes messages to the log instead of sending them. Used when SMTP is not configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	log.Printf("INFO: Mail delivery disabled, dropping %q to %s", msg.Subject, msg.To)
	return nil
}
