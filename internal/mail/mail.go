// Package mail sends export attachments over SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/cordonsoft/accountreview/internal/config"
)

// Attachment is the serialized export carried by a message.
type Attachment struct {
	Name     string
	MIMEType string
	Content  []byte
}

// Message is one outgoing mail with a single attachment.
type Message struct {
	From       string
	To         string
	Subject    string
	Body       string
	Attachment Attachment
}

// Transport delivers a message. The SMTP implementation is swapped for a
// recording fake in tests.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPTransport sends messages through a configured SMTP server.
type SMTPTransport struct {
	cfg config.MailConfig
}

// NewSMTPTransport creates a transport from mail configuration.
func NewSMTPTransport(cfg config.MailConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

// Send composes and delivers the message. Transport rejection propagates to
// the caller; no retry is performed.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", msg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	if err := m.AttachReader(msg.Attachment.Name, bytes.NewReader(msg.Attachment.Content),
		gomail.WithFileContentType(gomail.ContentType(msg.Attachment.MIMEType))); err != nil {
		return fmt.Errorf("failed to attach %q: %w", msg.Attachment.Name, err)
	}

	opts := []gomail.Option{
		gomail.WithPort(t.cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(t.cfg.Username),
			gomail.WithPassword(t.cfg.Password),
		)
	}

	client, err := gomail.NewClient(t.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}
	return nil
}
