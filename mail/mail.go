// Package mail sends contact-form messages over SMTP and reads the unread count of
// the studio mailbox over IMAP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/hsarchitect/folio/config"
)

const (
	DefaultSubject  = "Contact from website"
	defaultFromName = "Website"
	defaultTimeout  = 10 * time.Second
)

var ErrNotConfigured = errors.New("mail not configured")

// Message is a contact-form submission. Fields are expected to be HTML-escaped already.
type Message struct {
	Name    string
	Company string
	Email   string
	Subject string
	Body    string
}

// Sender delivers contact messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	cfg  *config.Smtp
	dial func(ctx context.Context, m *gomail.Msg) error
}

// NewSMTPSender returns a sender for cfg. A nil cfg yields a sender that always fails
// with ErrNotConfigured.
func NewSMTPSender(cfg *config.Smtp) *SMTPSender {
	s := &SMTPSender{cfg: cfg}
	s.dial = s.dialAndSend
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.cfg == nil {
		return ErrNotConfigured
	}

	m, err := s.build(msg)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	if err := s.dial(ctx, m); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (s *SMTPSender) build(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()

	fromName := s.cfg.FromName
	if fromName == "" {
		fromName = defaultFromName
	}
	if err := m.FromFormat(fromName, s.cfg.From); err != nil {
		return nil, err
	}
	if err := m.To(s.cfg.To); err != nil {
		return nil, err
	}
	if email := strings.TrimSpace(msg.Email); email != "" {
		if err := m.ReplyToFormat(html.UnescapeString(msg.Name), email); err != nil {
			return nil, err
		}
	}

	subject := msg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	m.Subject(html.UnescapeString(subject))

	m.SetBodyString(gomail.TypeTextPlain, plainBody(msg))
	m.AddAlternativeString(gomail.TypeTextHTML, htmlBody(msg))

	return m, nil
}

func plainBody(msg Message) string {
	return fmt.Sprintf("Name: %s\nCompany: %s\n\nMessage:\n%s\n",
		html.UnescapeString(msg.Name), html.UnescapeString(msg.Company), html.UnescapeString(msg.Body))
}

func htmlBody(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>Name:</strong> %s</p>\n", msg.Name)
	fmt.Fprintf(&b, "<p><strong>Company:</strong> %s</p>\n", msg.Company)
	fmt.Fprintf(&b, "<p><strong>Message:</strong><br/>%s</p>\n", strings.ReplaceAll(msg.Body, "\n", "<br/>"))
	b.WriteString("<hr/>\n<p>Sent from the website contact form</p>\n")
	return b.String()
}

func (s *SMTPSender) dialAndSend(ctx context.Context, m *gomail.Msg) error {
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTimeout(timeout),
		gomail.WithTLSPolicy(tlsPolicy(s.cfg.TLSPolicy)),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return err
	}

	return client.DialAndSendWithContext(ctx, m)
}

func tlsPolicy(name string) gomail.TLSPolicy {
	switch name {
	case "mandatory":
		return gomail.TLSMandatory
	case "none":
		return gomail.NoTLS
	default:
		return gomail.TLSOpportunistic
	}
}
