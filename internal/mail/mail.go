// Package mail delivers finished mashups by email.
//
// Example:
//
//	sender := mail.NewSMTPSender(mail.Config{
//	    Host:     "smtp.gmail.com",
//	    Port:     465,
//	    Username: os.Getenv("EMAIL_USER"),
//	    Password: os.Getenv("EMAIL_PASS"),
//	})
//	err := sender.Send(ctx, "you@example.com", zipBytes, "mashup_1a2b3c4d.zip")
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// ErrMissingCredentials is returned when no SMTP username or password is configured.
var ErrMissingCredentials = errors.New("email credentials missing")

// DefaultSubject is used when Config.Subject is empty.
const DefaultSubject = "Your Custom Mashup is Ready!"

// DefaultBody is the plain text body of every delivery.
const DefaultBody = "Hello,\n\n" +
	"Your requested mashup has been successfully generated!\n" +
	"Please find the zip file attached.\n\n" +
	"Best regards,\n" +
	"Mashup Web Service"

// Sender delivers an attachment to a recipient.
type Sender interface {
	Send(ctx context.Context, recipient string, attachment []byte, filename string) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// From defaults to Username.
	From    string
	Subject string

	// Timeout bounds dialing and sending. Zero uses 30 seconds.
	Timeout time.Duration
}

// SMTPSender sends mail through an authenticated SMTP server.
//
// Port 465 uses implicit TLS. Any other port requires STARTTLS.
type SMTPSender struct {
	cfg Config
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg Config) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPSender{cfg: cfg}
}

// Send mails attachment as filename to recipient.
func (s *SMTPSender) Send(ctx context.Context, recipient string, attachment []byte, filename string) error {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return ErrMissingCredentials
	}

	msg, err := s.Message(recipient, attachment, filename)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send to %s: %w", recipient, err)
	}
	return nil
}

// Message builds the email without sending it.
func (s *SMTPSender) Message(recipient string, attachment []byte, filename string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("sender address %q: %w", s.cfg.From, err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("recipient address %q: %w", recipient, err)
	}
	msg.Subject(s.cfg.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, DefaultBody)
	msg.AttachReadSeeker(filename, bytes.NewReader(attachment), gomail.WithFileContentType("application/zip"))
	return msg, nil
}
