// Package email delivers account emails over SMTP or Amazon SES.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrNotConfigured is returned when a mailer has no server to talk to.
var ErrNotConfigured = errors.New("email delivery is not configured")

// Mailer sends the emails the API needs.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, familyTitle, resetURL string) error
}

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	UseTLS   bool
}

// Service sends email over SMTP
type Service struct {
	config *Config
	log    *logrus.Entry
}

// NewService creates a new SMTP email service
func NewService(config *Config, log *logrus.Entry) *Service {
	return &Service{config: config, log: log}
}

// Email represents an email message
type Email struct {
	To       []string
	CC       []string
	BCC      []string
	Subject  string
	Body     string
	HTMLBody string
}

func (s *Service) buildMessage(email *Email) []byte {
	var msg bytes.Buffer

	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(email.To, ", ")))
	if len(email.CC) > 0 {
		msg.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(email.CC, ", ")))
	}
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")

	if email.HTMLBody != "" {
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(email.HTMLBody)
	} else {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(email.Body)
	}
	return msg.Bytes()
}

// Send delivers one message.
func (s *Service) Send(email *Email) error {
	if s.config.Host == "" {
		return ErrNotConfigured
	}

	msg := s.buildMessage(email)

	recipients := append([]string{}, email.To...)
	recipients = append(recipients, email.CC...)
	recipients = append(recipients, email.BCC...)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	if !s.config.UseTLS {
		return smtp.SendMail(addr, auth, s.config.From, recipients, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("TLS dial error: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("SMTP client error: %w", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("auth error: %w", err)
	}
	if err = client.Mail(s.config.From); err != nil {
		return fmt.Errorf("mail error: %w", err)
	}
	for _, rcpt := range recipients {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt error: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data error: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close error: %w", err)
	}
	return client.Quit()
}

// SendPasswordReset mails the reset link to the family account address.
func (s *Service) SendPasswordReset(ctx context.Context, to, familyTitle, resetURL string) error {
	msg, err := renderPasswordReset(PasswordResetData{FamilyTitle: familyTitle, ResetURL: resetURL})
	if err != nil {
		return err
	}
	if err := s.Send(&Email{To: []string{to}, Subject: msg.Subject, HTMLBody: msg.HTML}); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	s.log.WithField("to", to).Info("password reset email sent")
	return nil
}

// LogMailer writes reset links to the log instead of sending them. It is
// the development default when no provider is configured.
type LogMailer struct {
	log *logrus.Entry
}

func NewLogMailer(log *logrus.Entry) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, familyTitle, resetURL string) error {
	m.log.WithFields(logrus.Fields{
		"to":     to,
		"family": familyTitle,
		"link":   resetURL,
	}).Warn("email delivery disabled, password reset link logged instead")
	return nil
}

// ProviderConfig selects and configures a mailer.
type ProviderConfig struct {
	Provider  string
	SMTP      Config
	AWSRegion string
	SESFrom   string
}

// New builds the mailer for provider "smtp", "ses" or "" (log only).
func New(ctx context.Context, cfg ProviderConfig, log *logrus.Entry) (Mailer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "smtp":
		smtpCfg := cfg.SMTP
		return NewService(&smtpCfg, log), nil
	case "ses":
		return NewSESMailer(ctx, cfg.AWSRegion, cfg.SESFrom, cfg.SMTP.FromName, log)
	case "", "log", "none":
		return NewLogMailer(log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
