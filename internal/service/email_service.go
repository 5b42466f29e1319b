package service

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"leaves-cms/internal/config"
)

type EmailService struct {
	config *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{config: cfg}
}

func (s *EmailService) Enabled() bool {
	if s == nil || s.config == nil || !s.config.EnableEmail {
		return false
	}
	return strings.TrimSpace(s.config.SMTPHost) != ""
}

func (s *EmailService) Send(to, subject, body string) error {
	if !s.Enabled() {
		return errors.New("email service is disabled or not configured")
	}

	host := strings.TrimSpace(s.config.SMTPHost)
	port := strings.TrimSpace(s.config.SMTPPort)
	if port == "" {
		port = "587"
	}
	from := strings.TrimSpace(s.config.SMTPFrom)
	if from == "" {
		from = "noreply@" + host
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	var auth smtp.Auth
	if s.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, host)
	}

	var builder strings.Builder
	builder.WriteString("From: " + from + "\r\n")
	builder.WriteString("To: " + strings.TrimSpace(to) + "\r\n")
	builder.WriteString("Subject: " + subject + "\r\n")
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(body)

	return smtp.SendMail(addr, auth, from, []string{to}, []byte(builder.String()))
}

// SendAdmins delivers the message to every configured admin address. A
// failure for one recipient does not stop the rest; the first error is
// returned.
func (s *EmailService) SendAdmins(subject, body string) error {
	if !s.Enabled() {
		return errors.New("email service is disabled or not configured")
	}
	if len(s.config.AdminEmails) == 0 {
		return errors.New("no admin emails configured")
	}

	var firstErr error
	for _, to := range s.config.AdminEmails {
		if err := s.Send(to, subject, body); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
