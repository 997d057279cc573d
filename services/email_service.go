package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/bolaodoscria/bolao-backend/config"
	"github.com/bolaodoscria/bolao-backend/models"
)

//go:embed templates/*.html
var emailTemplates embed.FS

var parsedEmailTemplates = template.Must(template.ParseFS(emailTemplates, "templates/*.html"))

// EmailService sends transactional mail over SMTP (implicit TLS on 465, STARTTLS otherwise).
type EmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

func (s *EmailService) SendEmail(to []string, subject string, body string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := []byte("To: " + strings.Join(to, ", ") + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("smtp tls dial failed: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("failed to create smtp client: %w", err)
		}
	} else {
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial failed: %w", err)
		}
		client = c
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp STARTTLS failed: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}
	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO failed: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close DATA: %w", err)
	}
	return nil
}

func renderEmail(name string, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := parsedEmailTemplates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return body.String(), nil
}

func resetCodeEmail(name, code string) (string, error) {
	if strings.TrimSpace(name) == "" {
		name = models.DefaultDisplayName
	}
	return renderEmail("password_reset_code.html", struct {
		Name         string
		Code         string
		ValidMinutes int
	}{
		Name:         name,
		Code:         code,
		ValidMinutes: int(resetCodeTTL.Minutes()),
	})
}

func (s *EmailService) SendPasswordResetCode(_ context.Context, to, name, code string) error {
	body, err := resetCodeEmail(name, code)
	if err != nil {
		return err
	}
	return s.SendEmail([]string{to}, "Código para redefinir sua senha", body)
}

// LogMailer stands in for SMTP in development: the code is written to the log.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendPasswordResetCode(ctx context.Context, to, _ string, code string) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "smtp disabled, password reset code not emailed",
		slog.String("to", to), slog.String("code", code))
	return nil
}
