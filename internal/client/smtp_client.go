package client

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"company-service/internal/config"
	"company-service/internal/util"
)

// SMTPClient sends transactional mail over implicit TLS (port 465).
type SMTPClient struct {
	config *config.SMTPConfig
	logger *zap.Logger
}

func NewSMTPClient(cfg *config.Config, logger *zap.Logger) *SMTPClient {
	util.Info("SMTP client initialized",
		zap.String("host", cfg.SMTP.Host),
		zap.String("port", cfg.SMTP.Port),
	)

	return &SMTPClient{
		config: &cfg.SMTP,
		logger: logger,
	}
}

// SendHTML delivers a single HTML email. Each call dials a fresh
// connection; volume here is low (OTPs and review decisions).
func (s *SMTPClient) SendHTML(to, subject, htmlBody string) error {
	addr := net.JoinHostPort(s.config.Host, s.config.Port)

	tlsConfig := &tls.Config{
		ServerName: s.config.Host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}

	c, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer c.Quit()

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}

	from := s.config.From
	if err := c.Mail(extractAddress(from)); err != nil {
		return fmt.Errorf("smtp mail from failed: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to failed: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data failed: %w", err)
	}

	msg := buildMessage(from, to, subject, htmlBody)
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close failed: %w", err)
	}

	s.logger.Debug("email sent",
		zap.String("to", to),
		zap.String("subject", subject),
	)

	return nil
}

func buildMessage(from, to, subject, htmlBody string) string {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return b.String()
}

// extractAddress pulls the bare address out of "Name <addr>" senders
func extractAddress(from string) string {
	if start := strings.Index(from, "<"); start != -1 {
		if end := strings.Index(from, ">"); end > start {
			return from[start+1 : end]
		}
	}
	return from
}
