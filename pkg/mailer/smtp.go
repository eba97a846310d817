package mailer

import (
	"fmt"
	"net/smtp"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

type smtpMailer struct {
	config *SMTPConfig
}

func NewSMTPMailer(config *SMTPConfig) Mailer {
	return &smtpMailer{config: config}
}

func (m *smtpMailer) SendEmail(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.config.From, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	return smtp.SendMail(addr, auth, m.config.From, []string{to}, []byte(msg))
}
