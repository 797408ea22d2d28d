package services

import (
	"errors"
	"fmt"
	"net/smtp"
)

// Mailer delivers magic login links.
type Mailer interface {
	SendMagicLink(to, link string) error
}

// SMTPMailer sends magic links through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		send:     smtp.SendMail,
	}
}

func (m *SMTPMailer) SendMagicLink(to, link string) error {
	if m.Host == "" || m.Port == "" || m.Username == "" || m.Password == "" {
		return errors.New("SMTP not fully configured")
	}

	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)

	from := m.From
	if from == "" {
		from = m.Username
	}

	subject := "Your Login Link for Kanban Board"
	body := fmt.Sprintf("Click the link below to log in to your board:\n\n%s\n\nIf you didn't request this link, you can safely ignore this email.", link)
	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body)

	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)
	send := m.send
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(addr, auth, from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
