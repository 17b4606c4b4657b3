package config

import (
	"os"
	"strings"

	"gopkg.in/gomail.v2"
)

// Mailer sends a formatted notification to a single recipient. The core
// treats delivery as fire-and-forget: callers log and swallow errors.
type Mailer interface {
	Send(to string, subject string, htmlBody string) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds the production mailer from SMTP_* env configuration.
func NewSMTPMailer() Mailer {
	host := strings.TrimSpace(os.Getenv("SMTP_HOST"))
	if host == "" {
		host = "localhost"
	}
	port := intFromEnv("SMTP_PORT", 587)
	from := strings.TrimSpace(os.Getenv("SMTP_FROM"))
	if from == "" {
		from = "noreply@tbp.org"
	}

	d := gomail.NewDialer(host, port, os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASSWORD"))
	return &smtpMailer{dialer: d, from: from}
}

func (m *smtpMailer) Send(to string, subject string, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}
