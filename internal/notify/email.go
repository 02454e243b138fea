package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/webpiratt/swapd/internal/tasks"
)

// EmailSender delivers notifications over SMTP to users who registered an
// email address in their notification fields.
type EmailSender struct {
	host     string
	port     string
	user     string
	password string
	from     string
	logger   *logrus.Logger
}

func NewEmailSender(host, port, user, password, from string, logger *logrus.Logger) *EmailSender {
	return &EmailSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		logger:   logger,
	}
}

func (e *EmailSender) Enabled() bool {
	return e.host != "" && e.from != ""
}

func (e *EmailSender) Send(payload tasks.NotificationPayload) error {
	if !e.Enabled() {
		return nil
	}
	to := payload.Fields["email"]
	if to == "" {
		return nil
	}

	var msg strings.Builder
	msg.WriteString("From: " + e.from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + payload.Subject + "\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(payload.Body + "\r\n")

	addr := e.host + ":" + e.port
	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	if err := smtp.SendMail(addr, auth, e.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
