// Package notify sends outbound plain-text notification emails over SMTP.
package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// Mailer sends a single message per call; the SMTP session is opened and
// closed inside Send.
type Mailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
	send   func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer constructs a Mailer.
func NewMailer(cfg config.SMTPConfig, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// Send delivers one plain-text email. smtp.SendMail negotiates STARTTLS before
// authenticating when the server advertises it.
func (m *Mailer) Send(ctx context.Context, subject, body, recipient string) error {
	if m.cfg.Host == "" || m.cfg.Address == "" || m.cfg.Password == "" {
		return apperrors.NewConfigurationError("EMAIL_HOST_SMTP, EMAIL_ADDRESS or EMAIL_PASSWORD is not set")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.cfg.Address, recipient, subject, body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Address, m.cfg.Password, m.cfg.Host)
	if err := m.send(addr, auth, m.cfg.Address, []string{recipient}, []byte(msg)); err != nil {
		return apperrors.NewConnectivityError(fmt.Sprintf("send mail to %s", recipient), err)
	}

	m.logger.Info("email sent", zap.String("recipient", recipient), zap.String("subject", subject))
	return nil
}

// TicketUpdated formats the standard subject/body pair for a ticket-changed
// notification.
func TicketUpdated(ticketID int64) (subject, body string) {
	subject = fmt.Sprintf("Your Ticket #%d Has Been Updated", ticketID)
	body = fmt.Sprintf("Dear User,\n\nYour ticket #%d has been updated. Please log in to view more details.\n\nThank you!", ticketID)
	return subject, body
}
