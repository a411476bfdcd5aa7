package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
)

// Sender delivers one notification email. Satisfied by notify.Mailer.
type Sender interface {
	Send(ctx context.Context, subject, body, recipient string) error
}

// TicketNotification formats the outbound subject/body for a ticket id.
type TicketNotification func(ticketID int64) (subject, body string)

// NotificationService emails the requester when their ticket changes.
// Delivery failures are logged and never reach the triggering operation.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     Sender
	format     TicketNotification
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender Sender, format TicketNotification, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		format:     format,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		n.logger.Warn("unexpected payload type", zap.String("event_id", event.ID))
		return nil
	}
	if payload.SenderEmail == "" || payload.SenderEmail == domain.NoSenderEmail {
		// Manual tickets carry no reachable requester.
		return nil
	}

	subject, body := n.format(event.TicketID)
	if err := n.sender.Send(ctx, subject, body, payload.SenderEmail); err != nil {
		n.logger.Error("notification failed",
			zap.Int64("ticket_id", event.TicketID),
			zap.String("recipient", payload.SenderEmail),
			zap.Error(err))
	}
	return nil
}
