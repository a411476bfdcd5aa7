// Package ingest converts unread mailbox messages into tickets, once per
// message. Processed messages are marked read whether or not their ticket
// insert succeeded: the next poll never sees them again, so a failed insert
// loses that message rather than duplicating it later. The loss is logged and
// counted.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/mailbox"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/service"
)

// TicketCreator is the slice of the ticket service the ingestor needs.
type TicketCreator interface {
	Create(ctx context.Context, input service.TicketCreateInput) (*domain.Ticket, error)
}

// Ingestor runs the unread-mailbox-to-tickets conversion.
type Ingestor struct {
	dialer  mailbox.Dialer
	tickets TicketCreator
	metrics *observability.Metrics
	logger  *zap.Logger
	timeout time.Duration
}

// New constructs an Ingestor. timeout bounds each run.
func New(dialer mailbox.Dialer, tickets TicketCreator, metrics *observability.Metrics, logger *zap.Logger, timeout time.Duration) *Ingestor {
	return &Ingestor{
		dialer:  dialer,
		tickets: tickets,
		metrics: metrics,
		logger:  logger,
		timeout: timeout,
	}
}

// Run executes one ingestion run. Session establishment failures abort the run
// with nothing marked read; per-message failures are isolated and logged. The
// returned error reflects run-level failure only.
func (i *Ingestor) Run(ctx context.Context) error {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	logger := i.logger.With(zap.String("run_id", uuid.NewString()))

	session, err := i.dialer.Dial(ctx)
	if err != nil {
		logger.Error("mailbox session failed; run skipped", zap.Error(err))
		i.metrics.RecordIngestRun(0, 0, true)
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("mailbox session close", zap.Error(err))
		}
	}()

	messages, err := session.ListUnread(ctx)
	if err != nil {
		logger.Error("list unread failed; run skipped", zap.Error(err))
		i.metrics.RecordIngestRun(0, 0, true)
		return err
	}
	if len(messages) == 0 {
		logger.Info("no unread messages")
		i.metrics.RecordIngestRun(0, 0, false)
		return nil
	}

	created, discarded := 0, 0
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled mid-batch", zap.Error(err))
			i.metrics.RecordIngestRun(created, discarded, true)
			return err
		}

		if _, err := i.tickets.Create(ctx, ticketInput(msg)); err != nil {
			// The message is still marked read below; it will not come back.
			discarded++
			logger.Error("ticket insert failed; message dropped",
				zap.String("message_id", msg.ID),
				zap.String("subject", msg.Subject),
				zap.Error(err))
		} else {
			created++
			logger.Info("ticket created from email",
				zap.String("subject", msg.Subject),
				zap.String("from", msg.From))
		}

		if err := session.MarkRead(ctx, msg.ID); err != nil {
			logger.Warn("mark read failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	logger.Info("ingestion run complete", zap.Int("created", created), zap.Int("discarded", discarded))
	i.metrics.RecordIngestRun(created, discarded, false)
	return nil
}

func ticketInput(msg mailbox.Message) service.TicketCreateInput {
	input := service.TicketCreateInput{
		Title:       msg.Subject,
		Description: msg.Body,
		SenderEmail: msg.From,
		Source:      events.SourceEmail,
	}
	if input.Title == "" {
		input.Title = domain.NoSubject
	}
	if msg.From != "" {
		input.SenderName = domain.SenderLocalPart(msg.From)
	}
	return input
}
