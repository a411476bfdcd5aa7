package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketService coordinates the ticket lifecycle.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// TicketCreateInput describes ticket creation payload. SenderEmail and
// SenderName are empty for form submissions; the store sentinels apply.
type TicketCreateInput struct {
	Title       string
	Description string
	SenderEmail string
	SenderName  string
	Source      events.TicketSource
}

// TicketListFilter describes listing parameters for the web boundary.
type TicketListFilter struct {
	Status string
	Limit  int
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, dispatcher events.Dispatcher) *TicketService {
	return &TicketService{tickets: tickets, dispatcher: dispatcher}
}

// Create validates input, applies sentinel defaults and persists the ticket.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := input.Description
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	// Email-derived tickets may carry an empty body (no text/plain part);
	// form submissions must not.
	if strings.TrimSpace(description) == "" && input.Source != events.SourceEmail {
		return nil, apperrors.NewValidationError("description required", nil)
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.StatusOpen,
		SenderEmail: input.SenderEmail,
	}
	if ticket.SenderEmail == "" {
		ticket.SenderEmail = domain.NoSenderEmail
	}
	senderName := strings.TrimSpace(input.SenderName)
	if senderName == "" {
		senderName = domain.UnknownSender
	}
	ticket.SenderName = &senderName

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewPersistenceError("create ticket", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:       ticket.Title,
			SenderEmail: ticket.SenderEmail,
			Source:      input.Source,
		},
	})
	return ticket, nil
}

// List returns tickets matching the filter, newest first. An empty or "All"
// status returns every ticket.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Status: filter.Status,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, apperrors.NewPersistenceError("list tickets", err)
	}
	return tickets, nil
}

// Get fetches one ticket by id.
func (s *TicketService) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.NewPersistenceError("get ticket", err)
	}
	return ticket, nil
}

// UpdateStatus overwrites a ticket's status. Any string is accepted except the
// filter wildcard, which would make listings ambiguous.
func (s *TicketService) UpdateStatus(ctx context.Context, id int64, newStatus string) (*domain.Ticket, error) {
	newStatus = strings.TrimSpace(newStatus)
	if newStatus == "" {
		return nil, apperrors.NewValidationError("status required", nil)
	}
	if newStatus == domain.StatusAll {
		return nil, apperrors.NewValidationError("status is reserved", nil)
	}

	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if err := s.tickets.UpdateStatus(ctx, id, newStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.NewPersistenceError("update ticket status", err)
	}
	ticket.Status = newStatus

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus:   oldStatus,
			NewStatus:   newStatus,
			SenderEmail: ticket.SenderEmail,
		},
	})
	return ticket, nil
}

// Delete removes a ticket permanently.
func (s *TicketService) Delete(ctx context.Context, id int64) error {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return apperrors.NewPersistenceError("delete ticket", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: id,
		Payload:  events.TicketDeletedPayload{Title: ticket.Title},
	})
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
