package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload for the manual-entry form.
type CreateTicketRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
}

// UpdateTicketRequest payload for status changes.
type UpdateTicketRequest struct {
	Status string `json:"status" form:"status"`
}

// TicketResponse is the serialized ticket.
type TicketResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	SenderEmail string    `json:"sender_email"`
	SenderName  *string   `json:"sender_name,omitempty"`
}

// FromTicket maps the domain entity.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status,
		CreatedAt:   ticket.CreatedAt,
		SenderEmail: ticket.SenderEmail,
		SenderName:  ticket.SenderName,
	}
}
