package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/", cfg.Tickets.ListTickets)
	app.Get("/new_ticket", cfg.Tickets.NewTicketForm)
	app.Post("/new_ticket", cfg.Tickets.CreateTicket)
	app.Get("/view_ticket/:id", cfg.Tickets.ViewTicket)
	app.Post("/update_ticket/:id", cfg.Tickets.UpdateTicket)
	app.Post("/delete_ticket/:id", cfg.Tickets.DeleteTicket)
}
