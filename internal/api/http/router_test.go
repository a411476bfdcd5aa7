package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apihttp "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

type memoryRepo struct {
	tickets map[int64]domain.Ticket
	order   []int64
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{tickets: map[int64]domain.Ticket{}}
}

func (m *memoryRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	m.nextID++
	ticket.ID = m.nextID
	ticket.CreatedAt = time.Now()
	m.tickets[ticket.ID] = *ticket
	m.order = append(m.order, ticket.ID)
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (m *memoryRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for i := len(m.order) - 1; i >= 0; i-- {
		ticket, ok := m.tickets[m.order[i]]
		if !ok {
			continue
		}
		if filter.Status != "" && filter.Status != domain.StatusAll && ticket.Status != filter.Status {
			continue
		}
		result = append(result, ticket)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	ticket, ok := m.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Status = status
	m.tickets[id] = ticket
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.tickets, id)
	return nil
}

func newTestApp(t *testing.T) (*fiber.App, *service.TicketService) {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	svc := service.NewTicketService(newMemoryRepo(), events.NewInMemoryDispatcher())

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	apihttp.RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	apihttp.RegisterRoutes(app, apihttp.RouteConfig{
		Health:  handlers.NewHealthHandler("helpdesk", "test", nil, nil, metrics),
		Tickets: handlers.NewTicketsHandler(svc),
	})
	return app, svc
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	decoded := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func createTicket(t *testing.T, app *fiber.App, title, description string) int64 {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/new_ticket",
		`{"title":"`+title+`","description":"`+description+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	return int64(data["id"].(float64))
}

func TestCreateTicketEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/new_ticket",
		`{"title":"VPN down","description":"Cannot connect"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := body["data"].(map[string]any)
	assert.Equal(t, "VPN down", data["title"])
	assert.Equal(t, domain.StatusOpen, data["status"])
	assert.Equal(t, domain.NoSenderEmail, data["sender_email"])
	assert.Equal(t, domain.UnknownSender, data["sender_name"])
}

func TestCreateTicketValidation(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/new_ticket", `{"description":"no title"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])

	resp, _ = doJSON(t, app, http.MethodPost, "/new_ticket", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListTicketsEndpoint(t *testing.T) {
	app, svc := newTestApp(t)
	createTicket(t, app, "first", "d")
	second := createTicket(t, app, "second", "d")
	_, err := svc.UpdateStatus(context.Background(), second, "Closed")
	require.NoError(t, err)

	resp, body := doJSON(t, app, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]any), 2)
	assert.Equal(t, "", body["current_filter"])

	resp, body = doJSON(t, app, http.MethodGet, "/?status=Closed", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, float64(second), items[0].(map[string]any)["id"])
	assert.Equal(t, "Closed", body["current_filter"])

	resp, body = doJSON(t, app, http.MethodGet, "/?status=All&limit=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items = body["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, float64(second), items[0].(map[string]any)["id"])
}

func TestViewTicketEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	id := createTicket(t, app, "view me", "d")

	resp, body := doJSON(t, app, http.MethodGet, "/view_ticket/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(id), body["data"].(map[string]any)["id"])

	resp, body = doJSON(t, app, http.MethodGet, "/view_ticket/999", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])

	resp, _ = doJSON(t, app, http.MethodGet, "/view_ticket/abc", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateTicketEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	createTicket(t, app, "update me", "d")

	resp, body := doJSON(t, app, http.MethodPost, "/update_ticket/1", `{"status":"Closed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Closed", body["data"].(map[string]any)["status"])

	resp, body = doJSON(t, app, http.MethodPost, "/update_ticket/1", `{"status":"All"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])

	resp, _ = doJSON(t, app, http.MethodPost, "/update_ticket/999", `{"status":"Closed"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteTicketEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	createTicket(t, app, "delete me", "d")

	resp, body := doJSON(t, app, http.MethodPost, "/delete_ticket/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["deleted"])

	resp, _ = doJSON(t, app, http.MethodPost, "/delete_ticket/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/view_ticket/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewTicketFormEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/new_ticket", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.ElementsMatch(t, []any{"title", "description"}, body["fields"].([]any))
}

func TestFormEncodedCreate(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/new_ticket",
		strings.NewReader("title=Printer+broken&description=It+jams"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestLivenessEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health/live", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "helpdesk", body["service"])
}
