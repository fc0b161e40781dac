package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-bot/internal/api/dto"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/service"
	apperrors "github.com/spec-kit/support-bot/pkg/util/errorutil"
)

// AuditTrail reads the recorded lifecycle events of a ticket.
type AuditTrail interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditEntry, error)
}

// TicketsHandler relays ticket channel events to the desk.
type TicketsHandler struct {
	desk    *service.DeskService
	tickets *service.TicketService
	audit   AuditTrail
}

// NewTicketsHandler constructs handler. audit may be nil when no audit
// database is configured.
func NewTicketsHandler(desk *service.DeskService, tickets *service.TicketService, audit AuditTrail) *TicketsHandler {
	return &TicketsHandler{desk: desk, tickets: tickets, audit: audit}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.tickets.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// OpenTicket POST /tickets.
func (h *TicketsHandler) OpenTicket(c *fiber.Ctx) error {
	var req dto.OpenTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.desk.TicketOpened(c.UserContext(), req.TicketID, req.OwnerID, req.OwnerName)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), pathParam(c, "id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// PostMessage POST /tickets/:id/messages.
func (h *TicketsHandler) PostMessage(c *fiber.Ctx) error {
	var req dto.OwnerMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	outcome, err := h.desk.OwnerMessage(c.UserContext(), pathParam(c, "id"), req.AuthorID, req.Text)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if !outcome.Accepted {
		status = http.StatusAccepted
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.MessageResponse{
		Accepted:     outcome.Accepted,
		Reply:        outcome.Reply,
		IgnoreReason: outcome.IgnoreReason,
	}})
}

// Escalate POST /tickets/:id/escalate.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	bundle, err := h.desk.EscalateRequested(c.UserContext(), pathParam(c, "id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.EscalationResponse{
		TicketID:           bundle.TicketID,
		OwnerID:            bundle.OwnerID,
		LastProblemSummary: bundle.LastProblemSummary,
	}})
}

// MoreSupport POST /tickets/:id/more-support.
func (h *TicketsHandler) MoreSupport(c *fiber.Ctx) error {
	ticket, err := h.desk.MoreSupportRequested(c.UserContext(), pathParam(c, "id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	var req dto.ActorRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	task, err := h.desk.CloseRequested(c.UserContext(), pathParam(c, "id"), req.ActorID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.ScheduledResponse{DueAt: task.DueAt()}})
}

// StaffMessage POST /tickets/:id/staff-messages.
func (h *TicketsHandler) StaffMessage(c *fiber.Ctx) error {
	var req dto.StaffMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.desk.StaffReply(c.UserContext(), pathParam(c, "id"), req.StaffID, req.Text); err != nil {
		return err
	}
	return c.SendStatus(http.StatusAccepted)
}

// ListAudit GET /tickets/:id/audit. Entries outlive the ticket, so closed
// tickets can still be inspected.
func (h *TicketsHandler) ListAudit(c *fiber.Ctx) error {
	if h.audit == nil {
		return apperrors.NewDomainError("AUDIT_DISABLED", "audit trail is not configured", http.StatusServiceUnavailable, nil)
	}
	entries, err := h.audit.ListByTicket(c.UserContext(), pathParam(c, "id"))
	if err != nil {
		return err
	}
	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.AuditEntryResponse{
			EventID:   e.EventID,
			EventType: e.EventType,
			UserID:    e.UserID,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	turns := make([]dto.TurnResponse, 0, len(ticket.Transcript))
	for _, turn := range ticket.Transcript {
		turns = append(turns, dto.TurnResponse{Speaker: turn.Speaker, Text: turn.Text, At: turn.At})
	}
	return dto.TicketResponse{
		ID:                 ticket.ID,
		OwnerID:            ticket.OwnerID,
		OwnerName:          ticket.OwnerName,
		State:              ticket.State,
		LastProblemSummary: ticket.LastProblemSummary,
		Escalations:        ticket.Escalations,
		Transcript:         turns,
		CreatedAt:          ticket.CreatedAt,
		UpdatedAt:          ticket.UpdatedAt,
	}
}
