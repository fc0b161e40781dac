package dto

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/support-bot/internal/domain"
)

// Validate checks request payloads against their struct tags.
var Validate = validator.New()

// OpenTicketRequest is sent when the gateway creates a ticket channel.
type OpenTicketRequest struct {
	TicketID  string `json:"ticket_id" validate:"required,max=64"`
	OwnerID   string `json:"owner_id" validate:"required,max=64"`
	OwnerName string `json:"owner_name" validate:"omitempty,max=100"`
}

// OwnerMessageRequest relays a message posted in a ticket channel.
type OwnerMessageRequest struct {
	AuthorID string `json:"author_id" validate:"required"`
	Text     string `json:"text" validate:"max=4000"`
}

// ActorRequest identifies who pressed a button or ran a command.
type ActorRequest struct {
	ActorID string `json:"actor_id" validate:"required"`
}

// StaffMessageRequest carries a staff-authored message.
type StaffMessageRequest struct {
	StaffID string `json:"staff_id" validate:"required"`
	Text    string `json:"text" validate:"required,max=4000"`
}

// TurnResponse is one transcript entry.
type TurnResponse struct {
	Speaker domain.Speaker `json:"speaker"`
	Text    string         `json:"text"`
	At      time.Time      `json:"at"`
}

// TicketResponse is the ticket view.
type TicketResponse struct {
	ID                 string           `json:"id"`
	OwnerID            string           `json:"owner_id"`
	OwnerName          string           `json:"owner_name,omitempty"`
	State              domain.TurnState `json:"state"`
	LastProblemSummary string           `json:"last_problem_summary"`
	Escalations        int              `json:"escalations"`
	Transcript         []TurnResponse   `json:"transcript"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// MessageResponse reports what happened to an owner message.
type MessageResponse struct {
	Accepted     bool   `json:"accepted"`
	Reply        string `json:"reply,omitempty"`
	IgnoreReason string `json:"ignore_reason,omitempty"`
}

// EscalationResponse is the bundle handed to staff.
type EscalationResponse struct {
	TicketID           string `json:"ticket_id"`
	OwnerID            string `json:"owner_id"`
	LastProblemSummary string `json:"last_problem_summary"`
}

// ScheduledResponse acknowledges deferred work.
type ScheduledResponse struct {
	DueAt time.Time `json:"due_at"`
}

// AuditEntryResponse is one recorded lifecycle event of a ticket.
type AuditEntryResponse struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	UserID    *string        `json:"user_id,omitempty"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}
