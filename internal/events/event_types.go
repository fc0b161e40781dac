package events

import (
	"time"

	"github.com/spec-kit/support-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketOpened           EventType = "ticket_opened"
	EventTicketMessageAdded     EventType = "ticket_message_added"
	EventTicketGenerationFailed EventType = "ticket_generation_failed"
	EventTicketEscalated        EventType = "ticket_escalated"
	EventTicketSupportResumed   EventType = "ticket_support_resumed"
	EventTicketClosed           EventType = "ticket_closed"
	EventSubscriptionGranted    EventType = "subscription_granted"
	EventSubscriptionRevoked    EventType = "subscription_revoked"
)

// AllEventTypes lists every event the service emits.
var AllEventTypes = []EventType{
	EventTicketOpened,
	EventTicketMessageAdded,
	EventTicketGenerationFailed,
	EventTicketEscalated,
	EventTicketSupportResumed,
	EventTicketClosed,
	EventSubscriptionGranted,
	EventSubscriptionRevoked,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketOpenedPayload payload.
type TicketOpenedPayload struct {
	OwnerName string `json:"owner_name"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	Speaker     domain.Speaker `json:"speaker"`
	Position    int            `json:"position"`
	BodyPreview string         `json:"body_preview"`
}

// TicketGenerationFailedPayload payload.
type TicketGenerationFailedPayload struct {
	Reason string `json:"reason"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	LastProblemSummary string `json:"last_problem_summary"`
	Escalations        int    `json:"escalations"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	ClosedBy string `json:"closed_by"`
	Turns    int    `json:"turns"`
}

// SubscriptionPayload payload for grant and revoke events.
type SubscriptionPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}
