package domain

import "time"

// AuditEntry is an immutable record of a lifecycle event. Entries are write
// only; ticket and grant state is never rebuilt from them.
type AuditEntry struct {
	ID        string
	EventID   string
	EventType string
	TicketID  *string
	UserID    *string
	Payload   map[string]any
	CreatedAt time.Time
}
