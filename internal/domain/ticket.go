package domain

import "time"

// TurnState tracks whose move it is in a ticket conversation.
type TurnState string

const (
	TurnStateAwaitingUser      TurnState = "AWAITING_USER"
	TurnStateAwaitingAssistant TurnState = "AWAITING_ASSISTANT"
	TurnStateEscalated         TurnState = "ESCALATED"
)

// Ticket is the aggregate for a single support conversation. It maps 1:1 to
// an external chat channel.
type Ticket struct {
	ID                 string
	OwnerID            string
	OwnerName          string
	Transcript         []Turn
	State              TurnState
	LastProblemSummary string
	// ProblemPending is set while the next owner message is expected to
	// describe a (new) problem.
	ProblemPending bool
	Escalations    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewTicket builds a ticket waiting for the owner's first message.
func NewTicket(id, ownerID, ownerName string, now time.Time) *Ticket {
	return &Ticket{
		ID:             id,
		OwnerID:        ownerID,
		OwnerName:      ownerName,
		State:          TurnStateAwaitingUser,
		ProblemPending: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AcceptsMessageFrom reports whether an owner message may advance the
// transcript right now.
func (t *Ticket) AcceptsMessageFrom(authorID string) bool {
	if authorID != t.OwnerID {
		return false
	}
	return t.State == TurnStateAwaitingUser || t.State == TurnStateEscalated
}

// Append adds a turn to the transcript.
func (t *Ticket) Append(speaker Speaker, text string, at time.Time) {
	t.Transcript = append(t.Transcript, Turn{Speaker: speaker, Text: text, At: at})
	t.UpdatedAt = at
}

// Clone returns a deep copy safe to hand out of the store.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Transcript = append([]Turn(nil), t.Transcript...)
	return &cp
}

// EscalationBundle is what staff need to pick up an escalated ticket.
type EscalationBundle struct {
	TicketID           string
	OwnerID            string
	LastProblemSummary string
}
