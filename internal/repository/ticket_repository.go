package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/support-bot/internal/domain"
)

// TicketRepository encapsulates ticket conversation state.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Get returns a snapshot; mutating it does not affect the store.
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	// Update runs fn while holding the ticket's own lock. Writers on other
	// tickets are not blocked.
	Update(ctx context.Context, id string, fn func(*domain.Ticket) error) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Ticket, error)
}

type ticketEntry struct {
	mu      sync.Mutex
	ticket  *domain.Ticket
	deleted bool
}

// ticketRepository keeps tickets in process memory. Nothing survives a
// restart.
type ticketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*ticketEntry
}

// NewTicketRepository instantiates an empty in-memory store.
func NewTicketRepository() TicketRepository {
	return &ticketRepository{tickets: make(map[string]*ticketEntry)}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[ticket.ID]; exists {
		return domain.ErrTicketExists
	}
	r.tickets[ticket.ID] = &ticketEntry{ticket: ticket.Clone()}
	return nil
}

func (r *ticketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	entry, err := r.entry(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return nil, domain.ErrUnknownTicket
	}
	return entry.ticket.Clone(), nil
}

func (r *ticketRepository) Update(ctx context.Context, id string, fn func(*domain.Ticket) error) error {
	entry, err := r.entry(ctx, id)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return domain.ErrUnknownTicket
	}
	// fn works on a copy so a failed update leaves no partial writes.
	working := entry.ticket.Clone()
	if err := fn(working); err != nil {
		return err
	}
	entry.ticket = working
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	entry, ok := r.tickets[id]
	if ok {
		delete(r.tickets, id)
	}
	r.mu.Unlock()
	if !ok {
		return domain.ErrUnknownTicket
	}

	entry.mu.Lock()
	entry.deleted = true
	entry.mu.Unlock()
	return nil
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	entries := make([]*ticketEntry, 0, len(r.tickets))
	for _, entry := range r.tickets {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	result := make([]domain.Ticket, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		if !entry.deleted {
			result = append(result, *entry.ticket.Clone())
		}
		entry.mu.Unlock()
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *ticketRepository) entry(ctx context.Context, id string) (*ticketEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	entry, ok := r.tickets[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUnknownTicket
	}
	return entry, nil
}
