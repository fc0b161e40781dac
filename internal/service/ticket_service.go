package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/completion"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/events"
	"github.com/spec-kit/support-bot/internal/observability"
	"github.com/spec-kit/support-bot/internal/repository"
	apperrors "github.com/spec-kit/support-bot/pkg/util/errorutil"
)

// Reasons a message can be ignored by the engine.
const (
	IgnoredNotOwner   = "not_owner"
	IgnoredEmpty      = "empty"
	IgnoredGenerating = "generating"
)

var errIgnored = errors.New("message ignored")

// MessageOutcome reports what the engine did with an owner message.
type MessageOutcome struct {
	Accepted     bool
	Reply        string
	IgnoreReason string
}

// TicketService is the ticket state machine. It owns turn taking, the
// transcript and escalation for every open ticket.
//
// Transcripts are never truncated and each generation receives the whole
// conversation.
type TicketService struct {
	tickets    repository.TicketRepository
	generator  completion.Generator
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
	open       atomic.Int64
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Generator  completion.Generator
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Clock      func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		generator:  deps.Generator,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Open creates a ticket waiting for its owner's first message.
func (s *TicketService) Open(ctx context.Context, ticketID, ownerID, ownerName string) (*domain.Ticket, error) {
	// Both ids are retained by the repository.
	ticketID = strings.Clone(strings.TrimSpace(ticketID))
	ownerID = strings.Clone(strings.TrimSpace(ownerID))
	if ticketID == "" || ownerID == "" {
		return nil, apperrors.NewValidationError("ticket_id and owner_id required", nil)
	}

	ticket := domain.NewTicket(ticketID, ownerID, strings.Clone(strings.TrimSpace(ownerName)), s.now())
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.metrics.SetOpenTickets(int(s.open.Add(1)))
	s.logger.Info("ticket opened", zap.String("ticket_id", ticketID), zap.String("owner_id", ownerID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketOpened,
		TicketID: ticketID,
		UserID:   ownerID,
		Payload:  events.TicketOpenedPayload{OwnerName: ticket.OwnerName},
	})
	return ticket, nil
}

// Get returns a snapshot of the ticket.
func (s *TicketService) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.tickets.Get(ctx, ticketID)
}

// List returns snapshots of every open ticket, oldest first.
func (s *TicketService) List(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.List(ctx)
}

// SubmitUserMessage feeds an owner message into the conversation and returns
// the generated reply.
//
// Messages from anyone but the owner, blank messages and messages arriving
// while a reply is being generated are ignored without error. When
// generation fails the user turn stays in the transcript, no assistant turn
// is added and domain.ErrGenerationFailed is returned; the ticket is left
// ready for the user to try again.
func (s *TicketService) SubmitUserMessage(ctx context.Context, ticketID, authorID, text string) (MessageOutcome, error) {
	text = strings.Clone(strings.TrimSpace(text))

	var (
		snapshot []domain.Turn
		reason   string
	)
	err := s.tickets.Update(ctx, ticketID, func(t *domain.Ticket) error {
		switch {
		case authorID != t.OwnerID:
			reason = IgnoredNotOwner
			return errIgnored
		case text == "":
			reason = IgnoredEmpty
			return errIgnored
		case !t.AcceptsMessageFrom(authorID):
			reason = IgnoredGenerating
			return errIgnored
		}
		t.Append(domain.SpeakerUser, text, s.now())
		if t.ProblemPending {
			t.LastProblemSummary = text
			t.ProblemPending = false
		}
		t.State = domain.TurnStateAwaitingAssistant
		snapshot = append([]domain.Turn(nil), t.Transcript...)
		return nil
	})
	if errors.Is(err, errIgnored) {
		s.logger.Debug("message ignored", zap.String("ticket_id", ticketID), zap.String("reason", reason))
		return MessageOutcome{IgnoreReason: reason}, nil
	}
	if err != nil {
		return MessageOutcome{}, err
	}
	s.publishMessageAdded(ctx, ticketID, authorID, domain.SpeakerUser, len(snapshot), text)

	reply, genErr := s.generator.Generate(ctx, snapshot)
	if genErr != nil && !errors.Is(genErr, domain.ErrGenerationFailed) {
		genErr = fmt.Errorf("%w: %w", domain.ErrGenerationFailed, genErr)
	}

	// The ticket must leave AwaitingAssistant even if the caller gave up.
	var position int
	finishErr := s.tickets.Update(context.WithoutCancel(ctx), ticketID, func(t *domain.Ticket) error {
		if genErr == nil {
			t.Append(domain.SpeakerAssistant, reply, s.now())
			position = len(t.Transcript)
		}
		if t.State == domain.TurnStateAwaitingAssistant {
			t.State = domain.TurnStateAwaitingUser
		}
		return nil
	})
	if finishErr != nil {
		s.logger.Info("ticket closed during generation; reply dropped", zap.String("ticket_id", ticketID))
		return MessageOutcome{Accepted: true}, finishErr
	}

	if genErr != nil {
		s.logger.Warn("generation failed", zap.String("ticket_id", ticketID), zap.Error(genErr))
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketGenerationFailed,
			TicketID: ticketID,
			UserID:   authorID,
			Payload:  events.TicketGenerationFailedPayload{Reason: genErr.Error()},
		})
		return MessageOutcome{Accepted: true}, genErr
	}

	s.publishMessageAdded(ctx, ticketID, "", domain.SpeakerAssistant, position, reply)
	return MessageOutcome{Accepted: true, Reply: reply}, nil
}

// Escalate hands the ticket to staff. It is idempotent and does not stop
// automated assistance: the owner may keep talking to the assistant.
func (s *TicketService) Escalate(ctx context.Context, ticketID string) (domain.EscalationBundle, error) {
	var (
		bundle       domain.EscalationBundle
		transitioned bool
		escalations  int
	)
	err := s.tickets.Update(ctx, ticketID, func(t *domain.Ticket) error {
		if t.State != domain.TurnStateEscalated {
			t.State = domain.TurnStateEscalated
			t.Escalations++
			t.UpdatedAt = s.now()
			transitioned = true
		}
		escalations = t.Escalations
		bundle = domain.EscalationBundle{
			TicketID:           t.ID,
			OwnerID:            t.OwnerID,
			LastProblemSummary: t.LastProblemSummary,
		}
		return nil
	})
	if err != nil {
		return domain.EscalationBundle{}, err
	}
	if transitioned {
		s.logger.Info("ticket escalated", zap.String("ticket_id", ticketID), zap.Int("escalations", escalations))
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketEscalated,
			TicketID: ticketID,
			UserID:   bundle.OwnerID,
			Payload: events.TicketEscalatedPayload{
				LastProblemSummary: bundle.LastProblemSummary,
				Escalations:        escalations,
			},
		})
	}
	return bundle, nil
}

// RequestMoreSupport puts the ticket back into automated assistance and marks
// the next owner message as a fresh problem description. It does nothing
// while a reply is being generated.
func (s *TicketService) RequestMoreSupport(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	var (
		result  *domain.Ticket
		resumed bool
	)
	err := s.tickets.Update(ctx, ticketID, func(t *domain.Ticket) error {
		if t.State != domain.TurnStateAwaitingAssistant {
			resumed = t.State == domain.TurnStateEscalated
			t.State = domain.TurnStateAwaitingUser
			t.ProblemPending = true
			t.UpdatedAt = s.now()
		}
		result = t.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if resumed {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketSupportResumed,
			TicketID: ticketID,
			UserID:   result.OwnerID,
		})
	}
	return result, nil
}

// Close removes the ticket immediately. It is terminal: any later call for
// the same id fails with domain.ErrUnknownTicket.
func (s *TicketService) Close(ctx context.Context, ticketID, closedBy string) error {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return err
	}
	s.metrics.SetOpenTickets(int(s.open.Add(-1)))
	s.logger.Info("ticket closed", zap.String("ticket_id", ticketID), zap.String("closed_by", closedBy))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticketID,
		UserID:   ticket.OwnerID,
		Payload: events.TicketClosedPayload{
			ClosedBy: closedBy,
			Turns:    len(ticket.Transcript),
		},
	})
	return nil
}

func (s *TicketService) publishMessageAdded(ctx context.Context, ticketID, userID string, speaker domain.Speaker, position int, body string) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticketID,
		UserID:   userID,
		Payload: events.TicketMessageAddedPayload{
			Speaker:     speaker,
			Position:    position,
			BodyPreview: stringPreview(body, 120),
		},
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.now, event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, now func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}
	_ = dispatcher.Publish(ctx, event)
}

// stringPreview cuts body to at most max runes, marking the cut with "...".
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	runes := []rune(body)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
