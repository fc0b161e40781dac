package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/events"
	"github.com/spec-kit/support-bot/internal/repository"
)

// NotificationService reacts to domain events: it logs them, appends them to
// the audit trail when one is configured, and sends subscription notices.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	audit      repository.AuditRepository
	notifier   UserNotifier
}

// NewNotificationService creates the service. audit and notifier may be nil.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, audit repository.AuditRepository, notifier UserNotifier) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		audit:      audit,
		notifier:   notifier,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handleAudit)
	}
	n.dispatcher.Subscribe(events.EventSubscriptionGranted, n.handleSubscriptionGranted)
	n.dispatcher.Subscribe(events.EventSubscriptionRevoked, n.handleSubscriptionRevoked)
}

func (n *NotificationService) handleAudit(ctx context.Context, event events.Event) error {
	n.logger.Debug(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("user_id", event.UserID),
		zap.Any("payload", event.Payload))
	if n.audit == nil {
		return nil
	}
	entry := &domain.AuditEntry{
		EventID:   event.ID,
		EventType: string(event.Type),
		TicketID:  optional(event.TicketID),
		UserID:    optional(event.UserID),
		Payload:   map[string]any{"payload": event.Payload, "timestamp": event.Timestamp},
	}
	return n.audit.Create(ctx, entry)
}

func (n *NotificationService) handleSubscriptionGranted(ctx context.Context, event events.Event) error {
	return n.notifySubscription(ctx, event, true)
}

func (n *NotificationService) handleSubscriptionRevoked(ctx context.Context, event events.Event) error {
	return n.notifySubscription(ctx, event, false)
}

// notifySubscription DMs the user. Delivery failures are reported to the
// dispatcher, which logs them; they never undo the grant change.
func (n *NotificationService) notifySubscription(ctx context.Context, event events.Event, active bool) error {
	if n.notifier == nil {
		return nil
	}
	payload, ok := event.Payload.(events.SubscriptionPayload)
	if !ok {
		return nil
	}
	return n.notifier.NotifySubscription(ctx, event.UserID, active, payload.ExpiresAt)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
