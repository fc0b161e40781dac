package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/events"
	"github.com/spec-kit/support-bot/internal/repository"
)

type memoryAudit struct {
	entries []domain.AuditEntry
}

func (m *memoryAudit) Create(_ context.Context, entry *domain.AuditEntry) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryAudit) ListByTicket(_ context.Context, ticketID string) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range m.entries {
		if e.TicketID != nil && *e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

type notice struct {
	userID string
	active bool
}

type recordingNotifier struct {
	notices []notice
}

func (r *recordingNotifier) NotifySubscription(_ context.Context, userID string, active bool, _ time.Time) error {
	r.notices = append(r.notices, notice{userID: userID, active: active})
	return nil
}

func TestNotificationServiceAuditsTicketLifecycle(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher(nil)
	audit := &memoryAudit{}
	NewNotificationService(dispatcher, nil, audit, nil).RegisterHandlers()

	svc := NewTicketService(TicketDependencies{
		TicketRepo: repository.NewTicketRepository(),
		Generator:  &scriptedGenerator{},
		Dispatcher: dispatcher,
	})
	_, err := svc.Open(ctx, "c1", "U", "")
	require.NoError(t, err)
	_, err = svc.SubmitUserMessage(ctx, "c1", "U", "hi")
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx, "c1", "staff-1"))

	entries, err := audit.ListByTicket(ctx, "c1")
	require.NoError(t, err)
	var types []string
	for _, e := range entries {
		types = append(types, e.EventType)
		assert.NotEmpty(t, e.EventID)
	}
	assert.Equal(t, []string{
		string(events.EventTicketOpened),
		string(events.EventTicketMessageAdded),
		string(events.EventTicketMessageAdded),
		string(events.EventTicketClosed),
	}, types)
}

func TestNotificationServiceNotifiesSubscriptionChanges(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture()
	notifier := &recordingNotifier{}
	NewNotificationService(f.dispatcher, nil, nil, notifier).RegisterHandlers()

	_, err := f.svc.Activate(ctx, "U")
	require.NoError(t, err)
	f.sched.Advance(40 * 24 * time.Hour)
	_, err = f.svc.SweepOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, []notice{{userID: "U", active: true}, {userID: "U", active: false}}, notifier.notices)
}
