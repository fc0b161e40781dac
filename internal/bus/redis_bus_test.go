package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/service"
)

var (
	_ service.Channel      = (*RedisBus)(nil)
	_ service.Entitlements = (*RedisBus)(nil)
	_ service.UserNotifier = (*RedisBus)(nil)
)

type fakePublisher struct {
	channels  []string
	commands  []Command
	receivers int64
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	var decoded Command
	if err := json.Unmarshal(message.([]byte), &decoded); err != nil {
		cmd.SetErr(err)
		return cmd
	}
	f.channels = append(f.channels, channel)
	f.commands = append(f.commands, decoded)
	cmd.SetVal(f.receivers)
	return cmd
}

func TestRedisBusPublishesCommands(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{receivers: 1}
	b := NewRedisBus(pub, "outbound", nil)

	require.NoError(t, b.RenderGreeting(ctx, "c1", "U"))
	require.NoError(t, b.RenderReply(ctx, "c1", "hello"))
	require.NoError(t, b.RenderClosing(ctx, "c1", 5*time.Second))
	require.NoError(t, b.NotifyStaff(ctx, domain.EscalationBundle{TicketID: "c1", OwnerID: "U"}))
	require.NoError(t, b.PublishPanel(ctx, domain.PanelTickets))

	require.Len(t, pub.commands, 5)
	assert.Equal(t, []string{"outbound", "outbound", "outbound", "outbound", "outbound"}, pub.channels)

	greeting := pub.commands[0]
	assert.Equal(t, ActionRenderGreeting, greeting.Action)
	assert.Equal(t, "c1", greeting.TicketID)
	assert.Equal(t, "U", greeting.UserID)
	assert.NotEmpty(t, greeting.ID)
	assert.False(t, greeting.IssuedAt.IsZero())

	assert.Equal(t, "hello", pub.commands[1].Text)
	assert.Equal(t, 5, pub.commands[2].GraceSeconds)
	assert.Equal(t, "Not specified", pub.commands[3].Text)
	assert.Equal(t, domain.PanelTickets, pub.commands[4].Panel)
	assert.NotEqual(t, pub.commands[0].ID, pub.commands[1].ID)
}

func TestRedisBusEntitlementCommands(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{receivers: 2}
	b := NewRedisBus(pub, "outbound", nil)

	require.NoError(t, b.Grant(ctx, "U"))
	require.NoError(t, b.Revoke(ctx, "U"))
	expires := time.Date(2026, 2, 15, 9, 1, 0, 0, time.UTC)
	require.NoError(t, b.NotifySubscription(ctx, "U", true, expires))
	require.NoError(t, b.NotifySubscription(ctx, "U", false, expires))

	require.Len(t, pub.commands, 4)
	assert.Equal(t, ActionGrantRole, pub.commands[0].Action)
	assert.Equal(t, ActionRevokeRole, pub.commands[1].Action)
	require.NotNil(t, pub.commands[2].ExpiresAt)
	assert.True(t, expires.Equal(*pub.commands[2].ExpiresAt))
	assert.Nil(t, pub.commands[3].ExpiresAt)
	assert.Equal(t, expiredTitle, pub.commands[3].Title)
}

func TestRedisBusReportsUndeliveredCommands(t *testing.T) {
	b := NewRedisBus(&fakePublisher{receivers: 0}, "outbound", nil)
	err := b.Revoke(context.Background(), "U")
	assert.ErrorIs(t, err, ErrNoSubscribers)
}

func TestRedisBusReportsPublishErrors(t *testing.T) {
	boom := errors.New("connection refused")
	b := NewRedisBus(&fakePublisher{err: boom}, "outbound", nil)
	err := b.RenderReply(context.Background(), "c1", "hi")
	assert.ErrorIs(t, err, boom)
}
