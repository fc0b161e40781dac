package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/domain"
)

// ErrNoSubscribers is returned when nobody received a published command.
var ErrNoSubscribers = errors.New("no gateway subscribed to outbound channel")

// Publisher is the subset of *redis.Client used by the bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisBus sends presentation and entitlement commands to the gateway over
// Redis pub/sub. Delivery is fire and forget: a command published while no
// gateway listens is lost and reported as ErrNoSubscribers.
type RedisBus struct {
	pub     Publisher
	channel string
	logger  *zap.Logger
	now     func() time.Time
}

// NewRedisBus builds a bus publishing on channel.
func NewRedisBus(pub Publisher, channel string, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{pub: pub, channel: channel, logger: logger, now: time.Now}
}

func (b *RedisBus) send(ctx context.Context, cmd Command) error {
	cmd.ID = uuid.NewString()
	cmd.IssuedAt = b.now().UTC()

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode %s command: %w", cmd.Action, err)
	}
	receivers, err := b.pub.Publish(ctx, b.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish %s command: %w", cmd.Action, err)
	}
	if receivers == 0 {
		return fmt.Errorf("publish %s command: %w", cmd.Action, ErrNoSubscribers)
	}
	b.logger.Debug("command published",
		zap.String("command_id", cmd.ID),
		zap.String("action", string(cmd.Action)),
		zap.String("ticket_id", cmd.TicketID),
		zap.String("user_id", cmd.UserID))
	return nil
}

func (b *RedisBus) RenderGreeting(ctx context.Context, ticketID, ownerID string) error {
	return b.send(ctx, Command{
		Action:   ActionRenderGreeting,
		TicketID: ticketID,
		UserID:   ownerID,
		Title:    greetingTitle,
		Text:     greetingText,
	})
}

func (b *RedisBus) RenderReply(ctx context.Context, ticketID, text string) error {
	return b.send(ctx, Command{Action: ActionRenderReply, TicketID: ticketID, Text: text})
}

func (b *RedisBus) RenderFallback(ctx context.Context, ticketID string) error {
	return b.send(ctx, Command{Action: ActionRenderFallback, TicketID: ticketID, Text: fallbackText})
}

func (b *RedisBus) RenderPrompt(ctx context.Context, ticketID string) error {
	return b.send(ctx, Command{Action: ActionRenderPrompt, TicketID: ticketID, Text: promptText})
}

func (b *RedisBus) RenderStaffMessage(ctx context.Context, ticketID, text string) error {
	return b.send(ctx, Command{Action: ActionRenderStaffMessage, TicketID: ticketID, Text: text})
}

func (b *RedisBus) RenderClosing(ctx context.Context, ticketID string, grace time.Duration) error {
	return b.send(ctx, Command{
		Action:       ActionRenderClosing,
		TicketID:     ticketID,
		Text:         closingText,
		GraceSeconds: int(grace / time.Second),
	})
}

// NotifyStaff alerts staff in the ticket channel. An empty problem summary
// is rendered as "Not specified".
func (b *RedisBus) NotifyStaff(ctx context.Context, bundle domain.EscalationBundle) error {
	issue := bundle.LastProblemSummary
	if issue == "" {
		issue = "Not specified"
	}
	return b.send(ctx, Command{
		Action:   ActionNotifyStaff,
		TicketID: bundle.TicketID,
		UserID:   bundle.OwnerID,
		Title:    staffAlertTitle,
		Text:     issue,
	})
}

func (b *RedisBus) DeleteChannel(ctx context.Context, ticketID string) error {
	return b.send(ctx, Command{Action: ActionDeleteChannel, TicketID: ticketID})
}

func (b *RedisBus) PublishPanel(ctx context.Context, panel domain.Panel) error {
	return b.send(ctx, Command{Action: ActionPublishPanel, Panel: panel})
}

// Grant asks the gateway to give the user the premium role.
func (b *RedisBus) Grant(ctx context.Context, userID string) error {
	return b.send(ctx, Command{Action: ActionGrantRole, UserID: userID})
}

// Revoke asks the gateway to remove the premium role.
func (b *RedisBus) Revoke(ctx context.Context, userID string) error {
	return b.send(ctx, Command{Action: ActionRevokeRole, UserID: userID})
}

// NotifySubscription sends the user a direct message about their grant.
func (b *RedisBus) NotifySubscription(ctx context.Context, userID string, active bool, expiresAt time.Time) error {
	cmd := Command{Action: ActionNotifyUser, UserID: userID, Title: expiredTitle, Text: expiredText}
	if active {
		expires := expiresAt.UTC()
		cmd.Title, cmd.Text, cmd.ExpiresAt = activatedTitle, activatedText, &expires
	}
	return b.send(ctx, cmd)
}
