package service

import (
	"context"
	"time"

	"github.com/spec-kit/support-bot/internal/domain"
)

// Channel is the presentation layer: it renders conversation output into the
// external chat channel that backs a ticket.
type Channel interface {
	RenderGreeting(ctx context.Context, ticketID, ownerID string) error
	RenderReply(ctx context.Context, ticketID, text string) error
	RenderFallback(ctx context.Context, ticketID string) error
	RenderPrompt(ctx context.Context, ticketID string) error
	RenderStaffMessage(ctx context.Context, ticketID, text string) error
	RenderClosing(ctx context.Context, ticketID string, grace time.Duration) error
	NotifyStaff(ctx context.Context, bundle domain.EscalationBundle) error
	DeleteChannel(ctx context.Context, ticketID string) error
	PublishPanel(ctx context.Context, panel domain.Panel) error
}

// Entitlements grants and removes premium status on the chat platform.
type Entitlements interface {
	Grant(ctx context.Context, userID string) error
	Revoke(ctx context.Context, userID string) error
}

// Identity answers authorization questions about platform users.
type Identity interface {
	IsStaff(userID string) bool
	HasAdmin(userID string) bool
}

// UserNotifier sends direct notices to a user.
type UserNotifier interface {
	NotifySubscription(ctx context.Context, userID string, active bool, expiresAt time.Time) error
}
