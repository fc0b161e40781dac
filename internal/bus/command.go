package bus

import (
	"time"

	"github.com/spec-kit/support-bot/internal/domain"
)

// Action names what the gateway must do with a command.
type Action string

const (
	ActionRenderGreeting     Action = "render_greeting"
	ActionRenderReply        Action = "render_reply"
	ActionRenderFallback     Action = "render_fallback"
	ActionRenderPrompt       Action = "render_prompt"
	ActionRenderStaffMessage Action = "render_staff_message"
	ActionRenderClosing      Action = "render_closing"
	ActionNotifyStaff        Action = "notify_staff"
	ActionDeleteChannel      Action = "delete_channel"
	ActionPublishPanel       Action = "publish_panel"
	ActionGrantRole          Action = "grant_role"
	ActionRevokeRole         Action = "revoke_role"
	ActionNotifyUser         Action = "notify_user"
)

// Command is the JSON envelope published on the outbound channel.
type Command struct {
	ID           string       `json:"id"`
	Action       Action       `json:"action"`
	TicketID     string       `json:"ticket_id,omitempty"`
	UserID       string       `json:"user_id,omitempty"`
	Title        string       `json:"title,omitempty"`
	Text         string       `json:"text,omitempty"`
	Panel        domain.Panel `json:"panel,omitempty"`
	GraceSeconds int          `json:"grace_seconds,omitempty"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	IssuedAt     time.Time    `json:"issued_at"`
}

// Canned texts rendered by the gateway.
const (
	greetingTitle   = "Welcome to Support!"
	greetingText    = "Thank you for contacting support. Please describe your issue or question in detail below, and we will help you."
	fallbackText    = "Sorry, I encountered an error. Please try again or ask staff for help."
	promptText      = "Please continue describing your issue, and I'll provide more assistance!"
	closingText     = "This ticket will be closed shortly."
	staffAlertTitle = "Staff Assistance Requested"
	activatedTitle  = "Subscription Activated!"
	activatedText   = "Thank you for your purchase! Your premium subscription has been activated."
	expiredTitle    = "Subscription Expired"
	expiredText     = "Your premium subscription has run out. You can purchase another month in the subscription channel to regain access to all premium benefits!"
)
