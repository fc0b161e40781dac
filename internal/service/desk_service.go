package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/worker"
	apperrors "github.com/spec-kit/support-bot/pkg/util/errorutil"
)

// DeskService turns presentation layer notifications into engine calls and
// renders the results back through the Channel.
//
// Channel failures never roll back a state change that already happened.
type DeskService struct {
	tickets       *TicketService
	subscriptions *SubscriptionService
	channel       Channel
	identity      Identity
	scheduler     worker.Scheduler
	closeGrace    time.Duration
	logger        *zap.Logger
}

// DeskDependencies bundles collaborators for the desk.
type DeskDependencies struct {
	Tickets       *TicketService
	Subscriptions *SubscriptionService
	Channel       Channel
	Identity      Identity
	Scheduler     worker.Scheduler
	CloseGrace    time.Duration
	Logger        *zap.Logger
}

// NewDeskService constructs the desk.
func NewDeskService(deps DeskDependencies) *DeskService {
	d := &DeskService{
		tickets:       deps.Tickets,
		subscriptions: deps.Subscriptions,
		channel:       deps.Channel,
		identity:      deps.Identity,
		scheduler:     deps.Scheduler,
		closeGrace:    deps.CloseGrace,
		logger:        deps.Logger,
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.scheduler == nil {
		d.scheduler = worker.NewTimerScheduler()
	}
	return d
}

// TicketOpened registers a new ticket channel and greets its owner.
func (d *DeskService) TicketOpened(ctx context.Context, ticketID, ownerID, ownerName string) (*domain.Ticket, error) {
	ticket, err := d.tickets.Open(ctx, ticketID, ownerID, ownerName)
	if err != nil {
		return nil, err
	}
	d.channelAction("render greeting", ticketID, d.channel.RenderGreeting(ctx, ticketID, ownerID))
	return ticket, nil
}

// OwnerMessage relays a channel message to the engine and renders the reply,
// or the fallback notice when generation failed.
func (d *DeskService) OwnerMessage(ctx context.Context, ticketID, authorID, text string) (MessageOutcome, error) {
	outcome, err := d.tickets.SubmitUserMessage(ctx, ticketID, authorID, text)
	switch {
	case errors.Is(err, domain.ErrGenerationFailed):
		d.channelAction("render fallback", ticketID, d.channel.RenderFallback(context.WithoutCancel(ctx), ticketID))
		return outcome, err
	case err != nil:
		return outcome, err
	case outcome.Accepted:
		d.channelAction("render reply", ticketID, d.channel.RenderReply(ctx, ticketID, outcome.Reply))
	}
	return outcome, nil
}

// EscalateRequested escalates the ticket and pings staff with the bundle.
func (d *DeskService) EscalateRequested(ctx context.Context, ticketID string) (domain.EscalationBundle, error) {
	bundle, err := d.tickets.Escalate(ctx, ticketID)
	if err != nil {
		return domain.EscalationBundle{}, err
	}
	d.channelAction("notify staff", ticketID, d.channel.NotifyStaff(ctx, bundle))
	return bundle, nil
}

// MoreSupportRequested resumes automated assistance and prompts the owner.
func (d *DeskService) MoreSupportRequested(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := d.tickets.RequestMoreSupport(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	d.channelAction("render prompt", ticketID, d.channel.RenderPrompt(ctx, ticketID))
	return ticket, nil
}

// CloseRequested closes the ticket on behalf of a staff member. The store
// entry goes away immediately; the channel is deleted after the grace period.
func (d *DeskService) CloseRequested(ctx context.Context, ticketID, actorID string) (*worker.Task, error) {
	if !d.identity.IsStaff(actorID) {
		return nil, domain.ErrForbidden
	}
	if err := d.tickets.Close(ctx, ticketID, actorID); err != nil {
		return nil, err
	}
	// The id is used after the request returns; callers may reuse its bytes.
	ticketID = strings.Clone(ticketID)
	d.channelAction("render closing", ticketID, d.channel.RenderClosing(ctx, ticketID, d.closeGrace))

	task := d.scheduler.Schedule(d.closeGrace, func() {
		d.channelAction("delete channel", ticketID, d.channel.DeleteChannel(context.Background(), ticketID))
	})
	return task, nil
}

// StaffReply posts a staff-authored message into the ticket channel. Staff
// text is not part of the transcript.
func (d *DeskService) StaffReply(ctx context.Context, ticketID, staffID, text string) error {
	if !d.identity.IsStaff(staffID) {
		return domain.ErrForbidden
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.NewValidationError("text required", nil)
	}
	if _, err := d.tickets.Get(ctx, ticketID); err != nil {
		return err
	}
	if err := d.channel.RenderStaffMessage(ctx, ticketID, text); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrChannelActionFailed, err)
	}
	return nil
}

// Setup publishes a setup panel. Only admins may do this.
func (d *DeskService) Setup(ctx context.Context, actorID string, panel domain.Panel) error {
	if !d.identity.HasAdmin(actorID) {
		return apperrors.NewForbidden("administrator permissions required")
	}
	if !panel.Valid() {
		return apperrors.NewValidationError("unknown panel", map[string]any{"panel": panel})
	}
	if err := d.channel.PublishPanel(ctx, panel); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrChannelActionFailed, err)
	}
	return nil
}

// PurchaseRequested schedules the deferred subscription activation.
func (d *DeskService) PurchaseRequested(ctx context.Context, userID string) (*worker.Task, error) {
	return d.subscriptions.RequestPurchase(ctx, userID)
}

func (d *DeskService) channelAction(action, ticketID string, err error) {
	if err == nil {
		return
	}
	d.logger.Error("channel action failed",
		zap.String("action", action),
		zap.String("ticket_id", ticketID),
		zap.Error(fmt.Errorf("%w: %w", domain.ErrChannelActionFailed, err)))
}
