package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spec-kit/support-bot/internal/domain"
)

// scriptedGenerator replies "reply-N" for the Nth call unless told to fail.
type scriptedGenerator struct {
	mu      sync.Mutex
	calls   int
	fail    error
	seen    [][]domain.Turn
	gate    chan struct{}
	entered chan struct{}
}

func (g *scriptedGenerator) Generate(ctx context.Context, transcript []domain.Turn) (string, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.seen = append(g.seen, transcript)
	gate, entered := g.gate, g.entered
	g.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	g.mu.Lock()
	fail := g.fail
	g.mu.Unlock()
	if fail != nil {
		return "", fail
	}
	return fmt.Sprintf("reply-%d", n), nil
}

func (g *scriptedGenerator) setFail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = err
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type channelCall struct {
	Action   string
	TicketID string
	Text     string
}

type recordingChannel struct {
	mu      sync.Mutex
	calls   []channelCall
	bundles []domain.EscalationBundle
	failOn  map[string]bool
}

func (c *recordingChannel) record(action, ticketID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, channelCall{Action: action, TicketID: ticketID, Text: text})
	if c.failOn[action] {
		return errors.New(action + " failed")
	}
	return nil
}

func (c *recordingChannel) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.calls))
	for _, call := range c.calls {
		out = append(out, call.Action)
	}
	return out
}

func (c *recordingChannel) RenderGreeting(_ context.Context, ticketID, ownerID string) error {
	return c.record("greeting", ticketID, ownerID)
}

func (c *recordingChannel) RenderReply(_ context.Context, ticketID, text string) error {
	return c.record("reply", ticketID, text)
}

func (c *recordingChannel) RenderFallback(_ context.Context, ticketID string) error {
	return c.record("fallback", ticketID, "")
}

func (c *recordingChannel) RenderPrompt(_ context.Context, ticketID string) error {
	return c.record("prompt", ticketID, "")
}

func (c *recordingChannel) RenderStaffMessage(_ context.Context, ticketID, text string) error {
	return c.record("staff_message", ticketID, text)
}

func (c *recordingChannel) RenderClosing(_ context.Context, ticketID string, grace time.Duration) error {
	return c.record("closing", ticketID, grace.String())
}

func (c *recordingChannel) NotifyStaff(_ context.Context, bundle domain.EscalationBundle) error {
	c.mu.Lock()
	c.bundles = append(c.bundles, bundle)
	c.mu.Unlock()
	return c.record("notify_staff", bundle.TicketID, bundle.LastProblemSummary)
}

func (c *recordingChannel) DeleteChannel(_ context.Context, ticketID string) error {
	return c.record("delete", ticketID, "")
}

func (c *recordingChannel) PublishPanel(_ context.Context, panel domain.Panel) error {
	return c.record("panel", "", string(panel))
}

type fakeEntitlements struct {
	mu         sync.Mutex
	granted    []string
	revoked    []string
	failRevoke map[string]bool
	failGrant  bool
	onRevoke   func(userID string)
}

func (e *fakeEntitlements) Grant(_ context.Context, userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failGrant {
		return errors.New("role service down")
	}
	e.granted = append(e.granted, userID)
	return nil
}

func (e *fakeEntitlements) Revoke(_ context.Context, userID string) error {
	e.mu.Lock()
	if e.failRevoke[userID] {
		e.mu.Unlock()
		return errors.New("member left")
	}
	e.revoked = append(e.revoked, userID)
	hook := e.onRevoke
	e.mu.Unlock()
	if hook != nil {
		hook(userID)
	}
	return nil
}

type staticIdentity struct {
	staff  map[string]bool
	admins map[string]bool
}

func (i staticIdentity) IsStaff(userID string) bool  { return i.staff[userID] }
func (i staticIdentity) HasAdmin(userID string) bool { return i.admins[userID] }
