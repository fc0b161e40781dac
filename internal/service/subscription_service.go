package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/events"
	"github.com/spec-kit/support-bot/internal/observability"
	"github.com/spec-kit/support-bot/internal/repository"
	"github.com/spec-kit/support-bot/internal/worker"
	apperrors "github.com/spec-kit/support-bot/pkg/util/errorutil"
)

// SubscriptionService runs the time-boxed premium grant loop.
//
// A purchase request is trusted: after the activation delay the grant is
// applied without any payment verification.
type SubscriptionService struct {
	grants          repository.GrantRepository
	entitlements    Entitlements
	scheduler       worker.Scheduler
	dispatcher      events.Dispatcher
	logger          *zap.Logger
	metrics         *observability.Metrics
	now             func() time.Time
	activationDelay time.Duration
	durationMonths  int

	mu      sync.Mutex
	pending map[string]*worker.Task
}

// SubscriptionDependencies bundles collaborators for the subscription service.
type SubscriptionDependencies struct {
	GrantRepo       repository.GrantRepository
	Entitlements    Entitlements
	Scheduler       worker.Scheduler
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	Clock           func() time.Time
	ActivationDelay time.Duration
	DurationMonths  int
}

// SweepReport summarizes one expiry sweep.
type SweepReport struct {
	Revoked []string
	Failed  []string
}

// NewSubscriptionService constructs the service.
func NewSubscriptionService(deps SubscriptionDependencies) *SubscriptionService {
	s := &SubscriptionService{
		grants:          deps.GrantRepo,
		entitlements:    deps.Entitlements,
		scheduler:       deps.Scheduler,
		dispatcher:      deps.Dispatcher,
		logger:          deps.Logger,
		metrics:         deps.Metrics,
		now:             deps.Clock,
		activationDelay: deps.ActivationDelay,
		durationMonths:  deps.DurationMonths,
		pending:         make(map[string]*worker.Task),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.scheduler == nil {
		s.scheduler = worker.NewTimerScheduler()
	}
	if s.activationDelay <= 0 {
		s.activationDelay = time.Minute
	}
	if s.durationMonths <= 0 {
		s.durationMonths = 1
	}
	return s
}

// RequestPurchase schedules activation of the user's grant after the
// activation delay. A pending activation for the same user is replaced.
func (s *SubscriptionService) RequestPurchase(ctx context.Context, userID string) (*worker.Task, error) {
	userID = strings.Clone(strings.TrimSpace(userID))
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id required", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.pending[userID]; ok {
		prev.Cancel()
	}
	var task *worker.Task
	task = s.scheduler.Schedule(s.activationDelay, func() {
		s.mu.Lock()
		if s.pending[userID] == task {
			delete(s.pending, userID)
		}
		s.mu.Unlock()

		if _, err := s.Activate(context.Background(), userID); err != nil {
			s.logger.Error("deferred activation failed", zap.String("user_id", userID), zap.Error(err))
		}
	})
	s.pending[userID] = task

	s.logger.Info("purchase requested",
		zap.String("user_id", userID),
		zap.Time("activates_at", task.DueAt()))
	return task, nil
}

// CancelPurchase drops a pending activation. It reports whether one was
// canceled.
func (s *SubscriptionService) CancelPurchase(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.pending[userID]
	if !ok {
		return false
	}
	delete(s.pending, userID)
	return task.Cancel()
}

// Activate grants the entitlement and records a grant that expires after the
// configured number of months. An existing grant is overwritten.
func (s *SubscriptionService) Activate(ctx context.Context, userID string) (domain.Grant, error) {
	if err := s.entitlements.Grant(ctx, userID); err != nil {
		return domain.Grant{}, fmt.Errorf("%w: grant %s: %w", domain.ErrEntitlementActionFailed, userID, err)
	}
	now := s.now()
	grant := domain.Grant{
		UserID:    userID,
		GrantedAt: now,
		ExpiresAt: now.AddDate(0, s.durationMonths, 0),
	}
	if err := s.grants.Put(ctx, grant); err != nil {
		return domain.Grant{}, err
	}
	s.refreshGauge(ctx)
	s.logger.Info("subscription activated", zap.String("user_id", userID), zap.Time("expires_at", grant.ExpiresAt))
	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:    events.EventSubscriptionGranted,
		UserID:  userID,
		Payload: events.SubscriptionPayload{ExpiresAt: grant.ExpiresAt},
	})
	return grant, nil
}

// Status returns the user's active grant.
func (s *SubscriptionService) Status(ctx context.Context, userID string) (domain.Grant, error) {
	return s.grants.Get(ctx, userID)
}

// List returns every grant, soonest expiry first.
func (s *SubscriptionService) List(ctx context.Context) ([]domain.Grant, error) {
	return s.grants.List(ctx)
}

// Sweep implements worker.Sweeper.
func (s *SubscriptionService) Sweep(ctx context.Context) error {
	report, err := s.SweepOnce(ctx)
	if err != nil {
		return err
	}
	if len(report.Revoked) > 0 || len(report.Failed) > 0 {
		s.logger.Info("subscription sweep finished",
			zap.Strings("revoked", report.Revoked),
			zap.Strings("failed", report.Failed))
	}
	return nil
}

// SweepOnce revokes and removes every grant that has expired. A failed
// revoke is logged and the grant kept for the next sweep; the remaining
// grants are still processed.
func (s *SubscriptionService) SweepOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	due, err := s.grants.Expired(ctx, s.now())
	if err != nil {
		return report, err
	}

	for _, grant := range due {
		if err := s.entitlements.Revoke(ctx, grant.UserID); err != nil {
			s.logger.Warn("revoke failed; will retry next sweep",
				zap.String("user_id", grant.UserID),
				zap.Error(fmt.Errorf("%w: %w", domain.ErrEntitlementActionFailed, err)))
			s.metrics.RecordRevocation("failed")
			report.Failed = append(report.Failed, grant.UserID)
			continue
		}

		removed, err := s.grants.DeleteIfUnchanged(ctx, grant)
		if err != nil {
			return report, err
		}
		if !removed {
			// Renewed while we were revoking: put the entitlement back.
			s.logger.Info("grant renewed during sweep", zap.String("user_id", grant.UserID))
			if err := s.entitlements.Grant(ctx, grant.UserID); err != nil {
				s.logger.Error("re-grant after renewal failed",
					zap.String("user_id", grant.UserID),
					zap.Error(fmt.Errorf("%w: %w", domain.ErrEntitlementActionFailed, err)))
			}
			continue
		}

		s.metrics.RecordRevocation("revoked")
		report.Revoked = append(report.Revoked, grant.UserID)
		publishEvent(ctx, s.dispatcher, s.now, events.Event{
			Type:    events.EventSubscriptionRevoked,
			UserID:  grant.UserID,
			Payload: events.SubscriptionPayload{ExpiresAt: grant.ExpiresAt},
		})
	}
	s.refreshGauge(ctx)
	return report, nil
}

func (s *SubscriptionService) refreshGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if all, err := s.grants.List(ctx); err == nil {
		s.metrics.SetActiveGrants(len(all))
	}
}
