package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/support-bot/internal/domain"
)

// GrantRepository stores active subscription grants, at most one per user.
type GrantRepository interface {
	// Put stores g, replacing any grant the user already had.
	Put(ctx context.Context, g domain.Grant) error
	Get(ctx context.Context, userID string) (domain.Grant, error)
	Expired(ctx context.Context, now time.Time) ([]domain.Grant, error)
	// DeleteIfUnchanged removes the user's grant only if it still expires
	// at g.ExpiresAt. It reports whether a grant was removed.
	DeleteIfUnchanged(ctx context.Context, g domain.Grant) (bool, error)
	List(ctx context.Context) ([]domain.Grant, error)
}

type grantRepository struct {
	mu     sync.Mutex
	grants map[string]domain.Grant
}

// NewGrantRepository instantiates an empty in-memory grant set.
func NewGrantRepository() GrantRepository {
	return &grantRepository{grants: make(map[string]domain.Grant)}
}

func (r *grantRepository) Put(ctx context.Context, g domain.Grant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants[g.UserID] = g
	return nil
}

func (r *grantRepository) Get(ctx context.Context, userID string) (domain.Grant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Grant{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grants[userID]
	if !ok {
		return domain.Grant{}, domain.ErrUnknownGrant
	}
	return g, nil
}

func (r *grantRepository) Expired(ctx context.Context, now time.Time) ([]domain.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	var due []domain.Grant
	for _, g := range r.grants {
		if g.Expired(now) {
			due = append(due, g)
		}
	}
	r.mu.Unlock()
	sortGrants(due)
	return due, nil
}

func (r *grantRepository) DeleteIfUnchanged(ctx context.Context, g domain.Grant) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.grants[g.UserID]
	if !ok || !current.ExpiresAt.Equal(g.ExpiresAt) {
		return false, nil
	}
	delete(r.grants, g.UserID)
	return true, nil
}

func (r *grantRepository) List(ctx context.Context) ([]domain.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	all := make([]domain.Grant, 0, len(r.grants))
	for _, g := range r.grants {
		all = append(all, g)
	}
	r.mu.Unlock()
	sortGrants(all)
	return all, nil
}

func sortGrants(grants []domain.Grant) {
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].ExpiresAt.Equal(grants[j].ExpiresAt) {
			return grants[i].UserID < grants[j].UserID
		}
		return grants[i].ExpiresAt.Before(grants[j].ExpiresAt)
	})
}
