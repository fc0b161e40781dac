package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-bot/internal/domain"
)

func TestTicketRepositoryCreateOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, domain.NewTicket("c1", "u1", "alice", now)))
	err := repo.Create(ctx, domain.NewTicket("c1", "u2", "bob", now))
	assert.ErrorIs(t, err, domain.ErrTicketExists)

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerID)
}

func TestTicketRepositoryGetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository()
	require.NoError(t, repo.Create(ctx, domain.NewTicket("c1", "u1", "alice", time.Now())))

	snap, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	snap.Append(domain.SpeakerUser, "hello", time.Now())
	snap.State = domain.TurnStateEscalated

	stored, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, stored.Transcript)
	assert.Equal(t, domain.TurnStateAwaitingUser, stored.State)
}

func TestTicketRepositoryUpdateDiscardsFailedWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository()
	require.NoError(t, repo.Create(ctx, domain.NewTicket("c1", "u1", "alice", time.Now())))

	boom := errors.New("boom")
	err := repo.Update(ctx, "c1", func(tk *domain.Ticket) error {
		tk.Append(domain.SpeakerUser, "partial", time.Now())
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, stored.Transcript)
}

func TestTicketRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository()
	require.NoError(t, repo.Create(ctx, domain.NewTicket("c1", "u1", "alice", time.Now())))

	require.NoError(t, repo.Delete(ctx, "c1"))
	assert.ErrorIs(t, repo.Delete(ctx, "c1"), domain.ErrUnknownTicket)

	_, err := repo.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrUnknownTicket)
	err = repo.Update(ctx, "c1", func(*domain.Ticket) error { return nil })
	assert.ErrorIs(t, err, domain.ErrUnknownTicket)

	// the id can be reused once the old ticket is gone
	require.NoError(t, repo.Create(ctx, domain.NewTicket("c1", "u9", "zed", time.Now())))
}

func TestTicketRepositoryConcurrentUpdatesDoNotLoseTurns(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository()
	require.NoError(t, repo.Create(ctx, domain.NewTicket("c1", "u1", "alice", time.Now())))
	require.NoError(t, repo.Create(ctx, domain.NewTicket("c2", "u2", "bob", time.Now())))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, id := range []string{"c1", "c2"} {
			wg.Add(1)
			go func(id string, n int) {
				defer wg.Done()
				_ = repo.Update(ctx, id, func(tk *domain.Ticket) error {
					tk.Append(domain.SpeakerUser, fmt.Sprint(n), time.Now())
					return nil
				})
			}(id, i)
		}
	}
	wg.Wait()

	for _, id := range []string{"c1", "c2"} {
		tk, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Len(t, tk.Transcript, 50)
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
