package profile

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivia-arena/internal/domain"
	"github.com/trivia-arena/internal/store"
)

func newTestStore() (*Store, *store.MemoryStore) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.NewMemoryStore()
	return NewStore(s, logger), s
}

func TestCreateAndGet(t *testing.T) {
	profiles, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, profiles.Create(ctx, &domain.Profile{ID: "alice", Name: "Alice", Elo: 1000}))

	p, err := profiles.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, 1000, p.Elo)

	_, err = profiles.Get(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestCreateRejectsDuplicate(t *testing.T) {
	profiles, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, profiles.Create(ctx, &domain.Profile{ID: "alice", Name: "Alice"}))
	err := profiles.Create(ctx, &domain.Profile{ID: "alice", Name: "Impostor"})
	assert.ErrorIs(t, err, store.ErrKeyExists)
}

func TestMutate(t *testing.T) {
	profiles, _ := newTestStore()
	ctx := context.Background()
	require.NoError(t, profiles.Create(ctx, &domain.Profile{ID: "alice", Name: "Alice"}))

	err := profiles.Mutate(ctx, "alice", func(p *domain.Profile) error {
		p.XP += 50
		p.Coins += 10
		return nil
	})
	require.NoError(t, err)

	p, err := profiles.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 50, p.XP)
	assert.Equal(t, 10, p.Coins)

	err = profiles.Mutate(ctx, "ghost", func(p *domain.Profile) error { return nil })
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestListSkipsDanglingIndexEntries(t *testing.T) {
	profiles, s := newTestStore()
	ctx := context.Background()

	require.NoError(t, profiles.Create(ctx, &domain.Profile{ID: "alice", Name: "Alice"}))
	require.NoError(t, profiles.Create(ctx, &domain.Profile{ID: "bob", Name: "Bob"}))

	// Simulate a profile deleted out from under its index entry
	require.NoError(t, s.Delete(ctx, "profile:bob"))

	population, err := profiles.List(ctx)
	require.NoError(t, err)
	require.Len(t, population, 1)
	assert.Equal(t, "alice", population[0].ID)
}
