package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateIsExclusive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "k", []byte("v1")))
	assert.ErrorIs(t, s.Create(ctx, "k", []byte("v2")), ErrKeyExists)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStoreMutate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// fn sees nil for a missing key
	err := s.Mutate(ctx, "counter", func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte("1"), nil
	})
	require.NoError(t, err)

	err = s.Mutate(ctx, "counter", func(current []byte) ([]byte, error) {
		assert.Equal(t, []byte("1"), current)
		return []byte("2"), nil
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
}

func TestMemoryStoreMutateAbortsOnError(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Patch(ctx, "k", []byte("before")))

	sentinel := errors.New("abort")
	err := s.Mutate(ctx, "k", func(current []byte) ([]byte, error) {
		return nil, sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("before"), got)
}

func TestMemoryIndexPage(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	idx := s.Index("test")

	require.NoError(t, idx.AddBatch(ctx, []string{"a", "b", "c", "d", "e"}))

	var all []string
	var cursor uint64
	for {
		keys, next, err := idx.Page(ctx, cursor, 2)
		require.NoError(t, err)
		all = append(all, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, all)

	require.NoError(t, idx.Remove(ctx, "c"))
	keys, err := idx.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d", "e"}, keys)
}

func TestMemoryBoards(t *testing.T) {
	b := NewMemoryBoards()
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "ratings", "alice", 1200))
	require.NoError(t, b.Set(ctx, "ratings", "bob", 1400))

	updated, err := b.SetIfHigher(ctx, "ratings", "alice", 1100)
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = b.SetIfHigher(ctx, "ratings", "alice", 1500)
	require.NoError(t, err)
	assert.True(t, updated)

	top, err := b.TopN(ctx, "ratings", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "alice", top[0].Member)
	assert.Equal(t, int64(1), top[0].Rank)
	assert.Equal(t, "bob", top[1].Member)
}
