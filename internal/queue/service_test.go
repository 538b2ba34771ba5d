package queue

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivia-arena/internal/config"
	"github.com/trivia-arena/internal/content"
	"github.com/trivia-arena/internal/domain"
	"github.com/trivia-arena/internal/match"
	"github.com/trivia-arena/internal/profile"
	"github.com/trivia-arena/internal/rank"
	"github.com/trivia-arena/internal/store"
)

var startAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestQueue(t *testing.T) (*Service, *match.Service, *clockwork.FakeClock) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(startAt)
	profiles := profile.NewStore(s, logger)
	catalog := content.NewResolver(nil, logger)
	ranks := rank.NewResolver(profiles, catalog, logger)

	matchCfg := &config.MatchConfig{
		IntroDelay:      3500 * time.Millisecond,
		RoundDuration:   10 * time.Second,
		InterRoundGap:   2 * time.Second,
		LatencyBuffer:   2 * time.Second,
		EmoteCooldown:   2 * time.Second,
		RankedQuestions: 5,
		DailyQuestions:  10,
	}
	matches := match.NewService(s, profiles, catalog, ranks, matchCfg, clock, logger)

	queueCfg := &config.QueueConfig{
		AssignmentTTL: 60 * time.Second,
		MaxAttempts:   5,
	}
	return NewService(s, matches, queueCfg, clock, logger), matches, clock
}

func TestJoinEnqueuesFirstPlayer(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	matchID, err := q.Join(ctx, "alice", "science")
	require.NoError(t, err)
	assert.Empty(t, matchID, "a lone player waits")

	// Re-joining while waiting is an idempotent no-op
	matchID, err = q.Join(ctx, "alice", "science")
	require.NoError(t, err)
	assert.Empty(t, matchID)
}

func TestJoinPairsFIFO(t *testing.T) {
	q, matches, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Join(ctx, "alice", "science")
	require.NoError(t, err)

	matchID, err := q.Join(ctx, "bob", "science")
	require.NoError(t, err)
	require.NotEmpty(t, matchID)

	// Both players share the match and both can poll the assignment
	aliceMatch, err := q.Assignment(ctx, "alice", "science")
	require.NoError(t, err)
	assert.Equal(t, matchID, aliceMatch)
	bobMatch, err := q.Assignment(ctx, "bob", "science")
	require.NoError(t, err)
	assert.Equal(t, matchID, bobMatch)

	m, err := matches.Result(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlaying, m.Status)
	assert.Equal(t, domain.ModeRanked, m.Mode)
	assert.Contains(t, m.Players, "alice")
	assert.Contains(t, m.Players, "bob")

	// The waiting list is drained; a third player waits again
	matchID, err = q.Join(ctx, "carol", "science")
	require.NoError(t, err)
	assert.Empty(t, matchID)
}

func TestJoinReturnsExistingAssignment(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Join(ctx, "alice", "science")
	require.NoError(t, err)
	matchID, err := q.Join(ctx, "bob", "science")
	require.NoError(t, err)

	// A repeat join re-validates and returns the same live assignment
	again, err := q.Join(ctx, "bob", "science")
	require.NoError(t, err)
	assert.Equal(t, matchID, again)
}

func TestAssignmentExpires(t *testing.T) {
	q, _, clock := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Join(ctx, "alice", "science")
	require.NoError(t, err)
	matchID, err := q.Join(ctx, "bob", "science")
	require.NoError(t, err)
	require.NotEmpty(t, matchID)

	clock.Advance(61 * time.Second)

	got, err := q.Assignment(ctx, "bob", "science")
	require.NoError(t, err)
	assert.Empty(t, got, "assignments beyond the staleness window are not surfaced")

	// A stale assignment is cleared on the next join and the player is
	// treated as a fresh entrant (enqueued, since nobody is waiting).
	got, err = q.Join(ctx, "bob", "science")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFinishedMatchAssignmentIsCleared(t *testing.T) {
	q, matches, clock := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Join(ctx, "alice", "science")
	require.NoError(t, err)
	matchID, err := q.Join(ctx, "bob", "science")
	require.NoError(t, err)

	// Let every round expire so the lazy sweep finishes the match
	for i := 0; i < 6; i++ {
		clock.Advance(15 * time.Second)
		_, err = matches.ProcessTurn(ctx, matchID)
		require.NoError(t, err)
	}
	m, err := matches.Result(ctx, matchID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFinished, m.Status)

	// Clock moved past the TTL as well, so bob re-enters the queue
	got, err := q.Join(ctx, "bob", "science")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLeaveIsIdempotent(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Join(ctx, "alice", "science")
	require.NoError(t, err)

	require.NoError(t, q.Leave(ctx, "alice", "science"))
	require.NoError(t, q.Leave(ctx, "alice", "science"))
	require.NoError(t, q.Leave(ctx, "ghost", "science"))

	// Alice left, so bob becomes the new head and waits
	matchID, err := q.Join(ctx, "bob", "science")
	require.NoError(t, err)
	assert.Empty(t, matchID)
}

func TestQueuesAreIndependentPerCategory(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Join(ctx, "alice", "science")
	require.NoError(t, err)

	// bob joins a different category: no pairing happens
	matchID, err := q.Join(ctx, "bob", "history")
	require.NoError(t, err)
	assert.Empty(t, matchID)
}
