package rank

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivia-arena/internal/content"
	"github.com/trivia-arena/internal/domain"
	"github.com/trivia-arena/internal/profile"
	"github.com/trivia-arena/internal/store"
)

const today = "2024-05-01"

func newTestResolver(t *testing.T) (*Resolver, *profile.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.NewMemoryStore()
	profiles := profile.NewStore(s, logger)
	catalog := content.NewResolver(nil, logger)
	return NewResolver(profiles, catalog, logger), profiles
}

func seed(t *testing.T, profiles *profile.Store, ps ...*domain.Profile) {
	t.Helper()
	for _, p := range ps {
		require.NoError(t, profiles.Create(context.Background(), p))
	}
}

func TestResolveRankedMedals(t *testing.T) {
	r, profiles := newTestResolver(t)
	seed(t, profiles,
		&domain.Profile{ID: "alice", Name: "alice", Elo: 1500},
		&domain.Profile{ID: "bob", Name: "bob", Elo: 1400},
		&domain.Profile{ID: "carol", Name: "carol", Elo: 1300},
		&domain.Profile{ID: "dave", Name: "dave", Elo: 1200},
	)
	ctx := context.Background()

	for userID, want := range map[string]string{
		"alice": "Gold",
		"bob":   "Silver",
		"carol": "Bronze",
	} {
		title, err := r.Resolve(ctx, userID, "science", domain.ModeRanked, today)
		require.NoError(t, err)
		assert.Equal(t, want, title.DisplayTitle, userID)
	}

	// Fourth place gets no global medal and no category rank either,
	// because nobody has category rating yet.
	title, err := r.Resolve(ctx, "dave", "science", domain.ModeRanked, today)
	require.NoError(t, err)
	assert.Empty(t, title.DisplayTitle)
	assert.Zero(t, title.CategoryRank)
}

func TestResolveMedalsInZeroRatedPopulation(t *testing.T) {
	r, profiles := newTestResolver(t)
	seed(t, profiles,
		&domain.Profile{ID: "alice", Name: "alice"},
		&domain.Profile{ID: "bob", Name: "bob"},
		&domain.Profile{ID: "carol", Name: "carol"},
		&domain.Profile{ID: "dave", Name: "dave"},
	)
	ctx := context.Background()

	// Fresh accounts all sit at rating zero; the global ranking still
	// awards medals, with ties broken by user id.
	for userID, want := range map[string]string{
		"alice": "Gold",
		"bob":   "Silver",
		"carol": "Bronze",
	} {
		title, err := r.Resolve(ctx, userID, "science", domain.ModeRanked, today)
		require.NoError(t, err)
		assert.Equal(t, want, title.DisplayTitle, userID)
		assert.Zero(t, title.CategoryRank, userID)
	}

	title, err := r.Resolve(ctx, "dave", "science", domain.ModeRanked, today)
	require.NoError(t, err)
	assert.Empty(t, title.DisplayTitle)
}

func TestResolveCategoryFallbackTitle(t *testing.T) {
	r, profiles := newTestResolver(t)
	seed(t, profiles,
		&domain.Profile{ID: "alice", Name: "alice", Elo: 1500},
		&domain.Profile{ID: "bob", Name: "bob", Elo: 1400},
		&domain.Profile{ID: "carol", Name: "carol", Elo: 1300},
		&domain.Profile{ID: "dave", Name: "dave", Elo: 1200,
			CategoryElo: map[string]int{"science": 800}},
		&domain.Profile{ID: "erin", Name: "erin", Elo: 1100,
			CategoryElo: map[string]int{"science": 900}},
	)
	ctx := context.Background()

	// dave holds no global medal, so the category ordinal becomes the title
	title, err := r.Resolve(ctx, "dave", "science", domain.ModeRanked, today)
	require.NoError(t, err)
	assert.Equal(t, 2, title.CategoryRank)
	assert.Equal(t, "2nd in Science", title.DisplayTitle)

	// alice holds Gold; the category rank is still reported alongside
	seedCategory := func(userID string, elo int) {
		require.NoError(t, profiles.Mutate(ctx, userID, func(p *domain.Profile) error {
			p.CategoryElo = map[string]int{"science": elo}
			return nil
		}))
	}
	seedCategory("alice", 1000)
	title, err = r.Resolve(ctx, "alice", "science", domain.ModeRanked, today)
	require.NoError(t, err)
	assert.Equal(t, "Gold", title.DisplayTitle)
	assert.Equal(t, 1, title.CategoryRank)
}

func TestResolveDailyTitles(t *testing.T) {
	r, profiles := newTestResolver(t)
	seed(t, profiles,
		&domain.Profile{ID: "alice", Name: "alice", DailyScore: 900, DailyScoreDate: today},
		&domain.Profile{ID: "bob", Name: "bob", DailyScore: 800, DailyScoreDate: today},
		&domain.Profile{ID: "carol", Name: "carol", DailyScore: 700, DailyScoreDate: today},
		&domain.Profile{ID: "dave", Name: "dave", DailyScore: 600, DailyScoreDate: today},
		// A stale score from yesterday does not count today
		&domain.Profile{ID: "erin", Name: "erin", DailyScore: 9999, DailyScoreDate: "2024-04-30"},
	)
	ctx := context.Background()

	for userID, want := range map[string]string{
		"alice": "1st Daily Quiz Challenge",
		"bob":   "2nd Daily Quiz Challenge",
		"carol": "3rd Daily Quiz Challenge",
	} {
		title, err := r.Resolve(ctx, userID, "", domain.ModeDaily, today)
		require.NoError(t, err)
		assert.Equal(t, want, title.DisplayTitle, userID)
	}

	title, err := r.Resolve(ctx, "dave", "", domain.ModeDaily, today)
	require.NoError(t, err)
	assert.Empty(t, title.DisplayTitle)

	title, err = r.Resolve(ctx, "erin", "", domain.ModeDaily, today)
	require.NoError(t, err)
	assert.Empty(t, title.DisplayTitle)
}

func TestResolveUnknownUser(t *testing.T) {
	r, profiles := newTestResolver(t)
	seed(t, profiles, &domain.Profile{ID: "alice", Name: "alice", Elo: 1500})

	title, err := r.Resolve(context.Background(), "ghost", "science", domain.ModeRanked, today)
	require.NoError(t, err)
	assert.Empty(t, title.DisplayTitle)
	assert.Zero(t, title.CategoryRank)
}

func TestOrdinals(t *testing.T) {
	cases := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th",
		11: "11th", 12: "12th", 13: "13th",
		21: "21st", 22: "22nd", 23: "23rd", 101: "101st", 111: "111th",
	}
	for n, want := range cases {
		assert.Equal(t, want, ordinal(n))
	}
}
