// Package rank computes the ephemeral, match-snapshotted display titles
// and category ranks shown during a match. Titles are resolved once per
// participant at match start/join and never live-updated.
package rank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/trivia-arena/internal/content"
	"github.com/trivia-arena/internal/domain"
	"github.com/trivia-arena/internal/profile"
)

// Title is the rank-derived decoration for one participant
type Title struct {
	DisplayTitle string
	CategoryRank int
}

// Resolver scans the profile population to rank participants. There is
// no incremental leaderboard index behind this; the full scan/sort per
// match start is a known scalability ceiling, not a correctness issue.
type Resolver struct {
	profiles *profile.Store
	content  *content.Resolver
	logger   *slog.Logger
}

// NewResolver creates a rank resolver
func NewResolver(profiles *profile.Store, catalog *content.Resolver, logger *slog.Logger) *Resolver {
	return &Resolver{profiles: profiles, content: catalog, logger: logger}
}

// Resolve computes the participant's title for the given mode. date is
// the current UTC calendar date (YYYY-MM-DD), used only in daily mode.
func (r *Resolver) Resolve(ctx context.Context, userID, categoryID string, mode domain.Mode, date string) (Title, error) {
	population, err := r.profiles.List(ctx)
	if err != nil {
		return Title{}, fmt.Errorf("scanning profiles: %w", err)
	}

	if mode == domain.ModeDaily {
		return r.resolveDaily(population, userID, date), nil
	}
	return r.resolveRanked(ctx, population, userID, categoryID), nil
}

// resolveDaily ranks by today's daily score among profiles that have a
// nonzero score recorded today; top 3 get fixed ordinal titles.
func (r *Resolver) resolveDaily(population []*domain.Profile, userID, date string) Title {
	scored := filterSort(population, func(p *domain.Profile) int {
		return p.DailyScoreFor(date)
	})

	for i, p := range scored {
		if p.ID != userID {
			continue
		}
		if i < 3 {
			return Title{DisplayTitle: fmt.Sprintf("%s Daily Quiz Challenge", ordinal(i+1))}
		}
		break
	}
	return Title{}
}

// resolveRanked computes two independent rankings: global rating over
// the whole population (top 3 get Gold/Silver/Bronze) and per-category
// rating among nonzero profiles (ordinal category rank, with a
// formatted fallback title). The global ranking keeps zero-rated
// profiles so medals exist even in an all-newcomer population.
func (r *Resolver) resolveRanked(ctx context.Context, population []*domain.Profile, userID, categoryID string) Title {
	var title Title

	global := sortByScore(population, func(p *domain.Profile) int {
		return p.Elo
	})
	medals := []string{"Gold", "Silver", "Bronze"}
	for i, p := range global {
		if i >= 3 {
			break
		}
		if p.ID == userID {
			title.DisplayTitle = medals[i]
			break
		}
	}

	byCategory := filterSort(population, func(p *domain.Profile) int {
		return p.CategoryRating(categoryID)
	})
	for i, p := range byCategory {
		if p.ID == userID {
			title.CategoryRank = i + 1
			break
		}
	}

	if title.DisplayTitle == "" && title.CategoryRank > 0 {
		name := r.content.CategoryName(ctx, categoryID)
		title.DisplayTitle = fmt.Sprintf("%s in %s", ordinal(title.CategoryRank), name)
	}
	return title
}

// filterSort keeps profiles with a nonzero score and sorts descending,
// breaking ties by user id for determinism.
func filterSort(population []*domain.Profile, score func(*domain.Profile) int) []*domain.Profile {
	kept := make([]*domain.Profile, 0, len(population))
	for _, p := range population {
		if score(p) > 0 {
			kept = append(kept, p)
		}
	}
	return sortByScore(kept, score)
}

// sortByScore sorts profiles by score descending without filtering,
// breaking ties by user id for determinism.
func sortByScore(population []*domain.Profile, score func(*domain.Profile) int) []*domain.Profile {
	out := append([]*domain.Profile(nil), population...)
	sort.Slice(out, func(i, j int) bool {
		if score(out[i]) != score(out[j]) {
			return score(out[i]) > score(out[j])
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
