package match

import (
	"context"
	"fmt"
	"time"

	"github.com/trivia-arena/internal/content"
	"github.com/trivia-arena/internal/domain"
)

// selectQuestions builds the match's fixed question set.
//
// Ranked: the per-category pool (static ∪ dynamic) is shuffled with an
// unseeded Fisher–Yates so every match differs; an empty category pool
// falls back to a shuffle of the static catalog.
//
// Daily: the full pool is shuffled with a Fisher–Yates seeded from the
// current UTC calendar date, so every player starting a daily match on
// the same day gets the identical ordered set. Required for
// daily-leaderboard fairness.
func (s *Service) selectQuestions(ctx context.Context, categoryID string, mode domain.Mode, now time.Time) ([]domain.Question, error) {
	var ids []string
	var take int

	switch mode {
	case domain.ModeDaily:
		pool, err := s.catalog.FullPool(ctx)
		if err != nil {
			return nil, fmt.Errorf("building daily pool: %w", err)
		}
		ids = content.SeededShuffle(pool, now.UTC().Format(time.DateOnly))
		take = s.cfg.DailyQuestions
	default:
		pool, err := s.catalog.CategoryPool(ctx, categoryID)
		if err != nil {
			return nil, fmt.Errorf("building category pool: %w", err)
		}
		if len(pool) == 0 {
			pool = content.StaticQuestionIDs()
		}
		ids = content.Shuffle(pool)
		take = s.cfg.RankedQuestions
	}

	if take < len(ids) {
		ids = ids[:take]
	}

	questions, err := s.catalog.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving questions: %w", err)
	}
	return questions, nil
}
