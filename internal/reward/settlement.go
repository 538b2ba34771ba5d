// Package reward settles a finished match into profile effects: XP,
// coins, rating, level-ups and achievements, applied as one atomic
// profile mutation per player.
package reward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/trivia-arena/internal/domain"
	"github.com/trivia-arena/internal/match"
	"github.com/trivia-arena/internal/profile"
	"github.com/trivia-arena/internal/store"
)

const (
	xpPerCorrect    = 10
	coinsPerCorrect = 5
	fastAnswerXP    = 5
	fastThresholdMs = 5000
	perfectXP       = 25
	perfectCoins    = 10

	winXP  = 50
	drawXP = 20
	lossXP = 10

	// Fixed-magnitude rating deltas, not a rating-difference formula
	ratingWin  = 12
	ratingLoss = -8
)

// Achievement ids, persisted on the profile for idempotent unlock checks
const (
	AchFirstWin     = "first_win"
	AchFastFingers  = "fast_fingers"
	AchPerfectRound = "perfect_round"
	AchMatches10    = "matches_10"
	AchMatches50    = "matches_50"
	AchMatches100   = "matches_100"
	AchCoins1000    = "coins_1000"
	AchStreak3      = "streak_3"
)

// fastStreakLen is how many fast answers in one match unlock AchFastFingers
const fastStreakLen = 3

// Publisher emits settlement events for the analytics pipeline
type Publisher interface {
	PublishSettlement(ctx context.Context, event domain.MatchSettledEvent) error
}

// Settlement summarizes what one player earned from a finished match
type Settlement struct {
	MatchID      string         `json:"match_id"`
	UserID       string         `json:"user_id"`
	Outcome      domain.Outcome `json:"outcome"`
	XPAwarded    int            `json:"xp_awarded"`
	CoinsAwarded int            `json:"coins_awarded"`
	RatingDelta  int            `json:"rating_delta"`
	NewLevel     int            `json:"new_level"`
	LeveledUp    bool           `json:"leveled_up"`
	Achievements []string       `json:"achievements,omitempty"`
}

// Service computes and applies reward settlement
type Service struct {
	store     store.Store
	profiles  *profile.Store
	matches   *match.Service
	boards    store.Boards
	publisher Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewService creates a settlement service. publisher may be nil when
// the event pipeline is disabled.
func NewService(
	s store.Store,
	profiles *profile.Store,
	matches *match.Service,
	boards store.Boards,
	publisher Publisher,
	clock clockwork.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     s,
		profiles:  profiles,
		matches:   matches,
		boards:    boards,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// LevelForXP is the monotonic XP→level curve
func LevelForXP(xp int) int {
	return int(math.Sqrt(float64(xp)/100)) + 1
}

func markerKey(matchID, userID string) string {
	return fmt.Sprintf("settled:%s:%s", matchID, userID)
}

// Settle applies one player's rewards for a finished match. It is
// idempotent: a per-match, per-user marker key is claimed before any
// profile effect, so a duplicate or concurrent call loses the claim and
// returns ErrAlreadySettled. The match record itself is never touched.
func (s *Service) Settle(ctx context.Context, matchID, userID string) (*Settlement, error) {
	m, err := s.matches.Result(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.StatusFinished {
		return nil, domain.ErrMatchNotFinished
	}
	player, ok := m.Players[userID]
	if !ok {
		return nil, domain.ErrNotInMatch
	}

	now := s.clock.Now()
	err = s.store.Create(ctx, markerKey(matchID, userID), []byte(now.UTC().Format(time.RFC3339)))
	if errors.Is(err, store.ErrKeyExists) {
		return nil, domain.ErrAlreadySettled
	}
	if err != nil {
		return nil, fmt.Errorf("claiming settlement marker: %w", err)
	}

	outcome := outcomeFor(player, m.Opponent(userID))
	xp, coins := earnings(player, m, outcome)

	ratingDelta := 0
	if m.Mode != domain.ModeDaily {
		ratingDelta = outcomeDelta(outcome)
	}

	result := &Settlement{
		MatchID:      matchID,
		UserID:       userID,
		Outcome:      outcome,
		XPAwarded:    xp,
		CoinsAwarded: coins,
		RatingDelta:  ratingDelta,
	}

	date := now.UTC().Format(time.DateOnly)
	var globalElo, categoryElo int

	err = s.profiles.Mutate(ctx, userID, func(p *domain.Profile) error {
		p.XP += xp
		p.Coins += coins

		// Level-up check against the monotonic curve; crossing a
		// boundary awards a scaled one-time coin bonus.
		if newLevel := LevelForXP(p.XP); newLevel > p.Level {
			p.Coins += 100 * newLevel
			result.CoinsAwarded += 100 * newLevel
			p.Level = newLevel
			result.LeveledUp = true
		}
		result.NewLevel = p.Level

		if ratingDelta != 0 {
			p.Elo += ratingDelta
			if p.Elo < 0 {
				p.Elo = 0
			}
			if p.CategoryElo == nil {
				p.CategoryElo = map[string]int{}
			}
			cat := p.CategoryElo[m.CategoryID] + ratingDelta
			if cat < 0 {
				cat = 0
			}
			p.CategoryElo[m.CategoryID] = cat
		}

		p.MatchesPlayed++
		if outcome == domain.OutcomeWin {
			p.Wins++
			p.WinStreak++
		} else {
			p.WinStreak = 0
		}

		if m.Mode == domain.ModeDaily {
			if p.DailyScoreDate != date {
				p.DailyScore = 0
				p.DailyScoreDate = date
			}
			if player.Score > p.DailyScore {
				p.DailyScore = player.Score
			}
		}

		result.Achievements = unlock(p, player, m, outcome)
		p.UpdatedAt = now

		globalElo = p.Elo
		categoryElo = p.CategoryElo[m.CategoryID]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.updateBoards(ctx, m, userID, player.Score, globalElo, categoryElo, date)
	s.publish(ctx, m, player, result, now)

	s.logger.Info("match settled",
		"match_id", matchID,
		"user_id", userID,
		"outcome", outcome,
		"xp", result.XPAwarded,
		"coins", result.CoinsAwarded,
		"rating_delta", ratingDelta,
	)
	return result, nil
}

// outcomeFor compares final scores; a missing opponent (daily
// pseudo-match) counts as a win for completing the run.
func outcomeFor(player, opponent *domain.PlayerStats) domain.Outcome {
	if opponent == nil {
		return domain.OutcomeWin
	}
	switch {
	case player.Score > opponent.Score:
		return domain.OutcomeWin
	case player.Score < opponent.Score:
		return domain.OutcomeLoss
	default:
		return domain.OutcomeDraw
	}
}

// earnings computes XP and coins purely from the final answer log
func earnings(player *domain.PlayerStats, m *domain.MatchState, outcome domain.Outcome) (int, int) {
	xp, coins := 0, 0
	for _, a := range player.Answers {
		if !a.Correct {
			continue
		}
		xp += xpPerCorrect
		coins += coinsPerCorrect
		if a.ElapsedMs < fastThresholdMs {
			xp += fastAnswerXP
		}
	}
	if isPerfect(player, m) {
		xp += perfectXP
		coins += perfectCoins
	}
	switch outcome {
	case domain.OutcomeWin:
		xp += winXP
	case domain.OutcomeDraw:
		xp += drawXP
	case domain.OutcomeLoss:
		xp += lossXP
	}
	return xp, coins
}

func isPerfect(player *domain.PlayerStats, m *domain.MatchState) bool {
	return len(m.Questions) > 0 &&
		len(player.Answers) == len(m.Questions) &&
		player.CorrectCount == len(m.Questions)
}

func outcomeDelta(outcome domain.Outcome) int {
	switch outcome {
	case domain.OutcomeWin:
		return ratingWin
	case domain.OutcomeLoss:
		return ratingLoss
	default:
		return 0
	}
}

// unlock evaluates achievement triggers against post-update cumulative
// profile state; each is gated by the persisted achievement set.
func unlock(p *domain.Profile, player *domain.PlayerStats, m *domain.MatchState, outcome domain.Outcome) []string {
	var unlocked []string
	grant := func(id string, condition bool) {
		if condition && !p.HasAchievement(id) {
			p.Achievements = append(p.Achievements, id)
			unlocked = append(unlocked, id)
		}
	}

	fast := 0
	for _, a := range player.Answers {
		if a.Correct && a.ElapsedMs < fastThresholdMs {
			fast++
		}
	}

	grant(AchFirstWin, outcome == domain.OutcomeWin)
	grant(AchFastFingers, fast >= fastStreakLen)
	grant(AchPerfectRound, isPerfect(player, m))
	grant(AchMatches10, p.MatchesPlayed >= 10)
	grant(AchMatches50, p.MatchesPlayed >= 50)
	grant(AchMatches100, p.MatchesPlayed >= 100)
	grant(AchCoins1000, p.Coins >= 1000)
	grant(AchStreak3, p.WinStreak >= 3)
	return unlocked
}

// updateBoards mirrors post-settlement scores onto the read-model
// boards. Board writes are best-effort; the profile is the truth.
func (s *Service) updateBoards(ctx context.Context, m *domain.MatchState, userID string, score, globalElo, categoryElo int, date string) {
	if s.boards == nil {
		return
	}
	if m.Mode == domain.ModeDaily {
		if _, err := s.boards.SetIfHigher(ctx, "daily:"+date, userID, int64(score)); err != nil {
			s.logger.Warn("failed to update daily board", "error", err)
		}
		return
	}
	if err := s.boards.Set(ctx, "rating:global", userID, int64(globalElo)); err != nil {
		s.logger.Warn("failed to update global rating board", "error", err)
	}
	if err := s.boards.Set(ctx, "rating:"+m.CategoryID, userID, int64(categoryElo)); err != nil {
		s.logger.Warn("failed to update category rating board", "error", err)
	}
}

// publish emits the settlement event; failures degrade, never fail
func (s *Service) publish(ctx context.Context, m *domain.MatchState, player *domain.PlayerStats, result *Settlement, now time.Time) {
	if s.publisher == nil {
		return
	}
	event := domain.MatchSettledEvent{
		MatchID:      result.MatchID,
		UserID:       result.UserID,
		CategoryID:   m.CategoryID,
		Mode:         m.Mode,
		Outcome:      result.Outcome,
		Score:        player.Score,
		CorrectCount: player.CorrectCount,
		XPAwarded:    result.XPAwarded,
		CoinsAwarded: result.CoinsAwarded,
		RatingDelta:  result.RatingDelta,
		NewLevel:     result.NewLevel,
		Achievements: result.Achievements,
		Timestamp:    now,
	}
	if err := s.publisher.PublishSettlement(ctx, event); err != nil {
		s.logger.Warn("failed to publish settlement event", "error", err)
	}
}
