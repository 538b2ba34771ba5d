// Package match owns the server-authoritative match state machine:
// question selection, round timing, scoring, anti-cheat validation and
// the waiting → playing → finished lifecycle. One actor key per match.
package match

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/trivia-arena/internal/config"
	"github.com/trivia-arena/internal/content"
	"github.com/trivia-arena/internal/domain"
	"github.com/trivia-arena/internal/profile"
	"github.com/trivia-arena/internal/rank"
	"github.com/trivia-arena/internal/store"
)

// LiveIndex is the key index of matches that have not been archived yet
const LiveIndex = "matches:live"

const baseScore = 100

// Service runs match state machines over the actor store
type Service struct {
	store    store.Store
	profiles *profile.Store
	catalog  *content.Resolver
	ranks    *rank.Resolver
	cfg      *config.MatchConfig
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewService creates a match service
func NewService(
	s store.Store,
	profiles *profile.Store,
	catalog *content.Resolver,
	ranks *rank.Resolver,
	cfg *config.MatchConfig,
	clock clockwork.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    s,
		profiles: profiles,
		catalog:  catalog,
		ranks:    ranks,
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
	}
}

// Key returns the actor key for a match id
func Key(matchID string) string {
	return fmt.Sprintf("match:%s", matchID)
}

// Start creates a new match. Ranked pairs arrive with two user ids from
// the matchmaking queue; daily pseudo-matches and private lobbies start
// with one. Status is playing unless the match is a private lobby still
// waiting for its second player.
func (s *Service) Start(ctx context.Context, userIDs []string, categoryID string, mode domain.Mode, isPrivate bool) (*domain.MatchState, error) {
	if len(userIDs) == 0 {
		return nil, domain.ErrInvalidRequest
	}

	now := s.clock.Now()
	questions, err := s.selectQuestions(ctx, categoryID, mode, now)
	if err != nil {
		return nil, fmt.Errorf("selecting questions: %w", err)
	}

	m := &domain.MatchState{
		ID:           uuid.NewString(),
		CategoryID:   categoryID,
		Mode:         mode,
		Status:       domain.StatusPlaying,
		Questions:    questions,
		StartTime:    now,
		RoundEndTime: now.Add(s.cfg.IntroDelay + s.cfg.RoundDuration),
		Players:      map[string]*domain.PlayerStats{},
		IsPrivate:    isPrivate,
	}
	if isPrivate {
		code, err := lobbyCode()
		if err != nil {
			return nil, fmt.Errorf("generating lobby code: %w", err)
		}
		m.Code = code
	}
	if isPrivate && len(userIDs) < 2 {
		m.Status = domain.StatusWaiting
	}

	for _, userID := range userIDs {
		stats, err := s.buildPlayer(ctx, userID, categoryID, mode, now)
		if err != nil {
			return nil, err
		}
		m.Players[userID] = stats
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding match: %w", err)
	}
	if err := s.store.Create(ctx, Key(m.ID), data); err != nil {
		return nil, fmt.Errorf("creating match: %w", err)
	}
	if err := s.store.Index(LiveIndex).Add(ctx, m.ID); err != nil {
		return nil, fmt.Errorf("indexing match: %w", err)
	}

	s.logger.Info("match started",
		"match_id", m.ID,
		"mode", m.Mode,
		"category_id", m.CategoryID,
		"players", len(m.Players),
		"status", m.Status,
	)
	return m, nil
}

// Join adds the second player to a waiting private lobby and flips it
// to playing. The round clock restarts from the join moment so the
// joiner is not penalized for lobby wait time.
func (s *Service) Join(ctx context.Context, matchID, userID string) (*domain.MatchState, error) {
	now := s.clock.Now()

	m, err := s.Result(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.StatusWaiting {
		return nil, domain.ErrMatchNotJoinable
	}
	if _, ok := m.Players[userID]; ok {
		return nil, domain.ErrMatchNotJoinable
	}

	// The snapshot and rank scan read other store keys, so they must
	// run outside the match mutation. The closure re-validates against
	// fresh state; a lost race surfaces as not-joinable.
	stats, err := s.buildPlayer(ctx, userID, m.CategoryID, m.Mode, now)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, matchID, func(m *domain.MatchState) error {
		if m.Status != domain.StatusWaiting {
			return domain.ErrMatchNotJoinable
		}
		if _, ok := m.Players[userID]; ok {
			return domain.ErrMatchNotJoinable
		}
		m.Players[userID] = stats
		if len(m.Players) >= 2 {
			m.Status = domain.StatusPlaying
			m.RoundEndTime = now.Add(s.cfg.IntroDelay + s.cfg.RoundDuration)
		}
		return nil
	})
}

// ProcessTurn is the lazy timeout sweep, invoked on every state read
// and by the background sweeper. If the round window has expired it
// advances the question or finishes the match, covering the player who
// never answers.
func (s *Service) ProcessTurn(ctx context.Context, matchID string) (*domain.MatchState, error) {
	now := s.clock.Now()
	return s.mutate(ctx, matchID, func(m *domain.MatchState) error {
		if m.Status != domain.StatusPlaying {
			return nil
		}
		if !now.After(m.RoundEndTime) {
			return nil
		}
		s.advance(m, now)
		return nil
	})
}

// SubmitAnswer validates and scores one answer for the active round
func (s *Service) SubmitAnswer(ctx context.Context, matchID, userID string, questionIndex, answerIndex int, timeRemainingMs int64) (*domain.AnswerResult, error) {
	now := s.clock.Now()
	var result domain.AnswerResult

	_, err := s.mutate(ctx, matchID, func(m *domain.MatchState) error {
		if m.Status != domain.StatusPlaying {
			return domain.ErrMatchNotPlaying
		}
		player, ok := m.Players[userID]
		if !ok {
			return domain.ErrNotInMatch
		}
		if questionIndex != m.CurrentQuestionIndex {
			return domain.ErrQuestionExpired
		}
		q := m.CurrentQuestion()
		if q == nil {
			return domain.ErrQuestionExpired
		}
		if answerIndex < 0 || answerIndex >= len(q.Options) {
			return domain.ErrInvalidRequest
		}
		if player.HasAnswered(q.ID) {
			return domain.ErrAlreadyAnswered
		}

		validated := s.validateRemaining(m, now, timeRemainingMs)

		correct := answerIndex == q.CorrectIndex
		delta := 0
		if correct {
			delta = baseScore + int(validated*50/s.cfg.RoundDuration.Milliseconds())
			if m.OnLastQuestion() {
				// Sudden death: the final question is worth double
				delta *= 2
			}
		}

		player.Answers = append(player.Answers, domain.AnswerRecord{
			QuestionID:    q.ID,
			ElapsedMs:     s.cfg.RoundDuration.Milliseconds() - validated,
			Correct:       correct,
			SelectedIndex: answerIndex,
		})
		player.Score += delta
		if correct {
			player.CorrectCount++
		}

		// Both players in, everyone answered: skip the rest of the
		// round window instead of waiting for the lazy sweep.
		if m.AllAnswered(q.ID) {
			s.advance(m, now)
		}

		result = domain.AnswerResult{
			Correct:      correct,
			CorrectIndex: q.CorrectIndex,
			ScoreDelta:   delta,
			PlayerScore:  player.Score,
		}
		if opp := m.Opponent(userID); opp != nil {
			result.OpponentScore = opp.Score
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitEmote records a cosmetic in-match reaction, rate-limited to one
// per cooldown per player. Emotes inside the cooldown are silently
// dropped; they never affect scoring. Finished matches are immutable,
// so emotes are only accepted while the match is playing.
func (s *Service) SubmitEmote(ctx context.Context, matchID, userID, emoji string) error {
	now := s.clock.Now()
	_, err := s.mutate(ctx, matchID, func(m *domain.MatchState) error {
		if m.Status != domain.StatusPlaying {
			return domain.ErrMatchNotPlaying
		}
		player, ok := m.Players[userID]
		if !ok {
			return domain.ErrNotInMatch
		}
		if player.LastEmote != nil && now.Sub(player.LastEmote.SentAt) < s.cfg.EmoteCooldown {
			return nil
		}
		player.LastEmote = &domain.Emote{Emoji: emoji, SentAt: now}
		return nil
	})
	return err
}

// Get returns match state after running the lazy timeout sweep, which
// is how round timeouts are enforced under a poll-driven protocol.
func (s *Service) Get(ctx context.Context, matchID string) (*domain.MatchState, error) {
	return s.ProcessTurn(ctx, matchID)
}

// Result is a pure read of current match state, with no sweep
func (s *Service) Result(ctx context.Context, matchID string) (*domain.MatchState, error) {
	data, err := s.store.Get(ctx, Key(matchID))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting match: %w", err)
	}
	var m domain.MatchState
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding match: %w", err)
	}
	return &m, nil
}

// advance moves to the next round or the terminal finished state
func (s *Service) advance(m *domain.MatchState, now time.Time) {
	if m.OnLastQuestion() {
		m.Status = domain.StatusFinished
		s.logger.Info("match finished", "match_id", m.ID)
		return
	}
	m.CurrentQuestionIndex++
	m.RoundEndTime = now.Add(s.cfg.InterRoundGap + s.cfg.RoundDuration)
}

// validateRemaining clamps the client-reported remaining time against
// the server-side round clock. A claim beyond the latency buffer is
// treated as a cheating attempt and replaced with the server's value.
func (s *Service) validateRemaining(m *domain.MatchState, now time.Time, claimedMs int64) int64 {
	serverRemaining := m.RoundEndTime.Sub(now).Milliseconds()

	validated := claimedMs
	if claimedMs > serverRemaining+s.cfg.LatencyBuffer.Milliseconds() {
		validated = serverRemaining
	}
	if validated < 0 {
		validated = 0
	}
	if max := s.cfg.RoundDuration.Milliseconds(); validated > max {
		validated = max
	}
	return validated
}

// buildPlayer snapshots the user's profile and resolves the ephemeral
// rank title. Users without a profile (daily pseudo-matches) get a
// generic challenger identity.
func (s *Service) buildPlayer(ctx context.Context, userID, categoryID string, mode domain.Mode, now time.Time) (*domain.PlayerStats, error) {
	stats := &domain.PlayerStats{
		UserID:  userID,
		Name:    "Challenger",
		Answers: []domain.AnswerRecord{},
	}

	p, err := s.profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, fmt.Errorf("loading profile snapshot: %w", err)
	}
	if p != nil {
		stats.Name = p.Name
		stats.Country = p.Country
		stats.Elo = p.Elo
		stats.Title = p.Title
		stats.Avatar = p.Avatar
		stats.Frame = p.Frame
		stats.Banner = p.Banner
	}

	title, err := s.ranks.Resolve(ctx, userID, categoryID, mode, now.UTC().Format(time.DateOnly))
	if err != nil {
		// A failed title scan degrades the decoration, not the match
		s.logger.Warn("rank resolution failed", "user_id", userID, "error", err)
		return stats, nil
	}
	stats.DisplayTitle = title.DisplayTitle
	stats.CategoryRank = title.CategoryRank
	return stats, nil
}

// mutate wraps store.Mutate with match JSON codec and returns the
// post-mutation state. fn runs against the freshest state per attempt.
func (s *Service) mutate(ctx context.Context, matchID string, fn func(m *domain.MatchState) error) (*domain.MatchState, error) {
	var out domain.MatchState
	err := s.store.Mutate(ctx, Key(matchID), func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, domain.ErrMatchNotFound
		}
		var m domain.MatchState
		if err := json.Unmarshal(current, &m); err != nil {
			return nil, fmt.Errorf("decoding match: %w", err)
		}
		if err := fn(&m); err != nil {
			return nil, err
		}
		next, err := json.Marshal(&m)
		if err != nil {
			return nil, fmt.Errorf("encoding match: %w", err)
		}
		out = m
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// lobbyCode creates a 6-char code for private lobbies, skipping
// easily-confused characters.
func lobbyCode() (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	b := make([]byte, codeLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	code := make([]byte, codeLen)
	for i := range code {
		code[i] = chars[int(b[i])%len(chars)]
	}
	return string(code), nil
}
