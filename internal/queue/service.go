// Package queue pairs waiting players into matches, one FIFO queue
// actor per category. Pairing spans two actors (the queue and a freshly
// created match), so no single transaction covers it; correctness comes
// from a bounded retry loop that re-validates fresh state after every
// side effect instead of taking cross-actor locks.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/trivia-arena/internal/config"
	"github.com/trivia-arena/internal/domain"
	"github.com/trivia-arena/internal/match"
	"github.com/trivia-arena/internal/store"
)

// errRetry signals pairing contention detected inside a mutation; the
// join loop re-reads fresh state and tries again.
var errRetry = errors.New("queue state changed, retry")

// Service is the matchmaking queue
type Service struct {
	store   store.Store
	matches *match.Service
	cfg     *config.QueueConfig
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewService creates a matchmaking queue service
func NewService(s store.Store, matches *match.Service, cfg *config.QueueConfig, clock clockwork.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:   s,
		matches: matches,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
	}
}

// Key returns the actor key for a category's queue
func Key(categoryID string) string {
	return fmt.Sprintf("queue:%s", categoryID)
}

// Join enqueues the caller or pairs them with the longest-waiting
// player. It returns the assigned match id, or "" when the caller is
// (still) waiting. Contention exhausts after a bounded number of
// attempts; the caller is expected to re-poll.
func (s *Service) Join(ctx context.Context, userID, categoryID string) (string, error) {
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		matchID, err := s.tryJoin(ctx, userID, categoryID)
		if errors.Is(err, errRetry) {
			s.logger.Debug("matchmaking contention, retrying",
				"user_id", userID,
				"category_id", categoryID,
				"attempt", attempt+1,
			)
			continue
		}
		return matchID, err
	}
	return "", domain.ErrQueueContention
}

// tryJoin is one iteration of the join procedure against fresh state
func (s *Service) tryJoin(ctx context.Context, userID, categoryID string) (string, error) {
	q, err := s.load(ctx, categoryID)
	if err != nil {
		return "", err
	}

	// An existing assignment is only trusted after re-validation: the
	// match must still exist, must not be finished, and the assignment
	// must be inside the staleness window.
	if matchID, ok := q.Assignments[userID]; ok {
		valid, err := s.assignmentValid(ctx, q, userID, matchID)
		if err != nil {
			return "", err
		}
		if valid {
			return matchID, nil
		}
		// Stale or dangling: clear it and start over
		if err := s.mutate(ctx, categoryID, func(q *domain.QueueState) error {
			q.ClearAssignment(userID)
			return nil
		}); err != nil {
			return "", err
		}
		return "", errRetry
	}

	// Already queued: idempotent no-op
	if q.IsWaiting(userID) {
		return "", nil
	}

	// Someone is waiting: pair with the FIFO head
	if len(q.Waiting) > 0 {
		return s.pair(ctx, userID, categoryID, q.Waiting[0])
	}

	// Empty queue: enqueue the caller
	err = s.mutate(ctx, categoryID, func(q *domain.QueueState) error {
		q.ClearAssignment(userID)
		if !q.IsWaiting(userID) {
			q.Waiting = append(q.Waiting, userID)
		}
		return nil
	})
	return "", err
}

// pair creates a match for [head, caller] and records both assignments
// while removing the head from the waiting list. The head may have been
// claimed by a concurrent caller between our read and our write; the
// precondition check inside the mutation detects that and retries.
func (s *Service) pair(ctx context.Context, userID, categoryID, head string) (string, error) {
	m, err := s.matches.Start(ctx, []string{head, userID}, categoryID, domain.ModeRanked, false)
	if err != nil {
		return "", fmt.Errorf("creating match: %w", err)
	}

	now := s.clock.Now()
	err = s.mutate(ctx, categoryID, func(q *domain.QueueState) error {
		if len(q.Waiting) == 0 || q.Waiting[0] != head {
			// A concurrent caller already took this head. The freshly
			// created match is orphaned; the next join repairs it.
			return errRetry
		}
		q.Waiting = q.Waiting[1:]
		q.Assignments[head] = m.ID
		q.Assignments[userID] = m.ID
		q.AssignmentTimes[head] = now
		q.AssignmentTimes[userID] = now
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("players paired",
		"match_id", m.ID,
		"category_id", categoryID,
		"head", head,
		"caller", userID,
	)
	return m.ID, nil
}

// Leave removes the caller from the waiting list. It is an idempotent
// no-op if absent and never revokes an assignment already formed.
func (s *Service) Leave(ctx context.Context, userID, categoryID string) error {
	return s.mutate(ctx, categoryID, func(q *domain.QueueState) error {
		q.RemoveWaiting(userID)
		return nil
	})
}

// Assignment is a pure read returning the user's assigned match id,
// only if the assignment is inside the staleness window.
func (s *Service) Assignment(ctx context.Context, userID, categoryID string) (string, error) {
	q, err := s.load(ctx, categoryID)
	if err != nil {
		return "", err
	}
	matchID, ok := q.Assignments[userID]
	if !ok {
		return "", nil
	}
	if s.clock.Now().Sub(q.AssignmentTimes[userID]) > s.cfg.AssignmentTTL {
		return "", nil
	}
	return matchID, nil
}

// assignmentValid re-validates a recorded assignment
func (s *Service) assignmentValid(ctx context.Context, q *domain.QueueState, userID, matchID string) (bool, error) {
	if s.clock.Now().Sub(q.AssignmentTimes[userID]) > s.cfg.AssignmentTTL {
		return false, nil
	}
	m, err := s.matches.Result(ctx, matchID)
	if errors.Is(err, domain.ErrMatchNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.Status != domain.StatusFinished, nil
}

// load reads the category's queue; a missing key is an empty queue
func (s *Service) load(ctx context.Context, categoryID string) (*domain.QueueState, error) {
	data, err := s.store.Get(ctx, Key(categoryID))
	if errors.Is(err, store.ErrKeyNotFound) {
		return domain.NewQueueState(categoryID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting queue: %w", err)
	}
	var q domain.QueueState
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("decoding queue: %w", err)
	}
	return &q, nil
}

// mutate wraps store.Mutate with the queue JSON codec, creating the
// queue lazily on first touch of a category.
func (s *Service) mutate(ctx context.Context, categoryID string, fn func(q *domain.QueueState) error) error {
	return s.store.Mutate(ctx, Key(categoryID), func(current []byte) ([]byte, error) {
		q := domain.NewQueueState(categoryID)
		if current != nil {
			if err := json.Unmarshal(current, q); err != nil {
				return nil, fmt.Errorf("decoding queue: %w", err)
			}
		}
		if err := fn(q); err != nil {
			return nil, err
		}
		next, err := json.Marshal(q)
		if err != nil {
			return nil, fmt.Errorf("encoding queue: %w", err)
		}
		return next, nil
	})
}
