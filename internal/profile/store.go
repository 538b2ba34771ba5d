// Package profile provides the profile store consumed by match start
// (snapshot reads), the rank resolver (population scans) and reward
// settlement (one atomic mutation per settled player).
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trivia-arena/internal/domain"
	"github.com/trivia-arena/internal/store"
)

const indexName = "profiles"

// Store reads and mutates player profiles over the actor store
type Store struct {
	store  store.Store
	logger *slog.Logger
}

// NewStore creates a profile store
func NewStore(s store.Store, logger *slog.Logger) *Store {
	return &Store{store: s, logger: logger}
}

func key(userID string) string {
	return fmt.Sprintf("profile:%s", userID)
}

// Get returns a profile, or domain.ErrProfileNotFound
func (s *Store) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	data, err := s.store.Get(ctx, key(userID))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	var p domain.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return &p, nil
}

// Create stores a new profile and registers it in the population index
func (s *Store) Create(ctx context.Context, p *domain.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := s.store.Create(ctx, key(p.ID), data); err != nil {
		return fmt.Errorf("creating profile: %w", err)
	}
	if err := s.store.Index(indexName).Add(ctx, p.ID); err != nil {
		return fmt.Errorf("indexing profile: %w", err)
	}
	return nil
}

// Mutate applies fn to the profile as one atomic read-modify-write.
// This is the single entry point reward settlement uses.
func (s *Store) Mutate(ctx context.Context, userID string, fn func(p *domain.Profile) error) error {
	return s.store.Mutate(ctx, key(userID), func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, domain.ErrProfileNotFound
		}
		var p domain.Profile
		if err := json.Unmarshal(current, &p); err != nil {
			return nil, fmt.Errorf("decoding profile: %w", err)
		}
		if err := fn(&p); err != nil {
			return nil, err
		}
		next, err := json.Marshal(&p)
		if err != nil {
			return nil, fmt.Errorf("encoding profile: %w", err)
		}
		return next, nil
	})
}

// List loads the whole profile population via the key index. The rank
// resolver scans this on every match start; bounded populations only.
func (s *Store) List(ctx context.Context) ([]*domain.Profile, error) {
	ids, err := s.store.Index(indexName).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing profile index: %w", err)
	}

	profiles := make([]*domain.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrProfileNotFound) {
			// Index entry outlived its profile; skip it
			s.logger.Warn("dangling profile index entry", "user_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
