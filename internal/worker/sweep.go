// Package worker runs the background sweep: the lazy timeout rule says
// any state read advances an expired round, but a match nobody polls
// would stall forever. The sweeper is the backstop, and it also retires
// finished matches from the live index into the durable archive.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/trivia-arena/internal/config"
	"github.com/trivia-arena/internal/domain"
	"github.com/trivia-arena/internal/match"
	"github.com/trivia-arena/internal/store"
)

// Archiver persists a finished match's final state
type Archiver interface {
	ArchiveMatch(ctx context.Context, m *domain.MatchState) error
}

// SweepWorker periodically sweeps live matches
type SweepWorker struct {
	store    store.Store
	matches  *match.Service
	archiver Archiver
	config   *config.SweepConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewSweepWorker creates a sweep worker. archiver may be nil; finished
// matches are then retired from the live index without archival.
func NewSweepWorker(
	s store.Store,
	matches *match.Service,
	archiver Archiver,
	cfg *config.SweepConfig,
	logger *slog.Logger,
) *SweepWorker {
	return &SweepWorker{
		store:    s,
		matches:  matches,
		archiver: archiver,
		config:   cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sweep process
func (w *SweepWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sweep worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sweep process
func (w *SweepWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("sweep worker stopped")
	return nil
}

// run is the main worker loop
func (w *SweepWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweepAll(ctx)
		}
	}
}

// sweepAll sweeps every match in the live index. The id scan completes
// before any match is touched, so retiring matches does not disturb the
// index pagination.
func (w *SweepWorker) sweepAll(ctx context.Context) {
	startTime := time.Now()
	sweptCount := 0
	errorCount := 0

	index := w.store.Index(match.LiveIndex)
	var ids []string
	var cursor uint64
	for {
		page, next, err := index.Page(ctx, cursor, w.config.PageSize)
		if err != nil {
			w.logger.Error("failed to page live match index", "error", err)
			return
		}
		ids = append(ids, page...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	for _, id := range ids {
		if err := w.sweep(ctx, id); err != nil {
			w.logger.Error("failed to sweep match", "match_id", id, "error", err)
			errorCount++
		} else {
			sweptCount++
		}
	}

	if sweptCount > 0 || errorCount > 0 {
		w.logger.Debug("sweep cycle completed",
			"duration", time.Since(startTime),
			"swept", sweptCount,
			"errors", errorCount,
		)
	}
}

// sweep advances one match's expired round and retires it if finished
func (w *SweepWorker) sweep(ctx context.Context, matchID string) error {
	m, err := w.matches.ProcessTurn(ctx, matchID)
	if errors.Is(err, domain.ErrMatchNotFound) {
		// The index entry outlived its match; drop it
		return w.store.Index(match.LiveIndex).Remove(ctx, matchID)
	}
	if err != nil {
		return err
	}

	if m.Status != domain.StatusFinished {
		return nil
	}

	if w.archiver != nil {
		if err := w.archiver.ArchiveMatch(ctx, m); err != nil {
			// Keep the match in the live index and retry next cycle
			return err
		}
	}
	if err := w.store.Index(match.LiveIndex).Remove(ctx, matchID); err != nil {
		return err
	}

	w.logger.Info("match retired", "match_id", matchID)
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *SweepWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single sweep cycle (useful for manual triggers)
func (w *SweepWorker) RunOnce(ctx context.Context) {
	w.sweepAll(ctx)
}
