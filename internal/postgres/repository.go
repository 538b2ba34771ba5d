// Package postgres is the durable archive behind the live Redis state:
// finished matches, the settlement ledger fed by Kafka, and the
// dynamically authored question/category catalog (written by external
// authoring tools, consumed read-only here).
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trivia-arena/internal/config"
	"github.com/trivia-arena/internal/domain"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id VARCHAR(64) PRIMARY KEY,
			category_id VARCHAR(64) NOT NULL,
			text TEXT NOT NULL,
			options JSONB NOT NULL,
			correct_index INT NOT NULL,
			media_url TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS match_archive (
			id VARCHAR(64) PRIMARY KEY,
			category_id VARCHAR(64) NOT NULL,
			mode VARCHAR(16) NOT NULL,
			state JSONB NOT NULL,
			started_at TIMESTAMP NOT NULL,
			archived_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settlement_events (
			id BIGSERIAL PRIMARY KEY,
			match_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			category_id VARCHAR(64),
			mode VARCHAR(16) NOT NULL,
			outcome VARCHAR(8) NOT NULL,
			score BIGINT NOT NULL,
			xp_awarded INT NOT NULL,
			coins_awarded INT NOT NULL,
			rating_delta INT NOT NULL,
			achievements JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(match_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_settlement_events_user ON settlement_events(user_id, created_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// ArchiveMatch upserts a finished match's final state
func (r *Repository) ArchiveMatch(ctx context.Context, m *domain.MatchState) error {
	state, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding match state: %w", err)
	}

	query := `
		INSERT INTO match_archive (id, category_id, mode, state, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state
	`
	if _, err := r.pool.Exec(ctx, query, m.ID, m.CategoryID, string(m.Mode), state, m.StartTime); err != nil {
		return fmt.Errorf("archiving match: %w", err)
	}
	return nil
}

// GetArchivedMatch loads an archived match's final state
func (r *Repository) GetArchivedMatch(ctx context.Context, matchID string) (*domain.MatchState, error) {
	var state []byte
	err := r.pool.QueryRow(ctx, `SELECT state FROM match_archive WHERE id = $1`, matchID).Scan(&state)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting archived match: %w", err)
	}
	var m domain.MatchState
	if err := json.Unmarshal(state, &m); err != nil {
		return nil, fmt.Errorf("decoding archived match: %w", err)
	}
	return &m, nil
}

// RecordSettlement appends one settlement event to the ledger. The
// (match_id, user_id) uniqueness mirrors the settlement marker, so
// event redelivery does not duplicate ledger rows.
func (r *Repository) RecordSettlement(ctx context.Context, event domain.MatchSettledEvent) error {
	achievements, err := json.Marshal(event.Achievements)
	if err != nil {
		return fmt.Errorf("encoding achievements: %w", err)
	}

	query := `
		INSERT INTO settlement_events
			(match_id, user_id, category_id, mode, outcome, score, xp_awarded, coins_awarded, rating_delta, achievements, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (match_id, user_id) DO NOTHING
	`
	_, err = r.pool.Exec(ctx, query,
		event.MatchID,
		event.UserID,
		event.CategoryID,
		string(event.Mode),
		string(event.Outcome),
		event.Score,
		event.XPAwarded,
		event.CoinsAwarded,
		event.RatingDelta,
		achievements,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("recording settlement: %w", err)
	}
	return nil
}

// QuestionIDsByCategory returns authored question ids for one category
func (r *Repository) QuestionIDsByCategory(ctx context.Context, categoryID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM questions WHERE category_id = $1`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("listing category questions: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// AllQuestionIDs returns every authored question id
func (r *Repository) AllQuestionIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM questions`)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// Question returns one authored question, or nil when unknown
func (r *Repository) Question(ctx context.Context, id string) (*domain.Question, error) {
	var q domain.Question
	var options []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, category_id, text, options, correct_index, COALESCE(media_url, '') FROM questions WHERE id = $1`,
		id,
	).Scan(&q.ID, &q.CategoryID, &q.Text, &options, &q.CorrectIndex, &q.MediaURL)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting question: %w", err)
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return nil, fmt.Errorf("decoding question options: %w", err)
	}
	return &q, nil
}

// CategoryName returns an authored category's display name, "" if unknown
func (r *Repository) CategoryName(ctx context.Context, id string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM categories WHERE id = $1`, id).Scan(&name)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting category: %w", err)
	}
	return name, nil
}

func scanIDs(rows pgx.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
