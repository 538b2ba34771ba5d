package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/trivia-arena/internal/config"
)

// mutateRetries bounds the optimistic retry loop on a contended key.
// Each actor key has at most a handful of concurrent writers (the two
// players plus the sweep worker), so contention resolves quickly.
const mutateRetries = 16

// RedisStore is the Redis-backed actor store. Atomic read-modify-write
// is implemented with WATCH + MULTI/EXEC optimistic transactions, which
// gives each key the serialized-mutation guarantee the services rely on.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore connects to Redis and returns the actor store
func NewRedisStore(cfg *config.RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Create writes the value only if the key does not exist yet
func (s *RedisStore) Create(ctx context.Context, key string, value []byte) error {
	ok, err := s.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return fmt.Errorf("creating key: %w", err)
	}
	if !ok {
		return ErrKeyExists
	}
	return nil
}

// Exists reports whether the key is present
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("checking existence: %w", err)
	}
	return n > 0, nil
}

// Get returns the current value, or ErrKeyNotFound
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting key: %w", err)
	}
	return data, nil
}

// Mutate applies fn as an atomic read-modify-write on the key. fn sees
// nil when the key does not exist yet. If another writer changes the
// key between read and write the attempt is retried with fresh state.
func (s *RedisStore) Mutate(ctx context.Context, key string, fn Mutator) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			current = nil
		} else if err != nil {
			return fmt.Errorf("reading key: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < mutateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	s.logger.Warn("mutation retries exhausted", "key", key)
	return ErrContention
}

// Patch unconditionally overwrites the value
func (s *RedisStore) Patch(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("patching key: %w", err)
	}
	return nil
}

// Delete removes the key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}
	return nil
}

// Index returns the named secondary key index, backed by a Redis set
func (s *RedisStore) Index(name string) Index {
	return &redisIndex{client: s.client, key: fmt.Sprintf("index:%s", name)}
}

type redisIndex struct {
	client *redis.Client
	key    string
}

func (i *redisIndex) Add(ctx context.Context, key string) error {
	if err := i.client.SAdd(ctx, i.key, key).Err(); err != nil {
		return fmt.Errorf("adding to index: %w", err)
	}
	return nil
}

func (i *redisIndex) AddBatch(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]interface{}, len(keys))
	for n, k := range keys {
		members[n] = k
	}
	if err := i.client.SAdd(ctx, i.key, members...).Err(); err != nil {
		return fmt.Errorf("batch adding to index: %w", err)
	}
	return nil
}

func (i *redisIndex) Remove(ctx context.Context, key string) error {
	if err := i.client.SRem(ctx, i.key, key).Err(); err != nil {
		return fmt.Errorf("removing from index: %w", err)
	}
	return nil
}

func (i *redisIndex) List(ctx context.Context) ([]string, error) {
	keys, err := i.client.SMembers(ctx, i.key).Result()
	if err != nil {
		return nil, fmt.Errorf("listing index: %w", err)
	}
	return keys, nil
}

func (i *redisIndex) Page(ctx context.Context, cursor uint64, count int64) ([]string, uint64, error) {
	keys, next, err := i.client.SScan(ctx, i.key, cursor, "", count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("paging index: %w", err)
	}
	return keys, next, nil
}

// RedisBoards maintains sorted score boards on Redis sorted sets
type RedisBoards struct {
	client *redis.Client
}

// NewRedisBoards returns a board writer/reader over the given store
func NewRedisBoards(s *RedisStore) *RedisBoards {
	return &RedisBoards{client: s.client}
}

func (b *RedisBoards) boardKey(board string) string {
	return fmt.Sprintf("board:%s", board)
}

// Set stores the member's score on the board
func (b *RedisBoards) Set(ctx context.Context, board, member string, score int64) error {
	err := b.client.ZAdd(ctx, b.boardKey(board), redis.Z{
		Score:  float64(score),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("setting board score: %w", err)
	}
	return nil
}

// SetIfHigher stores the score only if it beats the current one
func (b *RedisBoards) SetIfHigher(ctx context.Context, board, member string, score int64) (bool, error) {
	key := b.boardKey(board)

	current, err := b.client.ZScore(ctx, key, member).Result()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("getting current board score: %w", err)
	}
	if err == nil && float64(score) <= current {
		return false, nil
	}
	return true, b.Set(ctx, board, member, score)
}

// IncrBy adjusts the member's score by delta and returns the result
func (b *RedisBoards) IncrBy(ctx context.Context, board, member string, delta int64) (int64, error) {
	newScore, err := b.client.ZIncrBy(ctx, b.boardKey(board), float64(delta), member).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing board score: %w", err)
	}
	return int64(newScore), nil
}

// TopN returns the highest-scored members, best first
func (b *RedisBoards) TopN(ctx context.Context, board string, n int) ([]BoardEntry, error) {
	results, err := b.client.ZRevRangeWithScores(ctx, b.boardKey(board), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting board top n: %w", err)
	}

	entries := make([]BoardEntry, len(results))
	for i, result := range results {
		entries[i] = BoardEntry{
			Rank:   int64(i + 1),
			Member: result.Member.(string),
			Score:  int64(result.Score),
		}
	}
	return entries, nil
}
