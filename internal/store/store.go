// Package store provides the durable actor store: one independently
// addressable, serialized unit of state per key, with atomic
// read-modify-write and a secondary key-listing index. Per-key
// atomicity only; no cross-key transactions.
package store

import (
	"context"
	"errors"
)

// Store errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrKeyExists   = errors.New("key already exists")
	ErrContention  = errors.New("too much contention on key")
)

// Mutator transforms the current value of a key into its next value.
// It is called with the freshest value on every attempt; returning an
// error aborts the mutation without writing.
type Mutator func(current []byte) ([]byte, error)

// Store is the per-key durable state contract
type Store interface {
	// Create writes the value only if the key does not exist yet
	Create(ctx context.Context, key string, value []byte) error
	// Exists reports whether the key is present
	Exists(ctx context.Context, key string) (bool, error)
	// Get returns the current value, or ErrKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Mutate applies fn as an atomic read-modify-write on the key
	Mutate(ctx context.Context, key string, fn Mutator) error
	// Patch unconditionally overwrites the value
	Patch(ctx context.Context, key string, value []byte) error
	// Delete removes the key
	Delete(ctx context.Context, key string) error
	// Index returns the named secondary key index
	Index(name string) Index
}

// Index enumerates keys belonging to one collection
type Index interface {
	Add(ctx context.Context, key string) error
	AddBatch(ctx context.Context, keys []string) error
	Remove(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
	// Page returns up to count keys starting at the given cursor;
	// a returned cursor of 0 means the scan is complete.
	Page(ctx context.Context, cursor uint64, count int64) ([]string, uint64, error)
}

// BoardEntry is one ranked row read back from a score board
type BoardEntry struct {
	Rank   int64  `json:"rank"`
	Member string `json:"member"`
	Score  int64  `json:"score"`
}

// Boards maintains sorted score boards alongside the actor store. The
// rank resolver does not read these; they are an observability read
// model updated at settlement time.
type Boards interface {
	// Set stores the member's score on the board
	Set(ctx context.Context, board, member string, score int64) error
	// SetIfHigher stores the score only if it beats the current one
	SetIfHigher(ctx context.Context, board, member string, score int64) (bool, error)
	// IncrBy adjusts the member's score by delta and returns the result
	IncrBy(ctx context.Context, board, member string, delta int64) (int64, error)
	// TopN returns the highest-scored members, best first
	TopN(ctx context.Context, board string, n int) ([]BoardEntry, error)
}
