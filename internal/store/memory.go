package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store implementation with the same
// per-key serialization guarantee as the Redis store. It backs the
// package tests; nothing in the server wiring uses it.
type MemoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	indexes map[string]map[string]struct{}
}

// NewMemoryStore returns an empty in-memory actor store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:    map[string][]byte{},
		indexes: map[string]map[string]struct{}{},
	}
}

// Create writes the value only if the key does not exist yet
func (s *MemoryStore) Create(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return ErrKeyExists
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Exists reports whether the key is present
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok, nil
}

// Get returns the current value, or ErrKeyNotFound
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Mutate applies fn as an atomic read-modify-write on the key
func (s *MemoryStore) Mutate(ctx context.Context, key string, fn Mutator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current []byte
	if v, ok := s.data[key]; ok {
		current = append([]byte(nil), v...)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	s.data[key] = append([]byte(nil), next...)
	return nil
}

// Patch unconditionally overwrites the value
func (s *MemoryStore) Patch(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes the key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Index returns the named secondary key index
func (s *MemoryStore) Index(name string) Index {
	return &memoryIndex{store: s, name: name}
}

type memoryIndex struct {
	store *MemoryStore
	name  string
}

func (i *memoryIndex) set() map[string]struct{} {
	set, ok := i.store.indexes[i.name]
	if !ok {
		set = map[string]struct{}{}
		i.store.indexes[i.name] = set
	}
	return set
}

func (i *memoryIndex) Add(ctx context.Context, key string) error {
	i.store.mu.Lock()
	defer i.store.mu.Unlock()
	i.set()[key] = struct{}{}
	return nil
}

func (i *memoryIndex) AddBatch(ctx context.Context, keys []string) error {
	i.store.mu.Lock()
	defer i.store.mu.Unlock()
	set := i.set()
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return nil
}

func (i *memoryIndex) Remove(ctx context.Context, key string) error {
	i.store.mu.Lock()
	defer i.store.mu.Unlock()
	delete(i.set(), key)
	return nil
}

func (i *memoryIndex) List(ctx context.Context) ([]string, error) {
	i.store.mu.Lock()
	defer i.store.mu.Unlock()
	keys := make([]string, 0, len(i.set()))
	for k := range i.set() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (i *memoryIndex) Page(ctx context.Context, cursor uint64, count int64) ([]string, uint64, error) {
	keys, err := i.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	start := int(cursor)
	if start >= len(keys) {
		return nil, 0, nil
	}
	end := start + int(count)
	if end >= len(keys) {
		return keys[start:], 0, nil
	}
	return keys[start:end], uint64(end), nil
}

// MemoryBoards is an in-process Boards implementation for tests
type MemoryBoards struct {
	mu     sync.Mutex
	boards map[string]map[string]int64
}

// NewMemoryBoards returns an empty in-memory board set
func NewMemoryBoards() *MemoryBoards {
	return &MemoryBoards{boards: map[string]map[string]int64{}}
}

func (b *MemoryBoards) board(name string) map[string]int64 {
	m, ok := b.boards[name]
	if !ok {
		m = map[string]int64{}
		b.boards[name] = m
	}
	return m
}

// Set stores the member's score on the board
func (b *MemoryBoards) Set(ctx context.Context, board, member string, score int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.board(board)[member] = score
	return nil
}

// SetIfHigher stores the score only if it beats the current one
func (b *MemoryBoards) SetIfHigher(ctx context.Context, board, member string, score int64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.board(board)
	if current, ok := m[member]; ok && score <= current {
		return false, nil
	}
	m[member] = score
	return true, nil
}

// IncrBy adjusts the member's score by delta and returns the result
func (b *MemoryBoards) IncrBy(ctx context.Context, board, member string, delta int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.board(board)
	m[member] += delta
	return m[member], nil
}

// TopN returns the highest-scored members, best first
func (b *MemoryBoards) TopN(ctx context.Context, board string, n int) ([]BoardEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.board(board)
	entries := make([]BoardEntry, 0, len(m))
	for member, score := range m {
		entries = append(entries, BoardEntry{Member: member, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Member < entries[j].Member
	})
	if n < len(entries) {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = int64(i + 1)
	}
	return entries, nil
}
