package store

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryStore keeps entries in process memory. When full, the oldest
// entries are evicted in one batch.
type MemoryStore struct {
	mu            sync.RWMutex
	entries       map[string][][]byte
	order         []string
	maxEntries    int
	rotatePercent float64
	logger        *slog.Logger
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithMaxEntries sets the maximum number of entries. Zero or less means no
// limit.
func WithMaxEntries(max int) MemoryOption {
	return func(s *MemoryStore) {
		s.maxEntries = max
	}
}

// WithRotatePercent sets the share of entries evicted when the store is full
func WithRotatePercent(percent float64) MemoryOption {
	return func(s *MemoryStore) {
		s.rotatePercent = percent
	}
}

// WithMemoryLogger sets the logger used to report evictions
func WithMemoryLogger(logger *slog.Logger) MemoryOption {
	return func(s *MemoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:       make(map[string][][]byte),
		maxEntries:    10000,
		rotatePercent: 0.2,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Put stores a copy of slices under key
func (s *MemoryStore) Put(ctx context.Context, key string, slices [][]byte) error {
	if err := checkPut(key, slices); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := cloneSlices(slices)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		s.entries[key] = data
		return nil
	}

	if s.maxEntries > 0 && len(s.order) >= s.maxEntries {
		s.rotate()
	}

	s.entries[key] = data
	s.order = append(s.order, key)
	return nil
}

// Get returns a copy of the slices stored under key
func (s *MemoryStore) Get(ctx context.Context, key string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.entries[key]
	if !exists {
		return nil, ErrNotFound
	}
	return cloneSlices(data), nil
}

// Delete removes key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists {
		return ErrNotFound
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Keys lists keys in insertion order
func (s *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string{}, s.order...), nil
}

// Len returns the number of stored entries
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// rotate evicts the oldest entries. Callers hold the write lock.
func (s *MemoryStore) rotate() {
	removeCount := int(float64(s.maxEntries) * s.rotatePercent)
	if removeCount < 1 {
		removeCount = 1
	}
	if removeCount > len(s.order) {
		removeCount = len(s.order)
	}

	for _, key := range s.order[:removeCount] {
		delete(s.entries, key)
	}
	s.order = append([]string{}, s.order[removeCount:]...)

	s.logger.Debug("evicted oldest flattened messages",
		"evicted", removeCount,
		"remaining", len(s.order))
}
