package pending

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
)

type memoryEntry struct {
	it      Interaction
	expires time.Time
}

// MemoryStore is an in-process Store. Expired entries are dropped on read and
// by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption customises a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates a store whose entries live for ttl.
// A non-positive ttl selects DefaultTTL.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores it for userID, replacing any previous entry.
func (s *MemoryStore) Set(_ context.Context, userID string, it Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = memoryEntry{it: it, expires: s.now().Add(s.ttl)}
	return nil
}

// Get returns the live entry of userID.
func (s *MemoryStore) Get(_ context.Context, userID string) (Interaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		return Interaction{}, false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, userID)
		return Interaction{}, false, nil
	}
	return e.it, true, nil
}

// Clear removes the entry of userID. Clearing a missing entry is not an error.
func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				expiredTotal.Add(float64(n))
				logger.Debug(ctx, logger.CompPending, "sweep",
					slog.String("status", "ok"),
					slog.Int("removed", n),
				)
			}
		}
	}
}
