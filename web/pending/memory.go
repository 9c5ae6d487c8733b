package pending

import (
	"context"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type expiryItem struct {
	at time.Time
	id string
}

func lessExpiry(a, b expiryItem) bool {
	if !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	return a.id < b.id
}

// MemoryStore keeps entries in a map and indexes them by expiry in a btree,
// so a sweep only visits what it evicts.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Registration
	byExp   *btree.BTreeG[expiryItem]
	now     func() time.Time
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]Registration),
		byExp:   btree.NewG(8, lessExpiry),
		now:     now,
	}
}

func (s *MemoryStore) Put(_ context.Context, reg Registration) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = reg
	s.byExp.ReplaceOrInsert(expiryItem{at: reg.ExpiresAt, id: id})
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.entries[id]
	if !ok {
		return Registration{}, ErrNotFound
	}
	if s.now().After(reg.ExpiresAt) {
		s.removeLocked(id, reg)
		return Registration{}, ErrExpired
	}
	return reg, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, reg Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	s.byExp.Delete(expiryItem{at: old.ExpiresAt, id: id})
	s.entries[id] = reg
	s.byExp.ReplaceOrInsert(expiryItem{at: reg.ExpiresAt, id: id})
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reg, ok := s.entries[id]; ok {
		s.removeLocked(id, reg)
	}
	return nil
}

func (s *MemoryStore) removeLocked(id string, reg Registration) {
	delete(s.entries, id)
	s.byExp.Delete(expiryItem{at: reg.ExpiresAt, id: id})
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts every entry that expired before now and reports how many.
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for {
		min, ok := s.byExp.Min()
		if !ok || !now.After(min.at) {
			break
		}
		s.byExp.DeleteMin()
		delete(s.entries, min.id)
		removed++
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration, log *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Debug("swept pending registrations", zap.Int("evicted", n))
				}
			}
		}
	}()
}
