package module

import (
	"context"
	"sync"
)

// MemoryStore keeps modules in memory. It is the default store and is what the
// YAML seed file loads into.
type MemoryStore struct {
	mu      sync.RWMutex
	modules []*Module
}

// NewMemoryStore creates a store holding clones of mods.
func NewMemoryStore(mods ...*Module) *MemoryStore {
	s := &MemoryStore{}
	s.Add(mods...)
	return s
}

// Add stores clones of mods.
func (s *MemoryStore) Add(mods ...*Module) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range mods {
		if m == nil {
			continue
		}
		s.modules = append(s.modules, m.Clone())
	}
}

// Len returns the number of stored modules, published or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.modules)
}

// ListPublished implements Store.
func (s *MemoryStore) ListPublished(ctx context.Context, f Filter) ([]*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Module, 0, len(s.modules))
	for _, m := range s.modules {
		if !m.Published || !f.visible(m) {
			continue
		}
		out = append(out, m.Clone())
	}
	Sort(out)
	return out, nil
}
