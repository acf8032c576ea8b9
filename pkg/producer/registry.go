// Package producer maps placeholder kinds to the functions that render them.
package producer

import (
	"context"
	"sort"
	"sync"

	"github.com/vango-dev/docrender/pkg/token"
)

// Producer renders the fragment for one ledger entry. name is the producer or
// position name the template asked for; params are the registration overrides.
type Producer func(ctx context.Context, name string, params map[string]string) (string, error)

// Phase orders resolution. Every entry of a lower phase is resolved before any
// entry of a higher phase starts; entries inside one phase are independent.
type Phase int

const (
	// PhaseContent is for producers that may mutate the document head.
	PhaseContent Phase = iota
	// PhaseHead is for producers that read the finished head.
	PhaseHead
)

type registration struct {
	phase Phase
	fn    Producer
}

// Registry is a kind -> producer table. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	producers map[token.Kind]registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{producers: make(map[token.Kind]registration)}
}

// Register binds kind to fn, replacing any previous binding.
func (r *Registry) Register(kind token.Kind, phase Phase, fn Producer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.producers == nil {
		r.producers = make(map[token.Kind]registration)
	}
	r.producers[token.Normalize(kind)] = registration{phase: phase, fn: fn}
}

// Lookup returns the producer bound to kind.
func (r *Registry) Lookup(kind token.Kind) (Producer, Phase, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.producers[token.Normalize(kind)]
	if !ok || reg.fn == nil {
		return nil, 0, false
	}
	return reg.fn, reg.phase, true
}

// Kinds returns the registered kinds sorted by name.
func (r *Registry) Kinds() []token.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]token.Kind, 0, len(r.producers))
	for k := range r.producers {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
