// Package ledger records the fragments a template asked for during parsing.
//
// The ledger is ordered and deduplicated by (kind, name): registering the same
// pair twice returns the same entry and token, so every occurrence of that
// token in the parsed text resolves to one fragment.
package ledger

import (
	"maps"
	"sync"

	"github.com/vango-dev/docrender/pkg/token"
)

// Entry is one pending fragment request.
type Entry struct {
	Kind   token.Kind
	Name   string
	Params map[string]string
	Token  string
}

type key struct {
	kind token.Kind
	name string
}

// Ledger is an ordered set of entries. It is safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries []*Entry
	index   map[key]*Entry
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{index: make(map[key]*Entry)}
}

// Add registers (kind, name). A repeated registration merges params into the
// existing entry, later values winning, and keeps its first position.
func (l *Ledger) Add(kind token.Kind, name string, params map[string]string) Entry {
	kind = token.Normalize(kind)
	name = token.NormalizeName(name)
	k := key{kind: kind, name: name}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.index == nil {
		l.index = make(map[key]*Entry)
	}

	if e, ok := l.index[k]; ok {
		if len(params) > 0 {
			if e.Params == nil {
				e.Params = make(map[string]string, len(params))
			}
			maps.Copy(e.Params, params)
		}
		return e.copy()
	}

	e := &Entry{
		Kind:  kind,
		Name:  name,
		Token: token.Encode(kind, name),
	}
	if len(params) > 0 {
		e.Params = maps.Clone(params)
	}
	l.entries = append(l.entries, e)
	l.index[k] = e
	return e.copy()
}

// Entries returns a snapshot of all entries in registration order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.copy()
	}
	return out
}

// Len returns the number of distinct entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Reset discards every entry.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.index = make(map[key]*Entry)
}

// Take returns all entries in registration order and empties the ledger in
// one step, so a registration racing with it lands in either the result or
// the next Take.
func (l *Ledger) Take() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = *e
	}
	l.entries = nil
	l.index = make(map[key]*Entry)
	return out
}

func (e *Entry) copy() Entry {
	c := *e
	c.Params = maps.Clone(e.Params)
	return c
}
