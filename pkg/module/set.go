package module

import (
	"sort"
	"strings"
)

// Set is the request-scoped, ordered collection of modules a document renders
// from. It owns clones, so Apply on its members never reaches a store.
type Set struct {
	modules []*Module
}

// NewSet clones mods into a Set, keeping their order.
func NewSet(mods []*Module) *Set {
	s := &Set{modules: make([]*Module, 0, len(mods))}
	for _, m := range mods {
		if m == nil {
			continue
		}
		s.modules = append(s.modules, m.Clone())
	}
	return s
}

// All returns the modules in stored order.
func (s *Set) All() []*Module {
	return append([]*Module(nil), s.modules...)
}

// Len returns the number of modules.
func (s *Set) Len() int {
	return len(s.modules)
}

// ByName returns the module whose Name matches. When several match, the one
// with the lowest ID wins.
func (s *Set) ByName(name string) *Module {
	name = strings.ToLower(name)
	var best *Module
	for _, m := range s.modules {
		if m.Name() != name {
			continue
		}
		if best == nil || m.ID < best.ID {
			best = m
		}
	}
	return best
}

// ByPosition returns the modules placed at position, in stored order.
func (s *Set) ByPosition(position string) []*Module {
	var out []*Module
	for _, m := range s.modules {
		if strings.EqualFold(m.Position, position) {
			out = append(out, m)
		}
	}
	return out
}

// Count returns the number of modules at position.
func (s *Set) Count(position string) int {
	n := 0
	for _, m := range s.modules {
		if strings.EqualFold(m.Position, position) {
			n++
		}
	}
	return n
}

// Sort orders modules by (position, ordering, id).
func Sort(mods []*Module) {
	sort.SliceStable(mods, func(i, j int) bool {
		a, b := mods[i], mods[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if a.Ordering != b.Ordering {
			return a.Ordering < b.Ordering
		}
		return a.ID < b.ID
	})
}
