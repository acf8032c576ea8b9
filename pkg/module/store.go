package module

import "context"

// Filter selects the modules visible to one request.
type Filter struct {
	// AccessLevel is the highest access level the viewer holds.
	AccessLevel int
	// Client is the site/administrator client the request belongs to.
	Client int
	// MenuID restricts modules to those assigned to this menu item (or to
	// all items) when HasMenu is set.
	MenuID  int
	HasMenu bool
}

// Store lists published modules.
type Store interface {
	// ListPublished returns published modules matching f, ordered by
	// (position, ordering, id). Callers must not mutate the result.
	ListPublished(ctx context.Context, f Filter) ([]*Module, error)
}

// visible reports whether m passes f, ignoring publish state.
func (f Filter) visible(m *Module) bool {
	if m.Access > f.AccessLevel {
		return false
	}
	if m.Client != f.Client {
		return false
	}
	if f.HasMenu && !m.assignedTo(f.MenuID) {
		return false
	}
	return true
}
