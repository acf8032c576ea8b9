package module

import (
	"strconv"
	"strings"
)

// SystemPrefix marks producer names that are backed by an executable unit.
const SystemPrefix = "mod_"

// Module is one content-producing unit.
type Module struct {
	ID        int
	Title     string
	Module    string // producer name, e.g. "mod_latest" or "custom"
	Position  string
	Content   string
	ShowTitle bool
	Params    Params
	Ordering  int
	Access    int
	Client    int
	Published bool

	// Menus lists the menu items the module is assigned to. A 0 entry (or an
	// empty list) means every menu item.
	Menus []int

	// Style is the chrome used when a render does not ask for one.
	Style string
}

// User reports whether the module is user content rather than a system module.
func (m *Module) User() bool {
	return !strings.HasPrefix(m.Module, SystemPrefix)
}

// Name is the producer name without the system prefix, lower-cased.
func (m *Module) Name() string {
	return strings.ToLower(strings.TrimPrefix(m.Module, SystemPrefix))
}

// Clone returns a deep copy safe to mutate for a single render.
func (m *Module) Clone() *Module {
	c := *m
	c.Params = m.Params.Clone()
	if m.Menus != nil {
		c.Menus = append([]int(nil), m.Menus...)
	}
	return &c
}

// Apply merges registration overrides. "style", "title" and "showtitle"
// set the matching fields; every other key becomes a parameter.
func (m *Module) Apply(overrides map[string]string) {
	for k, v := range overrides {
		switch strings.ToLower(k) {
		case "style":
			m.Style = v
		case "title":
			m.Title = v
		case "showtitle":
			if b, err := strconv.ParseBool(v); err == nil {
				m.ShowTitle = b
			} else {
				m.ShowTitle = v != "" && v != "0"
			}
		default:
			m.Params.Set(k, v)
		}
	}
}

// assignedTo reports whether the module shows on menu item id.
func (m *Module) assignedTo(id int) bool {
	if len(m.Menus) == 0 {
		return true
	}
	for _, menu := range m.Menus {
		if menu == 0 || menu == id {
			return true
		}
	}
	return false
}
