// Package component renders the page's main area.
//
// A page has at most one component, selected by the request option
// ("com_content" or just "content"). The component is gated by an
// Authorizer; a denied request gets the fixed NotAuthorized fragment instead
// of running the handler.
package component

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/vango-dev/docrender/internal/errors"
	"github.com/vango-dev/docrender/pkg/chrome"
	"github.com/vango-dev/docrender/pkg/request"
)

// Prefix is the conventional component name prefix.
const Prefix = "com_"

// NotAuthorized replaces the output of a component the viewer may not see.
const NotAuthorized = `<div class="notauth">You are not authorized to view this resource.</div>`

// Handler renders a component for a request.
type Handler func(ctx context.Context, r *request.Request) (string, error)

var invalidChars = regexp.MustCompile(`[^a-z0-9_.\-]`)

// Normalize returns the canonical component name: lower case, restricted to
// [a-z0-9_.-], without the com_ prefix.
func Normalize(name string) string {
	name = invalidChars.ReplaceAllString(strings.ToLower(name), "")
	return strings.TrimPrefix(name, Prefix)
}

// Registry maps component names to handlers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds or replaces the handler for name.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[Normalize(name)] = h
}

// Lookup returns the handler for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[Normalize(name)]
	return h, ok && h != nil
}

// Names returns the registered component names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Authorizer decides whether a request may see a component.
type Authorizer interface {
	Allowed(ctx context.Context, r *request.Request, component string) bool
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, r *request.Request, component string) bool

// Allowed implements Authorizer.
func (f AuthorizerFunc) Allowed(ctx context.Context, r *request.Request, component string) bool {
	return f(ctx, r, component)
}

// AllowAll permits every component.
var AllowAll Authorizer = AuthorizerFunc(func(context.Context, *request.Request, string) bool { return true })

// AccessMap requires a minimum access level per component. Components not
// in the map are public.
type AccessMap map[string]int

// Allowed implements Authorizer.
func (m AccessMap) Allowed(_ context.Context, r *request.Request, component string) bool {
	level, ok := m[Normalize(component)]
	if !ok {
		return true
	}
	return r != nil && r.AccessLevel >= level
}

// Dispatcher runs the component selected for a request.
type Dispatcher struct {
	Registry   *Registry
	Authorizer Authorizer // nil means AllowAll
}

// Render produces the component fragment. The request message, when set,
// is prepended as an escaped notice.
func (d *Dispatcher) Render(ctx context.Context, name string, r *request.Request) (string, error) {
	name = Normalize(name)
	if name == "" {
		return "", errors.New("R006").WithDetail("no component selected")
	}

	auth := d.Authorizer
	if auth == nil {
		auth = AllowAll
	}
	if !auth.Allowed(ctx, r, name) {
		if r != nil {
			return WithMessage(r.Message, NotAuthorized), nil
		}
		return NotAuthorized, nil
	}

	h, ok := d.Registry.Lookup(name)
	if !ok {
		return "", errors.New("R006").WithDetail(Prefix + name)
	}

	out, err := h(ctx, r)
	if err != nil {
		return "", errors.FromError(err, "R003")
	}

	if r != nil && r.Message != "" {
		out = WithMessage(r.Message, out)
	}
	return out, nil
}

// WithMessage prefixes html with a message block.
func WithMessage(msg, html string) string {
	if msg == "" {
		return html
	}
	return "\n<div class=\"message\">" + chrome.EscapeHTML(msg) + "</div>" + html
}
