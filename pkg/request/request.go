// Package request carries the per-request context every producer receives.
//
// It replaces ambient framework state: the access level, client, menu item
// and component selection of the current page are passed explicitly instead
// of being read from globals.
package request

import (
	"context"
	"net/url"

	"github.com/vango-dev/docrender/pkg/module"
)

// Client contexts.
const (
	ClientSite  = 0
	ClientAdmin = 1
)

// Request describes the page being rendered.
type Request struct {
	// ID identifies the request in logs.
	ID string

	// AccessLevel is the viewer's access level; modules with a higher
	// Access are hidden.
	AccessLevel int

	// Client is the client context (site or admin).
	Client int

	// MenuID is the active menu item. HasMenu is false when the page is not
	// bound to a menu item, in which case menu assignment is not filtered.
	MenuID  int
	HasMenu bool

	// Option names the component rendered in the main area.
	Option string

	// Task is passed to the component handler.
	Task string

	// Message is an optional notice shown above the component.
	Message string

	// Language is the page language tag.
	Language string

	// Query holds the raw query parameters.
	Query url.Values
}

// Filter returns the module store filter for this request.
func (r *Request) Filter() module.Filter {
	if r == nil {
		return module.Filter{}
	}
	return module.Filter{
		AccessLevel: r.AccessLevel,
		Client:      r.Client,
		MenuID:      r.MenuID,
		HasMenu:     r.HasMenu,
	}
}

// Get returns a query parameter.
func (r *Request) Get(key string) string {
	if r == nil || r.Query == nil {
		return ""
	}
	return r.Query.Get(key)
}

type ctxKey struct{}

// WithRequest returns a context carrying r.
func WithRequest(ctx context.Context, r *Request) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext returns the request stored in ctx, or nil.
func FromContext(ctx context.Context) *Request {
	r, _ := ctx.Value(ctxKey{}).(*Request)
	return r
}
