// Package executable resolves a module's producer name to a unit of code that
// computes the module's content.
//
// Units return their output. Nothing writes to a shared stream, so a unit can
// run on any goroutine and its result is attached to the request-scoped
// module view only.
package executable

import (
	"context"

	"github.com/vango-dev/docrender/pkg/module"
	"github.com/vango-dev/docrender/pkg/request"
)

// Input is what a unit sees when it runs.
type Input struct {
	Module  *module.Module
	Request *request.Request
}

// Params is a shortcut for the module's effective parameters.
func (in Input) Params() module.Params {
	if in.Module == nil {
		return module.Params{}
	}
	return in.Module.Params
}

// Unit produces module content.
type Unit interface {
	Execute(ctx context.Context, in Input) (string, error)
}

// UnitFunc adapts a function to Unit.
type UnitFunc func(ctx context.Context, in Input) (string, error)

// Execute implements Unit.
func (f UnitFunc) Execute(ctx context.Context, in Input) (string, error) {
	return f(ctx, in)
}

// Resolver finds the unit for a producer name such as "mod_latest".
type Resolver interface {
	Resolve(name string) (Unit, bool)
}

// Funcs is a Resolver backed by Go functions.
type Funcs map[string]UnitFunc

// Resolve implements Resolver.
func (f Funcs) Resolve(name string) (Unit, bool) {
	fn, ok := f[name]
	if !ok || fn == nil {
		return nil, false
	}
	return fn, true
}

// Chain tries each resolver in order.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(name string) (Unit, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if u, ok := r.Resolve(name); ok {
			return u, true
		}
	}
	return nil, false
}
