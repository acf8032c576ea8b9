// Package layout runs the parse pass over page templates.
//
// Page templates are text/template files stored as <template>/<file> in a
// filesystem. Directives such as {{modules "left"}} do not render anything
// themselves: they register a fragment with the Registrar and emit the
// placeholder token it returns. The resolve pass substitutes the tokens later.
package layout

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"text/template"

	derrors "github.com/vango-dev/docrender/internal/errors"
	"github.com/vango-dev/docrender/pkg/request"
	"github.com/vango-dev/docrender/pkg/token"
)

// DefaultFallback is the template used when the requested one lacks a file.
const DefaultFallback = "_system"

// Registrar records fragment requests made while a template executes.
type Registrar interface {
	// Register records (kind, name, params) and returns its placeholder token.
	Register(kind token.Kind, name string, params map[string]string) string

	// CountModules returns the number of modules at position.
	CountModules(position string) int
}

// Data is exposed to page templates as the dot value.
type Data struct {
	Title    string
	Base     string
	Template string
	Language string
	Request  *request.Request
}

// Engine parses and executes page templates. It is safe for concurrent use.
type Engine struct {
	fsys     fs.FS
	fallback string
	funcs    template.FuncMap

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// Option configures an Engine.
type Option func(*Engine)

// WithFallback sets the template consulted when a file is missing from the
// requested template. Default: "_system".
func WithFallback(name string) Option {
	return func(e *Engine) {
		e.fallback = name
	}
}

// WithFuncs adds helper functions to every template. Names that clash with
// the built-in directives are ignored.
func WithFuncs(funcs template.FuncMap) Option {
	return func(e *Engine) {
		for k, v := range funcs {
			e.funcs[k] = v
		}
	}
}

// New creates an engine reading templates from fsys.
func New(fsys fs.FS, opts ...Option) *Engine {
	e := &Engine{
		fsys:     fsys,
		fallback: DefaultFallback,
		funcs:    template.FuncMap{},
		cache:    make(map[string]*template.Template),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parse executes <tmpl>/<file>, falling back to <fallback>/<file>, with reg
// receiving every fragment registration. The effective template name is
// written to data.Template before execution.
func (e *Engine) Parse(ctx context.Context, tmpl, file string, reg Registrar, data Data) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, t, err := e.lookup(tmpl, file)
	if err != nil {
		return "", err
	}
	data.Template = name

	// Clone so the per-call directives bind to this registrar only.
	run, err := t.Clone()
	if err != nil {
		return "", derrors.New("R003").WithDetail(t.Name()).Wrap(err)
	}
	run.Funcs(directives(reg))

	var sb strings.Builder
	if err := run.Execute(&sb, data); err != nil {
		return "", derrors.New("R003").WithDetail(t.Name()).Wrap(err)
	}
	return sb.String(), nil
}

// Resolve reports which template would serve file for tmpl.
func (e *Engine) Resolve(tmpl, file string) (string, bool) {
	for _, name := range e.candidates(tmpl) {
		p, ok := join(name, file)
		if !ok {
			continue
		}
		if _, err := fs.Stat(e.fsys, p); err == nil {
			return name, true
		}
	}
	return "", false
}

func (e *Engine) candidates(tmpl string) []string {
	if tmpl == "" || tmpl == e.fallback {
		return []string{e.fallback}
	}
	return []string{tmpl, e.fallback}
}

func (e *Engine) lookup(tmpl, file string) (string, *template.Template, error) {
	for _, name := range e.candidates(tmpl) {
		p, ok := join(name, file)
		if !ok {
			continue
		}

		e.mu.RLock()
		t, hit := e.cache[p]
		e.mu.RUnlock()
		if hit {
			return name, t, nil
		}

		src, err := fs.ReadFile(e.fsys, p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", nil, derrors.New("R001").WithDetail(p).Wrap(err)
		}

		t, err = template.New(p).Funcs(e.parseFuncs()).Parse(string(src))
		if err != nil {
			return "", nil, derrors.New("R002").WithDetail(p).Wrap(err)
		}

		e.mu.Lock()
		e.cache[p] = t
		e.mu.Unlock()
		return name, t, nil
	}

	return "", nil, derrors.New("R001").
		WithDetail(fmt.Sprintf("%s/%s", tmpl, file)).
		WithSuggestion(fmt.Sprintf("Add %s/%s or %s/%s", tmpl, file, e.fallback, file))
}

// parseFuncs declares every directive so templates parse; the bodies are
// replaced per execution.
func (e *Engine) parseFuncs() template.FuncMap {
	funcs := template.FuncMap{}
	for k, v := range e.funcs {
		funcs[k] = v
	}
	for k, v := range directives(nil) {
		funcs[k] = v
	}
	return funcs
}

func join(tmpl, file string) (string, bool) {
	p := path.Join(tmpl, file)
	if tmpl == "" || file == "" || strings.Contains(tmpl, "/") || !fs.ValidPath(p) || !strings.HasPrefix(p, tmpl+"/") {
		return "", false
	}
	return p, true
}
