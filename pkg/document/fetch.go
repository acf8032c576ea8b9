package document

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/docrender/internal/errors"
	"github.com/vango-dev/docrender/pkg/component"
	"github.com/vango-dev/docrender/pkg/executable"
	"github.com/vango-dev/docrender/pkg/fragcache"
	"github.com/vango-dev/docrender/pkg/module"
)

// FetchComponent renders the page component. An empty name selects the
// request option. Only one component renders per request: once a component
// has been fetched, asking for a different one yields an empty fragment.
func (h *HTML) FetchComponent(ctx context.Context, name string) (string, error) {
	name = h.componentName(name)
	claimed := h.claimComponent(name)
	if name != claimed {
		h.logger.WarnContext(ctx, "second component ignored", "component", name, "rendered", claimed)
		return "", nil
	}

	h.compOnce.Do(func() {
		if h.opts.Components == nil {
			h.compErr = errors.New("R006").WithDetail("no component dispatcher configured")
			return
		}
		h.compOut, h.compErr = h.opts.Components.Render(ctx, name, h.req)
	})
	return h.compOut, h.compErr
}

func (h *HTML) componentName(name string) string {
	if name == "" {
		name = h.req.Option
	}
	return component.Normalize(name)
}

// claimComponent makes name the request's component unless one is already
// chosen, and returns the chosen one.
func (h *HTML) claimComponent(name string) string {
	h.compMu.Lock()
	defer h.compMu.Unlock()
	if h.compName == "" {
		h.compName = name
	}
	return h.compName
}

// FetchModules renders every module at position, concatenated in stored
// order. style overrides each module's own style when set. A module that
// fails renders empty; the others are kept.
func (h *HTML) FetchModules(ctx context.Context, position, style string) (string, error) {
	var b strings.Builder
	for _, m := range h.GetModules(position) {
		out, err := h.RenderModule(ctx, m, style)
		if err != nil {
			h.logger.WarnContext(ctx, "module failed",
				"position", position, "module", m.Module, "id", m.ID, "error", err)
			continue
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

// FetchModule renders the module named name. A missing module is an empty
// fragment, not an error.
func (h *HTML) FetchModule(ctx context.Context, name, style string) (string, error) {
	m := h.GetModule(name)
	if m == nil {
		h.logger.DebugContext(ctx, "module not found", "module", name)
		return "", nil
	}
	return h.RenderModule(ctx, m, style)
}

// RenderModule wraps a module in its chrome. System modules with an
// executable unit compute their content first, once per request. When the
// module has cache=1 and caching is enabled, the whole render, execution
// included, goes through the fragment cache.
func (h *HTML) RenderModule(ctx context.Context, m *module.Module, style string) (string, error) {
	h.modMu.RLock()
	if style == "" {
		style = m.Style
	}
	cached := h.lookaside != nil && h.opts.CachingEnabled && m.Params.Cache()
	key := ""
	ttl := h.opts.CacheTTL
	if cached {
		key = cacheKey(m, style)
		if d := m.Params.CacheTime(); d > 0 {
			ttl = d
		}
	}
	h.modMu.RUnlock()

	render := func(ctx context.Context) (string, error) {
		if err := h.execute(ctx, m); err != nil {
			return "", err
		}
		h.modMu.RLock()
		defer h.modMu.RUnlock()
		return h.opts.Chrome.Render(m, style), nil
	}

	if !cached {
		return render(ctx)
	}
	return h.lookaside.Do(ctx, key, ttl, render)
}

// cacheKey covers every descriptor field the chrome prints. A system module's
// content is computed from its params, so only stored user content is keyed.
func cacheKey(m *module.Module, style string) string {
	content := ""
	if m.User() {
		content = m.Content
	}
	return fragcache.Key(m.ID, m.Params.Encode(), style,
		m.Title, strconv.FormatBool(m.ShowTitle), content)
}

// execute runs the module's unit at most once per request and stores its
// output as the module content.
func (h *HTML) execute(ctx context.Context, m *module.Module) error {
	if m.User() || h.opts.Executables == nil {
		return nil
	}

	unit, ok := h.opts.Executables.Resolve(m.Module)
	if !ok {
		return nil
	}

	h.execMu.Lock()
	once, ok := h.exec[m]
	if !ok {
		once = &execOnce{}
		h.exec[m] = once
	}
	h.execMu.Unlock()

	return once.do(func() error {
		ctx, span := h.opts.Tracer.Start(ctx, "docrender.module.execute")
		span.SetAttributes(
			attribute.String("docrender.module", m.Module),
			attribute.Int("docrender.module_id", m.ID),
		)
		defer span.End()

		out, err := unit.Execute(ctx, executable.Input{Module: m, Request: h.req})
		if err != nil {
			span.RecordError(err)
			return errors.FromError(err, "R005").WithDetail(m.Module)
		}

		h.modMu.Lock()
		m.Content = out
		h.modMu.Unlock()
		return nil
	})
}

// execOnce is a sync.Once that remembers the error of its single run.
type execOnce struct {
	once sync.Once
	err  error
}

func (o *execOnce) do(fn func() error) error {
	o.once.Do(func() { o.err = fn() })
	return o.err
}
