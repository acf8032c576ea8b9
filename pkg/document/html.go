package document

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/docrender/internal/errors"
	"github.com/vango-dev/docrender/pkg/chrome"
	"github.com/vango-dev/docrender/pkg/component"
	"github.com/vango-dev/docrender/pkg/executable"
	"github.com/vango-dev/docrender/pkg/fragcache"
	"github.com/vango-dev/docrender/pkg/layout"
	"github.com/vango-dev/docrender/pkg/ledger"
	"github.com/vango-dev/docrender/pkg/module"
	"github.com/vango-dev/docrender/pkg/producer"
	"github.com/vango-dev/docrender/pkg/request"
	"github.com/vango-dev/docrender/pkg/token"
)

const tracerName = "github.com/vango-dev/docrender/pkg/document"

// DefaultGenerator is the Generator meta tag of a new HTML document.
const DefaultGenerator = "docrender"

// Recorder receives render and fragment outcomes.
type Recorder interface {
	RenderDone(status string, d time.Duration)
	FragmentDone(kind, status string)
}

// Fragment and render outcomes reported to a Recorder.
const (
	StatusOK      = "ok"
	StatusEmpty   = "empty"
	StatusError   = "error"
	StatusUnknown = "unknown"
)

// Options holds the collaborators shared by every page render. One Options
// value is built at startup and reused across requests.
type Options struct {
	// Store lists the published modules. Nil means no modules.
	Store module.Store

	// Templates runs the parse pass.
	Templates *layout.Engine

	// Executables resolves system modules to the units that compute their
	// content. Nil means system modules render their stored content.
	Executables executable.Resolver

	// Components renders the main area. Nil means no component.
	Components *component.Dispatcher

	// Chrome wraps module content. Nil means chrome.New(chrome.Table).
	Chrome *chrome.Chrome

	// Cache memoizes module fragments when CachingEnabled is set and the
	// module asks for it with cache=1.
	Cache          fragcache.Cache
	CachingEnabled bool

	// CacheTTL is used for modules without a cache_time parameter.
	CacheTTL time.Duration

	// Concurrency bounds the producers running at once. Default: 8.
	Concurrency int

	// Generator is the default Generator meta tag. Default: "docrender".
	Generator string

	// Base is the default base URL.
	Base string

	// Language is used when the request names no language.
	Language string

	// Logger receives fragment warnings. Default: slog.Default().
	Logger *slog.Logger

	// Metrics receives render outcomes. Optional.
	Metrics Recorder

	// Tracer creates render and fragment spans. Default: the global
	// OpenTelemetry provider.
	Tracer trace.Tracer
}

func (o *Options) defaults() {
	if o.Chrome == nil {
		o.Chrome = chrome.New(chrome.Table)
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.Generator == "" {
		o.Generator = DefaultGenerator
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}
}

// HTML is the document for one page request: the head state, the modules
// visible to the request, and the fragment ledger filled by the parse pass.
type HTML struct {
	*Document

	opts      Options
	req       *request.Request
	logger    *slog.Logger
	ledger    *ledger.Ledger
	producers *producer.Registry
	lookaside *fragcache.Lookaside

	modMu   sync.RWMutex
	modules *module.Set

	execMu sync.Mutex
	exec   map[*module.Module]*execOnce

	compMu   sync.Mutex
	compName string
	compOnce sync.Once
	compOut  string
	compErr  error
}

// NewHTML creates the document for req and loads the modules it may see.
// A store failure is returned; the caller decides whether to render an
// error page.
func NewHTML(ctx context.Context, opts Options, req *request.Request) (*HTML, error) {
	opts.defaults()
	if req == nil {
		req = &request.Request{}
	}

	var mods []*module.Module
	if opts.Store != nil {
		var err error
		mods, err = opts.Store.ListPublished(ctx, req.Filter())
		if err != nil {
			return nil, errors.FromError(err, "S001")
		}
	}

	h := &HTML{
		Document:  New(),
		opts:      opts,
		req:       req,
		logger:    opts.Logger.With("request_id", req.ID),
		ledger:    ledger.New(),
		producers: producer.NewRegistry(),
		modules:   module.NewSet(mods),
		exec:      make(map[*module.Module]*execOnce),
	}
	if opts.Cache != nil {
		h.lookaside = &fragcache.Lookaside{Cache: opts.Cache, Logger: h.logger}
	}

	h.SetMetaData("Generator", opts.Generator, false)
	if opts.Base != "" {
		h.SetBase(opts.Base)
	}
	if req.Language != "" {
		h.SetLanguage(req.Language)
	} else if opts.Language != "" {
		h.SetLanguage(opts.Language)
	}

	h.producers.Register(token.KindComponent, producer.PhaseContent, func(ctx context.Context, name string, _ map[string]string) (string, error) {
		return h.FetchComponent(ctx, name)
	})
	h.producers.Register(token.KindModule, producer.PhaseContent, func(ctx context.Context, name string, _ map[string]string) (string, error) {
		return h.FetchModule(ctx, name, "")
	})
	h.producers.Register(token.KindModules, producer.PhaseContent, func(ctx context.Context, name string, _ map[string]string) (string, error) {
		return h.FetchModules(ctx, name, "")
	})
	h.producers.Register(token.KindHead, producer.PhaseHead, func(context.Context, string, map[string]string) (string, error) {
		return h.FetchHead(), nil
	})

	return h, nil
}

// Request returns the request the document renders.
func (h *HTML) Request() *request.Request {
	return h.req
}

// Producers returns the kind -> producer table. Hosts may register extra
// kinds before rendering.
func (h *HTML) Producers() *producer.Registry {
	return h.producers
}

// Ledger returns the fragments registered so far.
func (h *HTML) Ledger() *ledger.Ledger {
	return h.ledger
}

// GetModule returns the module with the given name, or nil. Duplicate names
// resolve to the lowest ID.
func (h *HTML) GetModule(name string) *module.Module {
	h.modMu.RLock()
	defer h.modMu.RUnlock()
	return h.modules.ByName(token.NormalizeName(name))
}

// GetModules returns the modules at position in stored order.
func (h *HTML) GetModules(position string) []*module.Module {
	h.modMu.RLock()
	defer h.modMu.RUnlock()
	return h.modules.ByPosition(token.NormalizeName(position))
}

// CountModules returns the number of modules at position.
func (h *HTML) CountModules(position string) int {
	h.modMu.RLock()
	defer h.modMu.RUnlock()
	return h.modules.Count(token.NormalizeName(position))
}

// Register records a fragment request and returns its placeholder token.
//
// For the module and modules kinds, params are applied to the matching
// modules immediately, so later lookups see the overrides. Registration
// never fails: an unknown kind or a name that matches nothing still gets a
// token, which resolves to an empty fragment.
func (h *HTML) Register(kind token.Kind, name string, params map[string]string) string {
	kind = token.Normalize(kind)
	name = token.NormalizeName(name)

	if len(params) > 0 {
		switch kind {
		case token.KindModules:
			h.modMu.Lock()
			for _, m := range h.modules.ByPosition(name) {
				m.Apply(params)
			}
			h.modMu.Unlock()
		case token.KindModule:
			h.modMu.Lock()
			if m := h.modules.ByName(name); m != nil {
				m.Apply(params)
			}
			h.modMu.Unlock()
		}
	}

	return h.ledger.Add(kind, name, params).Token
}

type ctxKey struct{}

// FromContext returns the document whose render is calling a producer, so
// components and module units can mutate the head. It returns nil outside a
// render.
func FromContext(ctx context.Context) *HTML {
	h, _ := ctx.Value(ctxKey{}).(*HTML)
	return h
}
