package document

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/vango-dev/docrender/internal/errors"
	"github.com/vango-dev/docrender/pkg/component"
	"github.com/vango-dev/docrender/pkg/executable"
	"github.com/vango-dev/docrender/pkg/fragcache"
	"github.com/vango-dev/docrender/pkg/layout"
	"github.com/vango-dev/docrender/pkg/module"
	"github.com/vango-dev/docrender/pkg/request"
	"github.com/vango-dev/docrender/pkg/token"
)

func seedModules() []*module.Module {
	return []*module.Module{
		{ID: 1, Title: "A", Module: "custom", Position: "left", Content: "<p>A</p>", Ordering: 1, Published: true, Style: "none"},
		{ID: 2, Title: "B", Module: "mod_latest", Position: "left", Ordering: 2, Published: true, Style: "none"},
		{ID: 3, Title: "Menu", Module: "mod_mainmenu", Position: "right", Content: "<nav/>", Published: true, ShowTitle: true},
		{ID: 4, Title: "Secret", Module: "custom", Position: "left", Content: "secret", Access: 2, Published: true, Style: "none"},
		{ID: 5, Title: "Hidden", Module: "custom", Position: "left", Content: "hidden", Published: false, Style: "none"},
	}
}

type fixture struct {
	opts  Options
	runs  atomic.Int32
	cache *fragcache.MemoryCache
}

func newFixture(t *testing.T, templates fstest.MapFS) *fixture {
	t.Helper()
	f := &fixture{}
	f.cache = fragcache.NewMemoryCache(fragcache.WithCleanupInterval(0))
	t.Cleanup(func() { _ = f.cache.Close() })

	comps := component.NewRegistry()
	comps.Register("com_content", func(ctx context.Context, r *request.Request) (string, error) {
		if h := FromContext(ctx); h != nil {
			h.SetTitle("Article")
			h.AddScript("/article.js", "")
		}
		return "<article>" + r.Task + "</article>", nil
	})
	comps.Register("com_broken", func(context.Context, *request.Request) (string, error) {
		return "", errors.New("db gone")
	})

	f.opts = Options{
		Store:     module.NewMemoryStore(seedModules()...),
		Templates: layout.New(templates),
		Executables: executable.Funcs{
			"mod_latest": func(_ context.Context, in executable.Input) (string, error) {
				f.runs.Add(1)
				return "<ul>" + in.Module.Params.String("count", "5") + "</ul>", nil
			},
			"mod_mainmenu": func(context.Context, executable.Input) (string, error) {
				return "", errors.New("menu table missing")
			},
		},
		Components: &component.Dispatcher{Registry: comps, Authorizer: component.AccessMap{"admin": 2}},
		Cache:      f.cache,
	}
	return f
}

func render(t *testing.T, opts Options, req *request.Request, tmpl string) string {
	t.Helper()
	h, err := NewHTML(context.Background(), opts, req)
	require.NoError(t, err)
	out, err := h.Render(context.Background(), tmpl, "index.html")
	require.NoError(t, err)
	return out
}

func page(body string) fstest.MapFS {
	return fstest.MapFS{"site/index.html": {Data: []byte(body)}}
}

func TestRenderSubstitutesEveryOccurrence(t *testing.T) {
	f := newFixture(t, page(`{{module "custom"}}|{{module "custom"}}|{{module "Custom"}}`))
	out := render(t, f.opts, &request.Request{}, "site")

	assert.Equal(t, "<p>A</p>|<p>A</p>|<p>A</p>", out)
}

func TestRegisterIsDeterministic(t *testing.T) {
	f := newFixture(t, page(``))
	h, err := NewHTML(context.Background(), f.opts, &request.Request{})
	require.NoError(t, err)

	a := h.Register("module", "banner", nil)
	b := h.Register("MODULE", "Banner", map[string]string{"style": "xhtml"})
	assert.Equal(t, a, b)
	assert.Equal(t, token.Encode(token.KindModule, "banner"), a)
	assert.Equal(t, 1, h.Ledger().Len())
}

func TestModulesKeepStoredOrder(t *testing.T) {
	f := newFixture(t, page(`[{{modules "left"}}]`))
	f.opts.Concurrency = 1

	for i := 0; i < 5; i++ {
		out := render(t, f.opts, &request.Request{}, "site")
		assert.Equal(t, "[<p>A</p><ul>5</ul>]", out)
	}
}

func TestModulesOrderUnderConcurrency(t *testing.T) {
	f := newFixture(t, page(`{{head}}[{{modules "left"}}]{{modules "right"}}{{component}}{{module "custom"}}`))
	f.opts.Concurrency = 16

	var wg sync.WaitGroup
	outs := make([]string, 16)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := NewHTML(context.Background(), f.opts, &request.Request{Option: "com_content"})
			if err != nil {
				return
			}
			outs[i], _ = h.Render(context.Background(), "site", "index.html")
		}(i)
	}
	wg.Wait()

	for _, out := range outs {
		if diff := cmp.Diff(outs[0], out); diff != "" {
			t.Fatalf("renders differ (-first +other):\n%s", diff)
		}
		assert.Contains(t, out, "[<p>A</p><ul>5</ul>]")
	}
}

func TestEmptyPositionIsEmpty(t *testing.T) {
	f := newFixture(t, page(`<x>{{modules "footer"}}</x>`))
	assert.Equal(t, "<x></x>", render(t, f.opts, &request.Request{}, "site"))
}

func TestMissingModuleTwiceLeavesNoToken(t *testing.T) {
	f := newFixture(t, page(`a{{module "banner"}}b{{module "banner"}}c`))
	h, err := NewHTML(context.Background(), f.opts, &request.Request{})
	require.NoError(t, err)

	out, err := h.Render(context.Background(), "site", "index.html")
	require.NoError(t, err)
	assert.Equal(t, "abc", out)
	assert.NotContains(t, out, token.Encode(token.KindModule, "banner"))
	assert.Empty(t, token.Scan(out))
}

func TestResolveIsIdempotent(t *testing.T) {
	f := newFixture(t, page(`{{module "custom"}}`))
	h, err := NewHTML(context.Background(), f.opts, &request.Request{})
	require.NoError(t, err)

	out, err := h.Render(context.Background(), "site", "index.html")
	require.NoError(t, err)

	again, err := h.Resolve(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestUnknownKindRendersEmpty(t *testing.T) {
	f := newFixture(t, page(`[{{include "banner" "top"}}{{include "" "x"}}]`))
	assert.Equal(t, "[]", render(t, f.opts, &request.Request{}, "site"))
}

func TestAccessFilterAppliesToModules(t *testing.T) {
	f := newFixture(t, page(`{{modules "left"}}`))

	public := render(t, f.opts, &request.Request{}, "site")
	assert.NotContains(t, public, "secret")
	assert.NotContains(t, public, "hidden")

	special := render(t, f.opts, &request.Request{AccessLevel: 2}, "site")
	assert.Contains(t, special, "secret")
	assert.NotContains(t, special, "hidden")
}

func TestOverridesFanOutAtRegistration(t *testing.T) {
	f := newFixture(t, page(`{{modules "left" "style" "xhtml" "count" "3"}}`))
	h, err := NewHTML(context.Background(), f.opts, &request.Request{})
	require.NoError(t, err)

	out, err := h.Render(context.Background(), "site", "index.html")
	require.NoError(t, err)

	assert.Equal(t,
		`<div class="moduletable"><p>A</p></div><div class="moduletable"><ul>3</ul></div>`, out)
	for _, m := range h.GetModules("left") {
		assert.Equal(t, "xhtml", m.Style)
	}

	// The store's descriptors are untouched.
	fresh, err := NewHTML(context.Background(), f.opts, &request.Request{})
	require.NoError(t, err)
	assert.Equal(t, "none", fresh.GetModule("latest").Style)
}

func TestSystemModuleExecutesOncePerRequest(t *testing.T) {
	f := newFixture(t, page(`{{modules "left"}}{{module "latest"}}{{module "latest" "style" "table"}}`))
	out := render(t, f.opts, &request.Request{}, "site")

	assert.Equal(t, int32(1), f.runs.Load())
	assert.Contains(t, out, "<ul>5</ul>")
}

func TestFailingUnitRendersEmpty(t *testing.T) {
	f := newFixture(t, page(`[{{modules "right"}}][{{module "mainmenu"}}]`))
	assert.Equal(t, "[][]", render(t, f.opts, &request.Request{}, "site"))
}

func TestCacheSkipsExecutionOnHit(t *testing.T) {
	f := newFixture(t, page(`{{module "latest" "cache" "1"}}`))
	f.opts.CachingEnabled = true

	first := render(t, f.opts, &request.Request{}, "site")
	second := render(t, f.opts, &request.Request{}, "site")

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.runs.Load())
	assert.Equal(t, 1, f.cache.Len())
}

func TestCacheRequiresGlobalSwitch(t *testing.T) {
	f := newFixture(t, page(`{{module "latest" "cache" "1"}}`))

	render(t, f.opts, &request.Request{}, "site")
	render(t, f.opts, &request.Request{}, "site")

	assert.Equal(t, int32(2), f.runs.Load())
	assert.Equal(t, 0, f.cache.Len())
}

func TestCacheKeyIncludesParams(t *testing.T) {
	f := newFixture(t, page(`{{module "latest" "cache" "1" "count" "2"}}`))
	f.opts.CachingEnabled = true
	render(t, f.opts, &request.Request{}, "site")

	f.opts.Templates = layout.New(page(`{{module "latest" "cache" "1" "count" "9"}}`))
	out := render(t, f.opts, &request.Request{}, "site")

	assert.Equal(t, "<ul>9</ul>", out)
	assert.Equal(t, int32(2), f.runs.Load())
}

func TestCacheKeyIncludesTitleOverrides(t *testing.T) {
	f := newFixture(t, page(`{{module "latest" "cache" "1" "style" "xhtml" "showtitle" "1" "title" "First"}}`))
	f.opts.CachingEnabled = true
	first := render(t, f.opts, &request.Request{}, "site")
	assert.Equal(t, `<div class="moduletable"><h3>First</h3><ul>5</ul></div>`, first)

	f.opts.Templates = layout.New(page(`{{module "latest" "cache" "1" "style" "xhtml" "showtitle" "1" "title" "Second"}}`))
	assert.Equal(t, `<div class="moduletable"><h3>Second</h3><ul>5</ul></div>`, render(t, f.opts, &request.Request{}, "site"))

	f.opts.Templates = layout.New(page(`{{module "latest" "cache" "1" "style" "xhtml" "showtitle" "0" "title" "Second"}}`))
	assert.Equal(t, `<div class="moduletable"><ul>5</ul></div>`, render(t, f.opts, &request.Request{}, "site"))

	assert.Equal(t, int32(3), f.runs.Load())
	assert.Equal(t, 3, f.cache.Len())
}

func TestCacheKeyIncludesStoredContent(t *testing.T) {
	f := newFixture(t, page(`{{module "custom" "cache" "1"}}`))
	f.opts.CachingEnabled = true
	assert.Equal(t, "<p>A</p>", render(t, f.opts, &request.Request{}, "site"))

	mods := seedModules()
	mods[0].Content = "<p>A, edited</p>"
	f.opts.Store = module.NewMemoryStore(mods...)
	assert.Equal(t, "<p>A, edited</p>", render(t, f.opts, &request.Request{}, "site"))
	assert.Equal(t, 2, f.cache.Len())
}

func TestComponentMutatesHeadBeforeHeadResolves(t *testing.T) {
	f := newFixture(t, page(`<head>{{head}}</head>{{component}}`))
	out := render(t, f.opts, &request.Request{Option: "com_content", Task: "view", Message: "Saved"}, "site")

	assert.Contains(t, out, "<title>Article</title>")
	assert.Contains(t, out, `<script type="text/javascript" src="/article.js"></script>`)
	assert.Contains(t, out, "<meta name=\"Generator\" content=\"docrender\" />")
	assert.True(t, strings.HasSuffix(out, "\n<div class=\"message\">Saved</div><article>view</article>"))
}

func TestOnlyOneComponentPerRequest(t *testing.T) {
	f := newFixture(t, page(`{{component}}|{{include "component" "com_broken"}}`))
	out := render(t, f.opts, &request.Request{Option: "com_content", Task: "x"}, "site")
	assert.Equal(t, "<article>x</article>|", out)
}

func TestComponentNotAuthorized(t *testing.T) {
	f := newFixture(t, page(`{{component}}`))
	out := render(t, f.opts, &request.Request{Option: "com_admin"}, "site")
	assert.Equal(t, component.NotAuthorized, out)
}

func TestComponentFailureRendersEmpty(t *testing.T) {
	f := newFixture(t, page(`[{{component}}]`))
	assert.Equal(t, "[]", render(t, f.opts, &request.Request{Option: "com_broken"}, "site"))
	assert.Equal(t, "[]", render(t, f.opts, &request.Request{Option: "com_nothing"}, "site"))
}

func TestCountModulesInTemplate(t *testing.T) {
	f := newFixture(t, page(`{{countModules "left"}}/{{countModules "left + right"}}/{{if countModules "footer"}}x{{end}}`))
	assert.Equal(t, "2/3/", render(t, f.opts, &request.Request{}, "site"))
}

func TestRenderMissingTemplate(t *testing.T) {
	f := newFixture(t, fstest.MapFS{})
	h, err := NewHTML(context.Background(), f.opts, &request.Request{})
	require.NoError(t, err)

	_, err = h.Render(context.Background(), "site", "index.html")
	assert.True(t, derrors.HasCode(err, "R001"))
}

type failingStore struct{}

func (failingStore) ListPublished(context.Context, module.Filter) ([]*module.Module, error) {
	return nil, errors.New("connection refused")
}

func TestNewHTMLStoreFailure(t *testing.T) {
	_, err := NewHTML(context.Background(), Options{Store: failingStore{}}, nil)
	assert.True(t, derrors.HasCode(err, "S001"))
}

func TestRenderCanceled(t *testing.T) {
	f := newFixture(t, page(`{{module "custom"}}`))
	h, err := NewHTML(context.Background(), f.opts, &request.Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Render(ctx, "site", "index.html")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderDeadlineBoundsStuckProducer(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	f := newFixture(t, page(`[{{module "stuck"}}|{{module "custom"}}]`))
	f.opts.Store = module.NewMemoryStore(append(seedModules(),
		&module.Module{ID: 9, Module: "mod_stuck", Position: "top", Published: true, Style: "none"})...)
	f.opts.Executables = executable.Funcs{
		"mod_stuck": func(context.Context, executable.Input) (string, error) {
			<-release
			return "late", nil
		},
	}

	h, err := NewHTML(context.Background(), f.opts, &request.Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = h.Render(ctx, "site", "index.html")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestProducerRegistrationsResolve(t *testing.T) {
	f := newFixture(t, page(`<main>{{component}}</main>`))
	comps := component.NewRegistry()
	comps.Register("com_nested", func(ctx context.Context, _ *request.Request) (string, error) {
		tok := FromContext(ctx).Register(token.KindModule, "custom", nil)
		return "<x>" + tok + "</x>", nil
	})
	f.opts.Components = &component.Dispatcher{Registry: comps}

	out := render(t, f.opts, &request.Request{Option: "com_nested"}, "site")
	assert.Equal(t, "<main><x><p>A</p></x></main>", out)
}

func TestSelfRegisteringProducerLeavesNoToken(t *testing.T) {
	f := newFixture(t, page(`{{module "loop"}}`))
	f.opts.Store = module.NewMemoryStore(
		&module.Module{ID: 1, Module: "mod_loop", Position: "top", Published: true, Style: "none"})
	f.opts.Executables = executable.Funcs{
		"mod_loop": func(ctx context.Context, _ executable.Input) (string, error) {
			return "[" + FromContext(ctx).Register(token.KindModule, "loop", nil) + "]", nil
		},
	}

	out := render(t, f.opts, &request.Request{}, "site")
	want := strings.Repeat("[", maxResolveRounds) + strings.Repeat("]", maxResolveRounds)
	assert.Equal(t, want, out)
	assert.Empty(t, token.Scan(out))
}

func TestUnissuedTokenTextIsKept(t *testing.T) {
	f := newFixture(t, page(`{MODULE_LITERAL}{{module "custom"}}`))
	assert.Equal(t, "{MODULE_LITERAL}<p>A</p>", render(t, f.opts, &request.Request{}, "site"))
}

type recorder struct {
	mu        sync.Mutex
	renders   []string
	fragments map[string]int
}

func (r *recorder) RenderDone(status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, status)
}

func (r *recorder) FragmentDone(kind, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fragments[kind+"/"+status]++
}

func TestMetricsRecorded(t *testing.T) {
	f := newFixture(t, page(`{{head}}{{module "custom"}}{{module "banner"}}{{include "odd" "x"}}{{modules "right"}}`))
	rec := &recorder{fragments: map[string]int{}}
	f.opts.Metrics = rec

	render(t, f.opts, &request.Request{}, "site")

	assert.Equal(t, []string{StatusOK}, rec.renders)
	assert.Equal(t, map[string]int{
		"head/ok":       1,
		"module/ok":     1,
		"module/empty":  1,
		"odd/unknown":   1,
		"modules/empty": 1,
	}, rec.fragments)
}

func TestGeneratorAndBaseDefaults(t *testing.T) {
	f := newFixture(t, page(`{{head}}`))
	f.opts.Generator = "Widget 1.0"
	f.opts.Base = "https://example.test"

	out := render(t, f.opts, &request.Request{}, "site")
	assert.Equal(t,
		"\t<title></title>\n\t<base href=https://example.test />\n\t<meta name=\"Generator\" content=\"Widget 1.0\" />\n",
		out)
}
