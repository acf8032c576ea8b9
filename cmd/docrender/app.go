package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"github.com/vango-dev/docrender/internal/config"
	derrors "github.com/vango-dev/docrender/internal/errors"
	"github.com/vango-dev/docrender/internal/metrics"
	"github.com/vango-dev/docrender/pkg/chrome"
	"github.com/vango-dev/docrender/pkg/component"
	"github.com/vango-dev/docrender/pkg/document"
	"github.com/vango-dev/docrender/pkg/executable"
	"github.com/vango-dev/docrender/pkg/fragcache"
	"github.com/vango-dev/docrender/pkg/layout"
	"github.com/vango-dev/docrender/pkg/module"
	"github.com/vango-dev/docrender/pkg/request"
)

// app holds everything built from one configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	opts    document.Options

	closers []func() error
}

func newApp(cfg *config.Config, logger *slog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(metrics.WithNamespace(cfg.Metrics.Namespace))
	}

	store, err := a.store()
	if err != nil {
		return nil, err
	}
	cache, err := a.cache()
	if err != nil {
		return nil, err
	}
	components, err := a.components()
	if err != nil {
		return nil, err
	}

	a.opts = document.Options{
		Store:          store,
		Templates:      layout.New(os.DirFS(cfg.Templates.Dir), layout.WithFallback(cfg.Templates.Fallback)),
		Executables:    a.units(),
		Components:     components,
		Chrome:         chrome.New(cfg.Document.DefaultStyle),
		Cache:          cache,
		CachingEnabled: cfg.Cache.Enabled,
		CacheTTL:       cfg.Cache.TTL,
		Concurrency:    cfg.Document.Concurrency,
		Generator:      cfg.Document.Generator,
		Base:           cfg.Document.Base,
		Language:       cfg.Document.Language,
		Logger:         logger,
	}
	if a.metrics != nil {
		a.opts.Metrics = a.metrics
	}
	return a, nil
}

// Close releases the store connection and the cache, newest first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) store() (module.Store, error) {
	m := a.cfg.Modules
	switch strings.ToLower(m.Store) {
	case "yaml":
		return module.LoadYAML(m.Seed)
	case "sql":
		db, err := sql.Open(m.Driver, m.DSN)
		if err != nil {
			return nil, derrors.New("S001").WithDetail(m.Driver).Wrap(err)
		}
		a.closers = append(a.closers, db.Close)

		dialect, ok := module.ParseDialect(m.Dialect)
		if !ok {
			dialect, _ = module.ParseDialect(m.Driver)
		}
		return module.NewSQLStore(db,
			module.WithSQLDialect(dialect),
			module.WithSQLTablePrefix(m.TablePrefix),
		), nil
	default:
		return module.NewMemoryStore(), nil
	}
}

func (a *app) cache() (fragcache.Cache, error) {
	c := a.cfg.Cache
	if !c.Enabled {
		return nil, nil
	}

	var cache fragcache.Cache
	switch strings.ToLower(c.Backend) {
	case "s3":
		cache = fragcache.NewS3CacheFromOptions(fragcache.S3Options{
			Bucket:    c.S3.Bucket,
			Prefix:    c.S3.Prefix,
			Region:    c.S3.Region,
			Endpoint:  c.S3.Endpoint,
			PathStyle: c.S3.PathStyle,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
		}).WithDefaultTTL(c.TTL)
	default:
		mem := fragcache.NewMemoryCache(
			fragcache.WithDefaultTTL(c.TTL),
			fragcache.WithCleanupInterval(c.CleanupInterval),
		)
		a.closers = append(a.closers, mem.Close)
		cache = mem
	}

	if a.metrics != nil {
		cache = fragcache.Instrument(cache, a.metrics)
	}
	return cache, nil
}

func (a *app) units() executable.Resolver {
	if a.cfg.Modules.Units == "" {
		return nil
	}
	return executable.NewDir(os.DirFS(a.cfg.Modules.Units), nil)
}

// components registers one handler per com_<name>.tmpl file.
func (a *app) components() (*component.Dispatcher, error) {
	dir := a.cfg.Components.Dir
	if dir == "" {
		return nil, nil
	}

	fsys := os.DirFS(dir)
	files, err := fs.Glob(fsys, component.Prefix+"*"+executable.Ext)
	if err != nil {
		return nil, derrors.New("C100").WithDetail("components.dir").Wrap(err)
	}
	units := executable.NewDir(fsys, nil)

	reg := component.NewRegistry()
	for _, file := range files {
		name := strings.TrimSuffix(file, executable.Ext)
		unit, ok := units.Resolve(name)
		if !ok {
			continue
		}
		reg.Register(name, func(ctx context.Context, r *request.Request) (string, error) {
			return unit.Execute(ctx, executable.Input{Request: r})
		})
	}
	a.logger.Debug("components loaded", "dir", dir, "count", len(files))

	d := &component.Dispatcher{Registry: reg}
	if len(a.cfg.Components.Access) > 0 {
		d.Authorizer = component.AccessMap(a.cfg.Components.Access)
	}
	return d, nil
}
