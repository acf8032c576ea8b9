// Package server hosts the document renderer over HTTP.
//
// Every GET outside the reserved routes renders one page. The query string
// selects what the page shows:
//
//	option  component to render in the main area (com_content)
//	task    passed to the component
//	Itemid  active menu item; filters module assignment
//	msg     notice shown above the component
//	tmpl    page template (defaults to Config.Template)
//	file    page file inside the template (defaults to Config.File)
//	lang    page language
//
// Example:
//
//	srv := server.New(server.Config{
//	    Options:  opts,
//	    Template: "rhuk",
//	    Metrics:  metrics.New(),
//	})
//	http.ListenAndServe(":8080", srv)
package server

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/docrender/internal/errors"
	"github.com/vango-dev/docrender/internal/metrics"
	"github.com/vango-dev/docrender/pkg/document"
	"github.com/vango-dev/docrender/pkg/request"
)

const tracerName = "github.com/vango-dev/docrender/pkg/server"

// Config configures the HTTP host.
type Config struct {
	// Options is shared by every page render.
	Options document.Options

	// Template and File are rendered when the query names none.
	// Defaults: "_system" and "index.html".
	Template string
	File     string

	// RenderTimeout bounds one page render. Zero means no limit beyond the
	// client connection.
	RenderTimeout time.Duration

	// Compress enables gzip/deflate responses.
	Compress bool

	// Metrics records HTTP and render outcomes and serves MetricsPath.
	Metrics     *metrics.Metrics
	MetricsPath string

	// AccessFunc maps a request to the viewer's access level.
	// Default: every viewer is public (0).
	AccessFunc func(r *http.Request) int

	// Prepare runs on each document before its template is parsed, e.g. to
	// set the page title.
	Prepare func(h *document.HTML, r *http.Request)

	// Logger defaults to Options.Logger, then slog.Default().
	Logger *slog.Logger
}

// Server is an http.Handler that renders pages.
type Server struct {
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
	router chi.Router
}

// New builds the router.
func New(cfg Config) *Server {
	if cfg.Template == "" {
		cfg.Template = "_system"
	}
	if cfg.File == "" {
		cfg.File = "index.html"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Logger == nil {
		cfg.Logger = cfg.Options.Logger
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Options.Logger == nil {
		cfg.Options.Logger = cfg.Logger
	}
	if cfg.Metrics != nil && cfg.Options.Metrics == nil {
		cfg.Options.Metrics = cfg.Metrics
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		tracer: otel.Tracer(tracerName),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	if cfg.Compress {
		r.Use(middleware.Compress(5, "text/html"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, cfg.MetricsPath, cfg.Metrics.Handler())
	}
	r.Get("/", s.page)
	r.Get("/*", s.page)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// observe wraps each request in a span and counts responses.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), "docrender.http "+r.Method,
			trace.WithSpanKind(trace.SpanKindServer))
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
		)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.HTTPDone(status)
		}
	})
}

var (
	validTemplate = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
	validFile     = regexp.MustCompile(`^[A-Za-z0-9_\-]+(\.[A-Za-z0-9]+)?$`)
)

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.cfg.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RenderTimeout)
		defer cancel()
	}

	req := s.request(r)
	logger := s.logger.With("request_id", req.ID)

	tmpl, file := s.cfg.Template, s.cfg.File
	if v := r.URL.Query().Get("tmpl"); v != "" && validTemplate.MatchString(v) {
		tmpl = v
	}
	if v := r.URL.Query().Get("file"); v != "" && validFile.MatchString(v) {
		file = v
	}

	h, err := document.NewHTML(ctx, s.cfg.Options, req)
	if err != nil {
		logger.ErrorContext(ctx, "loading modules failed", "error", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	if s.cfg.Prepare != nil {
		s.cfg.Prepare(h, r)
	}

	out, err := h.Render(ctx, tmpl, file)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.HasCode(err, "R001"):
			status = http.StatusNotFound
		case ctx.Err() != nil:
			status = http.StatusGatewayTimeout
		}
		logger.ErrorContext(ctx, "render failed",
			"template", tmpl, "file", file, "status", status, "error", err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", h.MimeEncoding()+"; charset="+h.Charset())
	w.Header().Set("X-Request-Id", req.ID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out)); err != nil {
		logger.DebugContext(ctx, "client went away", "error", err)
		return
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// request builds the render request from the HTTP request.
func (s *Server) request(r *http.Request) *request.Request {
	q := r.URL.Query()

	id := middleware.GetReqID(r.Context())
	if id == "" {
		id = uuid.NewString()
	}

	req := &request.Request{
		ID:       id,
		Client:   request.ClientSite,
		Option:   q.Get("option"),
		Task:     q.Get("task"),
		Message:  q.Get("msg"),
		Language: q.Get("lang"),
		Query:    q,
	}
	if s.cfg.AccessFunc != nil {
		req.AccessLevel = s.cfg.AccessFunc(r)
	}
	if v := q.Get("Itemid"); v != "" {
		if id, err := strconv.Atoi(v); err == nil && id >= 0 {
			req.MenuID = id
			req.HasMenu = true
		}
	}
	return req
}
