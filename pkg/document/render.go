package document

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/docrender/internal/errors"
	"github.com/vango-dev/docrender/pkg/layout"
	"github.com/vango-dev/docrender/pkg/ledger"
	"github.com/vango-dev/docrender/pkg/producer"
	"github.com/vango-dev/docrender/pkg/request"
	"github.com/vango-dev/docrender/pkg/token"
)

// Render runs the parse pass over <tmpl>/<file> and resolves the result.
func (h *HTML) Render(ctx context.Context, tmpl, file string) (string, error) {
	start := time.Now()
	ctx, span := h.opts.Tracer.Start(ctx, "docrender.render")
	span.SetAttributes(
		attribute.String("docrender.template", tmpl),
		attribute.String("docrender.file", file),
		attribute.String("docrender.request_id", h.req.ID),
	)
	defer span.End()

	out, err := h.render(ctx, tmpl, file)
	status := StatusOK
	if err != nil {
		status = StatusError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if h.opts.Metrics != nil {
		h.opts.Metrics.RenderDone(status, time.Since(start))
	}
	return out, err
}

func (h *HTML) render(ctx context.Context, tmpl, file string) (string, error) {
	if h.opts.Templates == nil {
		return "", errors.New("R001").WithDetail("no template engine configured")
	}

	text, err := h.opts.Templates.Parse(ctx, tmpl, file, h, layout.Data{
		Title:    h.Title(),
		Base:     h.Base(),
		Language: h.Language(),
		Request:  h.req,
	})
	if err != nil {
		return "", err
	}

	return h.Resolve(ctx, text)
}

// maxResolveRounds bounds how often producers may register further
// fragments while resolving.
const maxResolveRounds = 8

// Resolve produces a fragment for every registered entry and substitutes it
// for every occurrence of the entry's token in text. The ledger is consumed:
// resolving again without new registrations returns text unchanged.
//
// Content producers run concurrently, bounded by Options.Concurrency; head
// producers run after all of them. Failing or unknown entries substitute an
// empty string. Entries registered by producers are resolved in a further
// round, and any token issued during the resolve that is still present at
// the end is removed.
//
// Resolve returns when ctx is done even if a producer ignores it.
func (h *HTML) Resolve(ctx context.Context, text string) (string, error) {
	ctx = request.WithRequest(context.WithValue(ctx, ctxKey{}, h), h.req)

	issued := make(map[string]bool)
	for round := 0; ; round++ {
		entries := h.ledger.Take()
		if len(entries) == 0 {
			break
		}
		for _, e := range entries {
			issued[e.Token] = true
		}
		if round == maxResolveRounds {
			h.logger.WarnContext(ctx, "fragments still registering, dropping them",
				"rounds", round, "pending", len(entries))
			break
		}

		var err error
		if text, err = h.resolveRound(ctx, text, entries); err != nil {
			return "", err
		}
	}
	return h.dropIssued(ctx, text, issued), nil
}

func (h *HTML) resolveRound(ctx context.Context, text string, entries []ledger.Entry) (string, error) {
	results := make([]string, len(entries))
	phases := map[producer.Phase][]int{}
	var order []producer.Phase

	// The first component in template order wins, however the
	// producers are scheduled.
	for _, e := range entries {
		if e.Kind == token.KindComponent {
			h.claimComponent(h.componentName(e.Name))
			break
		}
	}

	for i, e := range entries {
		_, phase, ok := h.producers.Lookup(e.Kind)
		if !ok {
			h.logger.WarnContext(ctx, "unknown fragment kind",
				"kind", string(e.Kind), "name", e.Name,
				"error", errors.New("R004").WithDetail(e.Token))
			h.fragmentDone(e.Kind, StatusUnknown)
			continue
		}
		if _, seen := phases[phase]; !seen {
			order = append(order, phase)
		}
		phases[phase] = append(phases[phase], i)
	}
	slices.Sort(order)

	for _, phase := range order {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		// Each producer owns results[i]. On cancellation the results are
		// abandoned unread, so late producers cannot race with the caller.
		done := make(chan struct{})
		go func() {
			defer close(done)
			g := new(errgroup.Group)
			g.SetLimit(h.opts.Concurrency)
			for _, i := range phases[phase] {
				e := entries[i]
				g.Go(func() error {
					if ctx.Err() != nil {
						return nil
					}
					results[i] = h.produce(ctx, e)
					return nil
				})
			}
			_ = g.Wait()
		}()

		select {
		case <-done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	pairs := make([]string, 0, 2*len(entries))
	for i, e := range entries {
		pairs = append(pairs, e.Token, results[i])
	}
	return strings.NewReplacer(pairs...).Replace(text), nil
}

// dropIssued removes tokens handed out during the resolve that no round
// replaced. Token-shaped text the document never issued is kept.
func (h *HTML) dropIssued(ctx context.Context, text string, issued map[string]bool) string {
	var pairs, left []string
	for _, tok := range token.Scan(text) {
		if issued[tok] {
			pairs = append(pairs, tok, "")
		} else {
			left = append(left, tok)
		}
	}
	if len(left) > 0 {
		h.logger.DebugContext(ctx, "token-shaped text left after resolve", "tokens", left)
	}
	if len(pairs) == 0 {
		return text
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// produce runs one entry's producer and absorbs its failure.
func (h *HTML) produce(ctx context.Context, e ledger.Entry) string {
	fn, _, ok := h.producers.Lookup(e.Kind)
	if !ok {
		return ""
	}

	ctx, span := h.opts.Tracer.Start(ctx, "docrender.fragment")
	span.SetAttributes(
		attribute.String("docrender.kind", string(e.Kind)),
		attribute.String("docrender.name", e.Name),
	)
	defer span.End()

	out, err := fn(ctx, e.Name, e.Params)
	switch {
	case err != nil:
		span.RecordError(err)
		h.logger.WarnContext(ctx, "fragment failed",
			"kind", string(e.Kind), "name", e.Name, "error", err)
		h.fragmentDone(e.Kind, StatusError)
		return ""
	case out == "":
		h.fragmentDone(e.Kind, StatusEmpty)
	default:
		h.fragmentDone(e.Kind, StatusOK)
	}
	return out
}

func (h *HTML) fragmentDone(kind token.Kind, status string) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.FragmentDone(string(kind), status)
	}
}
