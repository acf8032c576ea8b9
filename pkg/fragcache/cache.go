// Package fragcache memoizes rendered module fragments across requests.
//
// The cache is a lookaside: check, compute on miss, store. Bypassing it is
// always safe; a failing backend only costs a recomputation. Two requests
// racing on one key may both compute and store, and the last write wins.
package fragcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"time"

	"github.com/vango-dev/docrender/internal/errors"
)

// Cache is a keyed store for rendered fragments.
type Cache interface {
	// Get returns the fragment stored under key. A missing or expired entry
	// is a miss, not an error.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key. ttl <= 0 means the backend default.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Key derives the cache key for a module render from its identity, its
// canonical parameter encoding, the chrome style and any other inputs the
// rendered fragment depends on (title, stored content).
func Key(moduleID int, params, style string, extra ...string) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(moduleID)))
	for _, part := range append([]string{params, style}, extra...) {
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(len(part))))
		h.Write([]byte{0})
		h.Write([]byte(part))
	}
	return "mod_" + strconv.Itoa(moduleID) + "_" + hex.EncodeToString(h.Sum(nil))[:32]
}

// Lookaside runs renders through a cache.
type Lookaside struct {
	Cache  Cache
	Logger *slog.Logger
}

// Do returns the cached fragment for key or computes and stores it. Backend
// errors are logged and fall through to compute; compute errors are returned
// and nothing is stored.
func (l *Lookaside) Do(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (string, error)) (string, error) {
	if l == nil || l.Cache == nil {
		return compute(ctx)
	}

	v, ok, err := l.Cache.Get(ctx, key)
	switch {
	case err != nil:
		l.logger().WarnContext(ctx, "fragment cache read failed",
			"key", key, "error", errors.FromError(err, "K001"))
	case ok:
		return v, nil
	}

	out, err := compute(ctx)
	if err != nil {
		return "", err
	}

	if err := l.Cache.Set(ctx, key, out, ttl); err != nil {
		l.logger().WarnContext(ctx, "fragment cache write failed",
			"key", key, "error", errors.FromError(err, "K001"))
	}
	return out, nil
}

func (l *Lookaside) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
