package fragcache

import (
	"context"
	"time"
)

// Cache lookup outcomes reported to a Recorder.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Recorder receives cache lookup outcomes.
type Recorder interface {
	CacheLookup(result string)
}

type instrumented struct {
	Cache
	rec Recorder
}

// Instrument wraps c so every Get is reported to rec.
func Instrument(c Cache, rec Recorder) Cache {
	if rec == nil {
		return c
	}
	return &instrumented{Cache: c, rec: rec}
}

func (i *instrumented) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := i.Cache.Get(ctx, key)
	switch {
	case err != nil:
		i.rec.CacheLookup(ResultError)
	case ok:
		i.rec.CacheLookup(ResultHit)
	default:
		i.rec.CacheLookup(ResultMiss)
	}
	return v, ok, err
}

func (i *instrumented) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return i.Cache.Set(ctx, key, value, ttl)
}
