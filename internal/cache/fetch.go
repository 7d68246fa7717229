package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eugener/silverbook/internal/telemetry"
)

var tracer = telemetry.Tracer("github.com/eugener/silverbook/internal/cache")

// FetchFunc loads the authoritative value for a key.
type FetchFunc func(ctx context.Context) (any, error)

// GetOrFetch returns the cached value for key, calling fetch on a miss.
//
// On a hit the cached value is returned immediately. If the entry is older
// than the stale threshold, one background refresh is started; its failure is
// logged and leaves the entry in place.
//
// On a miss fetch runs inline and its result is stored with ttl. Concurrent
// misses on the same key share a single fetch. Fetch errors are returned
// unchanged and nothing is stored.
func (s *Store) GetOrFetch(ctx context.Context, key string, fetch FetchFunc, ttl time.Duration) (any, error) {
	if e, ok := s.lookup(key); ok {
		if s.metrics != nil {
			s.metrics.CacheHits.Inc()
		}
		if s.aging(e) {
			s.refresh(ctx, key, fetch, ttl)
		}
		return e.data, nil
	}
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}
	return s.load(ctx, key, fetch, ttl)
}

// Fetch is the typed form of GetOrFetch.
func Fetch[T any](ctx context.Context, s *Store, key string, fetch func(context.Context) (T, error), ttl time.Duration) (T, error) {
	var zero T
	v, err := s.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}, ttl)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: key %q holds %T, want %T", key, v, zero)
	}
	return t, nil
}

// load runs fetch once per key at a time and writes the result back unless
// the key was invalidated while the fetch was in flight.
//
// The shared fetch is detached from the caller that started it and bounded
// by the refresh timeout, so one caller giving up does not fail the others
// waiting on the same key. Each caller still returns as soon as its own
// context is done.
func (s *Store) load(ctx context.Context, key string, fetch FetchFunc, ttl time.Duration) (any, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		f := s.begin(key)
		defer s.end(key, f)

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
		defer cancel()
		fctx, span := tracer.Start(fctx, "cache.fetch",
			trace.WithAttributes(attribute.String("cache.key", key)),
		)
		defer span.End()

		start := s.now()
		v, err := fetch(fctx)
		if s.metrics != nil {
			s.metrics.CacheFetchDuration.Observe(s.now().Sub(start).Seconds())
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch failed")
			return nil, err
		}

		s.mu.Lock()
		if f.dirty {
			span.SetAttributes(attribute.Bool("cache.discarded", true))
		} else {
			s.set(key, v, ttl)
		}
		s.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// refresh starts a background load for key unless one is already running.
func (s *Store) refresh(ctx context.Context, key string, fetch FetchFunc, ttl time.Duration) {
	s.mu.Lock()
	if _, busy := s.refreshing[key]; busy {
		s.mu.Unlock()
		return
	}
	s.refreshing[key] = struct{}{}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.CacheStaleRefreshes.Inc()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.refreshing, key)
			s.mu.Unlock()
		}()

		ctx := context.WithoutCancel(ctx)
		if _, err := s.load(ctx, key, fetch, ttl); err != nil {
			if s.metrics != nil {
				s.metrics.CacheRefreshFailures.Inc()
			}
			slog.LogAttrs(ctx, slog.LevelWarn, "background cache refresh failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (s *Store) begin(key string) *flight {
	f := &flight{}
	s.mu.Lock()
	s.flights[key] = f
	s.mu.Unlock()
	return f
}

// end drops f from the flight table unless an invalidation already
// replaced it with a newer fetch for the same key.
func (s *Store) end(key string, f *flight) {
	s.mu.Lock()
	if s.flights[key] == f {
		delete(s.flights, key)
	}
	s.mu.Unlock()
}
