// Package cache provides the process-local read-through cache that sits in
// front of every backend read.
//
// Entries carry their own TTL and are evicted lazily when a read finds them
// expired. GetOrFetch serves aging entries immediately while revalidating
// them in the background, and collapses concurrent misses on a key into a
// single backend call. Keys are opaque; the key namespace and the rules for
// which writes invalidate which keys live in package cachekey.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
	"golang.org/x/sync/singleflight"

	"github.com/eugener/silverbook/internal/telemetry"
)

const (
	// DefaultTTL applies to entries stored without an explicit TTL.
	DefaultTTL = 2 * time.Minute
	// DefaultStaleFraction is the share of an entry's TTL after which a hit
	// triggers a background refresh.
	DefaultStaleFraction = 0.75
	// DefaultRefreshTimeout bounds a single background refresh.
	DefaultRefreshTimeout = 30 * time.Second
	// DefaultMaxSize caps the number of entries.
	DefaultMaxSize = 10_000
)

// Options configures a Store. Zero values select the defaults above.
type Options struct {
	DefaultTTL     time.Duration
	StaleFraction  float64
	RefreshTimeout time.Duration
	MaxSize        int
	Now            func() time.Time   // nil = time.Now
	Metrics        *telemetry.Metrics // nil = no metrics
}

// entry wraps a cached value with the time it was stored and its TTL.
// ttl == 0 means the store default.
type entry struct {
	data     any
	storedAt time.Time
	ttl      time.Duration
}

// flight tracks one in-progress fetch for a key. dirty is set when the key is
// invalidated while the fetch runs, so its result is not written back.
type flight struct {
	dirty bool
}

// Store is a keyed TTL cache backed by an otter W-TinyLFU map.
// It is safe for concurrent use.
type Store struct {
	entries        *otter.Cache[string, entry]
	defaultTTL     time.Duration
	staleFraction  float64
	refreshTimeout time.Duration
	now            func() time.Time
	metrics        *telemetry.Metrics

	group singleflight.Group
	wg    sync.WaitGroup // background refreshes

	mu         sync.Mutex // guards flights, refreshing, and serializes invalidation with write-back
	flights    map[string]*flight
	refreshing map[string]struct{}
}

// New creates a Store.
func New(opts Options) (*Store, error) {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.StaleFraction <= 0 || opts.StaleFraction >= 1 {
		opts.StaleFraction = DefaultStaleFraction
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c, err := otter.New(&otter.Options[string, entry]{
		MaximumSize: opts.MaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Store{
		entries:        c,
		defaultTTL:     opts.DefaultTTL,
		staleFraction:  opts.StaleFraction,
		refreshTimeout: opts.RefreshTimeout,
		now:            opts.Now,
		metrics:        opts.Metrics,
		flights:        make(map[string]*flight),
		refreshing:     make(map[string]struct{}),
	}, nil
}

// Get returns the value stored under key, or false if it is absent or has
// outlived its TTL. An expired entry is removed on the way out.
func (s *Store) Get(key string) (any, bool) {
	e, ok := s.lookup(key)
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Set stores v under key, replacing any existing entry. ttl <= 0 selects the
// store default.
func (s *Store) Set(key string, v any, ttl time.Duration) {
	s.mu.Lock()
	s.set(key, v, ttl)
	s.mu.Unlock()
}

// set stores v under key. Callers hold s.mu.
func (s *Store) set(key string, v any, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	s.entries.Set(key, entry{data: v, storedAt: s.now(), ttl: ttl})
}

// Invalidate removes key. Missing keys are ignored.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandon(key)
	s.entries.Invalidate(key)
	s.countInvalidation("exact")
}

// InvalidatePrefix removes every key that starts with prefix. An empty prefix
// matches nothing; use Clear to drop everything.
func (s *Store) InvalidatePrefix(prefix string) {
	if prefix == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.flights {
		if strings.HasPrefix(key, prefix) {
			s.abandon(key)
		}
	}
	var matched []string
	for key := range s.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	for _, key := range matched {
		s.entries.Invalidate(key)
	}
	s.countInvalidation("prefix")
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.flights {
		s.abandon(key)
	}
	s.entries.InvalidateAll()
	s.countInvalidation("all")
}

// Len returns the number of stored entries, expired ones included until
// they are next read.
func (s *Store) Len() int {
	return s.entries.EstimatedSize()
}

// Wait blocks until all background refreshes have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// lookup returns the live entry for key, evicting it if expired.
func (s *Store) lookup(key string) (entry, bool) {
	e, ok := s.entries.GetIfPresent(key)
	if !ok {
		return entry{}, false
	}
	if s.expired(e) {
		s.evictIfExpired(key)
		return entry{}, false
	}
	return e, true
}

// evictIfExpired removes key only if the entry stored now is still expired,
// so a value written after the caller's read survives.
func (s *Store) evictIfExpired(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries.GetIfPresent(key); ok && s.expired(e) {
		s.entries.Invalidate(key)
	}
}

func (s *Store) expired(e entry) bool {
	return s.now().Sub(e.storedAt) > s.ttlOf(e)
}

// abandon marks the in-flight fetch for key so its result is not stored,
// and detaches it from the fetch group so later callers start a fresh
// fetch instead of joining one that read pre-invalidation state. Callers
// hold s.mu.
func (s *Store) abandon(key string) {
	if f, ok := s.flights[key]; ok {
		f.dirty = true
		s.group.Forget(key)
	}
}

func (s *Store) ttlOf(e entry) time.Duration {
	if e.ttl > 0 {
		return e.ttl
	}
	return s.defaultTTL
}

// aging reports whether e is past the stale threshold of its TTL.
func (s *Store) aging(e entry) bool {
	threshold := time.Duration(float64(s.ttlOf(e)) * s.staleFraction)
	return s.now().Sub(e.storedAt) > threshold
}

func (s *Store) countInvalidation(kind string) {
	if s.metrics != nil {
		s.metrics.CacheInvalidations.WithLabelValues(kind).Inc()
	}
}
