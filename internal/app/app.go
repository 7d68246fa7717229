// Package app implements the silverbook services. Every read goes through the
// shared cache; every write goes to the backend first and invalidates the
// cache only once the backend has accepted it.
package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/cache"
	"github.com/eugener/silverbook/internal/cachekey"
	"github.com/eugener/silverbook/internal/storage"
)

// Services bundles the domain services over one backend and one cache.
type Services struct {
	Orders   *OrderService
	Stock    *StockService
	Rates    *RateService
	Ledger   *LedgerService
	Expenses *ExpenseService
	Catalog  *CatalogService
	Karigars *KarigarService
	Reports  *ReportService

	base *base
}

// New wires the services over store and c.
func New(store storage.Backend, c *cache.Store) *Services {
	b := &base{store: store, cache: c, now: time.Now}
	rates := &RateService{b}
	return &Services{
		Orders:   &OrderService{base: b, rates: rates},
		Stock:    &StockService{base: b, rates: rates},
		Rates:    rates,
		Ledger:   &LedgerService{b},
		Expenses: &ExpenseService{b},
		Catalog:  &CatalogService{b},
		Karigars: &KarigarService{b},
		Reports:  &ReportService{b},
		base:     b,
	}
}

// Ping checks that the backend is reachable.
func (s *Services) Ping(ctx context.Context) error {
	return s.base.store.Ping(ctx)
}

// ClearCache drops every cached entry.
func (s *Services) ClearCache() {
	s.base.cache.Clear()
}

// base holds what every service shares.
type base struct {
	store storage.Backend
	cache *cache.Store
	now   func() time.Time
}

// read serves key from the cache, loading it with fetch on a miss.
func read[T any](ctx context.Context, b *base, key string, fetch func(context.Context) (T, error)) (T, error) {
	return cache.Fetch(ctx, b.cache, key, fetch, cachekey.TTL(key))
}

// mutate runs write and, only if it succeeds, invalidates what m makes stale.
func (b *base) mutate(ctx context.Context, m cachekey.Mutation, write func(context.Context) error) error {
	if err := write(ctx); err != nil {
		return err
	}
	cachekey.Apply(ctx, b.cache, m)
	return nil
}

// stamp returns a fresh ID (or id when set) and the current UTC time.
func (b *base) stamp(id string) (string, time.Time) {
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}
	return id, b.now().UTC()
}

func (b *base) today() string {
	return erp.Today(b.now())
}
