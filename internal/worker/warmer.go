package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/eugener/silverbook/internal/app"
	"github.com/eugener/silverbook/internal/cachekey"
)

// WarmTarget is one cached read the warmer keeps hot.
type WarmTarget struct {
	Key  string
	Load func(ctx context.Context) error
}

// HotKeys returns the reads every screen of the app starts with.
func HotKeys(svc *app.Services) []WarmTarget {
	return []WarmTarget{
		{Key: cachekey.LatestRate, Load: func(ctx context.Context) error {
			_, err := svc.Rates.Latest(ctx)
			return err
		}},
		{Key: cachekey.DashboardStats, Load: func(ctx context.Context) error {
			_, err := svc.Reports.Dashboard(ctx)
			return err
		}},
		{Key: cachekey.OrdersList, Load: func(ctx context.Context) error {
			_, err := svc.Orders.List(ctx)
			return err
		}},
	}
}

// CacheWarmer re-reads hot keys on an interval. Reads go through the cache,
// so a fresh entry costs nothing, an aging one starts its background
// refresh, and an expired one is reloaded before a user asks for it.
type CacheWarmer struct {
	interval time.Duration
	targets  []WarmTarget
}

// NewCacheWarmer creates a CacheWarmer.
func NewCacheWarmer(interval time.Duration, targets ...WarmTarget) *CacheWarmer {
	return &CacheWarmer{interval: interval, targets: targets}
}

// Name returns the worker identifier.
func (w *CacheWarmer) Name() string { return "cache_warmer" }

// Run warms once, then on every tick until ctx is cancelled. Load failures
// are logged and retried on the next tick.
func (w *CacheWarmer) Run(ctx context.Context) error {
	w.warm(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.warm(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *CacheWarmer) warm(ctx context.Context) {
	for _, t := range w.targets {
		if ctx.Err() != nil {
			return
		}
		if err := t.Load(ctx); err != nil {
			slog.LogAttrs(ctx, slog.LevelWarn, "cache warm failed",
				slog.String("key", t.Key),
				slog.String("error", err.Error()),
			)
		}
	}
}
