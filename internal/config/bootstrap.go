package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/storage"
)

// Bootstrap seeds the backend from the config file. Entries whose name
// already exists are skipped, and the rate is only seeded when no rate has
// been recorded, so running it on every start is safe.
func Bootstrap(ctx context.Context, cfg *Config, store storage.Backend) error {
	now := time.Now().UTC()
	newID := func() string { return uuid.Must(uuid.NewV7()).String() }

	if cfg.Seed.Rate10g.IsPositive() {
		_, err := store.LatestRate(ctx)
		switch {
		case errors.Is(err, erp.ErrNotFound):
			r := &erp.SilverRate{
				ID:            newID(),
				Rate10g:       cfg.Seed.Rate10g,
				EffectiveDate: erp.Today(now),
				CreatedAt:     now,
			}
			if err := store.AddRate(ctx, r); err != nil {
				return fmt.Errorf("seed rate: %w", err)
			}
			slog.Info("bootstrapped silver rate", "rate_10g", r.Rate10g.String())
		case err != nil:
			return fmt.Errorf("seed rate: %w", err)
		}
	}

	if len(cfg.Seed.Products) > 0 {
		existing, err := store.ListProducts(ctx)
		if err != nil {
			return fmt.Errorf("seed products: %w", err)
		}
		for _, p := range cfg.Seed.Products {
			if hasName(existing, p.Name, func(x erp.Product) string { return x.Name }) {
				continue
			}
			prod := &erp.Product{
				ID:            newID(),
				Name:          strings.TrimSpace(p.Name),
				Category:      p.Category,
				DefaultWeight: p.DefaultWeight,
				MakingCharge:  p.MakingCharge,
			}
			if err := prod.Validate(); err != nil {
				return fmt.Errorf("seed product %q: %w", p.Name, err)
			}
			if err := store.SaveProduct(ctx, prod); err != nil {
				return fmt.Errorf("seed product %q: %w", p.Name, err)
			}
			existing = append(existing, *prod)
			slog.Info("bootstrapped product", "name", prod.Name)
		}
	}

	if len(cfg.Seed.JobWorkItems) > 0 {
		existing, err := store.ListJobWorkItems(ctx)
		if err != nil {
			return fmt.Errorf("seed job work items: %w", err)
		}
		for _, it := range cfg.Seed.JobWorkItems {
			if hasName(existing, it.Name, func(x erp.JobWorkItem) string { return x.Name }) {
				continue
			}
			item := &erp.JobWorkItem{ID: newID(), Name: strings.TrimSpace(it.Name), RatePerGram: it.RatePerGram}
			if err := item.Validate(); err != nil {
				return fmt.Errorf("seed job work item %q: %w", it.Name, err)
			}
			if err := store.SaveJobWorkItem(ctx, item); err != nil {
				return fmt.Errorf("seed job work item %q: %w", it.Name, err)
			}
			existing = append(existing, *item)
			slog.Info("bootstrapped job work item", "name", item.Name)
		}
	}

	if len(cfg.Seed.Karigars) > 0 {
		existing, err := store.ListKarigars(ctx)
		if err != nil {
			return fmt.Errorf("seed karigars: %w", err)
		}
		for _, k := range cfg.Seed.Karigars {
			if hasName(existing, k.Name, func(x erp.Karigar) string { return x.Name }) {
				continue
			}
			kar := &erp.Karigar{ID: newID(), Name: strings.TrimSpace(k.Name), Phone: k.Phone, CreatedAt: now}
			if err := kar.Validate(); err != nil {
				return fmt.Errorf("seed karigar %q: %w", k.Name, err)
			}
			if err := store.CreateKarigar(ctx, kar); err != nil {
				return fmt.Errorf("seed karigar %q: %w", k.Name, err)
			}
			existing = append(existing, *kar)
			slog.Info("bootstrapped karigar", "name", kar.Name)
		}
	}

	return nil
}

// hasName reports whether any element's name equals name, ignoring case and
// surrounding space.
func hasName[T any](s []T, name string, nameOf func(T) string) bool {
	name = strings.TrimSpace(name)
	return slices.ContainsFunc(s, func(v T) bool { return strings.EqualFold(nameOf(v), name) })
}
