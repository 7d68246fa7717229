package app

import (
	"context"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/cachekey"
)

// History limits.
const (
	DefaultRateHistory = 30
	MaxRateHistory     = 365
)

// RateService manages the silver rate.
type RateService struct {
	*base
}

// Latest returns the rate with the latest effective date.
func (s *RateService) Latest(ctx context.Context) (*erp.SilverRate, error) {
	return read(ctx, s.base, cachekey.LatestRate, s.store.LatestRate)
}

// History returns up to limit rates, newest first. The limit is clamped to
// [1, MaxRateHistory]; zero selects DefaultRateHistory.
func (s *RateService) History(ctx context.Context, limit int) ([]erp.SilverRate, error) {
	switch {
	case limit <= 0:
		limit = DefaultRateHistory
	case limit > MaxRateHistory:
		limit = MaxRateHistory
	}
	return read(ctx, s.base, cachekey.RateHistory(limit), func(ctx context.Context) ([]erp.SilverRate, error) {
		return s.store.ListRates(ctx, limit)
	})
}

// Add records a rate.
func (s *RateService) Add(ctx context.Context, r *erp.SilverRate) (*erp.SilverRate, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.ID, r.CreatedAt = s.stamp(r.ID)
	if r.EffectiveDate == "" {
		r.EffectiveDate = s.today()
	}
	err := s.mutate(ctx, cachekey.AddRate, func(ctx context.Context) error {
		return s.store.AddRate(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a rate.
func (s *RateService) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, cachekey.DeleteRate, func(ctx context.Context) error {
		return s.store.DeleteRate(ctx, id)
	})
}
