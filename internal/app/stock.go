package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/cachekey"
)

var ten = decimal.NewFromInt(10)

// StockService tracks the raw, wastage and finished-goods buckets.
type StockService struct {
	*base
	rates *RateService
}

func checkCategory(category string) error {
	if category != "" && !erp.ValidStockCategory(category) {
		return fmt.Errorf("%w: unknown category %q", erp.ErrBadRequest, category)
	}
	return nil
}

// Transactions lists movements in category ("" = all), newest first.
func (s *StockService) Transactions(ctx context.Context, category string) ([]erp.StockTransaction, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}
	return read(ctx, s.base, cachekey.StockTransactions(category),
		func(ctx context.Context) ([]erp.StockTransaction, error) {
			return s.store.ListStockTransactions(ctx, category)
		})
}

// FinishedGoods lists finished-goods movements, newest first.
func (s *StockService) FinishedGoods(ctx context.Context) ([]erp.StockTransaction, error) {
	return read(ctx, s.base, cachekey.FinishedGoods, func(ctx context.Context) ([]erp.StockTransaction, error) {
		return s.store.ListStockTransactions(ctx, erp.StockFinished)
	})
}

// Summary returns bucket balances for category ("" = all) valued at the
// latest silver rate. Without a recorded rate every value is zero.
func (s *StockService) Summary(ctx context.Context, category string) (*erp.StockSummary, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}
	return read(ctx, s.base, cachekey.StockSummary(category), func(ctx context.Context) (*erp.StockSummary, error) {
		balances, err := s.store.StockBalances(ctx, category)
		if err != nil {
			return nil, err
		}
		rate := decimal.Zero
		switch r, err := s.rates.Latest(ctx); {
		case err == nil:
			rate = r.Rate10g
		case !errors.Is(err, erp.ErrNotFound):
			return nil, err
		}

		sum := &erp.StockSummary{Category: category, Rate10g: rate, Balances: balances}
		for i := range sum.Balances {
			b := &sum.Balances[i]
			b.Value = b.FineGrams.Mul(rate).Div(ten).Round(2)
			sum.TotalValue = sum.TotalValue.Add(b.Value)
		}
		return sum, nil
	})
}

// Add records a manual stock movement. Order-linked movements are posted by
// the order service and cannot be added here.
func (s *StockService) Add(ctx context.Context, tx *erp.StockTransaction) (*erp.StockTransaction, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	tx.ID, tx.CreatedAt = s.stamp(tx.ID)
	tx.OrderID = ""
	if tx.TxDate == "" {
		tx.TxDate = s.today()
	}
	err := s.mutate(ctx, cachekey.AddStockTransaction, func(ctx context.Context) error {
		return s.store.AddStockTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Delete removes a manual stock movement.
func (s *StockService) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, cachekey.DeleteStockTransaction, func(ctx context.Context) error {
		return s.store.DeleteStockTransaction(ctx, id)
	})
}
