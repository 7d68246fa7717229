package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/cachekey"
)

var hundred = decimal.NewFromInt(100)

// OrderService manages customer orders.
type OrderService struct {
	*base
	rates *RateService
}

// List returns all orders, newest first.
func (s *OrderService) List(ctx context.Context) ([]erp.Order, error) {
	return read(ctx, s.base, cachekey.OrdersList, s.store.ListOrders)
}

// Create prices and stores one order.
func (s *OrderService) Create(ctx context.Context, o *erp.Order) (*erp.Order, error) {
	p := s.pricer()
	if err := p.price(ctx, o); err != nil {
		return nil, err
	}
	err := s.mutate(ctx, cachekey.CreateOrder, func(ctx context.Context) error {
		return s.store.CreateOrders(ctx, []*erp.Order{o})
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreateBatch prices and stores orders as one unit: either every order is
// stored or none is.
func (s *OrderService) CreateBatch(ctx context.Context, orders []*erp.Order) ([]*erp.Order, error) {
	if len(orders) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", erp.ErrBadRequest)
	}
	p := s.pricer()
	for i, o := range orders {
		if err := p.price(ctx, o); err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
	}
	err := s.mutate(ctx, cachekey.CreateOrders, func(ctx context.Context) error {
		return s.store.CreateOrders(ctx, orders)
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves an order to status.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) error {
	if !erp.ValidOrderStatus(status) {
		return fmt.Errorf("%w: unknown status %q", erp.ErrBadRequest, status)
	}
	return s.mutate(ctx, cachekey.UpdateOrderStatus, func(ctx context.Context) error {
		return s.store.UpdateOrderStatus(ctx, id, status)
	})
}

// Delete removes an order and the stock it posted.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, cachekey.DeleteOrder, func(ctx context.Context) error {
		return s.store.DeleteOrder(ctx, id)
	})
}

// orderPricer fills the derived fields of new orders. The silver rate is
// looked up at most once per pricer.
type orderPricer struct {
	s    *OrderService
	rate *decimal.Decimal
}

func (s *OrderService) pricer() *orderPricer { return &orderPricer{s: s} }

func (p *orderPricer) price(ctx context.Context, o *erp.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	o.ID, o.CreatedAt = p.s.stamp(o.ID)
	if o.Status == "" {
		o.Status = erp.OrderPending
	}
	if o.OrderDate == "" {
		o.OrderDate = p.s.today()
	}
	if o.GSTRate.IsZero() {
		o.GSTRate = erp.DefaultGSTJobWork
		if o.BillingType == erp.BillingOwnMaterial {
			o.GSTRate = erp.DefaultGSTOwnMaterial
		}
	}

	o.MaterialValue = decimal.Zero
	if o.BillingType == erp.BillingOwnMaterial {
		rate, err := p.rate10g(ctx)
		if err != nil {
			return err
		}
		o.MaterialValue = erp.FineValue(o.WeightGrams, o.Purity, rate)
	}
	taxable := o.MakingCharge.Add(o.MaterialValue)
	o.GSTAmount = taxable.Mul(o.GSTRate).Div(hundred).Round(2)
	o.Amount = taxable.Add(o.GSTAmount)
	return nil
}

func (p *orderPricer) rate10g(ctx context.Context) (decimal.Decimal, error) {
	if p.rate != nil {
		return *p.rate, nil
	}
	r, err := p.s.rates.Latest(ctx)
	if errors.Is(err, erp.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("%w: no silver rate recorded for own-material billing", erp.ErrBadRequest)
	}
	if err != nil {
		return decimal.Zero, err
	}
	p.rate = &r.Rate10g
	return r.Rate10g, nil
}
