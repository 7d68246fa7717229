package app

import (
	"context"
	"strings"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/cachekey"
)

// ExpenseService manages operating expenses.
type ExpenseService struct {
	*base
}

// List returns all expenses, newest first.
func (s *ExpenseService) List(ctx context.Context) ([]erp.Expense, error) {
	return read(ctx, s.base, cachekey.ExpensesList, s.store.ListExpenses)
}

// Create records an expense.
func (s *ExpenseService) Create(ctx context.Context, e *erp.Expense) (*erp.Expense, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	e.ID, e.CreatedAt = s.stamp(e.ID)
	if e.SpentOn == "" {
		e.SpentOn = s.today()
	}
	err := s.mutate(ctx, cachekey.CreateExpense, func(ctx context.Context) error {
		return s.store.CreateExpense(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes an expense.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, cachekey.DeleteExpense, func(ctx context.Context) error {
		return s.store.DeleteExpense(ctx, id)
	})
}

// KarigarService manages artisans and what they are owed.
type KarigarService struct {
	*base
}

// List returns all karigars by name.
func (s *KarigarService) List(ctx context.Context) ([]erp.Karigar, error) {
	return read(ctx, s.base, cachekey.KarigarsList, s.store.ListKarigars)
}

// Create registers a karigar with an optional opening balance.
func (s *KarigarService) Create(ctx context.Context, k *erp.Karigar) (*erp.Karigar, error) {
	k.Name = strings.TrimSpace(k.Name)
	if err := k.Validate(); err != nil {
		return nil, err
	}
	k.ID, k.CreatedAt = s.stamp(k.ID)
	err := s.mutate(ctx, cachekey.CreateKarigar, func(ctx context.Context) error {
		return s.store.CreateKarigar(ctx, k)
	})
	if err != nil {
		return nil, err
	}
	return k, nil
}

// Settle pays a karigar and reduces their balance.
func (s *KarigarService) Settle(ctx context.Context, st *erp.KarigarSettlement) (*erp.KarigarSettlement, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	st.ID, _ = s.stamp(st.ID)
	if st.SettledAt == "" {
		st.SettledAt = s.today()
	}
	err := s.mutate(ctx, cachekey.SettleKarigar, func(ctx context.Context) error {
		return s.store.SettleKarigar(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// CatalogService manages the product catalog and job-work price list.
type CatalogService struct {
	*base
}

// Products returns the product catalog.
func (s *CatalogService) Products(ctx context.Context) ([]erp.Product, error) {
	return read(ctx, s.base, cachekey.ProductsList, s.store.ListProducts)
}

// SaveProduct creates a product, or replaces the one with the same ID.
func (s *CatalogService) SaveProduct(ctx context.Context, p *erp.Product) (*erp.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.ID, _ = s.stamp(p.ID)
	err := s.mutate(ctx, cachekey.SaveProduct, func(ctx context.Context) error {
		return s.store.SaveProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProduct removes a product.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	return s.mutate(ctx, cachekey.DeleteProduct, func(ctx context.Context) error {
		return s.store.DeleteProduct(ctx, id)
	})
}

// JobWorkItems returns the job-work price list.
func (s *CatalogService) JobWorkItems(ctx context.Context) ([]erp.JobWorkItem, error) {
	return read(ctx, s.base, cachekey.JobWorkItemsList, s.store.ListJobWorkItems)
}

// SaveJobWorkItem creates a job-work item, or replaces the one with the same ID.
func (s *CatalogService) SaveJobWorkItem(ctx context.Context, it *erp.JobWorkItem) (*erp.JobWorkItem, error) {
	it.Name = strings.TrimSpace(it.Name)
	if err := it.Validate(); err != nil {
		return nil, err
	}
	it.ID, _ = s.stamp(it.ID)
	err := s.mutate(ctx, cachekey.SaveJobWorkItem, func(ctx context.Context) error {
		return s.store.SaveJobWorkItem(ctx, it)
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// DeleteJobWorkItem removes a job-work item.
func (s *CatalogService) DeleteJobWorkItem(ctx context.Context, id string) error {
	return s.mutate(ctx, cachekey.DeleteJobWorkItem, func(ctx context.Context) error {
		return s.store.DeleteJobWorkItem(ctx, id)
	})
}
