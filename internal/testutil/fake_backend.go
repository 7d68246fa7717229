// Package testutil provides test fakes for the storage interfaces and a
// manual clock.
package testutil

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/storage"
)

var _ storage.Backend = (*FakeBackend)(nil)

// FakeBackend is an in-memory storage.Backend. It counts calls per method so
// tests can tell cache hits from backend reads, and can be told to fail.
type FakeBackend struct {
	mu          sync.RWMutex
	orders      []erp.Order
	stock       []erp.StockTransaction
	rates       []erp.SilverRate
	payments    []erp.Payment
	expenses    []erp.Expense
	karigars    []erp.Karigar
	settlements []erp.KarigarSettlement
	products    []erp.Product
	jobItems    []erp.JobWorkItem
	calls       map[string]int

	readErr  error
	writeErr error
}

// NewFakeBackend returns an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{calls: make(map[string]int)}
}

// FailReads makes every read return err. Nil restores normal behavior.
func (f *FakeBackend) FailReads(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
}

// FailWrites makes every write return err without changing state.
func (f *FakeBackend) FailWrites(err error) {
	f.mu.Lock()
	f.writeErr = err
	f.mu.Unlock()
}

// Calls returns how many times method was called.
func (f *FakeBackend) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

func (f *FakeBackend) read(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.readErr
}

// write locks f for a mutation. On success the caller must unlock.
func (f *FakeBackend) write(method string) error {
	f.mu.Lock()
	f.calls[method]++
	if f.writeErr != nil {
		f.mu.Unlock()
		return f.writeErr
	}
	return nil
}

func removeByID[T any](s []T, id string, idOf func(T) string) ([]T, bool) {
	i := slices.IndexFunc(s, func(v T) bool { return idOf(v) == id })
	if i < 0 {
		return s, false
	}
	return slices.Delete(s, i, i+1), true
}

func notFound(entity string) error { return fmt.Errorf("%s: %w", entity, erp.ErrNotFound) }

// --- orders ---

// ListOrders returns all orders, newest first.
func (f *FakeBackend) ListOrders(context.Context) ([]erp.Order, error) {
	if err := f.read("ListOrders"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := slices.Clone(f.orders)
	slices.SortStableFunc(out, func(a, b erp.Order) int { return cmp.Compare(b.OrderDate, a.OrderDate) })
	return out, nil
}

// CreateOrders inserts all orders or none.
func (f *FakeBackend) CreateOrders(_ context.Context, orders []*erp.Order) error {
	if err := f.write("CreateOrders"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	for _, o := range orders {
		if slices.ContainsFunc(f.orders, func(x erp.Order) bool { return x.ID == o.ID }) {
			return fmt.Errorf("order %s: %w", o.ID, erp.ErrConflict)
		}
	}
	for _, o := range orders {
		f.orders = append(f.orders, *o)
		if o.BillingType == erp.BillingOwnMaterial {
			f.stock = append(f.stock, erp.StockTransaction{
				ID: "stk-" + o.ID, Category: erp.StockFinished, Direction: erp.StockOut,
				WeightGrams: o.WeightGrams, Purity: o.Purity, OrderID: o.ID,
				Reference: o.CustomerName, TxDate: o.OrderDate, CreatedAt: o.CreatedAt,
			})
		}
	}
	return nil
}

// UpdateOrderStatus sets an order's status.
func (f *FakeBackend) UpdateOrderStatus(_ context.Context, id, status string) error {
	if err := f.write("UpdateOrderStatus"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Status = status
			return nil
		}
	}
	return notFound("order")
}

// DeleteOrder removes an order and its linked stock rows.
func (f *FakeBackend) DeleteOrder(_ context.Context, id string) error {
	if err := f.write("DeleteOrder"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	var ok bool
	if f.orders, ok = removeByID(f.orders, id, func(o erp.Order) string { return o.ID }); !ok {
		return notFound("order")
	}
	f.stock = slices.DeleteFunc(f.stock, func(t erp.StockTransaction) bool { return t.OrderID == id })
	return nil
}

// --- stock ---

// ListStockTransactions returns transactions for category ("" = all).
func (f *FakeBackend) ListStockTransactions(_ context.Context, category string) ([]erp.StockTransaction, error) {
	if err := f.read("ListStockTransactions"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := []erp.StockTransaction{}
	for _, t := range f.stock {
		if category == "" || t.Category == category {
			out = append(out, t)
		}
	}
	return out, nil
}

// StockBalances totals each bucket.
func (f *FakeBackend) StockBalances(_ context.Context, category string) ([]erp.StockBalance, error) {
	if err := f.read("StockBalances"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return storage.FoldBalances(f.stock, category), nil
}

// AddStockTransaction appends a stock movement.
func (f *FakeBackend) AddStockTransaction(_ context.Context, t *erp.StockTransaction) error {
	if err := f.write("AddStockTransaction"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	f.stock = append(f.stock, *t)
	return nil
}

// DeleteStockTransaction removes a manual stock movement.
func (f *FakeBackend) DeleteStockTransaction(_ context.Context, id string) error {
	if err := f.write("DeleteStockTransaction"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.stock, func(t erp.StockTransaction) bool { return t.ID == id })
	if i < 0 {
		return notFound("stock transaction")
	}
	if f.stock[i].OrderID != "" {
		return fmt.Errorf("stock transaction: %w", erp.ErrConflict)
	}
	f.stock = slices.Delete(f.stock, i, i+1)
	return nil
}

// --- rates ---

func (f *FakeBackend) sortedRates() []erp.SilverRate {
	out := slices.Clone(f.rates)
	slices.SortStableFunc(out, func(a, b erp.SilverRate) int {
		return cmp.Or(cmp.Compare(b.EffectiveDate, a.EffectiveDate), b.CreatedAt.Compare(a.CreatedAt))
	})
	return out
}

// LatestRate returns the newest rate.
func (f *FakeBackend) LatestRate(context.Context) (*erp.SilverRate, error) {
	if err := f.read("LatestRate"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.rates) == 0 {
		return nil, notFound("silver rate")
	}
	r := f.sortedRates()[0]
	return &r, nil
}

// ListRates returns up to limit rates, newest first.
func (f *FakeBackend) ListRates(_ context.Context, limit int) ([]erp.SilverRate, error) {
	if err := f.read("ListRates"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := f.sortedRates()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AddRate appends a rate.
func (f *FakeBackend) AddRate(_ context.Context, r *erp.SilverRate) error {
	if err := f.write("AddRate"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	f.rates = append(f.rates, *r)
	return nil
}

// DeleteRate removes a rate.
func (f *FakeBackend) DeleteRate(_ context.Context, id string) error {
	if err := f.write("DeleteRate"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	var ok bool
	if f.rates, ok = removeByID(f.rates, id, func(r erp.SilverRate) string { return r.ID }); !ok {
		return notFound("rate")
	}
	return nil
}

// --- ledger ---

// RecordPayment appends a payment.
func (f *FakeBackend) RecordPayment(_ context.Context, p *erp.Payment) error {
	if err := f.write("RecordPayment"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	f.payments = append(f.payments, *p)
	return nil
}

// StatementLines returns the party's postings.
func (f *FakeBackend) StatementLines(_ context.Context, partyType, name string) ([]erp.StatementLine, error) {
	if err := f.read("StatementLines"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return storage.FoldStatement(partyType, name, f.orders, f.payments, f.stock), nil
}

// --- expenses ---

// ListExpenses returns all expenses.
func (f *FakeBackend) ListExpenses(context.Context) ([]erp.Expense, error) {
	if err := f.read("ListExpenses"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]erp.Expense{}, f.expenses...), nil
}

// CreateExpense appends an expense.
func (f *FakeBackend) CreateExpense(_ context.Context, e *erp.Expense) error {
	if err := f.write("CreateExpense"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	f.expenses = append(f.expenses, *e)
	return nil
}

// DeleteExpense removes an expense.
func (f *FakeBackend) DeleteExpense(_ context.Context, id string) error {
	if err := f.write("DeleteExpense"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	var ok bool
	if f.expenses, ok = removeByID(f.expenses, id, func(e erp.Expense) string { return e.ID }); !ok {
		return notFound("expense")
	}
	return nil
}

// --- karigars ---

// ListKarigars returns all karigars.
func (f *FakeBackend) ListKarigars(context.Context) ([]erp.Karigar, error) {
	if err := f.read("ListKarigars"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]erp.Karigar{}, f.karigars...), nil
}

// CreateKarigar appends a karigar.
func (f *FakeBackend) CreateKarigar(_ context.Context, k *erp.Karigar) error {
	if err := f.write("CreateKarigar"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	f.karigars = append(f.karigars, *k)
	return nil
}

// SettleKarigar records a settlement and reduces the balance.
func (f *FakeBackend) SettleKarigar(_ context.Context, s *erp.KarigarSettlement) error {
	if err := f.write("SettleKarigar"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	for i := range f.karigars {
		if f.karigars[i].ID == s.KarigarID {
			f.karigars[i].Balance = f.karigars[i].Balance.Sub(s.Amount)
			f.settlements = append(f.settlements, *s)
			return nil
		}
	}
	return notFound("karigar")
}

// --- catalog ---

// ListProducts returns the product catalog.
func (f *FakeBackend) ListProducts(context.Context) ([]erp.Product, error) {
	if err := f.read("ListProducts"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]erp.Product{}, f.products...), nil
}

// SaveProduct upserts a product.
func (f *FakeBackend) SaveProduct(_ context.Context, p *erp.Product) error {
	if err := f.write("SaveProduct"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	if i := slices.IndexFunc(f.products, func(x erp.Product) bool { return x.ID == p.ID }); i >= 0 {
		f.products[i] = *p
		return nil
	}
	f.products = append(f.products, *p)
	return nil
}

// DeleteProduct removes a product.
func (f *FakeBackend) DeleteProduct(_ context.Context, id string) error {
	if err := f.write("DeleteProduct"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	var ok bool
	if f.products, ok = removeByID(f.products, id, func(p erp.Product) string { return p.ID }); !ok {
		return notFound("product")
	}
	return nil
}

// ListJobWorkItems returns the job-work price list.
func (f *FakeBackend) ListJobWorkItems(context.Context) ([]erp.JobWorkItem, error) {
	if err := f.read("ListJobWorkItems"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]erp.JobWorkItem{}, f.jobItems...), nil
}

// SaveJobWorkItem upserts a job-work item.
func (f *FakeBackend) SaveJobWorkItem(_ context.Context, it *erp.JobWorkItem) error {
	if err := f.write("SaveJobWorkItem"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	if i := slices.IndexFunc(f.jobItems, func(x erp.JobWorkItem) bool { return x.ID == it.ID }); i >= 0 {
		f.jobItems[i] = *it
		return nil
	}
	f.jobItems = append(f.jobItems, *it)
	return nil
}

// DeleteJobWorkItem removes a job-work item.
func (f *FakeBackend) DeleteJobWorkItem(_ context.Context, id string) error {
	if err := f.write("DeleteJobWorkItem"); err != nil {
		return err
	}
	defer f.mu.Unlock()
	var ok bool
	if f.jobItems, ok = removeByID(f.jobItems, id, func(it erp.JobWorkItem) string { return it.ID }); !ok {
		return notFound("job work item")
	}
	return nil
}

// --- reports ---

// ProfitAndLoss folds the stored rows for p.
func (f *FakeBackend) ProfitAndLoss(_ context.Context, p erp.Period) (*erp.PLReport, error) {
	if err := f.read("ProfitAndLoss"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return storage.FoldProfitAndLoss(p, f.orders, f.stock, f.expenses, f.settlements), nil
}

// DashboardStats folds the stored rows for day.
func (f *FakeBackend) DashboardStats(_ context.Context, day string) (*erp.DashboardStats, error) {
	if err := f.read("DashboardStats"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	var rate decimal.Decimal
	if len(f.rates) > 0 {
		rate = f.sortedRates()[0].Rate10g
	}
	return storage.FoldDashboard(day, f.orders, f.expenses, rate), nil
}

// GSTSummary folds the stored orders for p.
func (f *FakeBackend) GSTSummary(_ context.Context, p erp.Period) (*erp.GSTSummary, error) {
	if err := f.read("GSTSummary"); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return storage.FoldGST(p, f.orders), nil
}

// Ping always succeeds unless reads are failing.
func (f *FakeBackend) Ping(context.Context) error { return f.read("Ping") }

// Close is a no-op.
func (f *FakeBackend) Close() error { return nil }
