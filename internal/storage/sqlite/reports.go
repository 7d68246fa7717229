package sqlite

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/storage"
)

// ProfitAndLoss loads the period's rows concurrently from the read pool and
// folds them.
func (s *Store) ProfitAndLoss(ctx context.Context, p erp.Period) (*erp.PLReport, error) {
	var (
		orders      []erp.Order
		stock       []erp.StockTransaction
		expenses    []erp.Expense
		settlements []erp.KarigarSettlement
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		orders, err = s.ordersIn(ctx, p)
		return err
	})
	g.Go(func() (err error) {
		where, args := periodWhere("tx_date", p)
		stock, err = s.queryStock(ctx,
			`SELECT `+stockCols+` FROM stock_transactions WHERE category = 'RAW' AND direction = 'IN'`+where, args...)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.expensesIn(ctx, p)
		return err
	})
	g.Go(func() (err error) {
		settlements, err = s.settlementsIn(ctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return storage.FoldProfitAndLoss(p, orders, stock, expenses, settlements), nil
}

// DashboardStats computes the headline figures for day.
func (s *Store) DashboardStats(ctx context.Context, day string) (*erp.DashboardStats, error) {
	var month erp.Period
	if len(day) >= 7 {
		month = erp.Period{Start: day[:7] + "-01", End: day[:7] + "-31"}
	}
	var (
		monthOrders []erp.Order
		pending     []erp.Order
		expenses    []erp.Expense
		rate        decimal.Decimal
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		monthOrders, err = s.ordersIn(ctx, month)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.queryOrders(ctx,
			`SELECT `+orderCols+` FROM orders WHERE status = ? AND order_date NOT BETWEEN ? AND ?`,
			erp.OrderPending, month.Start, month.End)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.expensesIn(ctx, month)
		return err
	})
	g.Go(func() error {
		r, err := s.LatestRate(ctx)
		if errors.Is(err, erp.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		rate = r.Rate10g
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Pending orders outside the month still count toward the pending total.
	return storage.FoldDashboard(day, append(monthOrders, pending...), expenses, rate), nil
}

// GSTSummary totals GST on orders dated inside p.
func (s *Store) GSTSummary(ctx context.Context, p erp.Period) (*erp.GSTSummary, error) {
	orders, err := s.ordersIn(ctx, p)
	if err != nil {
		return nil, err
	}
	return storage.FoldGST(p, orders), nil
}

func (s *Store) expensesIn(ctx context.Context, p erp.Period) ([]erp.Expense, error) {
	where, args := periodWhere("spent_on", p)
	return s.queryExpenses(ctx, `SELECT id, category, amount, note, spent_on, created_at
		FROM expenses WHERE 1=1`+where, args...)
}
