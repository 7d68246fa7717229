package cachekey

import (
	"context"
	"log/slog"
)

// Mutation names a backend write that can change cached reads.
type Mutation string

// Mutations.
const (
	RecordPayment          Mutation = "record_payment"
	CreateOrder            Mutation = "create_order"
	CreateOrders           Mutation = "create_orders"
	DeleteOrder            Mutation = "delete_order"
	UpdateOrderStatus      Mutation = "update_order_status"
	AddStockTransaction    Mutation = "add_stock_transaction"
	DeleteStockTransaction Mutation = "delete_stock_transaction"
	AddRate                Mutation = "add_rate"
	DeleteRate             Mutation = "delete_rate"
	CreateExpense          Mutation = "create_expense"
	DeleteExpense          Mutation = "delete_expense"
	SettleKarigar          Mutation = "settle_karigar"
	CreateKarigar          Mutation = "create_karigar"
	SaveProduct            Mutation = "save_product"
	DeleteProduct          Mutation = "delete_product"
	SaveJobWorkItem        Mutation = "save_job_work_item"
	DeleteJobWorkItem      Mutation = "delete_job_work_item"
)

// Target is one key, or every key under a prefix, to drop after a mutation.
type Target struct {
	Key    string
	Prefix bool
}

// Exact targets a single key.
func Exact(key string) Target { return Target{Key: key} }

// Prefix targets every key starting with p.
func Prefix(p string) Target { return Target{Key: p, Prefix: true} }

func (t Target) String() string {
	if t.Prefix {
		return t.Key + "*"
	}
	return t.Key
}

var (
	orderTargets = []Target{
		Exact(OrdersList),
		Exact(DashboardStats),
		Prefix(stockSummary + "_"),
		Prefix(stockTransactions + "_"),
		Exact(FinishedGoods),
		Prefix(customerStatement + "_"),
		Prefix(plReport),
		Prefix(gstReport + "_"),
	}
	stockTargets = []Target{
		Prefix(plReport),
		Prefix(stockSummary + "_"),
		Prefix(stockTransactions + "_"),
		Exact(FinishedGoods),
		Prefix(vendorStatement + "_"),
	}
	rateTargets = []Target{
		Exact(LatestRate),
		Prefix(rateHistory + "_"),
		Prefix(stockSummary + "_"),
		Exact(DashboardStats),
	}
	expenseTargets = []Target{
		Exact(ExpensesList),
		Exact(DashboardStats),
		Prefix(plReport),
	}
)

// Rules maps every mutation to the cache entries it makes stale.
var Rules = map[Mutation][]Target{
	RecordPayment: {
		Prefix(customerStatement + "_"),
		Prefix(vendorStatement + "_"),
		Prefix(plReport),
	},
	CreateOrder:            orderTargets,
	CreateOrders:           orderTargets,
	DeleteOrder:            orderTargets,
	UpdateOrderStatus:      orderTargets,
	AddStockTransaction:    stockTargets,
	DeleteStockTransaction: stockTargets,
	AddRate:                rateTargets,
	DeleteRate:             rateTargets,
	CreateExpense:          expenseTargets,
	DeleteExpense:          expenseTargets,
	SettleKarigar: {
		Exact(KarigarsList),
		Prefix(plReport),
	},
	CreateKarigar:     {Exact(KarigarsList)},
	SaveProduct:       {Exact(ProductsList)},
	DeleteProduct:     {Exact(ProductsList)},
	SaveJobWorkItem:   {Exact(JobWorkItemsList)},
	DeleteJobWorkItem: {Exact(JobWorkItemsList)},
}

// Invalidator is the subset of the cache store that Apply needs.
type Invalidator interface {
	Invalidate(key string)
	InvalidatePrefix(prefix string)
	Clear()
}

// Apply drops every entry m makes stale. Call it only after the backend has
// confirmed the write. A mutation with no rule clears the whole cache.
func Apply(ctx context.Context, inv Invalidator, m Mutation) {
	targets, ok := Rules[m]
	if !ok {
		slog.LogAttrs(ctx, slog.LevelError, "no invalidation rule, clearing cache",
			slog.String("mutation", string(m)),
		)
		inv.Clear()
		return
	}
	for _, t := range targets {
		if t.Prefix {
			inv.InvalidatePrefix(t.Key)
		} else {
			inv.Invalidate(t.Key)
		}
	}
	slog.LogAttrs(ctx, slog.LevelDebug, "cache invalidated",
		slog.String("mutation", string(m)),
		slog.Int("targets", len(targets)),
	)
}
