// Package storage defines persistence interfaces for the back office.
//
// Implementations own business-rule enforcement that must be atomic: a batch
// of orders together with the finished-goods stock they consume, a payment
// with its party registration, a karigar settlement with the balance it
// reduces. Callers treat every method as one transaction.
package storage

import (
	"context"

	erp "github.com/eugener/silverbook/internal"
)

// OrderStore manages customer orders.
type OrderStore interface {
	ListOrders(ctx context.Context) ([]erp.Order, error)
	// CreateOrders inserts all orders or none. Own-material orders also post
	// a FINISHED OUT stock transaction linked by order ID.
	CreateOrders(ctx context.Context, orders []*erp.Order) error
	UpdateOrderStatus(ctx context.Context, id, status string) error
	// DeleteOrder removes the order and any stock transactions linked to it.
	DeleteOrder(ctx context.Context, id string) error
}

// StockStore manages inventory movements.
type StockStore interface {
	ListStockTransactions(ctx context.Context, category string) ([]erp.StockTransaction, error)
	StockBalances(ctx context.Context, category string) ([]erp.StockBalance, error)
	AddStockTransaction(ctx context.Context, tx *erp.StockTransaction) error
	// DeleteStockTransaction refuses rows posted by an order with ErrConflict.
	DeleteStockTransaction(ctx context.Context, id string) error
}

// RateStore manages silver rates.
type RateStore interface {
	// LatestRate returns ErrNotFound when no rate has been recorded.
	LatestRate(ctx context.Context) (*erp.SilverRate, error)
	ListRates(ctx context.Context, limit int) ([]erp.SilverRate, error)
	AddRate(ctx context.Context, r *erp.SilverRate) error
	DeleteRate(ctx context.Context, id string) error
}

// LedgerStore manages payments and party statements.
type LedgerStore interface {
	RecordPayment(ctx context.Context, p *erp.Payment) error
	// StatementLines returns every posting for a party in date order, without
	// running balances.
	StatementLines(ctx context.Context, partyType, name string) ([]erp.StatementLine, error)
}

// ExpenseStore manages operating expenses.
type ExpenseStore interface {
	ListExpenses(ctx context.Context) ([]erp.Expense, error)
	CreateExpense(ctx context.Context, e *erp.Expense) error
	DeleteExpense(ctx context.Context, id string) error
}

// KarigarStore manages artisans and their settlements.
type KarigarStore interface {
	ListKarigars(ctx context.Context) ([]erp.Karigar, error)
	CreateKarigar(ctx context.Context, k *erp.Karigar) error
	// SettleKarigar records the settlement and reduces the karigar's balance.
	SettleKarigar(ctx context.Context, s *erp.KarigarSettlement) error
}

// CatalogStore manages products and job-work items.
type CatalogStore interface {
	ListProducts(ctx context.Context) ([]erp.Product, error)
	SaveProduct(ctx context.Context, p *erp.Product) error
	DeleteProduct(ctx context.Context, id string) error
	ListJobWorkItems(ctx context.Context) ([]erp.JobWorkItem, error)
	SaveJobWorkItem(ctx context.Context, it *erp.JobWorkItem) error
	DeleteJobWorkItem(ctx context.Context, id string) error
}

// ReportStore computes aggregate reports.
type ReportStore interface {
	ProfitAndLoss(ctx context.Context, p erp.Period) (*erp.PLReport, error)
	DashboardStats(ctx context.Context, day string) (*erp.DashboardStats, error)
	GSTSummary(ctx context.Context, p erp.Period) (*erp.GSTSummary, error)
}

// Backend combines all storage interfaces.
type Backend interface {
	OrderStore
	StockStore
	RateStore
	LedgerStore
	ExpenseStore
	KarigarStore
	CatalogStore
	ReportStore
	Ping(ctx context.Context) error
	Close() error
}
