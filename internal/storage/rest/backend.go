package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/storage"
)

// --- orders ---

// ListOrders returns all orders, newest first.
func (c *Client) ListOrders(ctx context.Context) ([]erp.Order, error) {
	out := []erp.Order{}
	err := c.list(ctx, "orders", url.Values{"order": {"order_date.desc,created_at.desc"}}, &out)
	return out, err
}

// CreateOrders inserts the batch through the create_orders function, which
// also posts finished-goods stock for own-material orders.
func (c *Client) CreateOrders(ctx context.Context, orders []*erp.Order) error {
	if len(orders) == 0 {
		return nil
	}
	_, err := c.rpc(ctx, "create_orders", map[string]any{"p_orders": orders})
	return err
}

// UpdateOrderStatus sets an order's status.
func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) error {
	return c.mutate(ctx, http.MethodPatch, "orders", url.Values{"id": {eq(id)}},
		map[string]string{"status": status}, "order")
}

// DeleteOrder removes an order; the schema cascades to its stock rows.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, "orders", url.Values{"id": {eq(id)}}, nil, "order")
}

// --- stock ---

// ListStockTransactions returns transactions for category ("" = all).
func (c *Client) ListStockTransactions(ctx context.Context, category string) ([]erp.StockTransaction, error) {
	q := url.Values{"order": {"tx_date.desc,created_at.desc"}}
	if category != "" {
		q.Set("category", eq(category))
	}
	out := []erp.StockTransaction{}
	err := c.list(ctx, "stock_transactions", q, &out)
	return out, err
}

// StockBalances totals each inventory bucket.
func (c *Client) StockBalances(ctx context.Context, category string) ([]erp.StockBalance, error) {
	txs, err := c.ListStockTransactions(ctx, category)
	if err != nil {
		return nil, err
	}
	return storage.FoldBalances(txs, category), nil
}

// AddStockTransaction inserts a manual stock movement.
func (c *Client) AddStockTransaction(ctx context.Context, tx *erp.StockTransaction) error {
	return c.insert(ctx, "stock_transactions", stockRow(tx), "")
}

// DeleteStockTransaction removes a manual stock movement.
func (c *Client) DeleteStockTransaction(ctx context.Context, id string) error {
	err := c.mutate(ctx, http.MethodDelete, "stock_transactions",
		url.Values{"id": {eq(id)}, "order_id": {"is.null"}}, nil, "stock transaction")
	if err == nil || !isNotFound(err) {
		return err
	}
	// Nothing deleted: tell a missing row apart from an order-linked one.
	b, gerr := c.do(ctx, http.MethodGet, "/stock_transactions",
		url.Values{"select": {"order_id"}, "id": {eq(id)}}, nil, "")
	if gerr != nil {
		return gerr
	}
	if linked := gjson.GetBytes(b, "0.order_id"); linked.Exists() && linked.String() != "" {
		return fmt.Errorf("stock transaction belongs to order %s: %w", linked.String(), erp.ErrConflict)
	}
	return err
}

// stockRow omits an empty order_id so the column stays NULL.
func stockRow(tx *erp.StockTransaction) map[string]any {
	row := map[string]any{
		"id":           tx.ID,
		"category":     tx.Category,
		"direction":    tx.Direction,
		"weight_grams": tx.WeightGrams,
		"purity":       tx.Purity,
		"cost":         tx.Cost,
		"reference":    tx.Reference,
		"note":         tx.Note,
		"tx_date":      tx.TxDate,
		"created_at":   tx.CreatedAt,
	}
	if tx.OrderID != "" {
		row["order_id"] = tx.OrderID
	}
	return row
}

// --- rates ---

// LatestRate returns the rate with the latest effective date.
func (c *Client) LatestRate(ctx context.Context) (*erp.SilverRate, error) {
	rates, err := c.ListRates(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("silver rate: %w", erp.ErrNotFound)
	}
	return &rates[0], nil
}

// ListRates returns the most recent rates, newest first.
func (c *Client) ListRates(ctx context.Context, limit int) ([]erp.SilverRate, error) {
	if limit <= 0 {
		limit = 30
	}
	out := []erp.SilverRate{}
	err := c.list(ctx, "silver_rates", url.Values{
		"order": {"effective_date.desc,created_at.desc"},
		"limit": {strconv.Itoa(limit)},
	}, &out)
	return out, err
}

// AddRate records a rate.
func (c *Client) AddRate(ctx context.Context, r *erp.SilverRate) error {
	return c.insert(ctx, "silver_rates", r, "")
}

// DeleteRate removes a rate.
func (c *Client) DeleteRate(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, "silver_rates", url.Values{"id": {eq(id)}}, nil, "rate")
}

// --- ledger ---

// RecordPayment inserts the payment and registers the party in one call.
func (c *Client) RecordPayment(ctx context.Context, p *erp.Payment) error {
	_, err := c.rpc(ctx, "record_payment", map[string]any{"p_payment": p})
	return err
}

// StatementLines returns a party's postings in date order.
func (c *Client) StatementLines(ctx context.Context, partyType, name string) ([]erp.StatementLine, error) {
	b, err := c.rpc(ctx, "statement_lines", map[string]string{"p_party_type": partyType, "p_name": name})
	if err != nil {
		return nil, err
	}
	var out []erp.StatementLine
	if err := decode(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- expenses ---

// ListExpenses returns all expenses, newest first.
func (c *Client) ListExpenses(ctx context.Context) ([]erp.Expense, error) {
	out := []erp.Expense{}
	err := c.list(ctx, "expenses", url.Values{"order": {"spent_on.desc,created_at.desc"}}, &out)
	return out, err
}

// CreateExpense inserts an expense.
func (c *Client) CreateExpense(ctx context.Context, e *erp.Expense) error {
	return c.insert(ctx, "expenses", e, "")
}

// DeleteExpense removes an expense.
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, "expenses", url.Values{"id": {eq(id)}}, nil, "expense")
}

// --- karigars ---

// ListKarigars returns all karigars by name.
func (c *Client) ListKarigars(ctx context.Context) ([]erp.Karigar, error) {
	out := []erp.Karigar{}
	err := c.list(ctx, "karigars", url.Values{"order": {"name.asc"}}, &out)
	return out, err
}

// CreateKarigar inserts a karigar.
func (c *Client) CreateKarigar(ctx context.Context, k *erp.Karigar) error {
	return c.insert(ctx, "karigars", k, "")
}

// SettleKarigar records a settlement and reduces the balance in one call.
func (c *Client) SettleKarigar(ctx context.Context, s *erp.KarigarSettlement) error {
	_, err := c.rpc(ctx, "settle_karigar", map[string]any{"p_settlement": s})
	return err
}

// --- catalog ---

const upsert = "resolution=merge-duplicates,return=minimal"

// ListProducts returns the product catalog by name.
func (c *Client) ListProducts(ctx context.Context) ([]erp.Product, error) {
	out := []erp.Product{}
	err := c.list(ctx, "products", url.Values{"order": {"name.asc"}}, &out)
	return out, err
}

// SaveProduct upserts a product by ID.
func (c *Client) SaveProduct(ctx context.Context, p *erp.Product) error {
	return c.insert(ctx, "products", p, upsert)
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, "products", url.Values{"id": {eq(id)}}, nil, "product")
}

// ListJobWorkItems returns the job-work price list by name.
func (c *Client) ListJobWorkItems(ctx context.Context) ([]erp.JobWorkItem, error) {
	out := []erp.JobWorkItem{}
	err := c.list(ctx, "job_work_items", url.Values{"order": {"name.asc"}}, &out)
	return out, err
}

// SaveJobWorkItem upserts a job-work item by ID.
func (c *Client) SaveJobWorkItem(ctx context.Context, it *erp.JobWorkItem) error {
	return c.insert(ctx, "job_work_items", it, upsert)
}

// DeleteJobWorkItem removes a job-work item.
func (c *Client) DeleteJobWorkItem(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, "job_work_items", url.Values{"id": {eq(id)}}, nil, "job work item")
}

// --- reports ---

type periodArgs struct {
	Start *string `json:"p_start"`
	End   *string `json:"p_end"`
}

func argsFor(p erp.Period) periodArgs {
	var a periodArgs
	if p.Start != "" {
		a.Start = &p.Start
	}
	if p.End != "" {
		a.End = &p.End
	}
	return a
}

// ProfitAndLoss returns the component totals from pl_report and derives the
// profit lines locally.
func (c *Client) ProfitAndLoss(ctx context.Context, p erp.Period) (*erp.PLReport, error) {
	b, err := c.rpc(ctx, "pl_report", argsFor(p))
	if err != nil {
		return nil, err
	}
	r := &erp.PLReport{}
	if err := decode(b, r); err != nil {
		return nil, err
	}
	r.Start, r.End = p.Start, p.End
	r.Finalize()
	return r, nil
}

// DashboardStats returns the headline figures for day.
func (c *Client) DashboardStats(ctx context.Context, day string) (*erp.DashboardStats, error) {
	b, err := c.rpc(ctx, "dashboard_stats", map[string]string{"p_day": day})
	if err != nil {
		return nil, err
	}
	d := &erp.DashboardStats{}
	if err := decode(b, d); err != nil {
		return nil, err
	}
	d.Day = day
	return d, nil
}

// GSTSummary returns GST totals for p, split into CGST and SGST locally.
func (c *Client) GSTSummary(ctx context.Context, p erp.Period) (*erp.GSTSummary, error) {
	b, err := c.rpc(ctx, "gst_summary", argsFor(p))
	if err != nil {
		return nil, err
	}
	g := &erp.GSTSummary{}
	if err := decode(b, g); err != nil {
		return nil, err
	}
	g.Start, g.End = p.Start, p.End
	g.SplitTax()
	return g, nil
}
