package storage

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	erp "github.com/eugener/silverbook/internal"
)

// Backends load the rows a report needs and fold them with the functions
// below, so every backend computes figures the same way.

var categories = []string{erp.StockRaw, erp.StockWastage, erp.StockFinished}

// FoldBalances totals stock transactions per category. An empty category
// returns every bucket, including empty ones. Value is left zero; pricing is
// done against the current rate by the caller.
func FoldBalances(txs []erp.StockTransaction, category string) []erp.StockBalance {
	out := make([]erp.StockBalance, 0, len(categories))
	for _, c := range categories {
		if category != "" && c != category {
			continue
		}
		b := erp.StockBalance{Category: c}
		for _, tx := range txs {
			if tx.Category != c {
				continue
			}
			fine := erp.FineGrams(tx.WeightGrams, tx.Purity)
			if tx.Direction == erp.StockIn {
				b.InGrams = b.InGrams.Add(tx.WeightGrams)
				b.FineGrams = b.FineGrams.Add(fine)
			} else {
				b.OutGrams = b.OutGrams.Add(tx.WeightGrams)
				b.FineGrams = b.FineGrams.Sub(fine)
			}
		}
		b.BalanceGrams = b.InGrams.Sub(b.OutGrams)
		out = append(out, b)
	}
	return out
}

// FoldStatement builds the date-ordered postings for one party.
//
// Customers are debited for orders. Vendors are credited for raw silver
// bought from them (inbound RAW rows whose reference names the vendor).
// Payments received credit the party; payments made debit it.
func FoldStatement(partyType, name string, orders []erp.Order, payments []erp.Payment, stock []erp.StockTransaction) []erp.StatementLine {
	var lines []erp.StatementLine
	switch partyType {
	case erp.PartyCustomer:
		for _, o := range orders {
			if !strings.EqualFold(o.CustomerName, name) {
				continue
			}
			lines = append(lines, erp.StatementLine{
				Date:      o.OrderDate,
				Kind:      erp.LineOrder,
				Reference: o.ID,
				Debit:     o.Amount,
			})
		}
	case erp.PartyVendor:
		for _, tx := range stock {
			if tx.Category != erp.StockRaw || tx.Direction != erp.StockIn || !tx.Cost.IsPositive() {
				continue
			}
			if !strings.EqualFold(tx.Reference, name) {
				continue
			}
			lines = append(lines, erp.StatementLine{
				Date:      tx.TxDate,
				Kind:      erp.LinePurchase,
				Reference: tx.ID,
				Credit:    tx.Cost,
			})
		}
	}
	for _, p := range payments {
		if p.PartyType != partyType || !strings.EqualFold(p.PartyName, name) {
			continue
		}
		l := erp.StatementLine{Date: p.PaidAt, Kind: erp.LinePayment, Reference: p.Reference}
		if p.Direction == erp.PaymentIn {
			l.Credit = p.Amount
		} else {
			l.Debit = p.Amount
		}
		lines = append(lines, l)
	}
	slices.SortStableFunc(lines, func(a, b erp.StatementLine) int {
		return cmp.Compare(a.Date, b.Date)
	})
	return lines
}

// FoldProfitAndLoss computes the P&L for p from rows already limited to p.
// Revenue is order value net of GST; material cost is the purchase cost of
// inbound raw silver.
func FoldProfitAndLoss(p erp.Period, orders []erp.Order, stock []erp.StockTransaction, expenses []erp.Expense, settlements []erp.KarigarSettlement) *erp.PLReport {
	r := &erp.PLReport{Start: p.Start, End: p.End}
	for _, o := range orders {
		if p.Contains(o.OrderDate) {
			r.Revenue = r.Revenue.Add(o.Amount.Sub(o.GSTAmount))
		}
	}
	for _, tx := range stock {
		if tx.Category == erp.StockRaw && tx.Direction == erp.StockIn && p.Contains(tx.TxDate) {
			r.MaterialCost = r.MaterialCost.Add(tx.Cost)
		}
	}
	for _, e := range expenses {
		if p.Contains(e.SpentOn) {
			r.Expenses = r.Expenses.Add(e.Amount)
		}
	}
	for _, s := range settlements {
		if p.Contains(s.SettledAt) {
			r.KarigarPayments = r.KarigarPayments.Add(s.Amount)
		}
	}
	r.Finalize()
	return r
}

// FoldDashboard computes the headline figures for day. Month figures cover
// the calendar month containing day.
func FoldDashboard(day string, orders []erp.Order, expenses []erp.Expense, latest decimal.Decimal) *erp.DashboardStats {
	month := day
	if len(day) >= 7 {
		month = day[:7]
	}
	d := &erp.DashboardStats{Day: day, LatestRate10g: latest}
	for _, o := range orders {
		if o.OrderDate == day {
			d.OrdersToday++
		}
		if o.Status == erp.OrderPending {
			d.PendingOrders++
		}
		if strings.HasPrefix(o.OrderDate, month) {
			d.RevenueMonth = d.RevenueMonth.Add(o.Amount.Sub(o.GSTAmount))
		}
	}
	for _, e := range expenses {
		if strings.HasPrefix(e.SpentOn, month) {
			d.ExpensesMonth = d.ExpensesMonth.Add(e.Amount)
		}
	}
	return d
}

// FoldGST totals GST collected on orders dated inside p.
func FoldGST(p erp.Period, orders []erp.Order) *erp.GSTSummary {
	g := &erp.GSTSummary{Start: p.Start, End: p.End}
	for _, o := range orders {
		if !p.Contains(o.OrderDate) {
			continue
		}
		g.Orders++
		g.TaxableValue = g.TaxableValue.Add(o.Amount.Sub(o.GSTAmount))
		g.TotalTax = g.TotalTax.Add(o.GSTAmount)
	}
	g.SplitTax()
	return g
}
