// Package cachekey owns the cache key namespace: the fixed keys, the builders
// for parameterized keys, and the table of which mutations invalidate which
// keys.
//
// A parameterized key is its family name followed by one "_"-separated field
// per parameter, in a fixed order. Empty parameters are written as "all".
// Parameter values are escaped so distinct parameterizations never produce
// the same key.
package cachekey

import (
	"strconv"
	"strings"
	"time"

	erp "github.com/eugener/silverbook/internal"
)

// Fixed keys.
const (
	OrdersList       = "orders_list"
	DashboardStats   = "dashboard_stats"
	FinishedGoods    = "finished_goods"
	LatestRate       = "latest_rate"
	ExpensesList     = "expenses_list"
	KarigarsList     = "karigars_list"
	ProductsList     = "products_list"
	JobWorkItemsList = "job_work_items_list"
)

// Parameterized family names.
const (
	stockSummary      = "stock_summary"
	stockTransactions = "stock_transactions"
	rateHistory       = "rate_history"
	customerStatement = "customer_statement"
	vendorStatement   = "vendor_statement"
	plReport          = "pl_report"
	gstReport         = "gst_report"
)

// TTLs for families that change less often than the store default.
const (
	RateTTL    = 5 * time.Minute
	CatalogTTL = 10 * time.Minute
)

// Family describes one group of keys.
type Family struct {
	Name string
	// Parameterized families own every key of the form Name + "_" + params.
	// A parameterized family may also own the bare Name (pl_report).
	Parameterized bool
	TTL           time.Duration // 0 = store default
}

// Families lists every key family the services read through the cache.
var Families = []Family{
	{Name: OrdersList},
	{Name: DashboardStats},
	{Name: FinishedGoods},
	{Name: LatestRate, TTL: RateTTL},
	{Name: ExpensesList},
	{Name: KarigarsList},
	{Name: ProductsList, TTL: CatalogTTL},
	{Name: JobWorkItemsList, TTL: CatalogTTL},
	{Name: stockSummary, Parameterized: true},
	{Name: stockTransactions, Parameterized: true},
	{Name: rateHistory, Parameterized: true, TTL: RateTTL},
	{Name: customerStatement, Parameterized: true},
	{Name: vendorStatement, Parameterized: true},
	{Name: plReport, Parameterized: true},
	{Name: gstReport, Parameterized: true},
}

// Owns reports whether key belongs to f.
func (f Family) Owns(key string) bool {
	if key == f.Name {
		return true
	}
	return f.Parameterized && strings.HasPrefix(key, f.Name+"_")
}

// FamilyOf returns the family that owns key.
func FamilyOf(key string) (Family, bool) {
	for _, f := range Families {
		if f.Owns(key) {
			return f, true
		}
	}
	return Family{}, false
}

// TTL returns the TTL for key, or 0 for the store default.
func TTL(key string) time.Duration {
	f, _ := FamilyOf(key)
	return f.TTL
}

// StockSummary keys the valued stock summary for a category ("" = all).
func StockSummary(category string) string {
	return build(stockSummary, category)
}

// StockTransactions keys the transaction list for a category ("" = all).
func StockTransactions(category string) string {
	return build(stockTransactions, category)
}

// RateHistory keys the most recent limit rates.
func RateHistory(limit int) string {
	return build(rateHistory, strconv.Itoa(limit))
}

// Statement keys a party statement for a period.
func Statement(partyType, name string, p erp.Period) string {
	family := customerStatement
	if partyType == erp.PartyVendor {
		family = vendorStatement
	}
	return build(family, name, p.Start, p.End)
}

// PLReport keys the profit and loss report. The open period is the bare
// family name.
func PLReport(p erp.Period) string {
	if p.Start == "" && p.End == "" {
		return plReport
	}
	return build(plReport, p.Start, p.End)
}

// GSTReport keys the GST summary for a period.
func GSTReport(p erp.Period) string {
	return build(gstReport, p.Start, p.End)
}

func build(family string, params ...string) string {
	var b strings.Builder
	b.WriteString(family)
	for _, p := range params {
		b.WriteByte('_')
		b.WriteString(escape(p))
	}
	return b.String()
}

var escaper = strings.NewReplacer("%", "%25", "_", "%5F")

// escape encodes a parameter so it cannot contain the separator and cannot
// be confused with the empty marker.
func escape(v string) string {
	switch v {
	case "":
		return "all"
	case "all":
		return "%61ll"
	}
	return escaper.Replace(v)
}
