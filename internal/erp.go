// Package erp defines domain types for the silverbook back office.
// This package has no project imports -- it is the dependency root.
package erp

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used for business dates and periods.
const DateLayout = "2006-01-02"

// --- Orders ---

// Billing types. Job-work orders are made from customer-supplied silver and
// bill only making charges; own-material orders also bill the silver.
const (
	BillingJobWork     = "job_work"
	BillingOwnMaterial = "own_material"
)

// Order statuses.
const (
	OrderPending   = "pending"
	OrderReady     = "ready"
	OrderDelivered = "delivered"
)

// Default GST rates (percent) applied when an order leaves GSTRate at zero.
var (
	DefaultGSTOwnMaterial = decimal.NewFromInt(3)
	DefaultGSTJobWork     = decimal.NewFromInt(5)
)

// Order is a customer order.
type Order struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customer_name"`
	BillingType   string          `json:"billing_type"`
	Description   string          `json:"description,omitempty"`
	WeightGrams   decimal.Decimal `json:"weight_grams"`
	Purity        int             `json:"purity"` // fineness in parts per thousand, e.g. 925
	MakingCharge  decimal.Decimal `json:"making_charge"`
	MaterialValue decimal.Decimal `json:"material_value"`
	GSTRate       decimal.Decimal `json:"gst_rate"`
	GSTAmount     decimal.Decimal `json:"gst_amount"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	OrderDate     string          `json:"order_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate checks the caller-supplied fields of an order.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.CustomerName) == "" {
		return badRequest("customer_name is required")
	}
	switch o.BillingType {
	case BillingJobWork, BillingOwnMaterial:
	default:
		return badRequest("billing_type must be job_work or own_material")
	}
	if !o.WeightGrams.IsPositive() {
		return badRequest("weight_grams must be positive")
	}
	if o.Purity <= 0 || o.Purity > 1000 {
		return badRequest("purity must be between 1 and 1000")
	}
	if o.MakingCharge.IsNegative() {
		return badRequest("making_charge must not be negative")
	}
	if o.GSTRate.IsNegative() {
		return badRequest("gst_rate must not be negative")
	}
	if o.Status != "" && !validOrderStatus(o.Status) {
		return badRequest("unknown status " + o.Status)
	}
	return validDate("order_date", o.OrderDate)
}

func validOrderStatus(s string) bool {
	return s == OrderPending || s == OrderReady || s == OrderDelivered
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool { return validOrderStatus(s) }

// --- Stock ---

// Stock categories.
const (
	StockRaw      = "RAW"
	StockWastage  = "WASTAGE"
	StockFinished = "FINISHED"
)

// Stock directions.
const (
	StockIn  = "IN"
	StockOut = "OUT"
)

// StockTransaction moves silver in or out of one inventory bucket.
type StockTransaction struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Direction   string          `json:"direction"`
	WeightGrams decimal.Decimal `json:"weight_grams"`
	Purity      int             `json:"purity"`
	Cost        decimal.Decimal `json:"cost"` // purchase cost for inbound raw silver
	OrderID     string          `json:"order_id,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	Note        string          `json:"note,omitempty"`
	TxDate      string          `json:"tx_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate checks the caller-supplied fields of a stock transaction.
func (t *StockTransaction) Validate() error {
	if !ValidStockCategory(t.Category) {
		return badRequest("category must be RAW, WASTAGE or FINISHED")
	}
	if t.Direction != StockIn && t.Direction != StockOut {
		return badRequest("direction must be IN or OUT")
	}
	if !t.WeightGrams.IsPositive() {
		return badRequest("weight_grams must be positive")
	}
	if t.Purity <= 0 || t.Purity > 1000 {
		return badRequest("purity must be between 1 and 1000")
	}
	if t.Cost.IsNegative() {
		return badRequest("cost must not be negative")
	}
	return validDate("tx_date", t.TxDate)
}

// ValidStockCategory reports whether c names an inventory bucket.
func ValidStockCategory(c string) bool {
	return c == StockRaw || c == StockWastage || c == StockFinished
}

// StockBalance is the running position of one inventory bucket.
type StockBalance struct {
	Category     string          `json:"category"`
	InGrams      decimal.Decimal `json:"in_grams"`
	OutGrams     decimal.Decimal `json:"out_grams"`
	BalanceGrams decimal.Decimal `json:"balance_grams"`
	FineGrams    decimal.Decimal `json:"fine_grams"`
	Value        decimal.Decimal `json:"value"`
}

// StockSummary values every bucket at a silver rate.
type StockSummary struct {
	Category   string          `json:"category,omitempty"` // empty = all buckets
	Rate10g    decimal.Decimal `json:"rate_10g"`
	Balances   []StockBalance  `json:"balances"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// --- Rates ---

// SilverRate is the price of 10 grams of fine silver effective from a date.
type SilverRate struct {
	ID            string          `json:"id"`
	Rate10g       decimal.Decimal `json:"rate_10g"`
	EffectiveDate string          `json:"effective_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate checks the caller-supplied fields of a rate.
func (r *SilverRate) Validate() error {
	if !r.Rate10g.IsPositive() {
		return badRequest("rate_10g must be positive")
	}
	return validDate("effective_date", r.EffectiveDate)
}

// FineValue returns the value of grams at the given fineness and 10g rate.
func FineValue(grams decimal.Decimal, purity int, rate10g decimal.Decimal) decimal.Decimal {
	return FineGrams(grams, purity).Mul(rate10g).Div(decimal.NewFromInt(10)).Round(2)
}

// FineGrams converts gross grams at a fineness to fine-silver grams.
func FineGrams(grams decimal.Decimal, purity int) decimal.Decimal {
	return grams.Mul(decimal.NewFromInt(int64(purity))).Div(decimal.NewFromInt(1000)).Round(3)
}

// --- Ledger ---

// Party types.
const (
	PartyCustomer = "customer"
	PartyVendor   = "vendor"
)

// Payment directions.
const (
	PaymentIn  = "in"
	PaymentOut = "out"
)

// Payment records money received from or paid to a party.
type Payment struct {
	ID        string          `json:"id"`
	PartyType string          `json:"party_type"`
	PartyName string          `json:"party_name"`
	Direction string          `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
	Mode      string          `json:"mode,omitempty"` // cash, upi, bank
	Reference string          `json:"reference,omitempty"`
	PaidAt    string          `json:"paid_at"`
	CreatedAt time.Time       `json:"created_at"`
}

// Validate checks the caller-supplied fields of a payment.
func (p *Payment) Validate() error {
	if !ValidPartyType(p.PartyType) {
		return badRequest("party_type must be customer or vendor")
	}
	if strings.TrimSpace(p.PartyName) == "" {
		return badRequest("party_name is required")
	}
	if p.Direction != PaymentIn && p.Direction != PaymentOut {
		return badRequest("direction must be in or out")
	}
	if !p.Amount.IsPositive() {
		return badRequest("amount must be positive")
	}
	return validDate("paid_at", p.PaidAt)
}

// ValidPartyType reports whether t is a ledger party type.
func ValidPartyType(t string) bool {
	return t == PartyCustomer || t == PartyVendor
}

// Statement line kinds.
const (
	LineOrder    = "order"
	LinePayment  = "payment"
	LinePurchase = "purchase" // raw silver bought from a vendor
)

// StatementLine is one posting on a party statement.
type StatementLine struct {
	Date      string          `json:"date"`
	Kind      string          `json:"kind"`
	Reference string          `json:"reference,omitempty"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Balance   decimal.Decimal `json:"balance"`
}

// Statement is a party's account for a period. A positive balance means the
// party owes the business.
type Statement struct {
	PartyType string          `json:"party_type"`
	PartyName string          `json:"party_name"`
	Start     string          `json:"start,omitempty"`
	End       string          `json:"end,omitempty"`
	Opening   decimal.Decimal `json:"opening"`
	Lines     []StatementLine `json:"lines"`
	Closing   decimal.Decimal `json:"closing"`
}

// BuildStatement folds date-ordered postings into a statement for period p.
// Lines dated before p.Start roll into the opening balance; lines after p.End
// are ignored. Running balances are filled in.
func BuildStatement(partyType, partyName string, p Period, lines []StatementLine) *Statement {
	st := &Statement{
		PartyType: partyType,
		PartyName: partyName,
		Start:     p.Start,
		End:       p.End,
		Lines:     []StatementLine{},
	}
	bal := decimal.Zero
	for _, l := range lines {
		if p.End != "" && l.Date > p.End {
			continue
		}
		bal = bal.Add(l.Debit).Sub(l.Credit)
		if p.Start != "" && l.Date < p.Start {
			st.Opening = bal
			continue
		}
		l.Balance = bal
		st.Lines = append(st.Lines, l)
	}
	st.Closing = bal
	return st
}

// --- Expenses ---

// Expense is an operating cost.
type Expense struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
	SpentOn   string          `json:"spent_on"`
	CreatedAt time.Time       `json:"created_at"`
}

// Validate checks the caller-supplied fields of an expense.
func (e *Expense) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return badRequest("category is required")
	}
	if !e.Amount.IsPositive() {
		return badRequest("amount must be positive")
	}
	return validDate("spent_on", e.SpentOn)
}

// --- Karigars ---

// Karigar is an artisan paid for job work. Balance is the amount owed to them.
type Karigar struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// KarigarSettlement is a payment to a karigar that reduces their balance.
type KarigarSettlement struct {
	ID          string          `json:"id"`
	KarigarID   string          `json:"karigar_id"`
	Amount      decimal.Decimal `json:"amount"`
	WeightGrams decimal.Decimal `json:"weight_grams"`
	Note        string          `json:"note,omitempty"`
	SettledAt   string          `json:"settled_at"`
}

// Validate checks the caller-supplied fields of a settlement.
func (s *KarigarSettlement) Validate() error {
	if s.KarigarID == "" {
		return badRequest("karigar_id is required")
	}
	if !s.Amount.IsPositive() {
		return badRequest("amount must be positive")
	}
	if s.WeightGrams.IsNegative() {
		return badRequest("weight_grams must not be negative")
	}
	return validDate("settled_at", s.SettledAt)
}

// Validate checks the caller-supplied fields of a karigar.
func (k *Karigar) Validate() error {
	if strings.TrimSpace(k.Name) == "" {
		return badRequest("name is required")
	}
	if k.Balance.IsNegative() {
		return badRequest("balance must not be negative")
	}
	return nil
}

// --- Catalog ---

// Product is a finished-goods catalog entry.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category,omitempty"`
	DefaultWeight decimal.Decimal `json:"default_weight"`
	MakingCharge  decimal.Decimal `json:"making_charge"`
}

// Validate checks the caller-supplied fields of a product.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return badRequest("name is required")
	}
	if p.DefaultWeight.IsNegative() || p.MakingCharge.IsNegative() {
		return badRequest("default_weight and making_charge must not be negative")
	}
	return nil
}

// JobWorkItem is a job-work service priced per gram.
type JobWorkItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	RatePerGram decimal.Decimal `json:"rate_per_gram"`
}

// Validate checks the caller-supplied fields of a job-work item.
func (it *JobWorkItem) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return badRequest("name is required")
	}
	if it.RatePerGram.IsNegative() {
		return badRequest("rate_per_gram must not be negative")
	}
	return nil
}

// --- Reports ---

// Period bounds a report by inclusive calendar dates. Empty bounds are open.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Validate checks that both bounds parse and are ordered.
func (p Period) Validate() error {
	if err := validDate("start", p.Start); err != nil {
		return err
	}
	if err := validDate("end", p.End); err != nil {
		return err
	}
	if p.Start != "" && p.End != "" && p.Start > p.End {
		return badRequest("start must not be after end")
	}
	return nil
}

// Contains reports whether date falls inside the period.
func (p Period) Contains(date string) bool {
	if p.Start != "" && date < p.Start {
		return false
	}
	if p.End != "" && date > p.End {
		return false
	}
	return true
}

// PLReport is the profit and loss for a period.
type PLReport struct {
	Start           string          `json:"start,omitempty"`
	End             string          `json:"end,omitempty"`
	Revenue         decimal.Decimal `json:"revenue"` // net of GST
	MaterialCost    decimal.Decimal `json:"material_cost"`
	Expenses        decimal.Decimal `json:"expenses"`
	KarigarPayments decimal.Decimal `json:"karigar_payments"`
	GrossProfit     decimal.Decimal `json:"gross_profit"`
	NetProfit       decimal.Decimal `json:"net_profit"`
}

// Finalize derives the profit lines from the component totals.
func (r *PLReport) Finalize() {
	r.GrossProfit = r.Revenue.Sub(r.MaterialCost)
	r.NetProfit = r.GrossProfit.Sub(r.Expenses).Sub(r.KarigarPayments)
}

// DashboardStats are the headline figures for one business day.
type DashboardStats struct {
	Day           string          `json:"day"`
	OrdersToday   int             `json:"orders_today"`
	PendingOrders int             `json:"pending_orders"`
	RevenueMonth  decimal.Decimal `json:"revenue_month"`
	ExpensesMonth decimal.Decimal `json:"expenses_month"`
	LatestRate10g decimal.Decimal `json:"latest_rate_10g"`
}

// GSTSummary totals tax collected on orders for a period. Supplies are
// intra-state, so collected GST splits evenly into CGST and SGST.
type GSTSummary struct {
	Start        string          `json:"start,omitempty"`
	End          string          `json:"end,omitempty"`
	Orders       int             `json:"orders"`
	TaxableValue decimal.Decimal `json:"taxable_value"`
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	TotalTax     decimal.Decimal `json:"total_tax"`
}

// SplitTax fills CGST and SGST from TotalTax.
func (g *GSTSummary) SplitTax() {
	g.CGST = g.TotalTax.Div(decimal.NewFromInt(2)).Round(2)
	g.SGST = g.TotalTax.Sub(g.CGST)
}

// --- helpers ---

func validDate(field, v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, v); err != nil {
		return badRequest(field + " must be YYYY-MM-DD")
	}
	return nil
}

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, msg)
}

// Today returns the current calendar date in DateLayout.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}
