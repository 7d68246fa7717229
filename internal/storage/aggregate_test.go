package storage

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	erp "github.com/eugener/silverbook/internal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFoldBalances(t *testing.T) {
	t.Parallel()

	txs := []erp.StockTransaction{
		{Category: erp.StockRaw, Direction: erp.StockIn, WeightGrams: d("1000"), Purity: 999},
		{Category: erp.StockRaw, Direction: erp.StockOut, WeightGrams: d("200"), Purity: 999},
		{Category: erp.StockFinished, Direction: erp.StockIn, WeightGrams: d("50"), Purity: 925},
	}

	all := FoldBalances(txs, "")
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3 buckets", len(all))
	}
	raw := all[0]
	if raw.Category != erp.StockRaw {
		t.Fatalf("first bucket = %s, want RAW", raw.Category)
	}
	if !raw.BalanceGrams.Equal(d("800")) {
		t.Errorf("raw balance = %s, want 800", raw.BalanceGrams)
	}
	if !raw.FineGrams.Equal(d("799.2")) {
		t.Errorf("raw fine = %s, want 799.2", raw.FineGrams)
	}
	if !all[1].BalanceGrams.IsZero() {
		t.Errorf("wastage balance = %s, want 0", all[1].BalanceGrams)
	}

	fg := FoldBalances(txs, erp.StockFinished)
	if len(fg) != 1 || !fg[0].FineGrams.Equal(d("46.25")) {
		t.Errorf("finished = %+v, want one bucket with 46.25 fine grams", fg)
	}
}

func TestFoldStatement_Customer(t *testing.T) {
	t.Parallel()

	orders := []erp.Order{
		{ID: "o2", CustomerName: "Ravi", Amount: d("500"), OrderDate: "2024-04-10"},
		{ID: "o1", CustomerName: "ravi", Amount: d("300"), OrderDate: "2024-04-01"},
		{ID: "o3", CustomerName: "Anil", Amount: d("999"), OrderDate: "2024-04-02"},
	}
	payments := []erp.Payment{
		{PartyType: erp.PartyCustomer, PartyName: "Ravi", Direction: erp.PaymentIn, Amount: d("250"), PaidAt: "2024-04-05", Reference: "upi-1"},
		{PartyType: erp.PartyVendor, PartyName: "Ravi", Direction: erp.PaymentOut, Amount: d("1"), PaidAt: "2024-04-05"},
	}

	got := FoldStatement(erp.PartyCustomer, "Ravi", orders, payments, nil)
	want := []erp.StatementLine{
		{Date: "2024-04-01", Kind: erp.LineOrder, Reference: "o1", Debit: d("300")},
		{Date: "2024-04-05", Kind: erp.LinePayment, Reference: "upi-1", Credit: d("250")},
		{Date: "2024-04-10", Kind: erp.LineOrder, Reference: "o2", Debit: d("500")},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(decimal.Decimal.Equal)); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestFoldStatement_Vendor(t *testing.T) {
	t.Parallel()

	stock := []erp.StockTransaction{
		{ID: "s1", Category: erp.StockRaw, Direction: erp.StockIn, Cost: d("70000"), Reference: "Mehta", TxDate: "2024-04-02"},
		{ID: "s2", Category: erp.StockRaw, Direction: erp.StockIn, Reference: "Mehta", TxDate: "2024-04-03"},
		{ID: "s3", Category: erp.StockWastage, Direction: erp.StockIn, Cost: d("10"), Reference: "Mehta", TxDate: "2024-04-03"},
	}
	payments := []erp.Payment{
		{PartyType: erp.PartyVendor, PartyName: "Mehta", Direction: erp.PaymentOut, Amount: d("50000"), PaidAt: "2024-04-04"},
	}

	st := erp.BuildStatement(erp.PartyVendor, "Mehta", erp.Period{},
		FoldStatement(erp.PartyVendor, "Mehta", nil, payments, stock))
	if len(st.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(st.Lines))
	}
	if !st.Closing.Equal(d("-20000")) {
		t.Errorf("closing = %s, want -20000 (business owes vendor)", st.Closing)
	}
}

func TestFoldProfitAndLoss(t *testing.T) {
	t.Parallel()

	p := erp.Period{Start: "2024-04-01", End: "2024-04-30"}
	orders := []erp.Order{
		{Amount: d("1030"), GSTAmount: d("30"), OrderDate: "2024-04-10"},
		{Amount: d("5000"), GSTAmount: d("0"), OrderDate: "2024-05-01"},
	}
	stock := []erp.StockTransaction{
		{Category: erp.StockRaw, Direction: erp.StockIn, Cost: d("400"), TxDate: "2024-04-02"},
		{Category: erp.StockFinished, Direction: erp.StockOut, Cost: d("999"), TxDate: "2024-04-02"},
	}
	expenses := []erp.Expense{{Amount: d("100"), SpentOn: "2024-04-15"}}
	settlements := []erp.KarigarSettlement{{Amount: d("50"), SettledAt: "2024-04-20"}}

	r := FoldProfitAndLoss(p, orders, stock, expenses, settlements)
	if !r.Revenue.Equal(d("1000")) {
		t.Errorf("revenue = %s, want 1000", r.Revenue)
	}
	if !r.GrossProfit.Equal(d("600")) {
		t.Errorf("gross = %s, want 600", r.GrossProfit)
	}
	if !r.NetProfit.Equal(d("450")) {
		t.Errorf("net = %s, want 450", r.NetProfit)
	}
}

func TestFoldDashboard(t *testing.T) {
	t.Parallel()

	orders := []erp.Order{
		{Status: erp.OrderPending, Amount: d("100"), OrderDate: "2024-04-15"},
		{Status: erp.OrderDelivered, Amount: d("200"), OrderDate: "2024-04-01"},
		{Status: erp.OrderPending, Amount: d("300"), OrderDate: "2024-03-31"},
	}
	expenses := []erp.Expense{{Amount: d("40"), SpentOn: "2024-04-02"}}

	got := FoldDashboard("2024-04-15", orders, expenses, d("750"))
	if got.OrdersToday != 1 || got.PendingOrders != 2 {
		t.Errorf("today/pending = %d/%d, want 1/2", got.OrdersToday, got.PendingOrders)
	}
	if !got.RevenueMonth.Equal(d("300")) {
		t.Errorf("revenue month = %s, want 300", got.RevenueMonth)
	}
	if !got.ExpensesMonth.Equal(d("40")) || !got.LatestRate10g.Equal(d("750")) {
		t.Errorf("expenses/rate = %s/%s", got.ExpensesMonth, got.LatestRate10g)
	}
}

func TestFoldGST(t *testing.T) {
	t.Parallel()

	orders := []erp.Order{
		{Amount: d("1030"), GSTAmount: d("30"), OrderDate: "2024-04-10"},
		{Amount: d("105.01"), GSTAmount: d("5.01"), OrderDate: "2024-04-11"},
	}
	g := FoldGST(erp.Period{}, orders)
	if g.Orders != 2 || !g.TotalTax.Equal(d("35.01")) {
		t.Fatalf("orders/tax = %d/%s", g.Orders, g.TotalTax)
	}
	if !g.CGST.Add(g.SGST).Equal(g.TotalTax) {
		t.Errorf("cgst %s + sgst %s != total %s", g.CGST, g.SGST, g.TotalTax)
	}
}
