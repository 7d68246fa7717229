package erp

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFineValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		grams  string
		purity int
		rate   string
		want   string
	}{
		{name: "pure silver", grams: "100", purity: 1000, rate: "750", want: "7500"},
		{name: "sterling", grams: "100", purity: 925, rate: "750", want: "6937.5"},
		{name: "fractional grams", grams: "12.345", purity: 999, rate: "800", want: "986.64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FineValue(dec(tt.grams), tt.purity, dec(tt.rate))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("FineValue = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildStatement(t *testing.T) {
	t.Parallel()

	lines := []StatementLine{
		{Date: "2024-01-05", Kind: LineOrder, Debit: dec("1000")},
		{Date: "2024-01-10", Kind: LinePayment, Credit: dec("400")},
		{Date: "2024-02-01", Kind: LineOrder, Debit: dec("250")},
		{Date: "2024-02-15", Kind: LinePayment, Credit: dec("100")},
		{Date: "2024-03-01", Kind: LineOrder, Debit: dec("999")},
	}

	st := BuildStatement(PartyCustomer, "Ravi", Period{Start: "2024-02-01", End: "2024-02-28"}, lines)

	if !st.Opening.Equal(dec("600")) {
		t.Errorf("opening = %s, want 600", st.Opening)
	}
	if len(st.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(st.Lines))
	}
	if !st.Lines[0].Balance.Equal(dec("850")) {
		t.Errorf("line 0 balance = %s, want 850", st.Lines[0].Balance)
	}
	if !st.Closing.Equal(dec("750")) {
		t.Errorf("closing = %s, want 750", st.Closing)
	}
}

func TestBuildStatement_OpenPeriod(t *testing.T) {
	t.Parallel()

	st := BuildStatement(PartyVendor, "Mehta Bullion", Period{}, nil)
	if st.Lines == nil {
		t.Error("lines should be non-nil for JSON encoding")
	}
	if !st.Opening.IsZero() || !st.Closing.IsZero() {
		t.Errorf("opening/closing = %s/%s, want 0/0", st.Opening, st.Closing)
	}
}

func TestOrderValidate(t *testing.T) {
	t.Parallel()

	valid := func() Order {
		return Order{
			CustomerName: "Ravi",
			BillingType:  BillingOwnMaterial,
			WeightGrams:  dec("10"),
			Purity:       925,
			MakingCharge: dec("150"),
			OrderDate:    "2024-02-01",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Order)
		ok     bool
	}{
		{name: "valid", mutate: func(*Order) {}, ok: true},
		{name: "missing customer", mutate: func(o *Order) { o.CustomerName = " " }},
		{name: "unknown billing", mutate: func(o *Order) { o.BillingType = "barter" }},
		{name: "zero weight", mutate: func(o *Order) { o.WeightGrams = decimal.Zero }},
		{name: "purity too high", mutate: func(o *Order) { o.Purity = 1001 }},
		{name: "bad date", mutate: func(o *Order) { o.OrderDate = "01/02/2024" }},
		{name: "bad status", mutate: func(o *Order) { o.Status = "lost" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := valid()
			tt.mutate(&o)
			err := o.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrBadRequest) {
				t.Fatalf("err = %v, want ErrBadRequest", err)
			}
		})
	}
}

func TestPeriodValidate(t *testing.T) {
	t.Parallel()

	if err := (Period{Start: "2024-03-01", End: "2024-02-01"}).Validate(); !errors.Is(err, ErrBadRequest) {
		t.Errorf("reversed period: err = %v, want ErrBadRequest", err)
	}
	if err := (Period{Start: "2024-02-01"}).Validate(); err != nil {
		t.Errorf("open end: unexpected error %v", err)
	}
	if !(Period{Start: "2024-02-01", End: "2024-02-29"}).Contains("2024-02-29") {
		t.Error("period should include its end date")
	}
}

func TestGSTSplitTax(t *testing.T) {
	t.Parallel()

	g := GSTSummary{TotalTax: dec("100.01")}
	g.SplitTax()
	if !g.CGST.Add(g.SGST).Equal(g.TotalTax) {
		t.Errorf("cgst+sgst = %s, want %s", g.CGST.Add(g.SGST), g.TotalTax)
	}
}

func TestCatalogValidate(t *testing.T) {
	t.Parallel()

	if err := (&Product{Name: " "}).Validate(); !errors.Is(err, ErrBadRequest) {
		t.Errorf("blank product name: err = %v", err)
	}
	if err := (&Product{Name: "Payal", MakingCharge: dec("-1")}).Validate(); !errors.Is(err, ErrBadRequest) {
		t.Errorf("negative making charge: err = %v", err)
	}
	if err := (&JobWorkItem{Name: "Polish", RatePerGram: dec("2.5")}).Validate(); err != nil {
		t.Errorf("valid job work item: %v", err)
	}
	if err := (&Karigar{Name: "Mohan", Balance: dec("-5")}).Validate(); !errors.Is(err, ErrBadRequest) {
		t.Errorf("negative karigar balance: err = %v", err)
	}
}
