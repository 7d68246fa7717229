package config

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/storage/sqlite"
	"github.com/eugener/silverbook/internal/testutil"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	path := t.TempDir() + "/test.db"
	s, err := sqlite.New(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedConfig() *Config {
	return &Config{Seed: SeedConfig{
		Rate10g: decimal.NewFromInt(750),
		Products: []ProductEntry{
			{Name: "Payal", Category: "anklet", DefaultWeight: decimal.NewFromInt(40), MakingCharge: decimal.NewFromInt(300)},
			{Name: "Bichhiya", Category: "toe ring", DefaultWeight: decimal.NewFromInt(8), MakingCharge: decimal.NewFromInt(80)},
		},
		JobWorkItems: []JobWorkEntry{{Name: "Polish", RatePerGram: decimal.NewFromInt(2)}},
		Karigars:     []KarigarEntry{{Name: "Mohan", Phone: "98100 00000"}},
	}}
}

func TestBootstrap(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()
	cfg := seedConfig()

	// First call seeds everything.
	if err := Bootstrap(ctx, cfg, store); err != nil {
		t.Fatal("bootstrap:", err)
	}

	rate, err := store.LatestRate(ctx)
	if err != nil {
		t.Fatal("latest rate:", err)
	}
	if !rate.Rate10g.Equal(decimal.NewFromInt(750)) {
		t.Errorf("rate = %s, want 750", rate.Rate10g)
	}

	// Second call is idempotent -- no errors, no duplicates.
	cfg.Seed.Rate10g = decimal.NewFromInt(900)
	cfg.Seed.Products = append(cfg.Seed.Products, ProductEntry{Name: " payal "})
	if err := Bootstrap(ctx, cfg, store); err != nil {
		t.Fatal("idempotent bootstrap:", err)
	}

	products, err := store.ListProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 {
		t.Errorf("products after second bootstrap = %d, want 2", len(products))
	}
	karigars, err := store.ListKarigars(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(karigars) != 1 {
		t.Errorf("karigars after second bootstrap = %d, want 1", len(karigars))
	}
	rates, err := store.ListRates(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rates) != 1 {
		t.Errorf("rates after second bootstrap = %d, want 1 (existing rate must not be replaced)", len(rates))
	}
}

func TestBootstrap_EmptySeed(t *testing.T) {
	t.Parallel()
	store := testutil.NewFakeBackend()

	if err := Bootstrap(context.Background(), &Config{}, store); err != nil {
		t.Fatal("bootstrap:", err)
	}
	for _, m := range []string{"LatestRate", "ListProducts", "ListJobWorkItems", "ListKarigars"} {
		if n := store.Calls(m); n != 0 {
			t.Errorf("%s calls = %d, want 0 with nothing to seed", m, n)
		}
	}
}

func TestBootstrap_BackendError(t *testing.T) {
	t.Parallel()
	store := testutil.NewFakeBackend()
	store.FailReads(erp.ErrBackend)

	err := Bootstrap(context.Background(), seedConfig(), store)
	if !errors.Is(err, erp.ErrBackend) {
		t.Errorf("err = %v, want ErrBackend", err)
	}
}
