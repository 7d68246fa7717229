package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/dnscache"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/circuitbreaker"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{URL: srv.URL, APIKey: "anon-key", Resolver: &dnscache.Resolver{}})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNew_RequiresURL(t *testing.T) {
	t.Parallel()
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestAuthHeaders(t *testing.T) {
	t.Parallel()

	t.Run("api key doubles as bearer", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("apikey"); got != "anon-key" {
				t.Errorf("apikey = %q", got)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer anon-key" {
				t.Errorf("Authorization = %q", got)
			}
			w.Write([]byte(`[]`))
		})
		if err := c.Ping(context.Background()); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("token source overrides bearer", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer service-token" {
				t.Errorf("Authorization = %q", got)
			}
			if got := r.Header.Get("apikey"); got != "anon-key" {
				t.Errorf("apikey = %q", got)
			}
			w.Write([]byte(`[]`))
		}))
		t.Cleanup(srv.Close)
		c, err := New(Options{
			URL:         srv.URL,
			APIKey:      "anon-key",
			TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "service-token"}),
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Ping(context.Background()); err != nil {
			t.Fatal(err)
		}
	})
}

func TestListOrders(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/rest/v1/orders" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("order"); got != "order_date.desc,created_at.desc" {
			t.Errorf("order = %q", got)
		}
		w.Write([]byte(`[{"id":"o1","customer_name":"Ravi","billing_type":"job_work",
			"weight_grams":"12.5","purity":925,"amount":515.25,"status":"pending",
			"order_date":"2024-04-10","created_at":"2024-04-10T09:00:00Z"}]`))
	})

	orders, err := c.ListOrders(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 {
		t.Fatalf("len = %d, want 1", len(orders))
	}
	if !orders[0].WeightGrams.Equal(decimal.RequireFromString("12.5")) ||
		!orders[0].Amount.Equal(decimal.RequireFromString("515.25")) {
		t.Errorf("order = %+v", orders[0])
	}
}

func TestCreateOrders_UsesRPC(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/v1/rpc/create_orders" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Orders []erp.Order `json:"p_orders"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(body.Orders) != 2 {
			t.Errorf("orders = %d, want 2", len(body.Orders))
		}
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.CreateOrders(context.Background(), []*erp.Order{{ID: "a"}, {ID: "b"}})
	if err != nil {
		t.Fatal(err)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, `{"message":"no such table"}`, erp.ErrNotFound},
		{"conflict", http.StatusConflict, `{"code":"23505","message":"duplicate key"}`, erp.ErrConflict},
		{"raised", http.StatusBadRequest, `{"code":"P0001","message":"insufficient stock"}`, erp.ErrBadRequest},
		{"server", http.StatusInternalServerError, `oops`, erp.ErrBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			err := c.AddRate(context.Background(), &erp.SilverRate{ID: "r1"})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status {
				t.Errorf("err = %v, want *APIError with status %d", err, tt.status)
			}
		})
	}
}

func TestMutate_EmptyResultIsNotFound(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.Header.Get("Prefer"); got != "return=representation" {
			t.Errorf("Prefer = %q", got)
		}
		if got := r.URL.Query().Get("id"); got != "eq.x1" {
			t.Errorf("id filter = %q", got)
		}
		w.Write([]byte(`[]`))
	})

	if err := c.DeleteExpense(context.Background(), "x1"); !errors.Is(err, erp.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteStockTransaction_OrderLinked(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			w.Write([]byte(`[]`))
		case http.MethodGet:
			w.Write([]byte(`[{"order_id":"o7"}]`))
		}
	})

	err := c.DeleteStockTransaction(context.Background(), "s1")
	if !errors.Is(err, erp.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestLatestRate_Empty(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "1" {
			t.Errorf("limit = %q", got)
		}
		w.Write([]byte(`[]`))
	})

	if _, err := c.LatestRate(context.Background()); !errors.Is(err, erp.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestProfitAndLoss_FinalizesLocally(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if string(b) != `{"p_start":"2024-04-01","p_end":null}` {
			t.Errorf("body = %s", b)
		}
		w.Write([]byte(`{"revenue":1000,"material_cost":400,"expenses":100,"karigar_payments":50}`))
	})

	r, err := c.ProfitAndLoss(context.Background(), erp.Period{Start: "2024-04-01"})
	if err != nil {
		t.Fatal(err)
	}
	if !r.NetProfit.Equal(decimal.NewFromInt(450)) || r.Start != "2024-04-01" {
		t.Errorf("report = %+v", r)
	}
}

func TestSaveProduct_Upserts(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.Header.Get("Prefer"); got != upsert {
			t.Errorf("Prefer = %q", got)
		}
		w.WriteHeader(http.StatusCreated)
	})

	if err := c.SaveProduct(context.Background(), &erp.Product{ID: "p1", Name: "Payal"}); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestBreaker_FailsFastWhileOpen(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	c, err := New(Options{
		URL:     srv.URL,
		APIKey:  "anon-key",
		Breaker: circuitbreaker.NewBreaker(circuitbreaker.Config{ErrorThreshold: 0.5, MinSamples: 2, WindowSeconds: 60, OpenTimeout: time.Minute}),
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for range 2 {
		if _, err := c.ListOrders(ctx); !errors.Is(err, erp.ErrBackend) {
			t.Fatalf("err = %v, want ErrBackend", err)
		}
	}
	_, err = c.ListOrders(ctx)
	if !errors.Is(err, erp.ErrBackend) || !errors.Is(err, circuitbreaker.ErrOpen) {
		t.Fatalf("err = %v, want ErrBackend wrapping ErrOpen", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server calls = %d, want 2", n)
	}
}

func TestBreaker_IgnoresNotFound(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"missing"}`))
	}))
	t.Cleanup(srv.Close)
	b := circuitbreaker.NewBreaker(circuitbreaker.Config{ErrorThreshold: 0.5, MinSamples: 2, WindowSeconds: 60, OpenTimeout: time.Minute})
	c, err := New(Options{URL: srv.URL, Breaker: b})
	if err != nil {
		t.Fatal(err)
	}

	for range 5 {
		if _, err := c.ListOrders(context.Background()); !errors.Is(err, erp.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	}
	if b.State() != circuitbreaker.StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}
