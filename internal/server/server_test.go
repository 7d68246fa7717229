package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/app"
	"github.com/eugener/silverbook/internal/cache"
	"github.com/eugener/silverbook/internal/telemetry"
	"github.com/eugener/silverbook/internal/testutil"
)

func newTestHandler(t *testing.T, deps Deps) (http.Handler, *testutil.FakeBackend) {
	t.Helper()
	c, err := cache.New(cache.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Wait)
	store := testutil.NewFakeBackend()
	deps.Services = app.New(store, c)
	return New(deps), store
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var e apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return e
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t, Deps{})

	rec := do(h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestHandler(t, Deps{ReadyCheck: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("readiness ping should be bounded by a deadline")
			}
			return nil
		}})
		rec := do(h, http.MethodGet, "/readyz", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"backend":"ok"`) {
			t.Errorf("readyz = %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("backend down", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestHandler(t, Deps{ReadyCheck: func(context.Context) error { return errors.New("dial tcp: refused") }})
		rec := do(h, http.MethodGet, "/readyz", "")
		if rec.Code != http.StatusServiceUnavailable || strings.Contains(rec.Body.String(), "refused") {
			t.Errorf("readyz = %d %s", rec.Code, rec.Body.String())
		}
		var body struct{ Status string }
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Status != "not ready" {
			t.Errorf("body = %s (%v)", rec.Body.String(), err)
		}
	})
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t, Deps{})

	rec := do(h, http.MethodGet, "/healthz", "")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("should generate a request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "caller-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "caller-42" {
		t.Errorf("request id = %q, want caller-42", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("x", maxRequestIDLen+1))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); len(got) > maxRequestIDLen {
		t.Errorf("oversized request id echoed (%d bytes)", len(got))
	}
}

func TestOrders_CreateAndList(t *testing.T) {
	t.Parallel()
	h, store := newTestHandler(t, Deps{})

	rec := do(h, http.MethodPost, "/api/orders", `{"customer_name":"Ravi","billing_type":"job_work",
		"weight_grams":"40","purity":925,"making_charge":"200"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d; body = %s", rec.Code, rec.Body.String())
	}
	var created erp.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || !created.Amount.Equal(decimal.NewFromInt(210)) {
		t.Errorf("created = %+v", created)
	}

	for range 2 {
		rec = do(h, http.MethodGet, "/api/orders", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("list: status = %d", rec.Code)
		}
	}
	var orders []erp.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &orders); err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 {
		t.Errorf("orders = %d, want 1", len(orders))
	}
	if n := store.Calls("ListOrders"); n != 1 {
		t.Errorf("ListOrders calls = %d, want 1", n)
	}

	rec = do(h, http.MethodPut, "/api/orders/"+created.ID+"/status", `{"status":"ready"}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status update = %d; body = %s", rec.Code, rec.Body.String())
	}
}

func TestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		status   int
		errType  string
		contains string
	}{
		{"validation", http.MethodPost, "/api/orders", `{"billing_type":"job_work"}`, http.StatusBadRequest, "invalid_request_error", "customer_name"},
		{"malformed body", http.MethodPost, "/api/expenses", `{`, http.StatusBadRequest, "invalid_request_error", "invalid request body"},
		{"not found", http.MethodDelete, "/api/expenses/nope", "", http.StatusNotFound, "not_found_error", "not found"},
		{"bad limit", http.MethodGet, "/api/rates?limit=ten", "", http.StatusBadRequest, "invalid_request_error", "limit"},
		{"bad party", http.MethodGet, "/api/ledger/statements/supplier/Ravi", "", http.StatusBadRequest, "invalid_request_error", "party_type"},
		{"bad period", http.MethodGet, "/api/reports/pl?start=2024-05-01&end=2024-04-01", "", http.StatusBadRequest, "invalid_request_error", "start"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, _ := newTestHandler(t, Deps{})
			rec := do(h, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.status, rec.Body.String())
			}
			e := decodeError(t, rec)
			if e.Error.Type != tt.errType || !strings.Contains(e.Error.Message, tt.contains) {
				t.Errorf("error = %+v", e.Error)
			}
		})
	}
}

func TestBackendErrorIsSanitized(t *testing.T) {
	t.Parallel()
	h, store := newTestHandler(t, Deps{})
	store.FailReads(fmt.Errorf("SELECT * FROM expenses: %w", erp.ErrBackend))

	rec := do(h, http.MethodGet, "/api/expenses", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "SELECT") {
		t.Errorf("body leaks backend detail: %s", rec.Body.String())
	}
	if e := decodeError(t, rec); e.Error.Message != "backend unavailable" {
		t.Errorf("message = %q", e.Error.Message)
	}
}

func TestConflict(t *testing.T) {
	t.Parallel()
	h, store := newTestHandler(t, Deps{})
	if err := store.CreateOrders(context.Background(), []*erp.Order{{
		ID: "o1", CustomerName: "Ravi", BillingType: erp.BillingOwnMaterial,
		WeightGrams: decimal.NewFromInt(10), Purity: 925, OrderDate: "2024-04-01",
	}}); err != nil {
		t.Fatal(err)
	}

	rec := do(h, http.MethodDelete, "/api/stock/transactions/stk-o1", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409; body = %s", rec.Code, rec.Body.String())
	}
}

func TestPaymentRefreshesStatement(t *testing.T) {
	t.Parallel()
	h, store := newTestHandler(t, Deps{})

	path := "/api/ledger/statements/customer/Ravi%20Kumar?start=2024-04-01"
	if rec := do(h, http.MethodGet, path, ""); rec.Code != http.StatusOK {
		t.Fatalf("statement: status = %d; body = %s", rec.Code, rec.Body.String())
	}

	rec := do(h, http.MethodPost, "/api/ledger/payments", `{"party_type":"customer","party_name":"Ravi Kumar",
		"direction":"in","amount":"250","paid_at":"2024-04-02"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment: status = %d; body = %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodGet, path, "")
	var st erp.Statement
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.PartyName != "Ravi Kumar" || len(st.Lines) != 1 || !st.Closing.Equal(decimal.NewFromInt(-250)) {
		t.Errorf("statement = %+v", st)
	}
	if n := store.Calls("StatementLines"); n != 2 {
		t.Errorf("StatementLines calls = %d, want 2", n)
	}
}

func TestClearCache(t *testing.T) {
	t.Parallel()
	h, store := newTestHandler(t, Deps{})

	do(h, http.MethodGet, "/api/karigars", "")
	if rec := do(h, http.MethodDelete, "/api/cache", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("clear: status = %d", rec.Code)
	}
	do(h, http.MethodGet, "/api/karigars", "")
	if n := store.Calls("ListKarigars"); n != 2 {
		t.Errorf("ListKarigars calls = %d, want 2", n)
	}
}

func TestCatalogAndSettlementRoutes(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t, Deps{})

	if rec := do(h, http.MethodPut, "/api/products", `{"name":"Payal","making_charge":"300"}`); rec.Code != http.StatusOK {
		t.Errorf("save product: status = %d; body = %s", rec.Code, rec.Body.String())
	}
	if rec := do(h, http.MethodPut, "/api/job-work-items", `{"name":"Polish","rate_per_gram":"2"}`); rec.Code != http.StatusOK {
		t.Errorf("save job work item: status = %d; body = %s", rec.Code, rec.Body.String())
	}

	rec := do(h, http.MethodPost, "/api/karigars", `{"name":"Mohan","balance":"1000"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create karigar: status = %d; body = %s", rec.Code, rec.Body.String())
	}
	var k erp.Karigar
	if err := json.Unmarshal(rec.Body.Bytes(), &k); err != nil {
		t.Fatal(err)
	}
	rec = do(h, http.MethodPost, "/api/karigars/"+k.ID+"/settlements", `{"amount":"400"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("settle: status = %d; body = %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodGet, "/api/karigars", "")
	var list []erp.Karigar
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || !list[0].Balance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("karigars = %+v", list)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	h, _ := newTestHandler(t, Deps{
		Metrics:        telemetry.NewMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	if rec := do(h, http.MethodDelete, "/api/orders/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/no/such/route", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unrouted: status = %d", rec.Code)
	}

	rec := do(h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "silverbook_requests_total") {
		t.Error("metrics should contain silverbook_requests_total")
	}
	if !strings.Contains(body, `path="/api/orders/{id}"`) {
		t.Error("request metrics should be labeled with the route pattern")
	}
	if strings.Contains(body, "/no/such/route") || !strings.Contains(body, `path="unmatched"`) {
		t.Error("unrouted requests should share the unmatched label")
	}
}

func TestRequestLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{"/api/orders", 200, slog.LevelInfo},
		{"/api/orders", 404, slog.LevelWarn},
		{"/api/orders", 502, slog.LevelError},
		{"/healthz", 200, slog.LevelDebug},
		{"/readyz", 503, slog.LevelError},
	}
	for _, tt := range tests {
		if got := requestLevel(tt.path, tt.status); got != tt.want {
			t.Errorf("requestLevel(%q, %d) = %v, want %v", tt.path, tt.status, got, tt.want)
		}
	}
}
