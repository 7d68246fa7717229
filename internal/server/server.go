// Package server implements the HTTP API for silverbook.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eugener/silverbook/internal/app"
	"github.com/eugener/silverbook/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Services       *app.Services
	ReadyCheck     ReadyChecker       // nil = always ready (for tests)
	Metrics        *telemetry.Metrics // nil = no request metrics
	MetricsHandler http.Handler       // nil = no /metrics endpoint
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps, svc: deps.Services}

	r := chi.NewRouter()

	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(instrument(deps.Metrics))
	}

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.handleListOrders)
			r.Post("/", s.handleCreateOrder)
			r.Post("/batch", s.handleCreateOrders)
			r.Delete("/{id}", s.handleDeleteOrder)
			r.Put("/{id}/status", s.handleUpdateOrderStatus)
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/transactions", s.handleListStock)
			r.Post("/transactions", s.handleAddStock)
			r.Delete("/transactions/{id}", s.handleDeleteStock)
			r.Get("/summary", s.handleStockSummary)
			r.Get("/finished-goods", s.handleFinishedGoods)
		})

		r.Route("/rates", func(r chi.Router) {
			r.Get("/", s.handleRateHistory)
			r.Post("/", s.handleAddRate)
			r.Get("/latest", s.handleLatestRate)
			r.Delete("/{id}", s.handleDeleteRate)
		})

		r.Post("/ledger/payments", s.handleRecordPayment)
		r.Get("/ledger/statements/{partyType}/{name}", s.handleStatement)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Route("/karigars", func(r chi.Router) {
			r.Get("/", s.handleListKarigars)
			r.Post("/", s.handleCreateKarigar)
			r.Post("/{id}/settlements", s.handleSettleKarigar)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.handleListProducts)
			r.Put("/", s.handleSaveProduct)
			r.Delete("/{id}", s.handleDeleteProduct)
		})

		r.Route("/job-work-items", func(r chi.Router) {
			r.Get("/", s.handleListJobWorkItems)
			r.Put("/", s.handleSaveJobWorkItem)
			r.Delete("/{id}", s.handleDeleteJobWorkItem)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/pl", s.handleProfitAndLoss)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/gst", s.handleGST)
		})

		r.Delete("/cache", s.handleClearCache)
	})

	return r
}

type server struct {
	deps Deps
	svc  *app.Services
}
