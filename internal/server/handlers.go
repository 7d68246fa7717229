package server

import (
	"net/http"
	"strconv"

	erp "github.com/eugener/silverbook/internal"
)

// --- Orders ---

func (s *server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.svc.Orders.List(r.Context())
	respond(w, r, http.StatusOK, orders, err)
}

func (s *server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var o erp.Order
	if !decodeJSON(w, r, &o) {
		return
	}
	created, err := s.svc.Orders.Create(r.Context(), &o)
	respond(w, r, http.StatusCreated, created, err)
}

func (s *server) handleCreateOrders(w http.ResponseWriter, r *http.Request) {
	var orders []*erp.Order
	if !decodeJSON(w, r, &orders) {
		return
	}
	created, err := s.svc.Orders.CreateBatch(r.Context(), orders)
	respond(w, r, http.StatusCreated, created, err)
}

func (s *server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	noContent(w, r, s.svc.Orders.UpdateStatus(r.Context(), pathParam(r, "id"), body.Status))
}

func (s *server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, s.svc.Orders.Delete(r.Context(), pathParam(r, "id")))
}

// --- Stock ---

func (s *server) handleListStock(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.Stock.Transactions(r.Context(), r.URL.Query().Get("category"))
	respond(w, r, http.StatusOK, txs, err)
}

func (s *server) handleAddStock(w http.ResponseWriter, r *http.Request) {
	var tx erp.StockTransaction
	if !decodeJSON(w, r, &tx) {
		return
	}
	created, err := s.svc.Stock.Add(r.Context(), &tx)
	respond(w, r, http.StatusCreated, created, err)
}

func (s *server) handleDeleteStock(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, s.svc.Stock.Delete(r.Context(), pathParam(r, "id")))
}

func (s *server) handleStockSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Stock.Summary(r.Context(), r.URL.Query().Get("category"))
	respond(w, r, http.StatusOK, sum, err)
}

func (s *server) handleFinishedGoods(w http.ResponseWriter, r *http.Request) {
	goods, err := s.svc.Stock.FinishedGoods(r.Context())
	respond(w, r, http.StatusOK, goods, err)
}

// --- Rates ---

func (s *server) handleRateHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse("limit must be an integer", "invalid_request_error"))
			return
		}
		limit = n
	}
	rates, err := s.svc.Rates.History(r.Context(), limit)
	respond(w, r, http.StatusOK, rates, err)
}

func (s *server) handleLatestRate(w http.ResponseWriter, r *http.Request) {
	rate, err := s.svc.Rates.Latest(r.Context())
	respond(w, r, http.StatusOK, rate, err)
}

func (s *server) handleAddRate(w http.ResponseWriter, r *http.Request) {
	var rate erp.SilverRate
	if !decodeJSON(w, r, &rate) {
		return
	}
	created, err := s.svc.Rates.Add(r.Context(), &rate)
	respond(w, r, http.StatusCreated, created, err)
}

func (s *server) handleDeleteRate(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, s.svc.Rates.Delete(r.Context(), pathParam(r, "id")))
}

// --- Ledger ---

func (s *server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var p erp.Payment
	if !decodeJSON(w, r, &p) {
		return
	}
	created, err := s.svc.Ledger.RecordPayment(r.Context(), &p)
	respond(w, r, http.StatusCreated, created, err)
}

func (s *server) handleStatement(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Ledger.Statement(r.Context(), pathParam(r, "partyType"), pathParam(r, "name"), period(r))
	respond(w, r, http.StatusOK, st, err)
}

// --- Expenses ---

func (s *server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.svc.Expenses.List(r.Context())
	respond(w, r, http.StatusOK, expenses, err)
}

func (s *server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var e erp.Expense
	if !decodeJSON(w, r, &e) {
		return
	}
	created, err := s.svc.Expenses.Create(r.Context(), &e)
	respond(w, r, http.StatusCreated, created, err)
}

func (s *server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, s.svc.Expenses.Delete(r.Context(), pathParam(r, "id")))
}

// --- Karigars ---

func (s *server) handleListKarigars(w http.ResponseWriter, r *http.Request) {
	karigars, err := s.svc.Karigars.List(r.Context())
	respond(w, r, http.StatusOK, karigars, err)
}

func (s *server) handleCreateKarigar(w http.ResponseWriter, r *http.Request) {
	var k erp.Karigar
	if !decodeJSON(w, r, &k) {
		return
	}
	created, err := s.svc.Karigars.Create(r.Context(), &k)
	respond(w, r, http.StatusCreated, created, err)
}

func (s *server) handleSettleKarigar(w http.ResponseWriter, r *http.Request) {
	var st erp.KarigarSettlement
	if !decodeJSON(w, r, &st) {
		return
	}
	st.KarigarID = pathParam(r, "id")
	created, err := s.svc.Karigars.Settle(r.Context(), &st)
	respond(w, r, http.StatusCreated, created, err)
}

// --- Catalog ---

func (s *server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.svc.Catalog.Products(r.Context())
	respond(w, r, http.StatusOK, products, err)
}

func (s *server) handleSaveProduct(w http.ResponseWriter, r *http.Request) {
	var p erp.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	saved, err := s.svc.Catalog.SaveProduct(r.Context(), &p)
	respond(w, r, http.StatusOK, saved, err)
}

func (s *server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, s.svc.Catalog.DeleteProduct(r.Context(), pathParam(r, "id")))
}

func (s *server) handleListJobWorkItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Catalog.JobWorkItems(r.Context())
	respond(w, r, http.StatusOK, items, err)
}

func (s *server) handleSaveJobWorkItem(w http.ResponseWriter, r *http.Request) {
	var it erp.JobWorkItem
	if !decodeJSON(w, r, &it) {
		return
	}
	saved, err := s.svc.Catalog.SaveJobWorkItem(r.Context(), &it)
	respond(w, r, http.StatusOK, saved, err)
}

func (s *server) handleDeleteJobWorkItem(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, s.svc.Catalog.DeleteJobWorkItem(r.Context(), pathParam(r, "id")))
}

// --- Reports ---

func (s *server) handleProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.Reports.ProfitAndLoss(r.Context(), period(r))
	respond(w, r, http.StatusOK, rep, err)
}

func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Reports.Dashboard(r.Context())
	respond(w, r, http.StatusOK, d, err)
}

func (s *server) handleGST(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.Reports.GST(r.Context(), period(r))
	respond(w, r, http.StatusOK, g, err)
}

// --- Cache ---

func (s *server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.svc.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}
