/*
server.go - HTTP server and route table

PURPOSE:
  Builds the chi router with middleware, the optional access gate, and
  the full route table, and wraps it in an http.Server with sane
  timeouts.

ROUTES:
  /api/dashboard                        GET
  /api/sales                            GET, POST
  /api/sales/{id}                       GET, DELETE
  /api/sales/{id}/totals                GET
  /api/sales/{id}/receipt               GET
  /api/sales/{id}/cost                  GET, PUT
  /api/sales/{id}/delivery              GET, PUT
  /api/sales/{id}/supplier-payments     GET, POST
  /api/sales/{id}/expense-payments      GET, POST
  /api/sales/{id}/receivables           GET, POST
  /api/supplier-payments/{id}           DELETE
  /api/expense-payments/{id}            DELETE
  /api/receivables/{id}                 PUT, DELETE
  /api/receivables/{id}/payment         POST
  /api/accounts                         GET, POST
  /api/accounts/{id}                    GET
  /api/accounts/{id}/transactions       GET, POST
  /api/transactions/{id}                DELETE
  /api/config                           GET, PUT
  /api/backup                           GET

SEE ALSO:
  - handlers.go: Handler implementations
*/
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/woodbahia/finance-engine/store/sqlite"
)

// NewServer builds the HTTP server. An empty password disables the
// access gate.
func NewServer(addr string, store *sqlite.Store, password string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewRouter(store, password),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// NewRouter builds the route table around a fresh handler set.
func NewRouter(store *sqlite.Store, password string) http.Handler {
	h := NewHandler(store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		if password != "" {
			r.Use(requireToken(password))
		}

		r.Get("/dashboard", h.getDashboard)

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.listSales)
			r.Post("/", h.createSale)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getSale)
				r.Delete("/", h.deleteSale)
				r.Get("/totals", h.getSaleTotals)
				r.Get("/receipt", h.getSaleReceipt)

				r.Get("/cost", h.getCost)
				r.Put("/cost", h.updateCost)

				r.Get("/delivery", h.getDelivery)
				r.Put("/delivery", h.updateDelivery)

				r.Get("/supplier-payments", h.listSupplierPayments)
				r.Post("/supplier-payments", h.addSupplierPayment)

				r.Get("/expense-payments", h.listExpensePayments)
				r.Post("/expense-payments", h.addExpensePayment)

				r.Get("/receivables", h.listReceivables)
				r.Post("/receivables", h.addReceivable)
			})
		})

		r.Delete("/supplier-payments/{id}", h.deleteSupplierPayment)
		r.Delete("/expense-payments/{id}", h.deleteExpensePayment)

		r.Route("/receivables/{id}", func(r chi.Router) {
			r.Put("/", h.updateReceivable)
			r.Delete("/", h.deleteReceivable)
			r.Post("/payment", h.registerReceivablePayment)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.listAccounts)
			r.Post("/", h.createAccount)
			r.Get("/{id}", h.getAccount)
			r.Get("/{id}/transactions", h.listTransactions)
			r.Post("/{id}/transactions", h.addTransaction)
		})
		r.Delete("/transactions/{id}", h.deleteTransaction)

		r.Get("/config", h.getConfig)
		r.Put("/config", h.updateConfig)

		r.Get("/backup", h.downloadBackup)
	})

	return r
}

// requireToken gates every request behind a shared bearer password.
func requireToken(password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(password)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
