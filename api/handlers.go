/*
handlers.go - HTTP request handlers

PURPOSE:
  Implements the handler functions behind every API route. Each handler
  decodes and validates its request, delegates to the store or the
  computation engine, and writes a JSON response.

ERROR MAPPING:
  - finance.ErrNotFound           -> 404
  - finance.ErrValidation         -> 400
  - finance.ErrIntegrityViolation -> 409
  - anything else                 -> 500

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Route table
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/woodbahia/finance-engine/finance"
	"github.com/woodbahia/finance-engine/receipt"
	"github.com/woodbahia/finance-engine/store/sqlite"
)

// Handler carries the dependencies shared by every route.
type Handler struct {
	store    *sqlite.Store
	engine   *finance.Engine
	validate *validator.Validate
}

// NewHandler wires a handler set around the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		store:    store,
		engine:   finance.NewEngine(store),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("api: encode response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, finance.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, finance.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, finance.ErrIntegrityViolation):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf("api: internal error: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// decode unmarshals the body into req and runs struct validation.
func (h *Handler) decode(r *http.Request, req any) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// parseDate assumes the validator already checked the layout.
func parseDate(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

func parseDatePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseDate(s)
	return &t
}

// =============================================================================
// DASHBOARD
// =============================================================================

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	totals, err := h.engine.PortfolioTotals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPortfolioTotalsDTO(*totals))
}

// =============================================================================
// SALES
// =============================================================================

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.store.ListSales(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]SaleDTO, 0, len(sales))
	for _, s := range sales {
		out = append(out, toSaleDTO(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	sale, err := h.store.CreateSale(r.Context(), finance.Sale{
		Client:       req.Client,
		Phone:        req.Phone,
		Email:        req.Email,
		Date:         parseDate(req.Date),
		Product:      req.Product,
		SalePrice:    req.SalePrice,
		FreightPrice: req.FreightPrice,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(*sale))
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	sale, err := h.store.GetSale(r.Context(), finance.SaleID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(*sale))
}

func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.store.DeleteSale(r.Context(), finance.SaleID(id)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) getSaleTotals(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	totals, err := h.engine.SaleTotals(r.Context(), finance.SaleID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleTotalsDTO(*totals))
}

func (h *Handler) getSaleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	totals, err := h.engine.SaleTotals(r.Context(), finance.SaleID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	schedule, err := h.store.ReceivablesBySale(r.Context(), finance.SaleID(id))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="receipt-sale-%d.pdf"`, id))
	if err := receipt.Render(w, receipt.DefaultCompany, *totals, schedule); err != nil {
		log.Printf("api: render receipt for sale %d: %v", id, err)
	}
}

// =============================================================================
// COSTS
// =============================================================================

func (h *Handler) getCost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	cost, err := h.store.GetCost(r.Context(), finance.SaleID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CostDTO{
		SaleID:        int64(cost.SaleID),
		PrimaryCost:   cost.PrimaryCost,
		SecondaryCost: cost.SecondaryCost,
	})
}

func (h *Handler) updateCost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req UpdateCostRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.store.UpdateCost(r.Context(), finance.SaleID(id), req.PrimaryCost, req.SecondaryCost); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// SUPPLIER PAYMENTS
// =============================================================================

func (h *Handler) listSupplierPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	payments, err := h.store.SupplierPaymentsBySale(r.Context(), finance.SaleID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]SupplierPaymentDTO, 0, len(payments))
	for _, p := range payments {
		out = append(out, SupplierPaymentDTO{
			ID:     int64(p.ID),
			SaleID: int64(p.SaleID),
			Role:   string(p.Role),
			Amount: p.Amount,
			Date:   p.Date.Format(dateLayout),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) addSupplierPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req CreateSupplierPaymentRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	paymentID, err := h.store.AddSupplierPayment(r.Context(), finance.SupplierPayment{
		SaleID: finance.SaleID(id),
		Role:   finance.SupplierRole(req.Role),
		Amount: req.Amount,
		Date:   parseDate(req.Date),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": int64(paymentID)})
}

func (h *Handler) deleteSupplierPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.store.DeleteSupplierPayment(r.Context(), finance.PaymentID(id)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// EXPENSE PAYMENTS
// =============================================================================

func (h *Handler) listExpensePayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	payments, err := h.store.ExpensePaymentsBySale(r.Context(), finance.SaleID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]ExpensePaymentDTO, 0, len(payments))
	for _, p := range payments {
		out = append(out, ExpensePaymentDTO{
			ID:       int64(p.ID),
			SaleID:   int64(p.SaleID),
			Category: string(p.Category),
			Amount:   p.Amount,
			Date:     p.Date.Format(dateLayout),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) addExpensePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req CreateExpensePaymentRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	paymentID, err := h.store.AddExpensePayment(r.Context(), finance.ExpensePayment{
		SaleID:   finance.SaleID(id),
		Category: finance.Category(req.Category),
		Amount:   req.Amount,
		Date:     parseDate(req.Date),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": int64(paymentID)})
}

func (h *Handler) deleteExpensePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.store.DeleteExpensePayment(r.Context(), finance.PaymentID(id)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// RECEIVABLES
// =============================================================================

func (h *Handler) listReceivables(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	entries, err := h.store.ReceivablesBySale(r.Context(), finance.SaleID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]ReceivableDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toReceivableDTO(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) addReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req CreateReceivableRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	entryID, err := h.store.AddReceivable(r.Context(), finance.ReceivableEntry{
		SaleID:      finance.SaleID(id),
		Description: req.Description,
		Expected:    req.Expected,
		DueDate:     parseDatePtr(req.DueDate),
		Status:      finance.ReceivablePending,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": int64(entryID)})
}

func (h *Handler) updateReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req UpdateReceivableRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	err = h.store.UpdateReceivable(r.Context(), finance.EntryID(id),
		req.Description, req.Expected, parseDatePtr(req.DueDate))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) deleteReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.store.DeleteReceivable(r.Context(), finance.EntryID(id)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) registerReceivablePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req RegisterPaymentRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	var accountID *finance.AccountID
	if req.AccountID != nil {
		v := finance.AccountID(*req.AccountID)
		accountID = &v
	}
	err = h.store.RegisterReceivablePayment(r.Context(), finance.EntryID(id),
		req.PaidAmount, parseDate(req.PaidDate), req.Method, accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.store.GetReceivable(r.Context(), finance.EntryID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceivableDTO(*entry))
}

// =============================================================================
// DELIVERIES
// =============================================================================

func (h *Handler) getDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	delivery, err := h.store.GetDelivery(r.Context(), finance.SaleID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliveryDTO(*delivery))
}

func (h *Handler) updateDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req UpdateDeliveryRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	err = h.store.UpdateDelivery(r.Context(), finance.DeliveryRecord{
		SaleID:  finance.SaleID(id),
		Status:  finance.DeliveryStatus(req.Status),
		Address: req.Address,
		Date:    parseDatePtr(req.Date),
		Notes:   req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// BANK ACCOUNTS AND TRANSACTIONS
// =============================================================================

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	balances, err := h.store.AccountBalances(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]AccountDTO, 0, len(balances))
	for _, b := range balances {
		balance := b.Balance
		out = append(out, toAccountDTO(b.Account, &balance))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	account, err := h.store.CreateBankAccount(r.Context(),
		req.Name, req.Branch, req.Number, req.OpeningBalance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(*account, nil))
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	account, err := h.store.GetBankAccount(r.Context(), finance.AccountID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	balance, err := h.store.AccountBalance(r.Context(), finance.AccountID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account, &balance))
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	transactions, err := h.store.TransactionsByAccount(r.Context(), finance.AccountID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]TransactionDTO, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) addTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req CreateTransactionRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	txID, err := h.store.AddBankTransaction(r.Context(), finance.BankTransaction{
		AccountID:   finance.AccountID(id),
		Date:        parseDate(req.Date),
		Direction:   finance.Direction(req.Direction),
		Description: req.Description,
		Amount:      req.Amount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": int64(txID)})
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.store.ReverseBankTransaction(r.Context(), finance.TransactionID(id)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	rates, err := h.store.GetRates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(rates))
}

func (h *Handler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := h.store.SaveRates(r.Context(), req.toRateTable()); err != nil {
		writeError(w, err)
		return
	}
	rates, err := h.store.GetRates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(rates))
}

// =============================================================================
// BACKUP
// =============================================================================

func (h *Handler) downloadBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "finance-backup-*")
	if err != nil {
		writeError(w, err)
		return
	}
	defer os.RemoveAll(dir)

	// VACUUM INTO refuses to overwrite, so the target must not exist yet.
	path := filepath.Join(dir, fmt.Sprintf("finance-%s.db", time.Now().Format("20060102-150405")))
	if err := h.store.BackupTo(r.Context(), path); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(path)))
	http.ServeFile(w, r, path)
}
