package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodbahia/finance-engine/api"
	"github.com/woodbahia/finance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T, password string) *httptest.Server {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	server := httptest.NewServer(api.NewRouter(store, password))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createSale(t *testing.T, base string) int64 {
	resp := doJSON(t, http.MethodPost, base+"/api/sales", map[string]any{
		"client":     "Maria Souza",
		"date":       "2025-06-01",
		"product":    "Dining table, 8 seats",
		"sale_price": "100000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sale struct {
		ID int64 `json:"id"`
	}
	decodeInto(t, resp, &sale)
	require.Positive(t, sale.ID)
	return sale.ID
}

// =============================================================================
// SALES FLOW
// =============================================================================

func TestSalesFlow_CreateGetDelete(t *testing.T) {
	// GIVEN: A running server
	// WHEN: A sale is created, fetched and deleted
	// THEN: Each step answers with the expected status and payload

	server := newTestServer(t, "")
	saleID := createSale(t, server.URL)

	resp := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/sales/%d", server.URL, saleID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sale struct {
		Client    string          `json:"client"`
		SalePrice decimal.Decimal `json:"sale_price"`
	}
	decodeInto(t, resp, &sale)
	assert.Equal(t, "Maria Souza", sale.Client)
	assert.True(t, decimal.RequireFromString("100000").Equal(sale.SalePrice))

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/sales/%d", server.URL, saleID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/sales/%d", server.URL, saleID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateSale_ValidationFailure(t *testing.T) {
	server := newTestServer(t, "")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/sales", map[string]any{
		"client": "Maria Souza",
		"date":   "June 1st",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSaleTotals_EndToEnd(t *testing.T) {
	// GIVEN: A sale with costs entered through the API
	// WHEN: Totals are requested
	// THEN: The expense lines follow the seeded default rates

	server := newTestServer(t, "")
	saleID := createSale(t, server.URL)

	resp := doJSON(t, http.MethodPut,
		fmt.Sprintf("%s/api/sales/%d/cost", server.URL, saleID), map[string]any{
			"primary_cost":   "40000",
			"secondary_cost": "10000",
		})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/sales/%d/totals", server.URL, saleID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var totals struct {
		TotalCost     decimal.Decimal            `json:"total_cost"`
		Expenses      map[string]decimal.Decimal `json:"expenses"`
		TotalExpenses decimal.Decimal            `json:"total_expenses"`
		NetProfit     decimal.Decimal            `json:"net_profit"`
	}
	decodeInto(t, resp, &totals)
	assert.True(t, decimal.RequireFromString("50000").Equal(totals.TotalCost))
	assert.True(t, decimal.RequireFromString("5000").Equal(totals.Expenses["icms"]))
	assert.True(t, decimal.RequireFromString("26500").Equal(totals.TotalExpenses))
	assert.True(t, decimal.RequireFromString("23500").Equal(totals.NetProfit))
}

// =============================================================================
// RECEIVABLES AND LEDGER
// =============================================================================

func TestReceivablePaymentFlow(t *testing.T) {
	// GIVEN: A sale with one scheduled milestone and a bank account
	// WHEN: The milestone is paid against the account
	// THEN: The entry turns paid and the account ledger gains the credit

	server := newTestServer(t, "")
	saleID := createSale(t, server.URL)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/accounts", map[string]any{
		"name":            "Banco do Brasil",
		"opening_balance": "0",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var account struct {
		ID int64 `json:"id"`
	}
	decodeInto(t, resp, &account)

	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/sales/%d/receivables", server.URL, saleID), map[string]any{
			"description": "Entry payment",
			"expected":    "60000",
			"due_date":    "2025-07-01",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var entry struct {
		ID int64 `json:"id"`
	}
	decodeInto(t, resp, &entry)

	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/receivables/%d/payment", server.URL, entry.ID), map[string]any{
			"paid_amount": "60000",
			"paid_date":   "2025-07-01",
			"method":      "pix",
			"account_id":  account.ID,
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var paid struct {
		Status     string           `json:"status"`
		PaidAmount *decimal.Decimal `json:"paid_amount"`
	}
	decodeInto(t, resp, &paid)
	assert.Equal(t, "paid", paid.Status)
	require.NotNil(t, paid.PaidAmount)
	assert.True(t, decimal.RequireFromString("60000").Equal(*paid.PaidAmount))

	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/accounts/%d", server.URL, account.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var balance struct {
		Balance decimal.Decimal `json:"balance"`
	}
	decodeInto(t, resp, &balance)
	assert.True(t, decimal.RequireFromString("60000").Equal(balance.Balance))
}

func TestRegisterPayment_UnknownAccountConservesEntry(t *testing.T) {
	// A failing ledger step must leave the milestone pending.

	server := newTestServer(t, "")
	saleID := createSale(t, server.URL)

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/sales/%d/receivables", server.URL, saleID), map[string]any{
			"description": "Entry payment",
			"expected":    "60000",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var entry struct {
		ID int64 `json:"id"`
	}
	decodeInto(t, resp, &entry)

	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/receivables/%d/payment", server.URL, entry.ID), map[string]any{
			"paid_amount": "60000",
			"paid_date":   "2025-07-01",
			"method":      "pix",
			"account_id":  999,
		})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/sales/%d/receivables", server.URL, saleID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []struct {
		Status string `json:"status"`
	}
	decodeInto(t, resp, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "pending", entries[0].Status)
}

// =============================================================================
// DASHBOARD AND CONFIG
// =============================================================================

func TestDashboard_EmptyPortfolio(t *testing.T) {
	server := newTestServer(t, "")

	resp := doJSON(t, http.MethodGet, server.URL+"/api/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dash struct {
		TotalSales  decimal.Decimal `json:"total_sales"`
		BankBalance decimal.Decimal `json:"bank_balance"`
	}
	decodeInto(t, resp, &dash)
	assert.True(t, dash.TotalSales.IsZero())
	assert.True(t, dash.BankBalance.IsZero())
}

func TestConfig_UpdateRoundTrip(t *testing.T) {
	server := newTestServer(t, "")

	resp := doJSON(t, http.MethodPut, server.URL+"/api/config", map[string]any{
		"admin": map[string]any{"rate": "0.06", "base": "sale_price"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/config", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cfg map[string]struct {
		Rate decimal.Decimal `json:"rate"`
		Base string          `json:"base"`
	}
	decodeInto(t, resp, &cfg)
	assert.True(t, decimal.RequireFromString("0.06").Equal(cfg["admin"].Rate))
	assert.Equal(t, "total_cost", cfg["icms"].Base)
}

func TestConfig_UnknownCategoryRejected(t *testing.T) {
	server := newTestServer(t, "")

	resp := doJSON(t, http.MethodPut, server.URL+"/api/config", map[string]any{
		"fuel": map[string]any{"rate": "0.01", "base": "sale_price"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// ACCESS GATE
// =============================================================================

func TestAccessGate(t *testing.T) {
	// GIVEN: A server configured with a password
	// WHEN: Requests arrive without, with a wrong, and with the right token
	// THEN: Only the right token passes; /health stays open

	server := newTestServer(t, "s3cret")

	resp := doJSON(t, http.MethodGet, server.URL+"/api/sales", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/sales", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// RECEIPT AND BACKUP DOWNLOADS
// =============================================================================

func TestReceiptDownload(t *testing.T) {
	server := newTestServer(t, "")
	saleID := createSale(t, server.URL)

	resp := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/sales/%d/receipt", server.URL, saleID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	var head [5]byte
	_, err := io.ReadFull(resp.Body, head[:])
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(head[:]))
}

func TestBackupDownload(t *testing.T) {
	server := newTestServer(t, "")
	createSale(t, server.URL)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/backup", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
}
