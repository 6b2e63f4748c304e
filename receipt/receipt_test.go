package receipt_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodbahia/finance-engine/finance"
	"github.com/woodbahia/finance-engine/receipt"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testTotals() finance.SaleTotals {
	return finance.ComputeSaleTotals(finance.SaleDataset{
		Sale: finance.Sale{
			ID:        7,
			Client:    "Maria Souza",
			Phone:     "(71) 99999-0000",
			Date:      time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
			Product:   "Dining table, 8 seats",
			SalePrice: dec("100000"),
		},
		Cost:        finance.CostRecord{SaleID: 7, PrimaryCost: dec("40000"), SecondaryCost: dec("10000")},
		Receivables: testSchedule(),
		Rates:       finance.DefaultRates(),
	})
}

func testSchedule() []finance.ReceivableEntry {
	paid := dec("60000")
	paidDate := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	return []finance.ReceivableEntry{
		{
			ID: 1, SaleID: 7, Description: "Entry payment", Expected: dec("60000"),
			Status: finance.ReceivablePaid, PaidAmount: &paid, PaidDate: &paidDate, Method: "pix",
		},
		{
			ID: 2, SaleID: 7, Description: "Final payment", Expected: dec("40000"),
			Status: finance.ReceivablePending,
		},
	}
}

func TestRender_ProducesPDF(t *testing.T) {
	// GIVEN: A sale with one paid and one pending milestone
	// WHEN: The receipt is rendered
	// THEN: The output is a non-trivial PDF document

	var buf bytes.Buffer
	err := receipt.Render(&buf, receipt.DefaultCompany, testTotals(), testSchedule())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestRender_NoPaidEntries(t *testing.T) {
	// A receipt with nothing received yet still renders cleanly.

	totals := testTotals()
	totals.TotalReceived = decimal.Zero

	var buf bytes.Buffer
	err := receipt.Render(&buf, receipt.DefaultCompany, totals, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "R$ 0,00"},
		{"1234.5", "R$ 1.234,50"},
		{"1000000", "R$ 1.000.000,00"},
		{"-99.9", "-R$ 99,90"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, receipt.FormatBRL(dec(tc.in)), tc.in)
	}
}
