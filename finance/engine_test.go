package finance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodbahia/finance-engine/finance"
	"github.com/woodbahia/finance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*finance.Engine, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return finance.NewEngine(store), store
}

// =============================================================================
// ENGINE OVER THE REAL STORE
// =============================================================================

func TestEngine_SaleTotals_ReflectsCurrentRows(t *testing.T) {
	// GIVEN: A sale whose costs and payments change over time
	// WHEN: Totals are requested after each write
	// THEN: Every call reflects the latest committed rows, nothing cached

	engine, store := newTestEngine(t)
	ctx := context.Background()

	sale, err := store.CreateSale(ctx, testSale("100000"))
	require.NoError(t, err)

	totals, err := engine.SaleTotals(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, totals.TotalCost.IsZero())
	assert.True(t, dec("100000").Equal(totals.GrossProfit))

	require.NoError(t, store.UpdateCost(ctx, sale.ID, dec("40000"), dec("10000")))

	totals, err = engine.SaleTotals(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, dec("50000").Equal(totals.TotalCost))
	assert.True(t, dec("26500").Equal(totals.TotalExpenses),
		"seeded default rates drive the expense lines")
	assert.True(t, dec("23500").Equal(totals.NetProfit))
}

func TestEngine_SaleTotals_UnknownSale(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.SaleTotals(context.Background(), 999)
	assert.ErrorIs(t, err, finance.ErrNotFound)
}

func TestEngine_PortfolioTotals_BankBalanceWithoutSales(t *testing.T) {
	// GIVEN: Money in the bank and no sales at all
	// WHEN: Portfolio totals are computed
	// THEN: The bank-derived figures stand while sale figures stay zero

	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := store.CreateBankAccount(ctx, "Caixa", "", "", dec("12000"))
	require.NoError(t, err)

	totals, err := engine.PortfolioTotals(ctx)
	require.NoError(t, err)
	assert.True(t, totals.TotalSales.IsZero())
	assert.True(t, dec("12000").Equal(totals.BankBalance))
	assert.True(t, dec("12000").Equal(totals.FinalBalanceProjection))
}

func TestEngine_PortfolioTotals_SpansSales(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	saleA, err := store.CreateSale(ctx, testSale("100000"))
	require.NoError(t, err)
	require.NoError(t, store.UpdateCost(ctx, saleA.ID, dec("40000"), dec("10000")))

	saleB, err := store.CreateSale(ctx, testSale("50000"))
	require.NoError(t, err)
	require.NoError(t, store.UpdateCost(ctx, saleB.ID, dec("20000"), dec("0")))

	totals, err := engine.PortfolioTotals(ctx)
	require.NoError(t, err)
	assert.True(t, dec("150000").Equal(totals.TotalSales))
	assert.True(t, dec("70000").Equal(totals.TotalCost))
	assert.True(t, dec("80000").Equal(totals.GrossProfit))
	assert.True(t, totals.CreditsRealized.Add(totals.CreditsPending).Equal(totals.TotalSales))
}
