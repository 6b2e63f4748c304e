/*
aggregate.go - Per-sale and portfolio financial totals

PURPOSE:
  Pure computation: given the rows belonging to a sale (or to the whole
  portfolio) and the rate table, derive every financial total the
  dashboard and the receipt display. No side effects, no caching -
  results are recomputed from current rows on every call, so they always
  reflect the latest committed writes.

PER-SALE DECOMPOSITION (exact, no rounding drift):
  total_cost     = primary_cost + secondary_cost
  cost_paid      = sum of supplier payments per role
  cost_pending   = total_cost - cost_paid
  expense[c]     = rate[c] * (sale_price | total_cost, per category base)
  total_received = sum of paid amounts on paid schedule entries
  gross_profit   = sale_price - total_cost
  net_profit     = gross_profit - total_expenses

PORTFOLIO:
  Sums per-sale totals, adds the bank balance (independent of sales), and
  derives realized/pending credit and debit positions plus the projected
  final balance.

RATIONALE for recompute-from-scratch: the dataset is one small business;
a single formula path beats incremental maintenance and its staleness
risk.
*/
package finance

import "github.com/shopspring/decimal"

// =============================================================================
// SALE TOTALS
// =============================================================================

// SaleDataset is everything ComputeSaleTotals needs, already loaded.
type SaleDataset struct {
	Sale             Sale
	Cost             CostRecord
	Receivables      []ReceivableEntry
	SupplierPayments []SupplierPayment
	ExpensePayments  []ExpensePayment
	Rates            RateTable
}

// SaleTotals is the full financial snapshot of one sale.
type SaleTotals struct {
	Sale Sale

	TotalCost   decimal.Decimal
	CostPaid    decimal.Decimal
	CostPending decimal.Decimal

	PrimaryCost   decimal.Decimal
	PrimaryPaid   decimal.Decimal
	SecondaryCost decimal.Decimal
	SecondaryPaid decimal.Decimal

	Expenses       map[Category]decimal.Decimal
	TotalExpenses  decimal.Decimal
	ExpensesPaid   map[Category]decimal.Decimal
	TotalExpPaid   decimal.Decimal
	ExpenseBalance decimal.Decimal

	TotalReceived     decimal.Decimal
	ReceivableBalance decimal.Decimal

	GrossProfit decimal.Decimal
	NetProfit   decimal.Decimal
}

// ComputeSaleTotals derives the financial snapshot of one sale.
func ComputeSaleTotals(d SaleDataset) SaleTotals {
	totalCost := d.Cost.Total()

	primaryPaid, secondaryPaid := decimal.Zero, decimal.Zero
	for _, p := range d.SupplierPayments {
		switch p.Role {
		case SupplierPrimary:
			primaryPaid = primaryPaid.Add(p.Amount)
		case SupplierSecondary:
			secondaryPaid = secondaryPaid.Add(p.Amount)
		}
	}
	costPaid := primaryPaid.Add(secondaryPaid)

	expenses := make(map[Category]decimal.Decimal, len(Categories()))
	totalExpenses := decimal.Zero
	for _, category := range Categories() {
		expense := d.Rates.ExpenseFor(category, d.Sale.SalePrice, totalCost)
		expenses[category] = expense
		totalExpenses = totalExpenses.Add(expense)
	}

	totalReceived := decimal.Zero
	for _, entry := range d.Receivables {
		if entry.Status == ReceivablePaid && entry.PaidAmount != nil {
			totalReceived = totalReceived.Add(*entry.PaidAmount)
		}
	}

	expensesPaid := make(map[Category]decimal.Decimal)
	totalExpPaid := decimal.Zero
	for _, p := range d.ExpensePayments {
		expensesPaid[p.Category] = expensesPaid[p.Category].Add(p.Amount)
		totalExpPaid = totalExpPaid.Add(p.Amount)
	}

	grossProfit := d.Sale.SalePrice.Sub(totalCost)

	return SaleTotals{
		Sale: d.Sale,

		TotalCost:   totalCost,
		CostPaid:    costPaid,
		CostPending: totalCost.Sub(costPaid),

		PrimaryCost:   d.Cost.PrimaryCost,
		PrimaryPaid:   primaryPaid,
		SecondaryCost: d.Cost.SecondaryCost,
		SecondaryPaid: secondaryPaid,

		Expenses:       expenses,
		TotalExpenses:  totalExpenses,
		ExpensesPaid:   expensesPaid,
		TotalExpPaid:   totalExpPaid,
		ExpenseBalance: totalExpenses.Sub(totalExpPaid),

		TotalReceived:     totalReceived,
		ReceivableBalance: d.Sale.SalePrice.Sub(totalReceived),

		GrossProfit: grossProfit,
		NetProfit:   grossProfit.Sub(totalExpenses),
	}
}

// =============================================================================
// PORTFOLIO TOTALS
// =============================================================================

// PortfolioTotals aggregates every sale plus the bank position.
type PortfolioTotals struct {
	TotalSales    decimal.Decimal
	TotalCost     decimal.Decimal
	TotalExpenses decimal.Decimal
	GrossProfit   decimal.Decimal
	NetProfit     decimal.Decimal
	ProfitMargin  decimal.Decimal // percent; zero when there are no sales

	BankBalance decimal.Decimal

	CreditsRealized decimal.Decimal
	CreditsPending  decimal.Decimal

	DebitsPaidCost     decimal.Decimal
	DebitsPaidExpense  decimal.Decimal
	TotalPaid          decimal.Decimal
	DebitsPendingCost  decimal.Decimal
	DebitsPendingExp   decimal.Decimal
	TotalPending       decimal.Decimal

	CashRealizedBalance decimal.Decimal
	FutureBalance       decimal.Decimal

	TotalAvailable         decimal.Decimal
	FinalBalanceProjection decimal.Decimal
}

// ReducePortfolio folds per-sale totals into portfolio totals. The bank
// balance is supplied separately because it exists independently of sales:
// with zero sales every other field is zero but the bank balance stands.
func ReducePortfolio(sales []SaleTotals, bankBalance decimal.Decimal) PortfolioTotals {
	t := PortfolioTotals{BankBalance: bankBalance}

	for _, s := range sales {
		t.TotalSales = t.TotalSales.Add(s.Sale.SalePrice)
		t.TotalCost = t.TotalCost.Add(s.TotalCost)
		t.TotalExpenses = t.TotalExpenses.Add(s.TotalExpenses)
		t.CreditsRealized = t.CreditsRealized.Add(s.TotalReceived)
		t.DebitsPaidCost = t.DebitsPaidCost.Add(s.CostPaid)
		t.DebitsPaidExpense = t.DebitsPaidExpense.Add(s.TotalExpPaid)
	}

	t.GrossProfit = t.TotalSales.Sub(t.TotalCost)
	t.NetProfit = t.GrossProfit.Sub(t.TotalExpenses)
	if t.TotalSales.IsPositive() {
		t.ProfitMargin = t.NetProfit.Div(t.TotalSales).Mul(decimal.NewFromInt(100))
	}

	t.CreditsPending = t.TotalSales.Sub(t.CreditsRealized)
	t.TotalPaid = t.DebitsPaidCost.Add(t.DebitsPaidExpense)
	t.DebitsPendingCost = t.TotalCost.Sub(t.DebitsPaidCost)
	t.DebitsPendingExp = t.TotalExpenses.Sub(t.DebitsPaidExpense)
	t.TotalPending = t.DebitsPendingCost.Add(t.DebitsPendingExp)

	t.CashRealizedBalance = t.CreditsRealized.Sub(t.TotalPaid)
	t.FutureBalance = t.CreditsPending.Sub(t.TotalPending)

	t.TotalAvailable = t.BankBalance.Add(t.CreditsPending)
	t.FinalBalanceProjection = t.TotalAvailable.Sub(t.TotalPending)

	return t
}
