/*
config.go - Expense categories and the configurable rate table

PURPOSE:
  The configuration registry maps each expense category to a percentage
  rate applied uniformly to every sale. Categories form a CLOSED set so
  unknown names are rejected at write time instead of silently accepted.

RATE BASE:
  Most categories compute on the sale price. ICMS computes on total
  supplier cost. The base is declared per category in the rate table
  rather than hard-coded in the formula, so a future category can pick
  either base without touching the aggregation.

DEFAULTS:
  royalties 7.5%, advertising 1.5%, icms 10% (cost-based), simples 4.5%,
  brokerage 3%, admin 5%. Seeded idempotently on first migration.
*/
package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATEGORIES - closed set
// =============================================================================

// Category names one percentage-based expense charged against every sale.
type Category string

const (
	CategoryRoyalties   Category = "royalties"
	CategoryAdvertising Category = "advertising"
	CategoryICMS        Category = "icms"
	CategorySimples     Category = "simples"
	CategoryBrokerage   Category = "brokerage"
	CategoryAdmin       Category = "admin"
)

// Categories returns all recognized categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryRoyalties,
		CategoryAdvertising,
		CategoryICMS,
		CategorySimples,
		CategoryBrokerage,
		CategoryAdmin,
	}
}

// Valid reports whether c is a recognized category.
func (c Category) Valid() bool {
	switch c {
	case CategoryRoyalties, CategoryAdvertising, CategoryICMS,
		CategorySimples, CategoryBrokerage, CategoryAdmin:
		return true
	}
	return false
}

// =============================================================================
// RATE TABLE
// =============================================================================

// RateBase selects which amount a category's rate multiplies.
type RateBase string

const (
	BaseSalePrice RateBase = "sale_price"
	BaseTotalCost RateBase = "total_cost"
)

// RateRule is one category's configuration: the rate and its base.
type RateRule struct {
	Rate decimal.Decimal
	Base RateBase
}

// RateTable maps every recognized category to its rule.
type RateTable map[Category]RateRule

// DefaultRates returns the seeded configuration.
func DefaultRates() RateTable {
	return RateTable{
		CategoryRoyalties:   {Rate: decimal.RequireFromString("0.075"), Base: BaseSalePrice},
		CategoryAdvertising: {Rate: decimal.RequireFromString("0.015"), Base: BaseSalePrice},
		CategoryICMS:        {Rate: decimal.RequireFromString("0.10"), Base: BaseTotalCost},
		CategorySimples:     {Rate: decimal.RequireFromString("0.045"), Base: BaseSalePrice},
		CategoryBrokerage:   {Rate: decimal.RequireFromString("0.03"), Base: BaseSalePrice},
		CategoryAdmin:       {Rate: decimal.RequireFromString("0.05"), Base: BaseSalePrice},
	}
}

// Validate rejects unknown categories, rates outside [0,1), and unknown
// bases. A table missing a recognized category is allowed; the missing
// category contributes a zero expense.
func (t RateTable) Validate() error {
	for category, rule := range t {
		if !category.Valid() {
			return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", category)}
		}
		if rule.Rate.IsNegative() || rule.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return &ValidationError{Field: "rate", Reason: fmt.Sprintf("%s rate %s outside [0,1)", category, rule.Rate)}
		}
		switch rule.Base {
		case BaseSalePrice, BaseTotalCost:
		default:
			return &ValidationError{Field: "base", Reason: fmt.Sprintf("%s has unknown base %q", category, rule.Base)}
		}
	}
	return nil
}

// ExpenseFor computes one category's expense for a sale given its price and
// total supplier cost.
func (t RateTable) ExpenseFor(category Category, salePrice, totalCost decimal.Decimal) decimal.Decimal {
	rule, ok := t[category]
	if !ok {
		return decimal.Zero
	}
	base := salePrice
	if rule.Base == BaseTotalCost {
		base = totalCost
	}
	return base.Mul(rule.Rate)
}
