/*
engine.go - Aggregation engine over the store interfaces

PURPOSE:
  Loads a sale's rows (or the whole portfolio) from the store and runs the
  pure computations of aggregate.go over them. The store is accessed
  through the narrow Reader interface so any implementation can back it.

STATELESSNESS:
  The engine holds no state between calls: no caches, no memoized totals.
  Every call reads current rows and recomputes.
*/
package finance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Reader is the read surface the aggregation engine needs.
type Reader interface {
	GetSale(ctx context.Context, id SaleID) (*Sale, error)
	ListSales(ctx context.Context) ([]Sale, error)
	GetCost(ctx context.Context, saleID SaleID) (*CostRecord, error)
	ReceivablesBySale(ctx context.Context, saleID SaleID) ([]ReceivableEntry, error)
	SupplierPaymentsBySale(ctx context.Context, saleID SaleID) ([]SupplierPayment, error)
	ExpensePaymentsBySale(ctx context.Context, saleID SaleID) ([]ExpensePayment, error)
	TotalBankBalance(ctx context.Context) (decimal.Decimal, error)
	GetRates(ctx context.Context) (RateTable, error)
}

// Engine computes financial totals from current store state.
type Engine struct {
	store Reader
}

// NewEngine creates an aggregation engine over the given store.
func NewEngine(store Reader) *Engine {
	return &Engine{store: store}
}

// SaleTotals computes the financial snapshot of one sale. Fails with
// ErrNotFound if the sale or its cost record is missing.
func (e *Engine) SaleTotals(ctx context.Context, id SaleID) (*SaleTotals, error) {
	dataset, err := e.loadSale(ctx, id)
	if err != nil {
		return nil, err
	}
	totals := ComputeSaleTotals(*dataset)
	return &totals, nil
}

// PortfolioTotals computes dashboard totals over every sale. With zero
// sales every numeric field is zero except the bank balance, which exists
// independently of sales.
func (e *Engine) PortfolioTotals(ctx context.Context) (*PortfolioTotals, error) {
	bankBalance, err := e.store.TotalBankBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("bank balance: %w", err)
	}

	sales, err := e.store.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	perSale := make([]SaleTotals, 0, len(sales))
	for _, sale := range sales {
		dataset, err := e.loadSale(ctx, sale.ID)
		if err != nil {
			return nil, err
		}
		perSale = append(perSale, ComputeSaleTotals(*dataset))
	}

	totals := ReducePortfolio(perSale, bankBalance)
	return &totals, nil
}

func (e *Engine) loadSale(ctx context.Context, id SaleID) (*SaleDataset, error) {
	sale, err := e.store.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	cost, err := e.store.GetCost(ctx, id)
	if err != nil {
		return nil, err
	}
	receivables, err := e.store.ReceivablesBySale(ctx, id)
	if err != nil {
		return nil, err
	}
	supplierPayments, err := e.store.SupplierPaymentsBySale(ctx, id)
	if err != nil {
		return nil, err
	}
	expensePayments, err := e.store.ExpensePaymentsBySale(ctx, id)
	if err != nil {
		return nil, err
	}
	rates, err := e.store.GetRates(ctx)
	if err != nil {
		return nil, err
	}

	return &SaleDataset{
		Sale:             *sale,
		Cost:             *cost,
		Receivables:      receivables,
		SupplierPayments: supplierPayments,
		ExpensePayments:  expensePayments,
		Rates:            rates,
	}, nil
}
