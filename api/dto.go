/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  them through the shared validator before touching the domain. The domain
  re-validates closed sets and amounts on its own.

SEE ALSO:
  - handlers.go: Uses these types
  - finance/types.go: Domain entities these map to
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/woodbahia/finance-engine/finance"
)

const dateLayout = "2006-01-02"

// =============================================================================
// SALES
// =============================================================================

// SaleDTO represents a sale in API responses.
type SaleDTO struct {
	ID           int64           `json:"id"`
	Client       string          `json:"client"`
	Phone        string          `json:"phone,omitempty"`
	Email        string          `json:"email,omitempty"`
	Date         string          `json:"date"`
	Product      string          `json:"product"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	FreightPrice decimal.Decimal `json:"freight_price"`
}

func toSaleDTO(s finance.Sale) SaleDTO {
	return SaleDTO{
		ID:           int64(s.ID),
		Client:       s.Client,
		Phone:        s.Phone,
		Email:        s.Email,
		Date:         s.Date.Format(dateLayout),
		Product:      s.Product,
		SalePrice:    s.SalePrice,
		FreightPrice: s.FreightPrice,
	}
}

// CreateSaleRequest is the request to register a sale.
type CreateSaleRequest struct {
	Client       string          `json:"client" validate:"required"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email" validate:"omitempty,email"`
	Date         string          `json:"date" validate:"required,datetime=2006-01-02"`
	Product      string          `json:"product" validate:"required"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	FreightPrice decimal.Decimal `json:"freight_price"`
}

// SaleTotalsDTO is the financial snapshot of one sale.
type SaleTotalsDTO struct {
	Sale SaleDTO `json:"sale"`

	TotalCost   decimal.Decimal `json:"total_cost"`
	CostPaid    decimal.Decimal `json:"cost_paid"`
	CostPending decimal.Decimal `json:"cost_pending"`

	PrimaryCost   decimal.Decimal `json:"primary_cost"`
	PrimaryPaid   decimal.Decimal `json:"primary_paid"`
	SecondaryCost decimal.Decimal `json:"secondary_cost"`
	SecondaryPaid decimal.Decimal `json:"secondary_paid"`

	Expenses       map[string]decimal.Decimal `json:"expenses"`
	TotalExpenses  decimal.Decimal            `json:"total_expenses"`
	ExpensesPaid   map[string]decimal.Decimal `json:"expenses_paid"`
	TotalExpPaid   decimal.Decimal            `json:"total_expenses_paid"`
	ExpenseBalance decimal.Decimal            `json:"expense_balance"`

	TotalReceived     decimal.Decimal `json:"total_received"`
	ReceivableBalance decimal.Decimal `json:"receivable_balance"`

	GrossProfit decimal.Decimal `json:"gross_profit"`
	NetProfit   decimal.Decimal `json:"net_profit"`
}

func toSaleTotalsDTO(t finance.SaleTotals) SaleTotalsDTO {
	return SaleTotalsDTO{
		Sale:           toSaleDTO(t.Sale),
		TotalCost:      t.TotalCost,
		CostPaid:       t.CostPaid,
		CostPending:    t.CostPending,
		PrimaryCost:    t.PrimaryCost,
		PrimaryPaid:    t.PrimaryPaid,
		SecondaryCost:  t.SecondaryCost,
		SecondaryPaid:  t.SecondaryPaid,
		Expenses:       categoryMap(t.Expenses),
		TotalExpenses:  t.TotalExpenses,
		ExpensesPaid:   categoryMap(t.ExpensesPaid),
		TotalExpPaid:   t.TotalExpPaid,
		ExpenseBalance: t.ExpenseBalance,

		TotalReceived:     t.TotalReceived,
		ReceivableBalance: t.ReceivableBalance,

		GrossProfit: t.GrossProfit,
		NetProfit:   t.NetProfit,
	}
}

func categoryMap(m map[finance.Category]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for category, amount := range m {
		out[string(category)] = amount
	}
	return out
}

// PortfolioTotalsDTO is the dashboard payload.
type PortfolioTotalsDTO struct {
	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	ProfitMargin  decimal.Decimal `json:"profit_margin_pct"`

	BankBalance decimal.Decimal `json:"bank_balance"`

	CreditsRealized decimal.Decimal `json:"credits_realized"`
	CreditsPending  decimal.Decimal `json:"credits_pending"`

	DebitsPaidCost    decimal.Decimal `json:"debits_paid_cost"`
	DebitsPaidExpense decimal.Decimal `json:"debits_paid_expense"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	DebitsPendingCost decimal.Decimal `json:"debits_pending_cost"`
	DebitsPendingExp  decimal.Decimal `json:"debits_pending_expense"`
	TotalPending      decimal.Decimal `json:"total_pending"`

	CashRealizedBalance decimal.Decimal `json:"cash_realized_balance"`
	FutureBalance       decimal.Decimal `json:"future_balance"`

	TotalAvailable         decimal.Decimal `json:"total_available"`
	FinalBalanceProjection decimal.Decimal `json:"final_balance_projection"`
}

func toPortfolioTotalsDTO(t finance.PortfolioTotals) PortfolioTotalsDTO {
	return PortfolioTotalsDTO{
		TotalSales:    t.TotalSales,
		TotalCost:     t.TotalCost,
		TotalExpenses: t.TotalExpenses,
		GrossProfit:   t.GrossProfit,
		NetProfit:     t.NetProfit,
		ProfitMargin:  t.ProfitMargin,

		BankBalance: t.BankBalance,

		CreditsRealized: t.CreditsRealized,
		CreditsPending:  t.CreditsPending,

		DebitsPaidCost:    t.DebitsPaidCost,
		DebitsPaidExpense: t.DebitsPaidExpense,
		TotalPaid:         t.TotalPaid,
		DebitsPendingCost: t.DebitsPendingCost,
		DebitsPendingExp:  t.DebitsPendingExp,
		TotalPending:      t.TotalPending,

		CashRealizedBalance: t.CashRealizedBalance,
		FutureBalance:       t.FutureBalance,

		TotalAvailable:         t.TotalAvailable,
		FinalBalanceProjection: t.FinalBalanceProjection,
	}
}

// =============================================================================
// BANK ACCOUNTS AND TRANSACTIONS
// =============================================================================

// AccountDTO represents an account, optionally with its derived balance.
type AccountDTO struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Branch         string           `json:"branch,omitempty"`
	Number         string           `json:"number,omitempty"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	CreatedAt      string           `json:"created_at"`
	Balance        *decimal.Decimal `json:"balance,omitempty"`
}

func toAccountDTO(a finance.BankAccount, balance *decimal.Decimal) AccountDTO {
	return AccountDTO{
		ID:             int64(a.ID),
		Name:           a.Name,
		Branch:         a.Branch,
		Number:         a.Number,
		OpeningBalance: a.OpeningBalance,
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
		Balance:        balance,
	}
}

// CreateAccountRequest is the request to open a bank account.
type CreateAccountRequest struct {
	Name           string          `json:"name" validate:"required"`
	Branch         string          `json:"branch"`
	Number         string          `json:"number"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// TransactionDTO represents one ledger movement.
type TransactionDTO struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	Date        string          `json:"date"`
	Direction   string          `json:"direction"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	SaleID      *int64          `json:"sale_id,omitempty"`
	EntryID     *int64          `json:"entry_id,omitempty"`
}

func toTransactionDTO(t finance.BankTransaction) TransactionDTO {
	dto := TransactionDTO{
		ID:          int64(t.ID),
		AccountID:   int64(t.AccountID),
		Date:        t.Date.Format(dateLayout),
		Direction:   string(t.Direction),
		Description: t.Description,
		Amount:      t.Amount,
	}
	if t.SaleID != nil {
		v := int64(*t.SaleID)
		dto.SaleID = &v
	}
	if t.EntryID != nil {
		v := int64(*t.EntryID)
		dto.EntryID = &v
	}
	return dto
}

// CreateTransactionRequest is the request to record a manual movement.
type CreateTransactionRequest struct {
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Direction   string          `json:"direction" validate:"required,oneof=credit debit"`
	Description string          `json:"description" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

// =============================================================================
// COSTS AND PAYMENTS
// =============================================================================

// CostDTO represents a sale's cost record.
type CostDTO struct {
	SaleID        int64           `json:"sale_id"`
	PrimaryCost   decimal.Decimal `json:"primary_cost"`
	SecondaryCost decimal.Decimal `json:"secondary_cost"`
}

// UpdateCostRequest sets the two supplier totals.
type UpdateCostRequest struct {
	PrimaryCost   decimal.Decimal `json:"primary_cost"`
	SecondaryCost decimal.Decimal `json:"secondary_cost"`
}

// SupplierPaymentDTO represents one supplier payment.
type SupplierPaymentDTO struct {
	ID     int64           `json:"id"`
	SaleID int64           `json:"sale_id"`
	Role   string          `json:"role"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
}

// CreateSupplierPaymentRequest records a payment against a supplier role.
type CreateSupplierPaymentRequest struct {
	Role   string          `json:"role" validate:"required,oneof=primary secondary"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date" validate:"required,datetime=2006-01-02"`
}

// ExpensePaymentDTO represents one expense payment.
type ExpensePaymentDTO struct {
	ID       int64           `json:"id"`
	SaleID   int64           `json:"sale_id"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Date     string          `json:"date"`
}

// CreateExpensePaymentRequest records a payment against an expense category.
type CreateExpensePaymentRequest struct {
	Category string          `json:"category" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Date     string          `json:"date" validate:"required,datetime=2006-01-02"`
}

// =============================================================================
// RECEIVABLES
// =============================================================================

// ReceivableDTO represents one schedule entry.
type ReceivableDTO struct {
	ID          int64            `json:"id"`
	SaleID      int64            `json:"sale_id"`
	Description string           `json:"description"`
	Expected    decimal.Decimal  `json:"expected"`
	DueDate     *string          `json:"due_date,omitempty"`
	Status      string           `json:"status"`
	PaidAmount  *decimal.Decimal `json:"paid_amount,omitempty"`
	PaidDate    *string          `json:"paid_date,omitempty"`
	Method      string           `json:"method,omitempty"`
}

func toReceivableDTO(e finance.ReceivableEntry) ReceivableDTO {
	dto := ReceivableDTO{
		ID:          int64(e.ID),
		SaleID:      int64(e.SaleID),
		Description: e.Description,
		Expected:    e.Expected,
		Status:      string(e.Status),
		PaidAmount:  e.PaidAmount,
		Method:      e.Method,
	}
	if e.DueDate != nil {
		v := e.DueDate.Format(dateLayout)
		dto.DueDate = &v
	}
	if e.PaidDate != nil {
		v := e.PaidDate.Format(dateLayout)
		dto.PaidDate = &v
	}
	return dto
}

// CreateReceivableRequest adds a milestone to a sale's schedule.
type CreateReceivableRequest struct {
	Description string          `json:"description" validate:"required"`
	Expected    decimal.Decimal `json:"expected"`
	DueDate     string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateReceivableRequest edits a pending milestone.
type UpdateReceivableRequest struct {
	Description string          `json:"description" validate:"required"`
	Expected    decimal.Decimal `json:"expected"`
	DueDate     string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// RegisterPaymentRequest marks a milestone paid, optionally against an
// account.
type RegisterPaymentRequest struct {
	PaidAmount decimal.Decimal `json:"paid_amount"`
	PaidDate   string          `json:"paid_date" validate:"required,datetime=2006-01-02"`
	Method     string          `json:"method" validate:"required"`
	AccountID  *int64          `json:"account_id"`
}

// =============================================================================
// DELIVERIES
// =============================================================================

// DeliveryDTO represents a sale's delivery record.
type DeliveryDTO struct {
	SaleID  int64   `json:"sale_id"`
	Status  string  `json:"status"`
	Address string  `json:"address,omitempty"`
	Date    *string `json:"date,omitempty"`
	Notes   string  `json:"notes,omitempty"`
}

func toDeliveryDTO(d finance.DeliveryRecord) DeliveryDTO {
	dto := DeliveryDTO{
		SaleID:  int64(d.SaleID),
		Status:  string(d.Status),
		Address: d.Address,
		Notes:   d.Notes,
	}
	if d.Date != nil {
		v := d.Date.Format(dateLayout)
		dto.Date = &v
	}
	return dto
}

// UpdateDeliveryRequest sets delivery status and details.
type UpdateDeliveryRequest struct {
	Status  string `json:"status" validate:"required,oneof=awaiting in_transit delivered"`
	Address string `json:"address"`
	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Notes   string `json:"notes"`
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// RateRuleDTO is one category's rate and base.
type RateRuleDTO struct {
	Rate decimal.Decimal `json:"rate"`
	Base string          `json:"base" validate:"required,oneof=sale_price total_cost"`
}

// ConfigDTO maps category names to their rules.
type ConfigDTO map[string]RateRuleDTO

func toConfigDTO(t finance.RateTable) ConfigDTO {
	out := make(ConfigDTO, len(t))
	for category, rule := range t {
		out[string(category)] = RateRuleDTO{Rate: rule.Rate, Base: string(rule.Base)}
	}
	return out
}

func (c ConfigDTO) toRateTable() finance.RateTable {
	table := make(finance.RateTable, len(c))
	for category, rule := range c {
		table[finance.Category(category)] = finance.RateRule{
			Rate: rule.Rate,
			Base: finance.RateBase(rule.Base),
		}
	}
	return table
}
