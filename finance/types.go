/*
Package finance provides the core domain model and aggregation engine.

PURPOSE:
  This package contains the entities, identifiers, and pure computations
  for a small-business financial portfolio: sales, supplier costs, a
  receivables schedule, bank ledgers, and percentage-based expense rates.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entities: BankAccount, BankTransaction, Sale, CostRecord,
    SupplierPayment, ReceivableEntry, ExpensePayment, DeliveryRecord
  - Typed integer identifiers (SaleID, AccountID, ...)
  - Closed enumerations for direction, statuses, and supplier roles

DESIGN PRINCIPLES:
  1. Precision: all money is decimal.Decimal, never float
  2. Type Safety: strong typing for IDs prevents mixing sale/account IDs
  3. Closed Sets: statuses and roles are enumerated and validated at
     write time, never free-text matched
  4. Derived State: account balances and every financial total are
     recomputed from rows on demand, never stored redundantly

SEE ALSO:
  - config.go: expense categories and rate table
  - aggregate.go: per-sale and portfolio totals
  - engine.go: orchestration over the store interfaces
*/
package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// Surrogate integer keys, assigned by the store.
type (
	SaleID        int64
	AccountID     int64
	TransactionID int64
	EntryID       int64
	PaymentID     int64
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// Direction is the sign of a bank transaction: credits add to the account
// balance, debits subtract from it.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Valid reports whether d is one of the two recognized directions.
func (d Direction) Valid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// Sign returns the signed multiplier for the direction (+1 credit, -1 debit).
func (d Direction) Sign() decimal.Decimal {
	if d == DirectionDebit {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// ReceivableStatus is the lifecycle state of a schedule entry.
// An entry's paid fields are all nil iff the status is Pending.
type ReceivableStatus string

const (
	ReceivablePending ReceivableStatus = "pending"
	ReceivablePaid    ReceivableStatus = "paid"
)

// DeliveryStatus tracks the delivery of a sold kit.
type DeliveryStatus string

const (
	DeliveryAwaiting  DeliveryStatus = "awaiting"
	DeliveryInTransit DeliveryStatus = "in_transit"
	DeliveryDelivered DeliveryStatus = "delivered"
)

// Valid reports whether s is a recognized delivery status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryAwaiting, DeliveryInTransit, DeliveryDelivered:
		return true
	}
	return false
}

// SupplierRole identifies which of the two fixed supplier roles a payment
// settles: the primary fabricator or the secondary material supplier.
type SupplierRole string

const (
	SupplierPrimary   SupplierRole = "primary"
	SupplierSecondary SupplierRole = "secondary"
)

// Valid reports whether r is a recognized supplier role.
func (r SupplierRole) Valid() bool {
	return r == SupplierPrimary || r == SupplierSecondary
}

// =============================================================================
// ENTITIES
// =============================================================================

// BankAccount owns a sequence of BankTransactions. Its current balance is
// derived as the signed sum of those transactions; the opening balance is
// itself represented as a credit transaction, never as an additive term.
type BankAccount struct {
	ID             AccountID
	Name           string
	Branch         string
	Number         string
	OpeningBalance decimal.Decimal
	CreatedAt      time.Time
}

// BankTransaction is a signed ledger movement against one account.
// SaleID/EntryID are set when the movement evidences a receivable payment
// and nil for manual entries.
type BankTransaction struct {
	ID          TransactionID
	AccountID   AccountID
	Date        time.Time
	Direction   Direction
	Description string
	Amount      decimal.Decimal
	SaleID      *SaleID
	EntryID     *EntryID
}

// SignedAmount returns the amount with the direction's sign applied.
func (t BankTransaction) SignedAmount() decimal.Decimal {
	return t.Amount.Mul(t.Direction.Sign())
}

// Sale is one customer transaction for a prefabricated-home kit.
// Every sale owns exactly one CostRecord and one DeliveryRecord, created
// with it and deleted with it.
type Sale struct {
	ID           SaleID
	Client       string
	Phone        string
	Email        string
	Date         time.Time
	Product      string
	SalePrice    decimal.Decimal
	FreightPrice decimal.Decimal
}

// CostRecord holds the two negotiated supplier totals for a sale, keyed 1:1
// by the sale's identifier.
type CostRecord struct {
	SaleID        SaleID
	PrimaryCost   decimal.Decimal
	SecondaryCost decimal.Decimal
}

// Total returns the combined supplier cost.
func (c CostRecord) Total() decimal.Decimal {
	return c.PrimaryCost.Add(c.SecondaryCost)
}

// SupplierPayment is one payment against a sale's supplier cost, tagged by
// supplier role.
type SupplierPayment struct {
	ID     PaymentID
	SaleID SaleID
	Role   SupplierRole
	Amount decimal.Decimal
	Date   time.Time
}

// ReceivableEntry is one scheduled milestone ("parcela") a client owes
// against a sale. The paid fields are populated only through payment
// registration, never by direct edit.
type ReceivableEntry struct {
	ID          EntryID
	SaleID      SaleID
	Description string
	Expected    decimal.Decimal
	DueDate     *time.Time
	Status      ReceivableStatus
	PaidAmount  *decimal.Decimal
	PaidDate    *time.Time
	Method      string
}

// ExpensePayment is one payment against a sale's percentage-based expenses,
// tagged by expense category.
type ExpensePayment struct {
	ID       PaymentID
	SaleID   SaleID
	Category Category
	Amount   decimal.Decimal
	Date     time.Time
}

// DeliveryRecord tracks the delivery of a sale, keyed 1:1 by the sale's
// identifier.
type DeliveryRecord struct {
	SaleID  SaleID
	Status  DeliveryStatus
	Address string
	Date    *time.Time
	Notes   string
}

// AccountBalance pairs an account with its derived current balance.
type AccountBalance struct {
	Account BankAccount
	Balance decimal.Decimal
}
