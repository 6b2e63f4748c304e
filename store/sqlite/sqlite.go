/*
Package sqlite provides the SQLite-backed ledger store.

PURPOSE:
  Persists the eight entity collections (accounts, bank transactions,
  sales, costs, receivable schedule, supplier payments, expense payments,
  deliveries) plus the rate configuration, with referential integrity
  enforced by SQLite foreign keys.

INTERFACES IMPLEMENTED:
  finance.Reader: read surface for the aggregation engine

REFERENTIAL INTEGRITY:
  - costs, deliveries, receivable_plan, supplier_payments and
    expense_payments cascade-delete with their sale
  - bank_transactions keep history when a sale or schedule entry goes
    away: sale_id / entry_id are set NULL instead (money that moved is
    historical fact)
  - bank_transactions cascade-delete with their account

ATOMIC OPERATIONS:
  Multi-statement mutations (create sale, create account with opening
  balance, register receivable payment, reverse transaction) run inside
  a single BeginTx scope with rollback-by-default. Single-statement
  mutations commit immediately.

DERIVED BALANCES:
  Account balances are never stored. They are folded from the signed
  transaction amounts on every read; the opening balance is itself a
  credit transaction.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL and foreign keys on, so cascades are enforced
  by the engine and the file stays copyable between operations.

USAGE:
  store, err := sqlite.New("./data/finance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := finance.NewEngine(store)

SEE ALSO:
  - finance/engine.go: Reader interface definition
  - finance/aggregate.go: computations over the rows stored here
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/woodbahia/finance-engine/finance"
)

const dateLayout = "2006-01-02"

// Store implements persistence for the finance domain using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ finance.Reader = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; a second pooled connection would also
	// see a separate database when dbPath is ":memory:".
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema and seeds the default rate table.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bank_accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		branch TEXT,
		number TEXT,
		opening_balance TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		sale_date TEXT NOT NULL,
		product TEXT NOT NULL,
		sale_price TEXT NOT NULL,
		freight_price TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS receivable_plan (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sale_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		expected TEXT NOT NULL,
		due_date TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		paid_amount TEXT,
		paid_date TEXT,
		method TEXT,
		FOREIGN KEY (sale_id) REFERENCES sales(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_receivable_plan_sale
		ON receivable_plan(sale_id, due_date);

	-- A transaction keeps its history when the sale or schedule entry it
	-- evidences is deleted: the back-references go NULL, the row stays.
	CREATE TABLE IF NOT EXISTS bank_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		tx_date TEXT NOT NULL,
		direction TEXT NOT NULL,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		sale_id INTEGER,
		entry_id INTEGER,
		FOREIGN KEY (account_id) REFERENCES bank_accounts(id) ON DELETE CASCADE,
		FOREIGN KEY (sale_id) REFERENCES sales(id) ON DELETE SET NULL,
		FOREIGN KEY (entry_id) REFERENCES receivable_plan(id) ON DELETE SET NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bank_transactions_account
		ON bank_transactions(account_id, tx_date DESC);
	CREATE INDEX IF NOT EXISTS idx_bank_transactions_entry
		ON bank_transactions(entry_id) WHERE entry_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS costs (
		sale_id INTEGER PRIMARY KEY,
		primary_cost TEXT NOT NULL DEFAULT '0',
		secondary_cost TEXT NOT NULL DEFAULT '0',
		FOREIGN KEY (sale_id) REFERENCES sales(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS supplier_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sale_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid_date TEXT NOT NULL,
		FOREIGN KEY (sale_id) REFERENCES sales(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_supplier_payments_sale
		ON supplier_payments(sale_id);

	CREATE TABLE IF NOT EXISTS expense_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sale_id INTEGER NOT NULL,
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid_date TEXT NOT NULL,
		FOREIGN KEY (sale_id) REFERENCES sales(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_expense_payments_sale
		ON expense_payments(sale_id);

	CREATE TABLE IF NOT EXISTS deliveries (
		sale_id INTEGER PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'awaiting',
		address TEXT,
		delivery_date TEXT,
		notes TEXT,
		FOREIGN KEY (sale_id) REFERENCES sales(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS config_rates (
		category TEXT PRIMARY KEY,
		rate TEXT NOT NULL,
		base TEXT NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.seedRates()
}

// seedRates inserts the default rate table, keeping operator edits.
func (s *Store) seedRates() error {
	for category, rule := range finance.DefaultRates() {
		_, err := s.db.Exec(
			"INSERT OR IGNORE INTO config_rates (category, rate, base) VALUES (?, ?, ?)",
			string(category), rule.Rate.String(), string(rule.Base),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// withTx runs fn inside a single commit/rollback scope.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// BANK ACCOUNTS
// =============================================================================

// CreateBankAccount inserts an account and, when the opening balance is
// positive, its "Opening Balance" credit transaction. Both rows are written
// in one atomic scope: an account never exists with an unrecorded opening
// balance.
func (s *Store) CreateBankAccount(ctx context.Context, name, branch, number string, openingBalance decimal.Decimal) (*finance.BankAccount, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &finance.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if openingBalance.IsNegative() {
		return nil, &finance.ValidationError{Field: "opening_balance", Reason: "must not be negative"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account := finance.BankAccount{
		Name:           name,
		Branch:         branch,
		Number:         number,
		OpeningBalance: openingBalance,
		CreatedAt:      time.Now().UTC(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO bank_accounts (name, branch, number, opening_balance, created_at) VALUES (?, ?, ?, ?, ?)",
			name, branch, number, openingBalance.String(), account.CreatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		account.ID = finance.AccountID(id)

		if openingBalance.IsPositive() {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO bank_transactions (account_id, tx_date, direction, description, amount) VALUES (?, ?, ?, ?, ?)",
				id, account.CreatedAt.Format(dateLayout), string(finance.DirectionCredit),
				"Opening Balance", openingBalance.String(),
			)
			if err != nil {
				return joinTxFailure(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetBankAccount retrieves an account by id.
func (s *Store) GetBankAccount(ctx context.Context, id finance.AccountID) (*finance.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a finance.BankAccount
	var branch, number sql.NullString
	var opening, createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, branch, number, opening_balance, created_at FROM bank_accounts WHERE id = ?", id,
	).Scan(&a.ID, &a.Name, &branch, &number, &opening, &createdAt)
	if err == sql.ErrNoRows {
		return nil, &finance.NotFoundError{Kind: "account", ID: int64(id)}
	}
	if err != nil {
		return nil, err
	}

	a.Branch = branch.String
	a.Number = number.String
	a.OpeningBalance = mustDec(opening)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

// ListBankAccounts returns all accounts ordered by name.
func (s *Store) ListBankAccounts(ctx context.Context) ([]finance.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, branch, number, opening_balance, created_at FROM bank_accounts ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []finance.BankAccount
	for rows.Next() {
		var a finance.BankAccount
		var branch, number sql.NullString
		var opening, createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &branch, &number, &opening, &createdAt); err != nil {
			return nil, err
		}
		a.Branch = branch.String
		a.Number = number.String
		a.OpeningBalance = mustDec(opening)
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AccountBalance folds the signed transaction amounts of one account.
// Computing it twice without intervening writes yields the same value.
func (s *Store) AccountBalance(ctx context.Context, id finance.AccountID) (decimal.Decimal, error) {
	if _, err := s.GetBankAccount(ctx, id); err != nil {
		return decimal.Zero, err
	}
	txs, err := s.TransactionsByAccount(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return sumSigned(txs), nil
}

// AccountBalances returns every account with its derived balance.
func (s *Store) AccountBalances(ctx context.Context) ([]finance.AccountBalance, error) {
	accounts, err := s.ListBankAccounts(ctx)
	if err != nil {
		return nil, err
	}

	balances := make([]finance.AccountBalance, 0, len(accounts))
	for _, account := range accounts {
		txs, err := s.TransactionsByAccount(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		balances = append(balances, finance.AccountBalance{Account: account, Balance: sumSigned(txs)})
	}
	return balances, nil
}

// TotalBankBalance folds the signed amounts of every transaction across all
// accounts. Independent of sales: stays meaningful with zero sales.
func (s *Store) TotalBankBalance(ctx context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs, err := s.queryTransactions(ctx,
		"SELECT id, account_id, tx_date, direction, description, amount, sale_id, entry_id FROM bank_transactions",
	)
	if err != nil {
		return decimal.Zero, err
	}
	return sumSigned(txs), nil
}

func sumSigned(txs []finance.BankTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.SignedAmount())
	}
	return total
}

// =============================================================================
// BANK TRANSACTIONS
// =============================================================================

// AddBankTransaction inserts a manual ledger movement. Back-references are
// for the payment-registration path; manual entries leave them nil.
func (s *Store) AddBankTransaction(ctx context.Context, t finance.BankTransaction) (finance.TransactionID, error) {
	if !t.Direction.Valid() {
		return 0, &finance.ValidationError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", t.Direction)}
	}
	if !t.Amount.IsPositive() {
		return 0, &finance.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if strings.TrimSpace(t.Description) == "" {
		return 0, &finance.ValidationError{Field: "description", Reason: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.accountExists(ctx, s.db, t.AccountID); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO bank_transactions (account_id, tx_date, direction, description, amount, sale_id, entry_id) VALUES (?, ?, ?, ?, ?, ?, ?)",
		t.AccountID, t.Date.Format(dateLayout), string(t.Direction), t.Description,
		t.Amount.String(), nullSaleID(t.SaleID), nullEntryID(t.EntryID),
	)
	if err != nil {
		return 0, mapConstraintError(err)
	}
	id, err := res.LastInsertId()
	return finance.TransactionID(id), err
}

// GetBankTransaction retrieves one transaction by id.
func (s *Store) GetBankTransaction(ctx context.Context, id finance.TransactionID) (*finance.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs, err := s.queryTransactions(ctx,
		"SELECT id, account_id, tx_date, direction, description, amount, sale_id, entry_id FROM bank_transactions WHERE id = ?", id,
	)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, &finance.NotFoundError{Kind: "transaction", ID: int64(id)}
	}
	return &txs[0], nil
}

// TransactionsByAccount returns an account's ledger, newest first.
func (s *Store) TransactionsByAccount(ctx context.Context, accountID finance.AccountID) ([]finance.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTransactions(ctx,
		`SELECT id, account_id, tx_date, direction, description, amount, sale_id, entry_id
		 FROM bank_transactions WHERE account_id = ? ORDER BY tx_date DESC, id DESC`, accountID,
	)
}

// ReverseBankTransaction deletes a transaction and, when it evidenced a
// receivable payment, resets that schedule entry to pending with all paid
// fields null. Both statements share one atomic scope so the ledger and the
// schedule never disagree about payment status.
func (s *Store) ReverseBankTransaction(ctx context.Context, id finance.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var entryID sql.NullInt64
		err := tx.QueryRowContext(ctx,
			"SELECT entry_id FROM bank_transactions WHERE id = ?", id,
		).Scan(&entryID)
		if err == sql.ErrNoRows {
			return &finance.NotFoundError{Kind: "transaction", ID: int64(id)}
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM bank_transactions WHERE id = ?", id); err != nil {
			return err
		}

		if entryID.Valid {
			_, err := tx.ExecContext(ctx,
				`UPDATE receivable_plan
				 SET status = ?, paid_amount = NULL, paid_date = NULL, method = NULL
				 WHERE id = ?`,
				string(finance.ReceivablePending), entryID.Int64,
			)
			if err != nil {
				return joinTxFailure(err)
			}
		}
		return nil
	})
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]finance.BankTransaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []finance.BankTransaction
	for rows.Next() {
		var t finance.BankTransaction
		var txDate, direction, amount string
		var saleID, entryID sql.NullInt64

		if err := rows.Scan(&t.ID, &t.AccountID, &txDate, &direction, &t.Description, &amount, &saleID, &entryID); err != nil {
			return nil, err
		}

		t.Date, _ = time.Parse(dateLayout, txDate)
		t.Direction = finance.Direction(direction)
		t.Amount = mustDec(amount)
		if saleID.Valid {
			v := finance.SaleID(saleID.Int64)
			t.SaleID = &v
		}
		if entryID.Valid {
			v := finance.EntryID(entryID.Int64)
			t.EntryID = &v
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *Store) accountExists(ctx context.Context, q queryer, id finance.AccountID) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM bank_accounts WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return &finance.NotFoundError{Kind: "account", ID: int64(id)}
	}
	return err
}

// =============================================================================
// SALES
// =============================================================================

// CreateSale inserts the sale together with its zeroed cost record and its
// default delivery record in one atomic scope. A sale never exists without
// both dependents.
func (s *Store) CreateSale(ctx context.Context, sale finance.Sale) (*finance.Sale, error) {
	if strings.TrimSpace(sale.Client) == "" {
		return nil, &finance.ValidationError{Field: "client", Reason: "must not be empty"}
	}
	if strings.TrimSpace(sale.Product) == "" {
		return nil, &finance.ValidationError{Field: "product", Reason: "must not be empty"}
	}
	if sale.SalePrice.IsNegative() || sale.FreightPrice.IsNegative() {
		return nil, &finance.ValidationError{Field: "price", Reason: "must not be negative"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO sales (client, phone, email, sale_date, product, sale_price, freight_price) VALUES (?, ?, ?, ?, ?, ?, ?)",
			sale.Client, sale.Phone, sale.Email, sale.Date.Format(dateLayout),
			sale.Product, sale.SalePrice.String(), sale.FreightPrice.String(),
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		sale.ID = finance.SaleID(id)

		if _, err := tx.ExecContext(ctx, "INSERT INTO costs (sale_id) VALUES (?)", id); err != nil {
			return joinTxFailure(err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO deliveries (sale_id) VALUES (?)", id); err != nil {
			return joinTxFailure(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// GetSale retrieves a sale by id.
func (s *Store) GetSale(ctx context.Context, id finance.SaleID) (*finance.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sale finance.Sale
	var phone, email sql.NullString
	var saleDate, price, freight string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, client, phone, email, sale_date, product, sale_price, freight_price FROM sales WHERE id = ?", id,
	).Scan(&sale.ID, &sale.Client, &phone, &email, &saleDate, &sale.Product, &price, &freight)
	if err == sql.ErrNoRows {
		return nil, &finance.NotFoundError{Kind: "sale", ID: int64(id)}
	}
	if err != nil {
		return nil, err
	}

	sale.Phone = phone.String
	sale.Email = email.String
	sale.Date, _ = time.Parse(dateLayout, saleDate)
	sale.SalePrice = mustDec(price)
	sale.FreightPrice = mustDec(freight)
	return &sale, nil
}

// ListSales returns all sales, newest first.
func (s *Store) ListSales(ctx context.Context) ([]finance.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, client, phone, email, sale_date, product, sale_price, freight_price FROM sales ORDER BY id DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []finance.Sale
	for rows.Next() {
		var sale finance.Sale
		var phone, email sql.NullString
		var saleDate, price, freight string
		if err := rows.Scan(&sale.ID, &sale.Client, &phone, &email, &saleDate, &sale.Product, &price, &freight); err != nil {
			return nil, err
		}
		sale.Phone = phone.String
		sale.Email = email.String
		sale.Date, _ = time.Parse(dateLayout, saleDate)
		sale.SalePrice = mustDec(price)
		sale.FreightPrice = mustDec(freight)
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// DeleteSale removes the sale. Foreign keys cascade the cost record, the
// delivery record, the receivable schedule and both payment tables; bank
// transactions survive with their sale/entry back-references set NULL.
func (s *Store) DeleteSale(ctx context.Context, id finance.SaleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM sales WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &finance.NotFoundError{Kind: "sale", ID: int64(id)}
	}
	return nil
}

// =============================================================================
// COST RECORDS
// =============================================================================

// GetCost retrieves a sale's cost record.
func (s *Store) GetCost(ctx context.Context, saleID finance.SaleID) (*finance.CostRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c finance.CostRecord
	var primary, secondary string

	err := s.db.QueryRowContext(ctx,
		"SELECT sale_id, primary_cost, secondary_cost FROM costs WHERE sale_id = ?", saleID,
	).Scan(&c.SaleID, &primary, &secondary)
	if err == sql.ErrNoRows {
		return nil, &finance.NotFoundError{Kind: "cost record", ID: int64(saleID)}
	}
	if err != nil {
		return nil, err
	}

	c.PrimaryCost = mustDec(primary)
	c.SecondaryCost = mustDec(secondary)
	return &c, nil
}

// UpdateCost sets the two negotiated supplier totals for a sale.
func (s *Store) UpdateCost(ctx context.Context, saleID finance.SaleID, primary, secondary decimal.Decimal) error {
	if primary.IsNegative() || secondary.IsNegative() {
		return &finance.ValidationError{Field: "cost", Reason: "must not be negative"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE costs SET primary_cost = ?, secondary_cost = ? WHERE sale_id = ?",
		primary.String(), secondary.String(), saleID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &finance.NotFoundError{Kind: "cost record", ID: int64(saleID)}
	}
	return nil
}

// =============================================================================
// SUPPLIER PAYMENTS
// =============================================================================

// AddSupplierPayment records a payment against one of the two supplier
// roles. Paying a non-existent sale is an integrity violation.
func (s *Store) AddSupplierPayment(ctx context.Context, p finance.SupplierPayment) (finance.PaymentID, error) {
	if !p.Role.Valid() {
		return 0, &finance.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown supplier role %q", p.Role)}
	}
	if !p.Amount.IsPositive() {
		return 0, &finance.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO supplier_payments (sale_id, role, amount, paid_date) VALUES (?, ?, ?, ?)",
		p.SaleID, string(p.Role), p.Amount.String(), p.Date.Format(dateLayout),
	)
	if err != nil {
		return 0, mapConstraintError(err)
	}
	id, err := res.LastInsertId()
	return finance.PaymentID(id), err
}

// SupplierPaymentsBySale returns a sale's supplier payments, oldest first.
func (s *Store) SupplierPaymentsBySale(ctx context.Context, saleID finance.SaleID) ([]finance.SupplierPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, sale_id, role, amount, paid_date FROM supplier_payments WHERE sale_id = ? ORDER BY paid_date ASC, id ASC", saleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []finance.SupplierPayment
	for rows.Next() {
		var p finance.SupplierPayment
		var role, amount, paidDate string
		if err := rows.Scan(&p.ID, &p.SaleID, &role, &amount, &paidDate); err != nil {
			return nil, err
		}
		p.Role = finance.SupplierRole(role)
		p.Amount = mustDec(amount)
		p.Date, _ = time.Parse(dateLayout, paidDate)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// DeleteSupplierPayment removes a supplier payment.
func (s *Store) DeleteSupplierPayment(ctx context.Context, id finance.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteByID(ctx, "supplier_payments", "supplier payment", int64(id))
}

// =============================================================================
// EXPENSE PAYMENTS
// =============================================================================

// AddExpensePayment records a payment against one expense category. Unknown
// categories are rejected before any mutation.
func (s *Store) AddExpensePayment(ctx context.Context, p finance.ExpensePayment) (finance.PaymentID, error) {
	if !p.Category.Valid() {
		return 0, &finance.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", p.Category)}
	}
	if !p.Amount.IsPositive() {
		return 0, &finance.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO expense_payments (sale_id, category, amount, paid_date) VALUES (?, ?, ?, ?)",
		p.SaleID, string(p.Category), p.Amount.String(), p.Date.Format(dateLayout),
	)
	if err != nil {
		return 0, mapConstraintError(err)
	}
	id, err := res.LastInsertId()
	return finance.PaymentID(id), err
}

// ExpensePaymentsBySale returns a sale's expense payments, oldest first.
func (s *Store) ExpensePaymentsBySale(ctx context.Context, saleID finance.SaleID) ([]finance.ExpensePayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, sale_id, category, amount, paid_date FROM expense_payments WHERE sale_id = ? ORDER BY paid_date ASC, id ASC", saleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []finance.ExpensePayment
	for rows.Next() {
		var p finance.ExpensePayment
		var category, amount, paidDate string
		if err := rows.Scan(&p.ID, &p.SaleID, &category, &amount, &paidDate); err != nil {
			return nil, err
		}
		p.Category = finance.Category(category)
		p.Amount = mustDec(amount)
		p.Date, _ = time.Parse(dateLayout, paidDate)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// DeleteExpensePayment removes an expense payment.
func (s *Store) DeleteExpensePayment(ctx context.Context, id finance.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteByID(ctx, "expense_payments", "expense payment", int64(id))
}

// =============================================================================
// RECEIVABLE SCHEDULE
// =============================================================================

// AddReceivable inserts a pending schedule entry for a sale.
func (s *Store) AddReceivable(ctx context.Context, e finance.ReceivableEntry) (finance.EntryID, error) {
	if strings.TrimSpace(e.Description) == "" {
		return 0, &finance.ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if !e.Expected.IsPositive() {
		return 0, &finance.ValidationError{Field: "expected", Reason: "must be positive"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO receivable_plan (sale_id, description, expected, due_date) VALUES (?, ?, ?, ?)",
		e.SaleID, e.Description, e.Expected.String(), nullDate(e.DueDate),
	)
	if err != nil {
		return 0, mapConstraintError(err)
	}
	id, err := res.LastInsertId()
	return finance.EntryID(id), err
}

// GetReceivable retrieves one schedule entry by id.
func (s *Store) GetReceivable(ctx context.Context, id finance.EntryID) (*finance.ReceivableEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.queryReceivables(ctx,
		"SELECT id, sale_id, description, expected, due_date, status, paid_amount, paid_date, method FROM receivable_plan WHERE id = ?", id,
	)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &finance.NotFoundError{Kind: "receivable entry", ID: int64(id)}
	}
	return &entries[0], nil
}

// ReceivablesBySale returns a sale's schedule ordered by due date.
func (s *Store) ReceivablesBySale(ctx context.Context, saleID finance.SaleID) ([]finance.ReceivableEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReceivables(ctx,
		`SELECT id, sale_id, description, expected, due_date, status, paid_amount, paid_date, method
		 FROM receivable_plan WHERE sale_id = ? ORDER BY due_date ASC, id ASC`, saleID,
	)
}

// UpdateReceivable edits description, expected amount and due date. Only
// pending entries may be edited: paid fields are mutated exclusively through
// payment registration and reversal.
func (s *Store) UpdateReceivable(ctx context.Context, id finance.EntryID, description string, expected decimal.Decimal, dueDate *time.Time) error {
	if strings.TrimSpace(description) == "" {
		return &finance.ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if !expected.IsPositive() {
		return &finance.ValidationError{Field: "expected", Reason: "must be positive"}
	}

	entry, err := s.GetReceivable(ctx, id)
	if err != nil {
		return err
	}
	if entry.Status != finance.ReceivablePending {
		return &finance.ValidationError{Field: "status", Reason: "only pending entries can be edited"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		"UPDATE receivable_plan SET description = ?, expected = ?, due_date = ? WHERE id = ? AND status = ?",
		description, expected.String(), nullDate(dueDate), id, string(finance.ReceivablePending),
	)
	return err
}

// DeleteReceivable removes a pending schedule entry. A paid entry cannot be
// deleted while its evidencing ledger movement stands; reverse the bank
// transaction first.
func (s *Store) DeleteReceivable(ctx context.Context, id finance.EntryID) error {
	entry, err := s.GetReceivable(ctx, id)
	if err != nil {
		return err
	}
	if entry.Status != finance.ReceivablePending {
		return &finance.ValidationError{Field: "status", Reason: "only pending entries can be deleted"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteByID(ctx, "receivable_plan", "receivable entry", int64(id))
}

// RegisterReceivablePayment marks a schedule entry paid and, when an
// account is given, inserts the evidencing credit transaction. The entry
// update and the ledger insert share one atomic scope: on any failure the
// entry stays pending.
func (s *Store) RegisterReceivablePayment(ctx context.Context, entryID finance.EntryID, paidAmount decimal.Decimal, paidDate time.Time, method string, accountID *finance.AccountID) error {
	if !paidAmount.IsPositive() {
		return &finance.ValidationError{Field: "paid_amount", Reason: "must be positive"}
	}
	if strings.TrimSpace(method) == "" {
		return &finance.ValidationError{Field: "method", Reason: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var saleID finance.SaleID
		var status string
		err := tx.QueryRowContext(ctx,
			"SELECT sale_id, status FROM receivable_plan WHERE id = ?", entryID,
		).Scan(&saleID, &status)
		if err == sql.ErrNoRows {
			return &finance.NotFoundError{Kind: "receivable entry", ID: int64(entryID)}
		}
		if err != nil {
			return err
		}
		if finance.ReceivableStatus(status) != finance.ReceivablePending {
			return &finance.ValidationError{Field: "status", Reason: "entry is already paid"}
		}

		// The sale should always exist given cascade delete, but a
		// lingering entry is tolerated with a placeholder label.
		client := "deleted client"
		err = tx.QueryRowContext(ctx, "SELECT client FROM sales WHERE id = ?", saleID).Scan(&client)
		if err != nil && err != sql.ErrNoRows {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE receivable_plan SET status = ?, paid_amount = ?, paid_date = ?, method = ? WHERE id = ?",
			string(finance.ReceivablePaid), paidAmount.String(), paidDate.Format(dateLayout), method, entryID,
		)
		if err != nil {
			return err
		}

		if accountID != nil {
			if err := s.accountExists(ctx, tx, *accountID); err != nil {
				return joinTxFailure(err)
			}
			_, err = tx.ExecContext(ctx,
				"INSERT INTO bank_transactions (account_id, tx_date, direction, description, amount, sale_id, entry_id) VALUES (?, ?, ?, ?, ?, ?, ?)",
				*accountID, paidDate.Format(dateLayout), string(finance.DirectionCredit),
				fmt.Sprintf("Receivable payment sale #%d - %s", saleID, client),
				paidAmount.String(), saleID, entryID,
			)
			if err != nil {
				return joinTxFailure(err)
			}
		}
		return nil
	})
}

func (s *Store) queryReceivables(ctx context.Context, query string, args ...any) ([]finance.ReceivableEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []finance.ReceivableEntry
	for rows.Next() {
		var e finance.ReceivableEntry
		var expected, status string
		var dueDate, paidAmount, paidDate, method sql.NullString

		if err := rows.Scan(&e.ID, &e.SaleID, &e.Description, &expected, &dueDate, &status, &paidAmount, &paidDate, &method); err != nil {
			return nil, err
		}

		e.Expected = mustDec(expected)
		e.Status = finance.ReceivableStatus(status)
		e.Method = method.String
		if dueDate.Valid {
			t, _ := time.Parse(dateLayout, dueDate.String)
			e.DueDate = &t
		}
		if paidAmount.Valid {
			v := mustDec(paidAmount.String)
			e.PaidAmount = &v
		}
		if paidDate.Valid {
			t, _ := time.Parse(dateLayout, paidDate.String)
			e.PaidDate = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// DELIVERIES
// =============================================================================

// GetDelivery retrieves a sale's delivery record.
func (s *Store) GetDelivery(ctx context.Context, saleID finance.SaleID) (*finance.DeliveryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d finance.DeliveryRecord
	var status string
	var address, deliveryDate, notes sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT sale_id, status, address, delivery_date, notes FROM deliveries WHERE sale_id = ?", saleID,
	).Scan(&d.SaleID, &status, &address, &deliveryDate, &notes)
	if err == sql.ErrNoRows {
		return nil, &finance.NotFoundError{Kind: "delivery record", ID: int64(saleID)}
	}
	if err != nil {
		return nil, err
	}

	d.Status = finance.DeliveryStatus(status)
	d.Address = address.String
	d.Notes = notes.String
	if deliveryDate.Valid {
		t, _ := time.Parse(dateLayout, deliveryDate.String)
		d.Date = &t
	}
	return &d, nil
}

// UpdateDelivery sets a sale's delivery status, address, date and notes.
func (s *Store) UpdateDelivery(ctx context.Context, d finance.DeliveryRecord) error {
	if !d.Status.Valid() {
		return &finance.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown delivery status %q", d.Status)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE deliveries SET status = ?, address = ?, delivery_date = ?, notes = ? WHERE sale_id = ?",
		string(d.Status), d.Address, nullDate(d.Date), d.Notes, d.SaleID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &finance.NotFoundError{Kind: "delivery record", ID: int64(d.SaleID)}
	}
	return nil
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// GetRates loads the rate table.
func (s *Store) GetRates(ctx context.Context) (finance.RateTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT category, rate, base FROM config_rates")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := finance.RateTable{}
	for rows.Next() {
		var category, rate, base string
		if err := rows.Scan(&category, &rate, &base); err != nil {
			return nil, err
		}
		table[finance.Category(category)] = finance.RateRule{
			Rate: mustDec(rate),
			Base: finance.RateBase(base),
		}
	}
	return table, rows.Err()
}

// SaveRates validates and persists the rate table in one atomic scope.
func (s *Store) SaveRates(ctx context.Context, table finance.RateTable) error {
	if err := table.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for category, rule := range table {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO config_rates (category, rate, base) VALUES (?, ?, ?)
				 ON CONFLICT(category) DO UPDATE SET rate = excluded.rate, base = excluded.base`,
				string(category), rule.Rate.String(), string(rule.Base),
			)
			if err != nil {
				return joinTxFailure(err)
			}
		}
		return nil
	})
}

// =============================================================================
// BACKUP
// =============================================================================

// BackupTo writes a consistent snapshot of the store to path. VACUUM INTO
// runs outside any open transaction, so the copy never observes a
// partially-committed state.
func (s *Store) BackupTo(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) deleteByID(ctx context.Context, table, kind string, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &finance.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func nullSaleID(id *finance.SaleID) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}

func nullEntryID(id *finance.EntryID) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}

// mapConstraintError turns a SQLite FK failure into the domain's integrity
// error so callers can branch without importing the driver.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return fmt.Errorf("%w: %v", finance.ErrIntegrityViolation, err)
	}
	return err
}

// joinTxFailure marks an error that occurred after a prior statement in the
// same atomic scope succeeded. errors.Is finds both the cause and
// ErrTransactionFailed on the result; the rollback has already happened by
// the time the caller sees it.
func joinTxFailure(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", finance.ErrTransactionFailed, err)
}
