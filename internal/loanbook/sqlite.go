package loanbook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jasiri-lending/jasiri-sub001/internal/statement"
)

// SQLiteLoanBook is the embedded loan-book store used for local development
// and adapter tests. It shares row contracts with PostgresLoanBook so either
// can sit behind the statement engine.
type SQLiteLoanBook struct {
	db *sql.DB
}

// NewSQLiteLoanBook wraps an open sqlite database.
func NewSQLiteLoanBook(db *sql.DB) *SQLiteLoanBook {
	return &SQLiteLoanBook{db: db}
}

var _ statement.Sources = (*SQLiteLoanBook)(nil)

// Bootstrap creates the loan-book schema if it does not exist.
func (lb *SQLiteLoanBook) Bootstrap(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS loans (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			principal TEXT NOT NULL,
			interest TEXT NOT NULL,
			total_payable TEXT NOT NULL,
			disbursed_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS wallet_entries (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			category TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			posted_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS c2b_payments (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			receipt TEXT NOT NULL,
			status TEXT NOT NULL,
			paid_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS disbursements (
			id TEXT PRIMARY KEY,
			loan_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			sent_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS repayment_allocations (
			id TEXT PRIMARY KEY,
			loan_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			alloc_type TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			paid_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS installments (
			id TEXT PRIMARY KEY,
			loan_id TEXT NOT NULL,
			due_date TIMESTAMP NOT NULL,
			paid_amount TEXT NOT NULL DEFAULT '0',
			penalty TEXT NOT NULL DEFAULT '0'
		)`,
	}

	for _, stmt := range schema {
		if _, err := lb.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to bootstrap schema: %w", err)
		}
	}
	return nil
}

// GetCustomer resolves one customer record.
func (lb *SQLiteLoanBook) GetCustomer(ctx context.Context, customerID string) (*statement.Customer, error) {
	var c statement.Customer
	err := lb.db.QueryRowContext(ctx, `
		SELECT id, name, phone FROM customers WHERE id = ?
	`, customerID).Scan(&c.ID, &c.Name, &c.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, statement.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

// ListLoans returns the customer's loans oldest-first.
func (lb *SQLiteLoanBook) ListLoans(ctx context.Context, customerID string) ([]statement.Loan, error) {
	rows, err := lb.db.QueryContext(ctx, `
		SELECT id, customer_id, principal, interest, total_payable, disbursed_at
		FROM loans
		WHERE customer_id = ?
		ORDER BY disbursed_at, id
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []statement.Loan
	for rows.Next() {
		var loan statement.Loan
		if err := rows.Scan(&loan.ID, &loan.CustomerID, &loan.Principal,
			&loan.Interest, &loan.TotalPayable, &loan.DisbursedAt); err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

// ListWalletEntries returns the customer's wallet ledger oldest-first.
func (lb *SQLiteLoanBook) ListWalletEntries(ctx context.Context, customerID string) ([]statement.WalletEntry, error) {
	rows, err := lb.db.QueryContext(ctx, `
		SELECT id, amount, category, reference, posted_at
		FROM wallet_entries
		WHERE customer_id = ?
		ORDER BY posted_at, id
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet entries: %w", err)
	}
	defer rows.Close()

	var entries []statement.WalletEntry
	for rows.Next() {
		var e statement.WalletEntry
		if err := rows.Scan(&e.ID, &e.Amount, &e.Category, &e.Reference, &e.PostedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListC2BPayments returns inbound mobile-money payments oldest-first.
func (lb *SQLiteLoanBook) ListC2BPayments(ctx context.Context, customerID string) ([]statement.C2BPayment, error) {
	rows, err := lb.db.QueryContext(ctx, `
		SELECT id, amount, receipt, status, paid_at
		FROM c2b_payments
		WHERE customer_id = ?
		ORDER BY paid_at, id
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query c2b payments: %w", err)
	}
	defer rows.Close()

	var payments []statement.C2BPayment
	for rows.Next() {
		var p statement.C2BPayment
		if err := rows.Scan(&p.ID, &p.Amount, &p.Receipt, &p.Status, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan c2b payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ListDisbursements returns disbursement transactions for the given loans.
func (lb *SQLiteLoanBook) ListDisbursements(ctx context.Context, loanIDs []string) ([]statement.Disbursement, error) {
	if len(loanIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, loan_id, amount, reference, status, sent_at
		FROM disbursements
		WHERE loan_id IN (%s)
		ORDER BY sent_at, id
	`, questionMarks(len(loanIDs)))

	rows, err := lb.db.QueryContext(ctx, query, toArgs(loanIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query disbursements: %w", err)
	}
	defer rows.Close()

	var disbursements []statement.Disbursement
	for rows.Next() {
		var d statement.Disbursement
		if err := rows.Scan(&d.ID, &d.LoanID, &d.Amount, &d.Reference, &d.Status, &d.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan disbursement: %w", err)
		}
		disbursements = append(disbursements, d)
	}
	return disbursements, rows.Err()
}

// ListRepayments returns repayment allocation rows for the given loans.
func (lb *SQLiteLoanBook) ListRepayments(ctx context.Context, loanIDs []string) ([]statement.RepaymentAllocation, error) {
	if len(loanIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, loan_id, amount, alloc_type, reference, paid_at
		FROM repayment_allocations
		WHERE loan_id IN (%s)
		ORDER BY paid_at, id
	`, questionMarks(len(loanIDs)))

	rows, err := lb.db.QueryContext(ctx, query, toArgs(loanIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query repayment allocations: %w", err)
	}
	defer rows.Close()

	var allocations []statement.RepaymentAllocation
	for rows.Next() {
		var a statement.RepaymentAllocation
		if err := rows.Scan(&a.ID, &a.LoanID, &a.Amount, &a.Type, &a.Reference, &a.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan repayment allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// ListInstallments returns the repayment schedule rows for the given loans.
func (lb *SQLiteLoanBook) ListInstallments(ctx context.Context, loanIDs []string) ([]statement.Installment, error) {
	if len(loanIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, loan_id, due_date, paid_amount, penalty
		FROM installments
		WHERE loan_id IN (%s)
		ORDER BY due_date, id
	`, questionMarks(len(loanIDs)))

	rows, err := lb.db.QueryContext(ctx, query, toArgs(loanIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var installments []statement.Installment
	for rows.Next() {
		var inst statement.Installment
		if err := rows.Scan(&inst.ID, &inst.LoanID, &inst.DueDate, &inst.PaidAmount, &inst.Penalty); err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

func questionMarks(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
