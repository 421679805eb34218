package loanbook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jasiri-lending/jasiri-sub001/internal/statement"
)

const queryTimeout = 10 * time.Second

// PostgresLoanBook reads the loan-book tables over a pgx pool. It is a pure
// read surface: the statement engine never writes through it.
type PostgresLoanBook struct {
	Pool *pgxpool.Pool
}

// NewPostgresLoanBook creates a Postgres-backed source adapter.
func NewPostgresLoanBook(pool *pgxpool.Pool) *PostgresLoanBook {
	return &PostgresLoanBook{Pool: pool}
}

var _ statement.Sources = (*PostgresLoanBook)(nil)

// GetCustomer resolves one customer record.
func (lb *PostgresLoanBook) GetCustomer(ctx context.Context, customerID string) (*statement.Customer, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c statement.Customer
	err := lb.Pool.QueryRow(queryCtx, `
		SELECT id, name, COALESCE(phone, '')
		FROM customers
		WHERE id = $1
	`, customerID).Scan(&c.ID, &c.Name, &c.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, statement.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &c, nil
}

// ListLoans returns the customer's loans oldest-first.
func (lb *PostgresLoanBook) ListLoans(ctx context.Context, customerID string) ([]statement.Loan, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := lb.Pool.Query(queryCtx, `
		SELECT id, customer_id, principal, interest, total_payable, disbursed_at
		FROM loans
		WHERE customer_id = $1
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
func (lb *PostgresLoanBook) ListWalletEntries(ctx context.Context, customerID string) ([]statement.WalletEntry, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := lb.Pool.Query(queryCtx, `
		SELECT id, amount, category, COALESCE(reference, ''), posted_at
		FROM wallet_entries
		WHERE customer_id = $1
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
func (lb *PostgresLoanBook) ListC2BPayments(ctx context.Context, customerID string) ([]statement.C2BPayment, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := lb.Pool.Query(queryCtx, `
		SELECT id, amount, receipt, status, paid_at
		FROM c2b_payments
		WHERE customer_id = $1
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
func (lb *PostgresLoanBook) ListDisbursements(ctx context.Context, loanIDs []string) ([]statement.Disbursement, error) {
	if len(loanIDs) == 0 {
		return nil, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, loan_id, amount, COALESCE(reference, ''), status, sent_at
		FROM disbursements
		WHERE loan_id IN (%s)
		ORDER BY sent_at, id
	`, placeholders(len(loanIDs)))

	rows, err := lb.Pool.Query(queryCtx, query, toArgs(loanIDs)...)
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
// Order matters downstream: rows arrive oldest-first so allocation legs keep
// their booking order inside one payment group.
func (lb *PostgresLoanBook) ListRepayments(ctx context.Context, loanIDs []string) ([]statement.RepaymentAllocation, error) {
	if len(loanIDs) == 0 {
		return nil, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, loan_id, amount, alloc_type, COALESCE(reference, ''), paid_at
		FROM repayment_allocations
		WHERE loan_id IN (%s)
		ORDER BY paid_at, id
	`, placeholders(len(loanIDs)))

	rows, err := lb.Pool.Query(queryCtx, query, toArgs(loanIDs)...)
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
func (lb *PostgresLoanBook) ListInstallments(ctx context.Context, loanIDs []string) ([]statement.Installment, error) {
	if len(loanIDs) == 0 {
		return nil, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, loan_id, due_date, paid_amount, penalty
		FROM installments
		WHERE loan_id IN (%s)
		ORDER BY due_date, id
	`, placeholders(len(loanIDs)))

	rows, err := lb.Pool.Query(queryCtx, query, toArgs(loanIDs)...)
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

// placeholders renders "$1, $2, ..." for an IN clause of n values.
func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}

func toArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
