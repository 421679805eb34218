package statement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet entry categories as stored by the wallet ledger.
const (
	WalletCategoryRegistration = "registration"
	WalletCategoryProcessing   = "processing"
	WalletCategoryOther        = "other"
)

// Repayment allocation types.
const (
	AllocationPrincipal = "principal"
	AllocationInterest  = "interest"
	AllocationPenalty   = "penalty"
)

// Statuses accepted from the mobile-money tables. Anything else is ignored.
const (
	C2BStatusApplied          = "applied"
	C2BStatusSuccess          = "success"
	DisbursementStatusSuccess = "success"
)

// Customer is the borrower record.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Loan is one loan as stored by the loan book.
type Loan struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customer_id"`
	Principal    decimal.Decimal `json:"principal"`
	Interest     decimal.Decimal `json:"interest"`
	TotalPayable decimal.Decimal `json:"total_payable"`
	DisbursedAt  time.Time       `json:"disbursed_at"`
}

// WalletEntry is one row of the customer wallet ledger. Amount is signed:
// deposits are positive, fees and charges negative.
type WalletEntry struct {
	ID        string
	Amount    decimal.Decimal
	Category  string
	Reference string
	PostedAt  time.Time
}

// C2BPayment is an inbound mobile-money payment record.
type C2BPayment struct {
	ID      string
	Amount  decimal.Decimal
	Receipt string
	Status  string
	PaidAt  time.Time
}

// Disbursement is an outbound (B2C) loan disbursement transaction.
type Disbursement struct {
	ID        string
	LoanID    string
	Amount    decimal.Decimal
	Reference string
	Status    string
	SentAt    time.Time
}

// RepaymentAllocation is the split of one repayment across principal,
// interest and penalty. Rows sharing a Reference belong to one payment.
type RepaymentAllocation struct {
	ID        string
	LoanID    string
	Amount    decimal.Decimal
	Type      string
	Reference string
	PaidAt    time.Time
}

// Installment is one scheduled repayment with any accrued late penalty.
type Installment struct {
	ID         string
	LoanID     string
	DueDate    time.Time
	PaidAmount decimal.Decimal
	Penalty    decimal.Decimal
}

// Source names used in degraded-source lists and upstream errors.
const (
	SourceCustomer      = "customer"
	SourceLoans         = "loans"
	SourceWallet        = "wallet"
	SourceC2B           = "c2b"
	SourceDisbursements = "disbursements"
	SourceRepayments    = "repayments"
	SourceInstallments  = "installments"
)

// Sources is the read surface the engine reconciles over. Implementations
// return rows oldest-first and never mutate the underlying tables. The
// customer and loan fetches are critical; every other method may fail
// without aborting a run.
type Sources interface {
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	ListLoans(ctx context.Context, customerID string) ([]Loan, error)
	ListWalletEntries(ctx context.Context, customerID string) ([]WalletEntry, error)
	ListC2BPayments(ctx context.Context, customerID string) ([]C2BPayment, error)
	ListDisbursements(ctx context.Context, loanIDs []string) ([]Disbursement, error)
	ListRepayments(ctx context.Context, loanIDs []string) ([]RepaymentAllocation, error)
	ListInstallments(ctx context.Context, loanIDs []string) ([]Installment, error)
}
