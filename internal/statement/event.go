package statement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies what a ledger event represents. The set is closed: the
// normalizer and accumulator switch over it exhaustively, and adding a new
// kind requires assigning it a slot in the ordering below.
type Kind string

const (
	KindRegistrationFee    Kind = "registration_fee"
	KindDisbursement       Kind = "disbursement"
	KindProcessingFee      Kind = "processing_fee"
	KindLoanBooking        Kind = "loan_booking"
	KindDeposit            Kind = "deposit"
	KindPrincipalRepayment Kind = "principal_repayment"
	KindInterestRepayment  Kind = "interest_repayment"
	KindPenaltyRepayment   Kind = "penalty_repayment"
	KindPenaltyAccrual     Kind = "penalty_accrual"
	KindAnchor             Kind = "anchor"
)

// SeqPriority breaks ties between events sharing a timestamp. Lower sorts
// earlier in the ascending pass. The fee, disbursement and booking legs of
// one loan share the disbursement instant, so their relative order comes
// entirely from this value.
type SeqPriority int

const (
	seqRegistrationFee SeqPriority = iota // 0
	seqDisbursement                       // 1
	seqProcessingFee                      // 2
	seqLoanBooking                        // 3
	seqDeposit                            // 4
	seqPrincipalRepayment                 // 5
	seqInterestRepayment                  // 6
	seqPenaltyRepayment                   // 7
	seqPenaltyAccrual                     // 8
)

// Priority returns the intra-timestamp ordering slot for a kind. Anchors are
// synthesized after sorting and never participate in ordering.
func (k Kind) Priority() SeqPriority {
	switch k {
	case KindRegistrationFee:
		return seqRegistrationFee
	case KindDisbursement:
		return seqDisbursement
	case KindProcessingFee:
		return seqProcessingFee
	case KindLoanBooking:
		return seqLoanBooking
	case KindDeposit:
		return seqDeposit
	case KindPrincipalRepayment:
		return seqPrincipalRepayment
	case KindInterestRepayment:
		return seqInterestRepayment
	case KindPenaltyRepayment:
		return seqPenaltyRepayment
	case KindPenaltyAccrual:
		return seqPenaltyAccrual
	default:
		return seqPenaltyAccrual + 1
	}
}

// TransactionEvent is one row of the reconstructed statement. Exactly one of
// Debit and Credit is non-zero, except on the anchor row where both are zero.
type TransactionEvent struct {
	ID           string          `json:"id"`
	Kind         Kind            `json:"kind"`
	Timestamp    time.Time       `json:"timestamp"`
	Priority     SeqPriority     `json:"-"`
	Description  string          `json:"description"`
	Reference    string          `json:"reference,omitempty"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// SignedAmount is credit minus debit, the contribution to the running balance.
func (e *TransactionEvent) SignedAmount() decimal.Decimal {
	return e.Credit.Sub(e.Debit)
}

// IsAnchor reports whether this is the synthetic brought-forward row.
func (e *TransactionEvent) IsAnchor() bool {
	return e.Kind == KindAnchor
}

// StatementSummary carries the loan-book totals computed independently of the
// event ledger so the two views can be cross-checked.
type StatementSummary struct {
	TotalLoanAmount    decimal.Decimal `json:"total_loan_amount"`
	Principal          decimal.Decimal `json:"principal"`
	Interest           decimal.Decimal `json:"interest"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
}

// SummaryResult is the summary-only view. It carries the same degradation
// and warning signals as a full statement, so a consumer reading just the
// totals can still tell a complete run from a partial or inconsistent one.
type SummaryResult struct {
	Summary  StatementSummary `json:"summary"`
	Degraded []string         `json:"degraded_sources,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

// IsDegraded reports whether any non-critical source failed during the run.
func (r *SummaryResult) IsDegraded() bool {
	return len(r.Degraded) > 0
}

// Statement is the full reconciliation output: the display-ordered event
// sequence (anchor first, then most-recent-first) plus the summary. It is a
// finite snapshot, safe to re-iterate by any number of formatters.
type Statement struct {
	Customer    Customer           `json:"customer"`
	Events      []TransactionEvent `json:"events"`
	Summary     StatementSummary   `json:"summary"`
	Degraded    []string           `json:"degraded_sources,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// IsDegraded reports whether any non-critical source failed during the run.
func (s *Statement) IsDegraded() bool {
	return len(s.Degraded) > 0
}
