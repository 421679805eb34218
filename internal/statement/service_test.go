package statement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSources struct {
	customer    *Customer
	customerErr error

	loans    []Loan
	loansErr error

	wallet    []WalletEntry
	walletErr error

	c2b    []C2BPayment
	c2bErr error

	disbursements    []Disbursement
	disbursementsErr error

	repayments    []RepaymentAllocation
	repaymentsErr error

	installments    []Installment
	installmentsErr error
}

func (s *stubSources) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	if s.customerErr != nil {
		return nil, s.customerErr
	}
	if s.customer == nil || s.customer.ID != customerID {
		return nil, ErrCustomerNotFound
	}
	return s.customer, nil
}

func (s *stubSources) ListLoans(ctx context.Context, customerID string) ([]Loan, error) {
	return s.loans, s.loansErr
}

func (s *stubSources) ListWalletEntries(ctx context.Context, customerID string) ([]WalletEntry, error) {
	return s.wallet, s.walletErr
}

func (s *stubSources) ListC2BPayments(ctx context.Context, customerID string) ([]C2BPayment, error) {
	return s.c2b, s.c2bErr
}

func (s *stubSources) ListDisbursements(ctx context.Context, loanIDs []string) ([]Disbursement, error) {
	return s.disbursements, s.disbursementsErr
}

func (s *stubSources) ListRepayments(ctx context.Context, loanIDs []string) ([]RepaymentAllocation, error) {
	return s.repayments, s.repaymentsErr
}

func (s *stubSources) ListInstallments(ctx context.Context, loanIDs []string) ([]Installment, error) {
	return s.installments, s.installmentsErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() func() time.Time {
	at := baseTime.Add(30 * 24 * time.Hour)
	return func() time.Time { return at }
}

// oneLoanSources builds the single-loan scenario: disbursed 5000 with a 500
// registration fee and a 200 processing fee, repaid 900 (800 principal, 100
// interest) via receipt ABC123, no penalties.
func oneLoanSources() *stubSources {
	repaidAt := baseTime.Add(7 * 24 * time.Hour)
	return &stubSources{
		customer: &Customer{ID: "c1", Name: "Amina Odhiambo", Phone: "254700000001"},
		loans: []Loan{
			{ID: "l1", CustomerID: "c1", Principal: dec("5000"), Interest: dec("500"), TotalPayable: dec("5500"), DisbursedAt: baseTime},
		},
		wallet: []WalletEntry{
			{ID: "w1", Amount: dec("-500"), Category: WalletCategoryRegistration, PostedAt: baseTime},
			{ID: "w2", Amount: dec("-200"), Category: WalletCategoryProcessing, PostedAt: baseTime},
		},
		disbursements: []Disbursement{
			{ID: "d1", LoanID: "l1", Amount: dec("5000"), Reference: "B2C001", Status: DisbursementStatusSuccess, SentAt: baseTime},
		},
		repayments: []RepaymentAllocation{
			{ID: "r1", LoanID: "l1", Amount: dec("800"), Type: AllocationPrincipal, Reference: "ABC123", PaidAt: repaidAt},
			{ID: "r2", LoanID: "l1", Amount: dec("100"), Type: AllocationInterest, Reference: "ABC123", PaidAt: repaidAt},
		},
	}
}

func TestBuildStatementSingleLoanScenario(t *testing.T) {
	svc := NewService(oneLoanSources(), WithLogger(quietLogger()), WithClock(fixedClock()))

	stmt, err := svc.BuildStatement(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, stmt)
	assert.False(t, stmt.IsDegraded())
	assert.Empty(t, stmt.Warnings)

	// Anchor plus seven events, most-recent-first after the anchor.
	require.Len(t, stmt.Events, 8)
	require.True(t, stmt.Events[0].IsAnchor())

	// Ascending order is the display order reversed.
	wantAscending := []struct {
		kind   Kind
		signed string
	}{
		{KindRegistrationFee, "-500"},
		{KindDisbursement, "5000"},
		{KindProcessingFee, "-200"},
		{KindLoanBooking, "-5000"},
		{KindDeposit, "900"},
		{KindPrincipalRepayment, "-800"},
		{KindInterestRepayment, "-100"},
	}
	for i, want := range wantAscending {
		got := stmt.Events[len(stmt.Events)-1-i]
		assert.Equal(t, want.kind, got.Kind, "ascending position %d", i)
		assert.True(t, got.SignedAmount().Equal(dec(want.signed)),
			"ascending position %d: want %s, got %s", i, want.signed, got.SignedAmount())
	}

	assert.True(t, stmt.Events[0].BalanceAfter.Equal(dec("-700")), "anchor carries the final balance")
	assert.True(t, stmt.Events[1].BalanceAfter.Equal(dec("-700")), "latest event matches the anchor")

	assert.True(t, stmt.Summary.Principal.Equal(dec("5000")))
	assert.True(t, stmt.Summary.TotalPaid.Equal(dec("900")))
	assert.True(t, stmt.Summary.TotalLoanAmount.GreaterThanOrEqual(dec("5000")))
	assert.True(t, stmt.Summary.OutstandingBalance.Equal(stmt.Summary.TotalLoanAmount.Sub(dec("900"))))
}

func TestBuildStatementDuplicateReference(t *testing.T) {
	sources := oneLoanSources()
	// The same receipt arrives through the C2B table as well.
	sources.c2b = []C2BPayment{
		{ID: "cb1", Amount: dec("900"), Receipt: "ABC123", Status: C2BStatusApplied, PaidAt: baseTime.Add(7 * 24 * time.Hour)},
	}

	svc := NewService(sources, WithLogger(quietLogger()), WithClock(fixedClock()))
	stmt, err := svc.BuildStatement(context.Background(), "c1")
	require.NoError(t, err)

	var deposits []TransactionEvent
	for _, e := range stmt.Events {
		if e.Kind == KindDeposit && e.Reference == "ABC123" {
			deposits = append(deposits, e)
		}
	}
	require.Len(t, deposits, 1, "one receipt, one credit")
	assert.True(t, deposits[0].Credit.Equal(dec("900")))
	assert.True(t, stmt.Events[0].BalanceAfter.Equal(dec("-700")), "the duplicate must not move the balance")
}

func TestBuildStatementEmptyCustomer(t *testing.T) {
	sources := &stubSources{customer: &Customer{ID: "c9", Name: "No Loans"}}
	svc := NewService(sources, WithLogger(quietLogger()), WithClock(fixedClock()))

	stmt, err := svc.BuildStatement(context.Background(), "c9")
	require.NoError(t, err)
	require.Len(t, stmt.Events, 1)
	assert.True(t, stmt.Events[0].IsAnchor())
	assert.True(t, stmt.Events[0].BalanceAfter.IsZero())
	assert.True(t, stmt.Summary.TotalLoanAmount.IsZero())
	assert.True(t, stmt.Summary.OutstandingBalance.IsZero())
}

func TestBuildStatementCustomerNotFound(t *testing.T) {
	svc := NewService(&stubSources{}, WithLogger(quietLogger()))

	stmt, err := svc.BuildStatement(context.Background(), "missing")
	assert.Nil(t, stmt, "a fatal error never returns a partial statement")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestBuildStatementCriticalFetchAborts(t *testing.T) {
	sources := oneLoanSources()
	sources.loansErr = errors.New("loan book timeout")
	svc := NewService(sources, WithLogger(quietLogger()))

	stmt, err := svc.BuildStatement(context.Background(), "c1")
	assert.Nil(t, stmt)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, SourceLoans, upstream.Source)
}

func TestBuildStatementDegradesOnNonCriticalFailure(t *testing.T) {
	sources := oneLoanSources()
	sources.walletErr = errors.New("wallet service down")
	svc := NewService(sources, WithLogger(quietLogger()), WithClock(fixedClock()))

	stmt, err := svc.BuildStatement(context.Background(), "c1")
	require.NoError(t, err, "non-critical failures degrade, not abort")
	assert.True(t, stmt.IsDegraded())
	assert.Equal(t, []string{SourceWallet}, stmt.Degraded)

	// The fee debits lived in the wallet source, so the ledger shrinks.
	for _, e := range stmt.Events {
		assert.NotEqual(t, KindRegistrationFee, e.Kind)
		assert.NotEqual(t, KindProcessingFee, e.Kind)
	}
}

func TestBuildStatementDeterministic(t *testing.T) {
	svc := NewService(oneLoanSources(), WithLogger(quietLogger()), WithClock(fixedClock()))

	first, err := svc.BuildStatement(context.Background(), "c1")
	require.NoError(t, err)
	second, err := svc.BuildStatement(context.Background(), "c1")
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON), "identical inputs must produce byte-identical output")
}

func TestBuildSummaryIndependentOfLedger(t *testing.T) {
	sources := oneLoanSources()
	// Break every ledger-only source; the summary path must not notice.
	sources.walletErr = errors.New("down")
	sources.c2bErr = errors.New("down")
	sources.disbursementsErr = errors.New("down")

	svc := NewService(sources, WithLogger(quietLogger()))
	result, err := svc.BuildSummary(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, result.IsDegraded(), "ledger-only sources are not fetched for the summary")
	assert.True(t, result.Summary.Principal.Equal(dec("5000")))
	assert.True(t, result.Summary.TotalPaid.Equal(dec("900")))
	assert.True(t, result.Summary.OutstandingBalance.Equal(dec("4600")))
}

func TestBuildSummarySurfacesDisagreementWarning(t *testing.T) {
	sources := oneLoanSources()
	// The schedule claims more was paid than the allocations account for.
	sources.installments = []Installment{
		{ID: "i1", LoanID: "l1", DueDate: baseTime.Add(14 * 24 * time.Hour), PaidAmount: dec("1500")},
	}

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	svc := NewService(sources, WithLogger(logger))
	result, err := svc.BuildSummary(context.Background(), "c1")
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "loan l1")
	assert.Contains(t, result.Warnings[0], "900")
	assert.Contains(t, result.Warnings[0], "1500")
	assert.Contains(t, logBuf.String(), "statement reconciliation warning",
		"the disagreement must be logged, not just returned")

	// Allocations stay authoritative; the disagreement is flagged, never
	// resolved in either direction.
	assert.True(t, result.Summary.TotalPaid.Equal(dec("900")))
}

func TestBuildSummaryMarksDegradedSources(t *testing.T) {
	sources := oneLoanSources()
	sources.installments = []Installment{
		{ID: "i1", LoanID: "l1", DueDate: baseTime.Add(14 * 24 * time.Hour), PaidAmount: dec("900")},
	}
	sources.repaymentsErr = errors.New("repayment store down")

	svc := NewService(sources, WithLogger(quietLogger()))
	result, err := svc.BuildSummary(context.Background(), "c1")
	require.NoError(t, err, "non-critical failures degrade, not abort")

	assert.True(t, result.IsDegraded())
	assert.Equal(t, []string{SourceRepayments}, result.Degraded)
	// With allocations gone the installment fallback carries the paid total.
	assert.True(t, result.Summary.TotalPaid.Equal(dec("900")))
}

func TestBuildStatementBalanceReplayProperty(t *testing.T) {
	sources := oneLoanSources()
	sources.installments = []Installment{
		{ID: "i1", LoanID: "l1", DueDate: baseTime.Add(14 * 24 * time.Hour), Penalty: dec("150")},
	}

	svc := NewService(sources, WithLogger(quietLogger()), WithClock(fixedClock()))
	stmt, err := svc.BuildStatement(context.Background(), "c1")
	require.NoError(t, err)

	total := decimal.Zero
	for i := len(stmt.Events) - 1; i >= 1; i-- {
		total = total.Add(stmt.Events[i].SignedAmount())
	}
	assert.True(t, stmt.Events[0].BalanceAfter.Equal(total))
}
