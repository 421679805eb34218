package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeTotals(t *testing.T) {
	in := rawInputs{
		loans: []Loan{
			{ID: "l1", Principal: dec("5000"), Interest: dec("500"), TotalPayable: dec("5500")},
			{ID: "l2", Principal: dec("3000"), Interest: dec("300"), TotalPayable: dec("3300")},
		},
		repayments: []RepaymentAllocation{
			{ID: "r1", LoanID: "l1", Amount: dec("800"), Type: AllocationPrincipal, Reference: "A1"},
			{ID: "r2", LoanID: "l1", Amount: dec("100"), Type: AllocationInterest, Reference: "A1"},
			{ID: "r3", LoanID: "l2", Amount: dec("500"), Type: AllocationPrincipal, Reference: "A2"},
		},
		installments: []Installment{
			{ID: "i1", LoanID: "l1", Penalty: dec("75")},
		},
	}

	summary, warnings := summarize(in)
	assert.Empty(t, warnings)

	assert.True(t, summary.Principal.Equal(dec("8000")))
	assert.True(t, summary.Interest.Equal(dec("800")))
	assert.True(t, summary.TotalLoanAmount.Equal(dec("8875")), "total payable plus accrued penalties")
	assert.True(t, summary.TotalPaid.Equal(dec("1400")))
	assert.True(t, summary.OutstandingBalance.Equal(summary.TotalLoanAmount.Sub(summary.TotalPaid)))
	assert.True(t, summary.TotalLoanAmount.GreaterThanOrEqual(summary.Principal.Add(summary.Interest)))
}

func TestSummarizeFallsBackToInstallmentPaid(t *testing.T) {
	in := rawInputs{
		loans: []Loan{
			{ID: "l1", Principal: dec("5000"), Interest: dec("500"), TotalPayable: dec("5500")},
		},
		installments: []Installment{
			{ID: "i1", LoanID: "l1", PaidAmount: dec("1200")},
		},
	}

	summary, warnings := summarize(in)
	assert.Empty(t, warnings)
	assert.True(t, summary.TotalPaid.Equal(dec("1200")), "installment paid amounts are the fallback")
}

func TestSummarizeFlagsAllocationInstallmentDisagreement(t *testing.T) {
	in := rawInputs{
		loans: []Loan{
			{ID: "l1", Principal: dec("5000"), Interest: dec("500"), TotalPayable: dec("5500")},
		},
		repayments: []RepaymentAllocation{
			{ID: "r1", LoanID: "l1", Amount: dec("900"), Type: AllocationPrincipal, Reference: "A1"},
		},
		installments: []Installment{
			{ID: "i1", LoanID: "l1", PaidAmount: dec("1500")},
		},
	}

	summary, warnings := summarize(in)
	require.Len(t, warnings, 1, "both sources present and disagreeing must be flagged")
	assert.Contains(t, warnings[0], "loan l1")
	assert.True(t, summary.TotalPaid.Equal(dec("900")), "allocations stay authoritative")
}

func TestSummarizeEmptyCustomer(t *testing.T) {
	summary, warnings := summarize(rawInputs{})
	assert.Empty(t, warnings)
	assert.True(t, summary.TotalLoanAmount.IsZero())
	assert.True(t, summary.Principal.IsZero())
	assert.True(t, summary.Interest.IsZero())
	assert.True(t, summary.TotalPaid.IsZero())
	assert.True(t, summary.OutstandingBalance.IsZero())
}

func TestCrossCheckDetectsDivergence(t *testing.T) {
	allocations := []RepaymentAllocation{
		{ID: "r1", LoanID: "l1", Amount: dec("900"), Type: AllocationPrincipal, Reference: "A1"},
	}

	// A merge that dropped the allocation leg entirely.
	warnings := crossCheck(nil, allocations)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "900")

	// A faithful merge is silent.
	events := []TransactionEvent{
		debitEvent("repayment:r1", KindPrincipalRepayment, baseTime, "Repayment - principal", "A1", dec("900")),
	}
	assert.Empty(t, crossCheck(events, allocations))
}
