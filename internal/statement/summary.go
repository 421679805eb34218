package statement

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// reconcileTolerance is one rounding unit. Divergences beyond it between
// independently computed totals are surfaced as warnings, never corrected.
var reconcileTolerance = decimal.New(1, -2)

// summarize computes the statement totals from the authoritative loan-book
// aggregates, deliberately without touching the event ledger. Repayment
// allocations are authoritative for the paid total; installment paid amounts
// are a fallback when a loan has no allocation rows, and a warning is raised
// when both exist and disagree.
func summarize(in rawInputs) (StatementSummary, []string) {
	var warnings []string

	summary := StatementSummary{
		TotalLoanAmount:    decimal.Zero,
		Principal:          decimal.Zero,
		Interest:           decimal.Zero,
		TotalPaid:          decimal.Zero,
		OutstandingBalance: decimal.Zero,
	}

	for _, loan := range in.loans {
		summary.Principal = summary.Principal.Add(loan.Principal)
		summary.Interest = summary.Interest.Add(loan.Interest)
		summary.TotalLoanAmount = summary.TotalLoanAmount.Add(loan.TotalPayable)
	}

	allocPaid := make(map[string]decimal.Decimal)
	allocRows := make(map[string]int)
	for _, a := range in.repayments {
		allocPaid[a.LoanID] = allocPaid[a.LoanID].Add(a.Amount)
		allocRows[a.LoanID]++
	}

	instPaid := make(map[string]decimal.Decimal)
	for _, inst := range in.installments {
		summary.TotalLoanAmount = summary.TotalLoanAmount.Add(inst.Penalty)
		instPaid[inst.LoanID] = instPaid[inst.LoanID].Add(inst.PaidAmount)
	}

	for _, loan := range in.loans {
		paid, hasAllocs := allocPaid[loan.ID], allocRows[loan.ID] > 0
		fallback := instPaid[loan.ID]
		if !hasAllocs {
			summary.TotalPaid = summary.TotalPaid.Add(fallback)
			continue
		}
		summary.TotalPaid = summary.TotalPaid.Add(paid)
		if fallback.IsPositive() && paid.Sub(fallback).Abs().GreaterThan(reconcileTolerance) {
			warnings = append(warnings, fmt.Sprintf(
				"loan %s: repayment allocations total %s but installments record %s paid",
				loan.ID, paid.String(), fallback.String()))
		}
	}

	summary.OutstandingBalance = summary.TotalLoanAmount.Sub(summary.TotalPaid)
	return summary, warnings
}

// crossCheck replays the repayment legs of the merged ledger against the raw
// allocation rows. The two totals are computed by independent paths, so a
// divergence means a record was dropped or double-counted during the merge;
// it is reported, not repaired.
func crossCheck(events []TransactionEvent, allocations []RepaymentAllocation) []string {
	if len(allocations) == 0 {
		return nil
	}

	rawPaid := decimal.Zero
	for _, a := range allocations {
		rawPaid = rawPaid.Add(a.Amount)
	}

	ledgerPaid := decimal.Zero
	for i := range events {
		switch events[i].Kind {
		case KindPrincipalRepayment, KindInterestRepayment, KindPenaltyRepayment:
			ledgerPaid = ledgerPaid.Add(events[i].Debit)
		}
	}

	if ledgerPaid.Sub(rawPaid).Abs().GreaterThan(reconcileTolerance) {
		return []string{fmt.Sprintf(
			"ledger repayments total %s but allocation records total %s",
			ledgerPaid.String(), rawPaid.String())}
	}
	return nil
}
