package statement

import (
	"time"

	"github.com/shopspring/decimal"
)

// rawInputs is the complete snapshot one run reconciles over. Slices from
// failed non-critical fetches arrive empty.
type rawInputs struct {
	loans         []Loan
	wallet        []WalletEntry
	c2b           []C2BPayment
	disbursements []Disbursement
	repayments    []RepaymentAllocation
	installments  []Installment
}

// normalize maps every raw record into zero or more canonical events.
// Sources are processed in dedup-priority order: wallet entries claim their
// references first, then C2B payments, then repayment groups, so a receipt
// mentioned in several tables credits the ledger exactly once.
func normalize(in rawInputs, seen *ReferenceSet) []TransactionEvent {
	events := make([]TransactionEvent, 0,
		len(in.wallet)+len(in.c2b)+2*len(in.disbursements)+2*len(in.repayments)+len(in.installments))

	events = append(events, walletEvents(in.wallet, seen)...)
	events = append(events, c2bEvents(in.c2b, seen)...)
	events = append(events, disbursementEvents(in.disbursements)...)
	events = append(events, repaymentEvents(in.repayments, seen)...)
	events = append(events, penaltyEvents(in.installments)...)

	return events
}

func walletEvents(entries []WalletEntry, seen *ReferenceSet) []TransactionEvent {
	var events []TransactionEvent
	for _, entry := range entries {
		switch entry.Category {
		case WalletCategoryRegistration:
			events = append(events, debitEvent("wallet:"+entry.ID, KindRegistrationFee,
				entry.PostedAt, "Registration fee", entry.Reference, entry.Amount.Abs()))
		case WalletCategoryProcessing:
			events = append(events, debitEvent("wallet:"+entry.ID, KindProcessingFee,
				entry.PostedAt, "Processing fee", entry.Reference, entry.Amount.Abs()))
		default:
			// Only positive "other" entries are money in; negative ones are
			// internal wallet adjustments outside the statement model.
			if entry.Amount.IsPositive() && seen.Register(entry.Reference) {
				events = append(events, creditEvent("wallet:"+entry.ID, KindDeposit,
					entry.PostedAt, "Mobile money deposit", entry.Reference, entry.Amount))
			}
		}
	}
	return events
}

func c2bEvents(payments []C2BPayment, seen *ReferenceSet) []TransactionEvent {
	var events []TransactionEvent
	for _, p := range payments {
		if p.Status != C2BStatusApplied && p.Status != C2BStatusSuccess {
			continue
		}
		if !seen.Register(p.Receipt) {
			continue
		}
		events = append(events, creditEvent("c2b:"+p.ID, KindDeposit,
			p.PaidAt, "Mobile money deposit", p.Receipt, p.Amount))
	}
	return events
}

// disbursementEvents explodes each successful disbursement into two legs at
// the same instant: the money sent to the customer and the loan amount
// booked against them.
func disbursementEvents(disbursements []Disbursement) []TransactionEvent {
	var events []TransactionEvent
	for _, d := range disbursements {
		if d.Status != DisbursementStatusSuccess {
			continue
		}
		events = append(events, creditEvent("disbursement:"+d.ID, KindDisbursement,
			d.SentAt, "Loan disbursement", d.Reference, d.Amount))
		events = append(events, debitEvent("booking:"+d.ID, KindLoanBooking,
			d.SentAt, "Loan amount booked", d.Reference, d.Amount))
	}
	return events
}

// repaymentEvents groups allocation rows by external reference, preserving
// first-seen order. Each group yields one deposit credit for the payment
// total, unless the receipt was already credited from the wallet or C2B
// tables, followed by one debit per allocation row in input order.
func repaymentEvents(allocations []RepaymentAllocation, seen *ReferenceSet) []TransactionEvent {
	type group struct {
		ref    string
		allocs []RepaymentAllocation
	}

	var groups []*group
	index := make(map[string]*group)
	for _, a := range allocations {
		if a.Reference == "" {
			// No receipt to group on, the row stands alone.
			groups = append(groups, &group{allocs: []RepaymentAllocation{a}})
			continue
		}
		g, ok := index[a.Reference]
		if !ok {
			g = &group{ref: a.Reference}
			index[a.Reference] = g
			groups = append(groups, g)
		}
		g.allocs = append(g.allocs, a)
	}

	var events []TransactionEvent
	for _, g := range groups {
		total := decimal.Zero
		for _, a := range g.allocs {
			total = total.Add(a.Amount)
		}

		if seen.Register(g.ref) {
			first := g.allocs[0]
			events = append(events, creditEvent("deposit:"+first.ID, KindDeposit,
				first.PaidAt, "Mobile money deposit", g.ref, total))
		}

		for _, a := range g.allocs {
			events = append(events, debitEvent("repayment:"+a.ID, allocationKind(a.Type),
				a.PaidAt, allocationDescription(a.Type), a.Reference, a.Amount))
		}
	}
	return events
}

// penaltyEvents synthesizes a late-payment debit for every installment with
// an accrued penalty, dated one day after the due date.
func penaltyEvents(installments []Installment) []TransactionEvent {
	var events []TransactionEvent
	for _, inst := range installments {
		if !inst.Penalty.IsPositive() {
			continue
		}
		events = append(events, debitEvent("penalty:"+inst.ID, KindPenaltyAccrual,
			inst.DueDate.AddDate(0, 0, 1), "Late payment penalty", "", inst.Penalty))
	}
	return events
}

func allocationKind(allocType string) Kind {
	switch allocType {
	case AllocationInterest:
		return KindInterestRepayment
	case AllocationPenalty:
		return KindPenaltyRepayment
	default:
		return KindPrincipalRepayment
	}
}

func allocationDescription(allocType string) string {
	switch allocType {
	case AllocationInterest:
		return "Repayment - interest"
	case AllocationPenalty:
		return "Repayment - penalty"
	default:
		return "Repayment - principal"
	}
}

func debitEvent(id string, kind Kind, ts time.Time, description, reference string, amount decimal.Decimal) TransactionEvent {
	return TransactionEvent{
		ID:          id,
		Kind:        kind,
		Timestamp:   ts,
		Priority:    kind.Priority(),
		Description: description,
		Reference:   reference,
		Debit:       amount,
	}
}

func creditEvent(id string, kind Kind, ts time.Time, description, reference string, amount decimal.Decimal) TransactionEvent {
	return TransactionEvent{
		ID:          id,
		Kind:        kind,
		Timestamp:   ts,
		Priority:    kind.Priority(),
		Description: description,
		Reference:   reference,
		Credit:      amount,
	}
}
