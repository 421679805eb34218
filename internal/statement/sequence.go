package statement

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// sequence orders events ascending by (timestamp, priority), walks them to
// assign running balances starting from zero, then returns the display order:
// a synthetic brought-forward anchor carrying the final balance, followed by
// the events most-recent-first. The sort is stable, so events tied on both
// keys keep their normalization order.
func sequence(events []TransactionEvent, now time.Time) []TransactionEvent {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		return events[i].Priority < events[j].Priority
	})

	balance := decimal.Zero
	for i := range events {
		balance = balance.Add(events[i].SignedAmount())
		events[i].BalanceAfter = balance
	}

	out := make([]TransactionEvent, 0, len(events)+1)
	out = append(out, broughtForward(now, balance))
	for i := len(events) - 1; i >= 0; i-- {
		out = append(out, events[i])
	}
	return out
}

func broughtForward(now time.Time, balance decimal.Decimal) TransactionEvent {
	return TransactionEvent{
		ID:           "anchor",
		Kind:         KindAnchor,
		Timestamp:    now,
		Description:  "Balance Brought Forward",
		Debit:        decimal.Zero,
		Credit:       decimal.Zero,
		BalanceAfter: balance,
	}
}
