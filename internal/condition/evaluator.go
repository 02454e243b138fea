package condition

import (
	"time"

	"github.com/webpiratt/swapd/internal/pricecache"
	"github.com/webpiratt/swapd/internal/types"
)

// Evaluate decides whether a limit order's price condition is met. Pure,
// no I/O. Strict inequality only: equality never triggers, so a condition
// at exactly the current price cannot double-fire across ticks.
func Evaluate(order types.LimitOrder, snapshot pricecache.Snapshot) bool {
	switch order.ConditionOperator {
	case types.ConditionGT:
		return snapshot.PriceUSD.GreaterThan(order.ConditionValue)
	case types.ConditionLT:
		return snapshot.PriceUSD.LessThan(order.ConditionValue)
	}
	return false
}

// Fresh reports whether a snapshot is usable under the freshness window.
// A stale snapshot must never trigger an execution.
func Fresh(snapshot pricecache.Snapshot, window time.Duration, now time.Time) bool {
	if snapshot.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(snapshot.FetchedAt) <= window
}
