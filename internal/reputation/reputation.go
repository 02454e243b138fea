package reputation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/webpiratt/swapd/storage"
)

// Metrics are derived on demand from swap history aggregates. They have no
// independent lifecycle and are never persisted.
type Metrics struct {
	Owner        string          `json:"owner"`
	TrustScore   int             `json:"trust_score"`
	SuccessRate  decimal.Decimal `json:"success_rate"`
	TotalSwaps   int64           `json:"total_swaps"`
	SettledSwaps int64           `json:"settled_swaps"`
	FailedSwaps  int64           `json:"failed_swaps"`
	TotalVolume  decimal.Decimal `json:"total_volume"`
	RecentVolume decimal.Decimal `json:"recent_volume"`
	AccountAgeD  int             `json:"account_age_days"`
}

// score weights, out of 100.
const (
	successWeight  = 50
	volumeWeight   = 25
	ageWeight      = 15
	activityWeight = 10
)

// Compute derives reputation metrics from raw aggregates. Pure function of
// the history rows; an owner with no swaps scores zero.
func Compute(owner string, agg storage.ReputationAggregates, now time.Time) Metrics {
	m := Metrics{
		Owner:        owner,
		SuccessRate:  decimal.Zero,
		TotalSwaps:   agg.TotalSwaps,
		SettledSwaps: agg.SettledSwaps,
		FailedSwaps:  agg.FailedSwaps,
		TotalVolume:  parseVolume(agg.TotalVolume),
		RecentVolume: parseVolume(agg.RecentVolume),
	}

	if agg.FirstSwapAt != nil {
		m.AccountAgeD = int(now.Sub(*agg.FirstSwapAt).Hours() / 24)
	}

	if agg.TotalSwaps == 0 {
		return m
	}

	decided := agg.SettledSwaps + agg.FailedSwaps
	if decided > 0 {
		m.SuccessRate = decimal.NewFromInt(agg.SettledSwaps).
			Div(decimal.NewFromInt(decided)).
			Round(4)
	}

	score := decimal.Zero

	// Success component scales linearly with the settled ratio.
	score = score.Add(m.SuccessRate.Mul(decimal.NewFromInt(successWeight)))

	// Volume component saturates at $10k settled volume.
	volumeCap := decimal.NewFromInt(10_000)
	volRatio := decimal.Min(m.TotalVolume.Div(volumeCap), decimal.NewFromInt(1))
	score = score.Add(volRatio.Mul(decimal.NewFromInt(volumeWeight)))

	// Age component saturates at 180 days.
	ageRatio := decimal.Min(decimal.NewFromInt(int64(m.AccountAgeD)).Div(decimal.NewFromInt(180)), decimal.NewFromInt(1))
	score = score.Add(ageRatio.Mul(decimal.NewFromInt(ageWeight)))

	// Activity component saturates at 20 swaps.
	actRatio := decimal.Min(decimal.NewFromInt(agg.TotalSwaps).Div(decimal.NewFromInt(20)), decimal.NewFromInt(1))
	score = score.Add(actRatio.Mul(decimal.NewFromInt(activityWeight)))

	m.TrustScore = int(score.Round(0).IntPart())
	if m.TrustScore > 100 {
		m.TrustScore = 100
	}
	return m
}

func parseVolume(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
