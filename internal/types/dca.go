package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// DCASchedule is a recurring instruction to swap a fixed amount at a fixed
// cadence. NextExecution is the sole authority for due-ness and is recomputed
// from its previous value after every successful execution.
type DCASchedule struct {
	ID             uuid.UUID       `json:"id"`
	Owner          string          `json:"owner"`
	FromAsset      string          `json:"from_asset"`
	FromChain      string          `json:"from_chain"`
	ToAsset        string          `json:"to_asset"`
	ToChain        string          `json:"to_chain"`
	Amount         decimal.Decimal `json:"amount"`
	Frequency      Frequency       `json:"frequency"`
	DayOfWeek      *time.Weekday   `json:"day_of_week,omitempty"`
	DayOfMonth     *int            `json:"day_of_month,omitempty"`
	SettleAddress  string          `json:"settle_address"`
	NextExecution  time.Time       `json:"next_execution"`
	LastExecuted   *time.Time      `json:"last_executed,omitempty"`
	ExecutionCount int             `json:"execution_count"`
	FailureCount   int             `json:"failure_count"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsDue reports whether the schedule should execute at the given instant.
func (s *DCASchedule) IsDue(now time.Time) bool {
	return s.IsActive && !s.NextExecution.After(now)
}

// OccurrenceKey identifies one scheduled occurrence so that a retried
// execution of the same slot never creates a second history entry.
func (s *DCASchedule) OccurrenceKey() string {
	return "dca-" + s.ID.String() + "-" + s.NextExecution.UTC().Format("20060102T150405")
}
