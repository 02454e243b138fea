package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LimitOrderStatus string

const (
	OrderStatusPending   LimitOrderStatus = "pending"
	OrderStatusExecuting LimitOrderStatus = "executing"
	OrderStatusExecuted  LimitOrderStatus = "executed"
	OrderStatusFailed    LimitOrderStatus = "failed"
	OrderStatusCancelled LimitOrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from the status.
func (s LimitOrderStatus) IsTerminal() bool {
	return s == OrderStatusExecuted || s == OrderStatusFailed || s == OrderStatusCancelled
}

type ConditionOperator string

const (
	ConditionGT ConditionOperator = "gt"
	ConditionLT ConditionOperator = "lt"
)

// LimitOrder is a conditional swap instruction executed once its price
// condition is met. Status is mutated only by the monitor loop or by an
// explicit user cancellation.
type LimitOrder struct {
	ID                uuid.UUID         `json:"id"`
	Owner             string            `json:"owner"`
	FromAsset         string            `json:"from_asset"`
	FromChain         string            `json:"from_chain"`
	ToAsset           string            `json:"to_asset"`
	ToChain           string            `json:"to_chain"`
	Amount            decimal.Decimal   `json:"amount"`
	ConditionAsset    string            `json:"condition_asset"`
	ConditionOperator ConditionOperator `json:"condition_operator"`
	ConditionValue    decimal.Decimal   `json:"condition_value"`
	SettleAddress     string            `json:"settle_address"`
	Status            LimitOrderStatus  `json:"status"`
	FailureReason     string            `json:"failure_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
