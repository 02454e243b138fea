package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SwapStatus mirrors the swap status reported by the provider.
type SwapStatus string

const (
	SwapStatusPending    SwapStatus = "pending"
	SwapStatusProcessing SwapStatus = "processing"
	SwapStatusCompleted  SwapStatus = "completed"
	SwapStatusSettled    SwapStatus = "settled"
	SwapStatusFailed     SwapStatus = "failed"
	SwapStatusCancelled  SwapStatus = "cancelled"
	SwapStatusExpired    SwapStatus = "expired"
)

// swapStatusRank orders statuses so transitions only ever move forward.
// Terminal statuses share the highest rank; moving between them is refused.
var swapStatusRank = map[SwapStatus]int{
	SwapStatusPending:    0,
	SwapStatusProcessing: 1,
	SwapStatusCompleted:  2,
	SwapStatusSettled:    2,
	SwapStatusFailed:     2,
	SwapStatusCancelled:  2,
	SwapStatusExpired:    2,
}

// IsTerminal reports whether the provider can report no further change.
func (s SwapStatus) IsTerminal() bool {
	switch s {
	case SwapStatusCompleted, SwapStatusSettled, SwapStatusFailed, SwapStatusCancelled, SwapStatusExpired:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next respects the
// forward-only rule. A transition to the same status is not a transition.
func (s SwapStatus) CanTransitionTo(next SwapStatus) bool {
	from, ok := swapStatusRank[s]
	if !ok {
		return false
	}
	to, ok := swapStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

type SwapSource string

const (
	SourceManual SwapSource = "manual"
	SourceDCA    SwapSource = "dca"
	SourceLimit  SwapSource = "limit"
	SourceStake  SwapSource = "stake"
)

// SwapHistoryEntry is an append-only record of one attempted execution,
// keyed by the provider-issued order id or a synthesized key when the
// provider has not yet issued one.
type SwapHistoryEntry struct {
	ID              uuid.UUID       `json:"id"`
	Owner           string          `json:"owner"`
	ProviderOrderID string          `json:"provider_order_id"`
	FromAsset       string          `json:"from_asset"`
	FromChain       string          `json:"from_chain"`
	ToAsset         string          `json:"to_asset"`
	ToChain         string          `json:"to_chain"`
	DepositAmount   decimal.Decimal `json:"deposit_amount"`
	SettleAmount    decimal.Decimal `json:"settle_amount"`
	Status          SwapStatus      `json:"status"`
	TxHash          string          `json:"tx_hash,omitempty"`
	Source          SwapSource      `json:"source"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
