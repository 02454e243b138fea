package sideshift

import (
	"github.com/shopspring/decimal"

	"github.com/webpiratt/swapd/internal/types"
)

// Pair describes the provider's limits and rate for one asset pair.
type Pair struct {
	Min  decimal.Decimal `json:"min"`
	Max  decimal.Decimal `json:"max"`
	Rate decimal.Decimal `json:"rate"`
}

// Quote is a provider-issued exchange-rate commitment for a specific
// pair/amount, valid for a short window.
type Quote struct {
	ID            string          `json:"id"`
	DepositCoin   string          `json:"depositCoin"`
	DepositChain  string          `json:"depositNetwork"`
	SettleCoin    string          `json:"settleCoin"`
	SettleChain   string          `json:"settleNetwork"`
	DepositAmount decimal.Decimal `json:"depositAmount"`
	SettleAmount  decimal.Decimal `json:"settleAmount"`
	Rate          decimal.Decimal `json:"rate"`
	ExpiresAt     string          `json:"expiresAt"`
}

// Order is a created shift awaiting a deposit.
type Order struct {
	ID             string `json:"id"`
	DepositAddress string `json:"depositAddress"`
	DepositMemo    string `json:"depositMemo,omitempty"`
	SettleAddress  string `json:"settleAddress"`
}

// OrderStatus is the provider-reported state of a shift.
type OrderStatus struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	TxHash       string          `json:"settleHash,omitempty"`
	SettleAmount decimal.Decimal `json:"settleAmount"`
}

// statusMap folds provider status strings onto the stored enum.
var statusMap = map[string]types.SwapStatus{
	"waiting":    types.SwapStatusPending,
	"pending":    types.SwapStatusPending,
	"detected":   types.SwapStatusProcessing,
	"processing": types.SwapStatusProcessing,
	"settling":   types.SwapStatusProcessing,
	"settled":    types.SwapStatusSettled,
	"complete":   types.SwapStatusCompleted,
	"completed":  types.SwapStatusCompleted,
	"failed":     types.SwapStatusFailed,
	"cancelled":  types.SwapStatusCancelled,
	"refunded":   types.SwapStatusCancelled,
	"expired":    types.SwapStatusExpired,
}

// MapStatus translates a provider status string; unknown strings are
// treated as still processing rather than invented terminal states.
func MapStatus(s string) types.SwapStatus {
	if mapped, ok := statusMap[s]; ok {
		return mapped
	}
	return types.SwapStatusProcessing
}
