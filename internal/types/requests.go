package types

import "github.com/shopspring/decimal"

type CreateSwapRequest struct {
	Owner         string          `json:"owner" validate:"required"`
	FromAsset     string          `json:"from_asset" validate:"required"`
	FromChain     string          `json:"from_chain" validate:"required"`
	ToAsset       string          `json:"to_asset" validate:"required"`
	ToChain       string          `json:"to_chain" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	SettleAddress string          `json:"settle_address" validate:"required"`
}

type CreateLimitOrderRequest struct {
	Owner             string          `json:"owner" validate:"required"`
	FromAsset         string          `json:"from_asset" validate:"required"`
	FromChain         string          `json:"from_chain" validate:"required"`
	ToAsset           string          `json:"to_asset" validate:"required"`
	ToChain           string          `json:"to_chain" validate:"required"`
	Amount            decimal.Decimal `json:"amount" validate:"required"`
	ConditionAsset    string          `json:"condition_asset" validate:"required"`
	ConditionOperator string          `json:"condition_operator" validate:"required,oneof=gt lt"`
	ConditionValue    decimal.Decimal `json:"condition_value" validate:"required"`
	SettleAddress     string          `json:"settle_address" validate:"required"`
}

type CreateDCARequest struct {
	Owner         string          `json:"owner" validate:"required"`
	FromAsset     string          `json:"from_asset" validate:"required"`
	FromChain     string          `json:"from_chain" validate:"required"`
	ToAsset       string          `json:"to_asset" validate:"required"`
	ToChain       string          `json:"to_chain" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Frequency     string          `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	DayOfWeek     *int            `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	DayOfMonth    *int            `json:"day_of_month,omitempty" validate:"omitempty,min=1,max=31"`
	SettleAddress string          `json:"settle_address" validate:"required"`
}

type SwapStatusRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}
