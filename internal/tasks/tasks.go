package tasks

const (
	QUEUE_NAME = "swapd_queue"

	TypeNotification  = "notification:send"
	TypeReconcileSwap = "swap:reconcile"
)

// NotificationPayload is the queued message body for a user notification.
type NotificationPayload struct {
	UserID  string            `json:"user_id"`
	Kind    string            `json:"kind"`
	Subject string            `json:"subject"`
	Body    string            `json:"body"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ReconcilePayload asks the worker to reconcile one provider order.
type ReconcilePayload struct {
	ProviderOrderID string `json:"provider_order_id"`
}

// Notification kinds surfaced to users.
const (
	KindLimitExecuted  = "limit_executed"
	KindLimitFailed    = "limit_failed"
	KindDCAExecuted    = "dca_executed"
	KindDCADeactivated = "dca_deactivated"
	KindSwapSettled    = "swap_settled"
	KindSwapFailed     = "swap_failed"
)
