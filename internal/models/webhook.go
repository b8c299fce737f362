package models

// Типы событий, которые принимает webhook-эндпоинт от платежного шлюза.
const (
	EventPaymentSucceeded    = "payment.succeeded"
	EventPaymentFailed       = "payment.failed"
	EventSubscriptionCreated = "subscription.created"
	EventSubscriptionCancel  = "subscription.cancelled"
	EventSubscriptionUpdated = "subscription.updated"
)

// WebhookEvent — полезная нагрузка уведомления от платежного шлюза.
// Timestamp приходит строкой RFC3339 и проверяется на окно воспроизведения
// до передачи события в бизнес-логику.
type WebhookEvent struct {
	EventType     string `json:"event_type"`
	TransactionID string `json:"transaction_id"`
	Timestamp     string `json:"timestamp"`
	FailureReason string `json:"failure_reason,omitempty"`
	GatewaySubID  string `json:"subscription_id,omitempty"`
}
