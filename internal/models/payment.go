package models

import "time"

// Статусы платежа. Допустимые переходы строго монотонны:
// pending -> completed, pending -> failed, completed -> refunded.
// Из failed и refunded переходов нет, история платежей неизменяема.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Payment — запись в журнале об одной попытке списания или возврате.
type Payment struct {
	ID                   string     `json:"id"`
	UserUID              string     `json:"user_uid"`
	SubscriptionID       string     `json:"subscription_id"`
	Amount               float64    `json:"amount"` // Не менее 0.01
	Currency             string     `json:"currency"`
	Status               string     `json:"status"`
	PaymentMethod        string     `json:"payment_method"`
	Description          string     `json:"description,omitempty"`
	GatewayTransactionID string     `json:"gateway_transaction_id,omitempty"`
	ProcessedAt          *time.Time `json:"processed_at,omitempty"`
	RefundedAt           *time.Time `json:"refunded_at,omitempty"`
	RefundAmount         float64    `json:"refund_amount,omitempty"` // Не больше исходной суммы
	FailureReason        string     `json:"failure_reason,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// PaymentWithSubscription — платёж вместе с подпиской для выдачи на чтение.
type PaymentWithSubscription struct {
	Payment
	Subscription *Subscription `json:"subscription,omitempty"`
}

// DummyCharge используется для приёма запроса на списание средств.
type DummyCharge struct {
	SubscriptionID string  `json:"subscription_id" validate:"required,uuid"`
	Amount         float64 `json:"amount" validate:"required,gte=0.01"`
	PaymentMethod  string  `json:"payment_method" validate:"required,oneof=card paypal bank_transfer"`
	Description    string  `json:"description" validate:"omitempty"`
}

// DummyRefund используется для приёма запроса на возврат средств.
// Нулевая сумма означает полный возврат исходного платежа.
type DummyRefund struct {
	Amount float64 `json:"amount" validate:"omitempty,gte=0.01"`
	Reason string  `json:"reason" validate:"omitempty"`
}
