package models

import "time"

// Статусы подписки. Допустимые переходы:
// active -> cancelled, active -> expired, active <-> suspended,
// cancelled -> active (реактивация). Подписки никогда не удаляются.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
	SubscriptionSuspended = "suspended"
)

// Subscription связывает пользователя с планом на один биллинговый период.
// Amount, Currency и PaymentMethod снапшотятся из плана при создании,
// поэтому последующие правки плана не меняют действующие подписки.
type Subscription struct {
	ID                 string     `json:"id"`
	UserUID            string     `json:"user_uid"`
	PlanID             string     `json:"plan_id"`
	Status             string     `json:"status"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            time.Time  `json:"end_date"`
	NextBillingDate    time.Time  `json:"next_billing_date"`
	Amount             float64    `json:"amount"`
	Currency           string     `json:"currency"`
	PaymentMethod      string     `json:"payment_method"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	TrialEnd           *time.Time `json:"trial_end,omitempty"`
	GatewayID          string     `json:"gateway_id,omitempty"` // Идентификатор подписки на стороне шлюза
	CreatedAt          time.Time  `json:"created_at"`
}

// SubscriptionWithPlan — подписка вместе со снапшотом плана для выдачи на чтение.
type SubscriptionWithPlan struct {
	Subscription
	Plan *Plan `json:"plan,omitempty"`
}

// DummySubscriptionCreate используется для приёма запроса на оформление подписки.
type DummySubscriptionCreate struct {
	PlanID        string `json:"plan_id" validate:"required,uuid"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card paypal bank_transfer"`
}

// DummyCancel используется для приёма запроса на отмену подписки.
type DummyCancel struct {
	Reason string `json:"reason" validate:"omitempty"`
}
