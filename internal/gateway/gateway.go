// Package gateway изолирует недетерминированное взаимодействие с внешним
// платежным процессором за стабильным интерфейсом. Менеджеры жизненного
// цикла зависят только от интерфейса Gateway, поэтому симулятор можно
// заменить реальным клиентом без их изменения.
package gateway

import "context"

// ChargeRequest — параметры списания средств.
type ChargeRequest struct {
	Amount        float64
	Currency      string
	PaymentMethod string
	Description   string
	CustomerUID   string
	CustomerEmail string
}

// ChargeResult — результат списания. При Success=false причина отказа
// находится в FailureReason; TransactionID присваивается в обоих случаях.
type ChargeResult struct {
	Success       bool
	TransactionID string
	FailureReason string
}

// RefundRequest — параметры возврата средств по ранее проведенной транзакции.
type RefundRequest struct {
	TransactionID string
	Amount        float64
	Reason        string
}

// RefundResult — результат возврата.
type RefundResult struct {
	Success       bool
	RefundID      string
	FailureReason string
}

// RemoteSubscriptionRequest — параметры регистрации подписки на стороне шлюза.
type RemoteSubscriptionRequest struct {
	PlanID        string
	CustomerUID   string
	PaymentMethod string
	Amount        float64
	Currency      string
	BillingCycle  string
}

// RemoteSubscriptionResult — результат регистрации подписки.
type RemoteSubscriptionResult struct {
	Success        bool
	SubscriptionID string
	FailureReason  string
}

// Gateway описывает контракт платежного шлюза. Все операции ограничены
// контекстом: истечение дедлайна транслируется в errs.ErrGatewayUnavailable,
// что отличимо от отказа самого процессора.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	CreateRemoteSubscription(ctx context.Context, req RemoteSubscriptionRequest) (*RemoteSubscriptionResult, error)
	CancelRemoteSubscription(ctx context.Context, subscriptionID string) error
	// VerifyWebhookSignature проверяет HMAC-подпись webhook-уведомления
	// сравнением, устойчивым к атакам по времени.
	VerifyWebhookSignature(payload []byte, signature string) bool
}
