package gateway

import (
	"context"
	"time"
)

// timeoutGateway ограничивает каждую сетевую операцию шлюза собственным
// дедлайном. Зависший процессор превращается в errs.ErrGatewayUnavailable
// у вызывающего, а не в бесконечное ожидание HTTP-запроса.
type timeoutGateway struct {
	next    Gateway
	timeout time.Duration
}

// WithTimeout оборачивает шлюз так, что каждая операция выполняется
// не дольше timeout. Неположительный timeout возвращает шлюз без обертки.
func WithTimeout(next Gateway, timeout time.Duration) Gateway {
	if timeout <= 0 {
		return next
	}
	return &timeoutGateway{next: next, timeout: timeout}
}

func (g *timeoutGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.next.Charge(ctx, req)
}

func (g *timeoutGateway) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.next.Refund(ctx, req)
}

func (g *timeoutGateway) CreateRemoteSubscription(ctx context.Context, req RemoteSubscriptionRequest) (*RemoteSubscriptionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.next.CreateRemoteSubscription(ctx, req)
}

func (g *timeoutGateway) CancelRemoteSubscription(ctx context.Context, subscriptionID string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.next.CancelRemoteSubscription(ctx, subscriptionID)
}

// VerifyWebhookSignature не обращается к сети, дедлайн не требуется.
func (g *timeoutGateway) VerifyWebhookSignature(payload []byte, signature string) bool {
	return g.next.VerifyWebhookSignature(payload, signature)
}
