package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/membership-billing/internal/metrics"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// ProcessWebhookEvent применяет подтвержденное уведомление шлюза к журналу
// платежей. Подпись и окно воспроизведения проверяются HTTP-обработчиком
// до вызова; здесь событие считается подлинным.
func (s *Service) ProcessWebhookEvent(ctx context.Context, event models.WebhookEvent) error {
	const op = "payment.ProcessWebhookEvent"

	now := time.Now().UTC()
	switch event.EventType {
	case models.EventPaymentSucceeded:
		if err := s.repo.ResolvePaymentByGatewayTxn(ctx,
			event.TransactionID, models.PaymentCompleted, "", now); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		metrics.PaymentsTotal.WithLabelValues(models.PaymentCompleted).Inc()
		s.log.Info("webhook resolved payment as completed",
			slog.String("transaction_id", event.TransactionID))

	case models.EventPaymentFailed:
		if err := s.repo.ResolvePaymentByGatewayTxn(ctx,
			event.TransactionID, models.PaymentFailed, event.FailureReason, now); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		metrics.PaymentsTotal.WithLabelValues(models.PaymentFailed).Inc()
		s.log.Info("webhook resolved payment as failed",
			slog.String("transaction_id", event.TransactionID))

	case models.EventSubscriptionCancel:
		if err := s.repo.CancelSubscriptionByGatewayID(ctx,
			event.GatewaySubID, "cancelled by gateway", now); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.log.Info("webhook cancelled subscription",
			slog.String("gateway_subscription_id", event.GatewaySubID))

	case models.EventSubscriptionCreated, models.EventSubscriptionUpdated:
		// Информационные события: локальное состояние — источник истины.
		s.log.Info("webhook event acknowledged", slog.String("event_type", event.EventType))

	default:
		return fmt.Errorf("%s: unsupported event type %q", op, event.EventType)
	}
	return nil
}
