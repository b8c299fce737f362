package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// ReplayWindow — максимально допустимый возраст webhook-уведомления.
// Более старые уведомления отклоняются как возможный повтор.
const ReplayWindow = 5 * time.Minute

// ErrStaleTimestamp возвращается для уведомления за пределами окна
// воспроизведения. Ошибка отличима от невалидной подписи.
var ErrStaleTimestamp = errors.New("webhook timestamp is too old")

var validEventTypes = map[string]struct{}{
	models.EventPaymentSucceeded:    {},
	models.EventPaymentFailed:       {},
	models.EventSubscriptionCreated: {},
	models.EventSubscriptionCancel:  {},
	models.EventSubscriptionUpdated: {},
}

// ValidateWebhookEvent проверяет обязательные поля уведомления, допустимость
// типа события и окно воспроизведения относительно now.
func ValidateWebhookEvent(event models.WebhookEvent, now time.Time) error {
	const op = "gateway.ValidateWebhookEvent"

	if event.EventType == "" || event.TransactionID == "" || event.Timestamp == "" {
		return fmt.Errorf("%s: missing required field", op)
	}
	if _, ok := validEventTypes[event.EventType]; !ok {
		return fmt.Errorf("%s: invalid event type: %s", op, event.EventType)
	}
	ts, err := time.Parse(time.RFC3339, event.Timestamp)
	if err != nil {
		return fmt.Errorf("%s: invalid timestamp: %w", op, err)
	}
	age := now.Sub(ts)
	if age < 0 {
		age = -age
	}
	if age > ReplayWindow {
		return fmt.Errorf("%s: %w", op, ErrStaleTimestamp)
	}
	return nil
}
