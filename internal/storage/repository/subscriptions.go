package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

const subscriptionColumns = `id, user_uid, plan_id, status, start_date, end_date,
			      next_billing_date, amount, currency, payment_method,
			      cancelled_at, cancellation_reason, trial_end, gateway_id, created_at`

// CreateSubscription сохраняет новую подписку.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.CreateSubscription"

	query := `INSERT INTO subscriptions (id, user_uid, plan_id, status, start_date, end_date,
			      next_billing_date, amount, currency, payment_method, trial_end, gateway_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`
	if _, err := s.DB.ExecContext(ctx, query,
		sub.ID, sub.UserUID, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate,
		sub.NextBillingDate, sub.Amount, sub.Currency, sub.PaymentMethod,
		sub.TrialEnd, nullableString(sub.GatewayID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanSubscription(scan func(dest ...any) error) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var cancelledAt, trialEnd sql.NullTime
	var reason, gatewayID sql.NullString
	if err := scan(&sub.ID, &sub.UserUID, &sub.PlanID, &sub.Status, &sub.StartDate,
		&sub.EndDate, &sub.NextBillingDate, &sub.Amount, &sub.Currency, &sub.PaymentMethod,
		&cancelledAt, &reason, &trialEnd, &gatewayID, &sub.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if cancelledAt.Valid {
		sub.CancelledAt = &cancelledAt.Time
	}
	if trialEnd.Valid {
		sub.TrialEnd = &trialEnd.Time
	}
	sub.CancellationReason = reason.String
	sub.GatewayID = gatewayID.String
	return sub, nil
}

// GetSubscription возвращает подписку по ID или errs.ErrNotFound.
func (s *Storage) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE id = $1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// FindActiveSubscriptionByUser возвращает активную подписку пользователя
// или errs.ErrNotFound, если её нет. Частичный уникальный индекс
// гарантирует не более одной такой записи.
func (s *Storage) FindActiveSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.FindActiveSubscriptionByUser"

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1 AND status = $2`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userUID, models.SubscriptionActive).Scan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// UpdateSubscription перезаписывает изменяемые поля подписки:
// статус, метки отмены, дату следующего списания и идентификатор шлюза.
func (s *Storage) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpdateSubscription"

	query := `UPDATE subscriptions
			  SET status = $1, cancelled_at = $2, cancellation_reason = $3,
			      next_billing_date = $4, gateway_id = $5
			  WHERE id = $6`
	res, err := s.DB.ExecContext(ctx, query,
		sub.Status, sub.CancelledAt, nullableString(sub.CancellationReason),
		sub.NextBillingDate, nullableString(sub.GatewayID), sub.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	return nil
}

// CancelSubscriptionByGatewayID отменяет активную подписку по идентификатору
// на стороне шлюза. Используется обработчиком webhook-событий.
func (s *Storage) CancelSubscriptionByGatewayID(ctx context.Context, gatewayID, reason string, at time.Time) error {
	const op = "storage.CancelSubscriptionByGatewayID"

	query := `UPDATE subscriptions
			  SET status = $1, cancelled_at = $2, cancellation_reason = $3
			  WHERE gateway_id = $4 AND status = $5`
	res, err := s.DB.ExecContext(ctx, query,
		models.SubscriptionCancelled, at, reason, gatewayID, models.SubscriptionActive)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	return nil
}

// MarkSubscriptionsExpired переводит в expired все активные подписки,
// чей срок действия прошел и не был продлен. Возвращает число записей.
func (s *Storage) MarkSubscriptionsExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.MarkSubscriptionsExpired"

	query := `UPDATE subscriptions
			  SET status = $1
			  WHERE status = $2 AND end_date < $3`
	res, err := s.DB.ExecContext(ctx, query,
		models.SubscriptionExpired, models.SubscriptionActive, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Storage) listSubscriptions(ctx context.Context, op, query string, args ...any) ([]*models.SubscriptionWithPlan, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionWithPlan
	for rows.Next() {
		item := &models.SubscriptionWithPlan{}
		var cancelledAt, trialEnd sql.NullTime
		var reason, gatewayID sql.NullString
		p := &models.Plan{}
		var features []byte
		if err = rows.Scan(&item.ID, &item.UserUID, &item.PlanID, &item.Status,
			&item.StartDate, &item.EndDate, &item.NextBillingDate, &item.Amount,
			&item.Currency, &item.PaymentMethod, &cancelledAt, &reason, &trialEnd,
			&gatewayID, &item.CreatedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency, &p.BillingCycle,
			&p.MaxSeats, &features, &p.TrialDays, &p.IsActive, &p.SortOrder, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if cancelledAt.Valid {
			item.CancelledAt = &cancelledAt.Time
		}
		if trialEnd.Valid {
			item.TrialEnd = &trialEnd.Time
		}
		item.CancellationReason = reason.String
		item.GatewayID = gatewayID.String
		if len(features) > 0 {
			if err = json.Unmarshal(features, &p.Features); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		item.Plan = p
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

const subscriptionWithPlanQuery = `SELECT s.id, s.user_uid, s.plan_id, s.status, s.start_date, s.end_date,
			      s.next_billing_date, s.amount, s.currency, s.payment_method,
			      s.cancelled_at, s.cancellation_reason, s.trial_end, s.gateway_id, s.created_at,
			      p.id, p.name, p.description, p.price, p.currency, p.billing_cycle,
			      p.max_seats, p.features, p.trial_days, p.is_active, p.sort_order, p.created_at
			  FROM subscriptions s
			  JOIN plans p ON p.id = s.plan_id`

// ListSubscriptionsByUser возвращает подписки пользователя вместе с планами.
func (s *Storage) ListSubscriptionsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.SubscriptionWithPlan, error) {
	const op = "storage.ListSubscriptionsByUser"

	query := subscriptionWithPlanQuery + `
			  WHERE s.user_uid = $1
			  ORDER BY s.created_at DESC
			  LIMIT $2 OFFSET $3`
	return s.listSubscriptions(ctx, op, query, userUID, limit, offset)
}

// ListAllSubscriptions возвращает все подписки вместе с планами.
func (s *Storage) ListAllSubscriptions(ctx context.Context, limit, offset int) ([]*models.SubscriptionWithPlan, error) {
	const op = "storage.ListAllSubscriptions"

	query := subscriptionWithPlanQuery + `
			  ORDER BY s.created_at DESC
			  LIMIT $1 OFFSET $2`
	return s.listSubscriptions(ctx, op, query, limit, offset)
}
