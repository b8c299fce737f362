package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

const paymentColumns = `id, user_uid, subscription_id, amount, currency, status,
			      payment_method, description, gateway_transaction_id,
			      processed_at, refunded_at, refund_amount, failure_reason, created_at`

// CreatePayment сохраняет новую запись платежа. Платеж создается в статусе
// pending до обращения к шлюзу, поэтому незавершенные списания видны в журнале.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) error {
	const op = "storage.CreatePayment"

	query := `INSERT INTO payments (id, user_uid, subscription_id, amount, currency,
			      status, payment_method, description)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	if _, err := s.DB.ExecContext(ctx, query,
		p.ID, p.UserUID, p.SubscriptionID, p.Amount, p.Currency,
		p.Status, p.PaymentMethod, nullableString(p.Description)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanPayment(scan func(dest ...any) error) (*models.Payment, error) {
	p := &models.Payment{}
	var processedAt, refundedAt sql.NullTime
	var description, txnID, failureReason sql.NullString
	var refundAmount sql.NullFloat64
	if err := scan(&p.ID, &p.UserUID, &p.SubscriptionID, &p.Amount, &p.Currency,
		&p.Status, &p.PaymentMethod, &description, &txnID,
		&processedAt, &refundedAt, &refundAmount, &failureReason, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if processedAt.Valid {
		p.ProcessedAt = &processedAt.Time
	}
	if refundedAt.Valid {
		p.RefundedAt = &refundedAt.Time
	}
	p.Description = description.String
	p.GatewayTransactionID = txnID.String
	p.RefundAmount = refundAmount.Float64
	p.FailureReason = failureReason.String
	return p, nil
}

// GetPayment возвращает платеж по ID или errs.ErrNotFound.
func (s *Storage) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	const op = "storage.GetPayment"

	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE id = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// MarkPaymentCompleted переводит платеж из pending в completed.
// Условный UPDATE не дает завершить платеж из любого другого статуса.
func (s *Storage) MarkPaymentCompleted(ctx context.Context, id, txnID string, at time.Time) error {
	const op = "storage.MarkPaymentCompleted"

	query := `UPDATE payments
			  SET status = $1, gateway_transaction_id = $2, processed_at = $3
			  WHERE id = $4 AND status = $5`
	res, err := s.DB.ExecContext(ctx, query,
		models.PaymentCompleted, txnID, at, id, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrInvalidState)
	}
	return nil
}

// MarkPaymentFailed переводит платеж из pending в failed с причиной отказа.
func (s *Storage) MarkPaymentFailed(ctx context.Context, id, txnID, reason string) error {
	const op = "storage.MarkPaymentFailed"

	query := `UPDATE payments
			  SET status = $1, gateway_transaction_id = $2, failure_reason = $3
			  WHERE id = $4 AND status = $5`
	res, err := s.DB.ExecContext(ctx, query,
		models.PaymentFailed, nullableString(txnID), reason, id, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrInvalidState)
	}
	return nil
}

// MarkPaymentRefunded переводит платеж из completed в refunded.
// Повторный возврат невозможен: условие по статусу не совпадет.
func (s *Storage) MarkPaymentRefunded(ctx context.Context, id string, amount float64, at time.Time) error {
	const op = "storage.MarkPaymentRefunded"

	query := `UPDATE payments
			  SET status = $1, refund_amount = $2, refunded_at = $3
			  WHERE id = $4 AND status = $5`
	res, err := s.DB.ExecContext(ctx, query,
		models.PaymentRefunded, amount, at, id, models.PaymentCompleted)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrInvalidState)
	}
	return nil
}

// ResolvePaymentByGatewayTxn завершает pending-платеж по идентификатору
// транзакции шлюза. Используется обработчиком webhook-событий.
func (s *Storage) ResolvePaymentByGatewayTxn(ctx context.Context, txnID, status, failureReason string, at time.Time) error {
	const op = "storage.ResolvePaymentByGatewayTxn"

	query := `UPDATE payments
			  SET status = $1, failure_reason = $2, processed_at = $3
			  WHERE gateway_transaction_id = $4 AND status = $5`
	res, err := s.DB.ExecContext(ctx, query,
		status, nullableString(failureReason), at, txnID, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	return nil
}

func (s *Storage) listPayments(ctx context.Context, op, query string, args ...any) ([]*models.PaymentWithSubscription, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PaymentWithSubscription
	for rows.Next() {
		item := &models.PaymentWithSubscription{}
		var processedAt, refundedAt sql.NullTime
		var description, txnID, failureReason sql.NullString
		var refundAmount sql.NullFloat64
		sub := &models.Subscription{}
		var cancelledAt, trialEnd sql.NullTime
		var cancelReason, gatewayID sql.NullString
		if err = rows.Scan(&item.ID, &item.UserUID, &item.SubscriptionID, &item.Amount,
			&item.Currency, &item.Status, &item.PaymentMethod, &description, &txnID,
			&processedAt, &refundedAt, &refundAmount, &failureReason, &item.CreatedAt,
			&sub.ID, &sub.UserUID, &sub.PlanID, &sub.Status, &sub.StartDate, &sub.EndDate,
			&sub.NextBillingDate, &sub.Amount, &sub.Currency, &sub.PaymentMethod,
			&cancelledAt, &cancelReason, &trialEnd, &gatewayID, &sub.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if processedAt.Valid {
			item.ProcessedAt = &processedAt.Time
		}
		if refundedAt.Valid {
			item.RefundedAt = &refundedAt.Time
		}
		item.Description = description.String
		item.GatewayTransactionID = txnID.String
		item.RefundAmount = refundAmount.Float64
		item.FailureReason = failureReason.String
		if cancelledAt.Valid {
			sub.CancelledAt = &cancelledAt.Time
		}
		if trialEnd.Valid {
			sub.TrialEnd = &trialEnd.Time
		}
		sub.CancellationReason = cancelReason.String
		sub.GatewayID = gatewayID.String
		item.Subscription = sub
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

const paymentWithSubscriptionQuery = `SELECT p.id, p.user_uid, p.subscription_id, p.amount, p.currency, p.status,
			      p.payment_method, p.description, p.gateway_transaction_id,
			      p.processed_at, p.refunded_at, p.refund_amount, p.failure_reason, p.created_at,
			      s.id, s.user_uid, s.plan_id, s.status, s.start_date, s.end_date,
			      s.next_billing_date, s.amount, s.currency, s.payment_method,
			      s.cancelled_at, s.cancellation_reason, s.trial_end, s.gateway_id, s.created_at
			  FROM payments p
			  JOIN subscriptions s ON s.id = p.subscription_id`

// ListPaymentsByUser возвращает платежи пользователя вместе с подписками.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentWithSubscription, error) {
	const op = "storage.ListPaymentsByUser"

	query := paymentWithSubscriptionQuery + `
			  WHERE p.user_uid = $1
			  ORDER BY p.created_at DESC
			  LIMIT $2 OFFSET $3`
	return s.listPayments(ctx, op, query, userUID, limit, offset)
}

// ListAllPayments возвращает все платежи вместе с подписками.
func (s *Storage) ListAllPayments(ctx context.Context, limit, offset int) ([]*models.PaymentWithSubscription, error) {
	const op = "storage.ListAllPayments"

	query := paymentWithSubscriptionQuery + `
			  ORDER BY p.created_at DESC
			  LIMIT $1 OFFSET $2`
	return s.listPayments(ctx, op, query, limit, offset)
}
