// Package payment реализует неизменяемый журнал платежей: списания,
// возвраты и разбор webhook-уведомлений шлюза. Каждая попытка списания
// сначала фиксируется в статусе pending и только потом уходит в шлюз,
// поэтому результат любого обращения к процессору остается наблюдаемым.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/gateway"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/metrics"
	"github.com/magabrotheeeer/membership-billing/internal/models"
	"github.com/magabrotheeeer/membership-billing/internal/services/access"
)

const persistAttempts = 3

// PaymentRepository определяет методы для работы с платежами в хранилище.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, p models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	MarkPaymentCompleted(ctx context.Context, id, txnID string, at time.Time) error
	MarkPaymentFailed(ctx context.Context, id, txnID, reason string) error
	MarkPaymentRefunded(ctx context.Context, id string, amount float64, at time.Time) error
	ResolvePaymentByGatewayTxn(ctx context.Context, txnID, status, failureReason string, at time.Time) error
	ListPaymentsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentWithSubscription, error)
	ListAllPayments(ctx context.Context, limit, offset int) ([]*models.PaymentWithSubscription, error)
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	CancelSubscriptionByGatewayID(ctx context.Context, gatewayID, reason string, at time.Time) error
}

// Publisher публикует события биллинга во внешний брокер.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Service реализует операции над платежами.
type Service struct {
	repo      PaymentRepository
	gateway   gateway.Gateway
	publisher Publisher
	locks     *subscriptionLocks
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo PaymentRepository, gw gateway.Gateway, pub Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		gateway:   gw,
		publisher: pub,
		locks:     newSubscriptionLocks(),
		log:       log,
	}
}

// Charge списывает средства по подписке. Списание разрешено только
// владельцу подписки, подписка должна быть активна. В рамках одной
// подписки списания строго последовательны: параллельная попытка
// получает errs.ErrChargeInFlight, не дойдя до шлюза.
//
// Если шлюз не ответил до истечения дедлайна, платеж остается в pending:
// исход списания неизвестен, и подвешенная запись — наблюдаемая аномалия,
// которую позже закрывает webhook или ручная сверка.
func (s *Service) Charge(ctx context.Context, actor models.Actor, req models.DummyCharge) (*models.Payment, error) {
	const op = "payment.Charge"

	sub, err := s.repo.GetSubscription(ctx, req.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub.UserUID != actor.UID {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrForbidden)
	}
	if sub.Status != models.SubscriptionActive {
		return nil, fmt.Errorf("%s: cannot charge %s subscription: %w", op, sub.Status, errs.ErrInvalidState)
	}
	if req.Amount < 0.01 {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidAmount)
	}

	if !s.locks.TryAcquire(sub.ID) {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrChargeInFlight)
	}
	defer s.locks.Release(sub.ID)

	p := models.Payment{
		ID:             uuid.NewString(),
		UserUID:        actor.UID,
		SubscriptionID: sub.ID,
		Amount:         req.Amount,
		Currency:       sub.Currency,
		Status:         models.PaymentPending,
		PaymentMethod:  req.PaymentMethod,
		Description:    req.Description,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.gateway.Charge(ctx, gateway.ChargeRequest{
		Amount:        req.Amount,
		Currency:      sub.Currency,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		CustomerUID:   actor.UID,
		CustomerEmail: actor.Email,
	})
	if err != nil {
		if errors.Is(err, errs.ErrGatewayUnavailable) {
			s.log.Error("gateway unavailable, payment left pending",
				slog.String("payment_id", p.ID), sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, errs.ErrGatewayUnavailable)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	if result.Success {
		if err := s.persistWithRetry(ctx, func() error {
			return s.repo.MarkPaymentCompleted(ctx, p.ID, result.TransactionID, now)
		}); err != nil {
			// Деньги списаны, но запись осталась в pending. Отдаем ошибку,
			// чтобы расхождение было видно, а не маскируем его успехом.
			s.log.Error("failed to persist completed payment",
				slog.String("payment_id", p.ID), sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.Status = models.PaymentCompleted
		p.GatewayTransactionID = result.TransactionID
		p.ProcessedAt = &now
		metrics.PaymentsTotal.WithLabelValues(models.PaymentCompleted).Inc()
		s.publish(models.EventPaymentSucceeded, p)
		s.log.Info("payment completed",
			slog.String("payment_id", p.ID), slog.String("transaction_id", result.TransactionID))
		return &p, nil
	}

	if err := s.repo.MarkPaymentFailed(ctx, p.ID, result.TransactionID, result.FailureReason); err != nil {
		s.log.Error("failed to persist failed payment",
			slog.String("payment_id", p.ID), sl.Err(err))
	}
	p.Status = models.PaymentFailed
	p.GatewayTransactionID = result.TransactionID
	p.FailureReason = result.FailureReason
	metrics.PaymentsTotal.WithLabelValues(models.PaymentFailed).Inc()
	s.publish(models.EventPaymentFailed, p)
	return &p, fmt.Errorf("%s: %s: %w", op, result.FailureReason, errs.ErrGatewayDeclined)
}

// Refund возвращает средства по завершенному платежу. Доступен владельцу
// платежа и администратору. Нулевая сумма запроса означает полный возврат;
// сумма больше исходной — errs.ErrInvalidAmount.
func (s *Service) Refund(ctx context.Context, actor models.Actor, paymentID string, req models.DummyRefund) (*models.Payment, error) {
	const op = "payment.Refund"

	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := access.Require(actor, p.UserUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.Status != models.PaymentCompleted {
		return nil, fmt.Errorf("%s: cannot refund %s payment: %w", op, p.Status, errs.ErrInvalidState)
	}

	amount := req.Amount
	if amount == 0 {
		amount = p.Amount
	}
	if amount < 0.01 || amount > p.Amount {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidAmount)
	}

	result, err := s.gateway.Refund(ctx, gateway.RefundRequest{
		TransactionID: p.GatewayTransactionID,
		Amount:        amount,
		Reason:        req.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !result.Success {
		return nil, fmt.Errorf("%s: %s: %w", op, result.FailureReason, errs.ErrGatewayDeclined)
	}

	now := time.Now().UTC()
	if err := s.persistWithRetry(ctx, func() error {
		return s.repo.MarkPaymentRefunded(ctx, p.ID, amount, now)
	}); err != nil {
		s.log.Error("failed to persist refunded payment",
			slog.String("payment_id", p.ID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.Status = models.PaymentRefunded
	p.RefundAmount = amount
	p.RefundedAt = &now
	metrics.PaymentsTotal.WithLabelValues(models.PaymentRefunded).Inc()

	s.log.Info("payment refunded",
		slog.String("payment_id", p.ID), slog.Float64("amount", amount))
	return p, nil
}

// List возвращает платежи вместе с подписками: администратору — все,
// пользователю — только собственные.
func (s *Service) List(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.PaymentWithSubscription, error) {
	if actor.IsAdmin() {
		return s.repo.ListAllPayments(ctx, limit, offset)
	}
	return s.repo.ListPaymentsByUser(ctx, actor.UID, limit, offset)
}

// Get возвращает платеж после проверки доступа.
func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.Payment, error) {
	const op = "payment.Get"

	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := access.Require(actor, p.UserUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// persistWithRetry повторяет запись исхода платежа несколько раз:
// потеря уже свершившегося результата шлюза хуже лишнего запроса к базе.
func (s *Service) persistWithRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < persistAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, errs.ErrInvalidState) || ctx.Err() != nil {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
	return err
}

// publish отправляет событие в брокер best-effort: бизнес-исход платежа
// уже зафиксирован, неудача публикации только логируется.
func (s *Service) publish(routingKey string, p models.Payment) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, p); err != nil {
		s.log.Warn("failed to publish billing event",
			slog.String("routing_key", routingKey), sl.Err(err))
	}
}
