// Package subscription реализует машину состояний подписки.
// Инвариант — не более одной активной подписки на пользователя —
// проверяется и при создании, и при реактивации, а также страхуется
// частичным уникальным индексом в базе.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/gateway"
	"github.com/magabrotheeeer/membership-billing/internal/lib/billing"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/metrics"
	"github.com/magabrotheeeer/membership-billing/internal/models"
	"github.com/magabrotheeeer/membership-billing/internal/services/access"
)

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub models.Subscription) error
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	// FindActiveSubscriptionByUser возвращает errs.ErrNotFound, если активной подписки нет.
	FindActiveSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub models.Subscription) error
	MarkSubscriptionsExpired(ctx context.Context, now time.Time) (int64, error)
	ListSubscriptionsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.SubscriptionWithPlan, error)
	ListAllSubscriptions(ctx context.Context, limit, offset int) ([]*models.SubscriptionWithPlan, error)
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
}

// Service реализует операции жизненного цикла подписки.
type Service struct {
	repo    SubscriptionRepository
	gateway gateway.Gateway
	log     *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo SubscriptionRepository, gw gateway.Gateway, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		gateway: gw,
		log:     log,
	}
}

// Create оформляет подписку пользователя на план: снапшотит цену и валюту,
// вычисляет границы периода по циклу плана и регистрирует подписку на
// стороне шлюза. Несуществующий или неактивный план — errs.ErrPlanNotFound,
// уже имеющаяся активная подписка — errs.ErrConflict.
func (s *Service) Create(ctx context.Context, actor models.Actor, req models.DummySubscriptionCreate) (*models.SubscriptionWithPlan, error) {
	const op = "subscription.Create"

	plan, err := s.repo.GetPlan(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrPlanNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrPlanNotFound)
	}

	if _, err := s.repo.FindActiveSubscriptionByUser(ctx, actor.UID); err == nil {
		return nil, fmt.Errorf("%s: user already has an active subscription: %w", op, errs.ErrConflict)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	startDate := time.Now().UTC()
	endDate, err := billing.PeriodEnd(startDate, plan.BillingCycle)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	remote, err := s.gateway.CreateRemoteSubscription(ctx, gateway.RemoteSubscriptionRequest{
		PlanID:        plan.ID,
		CustomerUID:   actor.UID,
		PaymentMethod: req.PaymentMethod,
		Amount:        plan.Price,
		Currency:      plan.Currency,
		BillingCycle:  plan.BillingCycle,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !remote.Success {
		return nil, fmt.Errorf("%s: %s: %w", op, remote.FailureReason, errs.ErrGatewayDeclined)
	}

	sub := models.Subscription{
		ID:              uuid.NewString(),
		UserUID:         actor.UID,
		PlanID:          plan.ID,
		Status:          models.SubscriptionActive,
		StartDate:       startDate,
		EndDate:         endDate,
		NextBillingDate: endDate,
		Amount:          plan.Price,
		Currency:        plan.Currency,
		PaymentMethod:   req.PaymentMethod,
		TrialEnd:        billing.TrialEnd(startDate, plan.TrialDays),
		GatewayID:       remote.SubscriptionID,
		CreatedAt:       startDate,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("created new subscription",
		slog.String("id", sub.ID), slog.String("user_uid", actor.UID), slog.String("plan_id", plan.ID))
	return &models.SubscriptionWithPlan{Subscription: sub, Plan: plan}, nil
}

// Cancel отменяет активную или приостановленную подписку. Отмена уже
// отмененной подписки — errs.ErrInvalidState, а не молчаливый повтор.
func (s *Service) Cancel(ctx context.Context, actor models.Actor, id, reason string) (*models.Subscription, error) {
	const op = "subscription.Cancel"

	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := access.Require(actor, sub.UserUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub.Status != models.SubscriptionActive && sub.Status != models.SubscriptionSuspended {
		return nil, fmt.Errorf("%s: cannot cancel %s subscription: %w", op, sub.Status, errs.ErrInvalidState)
	}

	now := time.Now().UTC()
	sub.Status = models.SubscriptionCancelled
	sub.CancelledAt = &now
	if reason == "" {
		reason = "user requested cancellation"
	}
	sub.CancellationReason = reason
	if err := s.repo.UpdateSubscription(ctx, *sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Отмена на стороне шлюза best-effort: локальная отмена уже состоялась.
	if sub.GatewayID != "" {
		if err := s.gateway.CancelRemoteSubscription(ctx, sub.GatewayID); err != nil {
			s.log.Warn("failed to cancel remote subscription",
				slog.String("gateway_id", sub.GatewayID), sl.Err(err))
		}
	}

	s.log.Info("cancelled subscription", slog.String("id", sub.ID))
	return sub, nil
}

// Reactivate возвращает отмененную подписку в активный статус.
// Инвариант единственной активной подписки проверяется повторно:
// реактивация — охраняемый переход, а не присваивание поля.
func (s *Service) Reactivate(ctx context.Context, actor models.Actor, id string) (*models.Subscription, error) {
	const op = "subscription.Reactivate"

	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := access.Require(actor, sub.UserUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub.Status != models.SubscriptionCancelled {
		return nil, fmt.Errorf("%s: cannot reactivate %s subscription: %w", op, sub.Status, errs.ErrInvalidState)
	}

	if other, err := s.repo.FindActiveSubscriptionByUser(ctx, sub.UserUID); err == nil && other.ID != sub.ID {
		return nil, fmt.Errorf("%s: user already has an active subscription: %w", op, errs.ErrConflict)
	} else if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub.Status = models.SubscriptionActive
	sub.CancelledAt = nil
	sub.CancellationReason = ""
	if err := s.repo.UpdateSubscription(ctx, *sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("reactivated subscription", slog.String("id", sub.ID))
	return sub, nil
}

// Suspend переводит активную подписку в административную приостановку.
// Только для администраторов.
func (s *Service) Suspend(ctx context.Context, actor models.Actor, id string) (*models.Subscription, error) {
	const op = "subscription.Suspend"
	return s.switchStatus(ctx, op, actor, id, models.SubscriptionActive, models.SubscriptionSuspended)
}

// Resume снимает административную приостановку. Только для администраторов.
func (s *Service) Resume(ctx context.Context, actor models.Actor, id string) (*models.Subscription, error) {
	const op = "subscription.Resume"
	return s.switchStatus(ctx, op, actor, id, models.SubscriptionSuspended, models.SubscriptionActive)
}

func (s *Service) switchStatus(ctx context.Context, op string, actor models.Actor, id, from, to string) (*models.Subscription, error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub.Status != from {
		return nil, fmt.Errorf("%s: cannot move %s subscription to %s: %w", op, sub.Status, to, errs.ErrInvalidState)
	}
	sub.Status = to
	if err := s.repo.UpdateSubscription(ctx, *sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// MarkExpired переводит в expired все активные подписки с прошедшей датой
// окончания. Вызывается внешним планировщиком.
func (s *Service) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "subscription.MarkExpired"
	n, err := s.repo.MarkSubscriptionsExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		metrics.SubscriptionsExpired.Add(float64(n))
		s.log.Info("marked subscriptions expired", slog.Int64("count", n))
	}
	return n, nil
}

// List возвращает подписки со снапшотами планов: администратору — все,
// пользователю — только собственные.
func (s *Service) List(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.SubscriptionWithPlan, error) {
	if actor.IsAdmin() {
		return s.repo.ListAllSubscriptions(ctx, limit, offset)
	}
	return s.repo.ListSubscriptionsByUser(ctx, actor.UID, limit, offset)
}

// Get возвращает подписку вместе с планом после проверки доступа.
func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.SubscriptionWithPlan, error) {
	const op = "subscription.Get"

	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := access.Require(actor, sub.UserUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	plan, err := s.repo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.SubscriptionWithPlan{Subscription: *sub, Plan: plan}, nil
}
