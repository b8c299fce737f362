// Package plan содержит бизнес-логику каталога тарифных планов.
// Изменения каталога доступны только администраторам; правки плана
// никогда не затрагивают снапшоты в существующих подписках.
package plan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/models"
	"github.com/magabrotheeeer/membership-billing/internal/services/access"
)

// PlanRepository определяет методы для работы с планами в хранилище.
type PlanRepository interface {
	CreatePlan(ctx context.Context, plan models.Plan) error
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]*models.Plan, error)
	UpdatePlan(ctx context.Context, plan models.Plan) error
	DeactivatePlan(ctx context.Context, id string) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

const listCacheKey = "plans:active"

// Service реализует операции каталога планов с кешированием списка.
type Service struct {
	repo  PlanRepository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo PlanRepository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// List возвращает планы: администратору — все, остальным — только активные
// из кеша либо хранилища.
func (s *Service) List(ctx context.Context, actor models.Actor) ([]*models.Plan, error) {
	if actor.IsAdmin() {
		return s.repo.ListPlans(ctx, false)
	}

	var cached []*models.Plan
	found, err := s.cache.Get(listCacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read plans from cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	plans, err := s.repo.ListPlans(ctx, true)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(listCacheKey, plans, time.Hour); err != nil {
		s.log.Warn("failed to cache plans", sl.Err(err))
	}
	return plans, nil
}

// Get возвращает план по ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Plan, error) {
	return s.repo.GetPlan(ctx, id)
}

// Create создает новый план. Только для администраторов.
func (s *Service) Create(ctx context.Context, actor models.Actor, req models.DummyPlan) (*models.Plan, error) {
	const op = "plan.Create"

	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	plan := models.Plan{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Currency:     strings.ToUpper(req.Currency),
		BillingCycle: req.BillingCycle,
		MaxSeats:     req.MaxSeats,
		Features:     req.Features,
		TrialDays:    req.TrialDays,
		IsActive:     true,
		SortOrder:    req.SortOrder,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateList()
	s.log.Info("created new plan", slog.String("id", plan.ID), slog.String("name", plan.Name))
	return &plan, nil
}

// Update редактирует план. Только для администраторов.
func (s *Service) Update(ctx context.Context, actor models.Actor, id string, req models.DummyPlan) (*models.Plan, error) {
	const op = "plan.Update"

	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	plan.Name = req.Name
	plan.Description = req.Description
	plan.Price = req.Price
	plan.Currency = strings.ToUpper(req.Currency)
	plan.BillingCycle = req.BillingCycle
	plan.MaxSeats = req.MaxSeats
	plan.Features = req.Features
	plan.TrialDays = req.TrialDays
	plan.SortOrder = req.SortOrder
	if err := s.repo.UpdatePlan(ctx, *plan); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateList()
	return plan, nil
}

// Deactivate снимает план с продажи. Только для администраторов.
func (s *Service) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	const op = "plan.Deactivate"

	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeactivatePlan(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateList()
	return nil
}

func (s *Service) invalidateList() {
	if err := s.cache.Invalidate(listCacheKey); err != nil {
		s.log.Warn("failed to invalidate plans cache", sl.Err(err))
	}
}
