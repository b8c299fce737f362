package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// CreatePlan сохраняет новый тарифный план. Список возможностей
// сериализуется в JSONB.
func (s *Storage) CreatePlan(ctx context.Context, plan models.Plan) error {
	const op = "storage.CreatePlan"

	features, err := json.Marshal(plan.Features)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `INSERT INTO plans (id, name, description, price, currency, billing_cycle,
			      max_seats, features, trial_days, is_active, sort_order)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`
	if _, err := s.DB.ExecContext(ctx, query,
		plan.ID, plan.Name, plan.Description, plan.Price, plan.Currency, plan.BillingCycle,
		plan.MaxSeats, features, plan.TrialDays, plan.IsActive, plan.SortOrder); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanPlan(scan func(dest ...any) error) (*models.Plan, error) {
	p := &models.Plan{}
	var features []byte
	if err := scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency, &p.BillingCycle,
		&p.MaxSeats, &features, &p.TrialDays, &p.IsActive, &p.SortOrder, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return nil, err
		}
	}
	return p, nil
}

const planColumns = `id, name, description, price, currency, billing_cycle,
			      max_seats, features, trial_days, is_active, sort_order, created_at`

// GetPlan возвращает план по ID или errs.ErrNotFound.
func (s *Storage) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	const op = "storage.GetPlan"

	query := `SELECT ` + planColumns + `
			  FROM plans
			  WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)
	p, err := scanPlan(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPlans возвращает планы в порядке sort_order. При activeOnly
// выдаются только активные планы.
func (s *Storage) ListPlans(ctx context.Context, activeOnly bool) ([]*models.Plan, error) {
	const op = "storage.ListPlans"

	query := `SELECT ` + planColumns + `
			  FROM plans`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order, created_at`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Plan
	for rows.Next() {
		p, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdatePlan обновляет редактируемые поля плана. Снапшоты в существующих
// подписках при этом не меняются.
func (s *Storage) UpdatePlan(ctx context.Context, plan models.Plan) error {
	const op = "storage.UpdatePlan"

	features, err := json.Marshal(plan.Features)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `UPDATE plans
			  SET name = $1, description = $2, price = $3, currency = $4,
			      billing_cycle = $5, max_seats = $6, features = $7,
			      trial_days = $8, sort_order = $9
			  WHERE id = $10`
	res, err := s.DB.ExecContext(ctx, query,
		plan.Name, plan.Description, plan.Price, plan.Currency, plan.BillingCycle,
		plan.MaxSeats, features, plan.TrialDays, plan.SortOrder, plan.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	return nil
}

// DeactivatePlan снимает план с продажи. Существующие подписки продолжают
// действовать со своими снапшотами.
func (s *Storage) DeactivatePlan(ctx context.Context, id string) error {
	const op = "storage.DeactivatePlan"

	query := `UPDATE plans
			  SET is_active = FALSE
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	return nil
}
