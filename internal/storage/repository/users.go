package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// RegisterUser сохраняет нового пользователя в базу данных.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) error {
	const op = "storage.RegisterUser"

	query := `INSERT INTO users (uid, email, password_hash, first_name, last_name, role, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6, $7);`
	if _, err := s.DB.ExecContext(ctx, query,
		user.UID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Role, user.IsActive); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.UID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.IsActive, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email или errs.ErrNotFound.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"

	query := `SELECT uid, email, password_hash, first_name, last_name, role, is_active, created_at
			  FROM users
			  WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по его UID или errs.ErrNotFound.
func (s *Storage) GetUser(ctx context.Context, uid string) (*models.User, error) {
	const op = "storage.GetUser"

	query := `SELECT uid, email, password_hash, first_name, last_name, role, is_active, created_at
			  FROM users
			  WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, uid))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateUserProfile обновляет имя и фамилию пользователя.
func (s *Storage) UpdateUserProfile(ctx context.Context, uid, firstName, lastName string) error {
	const op = "storage.UpdateUserProfile"

	query := `UPDATE users
			  SET first_name = $1, last_name = $2
			  WHERE uid = $3`
	res, err := s.DB.ExecContext(ctx, query, firstName, lastName, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	return nil
}

// UpdateUserPassword заменяет хэш пароля пользователя.
func (s *Storage) UpdateUserPassword(ctx context.Context, uid, passwordHash string) error {
	const op = "storage.UpdateUserPassword"

	query := `UPDATE users
			  SET password_hash = $1
			  WHERE uid = $2`
	res, err := s.DB.ExecContext(ctx, query, passwordHash, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	return nil
}
