// Package auth содержит логику бизнес-уровня для работы с пользователями
// и сессионной аутентификацией: регистрацию, вход, проверку и отзыв токенов.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/membership-billing/internal/lib/password"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя.
	RegisterUser(ctx context.Context, user models.User) error
	// GetUserByEmail возвращает пользователя по email или errs.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUser возвращает пользователя по UID или errs.ErrNotFound.
	GetUser(ctx context.Context, uid string) (*models.User, error)
	// UpdateUserProfile обновляет имя и фамилию пользователя.
	UpdateUserProfile(ctx context.Context, uid, firstName, lastName string) error
	// UpdateUserPassword заменяет хэш пароля пользователя.
	UpdateUserPassword(ctx context.Context, uid, passwordHash string) error
}

// Service отвечает за регистрацию, вход, проверку и отзыв токенов.
// Выпуск токенов stateless; единственное разделяемое состояние —
// реестр отозванных токенов.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
	revoked  *RevocationRegistry
}

// New создает новый экземпляр Service.
func New(users UserRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
		revoked:  NewRevocationRegistry(),
	}
}

// Register создает нового пользователя с хэшированием пароля и дефолтной
// ролью user, затем выпускает пару токенов. Занятый email — errs.ErrUserExists.
func (s *Service) Register(ctx context.Context, req models.DummyRegister) (*models.User, *jwt.TokenPair, error) {
	const op = "auth.Register"

	email := strings.ToLower(req.Email)
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, nil, fmt.Errorf("%s: %w", op, errs.ErrUserExists)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: hashed,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.RegisterUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	tokens, err := s.jwtMaker.GenerateTokenPair(user.UID, user.Email, user.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, tokens, nil
}

// Login проверяет учетные данные и выпускает пару токенов.
// Несуществующий пользователь и неверный пароль неразличимы для вызывающего.
func (s *Service) Login(ctx context.Context, req models.DummyLogin) (*models.User, *jwt.TokenPair, error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
		}
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, req.Password); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}
	if !user.IsActive {
		return nil, nil, fmt.Errorf("%s: %w", op, errs.ErrUserInactive)
	}

	tokens, err := s.jwtMaker.GenerateTokenPair(user.UID, user.Email, user.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, tokens, nil
}

// VerifyToken проверяет access-токен: подпись и срок, реестр отозванных,
// затем существование и активность учетной записи. Возвращает актора,
// закодированного в токене на момент выпуска.
func (s *Service) VerifyToken(ctx context.Context, tokenStr string) (*models.Actor, error) {
	const op = "auth.VerifyToken"

	if s.revoked.IsRevoked(tokenStr) {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrTokenRevoked)
	}

	claims, err := s.jwtMaker.ParseAccessToken(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidToken)
	}

	user, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrUserInactive)
	}

	return &models.Actor{UID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// Logout отзывает токен до его естественного истечения. Токен с нечитаемыми
// claims отзывать незачем: он и так не пройдет проверку подписи.
func (s *Service) Logout(tokenStr string) {
	claims, err := s.jwtMaker.ParseAccessToken(tokenStr)
	if err != nil {
		return
	}
	s.revoked.Revoke(tokenStr, claims.ExpiresAt.Time)
}

// GetProfile возвращает профиль пользователя по актору.
func (s *Service) GetProfile(ctx context.Context, actor models.Actor) (*models.User, error) {
	const op = "auth.GetProfile"
	user, err := s.users.GetUser(ctx, actor.UID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UpdateProfile обновляет имя и фамилию пользователя. Пустые поля
// сохраняют текущие значения.
func (s *Service) UpdateProfile(ctx context.Context, actor models.Actor, req models.DummyProfileUpdate) (*models.User, error) {
	const op = "auth.UpdateProfile"

	user, err := s.users.GetUser(ctx, actor.UID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if err := s.users.UpdateUserProfile(ctx, user.UID, user.FirstName, user.LastName); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// ChangePassword меняет пароль после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, actor models.Actor, req models.DummyPasswordChange) error {
	const op = "auth.ChangePassword"

	user, err := s.users.GetUser(ctx, actor.UID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, req.CurrentPassword); err != nil {
		return fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}
	hashed, err := password.GetHash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdateUserPassword(ctx, user.UID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
