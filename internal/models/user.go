// Package models содержит доменные структуры биллинга: пользователей, планы,
// подписки и платежи, а также Dummy*-структуры для приёма данных из JSON-запросов
// до их валидации и передачи в бизнес-логику.
package models

import "time"

// Роли пользователей системы.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID          string    `json:"uid"`        // Уникальный идентификатор пользователя
	Email        string    `json:"email"`      // Электронная почта (уникальная)
	PasswordHash string    `json:"-"`          // Хэш пароля, наружу не отдается
	FirstName    string    `json:"first_name"` // Имя
	LastName     string    `json:"last_name"`  // Фамилия
	Role         string    `json:"role"`       // Роль пользователя, admin или user
	IsActive     bool      `json:"is_active"`  // Признак активной учетной записи
	CreatedAt    time.Time `json:"created_at"`
}

// Actor — аутентифицированная личность, выполняющая операцию.
// Получается из проверенного access-токена.
type Actor struct {
	UID   string
	Email string
	Role  string
}

// IsAdmin сообщает, обладает ли актор административной ролью.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// DummyRegister используется для приёма данных регистрации из JSON-запроса.
type DummyRegister struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// DummyLogin используется для приёма данных входа из JSON-запроса.
type DummyLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// DummyProfileUpdate используется для обновления профиля пользователя.
type DummyProfileUpdate struct {
	FirstName string `json:"first_name" validate:"omitempty"`
	LastName  string `json:"last_name" validate:"omitempty"`
}

// DummyPasswordChange используется для смены пароля с проверкой текущего.
type DummyPasswordChange struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}
