// Package jwt реализует выпуск и разбор пары JWT-токенов доступа.
//
// Maker определяет интерфейс для генерации и проверки access- и refresh-токенов.
// MakerImpl — конкретная реализация на двух независимых секретах:
// короткоживущий access-токен несёт uid, email и роль пользователя,
// долгоживущий refresh-токен — только uid и маркер type=refresh.
package jwt

import (
	"time"
)

// Maker описывает интерфейс для выпуска и разбора JWT-токенов.
type Maker interface {
	// GenerateTokenPair выпускает access- и refresh-токены для пользователя.
	GenerateTokenPair(uid, email, role string) (*TokenPair, error)
	// ParseAccessToken проверяет access-токен и возвращает его claims.
	ParseAccessToken(tokenStr string) (*AccessClaims, error)
	// ParseRefreshToken проверяет refresh-токен и возвращает его claims.
	ParseRefreshToken(tokenStr string) (*RefreshClaims, error)
}

// TokenPair — пара выпущенных токенов.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// MakerImpl реализует интерфейс Maker. Подпись access- и refresh-токенов
// выполняется разными секретами, чтобы компрометация одного не раскрывала другой.
type MakerImpl struct {
	accessSecret  string        // Секрет для подписи access-токенов
	refreshSecret string        // Секрет для подписи refresh-токенов
	accessTTL     time.Duration // Время жизни access-токена
	refreshTTL    time.Duration // Время жизни refresh-токена
}

// NewJWTMaker создаёт новый экземпляр MakerImpl.
func NewJWTMaker(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *MakerImpl {
	return &MakerImpl{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}
