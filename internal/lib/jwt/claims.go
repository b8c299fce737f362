package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrExpired возвращается при разборе токена с истекшим сроком действия.
var ErrExpired = errors.New("token expired")

// AccessClaims описывает данные, хранящиеся в access-токене.
// UID пользователя лежит в стандартном поле Subject.
type AccessClaims struct {
	Email                string `json:"email"` // Электронная почта пользователя
	Role                 string `json:"role"`  // Роль пользователя
	jwt.RegisteredClaims        // Встроенные стандартные claims JWT (ExpiresAt, IssuedAt и пр.)
}

// RefreshClaims описывает данные refresh-токена: только uid и маркер типа.
type RefreshClaims struct {
	TokenType            string `json:"type"` // Всегда "refresh"
	jwt.RegisteredClaims
}

// GenerateTokenPair выпускает подписанные access- и refresh-токены для пользователя.
func (m *MakerImpl) GenerateTokenPair(uid, email, role string) (*TokenPair, error) {
	const op = "jwt.GenerateTokenPair"
	now := time.Now()

	accessClaims := AccessClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(m.accessSecret))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshClaims := RefreshClaims{
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(m.refreshSecret))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ParseAccessToken разбирает access-токен, проверяет подпись и срок действия,
// возвращает AccessClaims, если токен корректен.
func (m *MakerImpl) ParseAccessToken(tokenStr string) (*AccessClaims, error) {
	const op = "jwt.ParseAccessToken"
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(m.accessSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrExpired)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}

// ParseRefreshToken разбирает refresh-токен и проверяет маркер типа.
func (m *MakerImpl) ParseRefreshToken(tokenStr string) (*RefreshClaims, error) {
	const op = "jwt.ParseRefreshToken"
	token, err := jwt.ParseWithClaims(tokenStr, &RefreshClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(m.refreshSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrExpired)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid || claims.TokenType != "refresh" {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
