// Package middlewarectx содержит HTTP middleware для обработки и проверки JWT токенов.
//
// JWTMiddleware проверяет наличие и валидность access-токена в заголовке
// Authorization, валидирует его через сервис аутентификации и в случае успеха
// добавляет в контекст действующего пользователя для дальнейшего использования
// в обработчиках.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/http/response"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// ActorKey — ключ для действующего пользователя в контексте.
const ActorKey Key = "actor"

// Service описывает интерфейс сервиса для валидации access-токена.
type Service interface {
	VerifyToken(ctx context.Context, token string) (*models.Actor, error)
}

// ActorFromContext извлекает действующего пользователя из контекста запроса.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(models.Actor)
	return actor, ok
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Отсутствующий или отозванный токен — 401 Unauthorized, невалидный или
// истекший — 403 Forbidden. При успехе действующий пользователь кладется
// в контекст запроса.
func JWTMiddleware(authService Service, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("access token required"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			actor, err := authService.VerifyToken(r.Context(), tokenStr)
			if err != nil {
				switch {
				case errors.Is(err, errs.ErrTokenRevoked):
					log.Error("token has been revoked")
					render.Status(r, http.StatusUnauthorized)
					render.JSON(w, r, response.Error("token has been revoked"))
				default:
					log.Error("invalid or expired token", sl.Err(err))
					render.Status(r, http.StatusForbidden)
					render.JSON(w, r, response.Error("invalid or expired token"))
				}
				return
			}

			ctx := context.WithValue(r.Context(), ActorKey, *actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
