package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-billing/internal/http/response"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// AdminMiddleware пропускает дальше только администраторов.
// Ставится после JWTMiddleware: действующий пользователь уже в контексте.
func AdminMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AdminMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			actor, ok := ActorFromContext(r.Context())
			if !ok {
				log.Error("actor not found in context")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("access token required"))
				return
			}
			if actor.Role != models.RoleAdmin {
				log.Error("admin role required", slog.String("role", actor.Role))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
