// Package profile реализует HTTP-обработчик чтения собственного профиля.
package profile

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-billing/internal/http/response"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// Handler обрабатывает HTTP-запросы на чтение профиля.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения профиля.
type Service interface {
	GetProfile(ctx context.Context, actor models.Actor) (*models.User, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Профиль пользователя
// @Description Возвращает профиль текущего пользователя.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Профиль пользователя"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /profile [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.profile"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	actor, ok := middlewarectx.ActorFromContext(r.Context())
	if !ok {
		log.Error("actor not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	user, err := h.service.GetProfile(r.Context(), actor)
	if err != nil {
		log.Error("failed to get profile", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get profile"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"user": user,
	}))
}
