// Package updateprofile реализует HTTP-обработчик обновления профиля.
// Пустые поля запроса оставляют текущие значения без изменений.
package updateprofile

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/membership-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-billing/internal/http/response"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// Handler обрабатывает HTTP-запросы на обновление профиля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс обновления профиля.
type Service interface {
	UpdateProfile(ctx context.Context, actor models.Actor, req models.DummyProfileUpdate) (*models.User, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Обновить профиль
// @Description Обновляет имя и фамилию текущего пользователя.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyProfileUpdate true "Новые данные профиля"
// @Success 200 {object} map[string]any "Обновленный профиль"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /profile [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.updateprofile"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	actor, ok := middlewarectx.ActorFromContext(r.Context())
	if !ok {
		log.Error("actor not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), actor, req)
	if err != nil {
		log.Error("failed to update profile", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update profile"))
		return
	}

	log.Info("profile updated", slog.String("uid", actor.UID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user": user,
	}))
}
