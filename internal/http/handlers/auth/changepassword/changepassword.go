// Package changepassword реализует HTTP-обработчик смены пароля.
// Смена требует подтверждения текущим паролем.
package changepassword

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-billing/internal/http/response"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// Handler обрабатывает HTTP-запросы на смену пароля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс смены пароля.
type Service interface {
	ChangePassword(ctx context.Context, actor models.Actor, req models.DummyPasswordChange) error
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
// @Summary Сменить пароль
// @Description Меняет пароль текущего пользователя после проверки текущего пароля.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyPasswordChange true "Текущий и новый пароли"
// @Success 200 {object} map[string]any "Пароль изменен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверный текущий пароль"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /profile/password [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.changepassword"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyPasswordChange
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

	if err := h.service.ChangePassword(r.Context(), actor, req); err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			log.Error("current password mismatch", sl.Err(err))
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("current password is incorrect"))
			return
		}
		log.Error("failed to change password", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not change password"))
		return
	}

	log.Info("password changed", slog.String("uid", actor.UID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "password updated",
	}))
}
