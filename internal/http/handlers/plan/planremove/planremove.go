// Package planremove реализует HTTP-обработчик деактивации плана.
// План не удаляется, а скрывается из каталога: действующие подписки
// продолжают на него ссылаться. Операция доступна только администратору.
package planremove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-billing/internal/http/response"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// Handler обрабатывает HTTP-запросы на деактивацию плана.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс деактивации плана.
type Service interface {
	Deactivate(ctx context.Context, actor models.Actor, id string) error
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Деактивировать план
// @Description Скрывает план из каталога, не затрагивая существующие подписки. Только для администратора.
// @Tags Plans
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID плана"
// @Success 200 {object} map[string]any "План деактивирован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /plans/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.remove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")

	actor, ok := middlewarectx.ActorFromContext(r.Context())
	if !ok {
		log.Error("actor not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Deactivate(r.Context(), actor, id); err != nil {
		switch {
		case errors.Is(err, errs.ErrForbidden):
			log.Error("admin role required", sl.Err(err))
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("admin role required"))
		case errors.Is(err, errs.ErrNotFound):
			log.Error("plan not found", slog.String("id", id))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("plan not found"))
		default:
			log.Error("failed to deactivate plan", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not deactivate plan"))
		}
		return
	}

	log.Info("plan deactivated", slog.String("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "plan deactivated",
	}))
}
