// Package reactivate реализует HTTP-обработчик реактивации отмененной подписки.
// Перед возвратом в active повторно проверяется, что у пользователя нет
// другой активной подписки.
package reactivate

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

// Handler обрабатывает HTTP-запросы на реактивацию подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс реактивации подписки.
type Service interface {
	Reactivate(ctx context.Context, actor models.Actor, id string) (*models.Subscription, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Реактивировать подписку
// @Description Возвращает отмененную подписку в активный статус, если у пользователя нет другой активной.
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID подписки"
// @Success 200 {object} map[string]any "Реактивированная подписка"
// @Failure 400 {object} response.ErrorResponse "Подписка не в статусе cancelled"
// @Failure 403 {object} response.ErrorResponse "Доступ запрещен"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Другая активная подписка уже существует"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions/{id}/reactivate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.reactivate"

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

	sub, err := h.service.Reactivate(r.Context(), actor, id)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			log.Error("subscription not found", slog.String("id", id))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("subscription not found"))
		case errors.Is(err, errs.ErrForbidden):
			log.Error("access denied", sl.Err(err))
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("access denied"))
		case errors.Is(err, errs.ErrInvalidState):
			log.Error("subscription is not cancelled", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("only cancelled subscriptions can be reactivated"))
		case errors.Is(err, errs.ErrConflict):
			log.Error("another active subscription exists", sl.Err(err))
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("another active subscription already exists"))
		default:
			log.Error("failed to reactivate subscription", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not reactivate subscription"))
		}
		return
	}

	log.Info("subscription reactivated", slog.String("id", sub.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": sub,
	}))
}
