// Package cancel реализует HTTP-обработчик отмены подписки.
// Повторная отмена отклоняется: отменить можно только активную
// или приостановленную подписку.
package cancel

import (
	"context"
	"encoding/json"
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

// Handler обрабатывает HTTP-запросы на отмену подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс отмены подписки.
type Service interface {
	Cancel(ctx context.Context, actor models.Actor, id, reason string) (*models.Subscription, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Description Отменяет активную подписку с необязательной причиной. Отмена в шлюзе выполняется best-effort.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID подписки"
// @Param request body models.DummyCancel false "Причина отмены"
// @Success 200 {object} map[string]any "Отмененная подписка"
// @Failure 400 {object} response.ErrorResponse "Подписка уже отменена или истекла"
// @Failure 403 {object} response.ErrorResponse "Доступ запрещен"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions/{id}/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")

	// Тело запроса необязательно: отмена без причины допустима.
	var req models.DummyCancel
	_ = json.NewDecoder(r.Body).Decode(&req)

	actor, ok := middlewarectx.ActorFromContext(r.Context())
	if !ok {
		log.Error("actor not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	sub, err := h.service.Cancel(r.Context(), actor, id, req.Reason)
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
			log.Error("subscription is not cancellable", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("subscription cannot be cancelled in its current status"))
		default:
			log.Error("failed to cancel subscription", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not cancel subscription"))
		}
		return
	}

	log.Info("subscription cancelled", slog.String("id", sub.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": sub,
	}))
}
