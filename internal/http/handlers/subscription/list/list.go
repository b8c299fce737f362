// Package list реализует HTTP-обработчик списка подписок.
// Администратор видит все подписки, пользователь — только собственные.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-billing/internal/http/response"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// Handler обрабатывает HTTP-запросы на получение списка подписок.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс списка подписок.
type Service interface {
	List(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.SubscriptionWithPlan, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список подписок
// @Description Возвращает подписки вместе с планами. Администратор видит все, пользователь — только свои.
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Максимум записей" default(10)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} map[string]any "Список подписок"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	actor, ok := middlewarectx.ActorFromContext(r.Context())
	if !ok {
		log.Error("actor not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	res, err := h.service.List(r.Context(), actor, limit, offset)
	if err != nil {
		log.Error("failed to list subscriptions", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list subscriptions"))
		return
	}

	log.Info("subscriptions listed", slog.Int("count", len(res)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"list_count":    len(res),
		"subscriptions": res,
	}))
}
