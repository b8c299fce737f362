// Package planlist реализует HTTP-обработчик каталога планов.
// Администратор видит все планы, остальные — только активные.
package planlist

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

// Handler обрабатывает HTTP-запросы на получение каталога планов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс каталога планов.
type Service interface {
	List(ctx context.Context, actor models.Actor) ([]*models.Plan, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Каталог планов
// @Description Возвращает планы, отсортированные по sort_order. Неактивные планы видны только администратору.
// @Tags Plans
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Список планов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	actor, _ := middlewarectx.ActorFromContext(r.Context())

	plans, err := h.service.List(r.Context(), actor)
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list plans"))
		return
	}

	log.Info("plans listed", slog.Int("count", len(plans)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"list_count": len(plans),
		"plans":      plans,
	}))
}
