// Package planread реализует HTTP-обработчик чтения плана по ID.
package planread

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/http/response"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// Handler обрабатывает запросы на получение плана по идентификатору.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения плана.
type Service interface {
	Get(ctx context.Context, id string) (*models.Plan, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить план
// @Description Возвращает план по идентификатору.
// @Tags Plans
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID плана"
// @Success 200 {object} map[string]any "Данные плана"
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /plans/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")

	plan, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			log.Error("plan not found", slog.String("id", id))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("plan not found"))
			return
		}
		log.Error("failed to read plan", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read plan"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"plan": plan,
	}))
}
