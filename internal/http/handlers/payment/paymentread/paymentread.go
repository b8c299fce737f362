// Package paymentread реализует HTTP-обработчик чтения платежа по ID.
package paymentread

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

// Handler обрабатывает запросы на получение платежа по идентификатору.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения платежа.
type Service interface {
	Get(ctx context.Context, actor models.Actor, id string) (*models.Payment, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить платеж
// @Description Возвращает платеж по идентификатору. Чужой платеж доступен только администратору.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID платежа"
// @Success 200 {object} map[string]any "Данные платежа"
// @Failure 403 {object} response.ErrorResponse "Доступ запрещен"
// @Failure 404 {object} response.ErrorResponse "Платеж не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.read"

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

	payment, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			log.Error("payment not found", slog.String("id", id))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("payment not found"))
		case errors.Is(err, errs.ErrForbidden):
			log.Error("access denied", sl.Err(err))
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("access denied"))
		default:
			log.Error("failed to read payment", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not read payment"))
		}
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment": payment,
	}))
}
