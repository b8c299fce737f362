// Package paymentrefund реализует HTTP-обработчик возврата средств.
// Возврат возможен только по завершенному платежу и не больше исходной суммы.
package paymentrefund

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-billing/internal/http/response"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// Handler обрабатывает HTTP-запросы на возврат средств.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс возврата средств.
type Service interface {
	Refund(ctx context.Context, actor models.Actor, paymentID string, req models.DummyRefund) (*models.Payment, error)
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
// @Summary Вернуть средства
// @Description Возвращает средства по завершенному платежу. Пустая сумма означает полный возврат.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID платежа"
// @Param request body models.DummyRefund false "Сумма и причина возврата"
// @Success 200 {object} map[string]any "Возвращенный платеж"
// @Failure 400 {object} response.ErrorResponse "Платеж не завершен или сумма некорректна"
// @Failure 402 {object} response.ErrorResponse "Шлюз отклонил возврат"
// @Failure 403 {object} response.ErrorResponse "Доступ запрещен"
// @Failure 404 {object} response.ErrorResponse "Платеж не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Шлюз недоступен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/{id}/refund [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.refund"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")

	// Тело необязательно: возврат без тела — полный возврат.
	var req models.DummyRefund
	_ = json.NewDecoder(r.Body).Decode(&req)

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

	payment, err := h.service.Refund(r.Context(), actor, id, req)
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
		case errors.Is(err, errs.ErrInvalidState):
			log.Error("payment is not refundable", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("only completed payments can be refunded"))
		case errors.Is(err, errs.ErrInvalidAmount):
			log.Error("invalid refund amount", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("refund amount exceeds the original payment"))
		case errors.Is(err, errs.ErrGatewayDeclined):
			log.Error("gateway declined refund", sl.Err(err))
			render.Status(r, http.StatusPaymentRequired)
			render.JSON(w, r, response.Error("refund was declined"))
		case errors.Is(err, errs.ErrGatewayUnavailable):
			log.Error("gateway unavailable", sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("payment gateway is unavailable"))
		default:
			log.Error("failed to refund payment", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not refund payment"))
		}
		return
	}

	log.Info("payment refunded", slog.String("payment_id", payment.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment": payment,
	}))
}
