// Package paymentcharge реализует HTTP-обработчик списания средств по подписке.
//
// Handler принимает JSON-запрос на списание, валидирует его и делегирует
// платежному сервису. Итог списания зависит от ответа шлюза, поэтому набор
// статусов шире обычного: отказ шлюза (402), недоступность шлюза (503) и
// параллельное списание по той же подписке (409) различаются.
package paymentcharge

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

// Handler обрабатывает HTTP-запросы на списание средств.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс списания средств.
type Service interface {
	Charge(ctx context.Context, actor models.Actor, req models.DummyCharge) (*models.Payment, error)
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
// @Summary Списать средства
// @Description Проводит списание по активной подписке текущего пользователя. Списания по одной подписке строго последовательны.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyCharge true "Параметры списания"
// @Success 200 {object} map[string]any "Завершенный платеж"
// @Failure 400 {object} response.ErrorResponse "Подписка не активна или сумма некорректна"
// @Failure 402 {object} response.ErrorResponse "Шлюз отклонил списание"
// @Failure 403 {object} response.ErrorResponse "Подписка принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Списание по подписке уже выполняется"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Шлюз недоступен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/charge [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.charge"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyCharge
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
	log.Info("all fields are validated")

	actor, ok := middlewarectx.ActorFromContext(r.Context())
	if !ok {
		log.Error("actor not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	payment, err := h.service.Charge(r.Context(), actor, req)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			log.Error("subscription not found", sl.Err(err))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("subscription not found"))
		case errors.Is(err, errs.ErrForbidden):
			log.Error("subscription belongs to another user", sl.Err(err))
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("access denied"))
		case errors.Is(err, errs.ErrInvalidState):
			log.Error("subscription is not active", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("subscription is not active"))
		case errors.Is(err, errs.ErrInvalidAmount):
			log.Error("invalid amount", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid amount"))
		case errors.Is(err, errs.ErrChargeInFlight):
			log.Error("charge already in progress", sl.Err(err))
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("another charge for this subscription is in progress"))
		case errors.Is(err, errs.ErrGatewayDeclined):
			log.Error("gateway declined charge", sl.Err(err))
			render.Status(r, http.StatusPaymentRequired)
			// Неуспешный платеж остается в журнале, отдаем его вместе с ошибкой.
			render.JSON(w, r, response.Response{
				Status: response.StatusError,
				Error:  "payment was declined",
				Data:   map[string]any{"payment": payment},
			})
		case errors.Is(err, errs.ErrGatewayUnavailable):
			log.Error("gateway unavailable", sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("payment gateway is unavailable"))
		default:
			log.Error("failed to charge", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not process charge"))
		}
		return
	}

	log.Info("payment completed", slog.String("payment_id", payment.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment": payment,
	}))
}
