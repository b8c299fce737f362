// Package create реализует HTTP-обработчик оформления подписки.
//
// Handler принимает JSON-запрос с планом и способом оплаты, валидирует его,
// извлекает действующего пользователя из контекста, вызывает бизнес-логику
// оформления и возвращает созданную подписку вместе с планом.
package create

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

// Handler управляет HTTP-запросами на оформление подписок.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики оформления подписки.
type Service interface {
	Create(ctx context.Context, actor models.Actor, req models.DummySubscriptionCreate) (*models.SubscriptionWithPlan, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Оформить подписку
// @Description Подписывает текущего пользователя на план. У пользователя может быть не больше одной активной подписки.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummySubscriptionCreate true "План и способ оплаты"
// @Success 200 {object} map[string]any "Созданная подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 402 {object} response.ErrorResponse "Шлюз отклонил операцию"
// @Failure 404 {object} response.ErrorResponse "План не найден или неактивен"
// @Failure 409 {object} response.ErrorResponse "Активная подписка уже существует"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Шлюз недоступен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySubscriptionCreate
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

	sub, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrPlanNotFound):
			log.Error("plan not found or inactive", sl.Err(err))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("plan not found or inactive"))
		case errors.Is(err, errs.ErrConflict):
			log.Error("active subscription already exists", sl.Err(err))
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("active subscription already exists"))
		case errors.Is(err, errs.ErrGatewayDeclined):
			log.Error("gateway declined subscription", sl.Err(err))
			render.Status(r, http.StatusPaymentRequired)
			render.JSON(w, r, response.Error("payment gateway declined the operation"))
		case errors.Is(err, errs.ErrGatewayUnavailable):
			log.Error("gateway unavailable", sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("payment gateway is unavailable"))
		default:
			log.Error("failed to create subscription", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create subscription"))
		}
		return
	}

	log.Info("subscription created", slog.String("id", sub.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": sub,
	}))
}
