// Package paymentwebhook реализует прием уведомлений платежного шлюза.
//
// Подпись из заголовка X-Webhook-Signature проверяется до разбора полезной
// нагрузки, затем событие проверяется на окно воспроизведения и передается
// платежному сервису. Повторная доставка уже обработанного события
// подтверждается ответом 200, чтобы шлюз не ретраил её бесконечно.
package paymentwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/gateway"
	"github.com/magabrotheeeer/membership-billing/internal/http/response"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// SignatureHeader — заголовок с HMAC-подписью уведомления.
const SignatureHeader = "X-Webhook-Signature"

// Service описывает интерфейс обработки webhook-событий.
type Service interface {
	ProcessWebhookEvent(ctx context.Context, event models.WebhookEvent) error
}

// Verifier проверяет подпись полезной нагрузки.
type Verifier interface {
	VerifyWebhookSignature(payload []byte, signature string) bool
}

// Handler обрабатывает уведомления платежного шлюза.
type Handler struct {
	log      *slog.Logger
	service  Service
	verifier Verifier
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, verifier Verifier) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		verifier: verifier,
	}
}

// ServeHTTP godoc
// @Summary Webhook платежного шлюза
// @Description Принимает подписанные уведомления шлюза о платежах и подписках.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param X-Webhook-Signature header string true "HMAC-SHA256 подпись тела"
// @Success 200 {object} map[string]any "Событие принято"
// @Failure 400 {object} response.ErrorResponse "Некорректное или устаревшее событие"
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" || !h.verifier.VerifyWebhookSignature(body, signature) {
		log.Error("invalid or missing webhook signature")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid payload"))
		return
	}

	if err := gateway.ValidateWebhookEvent(event, time.Now().UTC()); err != nil {
		if errors.Is(err, gateway.ErrStaleTimestamp) {
			log.Error("webhook timestamp outside replay window",
				slog.String("timestamp", event.Timestamp))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("event timestamp outside allowed window"))
			return
		}
		log.Error("invalid webhook event", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid event"))
		return
	}

	if err := h.service.ProcessWebhookEvent(r.Context(), event); err != nil {
		// Уже обработанное или неизвестное событие подтверждаем, иначе
		// шлюз будет доставлять его снова и снова.
		if errors.Is(err, errs.ErrNotFound) {
			log.Warn("webhook event refers to no pending payment",
				slog.String("transaction_id", event.TransactionID))
			render.JSON(w, r, response.OKWithData(map[string]any{
				"received": true,
			}))
			return
		}
		log.Error("failed to process webhook event", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not process event"))
		return
	}

	log.Info("webhook processed", slog.String("event_type", event.EventType))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"received": true,
	}))
}
