// Package logout реализует HTTP-обработчик выхода: access-токен из заголовка
// Authorization попадает в реестр отозванных и перестает приниматься немедленно,
// не дожидаясь истечения срока действия.
package logout

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-billing/internal/http/response"
)

// Handler обрабатывает HTTP-запросы на выход.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс отзыва токена.
type Service interface {
	Logout(tokenStr string)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выход пользователя
// @Description Отзывает текущий access-токен. Токен перестает приниматься немедленно.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Успешный выход"
// @Failure 401 {object} response.ErrorResponse "Токен отсутствует"
// @Router /logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		log.Error("missing authorization header")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("access token required"))
		return
	}

	h.service.Logout(strings.TrimPrefix(authHeader, "Bearer "))

	log.Info("user logged out")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "logged out",
	}))
}
