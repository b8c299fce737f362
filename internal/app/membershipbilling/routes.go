package membershipbilling

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/membership-billing/internal/gateway"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/auth/changepassword"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/auth/profile"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/auth/updateprofile"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/health"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/payment/paymentcharge"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/payment/paymentread"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/payment/paymentrefund"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/plan/plancreate"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/plan/planlist"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/plan/planread"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/plan/planremove"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/plan/planupdate"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/subscription/reactivate"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/subscription/resume"
	"github.com/magabrotheeeer/membership-billing/internal/http/handlers/subscription/suspend"
	"github.com/magabrotheeeer/membership-billing/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/membership-billing/internal/services/auth"
	paymentservice "github.com/magabrotheeeer/membership-billing/internal/services/payment"
	planservice "github.com/magabrotheeeer/membership-billing/internal/services/plan"
	subservice "github.com/magabrotheeeer/membership-billing/internal/services/subscription"
	"github.com/magabrotheeeer/membership-billing/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *repository.Storage,
	authService *authservice.Service, planService *planservice.Service,
	subscriptionService *subservice.Service, paymentService *paymentservice.Service,
	gw gateway.Gateway) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Post("/logout", logout.New(logger, authService).ServeHTTP)

		// Webhook шлюза аутентифицируется подписью, не токеном
		r.Post("/payments/webhook", paymentwebhook.New(logger, paymentService, gw).ServeHTTP)

		// Группа с JWT-аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Get("/profile", profile.New(logger, authService).ServeHTTP)
			r.Put("/profile", updateprofile.New(logger, authService).ServeHTTP)
			r.Put("/profile/password", changepassword.New(logger, authService).ServeHTTP)

			r.Get("/plans", planlist.New(logger, planService).ServeHTTP)
			r.Get("/plans/{id}", planread.New(logger, planService).ServeHTTP)

			r.Post("/subscriptions", create.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions", list.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions/{id}", read.New(logger, subscriptionService).ServeHTTP)
			r.Post("/subscriptions/{id}/cancel", cancel.New(logger, subscriptionService).ServeHTTP)
			r.Post("/subscriptions/{id}/reactivate", reactivate.New(logger, subscriptionService).ServeHTTP)

			r.Post("/payments/charge", paymentcharge.New(logger, paymentService).ServeHTTP)
			r.Get("/payments", paymentlist.New(logger, paymentService).ServeHTTP)
			r.Get("/payments/{id}", paymentread.New(logger, paymentService).ServeHTTP)
			r.Post("/payments/{id}/refund", paymentrefund.New(logger, paymentService).ServeHTTP)

			// Административные операции
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminMiddleware(logger))
				r.Post("/plans", plancreate.New(logger, planService).ServeHTTP)
				r.Put("/plans/{id}", planupdate.New(logger, planService).ServeHTTP)
				r.Delete("/plans/{id}", planremove.New(logger, planService).ServeHTTP)
				r.Post("/subscriptions/{id}/suspend", suspend.New(logger, subscriptionService).ServeHTTP)
				r.Post("/subscriptions/{id}/resume", resume.New(logger, subscriptionService).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
