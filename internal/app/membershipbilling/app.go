// Package membershipbilling собирает HTTP-сервис биллинга: хранилище,
// миграции, кеш, брокер событий, платежный шлюз и все обработчики.
package membershipbilling

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/membership-billing/internal/cache"
	"github.com/magabrotheeeer/membership-billing/internal/config"
	"github.com/magabrotheeeer/membership-billing/internal/gateway"
	"github.com/magabrotheeeer/membership-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/membership-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	"github.com/magabrotheeeer/membership-billing/internal/migrations"
	authservice "github.com/magabrotheeeer/membership-billing/internal/services/auth"
	paymentservice "github.com/magabrotheeeer/membership-billing/internal/services/payment"
	planservice "github.com/magabrotheeeer/membership-billing/internal/services/plan"
	subservice "github.com/magabrotheeeer/membership-billing/internal/services/subscription"
	"github.com/magabrotheeeer/membership-billing/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер и его зависимости.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	amqpCn *amqp.Connection
	amqpCh *amqp.Channel
}

// New собирает приложение из конфигурации: применяет миграции, соединяется
// с Redis и RabbitMQ, настраивает симулятор шлюза и регистрирует маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var conn *amqp.Connection
	var ch *amqp.Channel
	var publisher paymentservice.Publisher
	if cfg.RabbitURL != "" {
		conn, err = rabbitmq.Connect(cfg.RabbitURL, 5, 3*time.Second)
		if err != nil {
			return nil, err
		}
		ch, err = rabbitmq.SetupChannel(conn)
		if err != nil {
			return nil, err
		}
		publisher = rabbitmq.NewEventPublisher(ch)
	} else {
		logger.Warn("rabbitmq url is not set, billing events will not be published")
	}

	sim, err := gateway.NewSimulator(gateway.SimulatorConfig{
		APIKey:    cfg.Gateway.APIKey,
		SecretKey: cfg.Gateway.SecretKey,
		BaseURL:   cfg.Gateway.BaseURL,
		MinDelay:  100 * time.Millisecond,
		MaxDelay:  2 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	gw := gateway.WithTimeout(sim, cfg.Gateway.RequestTimeout)

	jwtMaker := jwt.NewJWTMaker(
		cfg.JWTToken.AccessSecretKey, cfg.JWTToken.RefreshSecretKey,
		cfg.JWTToken.AccessTokenTTL, cfg.JWTToken.RefreshTokenTTL)

	authService := authservice.New(db, jwtMaker)
	planService := planservice.New(db, cacheRedis, logger)
	subscriptionService := subservice.New(db, gw, logger)
	paymentService := paymentservice.New(db, gw, publisher, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db,
		authService, planService, subscriptionService, paymentService, gw)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		amqpCn: conn,
		amqpCh: ch,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до остановки контекста
// или фатальной ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	if a.amqpCh != nil {
		_ = a.amqpCh.Close()
	}
	if a.amqpCn != nil {
		_ = a.amqpCn.Close()
	}
}
