package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	schedulerapp "github.com/magabrotheeeer/membership-billing/internal/app/scheduler"
	"github.com/magabrotheeeer/membership-billing/internal/config"
	"github.com/magabrotheeeer/membership-billing/internal/gateway"
	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	subservice "github.com/magabrotheeeer/membership-billing/internal/services/subscription"
	"github.com/magabrotheeeer/membership-billing/internal/storage/repository"
)

func waitForDB(db *repository.Storage) error {
	for range 10 {
		if err := db.CheckDatabaseReady(context.Background()); err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting billing-scheduler", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.DB.Close()
	}()
	if err = waitForDB(db); err != nil {
		logger.Error("database is not ready", sl.Err(err))
		os.Exit(1)
	}

	// Планировщику шлюз не нужен, но конструктор сервиса требует его:
	// держим симулятор без задержек.
	gw, err := gateway.NewSimulator(gateway.SimulatorConfig{
		APIKey:    cfg.Gateway.APIKey,
		SecretKey: cfg.Gateway.SecretKey,
		BaseURL:   cfg.Gateway.BaseURL,
	})
	if err != nil {
		logger.Error("failed to init gateway", sl.Err(err))
		os.Exit(1)
	}

	subscriptionService := subservice.New(db, gw, logger)

	app := schedulerapp.New(subscriptionService, logger)
	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler stopped with error", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("billing-scheduler stopped gracefully")
}
