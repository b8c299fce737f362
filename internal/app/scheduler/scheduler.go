// Package scheduler периодически переводит просроченные подписки в expired.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/membership-billing/internal/lib/sl"
	subservice "github.com/magabrotheeeer/membership-billing/internal/services/subscription"
)

// Interval — период между проходами по просроченным подпискам.
const Interval = time.Hour

// App запускает периодический проход по подпискам.
type App struct {
	subscriptions *subservice.Service
	logger        *slog.Logger
}

// New создает новый экземпляр App.
func New(subscriptions *subservice.Service, logger *slog.Logger) *App {
	return &App{subscriptions: subscriptions, logger: logger}
}

// Run выполняет проход сразу при старте и далее раз в Interval,
// пока контекст не будет остановлен.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	a.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

func (a *App) sweep(ctx context.Context) {
	n, err := a.subscriptions.MarkExpired(ctx, time.Now().UTC())
	if err != nil {
		a.logger.Error("failed to mark expired subscriptions", sl.Err(err))
		return
	}
	a.logger.Info("expiry sweep finished", slog.Int64("expired", n))
}
