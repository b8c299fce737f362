package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/metrics"
)

// Вероятности успеха по типам операций симулируемого процессора.
const (
	chargeSuccessRate    = 0.95
	refundSuccessRate    = 0.98
	createSubSuccessRate = 0.92
	cancelSubSuccessRate = 0.99
)

var declineReasons = []string{
	"Insufficient funds",
	"Card declined",
	"Invalid card number",
	"Expired card",
	"CVV mismatch",
}

// SimulatorConfig — настройки симулятора шлюза.
// Нулевые MinDelay/MaxDelay отключают имитацию сетевой задержки.
type SimulatorConfig struct {
	APIKey    string
	SecretKey string
	BaseURL   string
	MinDelay  time.Duration
	MaxDelay  time.Duration
}

// Simulator имитирует внешний платежный процессор: сетевую задержку,
// фиксированную вероятность успеха по типу операции и реалистичные
// причины отказов. Результаты и таксономия ошибок совпадают с реальным
// клиентом, поэтому менеджеры жизненного цикла от замены не зависят.
type Simulator struct {
	cfg SimulatorConfig

	// rand.Rand небезопасен для конкурентного доступа, а операции
	// по разным подпискам идут параллельно.
	rngMu sync.Mutex
	rng   *mrand.Rand

	// Переопределение вероятностей успеха, используется в тестах.
	chargeRate    float64
	refundRate    float64
	createSubRate float64
	cancelSubRate float64
}

// NewSimulator создает симулятор шлюза. Отсутствие реквизитов — ошибка
// конфигурации, обнаруживаемая на старте процесса, а не при первом платеже.
func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	const op = "gateway.NewSimulator"
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("%s: payment gateway credentials not configured", op)
	}
	return &Simulator{
		cfg:           cfg,
		rng:           mrand.New(mrand.NewSource(time.Now().UnixNano())),
		chargeRate:    chargeSuccessRate,
		refundRate:    refundSuccessRate,
		createSubRate: createSubSuccessRate,
		cancelSubRate: cancelSubSuccessRate,
	}, nil
}

// simulateDelay ждет случайную задержку в настроенном окне, уважая контекст.
// Истекший дедлайн транслируется в errs.ErrGatewayUnavailable.
func (g *Simulator) simulateDelay(ctx context.Context) error {
	if g.cfg.MaxDelay <= 0 {
		if err := ctx.Err(); err != nil {
			return errs.ErrGatewayUnavailable
		}
		return nil
	}
	delay := g.cfg.MinDelay
	if g.cfg.MaxDelay > g.cfg.MinDelay {
		delay += g.jitter(g.cfg.MaxDelay - g.cfg.MinDelay)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errs.ErrGatewayUnavailable
	case <-timer.C:
		return nil
	}
}

// roll возвращает случайное число в [0,1) под защитой мьютекса.
func (g *Simulator) roll() float64 {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return g.rng.Float64()
}

func (g *Simulator) jitter(window time.Duration) time.Duration {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return time.Duration(g.rng.Int63n(int64(window)))
}

func (g *Simulator) declineReason() string {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return declineReasons[g.rng.Intn(len(declineReasons))]
}

func randomID(prefix string) string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return prefix + hex.EncodeToString(buf)
}

func (g *Simulator) observe(operation string, start time.Time, result string) {
	metrics.GatewayRequestsTotal.WithLabelValues(operation, result).Inc()
	metrics.GatewayRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Charge имитирует списание средств.
func (g *Simulator) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	const op = "gateway.Charge"
	start := time.Now()

	if req.Amount <= 0 {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidAmount)
	}
	if req.PaymentMethod == "" {
		return nil, fmt.Errorf("%s: payment method is required", op)
	}
	if err := g.simulateDelay(ctx); err != nil {
		g.observe("charge", start, "unavailable")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &ChargeResult{TransactionID: randomID("txn_")}
	if g.roll() < g.chargeRate {
		result.Success = true
		g.observe("charge", start, "success")
	} else {
		result.FailureReason = g.declineReason()
		g.observe("charge", start, "declined")
	}
	return result, nil
}

// Refund имитирует возврат средств по транзакции.
func (g *Simulator) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	const op = "gateway.Refund"
	start := time.Now()

	if req.TransactionID == "" {
		return nil, fmt.Errorf("%s: transaction id is required", op)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidAmount)
	}
	if err := g.simulateDelay(ctx); err != nil {
		g.observe("refund", start, "unavailable")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &RefundResult{RefundID: randomID("ref_")}
	if g.roll() < g.refundRate {
		result.Success = true
		g.observe("refund", start, "success")
	} else {
		result.FailureReason = "Refund processing failed"
		g.observe("refund", start, "declined")
	}
	return result, nil
}

// CreateRemoteSubscription имитирует регистрацию подписки на стороне шлюза.
func (g *Simulator) CreateRemoteSubscription(ctx context.Context, req RemoteSubscriptionRequest) (*RemoteSubscriptionResult, error) {
	const op = "gateway.CreateRemoteSubscription"
	start := time.Now()

	if req.PlanID == "" || req.CustomerUID == "" {
		return nil, fmt.Errorf("%s: plan id and customer id are required", op)
	}
	if req.PaymentMethod == "" {
		return nil, fmt.Errorf("%s: payment method is required", op)
	}
	if req.Amount < 0 {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidAmount)
	}
	if err := g.simulateDelay(ctx); err != nil {
		g.observe("create_subscription", start, "unavailable")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &RemoteSubscriptionResult{SubscriptionID: randomID("sub_")}
	if g.roll() < g.createSubRate {
		result.Success = true
		g.observe("create_subscription", start, "success")
	} else {
		result.FailureReason = "Subscription creation failed"
		g.observe("create_subscription", start, "declined")
	}
	return result, nil
}

// CancelRemoteSubscription имитирует отмену подписки на стороне шлюза.
func (g *Simulator) CancelRemoteSubscription(ctx context.Context, subscriptionID string) error {
	const op = "gateway.CancelRemoteSubscription"
	start := time.Now()

	if subscriptionID == "" {
		return fmt.Errorf("%s: subscription id is required", op)
	}
	if err := g.simulateDelay(ctx); err != nil {
		g.observe("cancel_subscription", start, "unavailable")
		return fmt.Errorf("%s: %w", op, err)
	}

	if g.roll() < g.cancelSubRate {
		g.observe("cancel_subscription", start, "success")
		return nil
	}
	g.observe("cancel_subscription", start, "declined")
	return fmt.Errorf("%s: %w: subscription cancellation failed", op, errs.ErrGatewayDeclined)
}

// Signature возвращает HMAC-SHA256 подпись полезной нагрузки в hex.
// Используется в тестах и симуляции webhook-уведомлений.
func (g *Simulator) Signature(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.SecretKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature проверяет подпись webhook-уведомления.
// Сравнение выполняется за постоянное время.
func (g *Simulator) VerifyWebhookSignature(payload []byte, signature string) bool {
	expected := g.Signature(payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
