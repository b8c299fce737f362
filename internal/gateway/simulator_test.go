package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
)

func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	g, err := NewSimulator(SimulatorConfig{
		APIKey:    "test-api-key",
		SecretKey: "test-secret-key",
	})
	require.NoError(t, err)
	return g
}

func TestNewSimulator_RequiresCredentials(t *testing.T) {
	_, err := NewSimulator(SimulatorConfig{APIKey: "key"})
	require.Error(t, err)

	_, err = NewSimulator(SimulatorConfig{SecretKey: "secret"})
	require.Error(t, err)
}

func TestSimulator_Charge(t *testing.T) {
	ctx := context.Background()
	req := ChargeRequest{Amount: 9.99, Currency: "USD", PaymentMethod: "card", CustomerUID: "user-1"}

	t.Run("success", func(t *testing.T) {
		g := newTestSimulator(t)
		g.chargeRate = 1
		result, err := g.Charge(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.True(t, strings.HasPrefix(result.TransactionID, "txn_"))
		assert.Empty(t, result.FailureReason)
	})

	t.Run("decline carries a reason", func(t *testing.T) {
		g := newTestSimulator(t)
		g.chargeRate = 0
		result, err := g.Charge(ctx, req)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.TransactionID)
		assert.NotEmpty(t, result.FailureReason)
	})

	t.Run("invalid amount", func(t *testing.T) {
		g := newTestSimulator(t)
		_, err := g.Charge(ctx, ChargeRequest{Amount: 0, PaymentMethod: "card"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrInvalidAmount))
	})

	t.Run("missing payment method", func(t *testing.T) {
		g := newTestSimulator(t)
		_, err := g.Charge(ctx, ChargeRequest{Amount: 9.99})
		require.Error(t, err)
	})

	t.Run("cancelled context maps to unavailable", func(t *testing.T) {
		g := newTestSimulator(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := g.Charge(cancelled, req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrGatewayUnavailable))
	})
}

func TestSimulator_Refund(t *testing.T) {
	ctx := context.Background()
	req := RefundRequest{TransactionID: "txn_abc", Amount: 5.00}

	t.Run("success", func(t *testing.T) {
		g := newTestSimulator(t)
		g.refundRate = 1
		result, err := g.Refund(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.True(t, strings.HasPrefix(result.RefundID, "ref_"))
	})

	t.Run("decline", func(t *testing.T) {
		g := newTestSimulator(t)
		g.refundRate = 0
		result, err := g.Refund(ctx, req)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.FailureReason)
	})

	t.Run("missing transaction id", func(t *testing.T) {
		g := newTestSimulator(t)
		_, err := g.Refund(ctx, RefundRequest{Amount: 5.00})
		require.Error(t, err)
	})
}

func TestSimulator_CreateRemoteSubscription(t *testing.T) {
	ctx := context.Background()
	req := RemoteSubscriptionRequest{
		PlanID: "plan-1", CustomerUID: "user-1", PaymentMethod: "card",
		Amount: 9.99, Currency: "USD", BillingCycle: "monthly",
	}

	t.Run("success", func(t *testing.T) {
		g := newTestSimulator(t)
		g.createSubRate = 1
		result, err := g.CreateRemoteSubscription(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.True(t, strings.HasPrefix(result.SubscriptionID, "sub_"))
	})

	t.Run("decline", func(t *testing.T) {
		g := newTestSimulator(t)
		g.createSubRate = 0
		result, err := g.CreateRemoteSubscription(ctx, req)
		require.NoError(t, err)
		assert.False(t, result.Success)
	})

	t.Run("missing customer", func(t *testing.T) {
		g := newTestSimulator(t)
		_, err := g.CreateRemoteSubscription(ctx, RemoteSubscriptionRequest{PlanID: "plan-1", PaymentMethod: "card"})
		require.Error(t, err)
	})
}

func TestSimulator_CancelRemoteSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		g := newTestSimulator(t)
		g.cancelSubRate = 1
		require.NoError(t, g.CancelRemoteSubscription(ctx, "sub_abc"))
	})

	t.Run("decline", func(t *testing.T) {
		g := newTestSimulator(t)
		g.cancelSubRate = 0
		err := g.CancelRemoteSubscription(ctx, "sub_abc")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrGatewayDeclined))
	})

	t.Run("missing subscription id", func(t *testing.T) {
		g := newTestSimulator(t)
		require.Error(t, g.CancelRemoteSubscription(ctx, ""))
	})
}

func TestSimulator_ConcurrentCharges(t *testing.T) {
	g := newTestSimulator(t)
	g.chargeRate = 1
	ctx := context.Background()
	req := ChargeRequest{Amount: 9.99, Currency: "USD", PaymentMethod: "card", CustomerUID: "user-1"}

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	failures := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				result, err := g.Charge(ctx, req)
				if err != nil {
					failures <- err
					return
				}
				if !result.Success {
					failures <- errors.New("unexpected decline")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(failures)

	for err := range failures {
		t.Fatal(err)
	}
}

func TestSimulator_DelayRespectsContext(t *testing.T) {
	g, err := NewSimulator(SimulatorConfig{
		APIKey:    "test-api-key",
		SecretKey: "test-secret-key",
		MinDelay:  time.Second,
		MaxDelay:  2 * time.Second,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = g.Charge(ctx, ChargeRequest{Amount: 9.99, PaymentMethod: "card"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrGatewayUnavailable))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSimulator_WebhookSignature(t *testing.T) {
	g := newTestSimulator(t)
	payload := []byte(`{"event_type":"payment.succeeded","transaction_id":"txn_1"}`)

	sig := g.Signature(payload)
	assert.True(t, g.VerifyWebhookSignature(payload, sig))

	t.Run("tampered payload", func(t *testing.T) {
		assert.False(t, g.VerifyWebhookSignature([]byte(`{"event_type":"payment.failed"}`), sig))
	})

	t.Run("tampered signature", func(t *testing.T) {
		assert.False(t, g.VerifyWebhookSignature(payload, sig+"00"))
	})

	t.Run("different secret", func(t *testing.T) {
		other, err := NewSimulator(SimulatorConfig{APIKey: "test-api-key", SecretKey: "another-secret"})
		require.NoError(t, err)
		assert.False(t, other.VerifyWebhookSignature(payload, sig))
	})
}
