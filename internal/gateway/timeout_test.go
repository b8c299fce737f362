package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
)

func newSlowSimulator(t *testing.T) *Simulator {
	t.Helper()
	g, err := NewSimulator(SimulatorConfig{
		APIKey:    "test-api-key",
		SecretKey: "test-secret-key",
		MinDelay:  time.Second,
		MaxDelay:  2 * time.Second,
	})
	require.NoError(t, err)
	return g
}

func TestWithTimeout_BoundsChargeWithoutCallerDeadline(t *testing.T) {
	gw := WithTimeout(newSlowSimulator(t), 10*time.Millisecond)

	start := time.Now()
	_, err := gw.Charge(context.Background(), ChargeRequest{Amount: 9.99, PaymentMethod: "card"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrGatewayUnavailable))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeout_BoundsCancelRemoteSubscription(t *testing.T) {
	gw := WithTimeout(newSlowSimulator(t), 10*time.Millisecond)

	err := gw.CancelRemoteSubscription(context.Background(), "sub_abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrGatewayUnavailable))
}

func TestWithTimeout_FastCallSucceeds(t *testing.T) {
	sim := newTestSimulator(t)
	sim.chargeRate = 1
	gw := WithTimeout(sim, time.Second)

	result, err := gw.Charge(context.Background(), ChargeRequest{Amount: 9.99, PaymentMethod: "card"})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestWithTimeout_ZeroTimeoutReturnsGatewayAsIs(t *testing.T) {
	sim := newTestSimulator(t)
	assert.Equal(t, Gateway(sim), WithTimeout(sim, 0))
}

func TestWithTimeout_SignatureVerificationPassesThrough(t *testing.T) {
	sim := newTestSimulator(t)
	gw := WithTimeout(sim, time.Second)

	payload := []byte(`{"event_type":"payment.succeeded"}`)
	assert.True(t, gw.VerifyWebhookSignature(payload, sim.Signature(payload)))
	assert.False(t, gw.VerifyWebhookSignature(payload, "bad"))
}
