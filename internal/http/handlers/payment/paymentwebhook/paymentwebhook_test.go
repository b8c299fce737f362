package paymentwebhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/gateway"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ProcessWebhookEvent(ctx context.Context, event models.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newVerifier(t *testing.T) *gateway.Simulator {
	t.Helper()
	g, err := gateway.NewSimulator(gateway.SimulatorConfig{
		APIKey:    "test-api-key",
		SecretKey: "test-secret-key",
	})
	require.NoError(t, err)
	return g
}

func freshEvent() models.WebhookEvent {
	return models.WebhookEvent{
		EventType:     models.EventPaymentSucceeded,
		TransactionID: "txn_1",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
}

func TestWebhookHandler_ServeHTTP(t *testing.T) {
	verifier := newVerifier(t)

	tests := []struct {
		name           string
		event          models.WebhookEvent
		rawBody        []byte
		badSignature   bool
		noSignature    bool
		mockErr        error
		mockCalled     bool
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "valid event is processed",
			event:          freshEvent(),
			mockCalled:     true,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing signature",
			event:          freshEvent(),
			noSignature:    true,
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "invalid signature",
		},
		{
			name:           "invalid signature",
			event:          freshEvent(),
			badSignature:   true,
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "invalid signature",
		},
		{
			name:           "unparsable payload",
			rawBody:        []byte("not a json"),
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid payload",
		},
		{
			name: "stale event outside replay window",
			event: models.WebhookEvent{
				EventType:     models.EventPaymentSucceeded,
				TransactionID: "txn_1",
				Timestamp:     time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "event timestamp outside allowed window",
		},
		{
			name: "event with unknown type",
			event: models.WebhookEvent{
				EventType:     "payment.exploded",
				TransactionID: "txn_1",
				Timestamp:     time.Now().UTC().Format(time.RFC3339),
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid event",
		},
		{
			name:           "already resolved payment is acknowledged",
			event:          freshEvent(),
			mockErr:        errs.ErrNotFound,
			mockCalled:     true,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "processing failure",
			event:          freshEvent(),
			mockErr:        errs.ErrInvalidState,
			mockCalled:     true,
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "could not process event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			if tt.mockCalled {
				serviceMock.On("ProcessWebhookEvent", mock.Anything, tt.event).
					Return(tt.mockErr).Once()
			}
			handler := New(newNoopLogger(), serviceMock, verifier)

			body := tt.rawBody
			if body == nil {
				var err error
				body, err = json.Marshal(tt.event)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			switch {
			case tt.noSignature:
			case tt.badSignature:
				req.Header.Set(SignatureHeader, "deadbeef")
			default:
				req.Header.Set(SignatureHeader, verifier.Signature(body))
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err := json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)

			if tt.wantError != "" {
				assert.Equal(t, "Error", got["status"])
				errStr, ok := got["error"].(string)
				assert.True(t, ok)
				assert.Equal(t, tt.wantError, errStr)
			} else {
				assert.Equal(t, "OK", got["status"])
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, true, data["received"])
			}
			serviceMock.AssertExpectations(t)
		})
	}
}
