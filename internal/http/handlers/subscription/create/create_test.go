package create

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Create(ctx context.Context, actor models.Actor, req models.DummySubscriptionCreate) (*models.SubscriptionWithPlan, error) {
	args := m.Called(ctx, actor, req)
	sub, _ := args.Get(0).(*models.SubscriptionWithPlan)
	return sub, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const testPlanID = "5f3e31fb-9f45-4f6a-a69e-50c9dbf0b0d9"

func TestCreateHandler_ServeHTTP(t *testing.T) {
	actor := models.Actor{UID: "user-1", Role: models.RoleUser}
	validBody := models.DummySubscriptionCreate{PlanID: testPlanID, PaymentMethod: "card"}

	created := &models.SubscriptionWithPlan{
		Subscription: models.Subscription{ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionActive},
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		withActor      bool
		mockSub        *models.SubscriptionWithPlan
		mockErr        error
		wantStatusCode int
		wantError      string
		wantStatus     string
	}{
		{
			name:           "subscription created",
			requestBody:    validBody,
			withActor:      true,
			mockSub:        created,
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			withActor:      true,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name:           "validation error - plan id is not a uuid",
			requestBody:    models.DummySubscriptionCreate{PlanID: "premium", PaymentMethod: "card"},
			withActor:      true,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field PlanID can contain only uuid",
			wantStatus:     "Error",
		},
		{
			name:           "no actor in context",
			requestBody:    validBody,
			withActor:      false,
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "unauthorized",
			wantStatus:     "Error",
		},
		{
			name:           "plan not found",
			requestBody:    validBody,
			withActor:      true,
			mockErr:        errs.ErrPlanNotFound,
			wantStatusCode: http.StatusNotFound,
			wantError:      "plan not found or inactive",
			wantStatus:     "Error",
		},
		{
			name:           "active subscription already exists",
			requestBody:    validBody,
			withActor:      true,
			mockErr:        errs.ErrConflict,
			wantStatusCode: http.StatusConflict,
			wantError:      "active subscription already exists",
			wantStatus:     "Error",
		},
		{
			name:           "gateway declined",
			requestBody:    validBody,
			withActor:      true,
			mockErr:        errs.ErrGatewayDeclined,
			wantStatusCode: http.StatusPaymentRequired,
			wantError:      "payment gateway declined the operation",
			wantStatus:     "Error",
		},
		{
			name:           "gateway unavailable",
			requestBody:    validBody,
			withActor:      true,
			mockErr:        errs.ErrGatewayUnavailable,
			wantStatusCode: http.StatusServiceUnavailable,
			wantError:      "payment gateway is unavailable",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			if tt.mockSub != nil || tt.mockErr != nil {
				serviceMock.On("Create", mock.Anything, actor, tt.requestBody.(models.DummySubscriptionCreate)).
					Return(tt.mockSub, tt.mockErr).Once()
			}
			handler := New(newNoopLogger(), serviceMock)

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewReader(bodyBytes))
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			if tt.withActor {
				ctx = context.WithValue(ctx, middlewarectx.ActorKey, actor)
			}
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err = json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				errStr, ok := got["error"].(string)
				assert.True(t, ok)
				assert.Equal(t, tt.wantError, errStr)
			} else {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				gotSub, ok := data["subscription"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, "sub-1", gotSub["id"])
			}
			serviceMock.AssertExpectations(t)
		})
	}
}
