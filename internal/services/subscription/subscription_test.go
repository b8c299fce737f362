package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/gateway"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateSubscription(ctx context.Context, sub models.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockRepository) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockRepository) FindActiveSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockRepository) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockRepository) MarkSubscriptionsExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ListSubscriptionsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.SubscriptionWithPlan, error) {
	args := m.Called(ctx, userUID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SubscriptionWithPlan), args.Error(1)
}

func (m *MockRepository) ListAllSubscriptions(ctx context.Context, limit, offset int) ([]*models.SubscriptionWithPlan, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SubscriptionWithPlan), args.Error(1)
}

func (m *MockRepository) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeResult), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RefundResult), args.Error(1)
}

func (m *MockGateway) CreateRemoteSubscription(ctx context.Context, req gateway.RemoteSubscriptionRequest) (*gateway.RemoteSubscriptionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RemoteSubscriptionResult), args.Error(1)
}

func (m *MockGateway) CancelRemoteSubscription(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

func (m *MockGateway) VerifyWebhookSignature(payload []byte, signature string) bool {
	args := m.Called(payload, signature)
	return args.Bool(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const planID = "5f3e31fb-9f45-4f6a-a69e-50c9dbf0b0d9"

func monthlyPlan() *models.Plan {
	return &models.Plan{
		ID:           planID,
		Name:         "Pro",
		Price:        9.99,
		Currency:     "USD",
		BillingCycle: models.CycleMonthly,
		TrialDays:    14,
		IsActive:     true,
	}
}

func TestService_Create(t *testing.T) {
	actor := models.Actor{UID: "user-1", Role: models.RoleUser}
	req := models.DummySubscriptionCreate{PlanID: planID, PaymentMethod: "card"}

	tests := []struct {
		name       string
		setupMocks func(*MockRepository, *MockGateway)
		wantErr    error
	}{
		{
			name: "success snapshots plan price and currency",
			setupMocks: func(r *MockRepository, g *MockGateway) {
				r.On("GetPlan", mock.Anything, planID).Return(monthlyPlan(), nil).Once()
				r.On("FindActiveSubscriptionByUser", mock.Anything, "user-1").
					Return(nil, errs.ErrNotFound).Once()
				g.On("CreateRemoteSubscription", mock.Anything, mock.Anything).
					Return(&gateway.RemoteSubscriptionResult{Success: true, SubscriptionID: "sub_gw_1"}, nil).Once()
				r.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
					return s.Status == models.SubscriptionActive &&
						s.Amount == 9.99 && s.Currency == "USD" &&
						s.GatewayID == "sub_gw_1" && s.TrialEnd != nil
				})).Return(nil).Once()
			},
		},
		{
			name: "inactive plan is treated as missing",
			setupMocks: func(r *MockRepository, g *MockGateway) {
				plan := monthlyPlan()
				plan.IsActive = false
				r.On("GetPlan", mock.Anything, planID).Return(plan, nil).Once()
			},
			wantErr: errs.ErrPlanNotFound,
		},
		{
			name: "existing active subscription blocks creation",
			setupMocks: func(r *MockRepository, g *MockGateway) {
				r.On("GetPlan", mock.Anything, planID).Return(monthlyPlan(), nil).Once()
				r.On("FindActiveSubscriptionByUser", mock.Anything, "user-1").
					Return(&models.Subscription{ID: "sub-0", Status: models.SubscriptionActive}, nil).Once()
			},
			wantErr: errs.ErrConflict,
		},
		{
			name: "gateway decline",
			setupMocks: func(r *MockRepository, g *MockGateway) {
				r.On("GetPlan", mock.Anything, planID).Return(monthlyPlan(), nil).Once()
				r.On("FindActiveSubscriptionByUser", mock.Anything, "user-1").
					Return(nil, errs.ErrNotFound).Once()
				g.On("CreateRemoteSubscription", mock.Anything, mock.Anything).
					Return(&gateway.RemoteSubscriptionResult{Success: false, FailureReason: "card declined"}, nil).Once()
			},
			wantErr: errs.ErrGatewayDeclined,
		},
		{
			name: "gateway timeout",
			setupMocks: func(r *MockRepository, g *MockGateway) {
				r.On("GetPlan", mock.Anything, planID).Return(monthlyPlan(), nil).Once()
				r.On("FindActiveSubscriptionByUser", mock.Anything, "user-1").
					Return(nil, errs.ErrNotFound).Once()
				g.On("CreateRemoteSubscription", mock.Anything, mock.Anything).
					Return(nil, errs.ErrGatewayUnavailable).Once()
			},
			wantErr: errs.ErrGatewayUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			gw := new(MockGateway)
			tt.setupMocks(repo, gw)
			svc := New(repo, gw, newNoopLogger())

			sub, err := svc.Create(context.Background(), actor, req)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.SubscriptionActive, sub.Status)
			assert.Equal(t, "user-1", sub.UserUID)
			repo.AssertExpectations(t)
			gw.AssertExpectations(t)
		})
	}
}

func TestService_Cancel(t *testing.T) {
	owner := models.Actor{UID: "user-1", Role: models.RoleUser}

	tests := []struct {
		name       string
		actor      models.Actor
		sub        *models.Subscription
		wantErr    error
		wantRemote bool
	}{
		{
			name:       "owner cancels active subscription",
			actor:      owner,
			sub:        &models.Subscription{ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionActive, GatewayID: "sub_gw_1"},
			wantRemote: true,
		},
		{
			name:    "cancelling a cancelled subscription is rejected",
			actor:   owner,
			sub:     &models.Subscription{ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionCancelled},
			wantErr: errs.ErrInvalidState,
		},
		{
			name:    "cancelling an expired subscription is rejected",
			actor:   owner,
			sub:     &models.Subscription{ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionExpired},
			wantErr: errs.ErrInvalidState,
		},
		{
			name:    "stranger cannot cancel",
			actor:   models.Actor{UID: "user-2", Role: models.RoleUser},
			sub:     &models.Subscription{ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionActive},
			wantErr: errs.ErrForbidden,
		},
		{
			name:       "admin cancels someone else's subscription",
			actor:      models.Actor{UID: "admin-1", Role: models.RoleAdmin},
			sub:        &models.Subscription{ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionActive, GatewayID: "sub_gw_1"},
			wantRemote: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			gw := new(MockGateway)
			repo.On("GetSubscription", mock.Anything, "sub-1").Return(tt.sub, nil).Once()
			if tt.wantErr == nil {
				repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
					return s.Status == models.SubscriptionCancelled && s.CancelledAt != nil
				})).Return(nil).Once()
			}
			if tt.wantRemote {
				gw.On("CancelRemoteSubscription", mock.Anything, "sub_gw_1").Return(nil).Once()
			}
			svc := New(repo, gw, newNoopLogger())

			sub, err := svc.Cancel(context.Background(), tt.actor, "sub-1", "no longer needed")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.SubscriptionCancelled, sub.Status)
			gw.AssertExpectations(t)
		})
	}
}

func TestService_Cancel_RemoteFailureIsNotFatal(t *testing.T) {
	repo := new(MockRepository)
	gw := new(MockGateway)
	repo.On("GetSubscription", mock.Anything, "sub-1").
		Return(&models.Subscription{ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionActive, GatewayID: "sub_gw_1"}, nil).Once()
	repo.On("UpdateSubscription", mock.Anything, mock.Anything).Return(nil).Once()
	gw.On("CancelRemoteSubscription", mock.Anything, "sub_gw_1").
		Return(errors.New("gateway exploded")).Once()

	svc := New(repo, gw, newNoopLogger())
	sub, err := svc.Cancel(context.Background(), models.Actor{UID: "user-1"}, "sub-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, sub.Status)
}

func TestService_Reactivate(t *testing.T) {
	owner := models.Actor{UID: "user-1", Role: models.RoleUser}
	cancelled := func() *models.Subscription {
		at := time.Now()
		return &models.Subscription{
			ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionCancelled,
			CancelledAt: &at, CancellationReason: "changed my mind",
		}
	}

	t.Run("success clears cancellation fields", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		repo.On("GetSubscription", mock.Anything, "sub-1").Return(cancelled(), nil).Once()
		repo.On("FindActiveSubscriptionByUser", mock.Anything, "user-1").Return(nil, errs.ErrNotFound).Once()
		repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
			return s.Status == models.SubscriptionActive && s.CancelledAt == nil && s.CancellationReason == ""
		})).Return(nil).Once()

		svc := New(repo, gw, newNoopLogger())
		sub, err := svc.Reactivate(context.Background(), owner, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionActive, sub.Status)
		repo.AssertExpectations(t)
	})

	t.Run("another active subscription blocks reactivation", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		repo.On("GetSubscription", mock.Anything, "sub-1").Return(cancelled(), nil).Once()
		repo.On("FindActiveSubscriptionByUser", mock.Anything, "user-1").
			Return(&models.Subscription{ID: "sub-2", Status: models.SubscriptionActive}, nil).Once()

		svc := New(repo, gw, newNoopLogger())
		_, err := svc.Reactivate(context.Background(), owner, "sub-1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrConflict))
	})

	t.Run("active subscription cannot be reactivated", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		repo.On("GetSubscription", mock.Anything, "sub-1").
			Return(&models.Subscription{ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionActive}, nil).Once()

		svc := New(repo, gw, newNoopLogger())
		_, err := svc.Reactivate(context.Background(), owner, "sub-1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrInvalidState))
	})
}

func TestService_SuspendResume(t *testing.T) {
	admin := models.Actor{UID: "admin-1", Role: models.RoleAdmin}
	user := models.Actor{UID: "user-1", Role: models.RoleUser}

	t.Run("suspend requires admin", func(t *testing.T) {
		repo := new(MockRepository)
		svc := New(repo, new(MockGateway), newNoopLogger())
		_, err := svc.Suspend(context.Background(), user, "sub-1")
		assert.True(t, errors.Is(err, errs.ErrForbidden))
	})

	t.Run("suspend active then resume", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetSubscription", mock.Anything, "sub-1").
			Return(&models.Subscription{ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionActive}, nil).Once()
		repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
			return s.Status == models.SubscriptionSuspended
		})).Return(nil).Once()

		svc := New(repo, new(MockGateway), newNoopLogger())
		sub, err := svc.Suspend(context.Background(), admin, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionSuspended, sub.Status)

		repo.On("GetSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
		repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
			return s.Status == models.SubscriptionActive
		})).Return(nil).Once()

		resumed, err := svc.Resume(context.Background(), admin, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionActive, resumed.Status)
	})

	t.Run("resume of active subscription is rejected", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetSubscription", mock.Anything, "sub-1").
			Return(&models.Subscription{ID: "sub-1", Status: models.SubscriptionActive}, nil).Once()

		svc := New(repo, new(MockGateway), newNoopLogger())
		_, err := svc.Resume(context.Background(), admin, "sub-1")
		assert.True(t, errors.Is(err, errs.ErrInvalidState))
	})
}

func TestService_List(t *testing.T) {
	repo := new(MockRepository)
	admin := models.Actor{UID: "admin-1", Role: models.RoleAdmin}
	user := models.Actor{UID: "user-1", Role: models.RoleUser}

	repo.On("ListAllSubscriptions", mock.Anything, 10, 0).
		Return([]*models.SubscriptionWithPlan{{}, {}}, nil).Once()
	repo.On("ListSubscriptionsByUser", mock.Anything, "user-1", 10, 0).
		Return([]*models.SubscriptionWithPlan{{}}, nil).Once()

	svc := New(repo, new(MockGateway), newNoopLogger())

	all, err := svc.List(context.Background(), admin, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.List(context.Background(), user, 10, 0)
	require.NoError(t, err)
	assert.Len(t, own, 1)
	repo.AssertExpectations(t)
}

func TestService_MarkExpired(t *testing.T) {
	repo := new(MockRepository)
	now := time.Now().UTC()
	repo.On("MarkSubscriptionsExpired", mock.Anything, now).Return(int64(3), nil).Once()

	svc := New(repo, new(MockGateway), newNoopLogger())
	n, err := svc.MarkExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
