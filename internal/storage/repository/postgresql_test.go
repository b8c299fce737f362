package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/migrations"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// setupTestStorage поднимает контейнер PostgreSQL, применяет миграции
// и возвращает готовое хранилище с функцией очистки.
func setupTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(3*time.Minute)),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	require.NoError(t, migrations.Run(storage.DB, "../../../migrations"), "failed to run migrations")

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		_ = container.Terminate(ctx)
	}
	return storage, cleanup
}

func createTestUser(t *testing.T, s *Storage) string {
	t.Helper()
	uid := uuid.NewString()
	require.NoError(t, s.RegisterUser(context.Background(), models.User{
		UID:          uid,
		Email:        uid + "@example.com",
		PasswordHash: "hashedpassword",
		FirstName:    "Test",
		LastName:     "User",
		Role:         models.RoleUser,
		IsActive:     true,
	}))
	return uid
}

func createTestPlan(t *testing.T, s *Storage) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, s.CreatePlan(context.Background(), models.Plan{
		ID:           id,
		Name:         "Pro",
		Description:  "Pro plan",
		Price:        9.99,
		Currency:     "USD",
		BillingCycle: models.CycleMonthly,
		MaxSeats:     1,
		Features:     []models.Feature{{Name: "api_access", Description: "Full API access"}},
		TrialDays:    14,
		IsActive:     true,
	}))
	return id
}

func createTestSubscription(t *testing.T, s *Storage, userUID, planID, status string) models.Subscription {
	t.Helper()
	now := time.Now().UTC()
	sub := models.Subscription{
		ID:              uuid.NewString(),
		UserUID:         userUID,
		PlanID:          planID,
		Status:          status,
		StartDate:       now,
		EndDate:         now.AddDate(0, 1, 0),
		NextBillingDate: now.AddDate(0, 1, 0),
		Amount:          9.99,
		Currency:        "USD",
		PaymentMethod:   "card",
		GatewayID:       "sub_" + uuid.NewString(),
	}
	require.NoError(t, s.CreateSubscription(context.Background(), sub))
	return sub
}

func TestStorage_Users(t *testing.T) {
	storage, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	uid := createTestUser(t, storage)

	user, err := storage.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, uid, user.UID)
	assert.True(t, user.IsActive)

	byEmail, err := storage.GetUserByEmail(ctx, uid+"@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, byEmail.UID)

	_, err = storage.GetUserByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	require.NoError(t, storage.UpdateUserProfile(ctx, uid, "New", "Name"))
	user, err = storage.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "New", user.FirstName)

	err = storage.UpdateUserPassword(ctx, uuid.NewString(), "otherhash")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestStorage_Plans(t *testing.T) {
	storage, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	planID := createTestPlan(t, storage)

	plan, err := storage.GetPlan(ctx, planID)
	require.NoError(t, err)
	assert.Equal(t, "Pro", plan.Name)
	require.Len(t, plan.Features, 1)
	assert.Equal(t, "api_access", plan.Features[0].Name)

	require.NoError(t, storage.DeactivatePlan(ctx, planID))

	activeOnly, err := storage.ListPlans(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, activeOnly)

	all, err := storage.ListPlans(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStorage_SubscriptionLifecycle(t *testing.T) {
	storage, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	userUID := createTestUser(t, storage)
	planID := createTestPlan(t, storage)
	sub := createTestSubscription(t, storage, userUID, planID, models.SubscriptionActive)

	found, err := storage.FindActiveSubscriptionByUser(ctx, userUID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, found.ID)

	// Вторая активная подписка того же пользователя нарушает частичный
	// уникальный индекс.
	second := sub
	second.ID = uuid.NewString()
	second.GatewayID = "sub_" + uuid.NewString()
	err = storage.CreateSubscription(ctx, second)
	require.Error(t, err)

	now := time.Now().UTC()
	sub.Status = models.SubscriptionCancelled
	sub.CancelledAt = &now
	sub.CancellationReason = "user requested cancellation"
	require.NoError(t, storage.UpdateSubscription(ctx, sub))

	_, err = storage.FindActiveSubscriptionByUser(ctx, userUID)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	got, err := storage.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
	assert.Equal(t, "user requested cancellation", got.CancellationReason)

	list, err := storage.ListSubscriptionsByUser(ctx, userUID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Plan)
	assert.Equal(t, planID, list[0].Plan.ID)
}

func TestStorage_CancelSubscriptionByGatewayID(t *testing.T) {
	storage, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	userUID := createTestUser(t, storage)
	planID := createTestPlan(t, storage)
	sub := createTestSubscription(t, storage, userUID, planID, models.SubscriptionActive)

	now := time.Now().UTC()
	require.NoError(t, storage.CancelSubscriptionByGatewayID(ctx, sub.GatewayID, "cancelled by gateway", now))

	got, err := storage.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, got.Status)

	// Повторная отмена и неизвестный идентификатор — errs.ErrNotFound.
	err = storage.CancelSubscriptionByGatewayID(ctx, sub.GatewayID, "cancelled by gateway", now)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	err = storage.CancelSubscriptionByGatewayID(ctx, "sub_unknown", "cancelled by gateway", now)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestStorage_MarkSubscriptionsExpired(t *testing.T) {
	storage, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	userUID := createTestUser(t, storage)
	planID := createTestPlan(t, storage)
	sub := createTestSubscription(t, storage, userUID, planID, models.SubscriptionActive)

	// Срок подписки еще не истек: ничего не обновляется.
	n, err := storage.MarkSubscriptionsExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = storage.MarkSubscriptionsExpired(ctx, time.Now().UTC().AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := storage.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionExpired, got.Status)
}

func TestStorage_PaymentTransitions(t *testing.T) {
	storage, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	userUID := createTestUser(t, storage)
	planID := createTestPlan(t, storage)
	sub := createTestSubscription(t, storage, userUID, planID, models.SubscriptionActive)

	newPendingPayment := func() models.Payment {
		p := models.Payment{
			ID:             uuid.NewString(),
			UserUID:        userUID,
			SubscriptionID: sub.ID,
			Amount:         9.99,
			Currency:       "USD",
			Status:         models.PaymentPending,
			PaymentMethod:  "card",
		}
		require.NoError(t, storage.CreatePayment(ctx, p))
		return p
	}

	t.Run("pending to completed is one-way", func(t *testing.T) {
		p := newPendingPayment()
		now := time.Now().UTC()
		require.NoError(t, storage.MarkPaymentCompleted(ctx, p.ID, "txn_1", now))

		got, err := storage.GetPayment(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentCompleted, got.Status)
		assert.Equal(t, "txn_1", got.GatewayTransactionID)
		require.NotNil(t, got.ProcessedAt)

		err = storage.MarkPaymentCompleted(ctx, p.ID, "txn_1", now)
		assert.True(t, errors.Is(err, errs.ErrInvalidState))
		err = storage.MarkPaymentFailed(ctx, p.ID, "txn_1", "late decline")
		assert.True(t, errors.Is(err, errs.ErrInvalidState))
	})

	t.Run("completed to refunded only once", func(t *testing.T) {
		p := newPendingPayment()
		now := time.Now().UTC()
		require.NoError(t, storage.MarkPaymentCompleted(ctx, p.ID, "txn_2", now))
		require.NoError(t, storage.MarkPaymentRefunded(ctx, p.ID, 5.00, now))

		got, err := storage.GetPayment(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentRefunded, got.Status)
		assert.Equal(t, 5.00, got.RefundAmount)

		err = storage.MarkPaymentRefunded(ctx, p.ID, 5.00, now)
		assert.True(t, errors.Is(err, errs.ErrInvalidState))
	})

	t.Run("pending cannot be refunded", func(t *testing.T) {
		p := newPendingPayment()
		err := storage.MarkPaymentRefunded(ctx, p.ID, 5.00, time.Now().UTC())
		assert.True(t, errors.Is(err, errs.ErrInvalidState))
	})

	t.Run("failed payment records the reason", func(t *testing.T) {
		p := newPendingPayment()
		require.NoError(t, storage.MarkPaymentFailed(ctx, p.ID, "txn_3", "insufficient funds"))

		got, err := storage.GetPayment(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentFailed, got.Status)
		assert.Equal(t, "insufficient funds", got.FailureReason)
	})
}

func TestStorage_ResolvePaymentByGatewayTxn(t *testing.T) {
	storage, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	userUID := createTestUser(t, storage)
	planID := createTestPlan(t, storage)
	sub := createTestSubscription(t, storage, userUID, planID, models.SubscriptionActive)

	p := models.Payment{
		ID:             uuid.NewString(),
		UserUID:        userUID,
		SubscriptionID: sub.ID,
		Amount:         9.99,
		Currency:       "USD",
		Status:         models.PaymentPending,
		PaymentMethod:  "card",
	}
	require.NoError(t, storage.CreatePayment(ctx, p))

	// Подвешенный платеж, у которого известен идентификатор транзакции шлюза.
	_, err := storage.DB.ExecContext(ctx,
		`UPDATE payments SET gateway_transaction_id = $1 WHERE id = $2`, "txn_hook", p.ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, storage.ResolvePaymentByGatewayTxn(ctx, "txn_hook", models.PaymentCompleted, "", now))

	got, err := storage.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, got.Status)

	// Уже разрешенный или неизвестный идентификатор — errs.ErrNotFound.
	err = storage.ResolvePaymentByGatewayTxn(ctx, "txn_hook", models.PaymentCompleted, "", now)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	err = storage.ResolvePaymentByGatewayTxn(ctx, "txn_unknown", models.PaymentFailed, "card expired", now)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestStorage_ListPayments(t *testing.T) {
	storage, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	userUID := createTestUser(t, storage)
	otherUID := createTestUser(t, storage)
	planID := createTestPlan(t, storage)
	sub := createTestSubscription(t, storage, userUID, planID, models.SubscriptionActive)
	otherSub := createTestSubscription(t, storage, otherUID, planID, models.SubscriptionActive)

	for _, owner := range []struct {
		userUID string
		subID   string
	}{{userUID, sub.ID}, {userUID, sub.ID}, {otherUID, otherSub.ID}} {
		require.NoError(t, storage.CreatePayment(ctx, models.Payment{
			ID:             uuid.NewString(),
			UserUID:        owner.userUID,
			SubscriptionID: owner.subID,
			Amount:         9.99,
			Currency:       "USD",
			Status:         models.PaymentPending,
			PaymentMethod:  "card",
		}))
	}

	own, err := storage.ListPaymentsByUser(ctx, userUID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, own, 2)
	require.NotNil(t, own[0].Subscription)
	assert.Equal(t, sub.ID, own[0].Subscription.ID)

	all, err := storage.ListAllPayments(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := storage.ListAllPayments(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestStorage_CheckDatabaseReady(t *testing.T) {
	storage, cleanup := setupTestStorage(t)
	defer cleanup()

	assert.NoError(t, storage.CheckDatabaseReady(context.Background()))
}
