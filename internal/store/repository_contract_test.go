package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestOrder(userID int64, status domain.OrderStatus) *domain.Order {
	return &domain.Order{
		UserID:          userID,
		Status:          status,
		Total:           domain.MustPrice("25.64"),
		DeliveryMethod:  domain.DeliveryMethodDelivery,
		DeliveryAddress: strPtr("1 Main St"),
		PaymentMethod:   domain.PaymentMethodCash,
		Items: []domain.OrderLine{
			{MenuItemID: 1, Quantity: 2, Price: domain.MustPrice("10.00")},
			{MenuItemID: 3, Quantity: 1, Price: domain.MustPrice("0.99")},
		},
	}
}

func newTestReservation(userID int64) *domain.Reservation {
	return &domain.Reservation{
		UserID:    userID,
		Date:      time.Date(2026, 11, 2, 19, 30, 0, 0, time.UTC),
		PartySize: 4,
		FullName:  "Sam Doe",
		Email:     "sam@example.com",
		Phone:     "555-0100",
	}
}

// testOrderRepository is shared by every OrderRepository implementation.
func testOrderRepository(t *testing.T, newRepo func(t *testing.T) OrderRepository) {
	t.Run("create assigns ids and keeps lines", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.CreateOrder(ctx, newTestOrder(7, domain.OrderStatusPending))
		require.NoError(t, err)
		assert.Positive(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())
		require.Len(t, created.Items, 2)
		for _, l := range created.Items {
			assert.Positive(t, l.ID)
			assert.Equal(t, created.ID, l.OrderID)
		}

		got, err := repo.GetOrder(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.UserID)
		assert.Equal(t, domain.OrderStatusPending, got.Status)
		assert.Equal(t, "25.64", got.Total.StringFixed(2))
		assert.Equal(t, "1 Main St", *got.DeliveryAddress)
		assert.Nil(t, got.PaymentID)
		require.Len(t, got.Items, 2)
		assert.Equal(t, "10.00", got.Items[0].Price.StringFixed(2))
		assert.Equal(t, 2, got.Items[0].Quantity)
		assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("get missing order", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetOrder(context.Background(), 404)
		assert.ErrorIs(t, err, ErrOrderNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ids increase", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var last int64
		for i := 0; i < 5; i++ {
			o, err := repo.CreateOrder(ctx, newTestOrder(1, domain.OrderStatusPending))
			require.NoError(t, err)
			assert.Greater(t, o.ID, last)
			last = o.ID
		}
	})

	t.Run("list filters", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, tc := range []struct {
			user   int64
			status domain.OrderStatus
		}{
			{1, domain.OrderStatusPending},
			{1, domain.OrderStatusCompleted},
			{2, domain.OrderStatusProcessing},
			{2, domain.OrderStatusCancelled},
			{3, domain.OrderStatusOutForDelivery},
		} {
			_, err := repo.CreateOrder(ctx, newTestOrder(tc.user, tc.status))
			require.NoError(t, err)
		}

		all, err := repo.ListOrders(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 5)

		mine, err := repo.ListOrdersByUser(ctx, 2)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		for _, o := range mine {
			assert.Equal(t, int64(2), o.UserID)
			assert.Len(t, o.Items, 2)
		}

		active, err := repo.ListActiveOrders(ctx)
		require.NoError(t, err)
		require.Len(t, active, 3)
		for _, o := range active {
			assert.True(t, o.Active())
		}

		none, err := repo.ListOrdersByUser(ctx, 99)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("update changes status and payment only", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.CreateOrder(ctx, newTestOrder(1, domain.OrderStatusPending))
		require.NoError(t, err)

		updated, err := repo.UpdateOrder(ctx, created.ID, func(o *domain.Order) error {
			o.Status = domain.OrderStatusProcessing
			o.PaymentCompleted = true
			o.PaymentID = strPtr("PAY-1")
			o.Total = domain.MustPrice("1.00")
			o.UserID = 99
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusProcessing, updated.Status)
		assert.True(t, updated.PaymentCompleted)
		assert.Equal(t, "25.64", updated.Total.StringFixed(2))
		assert.Equal(t, int64(1), updated.UserID)

		got, err := repo.GetOrder(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusProcessing, got.Status)
		assert.Equal(t, "PAY-1", *got.PaymentID)
		assert.Equal(t, "25.64", got.Total.StringFixed(2))
		assert.Len(t, got.Items, 2)
	})

	t.Run("update aborted by callback", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.CreateOrder(ctx, newTestOrder(1, domain.OrderStatusPending))
		require.NoError(t, err)

		boom := errors.New("boom")
		_, err = repo.UpdateOrder(ctx, created.ID, func(o *domain.Order) error {
			o.Status = domain.OrderStatusCancelled
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := repo.GetOrder(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusPending, got.Status)
	})

	t.Run("update missing order", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.UpdateOrder(context.Background(), 404, func(*domain.Order) error { return nil })
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("concurrent creates get distinct ids", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const n = 20
		ids := make(chan int64, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(user int64) {
				defer wg.Done()
				o, err := repo.CreateOrder(ctx, newTestOrder(user, domain.OrderStatusPending))
				if assert.NoError(t, err) {
					ids <- o.ID
				}
			}(int64(i + 1))
		}
		wg.Wait()
		close(ids)

		seen := make(map[int64]bool)
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		assert.Len(t, seen, n)
	})
}

func testReservationRepository(t *testing.T, newRepo func(t *testing.T) ReservationRepository) {
	t.Run("create defaults to pending", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		r := newTestReservation(5)
		r.SpecialRequests = strPtr("window seat")
		created, err := repo.CreateReservation(ctx, r)
		require.NoError(t, err)
		assert.Positive(t, created.ID)
		assert.Equal(t, domain.ReservationStatusPending, created.Status)

		got, err := repo.GetReservation(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Sam Doe", got.FullName)
		assert.Equal(t, 4, got.PartySize)
		assert.Equal(t, "window seat", *got.SpecialRequests)
		assert.True(t, r.Date.Equal(got.Date))
	})

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetReservation(context.Background(), 12)
		assert.ErrorIs(t, err, ErrReservationNotFound)
	})

	t.Run("list and active", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i, status := range []domain.ReservationStatus{
			domain.ReservationStatusPending,
			domain.ReservationStatusConfirmed,
			domain.ReservationStatusCancelled,
			domain.ReservationStatusCompleted,
		} {
			r := newTestReservation(int64(i%2 + 1))
			r.Status = status
			_, err := repo.CreateReservation(ctx, r)
			require.NoError(t, err)
		}

		all, err := repo.ListReservations(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		mine, err := repo.ListReservationsByUser(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		active, err := repo.ListActiveReservations(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 2)
	})

	t.Run("update", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.CreateReservation(ctx, newTestReservation(5))
		require.NoError(t, err)

		newDate := time.Date(2026, 12, 24, 18, 0, 0, 0, time.UTC)
		updated, err := repo.UpdateReservation(ctx, created.ID, func(r *domain.Reservation) error {
			r.Status = domain.ReservationStatusConfirmed
			r.PartySize = 6
			r.Date = newDate
			r.UserID = 42
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), updated.UserID)

		got, err := repo.GetReservation(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusConfirmed, got.Status)
		assert.Equal(t, 6, got.PartySize)
		assert.True(t, newDate.Equal(got.Date))
		assert.Equal(t, int64(5), got.UserID)
	})
}
