// Package store defines the repositories the services persist through, with an
// in-memory implementation for everything and a SQL implementation for orders
// and reservations.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_restaurant/internal/domain"
)

var (
	ErrUserNotFound        = fmt.Errorf("user: %w", domain.ErrNotFound)
	ErrCategoryNotFound    = fmt.Errorf("category: %w", domain.ErrNotFound)
	ErrMenuItemNotFound    = fmt.Errorf("menu item: %w", domain.ErrNotFound)
	ErrOrderNotFound       = fmt.Errorf("order: %w", domain.ErrNotFound)
	ErrReservationNotFound = fmt.Errorf("reservation: %w", domain.ErrNotFound)
	ErrLocationNotFound    = fmt.Errorf("location: %w", domain.ErrNotFound)

	ErrUsernameTaken  = errors.New("username already exists")
	ErrEmailTaken     = errors.New("email already exists")
	ErrCategoryExists = errors.New("category already exists")
)

type UserRepository interface {
	// CreateUser assigns the id. Fails with ErrUsernameTaken or ErrEmailTaken.
	CreateUser(ctx context.Context, u *domain.User) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

type MenuRepository interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	CreateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListMenuItems(ctx context.Context) ([]*domain.MenuItem, error)
	ListMenuItemsByCategory(ctx context.Context, categoryID int64) ([]*domain.MenuItem, error)
	GetMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error)
	CreateMenuItem(ctx context.Context, m *domain.MenuItem) (*domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, m *domain.MenuItem) (*domain.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id int64) error
}

// UpdateFunc mutates a loaded entity in place. Returning an error aborts the update.
type UpdateFunc[T any] func(*T) error

type OrderRepository interface {
	// CreateOrder persists the order and its lines atomically and assigns all ids.
	CreateOrder(ctx context.Context, o *domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
	// ListActiveOrders returns orders whose status is neither completed nor cancelled.
	ListActiveOrders(ctx context.Context) ([]*domain.Order, error)
	// UpdateOrder runs fn against the current order under a per-order lock and saves the result.
	UpdateOrder(ctx context.Context, id int64, fn UpdateFunc[domain.Order]) (*domain.Order, error)
}

type ReservationRepository interface {
	CreateReservation(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error)
	GetReservation(ctx context.Context, id int64) (*domain.Reservation, error)
	ListReservations(ctx context.Context) ([]*domain.Reservation, error)
	ListReservationsByUser(ctx context.Context, userID int64) ([]*domain.Reservation, error)
	ListActiveReservations(ctx context.Context) ([]*domain.Reservation, error)
	UpdateReservation(ctx context.Context, id int64, fn UpdateFunc[domain.Reservation]) (*domain.Reservation, error)
}

type SettingsRepository interface {
	GetSettings(ctx context.Context) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, fn UpdateFunc[domain.Settings]) (*domain.Settings, error)
}

type LocationRepository interface {
	ListLocations(ctx context.Context) ([]*domain.Location, error)
	GetLocation(ctx context.Context, id int64) (*domain.Location, error)
	CreateLocation(ctx context.Context, l *domain.Location) (*domain.Location, error)
	UpdateLocation(ctx context.Context, l *domain.Location) (*domain.Location, error)
	DeleteLocation(ctx context.Context, id int64) error
}
