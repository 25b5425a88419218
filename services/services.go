// Package services holds the canteen use cases. Every exported method takes
// the calling principal and checks it through authz before touching data.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ray-remotestate/canteen/cart"
	"github.com/ray-remotestate/canteen/models"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrItemUnavailable    = errors.New("menu item is unavailable")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrOrderNotFound    = models.ErrOrderNotFound
	ErrMenuItemNotFound = models.ErrMenuItemNotFound
	ErrUserNotFound     = models.ErrUserNotFound
)

type UserRepo interface {
	Create(ctx context.Context, name, email, phone, hashedPassword string, roles ...models.Role) (models.User, error)
	IsUserExists(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Archive(ctx context.Context, id uuid.UUID) error
	CountByRole(ctx context.Context, role models.Role) (int, error)
}

type MenuRepo interface {
	cart.Catalog
	List(ctx context.Context, f models.MenuFilter) ([]models.MenuItem, error)
	Create(ctx context.Context, m models.MenuItem) (models.MenuItem, error)
	Update(ctx context.Context, m models.MenuItem) (models.MenuItem, error)
	ToggleAvailability(ctx context.Context, id uuid.UUID) (models.MenuItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type OrderRepo interface {
	Create(ctx context.Context, order models.Order) (models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (models.Order, error)
	List(ctx context.Context, f models.OrderFilter) ([]models.Order, error)
	Count(ctx context.Context, f models.OrderFilter) (int, error)
	Revenue(ctx context.Context, f models.OrderFilter) (decimal.Decimal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, at time.Time) error
}

// invalid wraps ErrInvalidInput with a message safe to show to the caller.
func invalid(msg string) error {
	return &inputError{msg: msg}
}

type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

func (e *inputError) Unwrap() error { return ErrInvalidInput }

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
