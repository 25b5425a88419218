package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusReady     OrderStatus = "READY"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusCompleted,
	StatusCancelled,
}

// ParseStatus accepts any casing, e.g. "ready" or "READY".
func ParseStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range OrderStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

const MaxInstructionsLength = 500

type Order struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	UserID       uuid.UUID       `db:"user_id" json:"user_id"`
	Lines        []OrderLine     `db:"-" json:"lines"`
	Total        decimal.Decimal `db:"total" json:"total"`
	Instructions string          `db:"instructions" json:"instructions,omitempty"`
	Status       OrderStatus     `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderLine is a copy of a cart line taken at checkout, priced at that moment.
type OrderLine struct {
	MenuItemID uuid.UUID       `db:"menu_item_id" json:"menu_item_id"`
	Name       string          `db:"name" json:"name"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
}

func (l OrderLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalOrders   int             `json:"total_orders"`
	PendingOrders int             `json:"pending_orders"`
	TodayOrders   int             `json:"today_orders"`
	TodayRevenue  decimal.Decimal `json:"today_revenue"`
	MenuItems     int             `json:"menu_items"`
	Users         int             `json:"users"`
}

// OrderFilter narrows order queries. Zero values mean "no filter"; From is
// inclusive and To exclusive.
type OrderFilter struct {
	UserID uuid.UUID
	Status OrderStatus
	From   time.Time
	To     time.Time
}
