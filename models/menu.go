package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryMainCourse Category = "Main Course"
	CategoryCurry      Category = "Curry"
	CategoryBread      Category = "Bread"
	CategorySnacks     Category = "Snacks"
	CategoryBeverages  Category = "Beverages"
	CategoryDesserts   Category = "Desserts"
)

// Categories is the fixed menu category set in display order.
var Categories = []Category{
	CategoryMainCourse,
	CategoryCurry,
	CategoryBread,
	CategorySnacks,
	CategoryBeverages,
	CategoryDesserts,
}

func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type MenuItem struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Category    Category        `db:"category" json:"category"`
	Available   bool            `db:"is_available" json:"available"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// MenuFilter narrows a menu listing. Zero values mean "no filter".
type MenuFilter struct {
	Category      Category
	Query         string
	AvailableOnly bool
}
