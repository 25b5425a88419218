package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ray-remotestate/canteen/authz"
	"github.com/ray-remotestate/canteen/models"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
)

// MenuItemInput is what an admin submits to create or replace an item.
// A nil Available means true on create and "unchanged" on update.
type MenuItemInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    models.Category `json:"category"`
	Available   *bool           `json:"available"`
}

func (in MenuItemInput) validate() error {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return invalid("name is required")
	case utf8.RuneCountInString(name) > maxNameLength:
		return invalid("name is too long")
	case utf8.RuneCountInString(in.Description) > maxDescriptionLength:
		return invalid("description is too long")
	case in.Price.IsNegative():
		return invalid("price must not be negative")
	case !in.Price.Equal(in.Price.Round(2)):
		return invalid("price must have at most two decimal places")
	case !in.Category.IsValid():
		return invalid("unknown category")
	}
	return nil
}

type MenuService struct {
	menu MenuRepo
}

func NewMenuService(menu MenuRepo) *MenuService {
	return &MenuService{menu: menu}
}

func (s *MenuService) List(ctx context.Context, p authz.Principal, f models.MenuFilter) ([]models.MenuItem, error) {
	if err := authz.Check(p, authz.Authenticated, uuid.Nil); err != nil {
		return nil, err
	}
	if f.Category != "" && !f.Category.IsValid() {
		return nil, invalid("unknown category")
	}
	return s.menu.List(ctx, f)
}

func (s *MenuService) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (models.MenuItem, error) {
	if err := authz.Check(p, authz.Authenticated, uuid.Nil); err != nil {
		return models.MenuItem{}, err
	}
	return s.menu.Lookup(ctx, id)
}

func (s *MenuService) Categories() []models.Category {
	out := make([]models.Category, len(models.Categories))
	copy(out, models.Categories)
	return out
}

func (s *MenuService) Create(ctx context.Context, p authz.Principal, in MenuItemInput) (models.MenuItem, error) {
	if err := authz.Check(p, authz.Admin, uuid.Nil); err != nil {
		return models.MenuItem{}, err
	}
	if err := in.validate(); err != nil {
		return models.MenuItem{}, err
	}

	available := true
	if in.Available != nil {
		available = *in.Available
	}
	return s.menu.Create(ctx, models.MenuItem{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Category:    in.Category,
		Available:   available,
	})
}

func (s *MenuService) Update(ctx context.Context, p authz.Principal, id uuid.UUID, in MenuItemInput) (models.MenuItem, error) {
	if err := authz.Check(p, authz.Admin, uuid.Nil); err != nil {
		return models.MenuItem{}, err
	}
	if err := in.validate(); err != nil {
		return models.MenuItem{}, err
	}

	current, err := s.menu.Lookup(ctx, id)
	if err != nil {
		return models.MenuItem{}, err
	}
	current.Name = strings.TrimSpace(in.Name)
	current.Description = strings.TrimSpace(in.Description)
	current.Price = in.Price
	current.Category = in.Category
	if in.Available != nil {
		current.Available = *in.Available
	}
	return s.menu.Update(ctx, current)
}

func (s *MenuService) Delete(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := authz.Check(p, authz.Admin, uuid.Nil); err != nil {
		return err
	}
	return s.menu.Delete(ctx, id)
}

func (s *MenuService) ToggleAvailability(ctx context.Context, p authz.Principal, id uuid.UUID) (models.MenuItem, error) {
	if err := authz.Check(p, authz.Admin, uuid.Nil); err != nil {
		return models.MenuItem{}, err
	}
	return s.menu.ToggleAvailability(ctx, id)
}
