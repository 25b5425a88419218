package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/canteen/authz"
	"github.com/ray-remotestate/canteen/cart"
	"github.com/ray-remotestate/canteen/storage"
)

type CartView struct {
	Lines     []cart.PricedLine `json:"lines"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"item_count"`
}

// CartService serialises cart access per user. The lock is process local, so
// running several replicas against one store can still interleave writes.
type CartService struct {
	store   storage.Store
	catalog MenuRepo
	locks   *userLocks
	log     logrus.FieldLogger
}

func NewCartService(store storage.Store, catalog MenuRepo, log logrus.FieldLogger) *CartService {
	return &CartService{
		store:   store,
		catalog: catalog,
		locks:   newUserLocks(),
		log:     log,
	}
}

// withCart runs fn on the caller's restored cart while holding the user lock.
func (s *CartService) withCart(ctx context.Context, p authz.Principal, fn func(c *cart.Cart) error) error {
	if err := authz.Check(p, authz.Authenticated, uuid.Nil); err != nil {
		return err
	}
	unlock := s.locks.lock(p.UserID)
	defer unlock()

	c, err := cart.Restore(ctx, cart.Key(p.UserID), s.store, s.catalog)
	if err != nil {
		return fmt.Errorf("restore cart: %w", err)
	}
	return fn(c)
}

func (s *CartService) View(ctx context.Context, p authz.Principal) (CartView, error) {
	var view CartView
	err := s.withCart(ctx, p, func(c *cart.Cart) error {
		var err error
		view, err = s.view(ctx, c)
		return err
	})
	return view, err
}

func (s *CartService) Add(ctx context.Context, p authz.Principal, itemID uuid.UUID, quantity int) (CartView, error) {
	return s.mutate(ctx, p, func(c *cart.Cart) error {
		item, err := s.catalog.Lookup(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.Available {
			return fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
		}
		return c.AddItem(ctx, item, quantity)
	})
}

func (s *CartService) Update(ctx context.Context, p authz.Principal, itemID uuid.UUID, quantity int) (CartView, error) {
	return s.mutate(ctx, p, func(c *cart.Cart) error {
		return c.UpdateQuantity(ctx, itemID, quantity)
	})
}

func (s *CartService) Remove(ctx context.Context, p authz.Principal, itemID uuid.UUID) (CartView, error) {
	return s.mutate(ctx, p, func(c *cart.Cart) error {
		return c.RemoveItem(ctx, itemID)
	})
}

func (s *CartService) Clear(ctx context.Context, p authz.Principal) error {
	return s.withCart(ctx, p, func(c *cart.Cart) error {
		return c.Clear(ctx)
	})
}

func (s *CartService) mutate(ctx context.Context, p authz.Principal, fn func(c *cart.Cart) error) (CartView, error) {
	var view CartView
	err := s.withCart(ctx, p, func(c *cart.Cart) error {
		if err := fn(c); err != nil {
			return err
		}
		var err error
		view, err = s.view(ctx, c)
		return err
	})
	return view, err
}

// view prices the cart, first dropping lines whose item was deleted from the
// menu since it was added.
func (s *CartService) view(ctx context.Context, c *cart.Cart) (CartView, error) {
	for _, l := range c.Lines() {
		_, err := s.catalog.Lookup(ctx, l.ItemID)
		if errors.Is(err, cart.ErrItemNotFound) {
			s.log.WithField("item_id", l.ItemID).Info("dropping deleted item from cart")
			if err := c.RemoveItem(ctx, l.ItemID); err != nil {
				return CartView{}, err
			}
			continue
		}
		if err != nil {
			return CartView{}, err
		}
	}

	lines, total, err := c.Priced(ctx)
	if err != nil {
		return CartView{}, err
	}
	return CartView{Lines: lines, Total: total, ItemCount: c.ItemCount()}, nil
}

// Discard drops a user's stored cart without an authorization check. It is
// for callers that already decided the user is gone.
func (s *CartService) Discard(ctx context.Context, userID uuid.UUID) error {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.store.Remove(ctx, cart.Key(userID))
}
