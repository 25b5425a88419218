package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ray-remotestate/canteen/authz"
	"github.com/ray-remotestate/canteen/cart"
	"github.com/ray-remotestate/canteen/models"
	"github.com/ray-remotestate/canteen/notify"
	"github.com/ray-remotestate/canteen/workflow"
)

type OrderService struct {
	orders   OrderRepo
	menu     MenuRepo
	users    UserRepo
	carts    *CartService
	notifier notify.Notifier
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewOrderService(orders OrderRepo, menu MenuRepo, users UserRepo, carts *CartService, notifier notify.Notifier, log logrus.FieldLogger) *OrderService {
	return &OrderService{
		orders:   orders,
		menu:     menu,
		users:    users,
		carts:    carts,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// PlaceOrder turns the caller's cart into a PENDING order priced at the
// current menu prices, then empties the cart. The caller must still exist;
// an archived account is rejected even while its access token is valid.
func (s *OrderService) PlaceOrder(ctx context.Context, p authz.Principal, instructions string) (models.Order, error) {
	if err := authz.Check(p, authz.Authenticated, uuid.Nil); err != nil {
		return models.Order{}, err
	}
	if _, err := s.users.GetByID(ctx, p.UserID); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return models.Order{}, authz.ErrUnauthenticated
		}
		return models.Order{}, fmt.Errorf("load user: %w", err)
	}

	instructions = strings.TrimSpace(instructions)
	if utf8.RuneCountInString(instructions) > models.MaxInstructionsLength {
		return models.Order{}, invalid(fmt.Sprintf("instructions must be at most %d characters", models.MaxInstructionsLength))
	}

	var placed models.Order
	err := s.carts.withCart(ctx, p, func(c *cart.Cart) error {
		if c.IsEmpty() {
			return ErrEmptyCart
		}

		order := models.Order{
			UserID:       p.UserID,
			Instructions: instructions,
			Status:       models.StatusPending,
		}
		for _, l := range c.Lines() {
			item, err := s.menu.Lookup(ctx, l.ItemID)
			if errors.Is(err, cart.ErrItemNotFound) {
				return fmt.Errorf("%w: item %s is no longer on the menu", ErrItemUnavailable, l.ItemID)
			}
			if err != nil {
				return err
			}
			if !item.Available {
				return fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
			}
			line := models.OrderLine{
				MenuItemID: item.ID,
				Name:       item.Name,
				Quantity:   l.Quantity,
				UnitPrice:  item.Price,
			}
			order.Lines = append(order.Lines, line)
			order.Total = order.Total.Add(line.LineTotal())
		}

		var err error
		placed, err = s.orders.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		// the order is committed; a stale cart is the lesser problem
		if err := c.Clear(ctx); err != nil {
			s.log.WithError(err).WithField("order_id", placed.ID).Warn("failed to clear cart after placing order")
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	s.publish(ctx, placed, "")
	return placed, nil
}

func (s *OrderService) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (models.Order, error) {
	if err := authz.Check(p, authz.Authenticated, uuid.Nil); err != nil {
		return models.Order{}, err
	}
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if err := authz.Check(p, authz.OwnerOrAdmin, order.UserID); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, p authz.Principal) ([]models.Order, error) {
	if err := authz.Check(p, authz.Authenticated, uuid.Nil); err != nil {
		return nil, err
	}
	return s.orders.List(ctx, models.OrderFilter{UserID: p.UserID})
}

// ListAll returns every order, optionally narrowed to one status and one
// owner. A nil userID means every user.
func (s *OrderService) ListAll(ctx context.Context, p authz.Principal, status models.OrderStatus, userID uuid.UUID) ([]models.Order, error) {
	if err := authz.Check(p, authz.Admin, uuid.Nil); err != nil {
		return nil, err
	}
	return s.orders.List(ctx, models.OrderFilter{Status: status, UserID: userID})
}

func (s *OrderService) ListToday(ctx context.Context, p authz.Principal) ([]models.Order, error) {
	if err := authz.Check(p, authz.Admin, uuid.Nil); err != nil {
		return nil, err
	}
	return s.orders.List(ctx, s.today())
}

// Transition moves an order along the kitchen workflow. Admin only.
func (s *OrderService) Transition(ctx context.Context, p authz.Principal, id uuid.UUID, target models.OrderStatus) (models.Order, error) {
	if err := authz.Check(p, authz.Admin, uuid.Nil); err != nil {
		return models.Order{}, err
	}
	return s.change(ctx, id, func(o *models.Order) error {
		return workflow.Apply(o, target, s.now())
	})
}

// Cancel is the customer's own cancel, allowed while the order is PENDING.
func (s *OrderService) Cancel(ctx context.Context, p authz.Principal, id uuid.UUID) (models.Order, error) {
	if err := authz.Check(p, authz.Authenticated, uuid.Nil); err != nil {
		return models.Order{}, err
	}
	return s.change(ctx, id, func(o *models.Order) error {
		if err := authz.Check(p, authz.Owner, o.UserID); err != nil {
			return err
		}
		return workflow.Cancel(o, s.now())
	})
}

// NextActions lists what the caller may do with the order right now.
func (s *OrderService) NextActions(ctx context.Context, p authz.Principal, id uuid.UUID) ([]workflow.Action, error) {
	order, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() {
		return workflow.NextActions(order.Status), nil
	}

	actions := []workflow.Action{}
	if workflow.CanCancel(order.Status) {
		for _, a := range workflow.NextActions(order.Status) {
			if a.Target == models.StatusCancelled {
				actions = append(actions, a)
			}
		}
	}
	return actions, nil
}

func (s *OrderService) Stats(ctx context.Context, p authz.Principal) (models.Stats, error) {
	if err := authz.Check(p, authz.Admin, uuid.Nil); err != nil {
		return models.Stats{}, err
	}

	var stats models.Stats
	today := s.today()
	completedToday := today
	completedToday.Status = models.StatusCompleted

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalOrders, err = s.orders.Count(gctx, models.OrderFilter{})
		return err
	})
	g.Go(func() (err error) {
		stats.PendingOrders, err = s.orders.Count(gctx, models.OrderFilter{Status: models.StatusPending})
		return err
	})
	g.Go(func() (err error) {
		stats.TodayOrders, err = s.orders.Count(gctx, today)
		return err
	})
	g.Go(func() (err error) {
		stats.TodayRevenue, err = s.orders.Revenue(gctx, completedToday)
		return err
	})
	g.Go(func() (err error) {
		stats.MenuItems, err = s.menu.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Users, err = s.users.CountByRole(gctx, models.RoleUser)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Stats{}, fmt.Errorf("gather stats: %w", err)
	}
	return stats, nil
}

// change loads the order, lets fn move it to a new status and stores the move
// only if nobody changed the status in the meantime.
func (s *OrderService) change(ctx context.Context, id uuid.UUID, fn func(o *models.Order) error) (models.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	from := order.Status
	if err := fn(&order); err != nil {
		return models.Order{}, err
	}
	if err := s.orders.UpdateStatus(ctx, id, from, order.Status, order.UpdatedAt); err != nil {
		return models.Order{}, err
	}

	s.publish(ctx, order, from)
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, order models.Order, from models.OrderStatus) {
	event := notify.NewEvent(order, from)
	if order.Status == models.StatusReady {
		event.Phone = s.phoneOf(ctx, order)
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"order_id": order.ID,
			"status":   order.Status,
		}).Warn("failed to send order notification")
	}
}

// phoneOf finds the number to text about a ready order. A missing number only
// means the customer is told in the app.
func (s *OrderService) phoneOf(ctx context.Context, order models.Order) string {
	log := s.log.WithFields(logrus.Fields{"order_id": order.ID, "user_id": order.UserID})
	user, err := s.users.GetByID(ctx, order.UserID)
	if err != nil {
		log.WithError(err).Warn("could not load order owner for ready notification")
		return ""
	}
	if user.Phone == "" {
		log.Info("order owner has no phone on file")
	}
	return user.Phone
}

func (s *OrderService) today() models.OrderFilter {
	from := startOfDay(s.now())
	return models.OrderFilter{From: from, To: from.AddDate(0, 0, 1)}
}
