package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ray-remotestate/canteen/authz"
	"github.com/ray-remotestate/canteen/models"
	"github.com/ray-remotestate/canteen/notify"
	"github.com/ray-remotestate/canteen/storage"
)

type fakeMenu struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.MenuItem
}

func newFakeMenu() *fakeMenu {
	return &fakeMenu{items: make(map[uuid.UUID]models.MenuItem)}
}

func (m *fakeMenu) add(name, price string, available bool) models.MenuItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := models.MenuItem{
		ID:        uuid.New(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Category:  models.CategorySnacks,
		Available: available,
	}
	m.items[item.ID] = item
	return item
}

func (m *fakeMenu) Lookup(_ context.Context, id uuid.UUID) (models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return models.MenuItem{}, models.ErrMenuItemNotFound
	}
	return item, nil
}

func (m *fakeMenu) List(_ context.Context, f models.MenuFilter) ([]models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MenuItem
	for _, item := range m.items {
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		if f.AvailableOnly && !item.Available {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *fakeMenu) Create(_ context.Context, item models.MenuItem) (models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = uuid.New()
	m.items[item.ID] = item
	return item, nil
}

func (m *fakeMenu) Update(_ context.Context, item models.MenuItem) (models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return models.MenuItem{}, models.ErrMenuItemNotFound
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *fakeMenu) ToggleAvailability(_ context.Context, id uuid.UUID) (models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return models.MenuItem{}, models.ErrMenuItemNotFound
	}
	item.Available = !item.Available
	m.items[id] = item
	return item, nil
}

func (m *fakeMenu) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return models.ErrMenuItemNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *fakeMenu) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

type fakeOrders struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]models.Order
	createErr error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[uuid.UUID]models.Order)}
}

func (o *fakeOrders) Create(_ context.Context, order models.Order) (models.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.createErr != nil {
		return models.Order{}, o.createErr
	}
	order.ID = uuid.New()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	o.orders[order.ID] = order
	return order, nil
}

func (o *fakeOrders) put(order models.Order) models.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	o.orders[order.ID] = order
	return order
}

func (o *fakeOrders) Get(_ context.Context, id uuid.UUID) (models.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[id]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	return order, nil
}

func (o *fakeOrders) match(f models.OrderFilter) []models.Order {
	var out []models.Order
	for _, order := range o.orders {
		if f.UserID != uuid.Nil && order.UserID != f.UserID {
			continue
		}
		if f.Status != "" && order.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && order.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !order.CreatedAt.Before(f.To) {
			continue
		}
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (o *fakeOrders) List(_ context.Context, f models.OrderFilter) ([]models.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.match(f), nil
}

func (o *fakeOrders) Count(_ context.Context, f models.OrderFilter) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.match(f)), nil
}

func (o *fakeOrders) Revenue(_ context.Context, f models.OrderFilter) (decimal.Decimal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sum := decimal.Zero
	for _, order := range o.match(f) {
		sum = sum.Add(order.Total)
	}
	return sum, nil
}

func (o *fakeOrders) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.OrderStatus, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[id]
	if !ok {
		return models.ErrOrderNotFound
	}
	if order.Status != from {
		return models.ErrStatusConflict
	}
	order.Status = to
	order.UpdatedAt = at
	o.orders[id] = order
	return nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[uuid.UUID]models.User)}
}

func (u *fakeUsers) Create(_ context.Context, name, email, phone, hashedPassword string, roles ...models.Role) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.users {
		if strings.EqualFold(existing.Email, email) {
			return models.User{}, models.ErrEmailTaken
		}
	}
	user := models.User{
		ID: uuid.New(), Name: name, Email: email, Phone: phone,
		Password: hashedPassword, Roles: roles, CreatedAt: time.Now(),
	}
	u.users[user.ID] = user
	return user, nil
}

func (u *fakeUsers) put(user models.User) authz.Principal {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[user.ID] = user
	return authz.Principal{UserID: user.ID, Roles: user.Roles}
}

func (u *fakeUsers) IsUserExists(ctx context.Context, email string) (bool, error) {
	_, err := u.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (u *fakeUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return models.User{}, models.ErrUserNotFound
}

func (u *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[id]
	if !ok {
		return models.User{}, models.ErrUserNotFound
	}
	return user, nil
}

func (u *fakeUsers) List(context.Context) ([]models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]models.User, 0, len(u.users))
	for _, user := range u.users {
		out = append(out, user)
	}
	return out, nil
}

func (u *fakeUsers) Archive(_ context.Context, id uuid.UUID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[id]; !ok {
		return models.ErrUserNotFound
	}
	delete(u.users, id)
	return nil
}

func (u *fakeUsers) CountByRole(_ context.Context, role models.Role) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, user := range u.users {
		if user.HasRole(role) {
			n++
		}
	}
	return n, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, e notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) last() notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

type fixture struct {
	menu     *fakeMenu
	orders   *fakeOrders
	users    *fakeUsers
	store    *storage.MemoryStore
	notifier *recordingNotifier
	hook     *test.Hook

	carts    *CartService
	orderSvc *OrderService
	menuSvc  *MenuService
	userSvc  *UserService
	customer authz.Principal
	other    authz.Principal
	admin    authz.Principal
}

func newFixture() *fixture {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		menu:     newFakeMenu(),
		orders:   newFakeOrders(),
		users:    newFakeUsers(),
		store:    storage.NewMemoryStore(),
		notifier: &recordingNotifier{},
		hook:     hook,
	}
	f.carts = NewCartService(f.store, f.menu, logger)
	f.orderSvc = NewOrderService(f.orders, f.menu, f.users, f.carts, f.notifier, logger)
	f.menuSvc = NewMenuService(f.menu)
	f.userSvc = NewUserService(f.users, f.carts, []byte("test-secret"), logger)

	f.customer = f.users.put(models.User{
		ID: uuid.New(), Name: "Ravi", Email: "ravi@example.com", Phone: "+919800000001",
		Roles: []models.Role{models.RoleUser},
	})
	f.other = f.users.put(models.User{
		ID: uuid.New(), Name: "Meera", Email: "meera@example.com",
		Roles: []models.Role{models.RoleUser},
	})
	f.admin = authz.Principal{UserID: uuid.New(), Roles: []models.Role{models.RoleAdmin}}
	return f
}
