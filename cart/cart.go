// Package cart implements the per-session shopping cart. A Cart holds at most
// one line per menu item with a quantity between one and MaxLineQuantity, and
// writes its full line set to the backing store after every mutation.
package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ray-remotestate/canteen/models"
	"github.com/ray-remotestate/canteen/storage"
)

var ErrItemNotFound = models.ErrMenuItemNotFound

// MaxLineQuantity caps a single line. Larger amounts are clamped to it.
const MaxLineQuantity = 99

// Catalog resolves menu items by id. Lookup must return an error matching
// ErrItemNotFound for unknown ids.
type Catalog interface {
	Lookup(ctx context.Context, id uuid.UUID) (models.MenuItem, error)
}

type Line struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

type PricedLine struct {
	Item      models.MenuItem `json:"item"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Cart struct {
	key     string
	store   storage.Store
	catalog Catalog
	lines   []Line
}

func Key(userID uuid.UUID) string {
	return "canteen:cart:" + userID.String()
}

func New(key string, store storage.Store, catalog Catalog) *Cart {
	return &Cart{
		key:     key,
		store:   store,
		catalog: catalog,
	}
}

// Restore rebuilds a cart from store. Missing or unreadable data yields an
// empty cart; only a failing store is an error.
func Restore(ctx context.Context, key string, store storage.Store, catalog Catalog) (*Cart, error) {
	c := New(key, store, catalog)

	data, ok, err := store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", key, err)
	}
	if !ok {
		return c, nil
	}

	var saved []Line
	if err := json.Unmarshal(data, &saved); err != nil {
		return c, nil
	}
	for _, l := range saved {
		if l.ItemID == uuid.Nil || l.Quantity < 1 {
			continue
		}
		if i := c.index(l.ItemID); i >= 0 {
			c.lines[i].Quantity = mergeQuantity(c.lines[i].Quantity, l.Quantity)
			continue
		}
		c.lines = append(c.lines, Line{ItemID: l.ItemID, Quantity: clampQuantity(l.Quantity)})
	}
	return c, nil
}

// AddItem adds quantity of item, merging into an existing line. Quantities
// below one are treated as one, and a line never grows past MaxLineQuantity.
func (c *Cart) AddItem(ctx context.Context, item models.MenuItem, quantity int) error {
	quantity = clampQuantity(quantity)
	return c.mutate(ctx, func() {
		if i := c.index(item.ID); i >= 0 {
			c.lines[i].Quantity = mergeQuantity(c.lines[i].Quantity, quantity)
			return
		}
		c.lines = append(c.lines, Line{ItemID: item.ID, Quantity: quantity})
	})
}

func (c *Cart) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	return c.mutate(ctx, func() {
		if i := c.index(itemID); i >= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
	})
}

// UpdateQuantity sets the quantity of an existing line, capped at
// MaxLineQuantity. A quantity of zero or less removes the line. Unknown items
// are ignored.
func (c *Cart) UpdateQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(ctx, itemID)
	}
	quantity = clampQuantity(quantity)
	return c.mutate(ctx, func() {
		if i := c.index(itemID); i >= 0 {
			c.lines[i].Quantity = quantity
		}
	})
}

func (c *Cart) Clear(ctx context.Context) error {
	return c.mutate(ctx, func() {
		c.lines = nil
	})
}

// Priced resolves every line against the catalog's current prices.
func (c *Cart) Priced(ctx context.Context) ([]PricedLine, decimal.Decimal, error) {
	out := make([]PricedLine, 0, len(c.lines))
	total := decimal.Zero

	for _, l := range c.lines {
		item, err := c.catalog.Lookup(ctx, l.ItemID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("price cart line %s: %w", l.ItemID, err)
		}
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		out = append(out, PricedLine{
			Item:      item,
			Quantity:  l.Quantity,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return out, total, nil
}

// Total is recomputed from current catalog prices on every call.
func (c *Cart) Total(ctx context.Context) (decimal.Decimal, error) {
	_, total, err := c.Priced(ctx)
	return total, err
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Key() string {
	return c.key
}

func clampQuantity(q int) int {
	switch {
	case q < 1:
		return 1
	case q > MaxLineQuantity:
		return MaxLineQuantity
	}
	return q
}

// mergeQuantity adds two clamped quantities; both are at most
// MaxLineQuantity so the sum cannot overflow.
func mergeQuantity(current, add int) int {
	return clampQuantity(clampQuantity(current) + clampQuantity(add))
}

func (c *Cart) index(itemID uuid.UUID) int {
	for i, l := range c.lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

// mutate applies fn and persists. If persisting fails the in-memory lines are
// rolled back so they keep matching what the store holds.
func (c *Cart) mutate(ctx context.Context, fn func()) error {
	before := c.Lines()
	fn()
	if err := c.persist(ctx); err != nil {
		c.lines = before
		return err
	}
	return nil
}

func (c *Cart) persist(ctx context.Context) error {
	lines := c.lines
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := c.store.Save(ctx, c.key, data); err != nil {
		return fmt.Errorf("save cart %s: %w", c.key, err)
	}
	return nil
}
