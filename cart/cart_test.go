package cart

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray-remotestate/canteen/models"
	"github.com/ray-remotestate/canteen/storage"
)

type fakeCatalog struct {
	items map[uuid.UUID]models.MenuItem
}

func newFakeCatalog(items ...models.MenuItem) *fakeCatalog {
	c := &fakeCatalog{items: make(map[uuid.UUID]models.MenuItem)}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (f *fakeCatalog) Lookup(_ context.Context, id uuid.UUID) (models.MenuItem, error) {
	it, ok := f.items[id]
	if !ok {
		return models.MenuItem{}, ErrItemNotFound
	}
	return it, nil
}

func (f *fakeCatalog) setPrice(id uuid.UUID, price int64) {
	it := f.items[id]
	it.Price = decimal.NewFromInt(price)
	f.items[id] = it
}

type failingStore struct {
	storage.Store
	failSave bool
}

func (f *failingStore) Save(ctx context.Context, key string, value []byte) error {
	if f.failSave {
		return errors.New("store unavailable")
	}
	return f.Store.Save(ctx, key, value)
}

func menuItem(name string, price int64) models.MenuItem {
	return models.MenuItem{
		ID:        uuid.New(),
		Name:      name,
		Price:     decimal.NewFromInt(price),
		Category:  models.CategorySnacks,
		Available: true,
	}
}

func newTestCart(t *testing.T, items ...models.MenuItem) (*Cart, *storage.MemoryStore, *fakeCatalog) {
	t.Helper()
	store := storage.NewMemoryStore()
	catalog := newFakeCatalog(items...)
	return New(Key(uuid.New()), store, catalog), store, catalog
}

func persistedLines(t *testing.T, c *Cart, store storage.Store) []Line {
	t.Helper()
	restored, err := Restore(context.Background(), c.Key(), store, nil)
	require.NoError(t, err)
	return restored.Lines()
}

func TestAddItem_MergesLines(t *testing.T) {
	a := menuItem("Samosa", 100)
	c, store, _ := newTestCart(t, a)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, a, 1))
	require.NoError(t, c.AddItem(ctx, a, 2))

	assert.Equal(t, []Line{{ItemID: a.ID, Quantity: 3}}, c.Lines())
	total, err := c.Total(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(total), "total %s", total)
	assert.Equal(t, c.Lines(), persistedLines(t, c, store))
}

func TestAddItem_ClampsQuantity(t *testing.T) {
	a := menuItem("Chai", 20)
	c, _, _ := newTestCart(t, a)

	require.NoError(t, c.AddItem(context.Background(), a, 0))
	require.NoError(t, c.AddItem(context.Background(), a, -5))

	assert.Equal(t, 2, c.ItemCount())
}

func TestAddItem_CapsLineQuantity(t *testing.T) {
	a := menuItem("Jalebi", 30)
	c, store, _ := newTestCart(t, a)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, a, math.MaxInt))
	require.NoError(t, c.AddItem(ctx, a, 2))

	assert.Equal(t, []Line{{ItemID: a.ID, Quantity: MaxLineQuantity}}, c.Lines())
	assert.Equal(t, MaxLineQuantity, c.ItemCount())
	assert.Equal(t, c.Lines(), persistedLines(t, c, store))

	total, err := c.Total(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30*MaxLineQuantity).Equal(total), "total %s", total)

	require.NoError(t, c.UpdateQuantity(ctx, a.ID, math.MaxInt))
	assert.Equal(t, MaxLineQuantity, c.ItemCount())
}

func TestRestore_CapsStoredQuantities(t *testing.T) {
	a := menuItem("Lassi", 40)
	store := storage.NewMemoryStore()
	key := Key(uuid.New())
	raw := []byte(`[{"item_id":"` + a.ID.String() + `","quantity":9223372036854775807},` +
		`{"item_id":"` + a.ID.String() + `","quantity":5}]`)
	require.NoError(t, store.Save(context.Background(), key, raw))

	c, err := Restore(context.Background(), key, store, newFakeCatalog(a))
	require.NoError(t, err)
	assert.Equal(t, []Line{{ItemID: a.ID, Quantity: MaxLineQuantity}}, c.Lines())
}

func TestUpdateQuantity(t *testing.T) {
	a, b := menuItem("Naan", 45), menuItem("Roti", 15)
	c, store, _ := newTestCart(t, a, b)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, a, 2))
	require.NoError(t, c.AddItem(ctx, b, 1))

	require.NoError(t, c.UpdateQuantity(ctx, a.ID, 5))
	assert.Equal(t, 6, c.ItemCount())

	require.NoError(t, c.UpdateQuantity(ctx, a.ID, 0))
	assert.Equal(t, []Line{{ItemID: b.ID, Quantity: 1}}, c.Lines())
	assert.Equal(t, 1, c.ItemCount())
	assert.Equal(t, c.Lines(), persistedLines(t, c, store))

	// unknown item is a no-op
	require.NoError(t, c.UpdateQuantity(ctx, uuid.New(), 4))
	assert.Equal(t, 1, c.ItemCount())
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	a := menuItem("Vada Pav", 35)
	c, _, _ := newTestCart(t, a)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, a, 1))
	require.NoError(t, c.RemoveItem(ctx, uuid.New()))
	assert.Len(t, c.Lines(), 1)

	require.NoError(t, c.RemoveItem(ctx, a.ID))
	assert.True(t, c.IsEmpty())
}

func TestTotal_UsesCurrentPrice(t *testing.T) {
	a := menuItem("Biryani", 180)
	c, _, catalog := newTestCart(t, a)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, a, 2))
	total, err := c.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, "360", total.String())

	catalog.setPrice(a.ID, 200)
	total, err = c.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, "400", total.String())
}

func TestTotal_StaleItem(t *testing.T) {
	a := menuItem("Gulab Jamun", 40)
	c, _, catalog := newTestCart(t, a)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, a, 1))
	delete(catalog.items, a.ID)

	_, err := c.Total(ctx)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestClear(t *testing.T) {
	a, b := menuItem("Dal", 120), menuItem("Lime Soda", 30)
	c, store, _ := newTestCart(t, a, b)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, a, 1))
	require.NoError(t, c.AddItem(ctx, b, 4))
	require.NoError(t, c.Clear(ctx))

	assert.Equal(t, 0, c.ItemCount())
	assert.Empty(t, persistedLines(t, c, store))

	raw, ok, err := store.Load(ctx, c.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	id := uuid.New()

	t.Run("absent", func(t *testing.T) {
		c, err := Restore(ctx, "canteen:cart:none", store, nil)
		require.NoError(t, err)
		assert.True(t, c.IsEmpty())
	})

	t.Run("malformed", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "bad", []byte("{not json")))
		c, err := Restore(ctx, "bad", store, nil)
		require.NoError(t, err)
		assert.True(t, c.IsEmpty())
	})

	t.Run("normalises", func(t *testing.T) {
		raw := `[{"item_id":"` + id.String() + `","quantity":2},` +
			`{"item_id":"` + id.String() + `","quantity":1},` +
			`{"item_id":"` + uuid.NewString() + `","quantity":0}]`
		require.NoError(t, store.Save(ctx, "dup", []byte(raw)))

		c, err := Restore(ctx, "dup", store, nil)
		require.NoError(t, err)
		assert.Equal(t, []Line{{ItemID: id, Quantity: 3}}, c.Lines())
	})
}

func TestMutate_RollsBackOnStoreFailure(t *testing.T) {
	a := menuItem("Paneer", 160)
	store := &failingStore{Store: storage.NewMemoryStore()}
	c := New("k", store, newFakeCatalog(a))
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, a, 1))

	store.failSave = true
	assert.Error(t, c.AddItem(ctx, a, 3))
	assert.Equal(t, 1, c.ItemCount())
	assert.Error(t, c.Clear(ctx))
	assert.Equal(t, 1, c.ItemCount())
}

// Random operation sequences must keep one line per item and every quantity
// within [1, MaxLineQuantity], and what was persisted must match memory.
func TestInvariants_RandomSequences(t *testing.T) {
	items := []models.MenuItem{menuItem("a", 10), menuItem("b", 25), menuItem("c", 7)}
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for run := 0; run < 50; run++ {
		c, store, _ := newTestCart(t, items...)

		for step := 0; step < 40; step++ {
			it := items[rng.Intn(len(items))]
			q := rng.Intn(7) - 2
			switch rng.Intn(3) {
			case 0:
				require.NoError(t, c.AddItem(ctx, it, q))
			case 1:
				require.NoError(t, c.RemoveItem(ctx, it.ID))
			case 2:
				require.NoError(t, c.UpdateQuantity(ctx, it.ID, q))
			}

			seen := map[uuid.UUID]bool{}
			expectedTotal := decimal.Zero
			for _, l := range c.Lines() {
				require.False(t, seen[l.ItemID], "duplicate line for %s", l.ItemID)
				seen[l.ItemID] = true
				require.GreaterOrEqual(t, l.Quantity, 1)
				require.LessOrEqual(t, l.Quantity, MaxLineQuantity)
				for _, it := range items {
					if it.ID == l.ItemID {
						expectedTotal = expectedTotal.Add(it.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
					}
				}
			}
			total, err := c.Total(ctx)
			require.NoError(t, err)
			require.True(t, expectedTotal.Equal(total))
			require.Equal(t, c.Lines(), persistedLines(t, c, store))
		}
	}
}
