package cart_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firemart/storefront/internal/cart"
)

func TestAdd_SameProductCollapsesIntoOneLine(t *testing.T) {
	var c cart.Cart
	c.Add(cart.Item{ProductID: 1, Name: "P6 powder", PriceCents: 1000, Quantity: 2})
	c.Add(cart.Item{ProductID: 1, Name: "P6 powder", PriceCents: 1000, Quantity: 1})

	require.Len(t, c.Items, 1)
	assert.EqualValues(t, 3, c.Items[0].Quantity)
	assert.EqualValues(t, 3000, c.TotalCents())
	assert.EqualValues(t, 3, c.Count())
}

func TestAdd_ZeroQuantityCountsAsOne(t *testing.T) {
	var c cart.Cart
	c.Add(cart.Item{ProductID: 2, PriceCents: 500})

	require.Len(t, c.Items, 1)
	assert.EqualValues(t, 1, c.Items[0].Quantity)
}

func TestUpdateQuantity(t *testing.T) {
	var c cart.Cart
	c.Add(cart.Item{ProductID: 1, PriceCents: 1000, Quantity: 2})
	c.Add(cart.Item{ProductID: 2, PriceCents: 2500, Quantity: 1})

	c.UpdateQuantity(1, 5)
	assert.EqualValues(t, 5, c.Items[0].Quantity)
	assert.EqualValues(t, 5*1000+2500, c.TotalCents())

	// Zero removes the line entirely.
	c.UpdateQuantity(2, 0)
	require.Len(t, c.Items, 1)
	assert.EqualValues(t, 1, c.Items[0].ProductID)
}

func TestRemoveAndClear(t *testing.T) {
	var c cart.Cart
	c.Add(cart.Item{ProductID: 1, PriceCents: 1000, Quantity: 1})
	c.Add(cart.Item{ProductID: 2, PriceCents: 2000, Quantity: 2})

	c.Remove(1)
	require.Len(t, c.Items, 1)

	c.Clear()
	assert.Empty(t, c.Items)
	assert.Zero(t, c.TotalCents())
	assert.Zero(t, c.Count())
}

func TestStore_MemoryFallbackRoundTrip(t *testing.T) {
	s := cart.NewStore(nil)
	ctx := context.Background()

	loaded, err := s.Load(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, loaded.Items)

	loaded.Add(cart.Item{ProductID: 3, PriceCents: 1500, Quantity: 2})
	require.NoError(t, s.Save(ctx, 7, loaded))

	again, err := s.Load(ctx, 7)
	require.NoError(t, err)
	require.Len(t, again.Items, 1)
	assert.EqualValues(t, 3000, again.TotalCents())

	// Mutating the loaded copy must not leak into the store.
	again.Clear()
	third, err := s.Load(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, third.Items, 1)

	require.NoError(t, s.Drop(ctx, 7))
	empty, err := s.Load(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
}
