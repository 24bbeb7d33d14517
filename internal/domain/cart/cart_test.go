package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(productID int64, size, color string, price, qty int64) Item {
	return Item{
		Key:      Key{ProductID: productID, Size: size, Color: color},
		Name:     "Tee",
		Price:    decimal.NewFromInt(price),
		Quantity: qty,
	}
}

func TestCart_AddMergesSameKey(t *testing.T) {
	c := New(1)
	require.NoError(t, c.Add(item(10, "M", "Black", 500, 1)))
	require.NoError(t, c.Add(item(10, "M", "Black", 450, 2)))
	require.NoError(t, c.Add(item(10, "L", "Black", 500, 1)))

	assert.Len(t, c.Items, 2)
	got, ok := c.Get(Key{ProductID: 10, Size: "M", Color: "Black"})
	require.True(t, ok)
	assert.Equal(t, int64(3), got.Quantity)
	// 後から追加した価格で上書き
	assert.True(t, got.Price.Equal(decimal.NewFromInt(450)))
	assert.Equal(t, int64(4), c.Count())
}

func TestCart_AddRejectsNonPositive(t *testing.T) {
	c := New(1)
	assert.ErrorIs(t, c.Add(item(10, "M", "Black", 500, 0)), ErrInvalidQuantity)
	assert.True(t, c.IsEmpty())
}

func TestCart_UpdateQuantity(t *testing.T) {
	c := New(1)
	require.NoError(t, c.Add(item(10, "M", "Black", 500, 1)))
	k := Key{ProductID: 10, Size: "M", Color: "Black"}

	require.NoError(t, c.UpdateQuantity(k, 5))
	assert.Equal(t, int64(5), c.Count())

	assert.ErrorIs(t, c.UpdateQuantity(k, -1), ErrInvalidQuantity)
	assert.ErrorIs(t, c.UpdateQuantity(Key{ProductID: 99}, 1), ErrItemNotFound)

	require.NoError(t, c.UpdateQuantity(k, 0))
	assert.True(t, c.IsEmpty())
}

func TestCart_RemoveAndClear(t *testing.T) {
	c := New(1)
	require.NoError(t, c.Add(item(10, "M", "Black", 500, 1)))
	require.NoError(t, c.Add(item(11, "S", "White", 300, 2)))

	assert.True(t, c.Remove(Key{ProductID: 10, Size: "M", Color: "Black"}))
	assert.False(t, c.Remove(Key{ProductID: 10, Size: "M", Color: "Black"}))
	assert.Len(t, c.Items, 1)

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.NotNil(t, c.Items)
}

func TestCart_Subtotal(t *testing.T) {
	c := New(1)
	require.NoError(t, c.Add(item(10, "M", "Black", 500, 2)))
	require.NoError(t, c.Add(item(11, "S", "White", 300, 1)))
	assert.True(t, c.Subtotal().Equal(decimal.NewFromInt(1300)))

	var nilCart *Cart
	assert.True(t, nilCart.Subtotal().IsZero())
}
