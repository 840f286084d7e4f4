package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntoventa/poskit/core"
)

func TestCalculateDiscount(t *testing.T) {
	tests := []struct {
		amount     int64
		percentage int
		want       int64
	}{
		{1000, 10, 100},
		{999, 10, 100}, // rounds 99.9 to nearest
		{994, 10, 99},  // rounds 99.4 down
		{1000, 0, 0},
		{0, 50, 0},
		{333, 33, 110}, // 109.89
		{1, 99, 1},
	}
	for _, tt := range tests {
		got := CalculateDiscount(tt.amount, tt.percentage)
		if got != tt.want {
			t.Errorf("CalculateDiscount(%d, %d) = %d, want %d", tt.amount, tt.percentage, got, tt.want)
		}
	}
}

func TestTotalDiscountMode(t *testing.T) {
	c, _, _ := newTestController(t)

	require.NoError(t, c.AddToCart(1)) // 1000
	require.NoError(t, c.AddToCart(2)) // 1200
	require.NoError(t, c.SetDiscountPercentage(10))

	subtotal, discount := c.Totals()
	assert.Equal(t, int64(2200), subtotal)
	assert.Equal(t, int64(220), discount)
}

func TestItemDiscountMode(t *testing.T) {
	c, _, _ := newTestController(t)

	require.NoError(t, c.AddToCart(1))
	require.NoError(t, c.AddToCart(1)) // Pan x2 = 2000
	require.NoError(t, c.AddToCart(2)) // Leche = 1200

	c.SetDiscountMode(DiscountItem)
	require.NoError(t, c.SetDiscountPercentage(10))
	c.SelectItemForDiscount(1)

	subtotal, discount := c.Totals()
	assert.Equal(t, int64(3200), subtotal)
	assert.Equal(t, int64(200), discount, "10% of the selected line only")

	cart := c.Cart()
	require.Len(t, cart, 2)
	assert.Equal(t, int64(200), cart[0].Descuento)
	assert.Equal(t, int64(0), cart[1].Descuento)
}

func TestItemDiscountFollowsQuantity(t *testing.T) {
	c, _, _ := newTestController(t)

	require.NoError(t, c.AddToCart(1))
	c.SetDiscountMode(DiscountItem)
	require.NoError(t, c.SetDiscountPercentage(10))
	c.SelectItemForDiscount(1)

	_, discount := c.Totals()
	assert.Equal(t, int64(100), discount)

	// Adding another unit of the discounted line recomputes its amount.
	require.NoError(t, c.AddToCart(1))
	_, discount = c.Totals()
	assert.Equal(t, int64(200), discount)
}

func TestSelectItemToggles(t *testing.T) {
	c, _, _ := newTestController(t)

	require.NoError(t, c.AddToCart(1))
	c.SetDiscountMode(DiscountItem)
	require.NoError(t, c.SetDiscountPercentage(15))

	c.SelectItemForDiscount(1)
	assert.Equal(t, 1, c.SelectedItem())

	c.SelectItemForDiscount(1)
	assert.Equal(t, 0, c.SelectedItem(), "selecting again deselects")

	_, discount := c.Totals()
	assert.Equal(t, int64(0), discount)
}

func TestSelectItemIgnoredInTotalMode(t *testing.T) {
	c, _, _ := newTestController(t)

	require.NoError(t, c.AddToCart(1))
	c.SelectItemForDiscount(1)
	assert.Equal(t, 0, c.SelectedItem())
}

func TestSwitchingToTotalClearsItemState(t *testing.T) {
	c, _, _ := newTestController(t)

	require.NoError(t, c.AddToCart(1))
	c.SetDiscountMode(DiscountItem)
	require.NoError(t, c.SetDiscountPercentage(10))
	c.SelectItemForDiscount(1)

	cart := c.Cart()
	require.Equal(t, int64(100), cart[0].Descuento)

	c.SetDiscountMode(DiscountTotal)

	assert.Equal(t, 0, c.SelectedItem())
	cart = c.Cart()
	assert.Equal(t, int64(0), cart[0].Descuento, "per-line amounts must be zeroed")
}

func TestCustomDiscountValidation(t *testing.T) {
	c, fb, _ := newTestController(t)
	require.NoError(t, c.AddToCart(1))

	for _, bad := range []string{"0", "100", "abc", "-5", "", "10.5"} {
		err := c.SetCustomDiscount(bad)
		require.Error(t, err, "input %q", bad)
		assert.ErrorIs(t, err, core.ErrInvalidPercentage)
		assert.Equal(t, 0, c.DiscountPercentage(), "input %q must not mutate the percentage", bad)
	}
	assert.Len(t, fb.alerts, 6)

	require.NoError(t, c.SetCustomDiscount(" 25 "))
	assert.Equal(t, 25, c.DiscountPercentage())
}

func TestResetDiscount(t *testing.T) {
	c, _, _ := newTestController(t)

	require.NoError(t, c.AddToCart(1))
	c.SetDiscountMode(DiscountItem)
	require.NoError(t, c.SetDiscountPercentage(20))
	c.SelectItemForDiscount(1)

	c.ResetDiscount()

	assert.Equal(t, 0, c.DiscountPercentage())
	assert.Equal(t, 0, c.SelectedItem())
	_, discount := c.Totals()
	assert.Equal(t, int64(0), discount)
}

func TestDiscountPresetsAreCopied(t *testing.T) {
	c, _, _ := newTestController(t)

	presets := c.DiscountPresets()
	assert.Equal(t, []int{5, 10, 15, 20}, presets)

	presets[0] = 99
	assert.Equal(t, []int{5, 10, 15, 20}, c.DiscountPresets())
}
