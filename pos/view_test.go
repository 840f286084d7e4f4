package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		amount int64
		code   string
		want   string
	}{
		{0, "CLP", "$0"},
		{999, "CLP", "$999"},
		{1000, "CLP", "$1.000"},
		{1234567, "CLP", "$1.234.567"},
		{-4500, "CLP", "-$4.500"},
		{2500, "ARS", "ARS $2.500"},
	}
	for _, tt := range tests {
		if got := FormatCurrency(tt.amount, tt.code); got != tt.want {
			t.Errorf("FormatCurrency(%d, %q) = %q, want %q", tt.amount, tt.code, got, tt.want)
		}
	}
}

func TestRenderCatalogGroupsAndSorts(t *testing.T) {
	c, _, _ := newTestController(t)

	view := c.RenderCatalog("", "")

	require.Len(t, view.Sections, 2)
	assert.Equal(t, "Bebidas", view.Sections[0].Nombre)
	assert.Equal(t, "Panadería", view.Sections[1].Nombre)

	require.Len(t, view.Categories, 2)
	assert.Equal(t, CategoryOption{Nombre: "Bebidas", Count: 2}, view.Categories[0])
	assert.Equal(t, CategoryOption{Nombre: "Panadería", Count: 1}, view.Categories[1])
}

func TestRenderCatalogStockLevels(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.SetStockThreshold(3))

	view := c.RenderCatalog("", "Bebidas")
	require.Len(t, view.Sections, 1)
	cards := view.Sections[0].Cards
	require.Len(t, cards, 2)

	// Leche: stock 3 <= threshold 3
	leche := cards[0]
	assert.Equal(t, StockLow, leche.Level)
	assert.Equal(t, "Stock bajo: 3", leche.StockLabel)
	assert.False(t, leche.Disabled)

	// Café: stock 0
	cafe := cards[1]
	assert.Equal(t, StockOut, cafe.Level)
	assert.Equal(t, "Sin stock", cafe.StockLabel)
	assert.True(t, cafe.Disabled)
}

func TestRenderCatalogReflectsReservations(t *testing.T) {
	c, _, _ := newTestController(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.AddToCart(2))
	}

	view := c.RenderCatalog("leche", "")
	require.Len(t, view.Sections, 1)
	require.Len(t, view.Sections[0].Cards, 1)
	card := view.Sections[0].Cards[0]
	assert.Equal(t, 0, card.Stock)
	assert.True(t, card.Disabled, "drained products render disabled")
}

func TestRenderCatalogFilters(t *testing.T) {
	c, _, _ := newTestController(t)

	// By name, case-insensitive.
	view := c.RenderCatalog("PAN", "")
	require.Len(t, view.Sections, 1)
	assert.Equal(t, "Panadería", view.Sections[0].Nombre)

	// By barcode substring.
	view = c.RenderCatalog("456002", "")
	require.Len(t, view.Sections, 1)
	require.Len(t, view.Sections[0].Cards, 1)
	assert.Equal(t, "Leche", view.Sections[0].Cards[0].Nombre)

	// By category name.
	view = c.RenderCatalog("bebidas", "")
	require.Len(t, view.Sections, 1)
	assert.Len(t, view.Sections[0].Cards, 2)

	// Term and category combined.
	view = c.RenderCatalog("Café", "Panadería")
	assert.Empty(t, view.Sections)

	// Filtering never hides the full category option list.
	assert.Len(t, view.Categories, 2)
}

func TestRenderCatalogLockedAfterReady(t *testing.T) {
	c, _, _ := newTestController(t)

	require.NoError(t, c.AddToCart(1))
	require.NoError(t, c.Ready())

	view := c.RenderCatalog("", "")
	for _, section := range view.Sections {
		for _, card := range section.Cards {
			assert.True(t, card.Disabled, "every card locks after Ready")
		}
	}
}

func TestRenderCartEmpty(t *testing.T) {
	c, _, _ := newTestController(t)

	view := c.RenderCart()
	assert.True(t, view.Empty)
	assert.Equal(t, "$0", view.SubtotalLabel)
	assert.Equal(t, "$0", view.TotalLabel)
	assert.False(t, view.ReadyEnabled)
	assert.False(t, view.CheckoutEnabled)
}

func TestRenderCartTotalsAndControls(t *testing.T) {
	c, _, _ := newTestController(t)

	require.NoError(t, c.AddToCart(1))
	require.NoError(t, c.AddToCart(1))
	require.NoError(t, c.SetDiscountPercentage(10))

	view := c.RenderCart()
	assert.False(t, view.Empty)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "Pan", view.Rows[0].Nombre)
	assert.Equal(t, 2, view.Rows[0].Cantidad)
	assert.Equal(t, "$2.000", view.SubtotalLabel)
	assert.Equal(t, "$200", view.DiscountLabel)
	assert.Equal(t, "$1.800", view.TotalLabel)
	assert.True(t, view.ReadyEnabled)
	assert.False(t, view.PaymentEnabled)
	assert.False(t, view.CheckoutEnabled)

	require.NoError(t, c.Ready())
	view = c.RenderCart()
	assert.False(t, view.ReadyEnabled)
	assert.True(t, view.PaymentEnabled)
	assert.False(t, view.CheckoutEnabled)

	require.NoError(t, c.SetPaymentMethod("efectivo"))
	view = c.RenderCart()
	assert.True(t, view.CheckoutEnabled)
}

func TestRenderCartItemDiscountRow(t *testing.T) {
	c, _, _ := newTestController(t)

	require.NoError(t, c.AddToCart(1))
	require.NoError(t, c.AddToCart(2))
	c.SetDiscountMode(DiscountItem)
	require.NoError(t, c.SetDiscountPercentage(10))
	c.SelectItemForDiscount(1)

	view := c.RenderCart()
	require.Len(t, view.Rows, 2)

	pan := view.Rows[0]
	assert.True(t, pan.Selected)
	assert.Equal(t, "-$100", pan.DiscountLabel)
	assert.Equal(t, "$900", pan.TotalLabel)

	leche := view.Rows[1]
	assert.False(t, leche.Selected)
	assert.Empty(t, leche.DiscountLabel)
}
