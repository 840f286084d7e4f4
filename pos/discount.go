package pos

import (
	"math"
	"strconv"
	"strings"

	"github.com/puntoventa/poskit/core"
)

// DiscountMode selects what a discount percentage applies to.
type DiscountMode string

const (
	// DiscountTotal applies the percentage once to the cart subtotal.
	DiscountTotal DiscountMode = "total"
	// DiscountItem applies the percentage to at most one selected line.
	DiscountItem DiscountMode = "item"
)

// CalculateDiscount is the discount engine: percentage of an amount,
// rounded to the nearest whole currency unit.
func CalculateDiscount(amount int64, percentage int) int64 {
	return int64(math.Round(float64(amount) * float64(percentage) / 100))
}

// roundMoney converts a wire price to whole currency units.
func roundMoney(v float64) int64 {
	return int64(math.Round(v))
}

// SetDiscountMode switches between total and item discounting. Switching to
// total clears the line selection and every per-line discount amount so a
// stale item discount can never stack with a total one.
func (c *Controller) SetDiscountMode(mode DiscountMode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.discountMode = mode
	if mode == DiscountTotal {
		c.selectedItem = 0
		for i := range c.cart {
			c.cart[i].Descuento = 0
		}
	}
	c.applyDiscountLocked()
}

// DiscountMode returns the active mode.
func (c *Controller) DiscountMode() DiscountMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discountMode
}

// SetDiscountPercentage applies one of the preset percentages.
func (c *Controller) SetDiscountPercentage(p int) error {
	if p < 0 || p > 99 {
		return core.NewPOSError("pos.SetDiscountPercentage", "validation", core.ErrInvalidPercentage)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discountPercentage = p
	c.applyDiscountLocked()
	return nil
}

// SetCustomDiscount parses operator input for the custom-percentage path.
// Anything outside the integers 1-99 is rejected with a user-facing message
// and no state change.
func (c *Controller) SetCustomDiscount(input string) error {
	p, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || p < 1 || p > 99 {
		c.fb.Alert("Por favor ingrese un valor válido entre 1 y 99")
		return &core.POSError{Op: "pos.SetCustomDiscount", Kind: "validation", ID: input, Err: core.ErrInvalidPercentage}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discountPercentage = p
	c.applyDiscountLocked()
	return nil
}

// DiscountPercentage returns the active percentage.
func (c *Controller) DiscountPercentage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discountPercentage
}

// DiscountPresets returns the configured quick-pick percentages for the
// host's discount buttons.
func (c *Controller) DiscountPresets() []int {
	presets := make([]int, len(c.cfg.DiscountPresets))
	copy(presets, c.cfg.DiscountPresets)
	return presets
}

// SelectItemForDiscount toggles the line the item-mode discount applies to.
// At most one line is selected at a time; selecting the current line again
// deselects it. Ignored outside item mode.
func (c *Controller) SelectItemForDiscount(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.discountMode != DiscountItem {
		return
	}
	if c.selectedItem == id {
		c.selectedItem = 0
	} else {
		c.selectedItem = id
	}
	c.applyDiscountLocked()
}

// SelectedItem returns the producto_id the item discount applies to, or 0.
func (c *Controller) SelectedItem() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedItem
}

// ResetDiscount clears the percentage, the selection and every per-line
// amount.
func (c *Controller) ResetDiscount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetDiscountLocked()
}

func (c *Controller) resetDiscountLocked() {
	c.discountPercentage = 0
	c.selectedItem = 0
	for i := range c.cart {
		c.cart[i].Descuento = 0
	}
}

// applyDiscountLocked recomputes per-line discount amounts from the current
// mode, percentage and selection.
func (c *Controller) applyDiscountLocked() {
	for i := range c.cart {
		line := &c.cart[i]
		if c.discountMode == DiscountItem && c.selectedItem == line.ProductoID {
			line.Descuento = CalculateDiscount(line.PrecioUnitario*int64(line.Cantidad), c.discountPercentage)
		} else if c.discountMode == DiscountItem {
			line.Descuento = 0
		}
	}
}

// Totals computes the cart subtotal and the total discount for the current
// discount state.
func (c *Controller) Totals() (subtotal, discount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalsLocked()
}

func (c *Controller) totalsLocked() (subtotal, discount int64) {
	for i := range c.cart {
		line := &c.cart[i]
		subtotal += line.PrecioUnitario * int64(line.Cantidad)
		if c.discountMode == DiscountItem {
			discount += line.Descuento
		}
	}
	if c.discountMode == DiscountTotal && c.discountPercentage > 0 {
		discount = CalculateDiscount(subtotal, c.discountPercentage)
	}
	return subtotal, discount
}
