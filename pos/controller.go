// Package pos implements the cart and stock-reservation controller of a
// point-of-sale terminal.
//
// The controller owns the only mutable sale state on the client: the cart
// lines, a local mirror of per-product available stock, and the discount
// state. The mirror tracks what the terminal believes is still sellable:
//
//	mirror[id] = server quantity - units held in this cart
//
// The server stays the final arbiter; an order that outruns real stock is
// rejected at submit time, so a stale mirror is a UX annoyance rather than
// a correctness hazard. Reconciliation against a fresh catalog fetch
// subtracts current cart holdings from the fetched quantity instead of
// overwriting, which keeps in-flight reservations visible.
package pos

import (
	"context"
	"strconv"
	"sync"

	"github.com/puntoventa/poskit/core"
)

// Preference keys, carried over from the storefront this replaces.
const (
	PrefStockThreshold = "stockUmbralPOS"
)

// CartLine is one product held in the cart. Owned exclusively by the
// controller; callers see copies.
type CartLine struct {
	ProductoID     int
	Nombre         string
	PrecioUnitario int64
	Cantidad       int
	Descuento      int64 // item-mode discount, zero otherwise
}

// OrderPlacer submits finished carts. *catalog.Client satisfies it.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, payload core.OrderPayload) (*core.OrderResult, error)
	ProcessPaymentMP(ctx context.Context, ordenID int) (*core.PaymentInit, error)
}

// Controller is the cart and stock-reservation state machine. One instance
// per terminal session. All methods are safe for concurrent use; the
// background reconciler and the event-handling goroutine share it.
type Controller struct {
	mu sync.Mutex

	cfg    *core.Config
	logger core.Logger
	tel    core.Telemetry
	fb     core.Feedback
	prefs  core.PreferenceStore
	orders OrderPlacer

	// refresh re-fetches the catalog after a successful checkout. Wired by
	// the host so the controller does not depend on the loader.
	refresh func(ctx context.Context) error

	products []core.Product
	byID     map[int]core.Product
	stock    map[int]int // the local stock mirror

	cart []CartLine

	discountMode       DiscountMode
	discountPercentage int
	selectedItem       int // producto_id selected for item discount, 0 = none

	ready         bool
	paymentMethod string

	stockThreshold  int
	cancelThreshold func()
}

// Options configures a Controller. Zero-value fields get no-op defaults.
type Options struct {
	Config    *core.Config
	Logger    core.Logger
	Telemetry core.Telemetry
	Feedback  core.Feedback
	Prefs     core.PreferenceStore
	Orders    OrderPlacer
	// Refresh is called after a successful checkout to pull authoritative
	// post-sale stock.
	Refresh func(ctx context.Context) error
}

// NewController creates a controller for one terminal session. The
// persisted stock threshold, when present and valid, wins over the
// configured default, and later changes from other terminals are picked up
// through the preference store's change notifications.
func NewController(opts Options) (*Controller, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = core.NewConfig()
		if err != nil {
			return nil, err
		}
	}
	c := &Controller{
		cfg:            cfg,
		logger:         opts.Logger,
		tel:            opts.Telemetry,
		fb:             opts.Feedback,
		prefs:          opts.Prefs,
		orders:         opts.Orders,
		refresh:        opts.Refresh,
		byID:           make(map[int]core.Product),
		stock:          make(map[int]int),
		discountMode:   DiscountTotal,
		stockThreshold: cfg.StockThreshold,
	}
	if c.logger == nil {
		c.logger = &core.NoOpLogger{}
	}
	if c.tel == nil {
		c.tel = &core.NoOpTelemetry{}
	}
	if c.fb == nil {
		c.fb = &core.SilentFeedback{}
	}
	if c.prefs == nil {
		c.prefs = core.NewMemoryStore()
	}
	if c.refresh == nil {
		c.refresh = func(context.Context) error { return nil }
	}

	c.loadThreshold()
	c.cancelThreshold = c.prefs.OnChange(PrefStockThreshold, c.onThresholdChange)
	return c, nil
}

// Close unregisters preference listeners.
func (c *Controller) Close() {
	if c.cancelThreshold != nil {
		c.cancelThreshold()
	}
}

func (c *Controller) loadThreshold() {
	raw, err := c.prefs.Get(context.Background(), PrefStockThreshold)
	if err != nil {
		c.logger.Warn("Could not read stock threshold preference", map[string]interface{}{
			"error": err,
		})
		return
	}
	if raw == "" {
		// Write the default back so every terminal converges on one value.
		_ = c.prefs.Set(context.Background(), PrefStockThreshold, strconv.Itoa(c.stockThreshold), 0)
		return
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
		c.stockThreshold = n
	} else {
		// Invalid persisted value: drop it and restore the default.
		_ = c.prefs.Set(context.Background(), PrefStockThreshold, strconv.Itoa(c.stockThreshold), 0)
	}
}

func (c *Controller) onThresholdChange(value string) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return
	}
	c.mu.Lock()
	c.stockThreshold = n
	c.mu.Unlock()
	c.logger.Info("Stock threshold updated", map[string]interface{}{
		"threshold": n,
	})
}

// SetStockThreshold validates, applies and persists a new low-stock
// threshold. Valid range is 1-100.
func (c *Controller) SetStockThreshold(n int) error {
	if n < 1 || n > 100 {
		c.fb.Alert("Por favor ingrese un valor válido entre 1 y 100")
		return core.NewPOSError("pos.SetStockThreshold", "validation", core.ErrInvalidThreshold)
	}
	c.mu.Lock()
	c.stockThreshold = n
	c.mu.Unlock()
	return c.prefs.Set(context.Background(), PrefStockThreshold, strconv.Itoa(n), 0)
}

// StockThreshold returns the current low-stock warning level.
func (c *Controller) StockThreshold() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stockThreshold
}

// LoadProducts installs a catalog page. The first page replaces the product
// list wholesale; later pages append. The stock mirror is updated with the
// reconciliation rule either way, so units already in the cart stay
// reserved across re-fetches.
func (c *Controller) LoadProducts(products []core.Product, replace bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if replace {
		c.products = c.products[:0]
		c.byID = make(map[int]core.Product, len(products))
		c.stock = make(map[int]int, len(products))
	}
	for _, p := range products {
		if _, seen := c.byID[p.ID]; seen {
			continue
		}
		c.products = append(c.products, p)
		c.byID[p.ID] = p
		c.stock[p.ID] = p.Cantidad - c.cartQuantityLocked(p.ID)
	}
	c.logger.Debug("Catalog page loaded", map[string]interface{}{
		"count":   len(products),
		"replace": replace,
		"total":   len(c.products),
	})
}

// Reconcile merges freshly fetched authoritative quantities into the stock
// mirror without clobbering in-flight cart reservations:
//
//	mirror[id] = fetched quantity - units in cart
//
// Products absent from the fetch keep their current mirror value.
func (c *Controller) Reconcile(products []core.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range products {
		if _, known := c.byID[p.ID]; known {
			// Keep the snapshot fresh for name/price/barcode lookups too.
			for i := range c.products {
				if c.products[i].ID == p.ID {
					c.products[i] = p
					break
				}
			}
			c.byID[p.ID] = p
		} else {
			c.products = append(c.products, p)
			c.byID[p.ID] = p
		}
		c.stock[p.ID] = p.Cantidad - c.cartQuantityLocked(p.ID)
	}
}

// AddToCart reserves one unit of a product. When the mirror shows nothing
// left the operator is alerted and no state changes. Barcode auto-add and
// manual taps both land here, so both honor the same invariant.
func (c *Controller) AddToCart(id int) error {
	c.mu.Lock()

	if c.ready {
		c.mu.Unlock()
		return core.NewPOSError("pos.AddToCart", "cart", core.ErrCartLocked)
	}
	p, known := c.byID[id]
	if !known {
		c.mu.Unlock()
		return &core.POSError{Op: "pos.AddToCart", Kind: "cart", ID: strconv.Itoa(id), Err: core.ErrProductNotFound}
	}
	if c.stock[id] <= 0 {
		c.mu.Unlock()
		c.fb.Alert("No hay suficiente stock disponible")
		return &core.POSError{Op: "pos.AddToCart", Kind: "cart", ID: strconv.Itoa(id), Err: core.ErrOutOfStock}
	}

	c.stock[id]--
	if line := c.lineLocked(id); line != nil {
		line.Cantidad++
	} else {
		c.cart = append(c.cart, CartLine{
			ProductoID:     id,
			Nombre:         p.Nombre,
			PrecioUnitario: roundMoney(p.Precio),
			Cantidad:       1,
		})
	}
	c.applyDiscountLocked()
	c.mu.Unlock()

	c.tel.RecordMetric("pos.cart.add", 1, map[string]string{"producto_id": strconv.Itoa(id)})
	return nil
}

// RemoveFromCart releases one unit back to the mirror. Removing a product
// that is not in the cart is a no-op.
func (c *Controller) RemoveFromCart(id int) error {
	c.mu.Lock()

	idx := -1
	for i := range c.cart {
		if c.cart[i].ProductoID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return nil
	}

	c.stock[id]++
	c.cart[idx].Cantidad--
	if c.cart[idx].Cantidad <= 0 {
		if c.selectedItem == id {
			c.selectedItem = 0
		}
		c.cart = append(c.cart[:idx], c.cart[idx+1:]...)
	}
	c.applyDiscountLocked()
	c.mu.Unlock()

	c.tel.RecordMetric("pos.cart.remove", 1, map[string]string{"producto_id": strconv.Itoa(id)})
	return nil
}

// ClearCart asks for confirmation, then returns every reserved unit to the
// mirror in one pass, empties the cart, resets the discount state and
// disables the checkout controls pending a new ready cycle.
func (c *Controller) ClearCart() bool {
	c.mu.Lock()
	if len(c.cart) == 0 {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	if !c.fb.Confirm("¿Limpiar todo el carrito?") {
		return false
	}

	c.mu.Lock()
	for _, line := range c.cart {
		c.stock[line.ProductoID] += line.Cantidad
	}
	c.cart = nil
	c.resetDiscountLocked()
	c.ready = false
	c.paymentMethod = ""
	c.mu.Unlock()

	c.tel.RecordMetric("pos.cart.clear", 1, nil)
	return true
}

// Cart returns a copy of the cart lines.
func (c *Controller) Cart() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CartLine, len(c.cart))
	copy(out, c.cart)
	return out
}

// Stock returns the mirror's belief for one product.
func (c *Controller) Stock(id int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stock[id]
}

// Products returns a copy of the current product snapshot.
func (c *Controller) Products() []core.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Product, len(c.products))
	copy(out, c.products)
	return out
}

// FindByBarcode resolves a scanned code against the in-memory snapshot.
func (c *Controller) FindByBarcode(code string) (core.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.CodigoBarra != "" && p.CodigoBarra == code {
			return p, true
		}
	}
	return core.Product{}, false
}

func (c *Controller) lineLocked(id int) *CartLine {
	for i := range c.cart {
		if c.cart[i].ProductoID == id {
			return &c.cart[i]
		}
	}
	return nil
}

func (c *Controller) cartQuantityLocked(id int) int {
	if line := c.lineLocked(id); line != nil {
		return line.Cantidad
	}
	return 0
}
