package pos

import (
	"sort"
	"strconv"
	"strings"

	"github.com/puntoventa/poskit/core"
)

// View models. Rendering is a pure function of controller state: the host
// UI takes these structs and paints them however it likes. Every mutating
// operation is expected to be followed by a fresh render of the affected
// section; there is no diffing, which is fine at catalog sizes of tens to
// low hundreds of items.

// StockLevel classifies a product's mirror quantity against the threshold.
type StockLevel string

const (
	StockOut StockLevel = "out"
	StockLow StockLevel = "low"
	StockOK  StockLevel = "ok"
)

// ProductCard is one product button of the catalog grid.
type ProductCard struct {
	ID         int
	Nombre     string
	PriceLabel string
	Stock      int
	StockLabel string
	Level      StockLevel
	Disabled   bool
}

// CategorySection groups cards under a category heading.
type CategorySection struct {
	Nombre string
	Cards  []ProductCard
}

// CategoryOption is one entry of the category filter dropdown.
type CategoryOption struct {
	Nombre string
	Count  int
}

// CatalogView is the rendered product grid plus the filter options.
type CatalogView struct {
	Sections   []CategorySection
	Categories []CategoryOption
}

// CartRow is one rendered cart line.
type CartRow struct {
	ProductoID    int
	Nombre        string
	Cantidad      int
	UnitLabel     string
	TotalLabel    string
	DiscountLabel string // empty when no per-line discount
	Selected      bool   // highlighted for the item-mode discount
}

// CartView is the rendered cart panel with its control states.
type CartView struct {
	Rows          []CartRow
	Empty         bool
	SubtotalLabel string
	DiscountLabel string
	TotalLabel    string

	ReadyEnabled    bool
	PaymentEnabled  bool
	CheckoutEnabled bool
}

// RenderCatalog builds the product grid view, filtered by a free-text term
// (matched against name, barcode and category, case-insensitive) and an
// optional exact category. Empty filters show everything grouped by
// category, categories sorted alphabetically.
func (c *Controller) RenderCatalog(term, category string) CatalogView {
	c.mu.Lock()
	defer c.mu.Unlock()

	term = strings.ToLower(strings.TrimSpace(term))

	byCat := make(map[string][]core.Product)
	counts := make(map[string]int)
	for _, p := range c.products {
		cat := p.CategoryName()
		counts[cat]++
		if term != "" && !matches(p, term) {
			continue
		}
		if category != "" && cat != category {
			continue
		}
		byCat[cat] = append(byCat[cat], p)
	}

	view := CatalogView{}

	catNames := make([]string, 0, len(counts))
	for name := range counts {
		catNames = append(catNames, name)
	}
	sort.Strings(catNames)
	for _, name := range catNames {
		view.Categories = append(view.Categories, CategoryOption{Nombre: name, Count: counts[name]})
	}

	sectionNames := make([]string, 0, len(byCat))
	for name := range byCat {
		sectionNames = append(sectionNames, name)
	}
	sort.Strings(sectionNames)
	for _, name := range sectionNames {
		section := CategorySection{Nombre: name}
		for _, p := range byCat[name] {
			section.Cards = append(section.Cards, c.cardLocked(p))
		}
		view.Sections = append(view.Sections, section)
	}
	return view
}

func matches(p core.Product, term string) bool {
	if strings.Contains(strings.ToLower(p.Nombre), term) {
		return true
	}
	if p.CodigoBarra != "" && strings.Contains(strings.ToLower(p.CodigoBarra), term) {
		return true
	}
	return strings.Contains(strings.ToLower(p.CategoryName()), term)
}

func (c *Controller) cardLocked(p core.Product) ProductCard {
	stock := c.stock[p.ID]
	card := ProductCard{
		ID:         p.ID,
		Nombre:     p.Nombre,
		PriceLabel: FormatCurrency(roundMoney(p.Precio), c.cfg.Currency),
		Stock:      stock,
		Disabled:   stock <= 0 || c.ready,
	}
	switch {
	case stock <= 0:
		card.Level = StockOut
		card.StockLabel = "Sin stock"
	case stock <= c.stockThreshold:
		card.Level = StockLow
		card.StockLabel = "Stock bajo: " + strconv.Itoa(stock)
	default:
		card.Level = StockOK
		card.StockLabel = "Stock: " + strconv.Itoa(stock)
	}
	return card
}

// RenderCart builds the cart panel view.
func (c *Controller) RenderCart() CartView {
	c.mu.Lock()
	defer c.mu.Unlock()

	subtotal, discount := c.totalsLocked()
	view := CartView{
		Empty:           len(c.cart) == 0,
		SubtotalLabel:   FormatCurrency(subtotal, c.cfg.Currency),
		DiscountLabel:   FormatCurrency(discount, c.cfg.Currency),
		TotalLabel:      FormatCurrency(subtotal-discount, c.cfg.Currency),
		ReadyEnabled:    len(c.cart) > 0 && !c.ready,
		PaymentEnabled:  c.ready,
		CheckoutEnabled: c.ready && c.paymentMethod != "",
	}

	for _, line := range c.cart {
		lineTotal := line.PrecioUnitario * int64(line.Cantidad)
		row := CartRow{
			ProductoID: line.ProductoID,
			Nombre:     line.Nombre,
			Cantidad:   line.Cantidad,
			UnitLabel:  FormatCurrency(line.PrecioUnitario, c.cfg.Currency),
			TotalLabel: FormatCurrency(lineTotal-line.Descuento, c.cfg.Currency),
			Selected:   c.discountMode == DiscountItem && c.selectedItem == line.ProductoID,
		}
		if line.Descuento > 0 {
			row.DiscountLabel = "-" + FormatCurrency(line.Descuento, c.cfg.Currency)
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}
