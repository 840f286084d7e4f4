package pos

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/puntoventa/poskit/core"
)

// PaymentMercadoPago is the payment method that needs the extra
// process-payment call for its redirect URL.
const PaymentMercadoPago = "mercadopago"

// Ready locks product selection and enables the payment-method selector.
// It is the first half of the two-step checkout gate.
func (c *Controller) Ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cart) == 0 {
		c.fb.Alert("El carrito está vacío")
		return core.NewPOSError("pos.Ready", "checkout", core.ErrCartEmpty)
	}
	c.ready = true
	return nil
}

// IsReady reports whether the ready gate has been passed.
func (c *Controller) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// SetPaymentMethod picks the payment method. Only available after Ready.
func (c *Controller) SetPaymentMethod(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready {
		return core.NewPOSError("pos.SetPaymentMethod", "checkout", core.ErrCartNotReady)
	}
	c.paymentMethod = method
	return nil
}

// PaymentMethod returns the chosen payment method, empty when none.
func (c *Controller) PaymentMethod() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paymentMethod
}

// CheckoutResult is what a successful checkout hands back to the host UI.
type CheckoutResult struct {
	Order     core.OrderResult
	Subtotal  int64
	Descuento int64
	// InitPoint is the external payment redirect URL, set only for the
	// mercadopago method.
	InitPoint string
}

// BuildPayload serializes the current cart and discount state into the
// order body. Exposed separately so hosts can inspect what would be sent.
func (c *Controller) BuildPayload() core.OrderPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildPayloadLocked()
}

func (c *Controller) buildPayloadLocked() core.OrderPayload {
	subtotal, discount := c.totalsLocked()

	items := make([]core.OrderItem, 0, len(c.cart))
	for _, line := range c.cart {
		descuento := int64(0)
		if c.discountMode == DiscountItem {
			descuento = line.Descuento
		}
		items = append(items, core.OrderItem{
			ProductoID: line.ProductoID,
			Cantidad:   line.Cantidad,
			Descuento:  descuento,
		})
	}

	porcentaje := 0
	if c.discountMode == DiscountTotal {
		porcentaje = c.discountPercentage
	}

	return core.OrderPayload{
		Items:               items,
		MetodoPago:          c.paymentMethod,
		Subtotal:            subtotal,
		Descuento:           discount,
		DescuentoPorcentaje: porcentaje,
	}
}

// Checkout submits the order. It requires the full gate: Ready passed and a
// payment method chosen. On success the cart and discount state reset and
// the catalog refresh runs so the mirror picks up authoritative post-sale
// stock. On failure the server's error detail is surfaced verbatim and the
// cart is left untouched so the operator can retry or adjust.
func (c *Controller) Checkout(ctx context.Context) (*CheckoutResult, error) {
	ctx, span := c.tel.StartSpan(ctx, "pos.checkout")
	defer span.End()

	c.mu.Lock()
	if len(c.cart) == 0 {
		c.mu.Unlock()
		return nil, core.NewPOSError("pos.Checkout", "checkout", core.ErrCartEmpty)
	}
	if !c.ready {
		c.mu.Unlock()
		return nil, core.NewPOSError("pos.Checkout", "checkout", core.ErrCartNotReady)
	}
	if c.paymentMethod == "" {
		c.mu.Unlock()
		return nil, core.NewPOSError("pos.Checkout", "checkout", core.ErrNoPaymentMethod)
	}
	payload := c.buildPayloadLocked()
	method := c.paymentMethod
	c.mu.Unlock()

	span.SetAttribute("pos.items", len(payload.Items))
	span.SetAttribute("pos.subtotal", payload.Subtotal)
	span.SetAttribute("pos.metodo_pago", method)

	c.fb.ShowLoading("Procesando orden")
	defer c.fb.HideLoading()

	order, err := c.orders.CreateOrder(ctx, payload)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("Order submission failed", map[string]interface{}{
			"error": err,
			"items": len(payload.Items),
		})
		// The cart survives a rejected checkout.
		c.fb.Alert(fmt.Sprintf("❌ %s", serverDetail(err)))
		return nil, err
	}

	result := &CheckoutResult{
		Order:     *order,
		Subtotal:  payload.Subtotal,
		Descuento: payload.Descuento,
	}

	if method == PaymentMercadoPago {
		init, err := c.orders.ProcessPaymentMP(ctx, order.ID)
		if err != nil {
			// The order exists; only the redirect failed. Surface it but do
			// not resurrect the cart.
			span.RecordError(err)
			c.logger.Error("Payment init failed", map[string]interface{}{
				"orden_id": order.ID,
				"error":    err,
			})
		} else {
			result.InitPoint = init.InitPoint
		}
	}

	c.mu.Lock()
	c.cart = nil
	c.resetDiscountLocked()
	c.ready = false
	c.paymentMethod = ""
	c.mu.Unlock()

	c.tel.RecordMetric("pos.checkout.completed", 1, map[string]string{
		"metodo_pago": method,
	})
	c.logger.Info("Order registered", map[string]interface{}{
		"orden_id":  order.ID,
		"total":     order.Total,
		"descuento": payload.Descuento,
	})

	if err := c.refresh(ctx); err != nil {
		c.logger.Warn("Post-checkout catalog refresh failed", map[string]interface{}{
			"error": err,
		})
	}
	return result, nil
}

// serverDetail extracts the user-facing message from an error chain,
// preferring the server's own detail text.
func serverDetail(err error) string {
	var posErr *core.POSError
	if errors.As(err, &posErr) && posErr.Message != "" {
		return posErr.Message
	}
	return err.Error()
}

// ConfirmationMessage builds the operator-facing summary shown after a
// successful checkout.
func (c *Controller) ConfirmationMessage(res *CheckoutResult) string {
	msg := "✅ Orden #" + strconv.Itoa(res.Order.ID) + " registrada\n"
	if res.Descuento > 0 {
		msg += "Subtotal: " + FormatCurrency(res.Subtotal, c.cfg.Currency) + "\n"
		msg += "Descuento: -" + FormatCurrency(res.Descuento, c.cfg.Currency) + "\n"
	}
	msg += "Total: " + FormatCurrency(roundMoney(res.Order.Total), c.cfg.Currency)
	return msg
}
