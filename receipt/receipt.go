// Package receipt renders the ticket PDF handed to the customer after a
// sale closes.
package receipt

import (
	"fmt"
	"strconv"
	"time"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"

	"github.com/puntoventa/poskit/core"
	"github.com/puntoventa/poskit/pos"
)

// Line is one sold item on the ticket.
type Line struct {
	Nombre    string
	Cantidad  int
	Unitario  int64
	Descuento int64
}

// Ticket is everything printed on a receipt.
type Ticket struct {
	OrdenID    int
	Terminal   string
	Fecha      time.Time
	MetodoPago string
	Lines      []Line
	Subtotal   int64
	Descuento  int64
	Total      int64
}

// FromCheckout builds a Ticket from the checkout result and the cart lines
// captured before Checkout cleared them.
func FromCheckout(result *pos.CheckoutResult, lines []pos.CartLine, metodoPago, terminal string, at time.Time) Ticket {
	t := Ticket{
		OrdenID:    result.Order.ID,
		Terminal:   terminal,
		Fecha:      at,
		MetodoPago: metodoPago,
		Subtotal:   result.Subtotal,
		Descuento:  result.Descuento,
		Total:      result.Subtotal - result.Descuento,
	}
	for _, line := range lines {
		t.Lines = append(t.Lines, Line{
			Nombre:    line.Nombre,
			Cantidad:  line.Cantidad,
			Unitario:  line.PrecioUnitario,
			Descuento: line.Descuento,
		})
	}
	return t
}

// Render produces the receipt PDF. currency is the display code from the
// terminal config.
func Render(ticket Ticket, currency string) ([]byte, error) {
	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetPageMargins(20, 20, 20)

	dark := color.Color{Red: 38, Green: 38, Blue: 34}
	gray := color.Color{Red: 121, Green: 119, Blue: 109}

	m.Row(15, func() {
		m.Col(12, func() {
			m.Text("COMPROBANTE DE VENTA", props.Text{
				Size:  20,
				Style: consts.Bold,
				Color: dark,
			})
		})
	})

	m.Row(6, func() {
		m.Col(6, func() {
			m.Text(fmt.Sprintf("Orden #%d", ticket.OrdenID), props.Text{
				Size:  11,
				Style: consts.Bold,
				Color: dark,
			})
		})
		m.Col(6, func() {
			m.Text(ticket.Fecha.Format("02/01/2006 15:04"), props.Text{
				Size:  10,
				Color: gray,
				Align: consts.Right,
			})
		})
	})

	m.Row(5, func() {
		m.Col(6, func() {
			m.Text("Terminal: "+ticket.Terminal, props.Text{
				Size:  9,
				Color: gray,
			})
		})
		m.Col(6, func() {
			m.Text("Pago: "+ticket.MetodoPago, props.Text{
				Size:  9,
				Color: gray,
				Align: consts.Right,
			})
		})
	})

	m.Row(8, func() {})

	m.Row(6, func() {
		m.Col(6, func() {
			m.Text("Producto", props.Text{Size: 8, Style: consts.Bold, Color: dark})
		})
		m.Col(2, func() {
			m.Text("Cant.", props.Text{Size: 8, Style: consts.Bold, Color: dark, Align: consts.Right})
		})
		m.Col(2, func() {
			m.Text("Precio", props.Text{Size: 8, Style: consts.Bold, Color: dark, Align: consts.Right})
		})
		m.Col(2, func() {
			m.Text("Total", props.Text{Size: 8, Style: consts.Bold, Color: dark, Align: consts.Right})
		})
	})

	for _, line := range ticket.Lines {
		line := line
		total := line.Unitario*int64(line.Cantidad) - line.Descuento
		m.Row(6, func() {
			m.Col(6, func() {
				m.Text(line.Nombre, props.Text{Size: 9, Color: dark})
			})
			m.Col(2, func() {
				m.Text(strconv.Itoa(line.Cantidad), props.Text{Size: 9, Color: dark, Align: consts.Right})
			})
			m.Col(2, func() {
				m.Text(pos.FormatCurrency(line.Unitario, currency), props.Text{Size: 9, Color: dark, Align: consts.Right})
			})
			m.Col(2, func() {
				m.Text(pos.FormatCurrency(total, currency), props.Text{Size: 9, Color: dark, Align: consts.Right})
			})
		})
		if line.Descuento > 0 {
			m.Row(4, func() {
				m.Col(6, func() {
					m.Text("  descuento", props.Text{Size: 8, Color: gray})
				})
				m.Col(6, func() {
					m.Text("-"+pos.FormatCurrency(line.Descuento, currency), props.Text{Size: 8, Color: gray, Align: consts.Right})
				})
			})
		}
	}

	m.Row(8, func() {})

	m.Row(5, func() {
		m.Col(8, func() {})
		m.Col(2, func() {
			m.Text("Subtotal", props.Text{Size: 9, Color: gray, Align: consts.Right})
		})
		m.Col(2, func() {
			m.Text(pos.FormatCurrency(ticket.Subtotal, currency), props.Text{Size: 9, Color: dark, Align: consts.Right})
		})
	})

	if ticket.Descuento > 0 {
		m.Row(5, func() {
			m.Col(8, func() {})
			m.Col(2, func() {
				m.Text("Descuento", props.Text{Size: 9, Color: gray, Align: consts.Right})
			})
			m.Col(2, func() {
				m.Text("-"+pos.FormatCurrency(ticket.Descuento, currency), props.Text{Size: 9, Color: dark, Align: consts.Right})
			})
		})
	}

	m.Row(8, func() {
		m.Col(8, func() {})
		m.Col(2, func() {
			m.Text("Total", props.Text{Size: 12, Style: consts.Bold, Color: dark, Align: consts.Right})
		})
		m.Col(2, func() {
			m.Text(pos.FormatCurrency(ticket.Total, currency), props.Text{Size: 12, Style: consts.Bold, Color: dark, Align: consts.Right})
		})
	})

	m.Row(12, func() {})

	m.Row(5, func() {
		m.Col(12, func() {
			m.Text("¡Gracias por su compra!", props.Text{Size: 8, Style: consts.Bold, Color: dark})
		})
	})

	buf, err := m.Output()
	if err != nil {
		return nil, fmt.Errorf("render receipt for orden %d: %w", ticket.OrdenID, err)
	}
	return buf.Bytes(), nil
}

// RenderFromConfig is a convenience wrapper using the terminal config for
// currency and terminal name.
func RenderFromConfig(cfg *core.Config, result *pos.CheckoutResult, lines []pos.CartLine, metodoPago string, at time.Time) ([]byte, error) {
	ticket := FromCheckout(result, lines, metodoPago, cfg.TerminalName, at)
	return Render(ticket, cfg.Currency)
}
