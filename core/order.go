package core

// OrderItem is one line of an order submission.
type OrderItem struct {
	ProductoID int   `json:"producto_id"`
	Cantidad   int   `json:"cantidad"`
	Descuento  int64 `json:"descuento"`
}

// OrderPayload is the body POSTed to /pos/order. The server recomputes
// pricing and stock; everything here is advisory.
type OrderPayload struct {
	Items               []OrderItem `json:"items"`
	MetodoPago          string      `json:"metodo_pago"`
	Subtotal            int64       `json:"subtotal"`
	Descuento           int64       `json:"descuento"`
	DescuentoPorcentaje int         `json:"descuento_porcentaje"`
}

// OrderResult is the server's answer to a successful order submission.
type OrderResult struct {
	ID    int     `json:"id"`
	Total float64 `json:"total"`
}

// PaymentInit is the answer to /pos/process-payment-mp: the external
// payment redirect URL.
type PaymentInit struct {
	InitPoint string `json:"init_point"`
}
