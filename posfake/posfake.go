// Package posfake is an in-process stand-in for the POS backend, used in
// tests and dev mode. It mimics the real endpoints closely enough for the
// terminal to run a full sale against it: stock decrements on orders and
// oversells come back as 400s with a detail message.
package posfake

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/puntoventa/poskit/core"
)

// Server is the fake backend. All state is in memory and guarded by one
// mutex; test servers see little concurrency.
type Server struct {
	mu         sync.Mutex
	products   map[int]*core.Product
	nextOrden  int
	orders     []core.OrderPayload
	pings      int
	httpServer *httptest.Server
}

// New starts a fake backend seeded with the given products. Close it when
// the test ends.
func New(products []core.Product) *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		products:  make(map[int]*core.Product),
		nextOrden: 1,
	}
	for i := range products {
		p := products[i]
		s.products[p.ID] = &p
	}

	router := gin.New()
	router.GET("/pos/products", s.handleProducts)
	router.GET("/pos/search", s.handleSearch)
	router.POST("/pos/order", s.handleOrder)
	router.POST("/pos/process-payment-mp", s.handlePaymentMP)
	router.POST("/pos/keep-alive", s.handleKeepAlive)

	s.httpServer = httptest.NewServer(router)
	return s
}

// URL is the base URL to point the client config at.
func (s *Server) URL() string { return s.httpServer.URL }

// Close shuts the server down.
func (s *Server) Close() { s.httpServer.Close() }

// Orders returns every payload accepted so far.
func (s *Server) Orders() []core.OrderPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.OrderPayload, len(s.orders))
	copy(out, s.orders)
	return out
}

// Pings returns how many keep-alive calls arrived.
func (s *Server) Pings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

// Stock returns the current server-side quantity for a product.
func (s *Server) Stock(id int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		return p.Cantidad
	}
	return 0
}

// SetStock changes a product's quantity, simulating sales from another
// terminal.
func (s *Server) SetStock(id, cantidad int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		p.Cantidad = cantidad
	}
}

func (s *Server) snapshot(filter string) []core.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	filter = strings.ToLower(filter)
	var out []core.Product
	for _, p := range s.products {
		if filter != "" &&
			!strings.Contains(strings.ToLower(p.Nombre), filter) &&
			!strings.Contains(p.CodigoBarra, filter) {
			continue
		}
		out = append(out, *p)
	}
	return out
}

func (s *Server) handleProducts(c *gin.Context) {
	products := s.snapshot(c.Query("q"))
	sortByID(products)

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	if skip >= len(products) {
		c.JSON(http.StatusOK, []core.Product{})
		return
	}
	products = products[skip:]
	if limit > 0 && limit < len(products) {
		products = products[:limit]
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) handleSearch(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "q es requerido"})
		return
	}
	products := s.snapshot(q)
	sortByID(products)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if limit > 0 && limit < len(products) {
		products = products[:limit]
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) handleOrder(c *gin.Context) {
	var payload core.OrderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "payload inválido"})
		return
	}
	if payload.MetodoPago == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "metodo_pago es requerido"})
		return
	}
	if len(payload.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "la orden no tiene items"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole order before touching stock.
	for _, item := range payload.Items {
		p, ok := s.products[item.ProductoID]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"detail": fmt.Sprintf("Producto %d no existe", item.ProductoID),
			})
			return
		}
		if item.Cantidad > p.Cantidad {
			c.JSON(http.StatusBadRequest, gin.H{
				"detail": "Stock insuficiente para producto " + p.Nombre,
			})
			return
		}
	}

	var total float64
	for _, item := range payload.Items {
		p := s.products[item.ProductoID]
		p.Cantidad -= item.Cantidad
		total += p.Precio * float64(item.Cantidad)
	}
	total -= float64(payload.Descuento)

	s.orders = append(s.orders, payload)
	ordenID := s.nextOrden
	s.nextOrden++

	c.JSON(http.StatusOK, core.OrderResult{ID: ordenID, Total: total})
}

func (s *Server) handlePaymentMP(c *gin.Context) {
	var body struct {
		OrdenID int `json:"orden_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.OrdenID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "orden_id es requerido"})
		return
	}
	c.JSON(http.StatusOK, core.PaymentInit{
		InitPoint: fmt.Sprintf("https://mp.example/init/%d", body.OrdenID),
	})
}

func (s *Server) handleKeepAlive(c *gin.Context) {
	s.mu.Lock()
	s.pings++
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func sortByID(products []core.Product) {
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
}
