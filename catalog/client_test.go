package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntoventa/poskit/core"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg, err := core.NewConfig(core.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return NewClient(cfg, ClientOptions{}), srv
}

func TestProductsSendsPagingParams(t *testing.T) {
	var gotQuery map[string][]string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode([]core.Product{
			{ID: 1, Nombre: "Pan", Precio: 1000, Cantidad: 5},
		})
	}))

	products, err := client.Products(context.Background(), "pan", 40, 20)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Pan", products[0].Nombre)
	assert.Equal(t, []string{"pan"}, gotQuery["q"])
	assert.Equal(t, []string{"40"}, gotQuery["skip"])
	assert.Equal(t, []string{"20"}, gotQuery["limit"])
}

func TestProductsOmitsEmptyParams(t *testing.T) {
	var gotQuery map[string][]string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode([]core.Product{})
	}))

	_, err := client.Products(context.Background(), "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, gotQuery)
}

func TestSearchHitsFastPath(t *testing.T) {
	var gotPath string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode([]core.Product{{ID: 2, Nombre: "Leche"}})
	}))

	products, err := client.Search(context.Background(), "lec", 10)
	require.NoError(t, err)
	assert.Equal(t, "/pos/search", gotPath)
	require.Len(t, products, 1)
}

func TestCreateOrderSendsPayloadAndRequestID(t *testing.T) {
	var gotPayload core.OrderPayload
	var gotRequestID string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pos/order", r.URL.Path)
		gotRequestID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		json.NewEncoder(w).Encode(core.OrderResult{ID: 7, Total: 1800})
	}))

	payload := core.OrderPayload{
		Items:      []core.OrderItem{{ProductoID: 1, Cantidad: 2}},
		MetodoPago: "efectivo",
		Subtotal:   2000,
		Descuento:  200,
	}
	result, err := client.CreateOrder(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, 7, result.ID)
	assert.Equal(t, payload, gotPayload)
	assert.NotEmpty(t, gotRequestID)
}

func TestCreateOrderSurfacesServerDetail(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"detail": "Stock insuficiente para producto Pan",
		})
	}))

	_, err := client.CreateOrder(context.Background(), core.OrderPayload{MetodoPago: "efectivo"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrOrderRejected))

	var posErr *core.POSError
	require.True(t, errors.As(err, &posErr))
	assert.Equal(t, "Stock insuficiente para producto Pan", posErr.Message)
}

func TestNonOrderErrorIsRequestFailed(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("not json"))
	}))

	_, err := client.Products(context.Background(), "", 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRequestFailed))

	var posErr *core.POSError
	require.True(t, errors.As(err, &posErr))
	assert.Equal(t, "HTTP 500", posErr.Message)
}

func TestConnectionFailure(t *testing.T) {
	cfg, err := core.NewConfig(core.WithBaseURL("http://127.0.0.1:1"))
	require.NoError(t, err)
	client := NewClient(cfg, ClientOptions{})

	_, err = client.Products(context.Background(), "", 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConnectionFailed))
}

func TestProcessPaymentMP(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pos/process-payment-mp", r.URL.Path)
		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, 42, body["orden_id"])
		json.NewEncoder(w).Encode(core.PaymentInit{InitPoint: "https://mp.example/init/42"})
	}))

	init, err := client.ProcessPaymentMP(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "https://mp.example/init/42", init.InitPoint)
}

func TestProcessPaymentMPMissingInitPoint(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))

	_, err := client.ProcessPaymentMP(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRequestFailed))
}
