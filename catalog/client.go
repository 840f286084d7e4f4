// Package catalog talks to the server-owned /pos endpoints and feeds the
// cart controller: paged product loads, the fast-path search with its
// debounce and cache, and the background stock reconciler.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/puntoventa/poskit/core"
)

// Client is the HTTP client for the POS backend. It is advisory-only: the
// server recomputes pricing and stock on every order.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     core.Logger
	tel        core.Telemetry
	// session identifies this terminal process across requests.
	session string
}

// ClientOptions configures a Client. HTTPClient is where a traced client
// from the telemetry package plugs in.
type ClientOptions struct {
	HTTPClient *http.Client
	Logger     core.Logger
	Telemetry  core.Telemetry
}

// NewClient creates a client for the backend rooted at cfg.BaseURL.
func NewClient(cfg *core.Config, opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = &core.NoOpTelemetry{}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		tel:        tel,
		session:    uuid.New().String(),
	}
}

// Products fetches a catalog page. q filters server-side; skip/limit page
// through large catalogs. Zero limit means the server default.
func (c *Client) Products(ctx context.Context, q string, skip, limit int) ([]core.Product, error) {
	ctx, span := c.tel.StartSpan(ctx, "catalog.products")
	defer span.End()
	span.SetAttribute("catalog.skip", skip)
	span.SetAttribute("catalog.limit", limit)

	params := url.Values{}
	if q != "" {
		params.Set("q", q)
	}
	if skip > 0 {
		params.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var products []core.Product
	if err := c.get(ctx, "/pos/products", params, &products); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return products, nil
}

// Search is the fast-path search endpoint: smaller payload, server-side
// filtering, meant for live typing.
func (c *Client) Search(ctx context.Context, q string, limit int) ([]core.Product, error) {
	ctx, span := c.tel.StartSpan(ctx, "catalog.search")
	defer span.End()
	span.SetAttribute("catalog.limit", limit)

	params := url.Values{}
	params.Set("q", q)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var products []core.Product
	if err := c.get(ctx, "/pos/search", params, &products); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return products, nil
}

// CreateOrder POSTs a finished cart. A non-2xx answer surfaces the server's
// detail text so the operator sees it verbatim.
func (c *Client) CreateOrder(ctx context.Context, payload core.OrderPayload) (*core.OrderResult, error) {
	ctx, span := c.tel.StartSpan(ctx, "catalog.create_order")
	defer span.End()
	span.SetAttribute("order.items", len(payload.Items))

	var result core.OrderResult
	if err := c.post(ctx, "/pos/order", payload, &result); err != nil {
		span.RecordError(err)
		return nil, err
	}
	c.logger.Info("Order created", map[string]interface{}{
		"orden_id": result.ID,
		"total":    result.Total,
	})
	return &result, nil
}

// ProcessPaymentMP starts the external payment flow for an order and
// returns the redirect URL.
func (c *Client) ProcessPaymentMP(ctx context.Context, ordenID int) (*core.PaymentInit, error) {
	ctx, span := c.tel.StartSpan(ctx, "catalog.process_payment_mp")
	defer span.End()
	span.SetAttribute("orden_id", ordenID)

	body := map[string]int{"orden_id": ordenID}
	var init core.PaymentInit
	if err := c.post(ctx, "/pos/process-payment-mp", body, &init); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if init.InitPoint == "" {
		return nil, &core.POSError{
			Op:      "catalog.ProcessPaymentMP",
			Kind:    "payment",
			ID:      strconv.Itoa(ordenID),
			Message: "respuesta sin init_point",
			Err:     core.ErrRequestFailed,
		}
	}
	return &init, nil
}

// KeepAlive touches the server session so it does not lapse while the
// terminal idles between sales.
func (c *Client) KeepAlive(ctx context.Context) error {
	return c.post(ctx, "/pos/keep-alive", struct{}{}, nil)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &core.POSError{Op: "catalog.get", Kind: "http", Err: err}
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return &core.POSError{Op: "catalog.post", Kind: "http", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return &core.POSError{Op: "catalog.post", Kind: "http", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	// One id per submission lets the server spot duplicate retries.
	req.Header.Set("X-Request-ID", uuid.New().String())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("X-Terminal-Session", c.session)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Request failed", map[string]interface{}{
			"url":   req.URL.String(),
			"error": err,
		})
		return &core.POSError{Op: "catalog." + req.Method, Kind: "http", Err: fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)}
	}
	defer resp.Body.Close()

	c.tel.RecordMetric("catalog.request.duration_ms", float64(time.Since(start).Milliseconds()), map[string]string{
		"path":   req.URL.Path,
		"status": strconv.Itoa(resp.StatusCode),
	})

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &core.POSError{Op: "catalog." + req.Method, Kind: "http", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.serverError(req, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &core.POSError{Op: "catalog." + req.Method, Kind: "http", Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// serverError turns a non-2xx answer into a POSError carrying the server's
// own detail message when there is one.
func (c *Client) serverError(req *http.Request, status int, body []byte) error {
	detail := struct {
		Detail string `json:"detail"`
	}{}
	_ = json.Unmarshal(body, &detail)
	if detail.Detail == "" {
		detail.Detail = fmt.Sprintf("HTTP %d", status)
	}

	kind := core.ErrRequestFailed
	if strings.HasSuffix(req.URL.Path, "/order") {
		kind = core.ErrOrderRejected
	}
	c.logger.Warn("Server rejected request", map[string]interface{}{
		"url":    req.URL.String(),
		"status": status,
		"detail": detail.Detail,
	})
	return &core.POSError{
		Op:      "catalog." + req.Method,
		Kind:    "http",
		ID:      strconv.Itoa(status),
		Message: detail.Detail,
		Err:     kind,
	}
}
