package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/customer-wishlist/pkg/config"
	"github.com/angelmondragon/customer-wishlist/pkg/enums"
	pkgerrors "github.com/angelmondragon/customer-wishlist/pkg/errors"
	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout = 5 * time.Second
	productPath    = "/wp-json/wc/v3/products/%d"
	cartAddPath    = "/wp-json/wc/store/v1/cart/add-item"

	// CartTokenHeader carries the shopper's Store API cart session.
	CartTokenHeader = "Cart-Token"
)

// Client talks to the WooCommerce REST and Store APIs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	maxRetries     uint64
	initialBackoff time.Duration
}

// Option configures an optional Client setting.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the store base URL (useful for tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithInitialBackoff overrides the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.initialBackoff = d
		}
	}
}

// NewClient returns a client for the configured store.
func NewClient(cfg config.WooCommerceConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "woocommerce base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	client := &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		consumerKey:    strings.TrimSpace(cfg.ConsumerKey),
		consumerSecret: strings.TrimSpace(cfg.ConsumerSecret),
		maxRetries:     uint64(retries),
		initialBackoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Product is the subset of the catalog record the wishlist needs.
type Product struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Type              enums.ProductType `json:"type"`
	ParentID          int64             `json:"parent_id"`
	Permalink         string            `json:"permalink"`
	Purchasable       bool              `json:"purchasable"`
	StockStatus       enums.StockStatus `json:"stock_status"`
	BackordersAllowed bool              `json:"backorders_allowed"`
	Variations        []int64           `json:"variations"`
	Attributes        []Attribute       `json:"attributes"`
}

// Attribute is a variation's chosen option. Variable parents report
// Options instead of Option.
type Attribute struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Option  string   `json:"option,omitempty"`
	Options []string `json:"options,omitempty"`
}

// IsVariation reports whether the product is a child of a variable product.
func (p *Product) IsVariation() bool {
	return p.Type == enums.ProductTypeVariation && p.ParentID > 0
}

// CanBeBought reports whether the product can be placed in a cart right now.
func (p *Product) CanBeBought() bool {
	if !p.Purchasable {
		return false
	}
	return p.StockStatus.InStock() || p.BackordersAllowed
}

// GetProduct fetches a product or variation by id. A missing product maps to
// CodeNotFound; transport failures and 5xx responses are retried.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}

	endpoint := c.buildURL(fmt.Sprintf(productPath, id))
	var product Product

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build product request"))
		}
		req.Header.Set("Accept", "application/json")
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute product request"))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute product request")
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
		case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
			return statusError(resp, "product request failed")
		default:
			return backoff.Permanent(statusError(resp, "product request failed"))
		}

		if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
			return backoff.Permanent(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product response"))
		}
		return nil
	}

	if err := backoff.Retry(operation, c.retryPolicy(ctx)); err != nil {
		return nil, err
	}
	return &product, nil
}

// CartItem is one line added through the Store API.
type CartItem struct {
	ProductID   int64
	VariationID int64
	Quantity    int
	Variation   map[string]string
}

type cartVariation struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

type cartAddRequest struct {
	ID        int64           `json:"id"`
	Quantity  int             `json:"quantity"`
	Variation []cartVariation `json:"variation,omitempty"`
}

// AddToCart adds the item to the cart identified by cartToken. Adding to a
// cart is not idempotent so the request is never retried.
func (c *Client) AddToCart(ctx context.Context, cartToken string, item CartItem) error {
	if item.ProductID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	body := cartAddRequest{ID: item.ProductID, Quantity: quantity}
	if item.VariationID > 0 {
		body.ID = item.VariationID
	}
	attrs := make([]string, 0, len(item.Variation))
	for attr := range item.Variation {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	for _, attr := range attrs {
		body.Variation = append(body.Variation, cartVariation{Attribute: attr, Value: item.Variation[attr]})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(cartAddPath), bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := strings.TrimSpace(cartToken); token != "" {
		req.Header.Set(CartTokenHeader, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute cart request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return pkgerrors.New(pkgerrors.CodeConflict, "cart rejected the item").
				WithDetails(map[string]any{"status": resp.StatusCode, "body": strings.TrimSpace(string(body))})
		}
		return statusError(resp, "cart request failed")
	}
	return nil
}

func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.MaxInterval = 2 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)
}

func (c *Client) authorize(req *http.Request) {
	if c.consumerKey == "" {
		return
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)
}

func (c *Client) buildURL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func statusError(resp *http.Response, message string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), message)
}

