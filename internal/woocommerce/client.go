// Package woocommerce is a thin stateful client for the storefront's
// REST v3 product API: SKU lookup, create, update, and their batch
// variants with per-item outcomes. Every call goes through one shared
// rate limiter and the injected retry policy.
package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mytua/wcsync/internal/retry"
	"github.com/mytua/wcsync/pkg/models"
)

const (
	apiBase = "/wp-json/wc/v3"

	// batchChunk is the number of items per batch request. The API
	// accepts up to 100 but large chunks time out on shared hosting.
	batchChunk = 25
)

// Config holds the storefront API settings.
type Config struct {
	URL            string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration

	// RequestsPerSecond throttles outgoing calls; 0 means the default
	// of 2 rps.
	RequestsPerSecond float64
}

// Client is the catalog API wrapper. Construct once per run.
type Client struct {
	http    *http.Client
	baseURL string
	key     string
	secret  string
	limiter *rate.Limiter
	policy  retry.Policy

	categories map[string]int64
}

// New validates the config and builds a client. No network activity
// happens here.
func New(cfg Config, policy retry.Policy) (*Client, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil, fmt.Errorf("storefront url not configured")
	}
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, fmt.Errorf("storefront API credentials not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		baseURL:    base + apiBase,
		key:        cfg.ConsumerKey,
		secret:     cfg.ConsumerSecret,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		policy:     policy.WithRetryable(IsRetryable),
		categories: make(map[string]int64),
	}, nil
}

// Ping verifies connectivity and credentials without touching catalog
// state.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/products", url.Values{"per_page": {"1"}}, nil)
	return err
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// FindBySKU returns the catalog entry for a SKU, or ErrNotFound.
func (c *Client) FindBySKU(ctx context.Context, sku string) (*models.CatalogEntry, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/products", url.Values{"sku": {sku}}, nil)
	if err != nil {
		return nil, err
	}

	var products []wcProduct
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("decode product lookup: %w", err)
	}
	for _, p := range products {
		if strings.EqualFold(p.SKU, sku) {
			return toEntry(p), nil
		}
	}
	return nil, ErrNotFound
}

// Create creates one product and returns its remote ID.
func (c *Client) Create(ctx context.Context, rec *models.ProductRecord, urls []string) (int64, error) {
	payload := buildProduct(rec, urls, c.categoryID(ctx, rec.Category))
	body, err := c.doRequest(ctx, http.MethodPost, "/products", nil, payload)
	if err != nil {
		return 0, err
	}

	var created wcProduct
	if err := json.Unmarshal(body, &created); err != nil {
		return 0, fmt.Errorf("decode create response: %w", err)
	}
	return created.ID, nil
}

// Update rewrites an existing product. imagesOnly and descriptionOnly
// narrow the payload to the respective field subset.
func (c *Client) Update(ctx context.Context, remoteID int64, rec *models.ProductRecord, urls []string, imagesOnly, descriptionOnly bool) error {
	payload := c.updatePayload(ctx, remoteID, rec, urls, imagesOnly, descriptionOnly)
	_, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/products/%d", remoteID), nil, payload)
	return err
}

// BatchItem is one record in a batch call.
type BatchItem struct {
	Record   *models.ProductRecord
	URLs     []string
	RemoteID int64 // updates only

	ImagesOnly      bool
	DescriptionOnly bool
}

// BatchResult is the per-item outcome of a batch call. Err carries an
// *APIError for item-level failures; a failed item never fails its
// batch.
type BatchResult struct {
	SKU      string
	RemoteID int64
	Err      error
}

// CreateBatch creates records through the batch endpoint in chunks,
// reporting one result per input item in input order.
func (c *Client) CreateBatch(ctx context.Context, items []BatchItem) []BatchResult {
	return c.batch(ctx, items, false)
}

// UpdateBatch is the update variant of CreateBatch.
func (c *Client) UpdateBatch(ctx context.Context, items []BatchItem) []BatchResult {
	return c.batch(ctx, items, true)
}

func (c *Client) batch(ctx context.Context, items []BatchItem, update bool) []BatchResult {
	results := make([]BatchResult, 0, len(items))

	for start := 0; start < len(items); start += batchChunk {
		end := start + batchChunk
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		payloads := make([]wcProduct, 0, len(chunk))
		for _, it := range chunk {
			if update {
				payloads = append(payloads, c.updatePayload(ctx, it.RemoteID, it.Record, it.URLs, it.ImagesOnly, it.DescriptionOnly))
			} else {
				payloads = append(payloads, buildProduct(it.Record, it.URLs, c.categoryID(ctx, it.Record.Category)))
			}
		}

		req := wcBatchRequest{}
		if update {
			req.Update = payloads
		} else {
			req.Create = payloads
		}

		body, err := c.doRequest(ctx, http.MethodPost, "/products/batch", nil, req)
		if err != nil {
			// The whole chunk failed at the transport level; report
			// the same error for each item and keep going.
			for _, it := range chunk {
				results = append(results, BatchResult{SKU: it.Record.SKU, Err: err})
			}
			continue
		}

		var resp wcBatchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			decodeErr := fmt.Errorf("decode batch response: %w", err)
			for _, it := range chunk {
				results = append(results, BatchResult{SKU: it.Record.SKU, Err: decodeErr})
			}
			continue
		}

		returned := resp.Create
		if update {
			returned = resp.Update
		}
		for i, it := range chunk {
			res := BatchResult{SKU: it.Record.SKU}
			switch {
			case i >= len(returned):
				res.Err = &APIError{Message: "missing item in batch response"}
			case returned[i].Error != nil:
				res.Err = &APIError{
					Status:  http.StatusBadRequest,
					Code:    returned[i].Error.Code,
					Message: returned[i].Error.Message,
				}
			case returned[i].ID == 0:
				res.Err = &APIError{Message: "batch item returned no id"}
			default:
				res.RemoteID = returned[i].ID
			}
			results = append(results, res)
		}
	}
	return results
}

func (c *Client) updatePayload(ctx context.Context, remoteID int64, rec *models.ProductRecord, urls []string, imagesOnly, descriptionOnly bool) wcProduct {
	switch {
	case imagesOnly:
		p := wcProduct{ID: remoteID}
		for i, u := range urls {
			p.Images = append(p.Images, wcImage{Src: u, Position: i, Alt: rec.FullName()})
		}
		return p
	case descriptionOnly:
		return wcProduct{ID: remoteID, Description: BuildDescription(rec)}
	default:
		p := buildProduct(rec, urls, c.categoryID(ctx, rec.Category))
		p.ID = remoteID
		return p
	}
}

// categoryID resolves a category name to its remote ID, creating the
// category on first sight. Failures degrade to an uncategorized
// product rather than failing the record.
func (c *Client) categoryID(ctx context.Context, name string) int64 {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0
	}
	if id, ok := c.categories[strings.ToLower(name)]; ok {
		return id
	}

	id, err := c.getOrCreateCategory(ctx, name)
	if err != nil {
		return 0
	}
	c.categories[strings.ToLower(name)] = id
	return id
}

func (c *Client) getOrCreateCategory(ctx context.Context, name string) (int64, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/products/categories", url.Values{"search": {name}}, nil)
	if err != nil {
		return 0, err
	}
	var found []wcCategory
	if err := json.Unmarshal(body, &found); err != nil {
		return 0, fmt.Errorf("decode categories: %w", err)
	}
	for _, cat := range found {
		if strings.EqualFold(cat.Name, name) {
			return cat.ID, nil
		}
	}

	body, err = c.doRequest(ctx, http.MethodPost, "/products/categories", nil, wcCategory{Name: name, Slug: slugify(name)})
	if err != nil {
		return 0, err
	}
	var created wcCategory
	if err := json.Unmarshal(body, &created); err != nil {
		return 0, fmt.Errorf("decode created category: %w", err)
	}
	return created.ID, nil
}

// doRequest performs one authenticated API call with rate limiting and
// the shared retry policy. 429 and 5xx responses come back as
// retryable APIErrors, other 4xx as fatal ones.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, payload any) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	var respBody []byte
	err := c.policy.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var body io.Reader
		if reqBody != nil {
			body = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.key, c.secret)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode >= 400 {
			return apiErrorFrom(resp.StatusCode, data)
		}
		respBody = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

func apiErrorFrom(status int, body []byte) *APIError {
	apiErr := &APIError{
		Status:    status,
		Retryable: status == http.StatusTooManyRequests || status >= 500,
	}
	var detail struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Message != "" {
		apiErr.Code = detail.Code
		apiErr.Message = detail.Message
	} else {
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		apiErr.Message = msg
	}
	return apiErr
}
