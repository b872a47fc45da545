package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/hyperjump/artcollector/internal/config"
	"github.com/hyperjump/artcollector/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultPageSize = 100
	// maxReferencePages bounds how many "next" links a reference fetch follows.
	maxReferencePages = 20
	maxErrorBody      = 512
)

// HTTPClient talks to the remote collection API.
type HTTPClient struct {
	baseURL  *url.URL
	apiKey   string
	pageSize int
	http     *http.Client
	limiter  *rate.Limiter
	results  *expirable.LRU[string, []models.ResultRecord]
	logger   *zap.Logger
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(h *HTTPClient) { h.http = c }
}

// WithRateLimit limits outgoing requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(h *HTTPClient) {
		if rps > 0 {
			h.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithResultCache caches query results for ttl, keeping at most size entries.
// A size <= 0 disables the cache.
func WithResultCache(size int, ttl time.Duration) ClientOption {
	return func(h *HTTPClient) {
		if size > 0 {
			h.results = expirable.NewLRU[string, []models.ResultRecord](size, nil, ttl)
		} else {
			h.results = nil
		}
	}
}

// WithPageSize sets the page size requested from list endpoints.
func WithPageSize(n int) ClientOption {
	return func(h *HTTPClient) {
		if n > 0 {
			h.pageSize = n
		}
	}
}

// WithClientLogger sets a logger for request-level debug output.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(h *HTTPClient) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHTTPClient creates a client for the API at baseURL.
func NewHTTPClient(baseURL, apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}
	c := &HTTPClient{
		baseURL:  u,
		apiKey:   apiKey,
		pageSize: defaultPageSize,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewHTTPClientFromConfig builds a client from the api section of the config.
func NewHTTPClientFromConfig(cfg *config.APIConfig, logger *zap.Logger) (*HTTPClient, error) {
	return NewHTTPClient(cfg.BaseURL, cfg.APIKey,
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		WithResultCache(cfg.ResultCacheSize, cfg.ResultCacheTTL),
		WithPageSize(cfg.PageSize),
		WithClientLogger(logger),
	)
}

// FetchAllCenturies returns every century in temporal order.
func (c *HTTPClient) FetchAllCenturies(ctx context.Context) ([]models.ReferenceItem, error) {
	return c.fetchReferences(ctx, "century", "temporalorder")
}

// FetchAllClassifications returns every classification sorted by name.
func (c *HTTPClient) FetchAllClassifications(ctx context.Context) ([]models.ReferenceItem, error) {
	return c.fetchReferences(ctx, "classification", "name")
}

func (c *HTTPClient) fetchReferences(ctx context.Context, resource, sort string) ([]models.ReferenceItem, error) {
	params := url.Values{}
	params.Set("size", strconv.Itoa(c.pageSize))
	params.Set("sort", sort)
	next := c.endpoint(resource, params)

	items := make([]models.ReferenceItem, 0)
	for page := 0; next != "" && page < maxReferencePages; page++ {
		var p Page[models.ReferenceItem]
		if err := c.getJSON(ctx, next, &p); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", resource, err)
		}
		items = append(items, p.Records...)
		next = p.Info.Next
	}
	return items, nil
}

// FetchQueryResults returns the first page of objects matching input.
// A filter equal to models.AnyFilter is left out of the request.
func (c *HTTPClient) FetchQueryResults(ctx context.Context, input models.QueryInput) ([]models.ResultRecord, error) {
	target := c.endpoint("object", QueryParams(input, c.pageSize))
	key := cacheKey(input)
	if c.results != nil {
		if cached, ok := c.results.Get(key); ok {
			c.logger.Debug("query served from cache", zap.String("key", key))
			return cached, nil
		}
	}

	var p Page[models.ResultRecord]
	if err := c.getJSON(ctx, target, &p); err != nil {
		return nil, fmt.Errorf("fetch objects: %w", err)
	}
	records := p.Records
	if records == nil {
		records = []models.ResultRecord{}
	}
	if c.results != nil {
		c.results.Add(key, records)
	}
	return records, nil
}

// QueryParams builds the object-search parameters for input without the API key.
func QueryParams(input models.QueryInput, size int) url.Values {
	params := url.Values{}
	if size > 0 {
		params.Set("size", strconv.Itoa(size))
	}
	if models.IsFiltered(input.Classification) {
		params.Set("classification", input.Classification)
	}
	if models.IsFiltered(input.Century) {
		params.Set("century", input.Century)
	}
	if q := strings.TrimSpace(input.QueryString); q != "" {
		params.Set("keyword", q)
	}
	return params
}

func cacheKey(input models.QueryInput) string {
	return QueryParams(input, 0).Encode()
}

func (c *HTTPClient) endpoint(resource string, params url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + resource
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("apikey", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *HTTPClient) getJSON(ctx context.Context, target string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = strings.ReplaceAll(uerr.URL, c.apiKey, "REDACTED")
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api request",
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
