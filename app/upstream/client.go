// Package upstream fetches table datasets from the dealership REST backend.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"backoffice/core/logger"
	"backoffice/core/value"

	"golang.org/x/time/rate"
)

const maxBodySize = 64 << 20

var (
	ErrNotConfigured = errors.New("upstream base URL is not configured")
	ErrNotArray      = errors.New("upstream response is neither an array nor an object with a data array")
)

// Config configures a Client
type Config struct {
	BaseURL   string
	Token     string
	RPS       float64
	Timeout   time.Duration
	Endpoints map[string]string
}

// StatusError is returned for non-2xx upstream responses
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
}

// Client is a rate-limited HTTP client for GET {base}/{endpoint}
type Client struct {
	baseURL   string
	token     string
	endpoints map[string]string
	http      *http.Client
	limiter   *rate.Limiter
	logger    logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := int(cfg.RPS)
	if burst < 1 {
		burst = 1
	}
	if log == nil {
		log = logger.Nop()
	}

	endpoints := make(map[string]string, len(cfg.Endpoints))
	for tag, path := range cfg.Endpoints {
		endpoints[tag] = path
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		endpoints: endpoints,
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, burst),
		logger:    log,
	}
}

// Configured reports whether a base URL is set
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Endpoint returns the path fetched for tag: the configured override or the
// tag itself
func (c *Client) Endpoint(tag string) string {
	if path, ok := c.endpoints[tag]; ok && path != "" {
		return strings.TrimLeft(path, "/")
	}
	return tag
}

// Fetch downloads the Dataset of tag. The response must be a JSON array or an
// object whose "data" member is an array.
func (c *Client) Fetch(ctx context.Context, tag string) ([]value.Value, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := c.baseURL + "/" + c.Endpoint(tag)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	records, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}

	c.logger.Debug("Fetched upstream dataset",
		logger.String("tag", tag),
		logger.String("url", url),
		logger.Int("records", len(records)),
		logger.Duration("duration", time.Since(start)))
	return records, nil
}

// Decode extracts the record list from an upstream payload
func Decode(body []byte) ([]value.Value, error) {
	doc, err := value.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream JSON: %w", err)
	}

	if doc.Kind() == value.KindMap {
		data, ok := doc.Get("data")
		if !ok {
			return nil, ErrNotArray
		}
		doc = data
	}
	if doc.Kind() != value.KindList {
		return nil, ErrNotArray
	}
	return doc.Items(), nil
}
