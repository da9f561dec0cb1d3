// Package catalog talks to the remote product catalog and normalizes what it returns.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"storefront-api/internal/models"
)

// ErrFetch wraps every transport failure and non-2xx response.
var ErrFetch = errors.New("catalog fetch failed")

// Options configures a Client.
type Options struct {
	BaseURL   string
	PageLimit int
	Timeout   time.Duration
	Rate      float64 // requests per second, <= 0 disables throttling
	Burst     int
	UserAgent string
}

// Client fetches products from a dummyjson-compatible catalog.
type Client struct {
	baseURL   string
	pageLimit int
	timeout   time.Duration
	collector *colly.Collector
	limiter   *rate.Limiter
	logger    *zap.Logger
	// inflight collapses concurrent requests for the same path.
	inflight singleflight.Group
}

type productsEnvelope struct {
	Products []models.RawProduct `json:"products"`
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.PageLimit <= 0 {
		opts.PageLimit = 200
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "storefront-api/1.0"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(opts.UserAgent),
	)
	c.SetRequestTimeout(opts.Timeout)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		pageLimit: opts.PageLimit,
		timeout:   opts.Timeout,
		collector: c,
		limiter:   limiter,
		logger:    logger,
	}
}

// FetchAll returns up to PageLimit products.
func (c *Client) FetchAll(ctx context.Context) ([]models.RawProduct, error) {
	body, err := c.get(ctx, "/products?limit="+strconv.Itoa(c.pageLimit))
	if err != nil {
		return nil, err
	}
	return decodeProducts(body)
}

// FetchByCategory returns the products the catalog files under category.
func (c *Client) FetchByCategory(ctx context.Context, category string) ([]models.RawProduct, error) {
	path := "/products/category/" + url.PathEscape(strings.ToLower(category))
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeProducts(body)
}

// FetchCategories returns category slugs. Both the plain string list and the
// object list ({"slug","name","url"}) response shapes are accepted.
func (c *Client) FetchCategories(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/products/categories")
	if err != nil {
		return nil, err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode categories: %v", ErrFetch, err)
	}

	categories := make([]string, 0, len(entries))
	for _, e := range entries {
		var s string
		if err := json.Unmarshal(e, &s); err == nil {
			categories = append(categories, s)
			continue
		}
		var obj struct {
			Slug string `json:"slug"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(e, &obj); err == nil {
			if obj.Slug != "" {
				categories = append(categories, obj.Slug)
			} else if obj.Name != "" {
				categories = append(categories, obj.Name)
			}
		}
	}
	return categories, nil
}

// get shares one request per path between concurrent callers. The shared
// request runs detached from every caller's cancellation, bounded by the
// client timeout; each caller still stops waiting when its own ctx ends.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	ch := c.inflight.DoChan(path, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.visit(shared, path)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("catalog request shared", zap.String("path", path))
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrFetch, ctx.Err())
	}
}

func (c *Client) visit(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	target := c.baseURL + path
	start := time.Now()

	// Clones share the HTTP backend but not callbacks, so each call owns its result.
	col := c.collector.Clone()
	col.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json")
	})
	var (
		body   []byte
		status int
		cbErr  error
	)
	col.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	col.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		cbErr = err
	})

	visitErr := col.Visit(target)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	switch {
	case cbErr != nil || visitErr != nil:
		err := cbErr
		if err == nil {
			err = visitErr
		}
		c.logger.Warn("catalog request failed",
			zap.String("url", target),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		if status != 0 {
			return nil, fmt.Errorf("%w: %s returned %d %s", ErrFetch, path, status, http.StatusText(status))
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, path, err)
	case status < 200 || status > 299:
		return nil, fmt.Errorf("%w: %s returned %d %s", ErrFetch, path, status, http.StatusText(status))
	}

	c.logger.Debug("catalog request",
		zap.String("url", target),
		zap.Int("status", status),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return body, nil
}

func decodeProducts(body []byte) ([]models.RawProduct, error) {
	var env productsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode products: %v", ErrFetch, err)
	}
	if env.Products == nil {
		env.Products = make([]models.RawProduct, 0)
	}
	return env.Products, nil
}
