// Package fetch downloads product pages for the live-URL flow.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/raine/listing-digest/internal/logging"
)

const (
	// DefaultTimeout is the default timeout for a page fetch
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBytes is the default maximum page size (8MB)
	DefaultMaxBytes = 8 * 1024 * 1024
	// DefaultAllowedDomain is the marketplace pages may be fetched from
	DefaultAllowedDomain = "coupang.com"
)

// ErrUnsupportedURL is returned for URLs outside the allowed marketplace.
var ErrUnsupportedURL = errors.New("unsupported url")

// Fetcher retrieves the raw HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	AllowedDomain string
	Timeout       time.Duration
	MaxBytes      int64
}

// Client fetches marketplace pages with browser-like headers.
type Client struct {
	httpClient    *resty.Client
	allowedDomain string
	maxBytes      int64
}

// NewClient creates a new page fetcher.
func NewClient(opts Options) *Client {
	c := Client{
		allowedDomain: DefaultAllowedDomain,
		maxBytes:      DefaultMaxBytes,
	}
	if opts.AllowedDomain != "" {
		c.allowedDomain = strings.ToLower(opts.AllowedDomain)
	}
	if opts.MaxBytes > 0 {
		c.maxBytes = opts.MaxBytes
	}
	timeout := DefaultTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	c.httpClient = resty.New().
		SetDebug(false).
		SetTimeout(timeout).
		SetRedirectPolicy(
			resty.FlexibleRedirectPolicy(5),
			// Redirects must stay on the marketplace.
			resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
				return c.CheckURL(req.URL.String())
			}),
		).
		SetHeaders(
			map[string]string{
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
				"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
				"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			},
		)

	return &c
}

// CheckURL reports whether the URL points at the allowed marketplace.
func (c *Client) CheckURL(pageURL string) error {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host != c.allowedDomain && !strings.HasSuffix(host, "."+c.allowedDomain) {
		return fmt.Errorf("%w: host %q", ErrUnsupportedURL, host)
	}
	return nil
}

// Fetch downloads the page body. It respects context cancellation and
// enforces the size limit even when Content-Length is missing or wrong.
func (c *Client) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := c.CheckURL(pageURL); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(strings.TrimSpace(pageURL))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch failed: status %d", resp.StatusCode())
	}

	if resp.RawResponse.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("page too large: %d bytes exceeds limit of %d bytes", resp.RawResponse.ContentLength, c.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("page too large: exceeds limit of %d bytes", c.maxBytes)
	}

	logging.FromContext(ctx).Debug().Str("url", pageURL).Int("bytes", len(data)).Msg("fetched page")
	return data, nil
}
