// Package fetch performs paced, bounded HTTP GETs for discovery and extraction.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"NewsIngestor/internal/pacing"
	"NewsIngestor/internal/ports"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 5 << 20
	acceptHTML          = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// ErrDisallowed is returned when robots.txt forbids the URL.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// Options tunes a Client.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	Pacer        ports.Pacer
	Robots       *RobotsChecker
}

// Page is a fetched document.
type Page struct {
	URL         *url.URL
	Body        []byte
	ContentType string
}

// Client wraps http.Client with per-host pacing and identifying headers.
type Client struct {
	http *http.Client
	opts Options
}

// NewClient wires an HTTP client; nil means a fresh client without its own timeout.
func NewClient(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Client{http: httpClient, opts: opts}
}

// UserAgent is the identifying agent string.
func (c *Client) UserAgent() string {
	return c.opts.UserAgent
}

// HTTPClient exposes the underlying client for collaborators that drive their own requests.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Timeout is the per-request bound.
func (c *Client) Timeout() time.Duration {
	return c.opts.Timeout
}

// Get fetches rawURL with the identifying user agent.
func (c *Client) Get(ctx context.Context, rawURL string) (Page, error) {
	return c.GetAs(ctx, rawURL, c.opts.UserAgent)
}

// GetAs fetches rawURL with an explicit user agent.
func (c *Client) GetAs(ctx context.Context, rawURL, userAgent string) (Page, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, fmt.Errorf("parse url: %w", err)
	}
	if !target.IsAbs() || target.Host == "" {
		return Page{}, fmt.Errorf("url %q is not absolute", rawURL)
	}

	if c.opts.Robots != nil {
		allowed, rErr := c.opts.Robots.IsAllowed(ctx, rawURL)
		if rErr != nil {
			return Page{}, rErr
		}
		if !allowed {
			return Page{}, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}

	if err := c.Wait(ctx, target.Hostname()); err != nil {
		return Page{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", acceptHTML)

	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Page{}, &StatusError{URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes))
	if err != nil {
		return Page{}, fmt.Errorf("read %s: %w", rawURL, err)
	}

	return Page{
		URL:         resp.Request.URL,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// Wait takes the next fetch slot for host.
func (c *Client) Wait(ctx context.Context, host string) error {
	if c.opts.Pacer == nil {
		return nil
	}
	return c.opts.Pacer.Await(ctx, pacing.HostClass(host))
}
