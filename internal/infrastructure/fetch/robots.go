package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	defaultRobotsTTL   = 24 * time.Hour
	maxRobotsBodyBytes = 512 * 1024
)

// RobotsChecker checks and caches robots.txt rules per host. Missing or
// unreachable robots.txt allows everything.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration

	mu    sync.RWMutex
	cache map[string]robotsEntry
}

type robotsEntry struct {
	group     *robotstxt.Group
	fetchedAt time.Time
}

// NewRobotsChecker builds a checker for userAgent.
func NewRobotsChecker(client *http.Client, userAgent string, ttl time.Duration) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if ttl <= 0 {
		ttl = defaultRobotsTTL
	}
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		ttl:       ttl,
		cache:     make(map[string]robotsEntry),
	}
}

// IsAllowed reports whether rawURL may be fetched.
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("robots: parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	if host == "" {
		return false, fmt.Errorf("robots: empty host in %q", rawURL)
	}

	entry, ok := r.cached(host)
	if !ok {
		entry = r.fetch(ctx, parsed.Scheme, host)
	}
	if entry.group == nil {
		return true, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return entry.group.Test(path), nil
}

func (r *RobotsChecker) cached(host string) (robotsEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[host]
	if !ok || time.Since(entry.fetchedAt) > r.ttl {
		return robotsEntry{}, false
	}
	return entry, true
}

// fetch caches only definitive answers: a parsed file or a 4xx status.
// Transport failures and server errors allow the request without caching so
// the next call asks again.
func (r *RobotsChecker) fetch(ctx context.Context, scheme, host string) robotsEntry {
	if scheme == "" {
		scheme = "https"
	}

	entry := robotsEntry{fetchedAt: time.Now()}
	data, err := r.download(ctx, scheme+"://"+host+"/robots.txt")
	if err != nil {
		return entry
	}
	entry.group = data.FindGroup(r.userAgent)

	r.mu.Lock()
	r.cache[host] = entry
	r.mu.Unlock()

	return entry
}

func (r *RobotsChecker) download(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("robots: build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("robots: fetch: %w", err)
	}
	defer resp.Body.Close()

	definitive := (resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices) ||
		(resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError)
	if !definitive {
		return nil, fmt.Errorf("robots: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("robots: read body: %w", err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("robots: parse: %w", err)
	}
	return data, nil
}
