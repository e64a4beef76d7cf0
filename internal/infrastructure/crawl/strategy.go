// Package crawl discovers candidates by enumerating article-like links on a section page.
package crawl

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"NewsIngestor/internal/discovery"
	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/infrastructure/fetch"
	"NewsIngestor/internal/pacing"
)

// Waiter takes a per-host fetch slot before the section page is requested.
type Waiter interface {
	Wait(ctx context.Context, host string) error
}

// RobotsPolicy answers robots.txt checks for the section page and the links
// found on it.
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, rawURL string) (bool, error)
}

// Options tunes the crawler. A nil Robots crawls without robots.txt checks.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	MaxLinks  int
	Robots    RobotsPolicy
}

// Strategy fetches one page and treats link order as candidate order.
type Strategy struct {
	client *http.Client
	waiter Waiter
	clock  pacing.Clock
	opts   Options
	logger *slog.Logger
}

var _ discovery.Strategy = (*Strategy)(nil)

// NewStrategy wires the crawl strategy. A nil client gets a fresh http.Client.
func NewStrategy(client *http.Client, waiter Waiter, clock pacing.Clock, opts Options, logger *slog.Logger) *Strategy {
	if client == nil {
		client = &http.Client{}
	}
	if clock == nil {
		clock = pacing.SystemClock{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Strategy{client: client, waiter: waiter, clock: clock, opts: opts, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (s *Strategy) Kind() domain.StrategyKind {
	return domain.StrategyCrawl
}

// Discover crawls the endpoint. Crawled candidates never carry a known published time.
func (s *Strategy) Discover(ctx context.Context, src domain.Source) iter.Seq2[domain.Candidate, error] {
	return func(yield func(domain.Candidate, error) bool) {
		links, err := s.collect(ctx, src.DiscoveryEndpoint)
		if err != nil {
			discovery.Fail(fmt.Errorf("source %s: %w", src.ID, err))(yield)
			return
		}

		now := s.clock.Now().UTC()
		s.debug("section crawled", "source_id", src.ID, "links", len(links))

		for _, l := range links {
			candidate := domain.Candidate{
				Link:         l.href,
				Title:        l.text,
				PublishedAt:  now,
				DiscoveredAt: now,
			}
			if !yield(candidate, nil) {
				return
			}
		}
	}
}

type link struct {
	href string
	text string
}

func (s *Strategy) collect(ctx context.Context, endpoint string) ([]link, error) {
	base, err := url.Parse(endpoint)
	if err != nil || base.Hostname() == "" {
		return nil, fmt.Errorf("invalid crawl endpoint %q", endpoint)
	}
	host := base.Hostname()

	if !s.allowed(ctx, endpoint) {
		return nil, fmt.Errorf("crawl %s: %w", endpoint, fetch.ErrDisallowed)
	}

	if s.waiter != nil {
		if err := s.waiter.Wait(ctx, host); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	options := []colly.CollectorOption{
		colly.MaxDepth(1),
		colly.AllowedDomains(host),
		colly.StdlibContext(ctx),
	}
	if s.opts.UserAgent != "" {
		options = append(options, colly.UserAgent(s.opts.UserAgent))
	}
	collector := colly.NewCollector(options...)
	collector.SetClient(s.client)

	var (
		links    []link
		seen     = map[string]struct{}{}
		visitErr error
	)

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if s.opts.MaxLinks > 0 && len(links) >= s.opts.MaxLinks {
			return
		}
		href, ok := discovery.NormalizeLink(e.Request.URL, e.Attr("href"))
		if !ok {
			return
		}
		target, err := url.Parse(href)
		if err != nil || !sameSite(target.Hostname(), host) || !LooksLikeArticle(target) {
			return
		}
		if target.Path == base.Path || !s.allowed(ctx, href) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, link{href: href, text: strings.Join(strings.Fields(e.Text), " ")})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			visitErr = fmt.Errorf("crawl %s: status %d: %w", endpoint, r.StatusCode, err)
			return
		}
		visitErr = fmt.Errorf("crawl %s: %w", endpoint, err)
	})

	if err := collector.Visit(endpoint); err != nil && visitErr == nil {
		visitErr = fmt.Errorf("crawl %s: %w", endpoint, err)
	}
	if visitErr != nil {
		return nil, visitErr
	}
	return links, nil
}

func (s *Strategy) allowed(ctx context.Context, rawURL string) bool {
	if s.opts.Robots == nil {
		return true
	}
	ok, err := s.opts.Robots.IsAllowed(ctx, rawURL)
	if err != nil {
		s.debug("robots check failed", "url", rawURL, "error", err)
		return true
	}
	return ok
}

func sameSite(candidate, host string) bool {
	return strings.TrimPrefix(strings.ToLower(candidate), "www.") == strings.TrimPrefix(strings.ToLower(host), "www.")
}

var (
	datePath    = regexp.MustCompile(`/(19|20)\d{2}/(0?[1-9]|1[0-2])(/|$)`)
	compactDate = regexp.MustCompile(`(19|20)\d{2}-?(0[1-9]|1[0-2])-?(0[1-9]|[12]\d|3[01])`)
	numericID   = regexp.MustCompile(`\d{5,}`)

	articleSegments = []string{"article", "articles", "story", "stories", "news", "post", "posts", "blog"}
	rejectSegments  = []string{
		"tag", "tags", "category", "categories", "topic", "topics", "author", "authors",
		"search", "login", "signin", "signup", "register", "subscribe", "account",
		"about", "contact", "privacy", "terms", "careers", "advertise", "newsletter",
		"video", "videos", "gallery", "live", "feed", "rss", "page",
	}
	rejectExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".pdf", ".zip", ".mp3", ".mp4", ".xml", ".css", ".js"}
)

// LooksLikeArticle applies URL heuristics to tell article pages from navigation.
func LooksLikeArticle(u *url.URL) bool {
	path := strings.ToLower(strings.TrimSuffix(u.Path, "/"))
	if path == "" {
		return false
	}
	for _, ext := range rejectExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, seg := range segments {
		for _, reject := range rejectSegments {
			if seg == reject {
				return false
			}
		}
	}

	if datePath.MatchString(path) || compactDate.MatchString(path) {
		return true
	}

	last := segments[len(segments)-1]
	if strings.Count(last, "-") >= 3 && len(last) >= 20 {
		return true
	}
	if len(segments) >= 2 {
		for _, seg := range segments[:len(segments)-1] {
			for _, marker := range articleSegments {
				if seg == marker && (numericID.MatchString(last) || strings.Contains(last, "-")) {
					return true
				}
			}
		}
	}
	return false
}

func (s *Strategy) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
