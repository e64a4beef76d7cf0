// Package feed discovers candidates from RSS, Atom and JSON feeds.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"NewsIngestor/internal/discovery"
	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/infrastructure/fetch"
	"NewsIngestor/internal/pacing"
)

// Fetcher downloads a discovery endpoint.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (fetch.Page, error)
}

// Strategy parses a structured feed and yields its entries in document order.
type Strategy struct {
	fetcher Fetcher
	clock   pacing.Clock
	logger  *slog.Logger
}

var _ discovery.Strategy = (*Strategy)(nil)

// NewStrategy wires the feed strategy; clock defaults to the system clock.
func NewStrategy(fetcher Fetcher, clock pacing.Clock, logger *slog.Logger) *Strategy {
	if clock == nil {
		clock = pacing.SystemClock{}
	}
	return &Strategy{fetcher: fetcher, clock: clock, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (s *Strategy) Kind() domain.StrategyKind {
	return domain.StrategyFeed
}

// Discover fetches and parses the feed on every call.
func (s *Strategy) Discover(ctx context.Context, src domain.Source) iter.Seq2[domain.Candidate, error] {
	return func(yield func(domain.Candidate, error) bool) {
		feed, base, err := s.fetchFeed(ctx, src.DiscoveryEndpoint)
		if err != nil {
			discovery.Fail(fmt.Errorf("source %s: %w", src.ID, err))(yield)
			return
		}

		now := s.clock.Now().UTC()
		s.debug("feed parsed", "source_id", src.ID, "entries", len(feed.Items))

		seen := make(map[string]struct{}, len(feed.Items))
		for _, item := range feed.Items {
			candidate, ok := toCandidate(item, base, now)
			if !ok {
				continue
			}
			if _, dup := seen[candidate.Link]; dup {
				continue
			}
			seen[candidate.Link] = struct{}{}
			if !yield(candidate, nil) {
				return
			}
		}
	}
}

func (s *Strategy) fetchFeed(ctx context.Context, endpoint string) (*gofeed.Feed, *url.URL, error) {
	if s.fetcher == nil {
		return nil, nil, fmt.Errorf("feed fetcher is not configured")
	}

	page, err := s.fetcher.Get(ctx, endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch feed: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse feed: %w", err)
	}

	base := page.URL
	if base == nil {
		base, _ = url.Parse(endpoint)
	}
	return feed, base, nil
}

func toCandidate(item *gofeed.Item, base *url.URL, now time.Time) (domain.Candidate, bool) {
	if item == nil {
		return domain.Candidate{}, false
	}

	link, ok := discovery.NormalizeLink(base, item.Link)
	if !ok {
		link, ok = discovery.NormalizeLink(nil, item.GUID)
	}
	if !ok {
		return domain.Candidate{}, false
	}

	candidate := domain.Candidate{
		Link:         link,
		Title:        strings.TrimSpace(item.Title),
		PublishedAt:  now,
		DiscoveredAt: now,
		ImageHint:    imageHint(item, base),
	}

	switch {
	case item.PublishedParsed != nil:
		candidate.PublishedAt = item.PublishedParsed.UTC()
		candidate.PublishedKnown = true
	case item.UpdatedParsed != nil:
		candidate.PublishedAt = item.UpdatedParsed.UTC()
		candidate.PublishedKnown = true
	}

	return candidate, true
}

// imageHint picks the first usable image advertised by the entry.
func imageHint(item *gofeed.Item, base *url.URL) string {
	var candidates []string
	if item.Image != nil {
		candidates = append(candidates, item.Image.URL)
	}
	candidates = append(candidates, mediaURLs(item.Extensions, "content")...)
	candidates = append(candidates, mediaURLs(item.Extensions, "thumbnail")...)
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			candidates = append(candidates, enc.URL)
		}
	}
	candidates = append(candidates, inlineImage(item.Content), inlineImage(item.Description))

	for _, raw := range candidates {
		if link, ok := discovery.NormalizeLink(base, raw); ok {
			return link
		}
	}
	return ""
}

func mediaURLs(extensions ext.Extensions, name string) []string {
	media, ok := extensions["media"]
	if !ok {
		return nil
	}

	var urls []string
	var walk func(list []ext.Extension)
	walk = func(list []ext.Extension) {
		for _, e := range list {
			if e.Name == name {
				medium := e.Attrs["medium"]
				if medium == "" || medium == "image" || strings.HasPrefix(e.Attrs["type"], "image/") {
					urls = append(urls, e.Attrs["url"])
				}
			}
			for _, children := range e.Children {
				walk(children)
			}
		}
	}
	// media:content may be nested inside media:group.
	walk(media[name])
	walk(media["group"])
	return urls
}

func inlineImage(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return src
}

func (s *Strategy) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
