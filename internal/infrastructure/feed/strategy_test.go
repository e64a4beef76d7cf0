package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/infrastructure/fetch"
	"NewsIngestor/internal/pacing"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
  <title>Example News</title>
  <link>https://news.example.com/</link>
  <item>
    <title>First story</title>
    <link>https://news.example.com/2026/10/first-story?utm_source=rss</link>
    <pubDate>Sat, 17 Oct 2026 09:00:00 GMT</pubDate>
    <media:content url="https://cdn.example.com/first.jpg" medium="image"/>
  </item>
  <item>
    <title>Second story</title>
    <link>/2026/10/second-story</link>
    <enclosure url="https://cdn.example.com/second.png" type="image/png" length="10"/>
  </item>
  <item>
    <title>Third story</title>
    <link>https://news.example.com/2026/10/third-story</link>
    <pubDate>Fri, 16 Oct 2026 21:00:00 GMT</pubDate>
    <description><![CDATA[<p><img src="/img/third.jpg"/>Body</p>]]></description>
  </item>
  <item>
    <title>Duplicate of first</title>
    <link>https://news.example.com/2026/10/first-story</link>
  </item>
  <item>
    <title>No link</title>
  </item>
</channel>
</rss>`

func newTestStrategy(t *testing.T, body string, status int) (*Strategy, string, time.Time) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	client := fetch.NewClient(server.Client(), fetch.Options{UserAgent: "NewsIngestor-Test"})
	return NewStrategy(client, pacing.NewFakeClock(now), nil), server.URL, now
}

func collect(t *testing.T, s *Strategy, src domain.Source) ([]domain.Candidate, []error) {
	t.Helper()
	var (
		candidates []domain.Candidate
		errs       []error
	)
	for candidate, err := range s.Discover(context.Background(), src) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, errs
}

func TestStrategyDiscoverParsesEntriesInOrder(t *testing.T) {
	t.Parallel()

	strategy, endpoint, now := newTestStrategy(t, sampleRSS, http.StatusOK)
	got, errs := collect(t, strategy, domain.Source{ID: "s1", DiscoveryEndpoint: endpoint + "/rss.xml"})

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d: %+v", len(got), got)
	}

	first := got[0]
	if first.Link != "https://news.example.com/2026/10/first-story" {
		t.Fatalf("tracking params not stripped: %s", first.Link)
	}
	if !first.PublishedKnown || !first.PublishedAt.Equal(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published time %v known=%v", first.PublishedAt, first.PublishedKnown)
	}
	if first.ImageHint != "https://cdn.example.com/first.jpg" {
		t.Fatalf("unexpected media image %q", first.ImageHint)
	}

	second := got[1]
	if second.Link != endpoint+"/2026/10/second-story" {
		t.Fatalf("relative link not resolved: %s", second.Link)
	}
	if second.PublishedKnown || !second.PublishedAt.Equal(now) {
		t.Fatalf("missing date should default to discovery time, got %v known=%v", second.PublishedAt, second.PublishedKnown)
	}
	if second.ImageHint != "https://cdn.example.com/second.png" {
		t.Fatalf("unexpected enclosure image %q", second.ImageHint)
	}

	third := got[2]
	if third.Title != "Third story" {
		t.Fatalf("unexpected title %q", third.Title)
	}
	if third.ImageHint != endpoint+"/img/third.jpg" {
		t.Fatalf("unexpected inline image %q", third.ImageHint)
	}
}

func TestStrategyDiscoverStopsWhenConsumerBreaks(t *testing.T) {
	t.Parallel()

	strategy, endpoint, _ := newTestStrategy(t, sampleRSS, http.StatusOK)

	count := 0
	for _, err := range strategy.Discover(context.Background(), domain.Source{ID: "s1", DiscoveryEndpoint: endpoint}) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		count++
		if count == 1 {
			break
		}
	}
	if count != 1 {
		t.Fatalf("expected early stop, got %d", count)
	}
}

func TestStrategyDiscoverMalformedFeed(t *testing.T) {
	t.Parallel()

	strategy, endpoint, _ := newTestStrategy(t, "this is not a feed", http.StatusOK)
	got, errs := collect(t, strategy, domain.Source{ID: "broken", DiscoveryEndpoint: endpoint})

	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
	if len(errs) != 1 || !errors.Is(errs[0], domain.ErrDiscovery) {
		t.Fatalf("expected single discovery error, got %v", errs)
	}
}

func TestStrategyDiscoverUnreachable(t *testing.T) {
	t.Parallel()

	strategy, endpoint, _ := newTestStrategy(t, "", http.StatusServiceUnavailable)
	_, errs := collect(t, strategy, domain.Source{ID: "down", DiscoveryEndpoint: endpoint})

	var statusErr *fetch.StatusError
	if len(errs) != 1 || !errors.Is(errs[0], domain.ErrDiscovery) || !errors.As(errs[0], &statusErr) {
		t.Fatalf("expected wrapped status error, got %v", errs)
	}
}

func TestStrategyKind(t *testing.T) {
	t.Parallel()

	if got := NewStrategy(nil, nil, nil).Kind(); got != domain.StrategyFeed {
		t.Fatalf("unexpected kind %s", got)
	}
}
