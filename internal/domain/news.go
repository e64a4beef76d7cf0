package domain

import (
	"strings"
	"time"
)

// StrategyKind names the discovery strategy a source is read with.
type StrategyKind string

const (
	StrategyFeed  StrategyKind = "feed"
	StrategyCrawl StrategyKind = "crawl"
)

// Source is a publisher registered in the source registry. Read-only to the pipeline.
type Source struct {
	ID                string
	Name              string
	DiscoveryEndpoint string
	Category          string
	Strategy          StrategyKind
	CreatedAt         time.Time
}

// Candidate is a discovered reference to a possible article. Never persisted directly.
type Candidate struct {
	Link        string
	Title       string
	PublishedAt time.Time
	// PublishedKnown is false when PublishedAt was defaulted to the discovery time.
	PublishedKnown bool
	ImageHint      string
	DiscoveredAt   time.Time
}

// ExtractedContent is the readable body of a candidate page.
type ExtractedContent struct {
	Text        string
	ImageURL    string
	PublishedAt time.Time
	Strategy    string
}

// Valid reports whether the text satisfies the minimum length invariant.
func (c ExtractedContent) Valid(minLength int) bool {
	text := strings.TrimSpace(c.Text)
	return text != "" && len([]rune(text)) >= minLength
}

// Summary is a bounded-length factual digest of an article.
type Summary string

// Words returns the whitespace-separated word count.
func (s Summary) Words() int {
	return len(strings.Fields(string(s)))
}

func (s Summary) String() string {
	return string(s)
}

// NewsItem is the persisted entity, unique by Link.
type NewsItem struct {
	Link        string
	Title       string
	SourceID    string
	SourceName  string
	SummaryText string
	ImageURL    string
	PublishedAt time.Time
	CreatedAt   time.Time
}

// Normalized returns a copy with PublishedAt in UTC.
func (n NewsItem) Normalized() NewsItem {
	n.PublishedAt = n.PublishedAt.UTC()
	if !n.CreatedAt.IsZero() {
		n.CreatedAt = n.CreatedAt.UTC()
	}
	return n
}

// UpsertResult tells whether an upsert created or overwrote a row.
type UpsertResult string

const (
	UpsertInserted UpsertResult = "inserted"
	UpsertUpdated  UpsertResult = "updated"
)

// SourceIndex maps source IDs to the registry snapshot taken at run start.
type SourceIndex map[string]Source

// NewSourceIndex indexes sources by ID; later duplicates win.
func NewSourceIndex(sources []Source) SourceIndex {
	idx := make(SourceIndex, len(sources))
	for _, src := range sources {
		idx[src.ID] = src
	}
	return idx
}

// Snapshot is the external hand-off record of a stored item.
type Snapshot struct {
	Source   string    `json:"source"`
	Headline string    `json:"headline"`
	Summary  string    `json:"summary"`
	URL      string    `json:"url"`
	Image    *string   `json:"image"`
	Date     time.Time `json:"date"`
}

// SnapshotFromItem converts a stored item into its export shape.
func SnapshotFromItem(item NewsItem) Snapshot {
	snap := Snapshot{
		Source:   item.SourceName,
		Headline: item.Title,
		Summary:  item.SummaryText,
		URL:      item.Link,
		Date:     item.PublishedAt.UTC(),
	}
	if item.ImageURL != "" {
		image := item.ImageURL
		snap.Image = &image
	}
	return snap
}
