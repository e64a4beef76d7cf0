package extract

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsIngestor/internal/discovery"
)

var publishedSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[property="og:published_time"]`, "content"},
	{`meta[name="pubdate"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`time[datetime]`, "datetime"},
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// publishedTime reads the first parseable publication timestamp from page metadata.
func publishedTime(doc *goquery.Document) time.Time {
	for _, s := range publishedSelectors {
		var found time.Time
		doc.Find(s.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			raw, ok := sel.Attr(s.attr)
			if !ok {
				return true
			}
			if t, ok := parseTime(raw); ok {
				found = t
				return false
			}
			return true
		})
		if !found.IsZero() {
			return found
		}
	}
	return time.Time{}
}

func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// previewImage returns the social preview image, og:image before twitter:image.
func previewImage(doc *goquery.Document, base *url.URL) string {
	selectors := []string{
		`meta[property="og:image"]`,
		`meta[property="og:image:url"]`,
		`meta[name="twitter:image"]`,
		`meta[property="twitter:image"]`,
	}
	for _, selector := range selectors {
		if raw, ok := doc.Find(selector).First().Attr("content"); ok {
			if link, ok := discovery.NormalizeLink(base, raw); ok {
				return link
			}
		}
	}
	return ""
}
