package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"NewsIngestor/internal/discovery"
	"NewsIngestor/internal/domain"
)

// Readability isolates the main body with boilerplate-removal heuristics.
type Readability struct {
	fetcher Fetcher
}

// NewReadability builds the primary strategy.
func NewReadability(fetcher Fetcher) *Readability {
	return &Readability{fetcher: fetcher}
}

// Kind identifies the strategy.
func (r *Readability) Kind() Kind {
	return KindReadability
}

// Extract downloads the page with the identifying agent and parses the article.
func (r *Readability) Extract(ctx context.Context, rawURL string) (domain.ExtractedContent, error) {
	page, err := r.fetcher.Get(ctx, rawURL)
	if err != nil {
		return domain.ExtractedContent{}, err
	}

	pageURL := page.URL
	if pageURL == nil {
		if pageURL, err = url.Parse(rawURL); err != nil {
			return domain.ExtractedContent{}, fmt.Errorf("parse url: %w", err)
		}
	}

	article, err := readability.FromReader(bytes.NewReader(page.Body), pageURL)
	if err != nil {
		return domain.ExtractedContent{}, fmt.Errorf("readability: %w", err)
	}

	content := domain.ExtractedContent{Text: normalizeSpace(article.TextContent)}
	if image, ok := discovery.NormalizeLink(pageURL, article.Image); ok {
		content.ImageURL = image
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err == nil {
		content.PublishedAt = publishedTime(doc)
		if content.ImageURL == "" {
			content.ImageURL = previewImage(doc, pageURL)
		}
	}

	return content, nil
}
