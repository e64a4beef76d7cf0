package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsIngestor/internal/domain"
)

// DefaultBrowserUserAgent is sent by the fallback tier.
const DefaultBrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Paragraphs re-fetches as a browser and joins every paragraph node.
type Paragraphs struct {
	fetcher   Fetcher
	userAgent string
}

// NewParagraphs builds the fallback strategy.
func NewParagraphs(fetcher Fetcher, userAgent string) *Paragraphs {
	if userAgent == "" {
		userAgent = DefaultBrowserUserAgent
	}
	return &Paragraphs{fetcher: fetcher, userAgent: userAgent}
}

// Kind identifies the strategy.
func (p *Paragraphs) Kind() Kind {
	return KindParagraphs
}

// Extract collects <p> text and the social preview image.
func (p *Paragraphs) Extract(ctx context.Context, rawURL string) (domain.ExtractedContent, error) {
	page, err := p.fetcher.GetAs(ctx, rawURL, p.userAgent)
	if err != nil {
		return domain.ExtractedContent{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return domain.ExtractedContent{}, fmt.Errorf("parse document: %w", err)
	}

	var parts []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if text := normalizeSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	return domain.ExtractedContent{
		Text:        strings.Join(parts, " "),
		ImageURL:    previewImage(doc, page.URL),
		PublishedAt: publishedTime(doc),
	}, nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
