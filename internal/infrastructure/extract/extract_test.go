package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/infrastructure/fetch"
)

type stubStrategy struct {
	kind    Kind
	content domain.ExtractedContent
	err     error
	calls   int
}

func (s *stubStrategy) Kind() Kind { return s.kind }

func (s *stubStrategy) Extract(context.Context, string) (domain.ExtractedContent, error) {
	s.calls++
	return s.content, s.err
}

var longText = strings.Repeat("The council approved the budget after a long debate. ", 5)

func TestChainUsesFallbackWhenPrimaryTooShort(t *testing.T) {
	t.Parallel()

	primary := &stubStrategy{kind: KindReadability, content: domain.ExtractedContent{Text: "Subscribe now"}}
	fallback := &stubStrategy{kind: KindParagraphs, content: domain.ExtractedContent{Text: longText, ImageURL: "https://cdn.example.com/a.jpg"}}

	chain := NewChain([]Strategy{primary, fallback}, 100, nil)
	got, err := chain.Extract(context.Background(), "https://example.com/a")

	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, strings.TrimSpace(longText), got.Text)
	assert.Equal(t, "https://cdn.example.com/a.jpg", got.ImageURL)
	assert.Equal(t, string(KindParagraphs), got.Strategy)
}

func TestChainUsesFallbackWhenPrimaryErrors(t *testing.T) {
	t.Parallel()

	primary := &stubStrategy{kind: KindReadability, err: errors.New("connection reset")}
	fallback := &stubStrategy{kind: KindParagraphs, content: domain.ExtractedContent{Text: longText}}

	got, err := NewChain([]Strategy{primary, fallback}, 100, nil).Extract(context.Background(), "https://example.com/a")

	require.NoError(t, err)
	assert.Equal(t, string(KindParagraphs), got.Strategy)
}

func TestChainSkipsFallbackWhenPrimaryValid(t *testing.T) {
	t.Parallel()

	primary := &stubStrategy{kind: KindReadability, content: domain.ExtractedContent{Text: longText}}
	fallback := &stubStrategy{kind: KindParagraphs}

	got, err := NewChain([]Strategy{primary, fallback}, 100, nil).Extract(context.Background(), "https://example.com/a")

	require.NoError(t, err)
	assert.Equal(t, 0, fallback.calls)
	assert.Equal(t, string(KindReadability), got.Strategy)
}

func TestChainBothTiersFail(t *testing.T) {
	t.Parallel()

	primary := &stubStrategy{kind: KindReadability, err: &fetch.StatusError{URL: "https://example.com/a", Status: http.StatusForbidden}}
	fallback := &stubStrategy{kind: KindParagraphs, content: domain.ExtractedContent{Text: "too short"}}

	_, err := NewChain([]Strategy{primary, fallback}, 100, nil).Extract(context.Background(), "https://example.com/a")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.ErrorIs(t, err, ErrTooShort)
	var statusErr *fetch.StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestBuildRejectsUnknownStrategy(t *testing.T) {
	t.Parallel()

	_, err := Build([]string{"readability", "magic"}, nil, "", 0, nil)
	require.Error(t, err)

	chain, err := Build(nil, nil, "", 0, nil)
	require.NoError(t, err)
	require.Len(t, chain.strategies, 2)
	assert.Equal(t, KindReadability, chain.strategies[0].Kind())
	assert.Equal(t, KindParagraphs, chain.strategies[1].Kind())
	assert.Equal(t, DefaultMinTextLength, chain.minLength)
}

const articlePage = `<!DOCTYPE html>
<html><head>
<title>Council approves budget</title>
<meta property="og:image" content="/media/budget.jpg">
<meta property="article:published_time" content="2026-10-16T08:30:00Z">
</head>
<body>
<header><nav><a href="/">Home</a> <a href="/world">World</a></nav></header>
<article>
<h1>Council approves budget</h1>
<p>The city council approved the annual budget on Thursday evening after a debate that lasted more than six hours and drew hundreds of residents to the chamber.</p>
<p>The spending plan increases funding for public transit and road maintenance, while trimming administrative costs across several municipal departments.</p>
<p>Council members who opposed the plan argued that the property tax increase would place an unfair burden on retirees and low income households.</p>
<p>The mayor said the budget balances fiscal discipline with investment in services residents rely on every day, and thanked staff for months of preparation.</p>
</article>
<footer><p>Copyright Example News</p></footer>
</body></html>`

func newPageServer(t *testing.T, body string, userAgents *[]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userAgents != nil {
			*userAgents = append(*userAgents, r.UserAgent())
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestReadabilityExtract(t *testing.T) {
	t.Parallel()

	server := newPageServer(t, articlePage, nil)
	client := fetch.NewClient(server.Client(), fetch.Options{UserAgent: "NewsIngestor-Test"})

	got, err := NewReadability(client).Extract(context.Background(), server.URL+"/2026/10/16/budget")

	require.NoError(t, err)
	assert.Contains(t, got.Text, "approved the annual budget")
	assert.True(t, got.Valid(DefaultMinTextLength))
	assert.Equal(t, server.URL+"/media/budget.jpg", got.ImageURL)
	assert.True(t, got.PublishedAt.Equal(time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)))
}

func TestParagraphsExtractUsesBrowserAgent(t *testing.T) {
	t.Parallel()

	var agents []string
	server := newPageServer(t, articlePage, &agents)
	client := fetch.NewClient(server.Client(), fetch.Options{UserAgent: "NewsIngestor-Test"})

	got, err := NewParagraphs(client, "").Extract(context.Background(), server.URL+"/story")

	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, DefaultBrowserUserAgent, agents[0])
	assert.True(t, strings.HasPrefix(got.Text, "The city council approved"))
	assert.True(t, strings.HasSuffix(got.Text, "Copyright Example News"))
	assert.Equal(t, server.URL+"/media/budget.jpg", got.ImageURL)
}

func TestParagraphsTwitterImageFallback(t *testing.T) {
	t.Parallel()

	page := `<html><head><meta name="twitter:image" content="https://cdn.example.com/t.png"></head><body><p>One.</p><p>Two.</p></body></html>`
	server := newPageServer(t, page, nil)
	client := fetch.NewClient(server.Client(), fetch.Options{})

	got, err := NewParagraphs(client, "Browser/1.0").Extract(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "One. Two.", got.Text)
	assert.Equal(t, "https://cdn.example.com/t.png", got.ImageURL)
	assert.True(t, got.PublishedAt.IsZero())
}
