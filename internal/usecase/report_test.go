package usecase_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/usecase"
)

func TestBuildReport(t *testing.T) {
	t.Parallel()

	summary := domain.RunSummary{
		RunID:                "0b6f3c2e-8d1a-4e55-9a51-3f1f7f1c2d10",
		StartedAt:            runNow,
		FinishedAt:           runNow.Add(95 * time.Second),
		SourcesAttempted:     4,
		SourcesFailed:        1,
		CandidatesDiscovered: 17,
		SkippedStale:         6,
		SkippedExtraction:    2,
		SkippedSummarization: 1,
		ItemsNew:             7,
		ItemsUpdated:         1,
	}
	for i := range 12 {
		summary.Titles = append(summary.Titles, fmt.Sprintf("Headline %d", i))
	}
	summary.Titles[0] = strings.Repeat("長い見出し", 20)

	report := usecase.BuildReport(summary, 10)

	assert.True(t, strings.HasPrefix(report, "News run 0b6f3c2e finished in 1m35s\n"))
	assert.Contains(t, report, "Sources: 4 attempted, 1 failed\n")
	assert.Contains(t, report, "Written: 7 new, 1 updated\n")
	assert.Contains(t, report, "Skipped: stale 6, duplicate 0, extraction 2, summarization 1, persistence 0\n")
	assert.Contains(t, report, "- Headline 9\n")
	assert.NotContains(t, report, "Headline 10")
	assert.Contains(t, report, "... and 2 more\n")

	for _, line := range strings.Split(report, "\n") {
		if strings.HasPrefix(line, "- 長い") {
			assert.LessOrEqual(t, runewidth.StringWidth(strings.TrimPrefix(line, "- ")), 72)
			assert.True(t, strings.HasSuffix(line, "..."))
		}
	}
}

func TestBuildReport_NoTitles(t *testing.T) {
	t.Parallel()

	report := usecase.BuildReport(domain.RunSummary{RunID: "abc"}, 10)
	assert.Contains(t, report, "News run abc finished in 0s")
	assert.False(t, strings.HasSuffix(report, "\n\n"))
}
