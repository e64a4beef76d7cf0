package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"NewsIngestor/internal/domain"
)

const (
	defaultReportTitles = 10
	reportTitleWidth    = 72
)

// BuildReport renders a plain-text run report listing at most maxTitles of
// the written headlines, each cut to a fixed display width.
func BuildReport(summary domain.RunSummary, maxTitles int) string {
	var b strings.Builder

	runID := summary.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}

	fmt.Fprintf(&b, "News run %s finished in %s\n", runID, summary.Duration().Round(time.Second))
	fmt.Fprintf(&b, "Sources: %d attempted, %d failed\n", summary.SourcesAttempted, summary.SourcesFailed)
	fmt.Fprintf(&b, "Candidates: %d discovered\n", summary.CandidatesDiscovered)
	fmt.Fprintf(&b, "Written: %d new, %d updated\n", summary.ItemsNew, summary.ItemsUpdated)
	fmt.Fprintf(&b, "Skipped: stale %d, duplicate %d, extraction %d, summarization %d, persistence %d\n",
		summary.SkippedStale,
		summary.SkippedDuplicate,
		summary.SkippedExtraction,
		summary.SkippedSummarization,
		summary.SkippedPersistence)

	if len(summary.Titles) == 0 {
		return b.String()
	}

	b.WriteString("\n")
	shown := summary.Titles
	if maxTitles > 0 && len(shown) > maxTitles {
		shown = shown[:maxTitles]
	}
	for _, title := range shown {
		b.WriteString("- ")
		b.WriteString(runewidth.Truncate(title, reportTitleWidth, "..."))
		b.WriteString("\n")
	}
	if rest := len(summary.Titles) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "... and %d more\n", rest)
	}

	return b.String()
}
