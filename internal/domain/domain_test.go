package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestReasonFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stage CandidateState
		err   error
		want  SkipReason
	}{
		{"extraction sentinel", StateExtracting, fmt.Errorf("%w: short", ErrExtractionFailed), SkipExtractionFailed},
		{"quota is a summarization failure", StateSummarizing, fmt.Errorf("wrap: %w", ErrQuotaExhausted), SkipSummarizationFailed},
		{"summarization sentinel", StateSummarizing, ErrSummarization, SkipSummarizationFailed},
		{"persistence sentinel", StatePersisting, fmt.Errorf("%w: boom", ErrPersistence), SkipPersistenceFailed},
		{"timeout while extracting", StateExtracting, context.DeadlineExceeded, SkipExtractionFailed},
		{"cancel while summarizing", StateSummarizing, context.Canceled, SkipSummarizationFailed},
		{"cancel while persisting", StatePersisting, context.Canceled, SkipPersistenceFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ReasonFor(tt.stage, tt.err); got != tt.want {
				t.Fatalf("ReasonFor(%s, %v) = %s, want %s", tt.stage, tt.err, got, tt.want)
			}
		})
	}
}

func TestCandidateStateTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range []CandidateState{StateDiscovered, StateExtracting, StateSummarizing, StatePersisting} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	if !StateDone.Terminal() || !StateSkipped.Terminal() {
		t.Fatal("done and skipped are terminal")
	}
}

func TestRunStatsConcurrentRecording(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC)
	stats := NewRunStats("run-1", start)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats.SourceAttempted()
			stats.CandidateDiscovered()
			switch i % 5 {
			case 0:
				stats.Record(Skipped(SkipStale, nil), "")
			case 1:
				stats.Record(Skipped(SkipExtractionFailed, errors.New("x")), "")
			case 2:
				stats.Record(Done(UpsertUpdated), fmt.Sprintf("updated %d", i))
			default:
				stats.Record(Done(UpsertInserted), fmt.Sprintf("new %d", i))
			}
		}()
	}
	wg.Wait()
	stats.Finish(start.Add(time.Minute))

	s := stats.Snapshot()
	if s.SourcesAttempted != 50 || s.CandidatesDiscovered != 50 {
		t.Fatalf("unexpected counters %+v", s)
	}
	if s.SkippedStale != 10 || s.SkippedExtraction != 10 || s.SkippedTotal() != 20 {
		t.Fatalf("unexpected skips %+v", s)
	}
	if s.ItemsUpdated != 10 || s.ItemsNew != 20 || s.ItemsWritten() != 30 {
		t.Fatalf("unexpected writes %+v", s)
	}
	if len(s.Titles) != 30 {
		t.Fatalf("expected 30 titles, got %d", len(s.Titles))
	}
	if s.Duration() != time.Minute {
		t.Fatalf("unexpected duration %v", s.Duration())
	}
}

func TestExtractedContentValid(t *testing.T) {
	t.Parallel()

	if (ExtractedContent{Text: "   "}).Valid(1) {
		t.Fatal("blank text is never valid")
	}
	if !(ExtractedContent{Text: "ééééé"}).Valid(5) {
		t.Fatal("length counts runes")
	}
	if (ExtractedContent{Text: "short"}).Valid(6) {
		t.Fatal("text under the minimum is invalid")
	}
}

func TestSnapshotFromItem(t *testing.T) {
	t.Parallel()

	published := time.Date(2026, 10, 17, 9, 0, 0, 0, time.FixedZone("EEST", 3*3600))
	snap := SnapshotFromItem(NewsItem{
		Link:        "https://news.example/a",
		Title:       "Headline",
		SourceName:  "News",
		SummaryText: "Summary.",
		PublishedAt: published,
	})

	if snap.Image != nil {
		t.Fatal("missing image must export as null")
	}
	if snap.Date.Location() != time.UTC || !snap.Date.Equal(published) {
		t.Fatalf("date should be the same instant in UTC, got %v", snap.Date)
	}
	if snap.Source != "News" || snap.Headline != "Headline" || snap.URL != "https://news.example/a" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	snap = SnapshotFromItem(NewsItem{ImageURL: "https://news.example/a.jpg"})
	if snap.Image == nil || *snap.Image != "https://news.example/a.jpg" {
		t.Fatalf("image not carried over: %+v", snap.Image)
	}
}

func TestSourceIndex(t *testing.T) {
	t.Parallel()

	idx := NewSourceIndex([]Source{{ID: "a", Name: "First"}, {ID: "b", Name: "B"}, {ID: "a", Name: "Second"}})
	if len(idx) != 2 || idx["a"].Name != "Second" {
		t.Fatalf("unexpected index %+v", idx)
	}
}
