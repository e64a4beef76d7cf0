package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/metrics"
)

func TestMetrics_RecordsOutcomes(t *testing.T) {
	m := metrics.New()

	m.SourceFinished(false)
	m.SourceFinished(true)
	m.SourceFinished(false)

	m.CandidateFinished(domain.Done(domain.UpsertInserted))
	m.CandidateFinished(domain.Done(domain.UpsertUpdated))
	m.CandidateFinished(domain.Done(domain.UpsertInserted))
	m.CandidateFinished(domain.Skipped(domain.SkipStale, nil))
	m.CandidateFinished(domain.Skipped(domain.SkipExtractionFailed, errors.New("boom")))

	m.SummarizeAttempt("quota")
	m.SummarizeAttempt("ok")

	assert.InDelta(t, 2, testutil.ToFloat64(m.SourcesTotal.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SourcesTotal.WithLabelValues("failed")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.CandidatesTotal.WithLabelValues("written")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CandidatesTotal.WithLabelValues("stale")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CandidatesTotal.WithLabelValues("extraction_failed")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ItemsWrittenTotal.WithLabelValues("inserted")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ItemsWrittenTotal.WithLabelValues("updated")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SummarizeAttemptsTotal.WithLabelValues("quota")), 0)
}

func TestMetrics_RunFinished(t *testing.T) {
	m := metrics.New()
	started := time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC)

	m.RunFinished(domain.RunSummary{StartedAt: started, FinishedAt: started.Add(90 * time.Second)})

	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDurationSeconds))
	assert.InDelta(t, float64(started.Add(90*time.Second).Unix()), testutil.ToFloat64(m.LastRunTimestampSeconds), 0)
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.SourceFinished(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `newsingestor_sources_total{result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
