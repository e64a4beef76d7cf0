package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// Exporter writes the point-in-time snapshot used for external hand-off.
type Exporter struct {
	reader ports.SnapshotReader
}

// NewExporter wraps a snapshot reader.
func NewExporter(reader ports.SnapshotReader) *Exporter {
	return &Exporter{reader: reader}
}

// Export writes items created after since as an indented JSON array and
// returns how many were written. An empty result is written as [].
func (e *Exporter) Export(ctx context.Context, since time.Time, w io.Writer) (int, error) {
	items, err := e.reader.ItemsCreatedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}

	snapshots := make([]domain.Snapshot, 0, len(items))
	for _, item := range items {
		snapshots = append(snapshots, domain.SnapshotFromItem(item))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snapshots); err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	return len(snapshots), nil
}
