// Package storage persists news items and reads the source registry.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// Schema documents the tables the repository expects. The unique constraint
// on news_items.link is what makes upserts idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS sources (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	discovery_endpoint TEXT NOT NULL,
	category           TEXT,
	strategy           TEXT NOT NULL DEFAULT 'feed',
	active             BOOLEAN NOT NULL DEFAULT TRUE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS news_items (
	id           BIGSERIAL PRIMARY KEY,
	link         TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	source_id    TEXT REFERENCES sources (id),
	source_name  TEXT NOT NULL,
	summary_text TEXT NOT NULL,
	image_url    TEXT,
	published_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS news_items_created_at_idx ON news_items (created_at);
CREATE INDEX IF NOT EXISTS news_items_source_published_idx ON news_items (source_id, published_at);
`

const upsertConflict = `ON CONFLICT (link) DO UPDATE SET
	title = EXCLUDED.title,
	source_id = EXCLUDED.source_id,
	source_name = EXCLUDED.source_name,
	summary_text = EXCLUDED.summary_text,
	image_url = COALESCE(EXCLUDED.image_url, news_items.image_url),
	published_at = EXCLUDED.published_at
RETURNING (xmax = 0) AS inserted`

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	newsItemColumns = []string{
		"link", "title", "source_id", "source_name", "summary_text", "image_url", "published_at", "created_at",
	}
	sourceColumns = []string{"id", "name", "discovery_endpoint", "category", "strategy", "created_at"}
)

// PostgresRepository persists news items into Postgres and serves the source registry.
type PostgresRepository struct {
	db *sqlx.DB
}

var (
	_ ports.NewsSink       = (*PostgresRepository)(nil)
	_ ports.DuplicateGate  = (*PostgresRepository)(nil)
	_ ports.SourceRegistry = (*PostgresRepository)(nil)
	_ ports.SnapshotReader = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sqlx.DB implementation.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type newsItemRow struct {
	Link        string         `db:"link"`
	Title       string         `db:"title"`
	SourceID    sql.NullString `db:"source_id"`
	SourceName  string         `db:"source_name"`
	SummaryText string         `db:"summary_text"`
	ImageURL    sql.NullString `db:"image_url"`
	PublishedAt time.Time      `db:"published_at"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r newsItemRow) toDomain() domain.NewsItem {
	return domain.NewsItem{
		Link:        r.Link,
		Title:       r.Title,
		SourceID:    r.SourceID.String,
		SourceName:  r.SourceName,
		SummaryText: r.SummaryText,
		ImageURL:    r.ImageURL.String,
		PublishedAt: r.PublishedAt.UTC(),
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type sourceRow struct {
	ID                string         `db:"id"`
	Name              string         `db:"name"`
	DiscoveryEndpoint string         `db:"discovery_endpoint"`
	Category          sql.NullString `db:"category"`
	Strategy          sql.NullString `db:"strategy"`
	CreatedAt         time.Time      `db:"created_at"`
}

// UpsertNewsItem inserts or overwrites the row keyed by link in one statement.
// The inserted/updated report comes from the same statement, so it cannot race
// with a concurrent writer.
func (r *PostgresRepository) UpsertNewsItem(ctx context.Context, item domain.NewsItem) (domain.UpsertResult, error) {
	if item.Link == "" {
		return "", fmt.Errorf("%w: empty link", domain.ErrPersistence)
	}
	item = item.Normalized()

	query, args, err := psql.Insert("news_items").
		Columns("link", "title", "source_id", "source_name", "summary_text", "image_url", "published_at").
		Values(item.Link, item.Title, nullString(item.SourceID), item.SourceName, item.SummaryText, nullString(item.ImageURL), item.PublishedAt).
		Suffix(upsertConflict).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("%w: build upsert: %w", domain.ErrPersistence, err)
	}

	var inserted bool
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&inserted); err != nil {
		return "", fmt.Errorf("%w: upsert %s: %w", domain.ErrPersistence, item.Link, err)
	}

	if inserted {
		return domain.UpsertInserted, nil
	}
	return domain.UpsertUpdated, nil
}

// Known reports whether a row with link exists. Reporting only.
func (r *PostgresRepository) Known(ctx context.Context, link string) (bool, error) {
	query, args, err := psql.Select("1").
		Prefix("SELECT EXISTS (").
		From("news_items").
		Where(sq.Eq{"link": link}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("query exists: %w", err)
	}
	return exists, nil
}

// ListActiveSources reads the registry.
func (r *PostgresRepository) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := psql.Select(sourceColumns...).
		From("sources").
		Where(sq.Eq{"active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: build query: %w", domain.ErrRegistry, err)
	}

	var rows []sourceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: list sources: %w", domain.ErrRegistry, err)
	}

	sources := make([]domain.Source, 0, len(rows))
	for _, row := range rows {
		strategy := domain.StrategyKind(row.Strategy.String)
		if strategy == "" {
			strategy = domain.StrategyFeed
		}
		sources = append(sources, domain.Source{
			ID:                row.ID,
			Name:              row.Name,
			DiscoveryEndpoint: row.DiscoveryEndpoint,
			Category:          row.Category.String,
			Strategy:          strategy,
			CreatedAt:         row.CreatedAt.UTC(),
		})
	}
	return sources, nil
}

const upsertSourceConflict = `ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	discovery_endpoint = EXCLUDED.discovery_endpoint,
	category = EXCLUDED.category,
	strategy = EXCLUDED.strategy,
	active = TRUE
RETURNING (xmax = 0) AS inserted`

// UpsertSources writes sources into the registry table in one transaction so
// configured sources satisfy the news_items foreign key. Any failure rolls the
// whole batch back.
func (r *PostgresRepository) UpsertSources(ctx context.Context, sources []domain.Source) (created, updated int, err error) {
	if len(sources) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: begin transaction: %w", domain.ErrRegistry, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, src := range sources {
		strategy := src.Strategy
		if strategy == "" {
			strategy = domain.StrategyFeed
		}
		query, args, buildErr := psql.Insert("sources").
			Columns("id", "name", "discovery_endpoint", "category", "strategy", "active").
			Values(src.ID, src.Name, src.DiscoveryEndpoint, nullString(src.Category), string(strategy), true).
			Suffix(upsertSourceConflict).
			ToSql()
		if buildErr != nil {
			err = fmt.Errorf("%w: build source upsert: %w", domain.ErrRegistry, buildErr)
			return 0, 0, err
		}

		var inserted bool
		if scanErr := tx.QueryRowxContext(ctx, query, args...).Scan(&inserted); scanErr != nil {
			err = fmt.Errorf("%w: upsert source %q: %w", domain.ErrRegistry, src.ID, scanErr)
			return 0, 0, err
		}
		if inserted {
			created++
		} else {
			updated++
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("%w: commit sources: %w", domain.ErrRegistry, commitErr)
		return 0, 0, err
	}
	return created, updated, nil
}

// ItemsCreatedSince returns items created strictly after since, oldest first.
func (r *PostgresRepository) ItemsCreatedSince(ctx context.Context, since time.Time) ([]domain.NewsItem, error) {
	query, args, err := psql.Select(newsItemColumns...).
		From("news_items").
		Where(sq.Gt{"created_at": since.UTC()}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build snapshot query: %w", err)
	}

	var rows []newsItemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}

	items := make([]domain.NewsItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

// CountRecent counts items published at or after since, optionally for one source.
func (r *PostgresRepository) CountRecent(ctx context.Context, since time.Time, sourceID string) (int, error) {
	builder := psql.Select("COUNT(*)").
		From("news_items").
		Where(sq.GtOrEq{"published_at": since.UTC()})
	if sourceID != "" {
		builder = builder.Where(sq.Eq{"source_id": sourceID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count recent: %w", err)
	}
	return count, nil
}

// EnsureSchema applies Schema.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
