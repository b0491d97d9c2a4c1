package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sshaikhIntervision/Brinkmann/internal/domain"
)

// ErrRecordNotFound is returned when no ingest record exists for a filename.
var ErrRecordNotFound = errors.New("ingest record not found")

// sourceURLColumns lists columns for SELECT queries on source_url.
const sourceURLColumns = `filename, blobname, sharepoint_url`

// createSourceURLTable is the idempotent schema statement for the
// provenance table.
const createSourceURLTable = `
	CREATE TABLE IF NOT EXISTS source_url (
		filename       TEXT PRIMARY KEY,
		blobname       TEXT NOT NULL,
		sharepoint_url TEXT NOT NULL
	)
`

// SourceURLRepository persists ingest records keyed by logical filename.
// Upserts are last-write-wins; the database enforces per-key atomicity, so
// the repository is safe for concurrent use without client-side locking.
type SourceURLRepository struct {
	db *sqlx.DB
}

// NewSourceURLRepository creates a new repository.
func NewSourceURLRepository(db *sqlx.DB) *SourceURLRepository {
	return &SourceURLRepository{db: db}
}

// EnsureSchema creates the source_url table when it does not exist.
func (r *SourceURLRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSourceURLTable); err != nil {
		return fmt.Errorf("ensure source_url schema: %w", err)
	}
	return nil
}

// Upsert inserts an ingest record or updates the existing row with the
// same filename.
func (r *SourceURLRepository) Upsert(ctx context.Context, rec *domain.IngestRecord) error {
	query := `
		INSERT INTO source_url (filename, blobname, sharepoint_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (filename)
		DO UPDATE SET blobname = EXCLUDED.blobname, sharepoint_url = EXCLUDED.sharepoint_url
	`

	if _, err := r.db.ExecContext(ctx, query, rec.Filename, rec.BlobName, rec.SharePointURL); err != nil {
		return fmt.Errorf("upsert ingest record %s: %w", rec.Filename, err)
	}
	return nil
}

// GetByFilename returns the ingest record for a logical filename.
func (r *SourceURLRepository) GetByFilename(ctx context.Context, filename string) (*domain.IngestRecord, error) {
	query := `SELECT ` + sourceURLColumns + ` FROM source_url WHERE filename = $1`

	var rec domain.IngestRecord
	if err := r.db.GetContext(ctx, &rec, query, filename); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("select ingest record %s: %w", filename, err)
	}
	return &rec, nil
}

// List returns ingest records ordered by filename.
func (r *SourceURLRepository) List(ctx context.Context, limit, offset int) ([]*domain.IngestRecord, error) {
	query := `SELECT ` + sourceURLColumns + ` FROM source_url ORDER BY filename LIMIT $1 OFFSET $2`

	var records []*domain.IngestRecord
	if err := r.db.SelectContext(ctx, &records, query, limit, offset); err != nil {
		return nil, fmt.Errorf("list ingest records: %w", err)
	}
	if records == nil {
		records = []*domain.IngestRecord{}
	}
	return records, nil
}

// Count returns the total number of ingest records.
func (r *SourceURLRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM source_url`); err != nil {
		return 0, fmt.Errorf("count ingest records: %w", err)
	}
	return count, nil
}
