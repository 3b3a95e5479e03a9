package sqlite

import (
	"context"
	"fmt"

	"github.com/rpggio/apontador/internal/domain/submission"
)

// EntryRepository stores fingerprints of posted time entries
type EntryRepository struct {
	db *DB
}

// NewEntryRepository creates a new EntryRepository
func NewEntryRepository(db *DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Exists reports whether an entry with the fingerprint was already accepted
func (r *EntryRepository) Exists(ctx context.Context, fingerprint string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posted_entries WHERE fingerprint = ?`, fingerprint).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return count > 0, nil
}

// Save records an accepted entry. Saving a known fingerprint again keeps
// the first row.
func (r *EntryRepository) Save(ctx context.Context, e *submission.PostedEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posted_entries (
			fingerprint, sheet_id, record_id, task_id, remote_id, endpoint, variant, posted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`,
		e.Fingerprint,
		e.SheetID,
		e.RecordID,
		e.TaskID,
		e.RemoteID,
		e.Endpoint,
		e.Variant,
		e.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save posted entry: %w", err)
	}
	return nil
}

// ListBySheet returns the entries posted for a sheet, oldest first
func (r *EntryRepository) ListBySheet(ctx context.Context, sheetID string) ([]submission.PostedEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fingerprint, sheet_id, record_id, task_id, remote_id, endpoint, variant, posted_at
		FROM posted_entries
		WHERE sheet_id = ?
		ORDER BY posted_at, fingerprint
	`, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posted entries: %w", err)
	}
	defer rows.Close()

	list := []submission.PostedEntry{}
	for rows.Next() {
		var e submission.PostedEntry
		if err := rows.Scan(
			&e.Fingerprint,
			&e.SheetID,
			&e.RecordID,
			&e.TaskID,
			&e.RemoteID,
			&e.Endpoint,
			&e.Variant,
			&e.PostedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan posted entry: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
