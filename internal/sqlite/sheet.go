package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/repository"
)

// SheetRepository implements sheet.Repository for SQLite
type SheetRepository struct {
	db *DB
}

// NewSheetRepository creates a new SheetRepository
func NewSheetRepository(db *DB) *SheetRepository {
	return &SheetRepository{db: db}
}

// Create stores a sheet and its records in one transaction
func (r *SheetRepository) Create(ctx context.Context, s *sheet.ServiceSheet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sheets (
			id, client, project_id, vertical, service_type, hourly_rate,
			ficha_number, ticket, source_name, strategy, status, created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID,
		s.Client,
		s.ProjectID,
		s.Vertical,
		s.ServiceType,
		s.HourlyRate,
		s.FichaNumber,
		s.Ticket,
		s.SourceName,
		s.Strategy,
		s.Status,
		s.CreatedAt,
		s.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	for i := range s.Records {
		rec := &s.Records[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO activity_records (
				id, sheet_id, position, source_line, date, executor_name, executor_id,
				start_time, end_time, total_duration, billable, description,
				description_found, task_id, task_name
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rec.ID,
			s.ID,
			rec.Position,
			rec.SourceLine,
			rec.Date,
			rec.ExecutorName,
			rec.ExecutorID,
			rec.StartTime,
			rec.EndTime,
			rec.TotalDuration,
			rec.Billable,
			rec.Description,
			rec.DescriptionFound,
			rec.TaskID,
			rec.TaskName,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			if isUniqueViolation(err) {
				return repository.ErrConflict
			}
			return fmt.Errorf("failed to create activity record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sheet: %w", err)
	}
	return nil
}

// Get retrieves a sheet with its records in position order
func (r *SheetRepository) Get(ctx context.Context, id string) (*sheet.ServiceSheet, error) {
	query := `
		SELECT
			id, client, project_id, vertical, service_type, hourly_rate,
			ficha_number, ticket, source_name, strategy, status, created_at, completed_at
		FROM sheets
		WHERE id = ?
	`

	var s sheet.ServiceSheet
	var completedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.Client,
		&s.ProjectID,
		&s.Vertical,
		&s.ServiceType,
		&s.HourlyRate,
		&s.FichaNumber,
		&s.Ticket,
		&s.SourceName,
		&s.Strategy,
		&s.Status,
		&s.CreatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sheet: %w", err)
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}

	records, err := r.records(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Records = records
	return &s, nil
}

func (r *SheetRepository) records(ctx context.Context, sheetID string) ([]sheet.ActivityRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, sheet_id, position, source_line, date, executor_name, executor_id,
			start_time, end_time, total_duration, billable, description,
			description_found, task_id, task_name
		FROM activity_records
		WHERE sheet_id = ?
		ORDER BY position
	`, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity records: %w", err)
	}
	defer rows.Close()

	records := []sheet.ActivityRecord{}
	for rows.Next() {
		var rec sheet.ActivityRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.SheetID,
			&rec.Position,
			&rec.SourceLine,
			&rec.Date,
			&rec.ExecutorName,
			&rec.ExecutorID,
			&rec.StartTime,
			&rec.EndTime,
			&rec.TotalDuration,
			&rec.Billable,
			&rec.Description,
			&rec.DescriptionFound,
			&rec.TaskID,
			&rec.TaskName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// List returns sheet summaries, newest first
func (r *SheetRepository) List(ctx context.Context, opts sheet.ListOptions) ([]sheet.SheetSummary, error) {
	query := `
		SELECT
			s.id, s.client, s.project_id, s.ficha_number, s.source_name, s.status, s.created_at,
			(SELECT COUNT(*) FROM activity_records a WHERE a.sheet_id = s.id)
		FROM sheets s
	`
	var where []string
	var args []any
	if opts.ProjectID != "" {
		where = append(where, "s.project_id = ?")
		args = append(args, opts.ProjectID)
	}
	if opts.Status != "" {
		where = append(where, "s.status = ?")
		args = append(args, opts.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY s.created_at DESC, s.id"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	defer rows.Close()

	list := []sheet.SheetSummary{}
	for rows.Next() {
		var s sheet.SheetSummary
		if err := rows.Scan(
			&s.ID,
			&s.Client,
			&s.ProjectID,
			&s.FichaNumber,
			&s.SourceName,
			&s.Status,
			&s.CreatedAt,
			&s.RecordCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sheet: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// UpdateRecord writes the editable fields of an activity record
func (r *SheetRepository) UpdateRecord(ctx context.Context, rec *sheet.ActivityRecord) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE activity_records
		SET executor_id = ?, description = ?, task_id = ?, task_name = ?
		WHERE id = ? AND sheet_id = ?
	`,
		rec.ExecutorID,
		rec.Description,
		rec.TaskID,
		rec.TaskName,
		rec.ID,
		rec.SheetID,
	)
	if err != nil {
		return fmt.Errorf("failed to update activity record: %w", err)
	}
	return requireAffected(result)
}

// UpdateStatus changes the sheet status
func (r *SheetRepository) UpdateStatus(ctx context.Context, id string, status sheet.Status, completedAt *time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sheets SET status = ?, completed_at = ? WHERE id = ?
	`, status, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update sheet status: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
