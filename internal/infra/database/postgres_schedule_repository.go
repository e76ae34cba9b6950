// internal/infra/database/postgres_schedule_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"press_distributor/internal/domain/schedule"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors specific to schedule repository
var ErrRecordNotFound = fmt.Errorf("schedule record not found")
var ErrDuplicateRecord = fmt.Errorf("duplicate non-failed schedule record for (note, destination)")
var ErrCursorNotFound = fmt.Errorf("destination cursor not found")
var ErrCursorConflict = fmt.Errorf("destination cursor was advanced by another writer")

type PostgresScheduleRepository struct {
	db *sql.DB
}

func NewPostgresScheduleRepository(db *sql.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

// --- ScheduleRecord methods ---

func (r *PostgresScheduleRepository) CreateRecord(ctx context.Context, rec *schedule.Record) error {
	query := `INSERT INTO schedule_records (note_id, destination_id, scheduled_for, status, last_error, platform_post_id)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rec.NoteID, rec.DestinationID, rec.ScheduledFor, rec.Status, rec.LastError, rec.PlatformPostID,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		// The partial unique index only covers PENDING/SCHEDULED rows, so failed
		// attempts can pile up for the audit trail while live records stay unique.
		if strings.Contains(err.Error(), "schedule_records_note_destination_live_unique") {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("error creating schedule record: %w", err)
	}
	return nil
}

func (r *PostgresScheduleRepository) UpdateRecord(ctx context.Context, rec *schedule.Record) error {
	query := `UPDATE schedule_records
               SET status = $1, scheduled_for = $2, last_error = $3, platform_post_id = $4, updated_at = NOW()
               WHERE id = $5
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rec.Status, rec.ScheduledFor, rec.LastError, rec.PlatformPostID, rec.ID,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrRecordNotFound
		}
		return fmt.Errorf("error updating schedule record: %w", err)
	}
	return nil
}

const recordColumns = `id, note_id, destination_id, scheduled_for, status, last_error, platform_post_id, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }, rec *schedule.Record) error {
	return row.Scan(&rec.ID, &rec.NoteID, &rec.DestinationID, &rec.ScheduledFor,
		&rec.Status, &rec.LastError, &rec.PlatformPostID, &rec.CreatedAt, &rec.UpdatedAt)
}

func (r *PostgresScheduleRepository) GetScheduled(ctx context.Context, noteID int64, destinationID string) (*schedule.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM schedule_records
               WHERE note_id = $1 AND destination_id = $2 AND status = $3
               ORDER BY created_at DESC LIMIT 1`
	rec := &schedule.Record{}
	err := scanRecord(r.db.QueryRowContext(ctx, query, noteID, destinationID, schedule.StatusScheduled), rec)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("error getting scheduled record: %w", err)
	}
	return rec, nil
}

func (r *PostgresScheduleRepository) GetLive(ctx context.Context, noteID int64, destinationID string) (*schedule.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM schedule_records
               WHERE note_id = $1 AND destination_id = $2 AND status IN ($3, $4)
               ORDER BY created_at DESC LIMIT 1`
	rec := &schedule.Record{}
	err := scanRecord(r.db.QueryRowContext(ctx, query, noteID, destinationID, schedule.StatusPending, schedule.StatusScheduled), rec)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("error getting live record: %w", err)
	}
	return rec, nil
}

func (r *PostgresScheduleRepository) ListByNote(ctx context.Context, noteID int64) ([]*schedule.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM schedule_records
               WHERE note_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("error querying schedule records by note: %w", err)
	}
	defer rows.Close()

	records := make([]*schedule.Record, 0)
	for rows.Next() {
		rec := &schedule.Record{}
		if err := scanRecord(rows, rec); err != nil {
			return nil, fmt.Errorf("error scanning schedule record row: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule record rows: %w", err)
	}
	return records, nil
}

// --- DestinationCursor methods ---

func (r *PostgresScheduleRepository) GetCursor(ctx context.Context, destinationID string) (*schedule.Cursor, error) {
	query := `SELECT destination_id, last_assigned_at, updated_at FROM destination_cursors WHERE destination_id = $1`
	cursor := &schedule.Cursor{}
	err := r.db.QueryRowContext(ctx, query, destinationID).Scan(&cursor.DestinationID, &cursor.LastAssignedAt, &cursor.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCursorNotFound
		}
		return nil, fmt.Errorf("error getting destination cursor: %w", err)
	}
	return cursor, nil
}

// AdvanceCursor performs a compare-and-swap move of the cursor from prev to
// next. A fresh destination (prev invalid) is created with an insert that
// tolerates a concurrent first writer; an existing row is only updated when
// last_assigned_at still equals prev.
func (r *PostgresScheduleRepository) AdvanceCursor(ctx context.Context, destinationID string, prev sql.NullTime, next time.Time) error {
	if !prev.Valid {
		query := `INSERT INTO destination_cursors (destination_id, last_assigned_at)
                   VALUES ($1, $2)
                   ON CONFLICT (destination_id) DO UPDATE
                   SET last_assigned_at = EXCLUDED.last_assigned_at, updated_at = NOW()
                   WHERE destination_cursors.last_assigned_at IS NULL`
		res, err := r.db.ExecContext(ctx, query, destinationID, next)
		if err != nil {
			return fmt.Errorf("error initializing destination cursor: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error reading cursor init result: %w", err)
		}
		if affected == 0 {
			return ErrCursorConflict
		}
		return nil
	}

	query := `UPDATE destination_cursors
               SET last_assigned_at = $1, updated_at = NOW()
               WHERE destination_id = $2 AND last_assigned_at = $3`
	res, err := r.db.ExecContext(ctx, query, next, destinationID, prev.Time)
	if err != nil {
		return fmt.Errorf("error advancing destination cursor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading cursor advance result: %w", err)
	}
	if affected == 0 {
		return ErrCursorConflict
	}
	return nil
}
