// internal/infra/database/postgres_note_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"press_distributor/internal/domain/note"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrNoteNotFound = fmt.Errorf("note not found")

type PostgresNoteRepository struct {
	db *sql.DB
}

func NewPostgresNoteRepository(db *sql.DB) *PostgresNoteRepository {
	return &PostgresNoteRepository{db: db}
}

const noteColumns = `id, title, summary, slug, institution_id, published, published_at, created_at, updated_at`

func scanNote(row interface{ Scan(...any) error }, n *note.Note) error {
	return row.Scan(&n.ID, &n.Title, &n.Summary, &n.Slug, &n.InstitutionID, &n.Published, &n.PublishedAt, &n.CreatedAt, &n.UpdatedAt)
}

func (r *PostgresNoteRepository) GetByID(ctx context.Context, id int64) (*note.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`
	n := &note.Note{}
	err := scanNote(r.db.QueryRowContext(ctx, query, id), n)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("error getting note by ID: %w", err)
	}
	return n, nil
}

func (r *PostgresNoteRepository) GetBySlug(ctx context.Context, slug string) (*note.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE slug = $1`
	n := &note.Note{}
	err := scanNote(r.db.QueryRowContext(ctx, query, slug), n)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("error getting note by slug: %w", err)
	}
	return n, nil
}

func (r *PostgresNoteRepository) ListPublishedSince(ctx context.Context, since time.Time) ([]*note.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes
               WHERE published = TRUE AND created_at >= $1
               ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("error listing published notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*note.Note, 0)
	for rows.Next() {
		n := &note.Note{}
		if err := scanNote(rows, n); err != nil {
			return nil, fmt.Errorf("error scanning note row: %w", err)
		}
		notes = append(notes, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating note rows: %w", err)
	}
	return notes, nil
}
