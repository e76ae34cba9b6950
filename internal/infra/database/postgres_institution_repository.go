// internal/infra/database/postgres_institution_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"press_distributor/internal/domain/institution"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrInstitutionNotFound = fmt.Errorf("institution not found")

type PostgresInstitutionRepository struct {
	db *sql.DB
}

func NewPostgresInstitutionRepository(db *sql.DB) *PostgresInstitutionRepository {
	return &PostgresInstitutionRepository{db: db}
}

const institutionColumns = `id, slug, name, abbreviation, logo_url, facebook_page_url, publication_hour, is_active, created_at, updated_at`

func scanInstitution(row interface{ Scan(...any) error }, inst *institution.Institution) error {
	return row.Scan(&inst.ID, &inst.Slug, &inst.Name, &inst.Abbreviation, &inst.LogoURL,
		&inst.FacebookPageURL, &inst.PublicationHour, &inst.IsActive, &inst.CreatedAt, &inst.UpdatedAt)
}

func (r *PostgresInstitutionRepository) GetByID(ctx context.Context, id int64) (*institution.Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions WHERE id = $1`
	inst := &institution.Institution{}
	err := scanInstitution(r.db.QueryRowContext(ctx, query, id), inst)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInstitutionNotFound
		}
		return nil, fmt.Errorf("error getting institution by ID: %w", err)
	}
	return inst, nil
}

func (r *PostgresInstitutionRepository) ListActiveByHour(ctx context.Context, hour *int) ([]*institution.Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions WHERE is_active = TRUE`
	args := []any{}
	if hour != nil {
		query += ` AND publication_hour = $1`
		args = append(args, *hour)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing active institutions: %w", err)
	}
	defer rows.Close()

	institutions := make([]*institution.Institution, 0)
	for rows.Next() {
		inst := &institution.Institution{}
		if err := scanInstitution(rows, inst); err != nil {
			return nil, fmt.Errorf("error scanning institution row: %w", err)
		}
		institutions = append(institutions, inst)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating institution rows: %w", err)
	}
	return institutions, nil
}
