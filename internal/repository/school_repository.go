package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vidyalay/vidyalay-api/internal/models"
)

// SchoolRepository provides school reads and leaderboard persistence.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindByID loads a single school.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	query := `SELECT id, name, address, principal_id, top_students, created_at, updated_at
        FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, fmt.Errorf("find school %s: %w", id, err)
	}
	return &school, nil
}

// UpdateTopStudents overwrites the cached leaderboard for the school.
func (r *SchoolRepository) UpdateTopStudents(ctx context.Context, schoolID string, studentIDs []string) error {
	query := `UPDATE schools SET top_students = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, schoolID, pq.Array(studentIDs), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update school top students: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update school top students: school %s not found", schoolID)
	}
	return nil
}
