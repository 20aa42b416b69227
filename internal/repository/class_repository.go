package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vidyalay/vidyalay-api/internal/models"
)

// ClassRepository provides class reads and leaderboard persistence.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID loads a single class.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := `SELECT id, name, room_no, school_id, class_teacher_id, top_students, created_at, updated_at
        FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, fmt.Errorf("find class %s: %w", id, err)
	}
	return &class, nil
}

// ListBySchool returns every class belonging to the school.
func (r *ClassRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Class, error) {
	query := `SELECT id, name, room_no, school_id, class_teacher_id, top_students, created_at, updated_at
        FROM classes WHERE school_id = $1 ORDER BY name ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, schoolID); err != nil {
		return nil, fmt.Errorf("list classes for school %s: %w", schoolID, err)
	}
	return classes, nil
}

// UpdateTopStudents overwrites the cached leaderboard for the class.
func (r *ClassRepository) UpdateTopStudents(ctx context.Context, classID string, studentIDs []string) error {
	query := `UPDATE classes SET top_students = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, classID, pq.Array(studentIDs), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update class top students: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update class top students: class %s not found", classID)
	}
	return nil
}

// CountBySchool returns the number of classes in the school.
func (r *ClassRepository) CountBySchool(ctx context.Context, schoolID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM classes WHERE school_id = $1`, schoolID); err != nil {
		return 0, fmt.Errorf("count classes for school %s: %w", schoolID, err)
	}
	return total, nil
}
