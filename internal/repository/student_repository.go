package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vidyalay/vidyalay-api/internal/models"
)

const studentColumns = `id, name, roll_number, class_id, school_id,
        father_name AS "parent_contact.father_name",
        mother_name AS "parent_contact.mother_name",
        contact AS "parent_contact.contact",
        attendance_ids, created_at, updated_at`

// StudentRepository provides roster reads for classes and schools.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID loads a single student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, fmt.Errorf("find student %s: %w", id, err)
	}
	return &student, nil
}

// ListByClass returns the current roster of a class ordered by roll number.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE class_id = $1 ORDER BY roll_number ASC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list students for class %s: %w", classID, err)
	}
	return students, nil
}

// ListBySchool returns every student enrolled in any class of the school.
func (r *StudentRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE school_id = $1 ORDER BY class_id ASC, roll_number ASC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, schoolID); err != nil {
		return nil, fmt.Errorf("list students for school %s: %w", schoolID, err)
	}
	return students, nil
}

// RefsByIDs resolves student ids to display projections, preserving no
// particular order. Used to expand persisted leaderboards.
func (r *StudentRepository) RefsByIDs(ctx context.Context, ids []string) ([]models.StudentRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, name, roll_number, class_id FROM students WHERE id = ANY($1)`
	var refs []models.StudentRef
	if err := r.db.SelectContext(ctx, &refs, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("resolve student refs: %w", err)
	}
	return refs, nil
}

// RosterSizes counts enrolled students per class in one query.
func (r *StudentRepository) RosterSizes(ctx context.Context, classIDs []string) ([]models.ClassRosterSize, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	query := `SELECT class_id, COUNT(*) AS total FROM students WHERE class_id = ANY($1) GROUP BY class_id`
	var sizes []models.ClassRosterSize
	if err := r.db.SelectContext(ctx, &sizes, query, pq.Array(classIDs)); err != nil {
		return nil, fmt.Errorf("count roster sizes: %w", err)
	}
	return sizes, nil
}

// CountBySchool returns the number of students enrolled in the school.
func (r *StudentRepository) CountBySchool(ctx context.Context, schoolID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students WHERE school_id = $1`, schoolID); err != nil {
		return 0, fmt.Errorf("count students for school %s: %w", schoolID, err)
	}
	return total, nil
}
