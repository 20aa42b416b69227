package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vidyalay/vidyalay-api/internal/models"
)

// AttendanceRepository is the record store for attendance events.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// InsertBatch writes the given records in a single statement, skipping any
// student that already has a record for the same day, and appends each
// created record's id to the owning student's attendance_ids in the same
// statement. The unique constraint on (student_id, day) makes the
// check-and-insert atomic under concurrent marking calls. Returns only the
// records that were actually created.
func (r *AttendanceRepository) InsertBatch(ctx context.Context, records []models.AttendanceRecord) ([]models.AttendanceRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*7)
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.Day = models.Day(rec.Day)
		base := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, rec.ID, rec.StudentID, rec.ClassID, rec.Day, rec.Status, rec.MarkedBy, rec.CreatedAt)
	}

	query := fmt.Sprintf(`WITH ins AS (
    INSERT INTO attendance_records (id, student_id, class_id, day, status, marked_by, created_at)
    VALUES %s
    ON CONFLICT (student_id, day) DO NOTHING
    RETURNING id, student_id
), backref AS (
    UPDATE students s
    SET attendance_ids = array_append(s.attendance_ids, i.id), updated_at = NOW()
    FROM ins i
    WHERE s.id = i.student_id
    RETURNING i.id, i.student_id
)
SELECT id, student_id FROM backref`, strings.Join(values, ", "))

	var created []struct {
		ID        string `db:"id"`
		StudentID string `db:"student_id"`
	}
	if err := r.db.SelectContext(ctx, &created, query, args...); err != nil {
		return nil, fmt.Errorf("insert attendance batch: %w", err)
	}

	byID := make(map[string]models.AttendanceRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	out := make([]models.AttendanceRecord, 0, len(created))
	for _, row := range created {
		out = append(out, byID[row.ID])
	}
	return out, nil
}

// List returns attendance rows with student metadata matching the filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	base := `FROM attendance_records ar
JOIN students s ON s.id = ar.student_id
JOIN classes c ON c.id = ar.class_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("ar.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SchoolID != "" {
		where = append(where, fmt.Sprintf("c.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("ar.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("ar.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("ar.day >= $%d", len(args)+1))
		args = append(args, models.Day(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("ar.day <= $%d", len(args)+1))
		args = append(args, models.Day(*filter.DateTo))
	}
	whereClause := strings.Join(where, " AND ")

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT ar.id, ar.student_id, ar.class_id, ar.day, ar.status, ar.marked_by, ar.created_at,
        s.name AS student_name, s.roll_number, c.name AS class_name
        %s WHERE %s
        ORDER BY ar.day %s, s.roll_number ASC
        LIMIT %d OFFSET %d`, base, whereClause, order, size, offset)

	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// CountsByStudents tallies present and total records per student in one
// bulk query. A nil bound leaves that side of the window open.
func (r *AttendanceRepository) CountsByStudents(ctx context.Context, studentIDs []string, from, to *time.Time) ([]models.StudentAttendanceCount, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	where := []string{"student_id = ANY($1)"}
	args := []interface{}{pq.Array(studentIDs)}
	if from != nil {
		where = append(where, fmt.Sprintf("day >= $%d", len(args)+1))
		args = append(args, models.Day(*from))
	}
	if to != nil {
		where = append(where, fmt.Sprintf("day < $%d", len(args)+1))
		args = append(args, models.Day(*to))
	}

	query := fmt.Sprintf(`SELECT student_id,
        COUNT(*) FILTER (WHERE status = 'Present') AS present,
        COUNT(*) AS total
        FROM attendance_records
        WHERE %s
        GROUP BY student_id`, strings.Join(where, " AND "))

	var rows []models.StudentAttendanceCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count attendance by student: %w", err)
	}
	return rows, nil
}

// DailyPresentCounts tallies present records per day for the given students
// within [from, to).
func (r *AttendanceRepository) DailyPresentCounts(ctx context.Context, studentIDs []string, from, to time.Time) ([]models.DailyAttendanceCount, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query := `SELECT day, COUNT(*) FILTER (WHERE status = 'Present') AS present
        FROM attendance_records
        WHERE student_id = ANY($1) AND day >= $2 AND day < $3
        GROUP BY day
        ORDER BY day ASC`

	var rows []models.DailyAttendanceCount
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(studentIDs), models.Day(from), models.Day(to)); err != nil {
		return nil, fmt.Errorf("count attendance by day: %w", err)
	}
	return rows, nil
}

// ClassPresentCounts tallies present records per class for a single day
// window, in one bulk query across all requested classes.
func (r *AttendanceRepository) ClassPresentCounts(ctx context.Context, classIDs []string, window models.DayWindow) ([]models.ClassAttendanceCount, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	query := `SELECT class_id, COUNT(*) FILTER (WHERE status = 'Present') AS present
        FROM attendance_records
        WHERE class_id = ANY($1) AND day >= $2 AND day < $3
        GROUP BY class_id`

	var rows []models.ClassAttendanceCount
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(classIDs), window.Start, window.End); err != nil {
		return nil, fmt.Errorf("count attendance by class: %w", err)
	}
	return rows, nil
}

// RegisterRows returns the rows of a class attendance register ordered by
// day then roll number, for export.
func (r *AttendanceRepository) RegisterRows(ctx context.Context, classID string, from, to time.Time) ([]models.RegisterRow, error) {
	query := `SELECT ar.day, s.name AS student_name, s.roll_number, ar.status
        FROM attendance_records ar
        JOIN students s ON s.id = ar.student_id
        WHERE ar.class_id = $1 AND ar.day >= $2 AND ar.day < $3
        ORDER BY ar.day ASC, s.roll_number ASC`

	var rows []models.RegisterRow
	if err := r.db.SelectContext(ctx, &rows, query, classID, models.Day(from), models.Day(to).AddDate(0, 0, 1)); err != nil {
		return nil, fmt.Errorf("load attendance register: %w", err)
	}
	return rows, nil
}
