package models

import (
	"math"
	"time"
)

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "Present"
	AttendanceStatusAbsent  AttendanceStatus = "Absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceRecord is one observation of a student's presence on one
// calendar day. Records are immutable once written; the store enforces
// uniqueness on (student_id, day).
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	Day       time.Time        `db:"day" json:"day"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceRecordDetail extends a record with student metadata for listings.
type AttendanceRecordDetail struct {
	AttendanceRecord
	StudentName string `db:"student_name" json:"student_name"`
	RollNumber  string `db:"roll_number" json:"roll_number"`
	ClassName   string `db:"class_name" json:"class_name"`
}

// AttendanceFilter defines query filters for attendance listings.
type AttendanceFilter struct {
	ClassID   string
	SchoolID  string
	StudentID string
	Status    *AttendanceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortOrder string
}

// AttendanceStat is the derived per-student aggregate. Always recomputed
// from attendance rows for the query window; never persisted.
type AttendanceStat struct {
	StudentID    string `json:"student_id"`
	PresentCount int    `json:"present_count"`
	RecordCount  int    `json:"record_count"`
	Percentage   int    `json:"percentage"`
}

// NewAttendanceStat derives the aggregate, rounding the percentage half up.
// Zero records yields 0%, not an error.
func NewAttendanceStat(studentID string, present, total int) AttendanceStat {
	stat := AttendanceStat{StudentID: studentID, PresentCount: present, RecordCount: total}
	if total > 0 {
		stat.Percentage = int(math.Round(100 * float64(present) / float64(total)))
	}
	return stat
}

// StudentAttendanceCount is one row of the bulk per-student tally.
type StudentAttendanceCount struct {
	StudentID string `db:"student_id"`
	Present   int    `db:"present"`
	Total     int    `db:"total"`
}

// DailyAttendanceCount is one day's present tally within a window.
type DailyAttendanceCount struct {
	Day     time.Time `db:"day"`
	Present int       `db:"present"`
}

// ClassAttendanceCount is a per-class present tally for a single day.
type ClassAttendanceCount struct {
	ClassID string `db:"class_id"`
	Present int    `db:"present"`
}

// RegisterRow is one line of the exported attendance register.
type RegisterRow struct {
	Day         time.Time        `db:"day"`
	StudentName string           `db:"student_name"`
	RollNumber  string           `db:"roll_number"`
	Status      AttendanceStatus `db:"status"`
}

// Day normalizes an instant to UTC midnight, the canonical stored value.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayWindow is the half-open interval [Start, End) bucketing an instant
// into a calendar day for uniqueness and aggregation purposes.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// NewDayWindow returns the day window containing t.
func NewDayWindow(t time.Time) DayWindow {
	start := Day(t)
	return DayWindow{Start: start, End: start.AddDate(0, 0, 1)}
}

// Contains reports whether the instant falls inside the window.
func (w DayWindow) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && t.Before(w.End)
}
