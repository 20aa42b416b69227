package models

import (
	"time"

	"github.com/lib/pq"
)

// ParentContact holds guardian details used for attendance notifications.
type ParentContact struct {
	FatherName string `db:"father_name" json:"father_name"`
	MotherName string `db:"mother_name" json:"mother_name"`
	Contact    string `db:"contact" json:"contact"`
}

// Student is a person enrolled in exactly one class at a time.
// AttendanceIDs mirrors the ids of this student's attendance records; the
// marking path appends to it in the same statement that inserts the record.
type Student struct {
	ID            string         `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	RollNumber    string         `db:"roll_number" json:"roll_number"`
	ClassID       string         `db:"class_id" json:"class_id"`
	SchoolID      string         `db:"school_id" json:"school_id"`
	ParentContact ParentContact  `db:"parent_contact" json:"parent_contact"`
	AttendanceIDs pq.StringArray `db:"attendance_ids" json:"attendance_ids"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// StudentRef is the minimal projection used when resolving leaderboard ids.
type StudentRef struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	RollNumber string `db:"roll_number" json:"roll_number"`
	ClassID    string `db:"class_id" json:"class_id"`
}

// ClassRosterSize is the enrolled-student count for one class.
type ClassRosterSize struct {
	ClassID string `db:"class_id"`
	Total   int    `db:"total"`
}
