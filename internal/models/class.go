package models

import (
	"time"

	"github.com/lib/pq"
)

// Class is a roster of students with a designated class teacher.
// TopStudents is a cached, explicitly-recomputed leaderboard; it may be
// stale between recomputations and is never read by the ranking logic.
type Class struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	RoomNo         string         `db:"room_no" json:"room_no"`
	SchoolID       string         `db:"school_id" json:"school_id"`
	ClassTeacherID string         `db:"class_teacher_id" json:"class_teacher_id"`
	TopStudents    pq.StringArray `db:"top_students" json:"top_students"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
