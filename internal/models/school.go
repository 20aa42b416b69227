package models

import (
	"time"

	"github.com/lib/pq"
)

// School owns a set of classes. TopStudents carries the same staleness
// contract as Class.TopStudents, computed over all classes' students.
type School struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Address     string         `db:"address" json:"address"`
	PrincipalID string         `db:"principal_id" json:"principal_id"`
	TopStudents pq.StringArray `db:"top_students" json:"top_students"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
