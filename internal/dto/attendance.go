package dto

import "time"

// MarkAttendanceRequest is the payload for marking a class's attendance.
// The class is resolved from the caller's claims, never from the body.
type MarkAttendanceRequest struct {
	PresentStudentIDs []string `json:"present_student_ids" validate:"dive,required"`
	Date              string   `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// MarkAttendanceResponse reports how many records were actually created.
// Students skipped because a record already existed are not counted.
type MarkAttendanceResponse struct {
	CreatedCount int `json:"created_count"`
}

// AttendanceListRequest carries filters for role-scoped listings.
type AttendanceListRequest struct {
	ClassID   string
	StudentID string
	Status    *string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortOrder string
}

// UpdateClassTopRequest names the class whose leaderboard should be
// rebuilt. Teachers may omit it; their homeroom is used.
type UpdateClassTopRequest struct {
	ClassID string `json:"class_id,omitempty"`
}

// TopStudentsResponse returns the recomputed leaderboard ids in rank order.
type TopStudentsResponse struct {
	TopStudents []string `json:"top_students"`
}

// ExportRequest selects the register slice and output format.
type ExportRequest struct {
	ClassID string
	From    time.Time
	To      time.Time
	Format  string
}
