package dto

// DashboardStats summarises school-wide totals.
type DashboardStats struct {
	TotalStudents  int `json:"total_students"`
	TotalClasses   int `json:"total_classes"`
	AttendanceRate int `json:"attendance_rate"`
}

// TrendPoint is one day of the attendance trend series. Rate is computed
// against the roster size, so days with no records report zero.
type TrendPoint struct {
	Day     string `json:"day"`
	Label   string `json:"label"`
	Present int    `json:"present"`
	Total   int    `json:"total"`
	Rate    int    `json:"rate"`
}

// TopStudentEntry is a leaderboard row resolved to display fields.
type TopStudentEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
	ClassName  string `json:"class_name,omitempty"`
	Percentage int    `json:"percentage"`
}

// ClassAttendanceRow is today's per-class present/total snapshot.
type ClassAttendanceRow struct {
	ClassID   string `json:"class_id"`
	ClassName string `json:"class_name"`
	Present   int    `json:"present"`
	Total     int    `json:"total"`
	Rate      int    `json:"rate"`
}

// PrincipalDashboardResponse composes the school-scope dashboard payload.
type PrincipalDashboardResponse struct {
	Stats           DashboardStats       `json:"stats"`
	AttendanceTrend []TrendPoint         `json:"attendance_trend"`
	TopStudents     []TopStudentEntry    `json:"top_students"`
	ClassAttendance []ClassAttendanceRow `json:"class_attendance"`
}

// TeacherDashboardResponse composes the class-scope dashboard payload.
type TeacherDashboardResponse struct {
	ClassID         string            `json:"class_id"`
	ClassName       string            `json:"class_name"`
	Today           ClassAttendanceRow `json:"today"`
	AttendanceTrend []TrendPoint      `json:"attendance_trend"`
	TopStudents     []TopStudentEntry `json:"top_students"`
}
