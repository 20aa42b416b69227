package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidyalay/vidyalay-api/internal/dto"
	"github.com/vidyalay/vidyalay-api/internal/models"
	"github.com/vidyalay/vidyalay-api/internal/service"
	appErrors "github.com/vidyalay/vidyalay-api/pkg/errors"
	"github.com/vidyalay/vidyalay-api/pkg/response"
)

type attendanceMarker interface {
	Mark(ctx context.Context, claims *models.JWTClaims, req dto.MarkAttendanceRequest) (*dto.MarkAttendanceResponse, error)
	List(ctx context.Context, claims *models.JWTClaims, req dto.AttendanceListRequest) ([]models.AttendanceRecordDetail, *models.Pagination, error)
	ExportRegister(ctx context.Context, claims *models.JWTClaims, req dto.ExportRequest) (*service.ExportResult, error)
}

type leaderboardUpdater interface {
	UpdateClassTopStudents(ctx context.Context, claims *models.JWTClaims, classID string) ([]string, error)
	UpdateSchoolTopStudents(ctx context.Context, schoolID string) ([]string, error)
}

// AttendanceHandler exposes marking, listing, exporting and leaderboard
// recomputation endpoints.
type AttendanceHandler struct {
	attendance attendanceMarker
	ranking    leaderboardUpdater
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance attendanceMarker, ranking leaderboardUpdater) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, ranking: ranking}
}

// Mark godoc
// @Summary Mark today's attendance for the caller's class
// @Tags Attendance
// @Accept json
// @Produce json
// @Param request body dto.MarkAttendanceRequest true "Present student ids"
// @Success 201 {object} response.Envelope
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	result, err := h.attendance.Mark(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List attendance records scoped to the caller's role
// @Tags Attendance
// @Produce json
// @Param classId query string false "Class ID (principal only)"
// @Param studentId query string false "Student ID"
// @Param status query string false "Attendance status (Present/Absent)"
// @Param dateFrom query string false "From date (YYYY-MM-DD)"
// @Param dateTo query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sortOrder query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req := dto.AttendanceListRequest{
		ClassID:   c.Query("classId"),
		StudentID: c.Query("studentId"),
		SortOrder: c.Query("sortOrder"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "limit", 50),
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}
	from, err := parseDateParam(c.Query("dateFrom"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateParam(c.Query("dateTo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	req.DateFrom = from
	req.DateTo = to

	rows, pagination, err := h.attendance.List(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Export godoc
// @Summary Export a class attendance register as CSV or PDF
// @Tags Attendance
// @Produce octet-stream
// @Param classId query string true "Class ID"
// @Param from query string true "From date (YYYY-MM-DD)"
// @Param to query string true "To date (YYYY-MM-DD)"
// @Param format query string false "Output format (csv/pdf)"
// @Success 200 {file} binary
// @Router /attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	req := dto.ExportRequest{
		ClassID: c.Query("classId"),
		Format:  c.Query("format"),
	}
	if req.ClassID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId is required"))
		return
	}
	now := time.Now()
	req.From = models.Day(now.AddDate(0, -1, 0))
	req.To = models.Day(now)
	if from != nil {
		req.From = models.Day(*from)
	}
	if to != nil {
		req.To = models.Day(*to)
	}

	result, err := h.attendance.ExportRegister(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

// UpdateClassTop godoc
// @Summary Recompute the top students leaderboard for a class
// @Tags Ranking
// @Accept json
// @Produce json
// @Param request body dto.UpdateClassTopRequest true "Class id"
// @Success 200 {object} response.Envelope
// @Router /attendance/update/class-top [post]
func (h *AttendanceHandler) UpdateClassTop(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	// An empty body is a valid request; teachers default to their homeroom.
	var req dto.UpdateClassTopRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	classID := req.ClassID
	if claims.Role == models.RoleTeacher {
		// Teachers may only rebuild their own homeroom's board.
		if classID != "" && classID != claims.ClassID {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
		classID = claims.ClassID
	}
	if classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class_id is required"))
		return
	}

	top, err := h.ranking.UpdateClassTopStudents(c.Request.Context(), claims, classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TopStudentsResponse{TopStudents: top}, nil)
}

// UpdateSchoolTop godoc
// @Summary Recompute the top students leaderboard for the caller's school
// @Tags Ranking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/update/school-top [post]
func (h *AttendanceHandler) UpdateSchoolTop(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.SchoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no school assigned"))
		return
	}

	top, err := h.ranking.UpdateSchoolTopStudents(c.Request.Context(), claims.SchoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TopStudentsResponse{TopStudents: top}, nil)
}
