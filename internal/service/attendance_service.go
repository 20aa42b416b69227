package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyalay/vidyalay-api/internal/dto"
	"github.com/vidyalay/vidyalay-api/internal/models"
	appErrors "github.com/vidyalay/vidyalay-api/pkg/errors"
	"github.com/vidyalay/vidyalay-api/pkg/export"
)

type attendanceRecordStore interface {
	InsertBatch(ctx context.Context, records []models.AttendanceRecord) ([]models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error)
	RegisterRows(ctx context.Context, classID string, from, to time.Time) ([]models.RegisterRow, error)
}

type classRoster interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type classLookup interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type markNotifier interface {
	NotifyMarked(student models.Student, status models.AttendanceStatus)
}

// AttendanceService coordinates marking, listing and exporting attendance.
type AttendanceService struct {
	records   attendanceRecordStore
	roster    classRoster
	classes   classLookup
	notifier  markNotifier
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(records attendanceRecordStore, roster classRoster, classes classLookup, notifier markNotifier, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		records:   records,
		roster:    roster,
		classes:   classes,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Mark records one attendance event per enrolled student for the caller's
// class and day. Students that already have a record for the day are
// skipped silently, which makes the whole operation idempotent under
// retries and duplicate submissions. Notifications fan out after the
// write and never affect the result.
func (s *AttendanceService) Mark(ctx context.Context, claims *models.JWTClaims, req dto.MarkAttendanceRequest) (*dto.MarkAttendanceResponse, error) {
	if claims == nil || claims.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a class teacher can mark attendance")
	}
	if claims.ClassID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned as a class teacher")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid mark attendance request")
	}

	day, err := s.resolveDay(req.Date)
	if err != nil {
		return nil, err
	}

	class, err := s.classes.FindByID(ctx, claims.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	students, err := s.roster.ListByClass(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if len(students) == 0 {
		return nil, appErrors.ErrEmptyRoster
	}

	records := buildMarkSheet(students, req.PresentStudentIDs, class.ID, claims.UserID, day)

	created, err := s.records.InsertBatch(ctx, records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist attendance")
	}
	s.metrics.RecordAttendanceMarked(len(created), len(records)-len(created))

	byID := make(map[string]models.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}
	for _, rec := range created {
		if student, ok := byID[rec.StudentID]; ok {
			s.notifier.NotifyMarked(student, rec.Status)
		}
	}

	s.logger.Info("attendance marked",
		zap.String("class_id", class.ID),
		zap.Time("day", day),
		zap.Int("created", len(created)),
		zap.Int("skipped", len(records)-len(created)))

	return &dto.MarkAttendanceResponse{CreatedCount: len(created)}, nil
}

// buildMarkSheet is the pure decision step: one record per roster student,
// Present when listed, Absent otherwise. No I/O.
func buildMarkSheet(students []models.Student, presentIDs []string, classID, markedBy string, day time.Time) []models.AttendanceRecord {
	present := make(map[string]struct{}, len(presentIDs))
	for _, id := range presentIDs {
		present[id] = struct{}{}
	}

	records := make([]models.AttendanceRecord, 0, len(students))
	for _, student := range students {
		status := models.AttendanceStatusAbsent
		if _, ok := present[student.ID]; ok {
			status = models.AttendanceStatusPresent
		}
		records = append(records, models.AttendanceRecord{
			StudentID: student.ID,
			ClassID:   classID,
			Day:       day,
			Status:    status,
			MarkedBy:  markedBy,
		})
	}
	return records
}

// List returns attendance records scoped to the caller's role: teachers
// see their own class, principals their own school, students their own
// records.
func (s *AttendanceService) List(ctx context.Context, claims *models.JWTClaims, req dto.AttendanceListRequest) ([]models.AttendanceRecordDetail, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}

	filter := models.AttendanceFilter{
		ClassID:   req.ClassID,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortOrder: req.SortOrder,
	}
	if req.Status != nil {
		status := models.AttendanceStatus(*req.Status)
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance status")
		}
		filter.Status = &status
	}

	switch claims.Role {
	case models.RoleTeacher:
		if claims.ClassID == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned as a class teacher")
		}
		if req.ClassID != "" && req.ClassID != claims.ClassID {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "you are not the teacher of this class")
		}
		// A studentId filter narrows within the class scope only.
		filter.ClassID = claims.ClassID
		filter.StudentID = req.StudentID
	case models.RolePrincipal:
		if claims.SchoolID == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "no school assigned")
		}
		filter.SchoolID = claims.SchoolID
		filter.StudentID = req.StudentID
	case models.RoleStudent:
		filter.StudentID = claims.StudentID
		filter.ClassID = ""
	default:
		return nil, nil, appErrors.ErrForbidden
	}

	rows, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ExportResult bundles rendered register bytes with response metadata.
type ExportResult struct {
	ContentType string
	Filename    string
	Payload     []byte
}

// ExportRegister renders the class attendance register as CSV or PDF.
func (s *AttendanceService) ExportRegister(ctx context.Context, claims *models.JWTClaims, req dto.ExportRequest) (*ExportResult, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	switch claims.Role {
	case models.RoleTeacher:
		if claims.ClassID != class.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not the teacher of this class")
		}
	case models.RolePrincipal:
		if claims.SchoolID != class.SchoolID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "this class does not belong to your school")
		}
	default:
		return nil, appErrors.ErrForbidden
	}

	rows, err := s.records.RegisterRows(ctx, class.ID, req.From, req.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load register")
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Roll No", "Student", "Status"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":    row.Day.Format("2006-01-02"),
			"Roll No": row.RollNumber,
			"Student": row.StudentName,
			"Status":  string(row.Status),
		})
	}

	stamp := fmt.Sprintf("%s_%s", req.From.Format("20060102"), req.To.Format("20060102"))
	switch strings.ToLower(req.Format) {
	case "", "csv":
		payload, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("register_%s_%s.csv", class.Name, stamp),
			Payload:     payload,
		}, nil
	case "pdf":
		title := fmt.Sprintf("Attendance Register - %s", class.Name)
		payload, err := export.NewPDFExporter().Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("register_%s_%s.pdf", class.Name, stamp),
			Payload:     payload,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// resolveDay parses the optional request date and normalizes it to the
// canonical day boundary. Absent dates default to today.
func (s *AttendanceService) resolveDay(raw string) (time.Time, error) {
	if raw == "" {
		return models.Day(s.now()), nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		if parsed, err = time.Parse(time.RFC3339, raw); err != nil {
			return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
		}
	}
	return models.Day(parsed), nil
}
