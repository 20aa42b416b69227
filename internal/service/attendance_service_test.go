package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyalay/vidyalay-api/internal/dto"
	"github.com/vidyalay/vidyalay-api/internal/models"
	appErrors "github.com/vidyalay/vidyalay-api/pkg/errors"
)

// markStoreStub mimics the conflict-skipping insert: a (student, day) pair
// that already exists is silently dropped from the returned set.
type markStoreStub struct {
	existing map[string]struct{}
	inserted [][]models.AttendanceRecord
	listRows []models.AttendanceRecordDetail
	listErr  error
	filter   models.AttendanceFilter
}

func newMarkStoreStub() *markStoreStub {
	return &markStoreStub{existing: make(map[string]struct{})}
}

func (s *markStoreStub) InsertBatch(_ context.Context, records []models.AttendanceRecord) ([]models.AttendanceRecord, error) {
	s.inserted = append(s.inserted, records)
	var created []models.AttendanceRecord
	for _, rec := range records {
		key := fmt.Sprintf("%s|%s", rec.StudentID, rec.Day.Format("2006-01-02"))
		if _, ok := s.existing[key]; ok {
			continue
		}
		s.existing[key] = struct{}{}
		created = append(created, rec)
	}
	return created, nil
}

func (s *markStoreStub) List(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	s.filter = filter
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.listRows, len(s.listRows), nil
}

func (s *markStoreStub) RegisterRows(_ context.Context, classID string, from, to time.Time) ([]models.RegisterRow, error) {
	return nil, nil
}

type rosterStub struct {
	students []models.Student
	err      error
}

func (s rosterStub) ListByClass(_ context.Context, classID string) ([]models.Student, error) {
	return s.students, s.err
}

type classLookupStub struct {
	class *models.Class
	err   error
}

func (s classLookupStub) FindByID(_ context.Context, id string) (*models.Class, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.class, nil
}

type notifierSpy struct {
	notified []string
	statuses map[string]models.AttendanceStatus
}

func newNotifierSpy() *notifierSpy {
	return &notifierSpy{statuses: make(map[string]models.AttendanceStatus)}
}

func (s *notifierSpy) NotifyMarked(student models.Student, status models.AttendanceStatus) {
	s.notified = append(s.notified, student.ID)
	s.statuses[student.ID] = status
}

func rosterOf(n int) []models.Student {
	students := make([]models.Student, 0, n)
	for i := 1; i <= n; i++ {
		students = append(students, models.Student{
			ID:      fmt.Sprintf("stu-%d", i),
			Name:    fmt.Sprintf("Student %d", i),
			ClassID: "class-1",
		})
	}
	return students
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher, ClassID: "class-1", SchoolID: "school-1"}
}

func TestAttendanceServiceMarkPartitionsRoster(t *testing.T) {
	store := newMarkStoreStub()
	notifier := newNotifierSpy()
	svc := NewAttendanceService(store, rosterStub{students: rosterOf(5)}, classLookupStub{class: &models.Class{ID: "class-1", SchoolID: "school-1"}}, notifier, nil, nil, nil)

	resp, err := svc.Mark(context.Background(), teacherClaims(), dto.MarkAttendanceRequest{
		PresentStudentIDs: []string{"stu-1", "stu-3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.CreatedCount)

	require.Len(t, store.inserted, 1)
	statuses := make(map[string]models.AttendanceStatus)
	for _, rec := range store.inserted[0] {
		statuses[rec.StudentID] = rec.Status
		assert.Equal(t, "class-1", rec.ClassID)
		assert.Equal(t, "teacher-1", rec.MarkedBy)
	}
	assert.Equal(t, models.AttendanceStatusPresent, statuses["stu-1"])
	assert.Equal(t, models.AttendanceStatusAbsent, statuses["stu-2"])
	assert.Equal(t, models.AttendanceStatusPresent, statuses["stu-3"])
	assert.Equal(t, models.AttendanceStatusAbsent, statuses["stu-4"])

	assert.Len(t, notifier.notified, 5)
	assert.Equal(t, models.AttendanceStatusAbsent, notifier.statuses["stu-5"])
}

func TestAttendanceServiceMarkIsIdempotent(t *testing.T) {
	store := newMarkStoreStub()
	notifier := newNotifierSpy()
	svc := NewAttendanceService(store, rosterStub{students: rosterOf(3)}, classLookupStub{class: &models.Class{ID: "class-1"}}, notifier, nil, nil, nil)

	first, err := svc.Mark(context.Background(), teacherClaims(), dto.MarkAttendanceRequest{PresentStudentIDs: []string{"stu-1"}})
	require.NoError(t, err)
	assert.Equal(t, 3, first.CreatedCount)

	second, err := svc.Mark(context.Background(), teacherClaims(), dto.MarkAttendanceRequest{PresentStudentIDs: []string{"stu-1"}})
	require.NoError(t, err)
	assert.Equal(t, 0, second.CreatedCount)

	// Only the first call produced records, so only it notified.
	assert.Len(t, notifier.notified, 3)
}

func TestAttendanceServiceMarkRequiresClassTeacher(t *testing.T) {
	svc := NewAttendanceService(newMarkStoreStub(), rosterStub{}, classLookupStub{}, newNotifierSpy(), nil, nil, nil)

	_, err := svc.Mark(context.Background(), &models.JWTClaims{UserID: "p-1", Role: models.RolePrincipal, SchoolID: "school-1"}, dto.MarkAttendanceRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Mark(context.Background(), &models.JWTClaims{UserID: "t-2", Role: models.RoleTeacher}, dto.MarkAttendanceRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceMarkEmptyRoster(t *testing.T) {
	svc := NewAttendanceService(newMarkStoreStub(), rosterStub{students: nil}, classLookupStub{class: &models.Class{ID: "class-1"}}, newNotifierSpy(), nil, nil, nil)

	_, err := svc.Mark(context.Background(), teacherClaims(), dto.MarkAttendanceRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmptyRoster.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceMarkClassNotFound(t *testing.T) {
	svc := NewAttendanceService(newMarkStoreStub(), rosterStub{}, classLookupStub{err: sql.ErrNoRows}, newNotifierSpy(), nil, nil, nil)

	_, err := svc.Mark(context.Background(), teacherClaims(), dto.MarkAttendanceRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceMarkRejectsBadDate(t *testing.T) {
	svc := NewAttendanceService(newMarkStoreStub(), rosterStub{students: rosterOf(1)}, classLookupStub{class: &models.Class{ID: "class-1"}}, newNotifierSpy(), nil, nil, nil)

	_, err := svc.Mark(context.Background(), teacherClaims(), dto.MarkAttendanceRequest{Date: "31-01-2026"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceMarkRejectsBlankStudentID(t *testing.T) {
	store := newMarkStoreStub()
	svc := NewAttendanceService(store, rosterStub{students: rosterOf(2)}, classLookupStub{class: &models.Class{ID: "class-1"}}, newNotifierSpy(), nil, nil, nil)

	_, err := svc.Mark(context.Background(), teacherClaims(), dto.MarkAttendanceRequest{
		PresentStudentIDs: []string{"stu-1", ""},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.inserted)
}

func TestAttendanceServiceMarkNormalizesExplicitDate(t *testing.T) {
	store := newMarkStoreStub()
	svc := NewAttendanceService(store, rosterStub{students: rosterOf(1)}, classLookupStub{class: &models.Class{ID: "class-1"}}, newNotifierSpy(), nil, nil, nil)

	_, err := svc.Mark(context.Background(), teacherClaims(), dto.MarkAttendanceRequest{Date: "2026-01-15"})
	require.NoError(t, err)

	day := store.inserted[0][0].Day
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), day)
}

func TestAttendanceServiceListScopesTeacherToOwnClass(t *testing.T) {
	store := newMarkStoreStub()
	svc := NewAttendanceService(store, rosterStub{}, classLookupStub{}, newNotifierSpy(), nil, nil, nil)

	_, _, err := svc.List(context.Background(), teacherClaims(), dto.AttendanceListRequest{ClassID: "class-2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(context.Background(), teacherClaims(), dto.AttendanceListRequest{})
	require.NoError(t, err)
	assert.Equal(t, "class-1", store.filter.ClassID)
}

func TestAttendanceServiceListNarrowsByStudentWithinScope(t *testing.T) {
	store := newMarkStoreStub()
	svc := NewAttendanceService(store, rosterStub{}, classLookupStub{}, newNotifierSpy(), nil, nil, nil)

	// Teachers stay pinned to their class; the student filter narrows within it.
	_, _, err := svc.List(context.Background(), teacherClaims(), dto.AttendanceListRequest{StudentID: "stu-4"})
	require.NoError(t, err)
	assert.Equal(t, "class-1", store.filter.ClassID)
	assert.Equal(t, "stu-4", store.filter.StudentID)

	principal := &models.JWTClaims{UserID: "p-1", Role: models.RolePrincipal, SchoolID: "school-1"}
	_, _, err = svc.List(context.Background(), principal, dto.AttendanceListRequest{StudentID: "stu-4"})
	require.NoError(t, err)
	assert.Equal(t, "school-1", store.filter.SchoolID)
	assert.Equal(t, "stu-4", store.filter.StudentID)
}

func TestAttendanceServiceListScopesStudentToSelf(t *testing.T) {
	store := newMarkStoreStub()
	svc := NewAttendanceService(store, rosterStub{}, classLookupStub{}, newNotifierSpy(), nil, nil, nil)

	claims := &models.JWTClaims{UserID: "u-9", Role: models.RoleStudent, StudentID: "stu-9"}
	_, _, err := svc.List(context.Background(), claims, dto.AttendanceListRequest{StudentID: "stu-1", ClassID: "class-1"})
	require.NoError(t, err)
	assert.Equal(t, "stu-9", store.filter.StudentID)
	assert.Empty(t, store.filter.ClassID)
}

func TestAttendanceServiceListRejectsInvalidStatus(t *testing.T) {
	svc := NewAttendanceService(newMarkStoreStub(), rosterStub{}, classLookupStub{}, newNotifierSpy(), nil, nil, nil)

	bad := "Late"
	_, _, err := svc.List(context.Background(), teacherClaims(), dto.AttendanceListRequest{Status: &bad})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceExportForbiddenForOtherClass(t *testing.T) {
	svc := NewAttendanceService(newMarkStoreStub(), rosterStub{}, classLookupStub{class: &models.Class{ID: "class-2", SchoolID: "school-1"}}, newNotifierSpy(), nil, nil, nil)

	_, err := svc.ExportRegister(context.Background(), teacherClaims(), dto.ExportRequest{ClassID: "class-2", From: time.Now().AddDate(0, -1, 0), To: time.Now()})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceExportRendersCSV(t *testing.T) {
	store := newMarkStoreStub()
	svc := NewAttendanceService(store, rosterStub{}, classLookupStub{class: &models.Class{ID: "class-1", Name: "5A", SchoolID: "school-1"}}, newNotifierSpy(), nil, nil, nil)

	result, err := svc.ExportRegister(context.Background(), teacherClaims(), dto.ExportRequest{
		ClassID: "class-1",
		From:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		Format:  "csv",
	})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Contains(t, result.Filename, "5A")
	assert.NotEmpty(t, result.Payload)
}

func TestAttendanceServiceExportUnsupportedFormat(t *testing.T) {
	svc := NewAttendanceService(newMarkStoreStub(), rosterStub{}, classLookupStub{class: &models.Class{ID: "class-1", SchoolID: "school-1"}}, newNotifierSpy(), nil, nil, nil)

	_, err := svc.ExportRegister(context.Background(), teacherClaims(), dto.ExportRequest{ClassID: "class-1", Format: "xlsx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceMarkSurvivesNotifierErrors(t *testing.T) {
	store := newMarkStoreStub()
	svc := NewAttendanceService(store, rosterStub{students: rosterOf(2)}, classLookupStub{class: &models.Class{ID: "class-1"}}, panicFreeNotifier{}, nil, nil, nil)

	resp, err := svc.Mark(context.Background(), teacherClaims(), dto.MarkAttendanceRequest{PresentStudentIDs: []string{"stu-1"}})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.CreatedCount)
}

// panicFreeNotifier drops everything, standing in for a sender whose
// deliveries all fail downstream. The marking result must not change.
type panicFreeNotifier struct{}

func (panicFreeNotifier) NotifyMarked(models.Student, models.AttendanceStatus) {}
