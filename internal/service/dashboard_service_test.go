package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyalay/vidyalay-api/internal/dto"
	"github.com/vidyalay/vidyalay-api/internal/models"
	appErrors "github.com/vidyalay/vidyalay-api/pkg/errors"
)

type dashStatsStub struct {
	stats    map[string]models.AttendanceStat
	trend    []dto.TrendPoint
	snapshot []dto.ClassAttendanceRow
}

func (s dashStatsStub) ComputeStats(_ context.Context, _ []string, _, _ *time.Time) (map[string]models.AttendanceStat, error) {
	return s.stats, nil
}

func (s dashStatsStub) ComputeTrend(_ context.Context, _ []string, _ int) ([]dto.TrendPoint, error) {
	return s.trend, nil
}

func (s dashStatsStub) ClassSnapshot(_ context.Context, _ []models.Class) ([]dto.ClassAttendanceRow, error) {
	return s.snapshot, nil
}

type dashRosterStub struct {
	byClass  []models.Student
	bySchool []models.Student
	refs     []models.StudentRef
}

func (s dashRosterStub) ListByClass(_ context.Context, _ string) ([]models.Student, error) {
	return s.byClass, nil
}

func (s dashRosterStub) ListBySchool(_ context.Context, _ string) ([]models.Student, error) {
	return s.bySchool, nil
}

func (s dashRosterStub) RefsByIDs(_ context.Context, _ []string) ([]models.StudentRef, error) {
	return s.refs, nil
}

type dashClassesStub struct {
	class   *models.Class
	classes []models.Class
}

func (s dashClassesStub) FindByID(_ context.Context, _ string) (*models.Class, error) {
	return s.class, nil
}

func (s dashClassesStub) ListBySchool(_ context.Context, _ string) ([]models.Class, error) {
	return s.classes, nil
}

type dashSchoolsStub struct {
	school *models.School
}

func (s dashSchoolsStub) FindByID(_ context.Context, _ string) (*models.School, error) {
	return s.school, nil
}

func TestDashboardServicePrincipalComposesPayload(t *testing.T) {
	stats := dashStatsStub{
		stats: map[string]models.AttendanceStat{
			"stu-1": models.NewAttendanceStat("stu-1", 9, 10),
			"stu-2": models.NewAttendanceStat("stu-2", 8, 10),
		},
		trend: []dto.TrendPoint{{Day: "2026-03-09", Present: 3, Total: 4, Rate: 75}},
		snapshot: []dto.ClassAttendanceRow{
			{ClassID: "class-1", ClassName: "5A", Present: 3, Total: 4, Rate: 75},
			{ClassID: "class-2", ClassName: "5B", Present: 1, Total: 4, Rate: 25},
		},
	}
	roster := dashRosterStub{
		bySchool: []models.Student{{ID: "stu-1"}, {ID: "stu-2"}, {ID: "stu-3"}, {ID: "stu-4"}},
		refs: []models.StudentRef{
			{ID: "stu-1", Name: "Asha", RollNumber: "1", ClassID: "class-1"},
			{ID: "stu-2", Name: "Ravi", RollNumber: "2", ClassID: "class-2"},
		},
	}
	classes := dashClassesStub{classes: []models.Class{
		{ID: "class-1", Name: "5A"},
		{ID: "class-2", Name: "5B"},
	}}
	schools := dashSchoolsStub{school: &models.School{ID: "school-1", TopStudents: []string{"stu-1", "stu-2"}}}

	svc := NewDashboardService(stats, roster, classes, schools, nil, DashboardServiceConfig{TrendDays: 7}, nil)

	payload, cacheHit, err := svc.Principal(context.Background(), &models.JWTClaims{Role: models.RolePrincipal, SchoolID: "school-1"})
	require.NoError(t, err)
	assert.False(t, cacheHit)

	assert.Equal(t, 4, payload.Stats.TotalStudents)
	assert.Equal(t, 2, payload.Stats.TotalClasses)
	// 4 present of 8 enrolled across both classes.
	assert.Equal(t, 50, payload.Stats.AttendanceRate)

	require.Len(t, payload.TopStudents, 2)
	assert.Equal(t, "Asha", payload.TopStudents[0].Name)
	assert.Equal(t, "5A", payload.TopStudents[0].ClassName)
	assert.Equal(t, 90, payload.TopStudents[0].Percentage)
	assert.Equal(t, "5B", payload.TopStudents[1].ClassName)

	require.Len(t, payload.ClassAttendance, 2)
	assert.Len(t, payload.AttendanceTrend, 1)
}

func TestDashboardServicePrincipalDropsDeletedTopStudents(t *testing.T) {
	stats := dashStatsStub{stats: map[string]models.AttendanceStat{
		"stu-1": models.NewAttendanceStat("stu-1", 9, 10),
	}}
	roster := dashRosterStub{refs: []models.StudentRef{{ID: "stu-1", Name: "Asha"}}}
	schools := dashSchoolsStub{school: &models.School{ID: "school-1", TopStudents: []string{"gone", "stu-1"}}}

	svc := NewDashboardService(stats, roster, dashClassesStub{}, schools, nil, DashboardServiceConfig{}, nil)

	payload, _, err := svc.Principal(context.Background(), &models.JWTClaims{Role: models.RolePrincipal, SchoolID: "school-1"})
	require.NoError(t, err)
	require.Len(t, payload.TopStudents, 1)
	assert.Equal(t, "stu-1", payload.TopStudents[0].ID)
}

func TestDashboardServicePrincipalRequiresRole(t *testing.T) {
	svc := NewDashboardService(dashStatsStub{}, dashRosterStub{}, dashClassesStub{}, dashSchoolsStub{}, nil, DashboardServiceConfig{}, nil)

	_, _, err := svc.Principal(context.Background(), &models.JWTClaims{Role: models.RoleTeacher, ClassID: "class-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDashboardServiceTeacherComposesPayload(t *testing.T) {
	stats := dashStatsStub{
		trend:    []dto.TrendPoint{{Day: "2026-03-09", Rate: 50}},
		snapshot: []dto.ClassAttendanceRow{{ClassID: "class-1", ClassName: "5A", Present: 2, Total: 4, Rate: 50}},
		stats: map[string]models.AttendanceStat{
			"stu-1": models.NewAttendanceStat("stu-1", 10, 10),
		},
	}
	roster := dashRosterStub{
		byClass: []models.Student{{ID: "stu-1"}, {ID: "stu-2"}},
		refs:    []models.StudentRef{{ID: "stu-1", Name: "Asha", ClassID: "class-1"}},
	}
	classes := dashClassesStub{class: &models.Class{ID: "class-1", Name: "5A", TopStudents: []string{"stu-1"}}}

	svc := NewDashboardService(stats, roster, classes, dashSchoolsStub{}, nil, DashboardServiceConfig{}, nil)

	payload, cacheHit, err := svc.Teacher(context.Background(), &models.JWTClaims{Role: models.RoleTeacher, ClassID: "class-1"})
	require.NoError(t, err)
	assert.False(t, cacheHit)

	assert.Equal(t, "5A", payload.ClassName)
	assert.Equal(t, 50, payload.Today.Rate)
	require.Len(t, payload.TopStudents, 1)
	assert.Equal(t, "5A", payload.TopStudents[0].ClassName)
	assert.Equal(t, 100, payload.TopStudents[0].Percentage)
}

func TestDashboardServiceTeacherRequiresHomeroom(t *testing.T) {
	svc := NewDashboardService(dashStatsStub{}, dashRosterStub{}, dashClassesStub{}, dashSchoolsStub{}, nil, DashboardServiceConfig{}, nil)

	_, _, err := svc.Teacher(context.Background(), &models.JWTClaims{Role: models.RoleTeacher})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
