package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vidyalay/vidyalay-api/internal/dto"
	"github.com/vidyalay/vidyalay-api/internal/models"
	appErrors "github.com/vidyalay/vidyalay-api/pkg/errors"
)

type dashboardStatsProvider interface {
	ComputeStats(ctx context.Context, studentIDs []string, from, to *time.Time) (map[string]models.AttendanceStat, error)
	ComputeTrend(ctx context.Context, studentIDs []string, numDays int) ([]dto.TrendPoint, error)
	ClassSnapshot(ctx context.Context, classes []models.Class) ([]dto.ClassAttendanceRow, error)
}

type dashboardRoster interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	ListBySchool(ctx context.Context, schoolID string) ([]models.Student, error)
	RefsByIDs(ctx context.Context, ids []string) ([]models.StudentRef, error)
}

type dashboardClasses interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ListBySchool(ctx context.Context, schoolID string) ([]models.Class, error)
}

type dashboardSchools interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL  time.Duration
	TrendDays int
}

// DashboardService composes aggregation outputs and the persisted
// leaderboards into the payloads the SPA renders. Leaderboards are read
// as-is from their cached fields; this service never recomputes them.
type DashboardService struct {
	stats    dashboardStatsProvider
	students dashboardRoster
	classes  dashboardClasses
	schools  dashboardSchools
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(stats dashboardStatsProvider, students dashboardRoster, classes dashboardClasses, schools dashboardSchools, cache *CacheService, cfg DashboardServiceConfig, logger *zap.Logger) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.TrendDays <= 0 {
		cfg.TrendDays = 7
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		stats:    stats,
		students: students,
		classes:  classes,
		schools:  schools,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Principal returns the school-scope dashboard and whether it came from
// cache.
func (s *DashboardService) Principal(ctx context.Context, claims *models.JWTClaims) (*dto.PrincipalDashboardResponse, bool, error) {
	if claims == nil || claims.Role != models.RolePrincipal {
		return nil, false, appErrors.ErrForbidden
	}
	if claims.SchoolID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "no school assigned")
	}

	cacheKey := fmt.Sprintf("dash:school:%s:%s", claims.SchoolID, models.Day(s.now()).Format("2006-01-02"))
	var cached dto.PrincipalDashboardResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	school, err := s.schools.FindByID(ctx, claims.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	classes, err := s.classes.ListBySchool(ctx, school.ID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	students, err := s.students.ListBySchool(ctx, school.ID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	studentIDs := make([]string, 0, len(students))
	for _, student := range students {
		studentIDs = append(studentIDs, student.ID)
	}

	trend, err := s.stats.ComputeTrend(ctx, studentIDs, s.cfg.TrendDays)
	if err != nil {
		return nil, false, err
	}
	snapshot, err := s.stats.ClassSnapshot(ctx, classes)
	if err != nil {
		return nil, false, err
	}

	top, err := s.resolveTopStudents(ctx, school.TopStudents, classNames(classes))
	if err != nil {
		return nil, false, err
	}

	payload := &dto.PrincipalDashboardResponse{
		Stats: dto.DashboardStats{
			TotalStudents:  len(students),
			TotalClasses:   len(classes),
			AttendanceRate: todayRate(snapshot),
		},
		AttendanceTrend: trend,
		TopStudents:     top,
		ClassAttendance: snapshot,
	}

	if err := s.cache.Set(ctx, cacheKey, payload, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache principal dashboard", zap.Error(err))
	}
	return payload, false, nil
}

// Teacher returns the class-scope dashboard for the caller's homeroom.
func (s *DashboardService) Teacher(ctx context.Context, claims *models.JWTClaims) (*dto.TeacherDashboardResponse, bool, error) {
	if claims == nil || claims.Role != models.RoleTeacher {
		return nil, false, appErrors.ErrForbidden
	}
	if claims.ClassID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned as a class teacher")
	}

	cacheKey := fmt.Sprintf("dash:class:%s:%s", claims.ClassID, models.Day(s.now()).Format("2006-01-02"))
	var cached dto.TeacherDashboardResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	class, err := s.classes.FindByID(ctx, claims.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	students, err := s.students.ListByClass(ctx, class.ID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	studentIDs := make([]string, 0, len(students))
	for _, student := range students {
		studentIDs = append(studentIDs, student.ID)
	}

	trend, err := s.stats.ComputeTrend(ctx, studentIDs, s.cfg.TrendDays)
	if err != nil {
		return nil, false, err
	}
	snapshot, err := s.stats.ClassSnapshot(ctx, []models.Class{*class})
	if err != nil {
		return nil, false, err
	}
	today := dto.ClassAttendanceRow{ClassID: class.ID, ClassName: class.Name}
	if len(snapshot) > 0 {
		today = snapshot[0]
	}

	top, err := s.resolveTopStudents(ctx, class.TopStudents, map[string]string{class.ID: class.Name})
	if err != nil {
		return nil, false, err
	}

	payload := &dto.TeacherDashboardResponse{
		ClassID:         class.ID,
		ClassName:       class.Name,
		Today:           today,
		AttendanceTrend: trend,
		TopStudents:     top,
	}

	if err := s.cache.Set(ctx, cacheKey, payload, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache teacher dashboard", zap.Error(err))
	}
	return payload, false, nil
}

// resolveTopStudents expands a persisted leaderboard id list into display
// entries, preserving the stored rank order. Ids that no longer resolve
// (deleted students) are dropped silently.
func (s *DashboardService) resolveTopStudents(ctx context.Context, ids []string, classesByID map[string]string) ([]dto.TopStudentEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	refs, err := s.students.RefsByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve top students")
	}
	refByID := make(map[string]models.StudentRef, len(refs))
	for _, ref := range refs {
		refByID[ref.ID] = ref
	}

	stats, err := s.stats.ComputeStats(ctx, ids, nil, nil)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.TopStudentEntry, 0, len(ids))
	for _, id := range ids {
		ref, ok := refByID[id]
		if !ok {
			continue
		}
		entries = append(entries, dto.TopStudentEntry{
			ID:         ref.ID,
			Name:       ref.Name,
			RollNumber: ref.RollNumber,
			ClassName:  classesByID[ref.ClassID],
			Percentage: stats[id].Percentage,
		})
	}
	return entries, nil
}

func classNames(classes []models.Class) map[string]string {
	names := make(map[string]string, len(classes))
	for _, class := range classes {
		names[class.ID] = class.Name
	}
	return names
}

// todayRate collapses the per-class snapshot into a school-wide rate.
func todayRate(snapshot []dto.ClassAttendanceRow) int {
	present, total := 0, 0
	for _, row := range snapshot {
		present += row.Present
		total += row.Total
	}
	return rate(present, total)
}
