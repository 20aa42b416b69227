package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vidyalay/vidyalay-api/internal/models"
	appErrors "github.com/vidyalay/vidyalay-api/pkg/errors"
)

type statsComputer interface {
	ComputeStats(ctx context.Context, studentIDs []string, from, to *time.Time) (map[string]models.AttendanceStat, error)
}

type schoolRoster interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	ListBySchool(ctx context.Context, schoolID string) ([]models.Student, error)
}

type classTopWriter interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	UpdateTopStudents(ctx context.Context, classID string, studentIDs []string) error
}

type schoolTopWriter interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
	UpdateTopStudents(ctx context.Context, schoolID string, studentIDs []string) error
}

// RankingService is the single place leaderboards are computed. The
// persisted top_students fields on Class and School are read-through
// caches refreshed only by these calls; they are never consulted here.
type RankingService struct {
	stats    statsComputer
	students schoolRoster
	classes  classTopWriter
	schools  schoolTopWriter
	limit    int
	logger   *zap.Logger
}

// NewRankingService constructs the ranking engine.
func NewRankingService(stats statsComputer, students schoolRoster, classes classTopWriter, schools schoolTopWriter, limit int, logger *zap.Logger) *RankingService {
	if limit <= 0 {
		limit = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingService{stats: stats, students: students, classes: classes, schools: schools, limit: limit, logger: logger}
}

// RankTopStudents orders per-student aggregates by percentage descending,
// breaking ties by present count (a long complete history beats a short
// perfect streak) and finally by student id so equal inputs always
// produce the same output. The result is truncated to limit.
func RankTopStudents(stats map[string]models.AttendanceStat, limit int) []string {
	ranked := make([]models.AttendanceStat, 0, len(stats))
	for _, stat := range stats {
		ranked = append(ranked, stat)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Percentage != ranked[j].Percentage {
			return ranked[i].Percentage > ranked[j].Percentage
		}
		if ranked[i].PresentCount != ranked[j].PresentCount {
			return ranked[i].PresentCount > ranked[j].PresentCount
		}
		return ranked[i].StudentID < ranked[j].StudentID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	ids := make([]string, 0, len(ranked))
	for _, stat := range ranked {
		ids = append(ids, stat.StudentID)
	}
	return ids
}

// UpdateClassTopStudents recomputes the class leaderboard over the full
// attendance history of the current roster and persists it. Teachers may
// only rebuild their own homeroom, principals only classes of their own
// school; the check happens before any roster load or write.
func (s *RankingService) UpdateClassTopStudents(ctx context.Context, claims *models.JWTClaims, classID string) ([]string, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}

	class, err := s.classes.FindByID(ctx, classID)
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

	students, err := s.students.ListByClass(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if len(students) == 0 {
		return nil, appErrors.ErrEmptyRoster
	}

	top, err := s.rank(ctx, students)
	if err != nil {
		return nil, err
	}
	if err := s.classes.UpdateTopStudents(ctx, classID, top); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist class leaderboard")
	}
	s.logger.Info("class leaderboard updated", zap.String("class_id", classID), zap.Int("entries", len(top)))
	return top, nil
}

// UpdateSchoolTopStudents recomputes the school leaderboard over the union
// of every class roster in the school and persists it.
func (s *RankingService) UpdateSchoolTopStudents(ctx context.Context, schoolID string) ([]string, error) {
	if _, err := s.schools.FindByID(ctx, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	students, err := s.students.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school roster")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyRoster, "no students found in school")
	}

	top, err := s.rank(ctx, students)
	if err != nil {
		return nil, err
	}
	if err := s.schools.UpdateTopStudents(ctx, schoolID, top); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist school leaderboard")
	}
	s.logger.Info("school leaderboard updated", zap.String("school_id", schoolID), zap.Int("entries", len(top)))
	return top, nil
}

func (s *RankingService) rank(ctx context.Context, students []models.Student) ([]string, error) {
	ids := make([]string, 0, len(students))
	for _, student := range students {
		ids = append(ids, student.ID)
	}
	stats, err := s.stats.ComputeStats(ctx, ids, nil, nil)
	if err != nil {
		return nil, err
	}
	return RankTopStudents(stats, s.limit), nil
}
