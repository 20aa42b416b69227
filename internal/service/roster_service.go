package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/vidyalay/vidyalay-api/internal/models"
	appErrors "github.com/vidyalay/vidyalay-api/pkg/errors"
)

type rosterStudents interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type rosterClasses interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ListBySchool(ctx context.Context, schoolID string) ([]models.Class, error)
}

// RosterService serves class and school directory listings with
// role-based scoping.
type RosterService struct {
	students rosterStudents
	classes  rosterClasses
	logger   *zap.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(students rosterStudents, classes rosterClasses, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{students: students, classes: classes, logger: logger}
}

// ClassStudents lists the roster of a class, ordered by roll number.
// Teachers see only their homeroom; principals any class in their school.
func (s *RosterService) ClassStudents(ctx context.Context, claims *models.JWTClaims, classID string) ([]models.Student, error) {
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
	return students, nil
}

// SchoolClasses lists the classes of a school. Principals only, and only
// for their own school.
func (s *RosterService) SchoolClasses(ctx context.Context, claims *models.JWTClaims, schoolID string) ([]models.Class, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if claims.Role != models.RolePrincipal || claims.SchoolID != schoolID {
		return nil, appErrors.ErrForbidden
	}

	classes, err := s.classes.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	return classes, nil
}
