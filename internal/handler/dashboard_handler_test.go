package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyalay/vidyalay-api/internal/dto"
	"github.com/vidyalay/vidyalay-api/internal/middleware"
	"github.com/vidyalay/vidyalay-api/internal/models"
	appErrors "github.com/vidyalay/vidyalay-api/pkg/errors"
)

type fakeDashboardSrv struct {
	principalResp *dto.PrincipalDashboardResponse
	principalHit  bool
	principalErr  error
	teacherResp   *dto.TeacherDashboardResponse
	teacherHit    bool
	teacherErr    error
}

func (f *fakeDashboardSrv) Principal(context.Context, *models.JWTClaims) (*dto.PrincipalDashboardResponse, bool, error) {
	return f.principalResp, f.principalHit, f.principalErr
}

func (f *fakeDashboardSrv) Teacher(context.Context, *models.JWTClaims) (*dto.TeacherDashboardResponse, bool, error) {
	return f.teacherResp, f.teacherHit, f.teacherErr
}

func TestDashboardHandlerPrincipalSuccess(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{
		principalResp: &dto.PrincipalDashboardResponse{
			Stats: dto.DashboardStats{TotalStudents: 120, TotalClasses: 4, AttendanceRate: 88},
		},
		principalHit: true,
	})

	c, rec := testContext(t, http.MethodGet, "/principal/dashboard", "")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Role: models.RolePrincipal, SchoolID: "school-1"})

	handler.Principal(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	stats, ok := envelope.Data["stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(120), stats["total_students"])
}

func TestDashboardHandlerPrincipalUnauthenticated(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	c, rec := testContext(t, http.MethodGet, "/principal/dashboard", "")
	handler.Principal(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerTeacherForbidden(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{teacherErr: appErrors.ErrForbidden})

	c, rec := testContext(t, http.MethodGet, "/teacher/dashboard", "")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Role: models.RoleTeacher})

	handler.Teacher(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardHandlerTeacherSuccess(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{
		teacherResp: &dto.TeacherDashboardResponse{ClassID: "class-1", ClassName: "5A"},
	})

	c, rec := testContext(t, http.MethodGet, "/teacher/dashboard", "")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Role: models.RoleTeacher, ClassID: "class-1"})

	handler.Teacher(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Meta["cache_hit"])
	assert.Equal(t, "5A", envelope.Data["class_name"])
}
