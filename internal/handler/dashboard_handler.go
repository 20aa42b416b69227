package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyalay/vidyalay-api/internal/dto"
	"github.com/vidyalay/vidyalay-api/internal/models"
	appErrors "github.com/vidyalay/vidyalay-api/pkg/errors"
	"github.com/vidyalay/vidyalay-api/pkg/response"
)

type dashboardService interface {
	Principal(ctx context.Context, claims *models.JWTClaims) (*dto.PrincipalDashboardResponse, bool, error)
	Teacher(ctx context.Context, claims *models.JWTClaims) (*dto.TeacherDashboardResponse, bool, error)
}

// DashboardHandler serves the principal and teacher dashboards.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Principal godoc
// @Summary School-wide dashboard for principals
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /principal/dashboard [get]
func (h *DashboardHandler) Principal(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, cacheHit, err := h.service.Principal(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil, map[string]interface{}{"cache_hit": cacheHit})
}

// Teacher godoc
// @Summary Homeroom dashboard for class teachers
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teacher/dashboard [get]
func (h *DashboardHandler) Teacher(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, cacheHit, err := h.service.Teacher(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil, map[string]interface{}{"cache_hit": cacheHit})
}
