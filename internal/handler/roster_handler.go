package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyalay/vidyalay-api/internal/models"
	appErrors "github.com/vidyalay/vidyalay-api/pkg/errors"
	"github.com/vidyalay/vidyalay-api/pkg/response"
)

type rosterService interface {
	ClassStudents(ctx context.Context, claims *models.JWTClaims, classID string) ([]models.Student, error)
	SchoolClasses(ctx context.Context, claims *models.JWTClaims, schoolID string) ([]models.Class, error)
}

// RosterHandler serves class and school directory listings.
type RosterHandler struct {
	service rosterService
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(service rosterService) *RosterHandler {
	return &RosterHandler{service: service}
}

// ClassStudents godoc
// @Summary List the students of a class
// @Tags Roster
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students [get]
func (h *RosterHandler) ClassStudents(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	students, err := h.service.ClassStudents(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// SchoolClasses godoc
// @Summary List the classes of a school
// @Tags Roster
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{id}/classes [get]
func (h *RosterHandler) SchoolClasses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	classes, err := h.service.SchoolClasses(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}
