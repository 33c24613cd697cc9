package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/san-edu/registrar-api/internal/service"
	appErrors "github.com/san-edu/registrar-api/pkg/errors"
	"github.com/san-edu/registrar-api/pkg/response"
)

// RegistrationHandler exposes registration endpoints.
type RegistrationHandler struct {
	registrations *service.RegistrationService
	metrics       *service.MetricsService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations *service.RegistrationService, metrics *service.MetricsService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, metrics: metrics}
}

// Register godoc
// @Summary Register a batch of courses
// @Description Validates the whole batch against the student's schedule and commits it atomically. The first rejection aborts the batch.
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.RegisterRequest true "Course IDs in priority order"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/registrations [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.registrations.Register(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.recordOutcome(err)
		response.Error(c, err)
		return
	}
	h.metrics.RecordRegistration("committed")
	response.Created(c, result)
}

func (h *RegistrationHandler) recordOutcome(err error) {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		switch typed.Code {
		case appErrors.ErrTimeConflict.Code:
			h.metrics.RecordRegistration("time_conflict")
		case appErrors.ErrCourseFull.Code:
			h.metrics.RecordRegistration("course_full")
		case appErrors.ErrDuplicateCourse.Code:
			h.metrics.RecordRegistration("duplicate_course")
		case appErrors.ErrCreditLimit.Code:
			h.metrics.RecordRegistration("credit_limit")
		default:
			h.metrics.RecordRegistration("error")
		}
		return
	}
	h.metrics.RecordRegistration("error")
}

// ValidateCandidateRequest is the preview payload.
type ValidateCandidateRequest struct {
	CourseID string `json:"course_id" binding:"required"`
}

// Validate godoc
// @Summary Preview the decision for one course
// @Description Runs the same checks as registration without committing anything.
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body ValidateCandidateRequest true "Candidate course"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/registrations/validate [post]
func (h *RegistrationHandler) Validate(c *gin.Context) {
	var req ValidateCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	decision, err := h.registrations.ValidateCandidate(c.Request.Context(), c.Param("id"), req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}

// Drop godoc
// @Summary Drop one course
// @Description Refused when the drop would leave the enrolled load below the configured minimum.
// @Tags Registrations
// @Produce json
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 204 "dropped"
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/registrations/{courseId} [delete]
func (h *RegistrationHandler) Drop(c *gin.Context) {
	if err := h.registrations.Drop(c.Request.Context(), c.Param("id"), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DropSemester godoc
// @Summary Drop every enrolled course
// @Tags Registrations
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/registrations [delete]
func (h *RegistrationHandler) DropSemester(c *gin.Context) {
	dropped, err := h.registrations.DropSemester(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"dropped": dropped}, nil)
}
