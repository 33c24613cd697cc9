package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/san-edu/registrar-api/internal/service"
	appErrors "github.com/san-edu/registrar-api/pkg/errors"
	"github.com/san-edu/registrar-api/pkg/response"
)

// AdvisingHandler exposes advising window endpoints.
type AdvisingHandler struct {
	advising *service.AdvisingService
}

// NewAdvisingHandler constructs AdvisingHandler.
func NewAdvisingHandler(advising *service.AdvisingService) *AdvisingHandler {
	return &AdvisingHandler{advising: advising}
}

// CheckAccess godoc
// @Summary Check whether a student may register now
// @Tags Advising
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/advising-access [get]
func (h *AdvisingHandler) CheckAccess(c *gin.Context) {
	access, err := h.advising.CheckAccess(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, access, nil)
}

// ListWindows godoc
// @Summary List advising windows
// @Tags Advising
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /advising-windows [get]
func (h *AdvisingHandler) ListWindows(c *gin.Context) {
	windows, err := h.advising.ListWindows(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// CreateWindow godoc
// @Summary Open a new advising window
// @Tags Advising
// @Accept json
// @Produce json
// @Param payload body service.CreateAdvisingWindowRequest true "Window definition"
// @Success 201 {object} response.Envelope
// @Router /advising-windows [post]
func (h *AdvisingHandler) CreateWindow(c *gin.Context) {
	var req service.CreateAdvisingWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	window, err := h.advising.CreateWindow(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, window)
}

// DeleteWindow godoc
// @Summary Delete an advising window
// @Tags Advising
// @Produce json
// @Param id path string true "Window ID"
// @Success 204 "deleted"
// @Router /advising-windows/{id} [delete]
func (h *AdvisingHandler) DeleteWindow(c *gin.Context) {
	if err := h.advising.DeleteWindow(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
