package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/san-edu/registrar-api/internal/service"
	"github.com/san-edu/registrar-api/pkg/response"
)

// SystemHandler exposes operational endpoints.
type SystemHandler struct {
	metrics *service.MetricsService
}

// NewSystemHandler constructs SystemHandler.
func NewSystemHandler(metrics *service.MetricsService) *SystemHandler {
	return &SystemHandler{metrics: metrics}
}

// Status godoc
// @Summary Runtime metrics snapshot
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /status [get]
func (h *SystemHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
