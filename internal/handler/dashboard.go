package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ishpreet160/CertFlow/internal/middleware"
	"github.com/ishpreet160/CertFlow/internal/service"
)

type DashboardHandler struct{ svc service.DashboardService }

func NewDashboardHandler(svc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Stats godoc
// @Summary Certificate counts (org-wide for admins, own team for managers)
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StatsResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	resp, err := h.svc.Stats(c.Request.Context(), middleware.MustClaims(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
