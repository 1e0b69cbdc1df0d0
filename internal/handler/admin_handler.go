package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brightline-health/intake-api/internal/models"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
	"github.com/brightline-health/intake-api/pkg/response"
)

type availabilityAdminService interface {
	Reload(ctx context.Context) (*models.Snapshot, error)
	Stats() *models.Snapshot
}

// AdminHandler exposes operational endpoints for the availability snapshot.
type AdminHandler struct {
	service availabilityAdminService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(service availabilityAdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

type snapshotStats struct {
	Records  int    `json:"records"`
	Rejected int    `json:"rejected"`
	LoadedAt string `json:"loaded_at"`
}

// Reload godoc
// @Summary Force an availability snapshot refresh
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /admin/availability/reload [post]
func (h *AdminHandler) Reload(c *gin.Context) {
	snapshot, err := h.service.Reload(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statsFrom(snapshot))
}

// Stats godoc
// @Summary Current availability snapshot shape
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/availability/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	snapshot := h.service.Stats()
	if snapshot == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no snapshot loaded yet"))
		return
	}
	response.JSON(c, http.StatusOK, statsFrom(snapshot))
}

func statsFrom(snapshot *models.Snapshot) snapshotStats {
	return snapshotStats{
		Records:  len(snapshot.Records),
		Rejected: snapshot.Rejected,
		LoadedAt: snapshot.LoadedAt.UTC().Format(time.RFC3339),
	}
}
