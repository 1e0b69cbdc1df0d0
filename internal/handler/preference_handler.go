package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightline-health/intake-api/internal/dto"
	"github.com/brightline-health/intake-api/internal/models"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
	"github.com/brightline-health/intake-api/pkg/response"
)

type extractionService interface {
	Extract(ctx context.Context, text string) (*models.PreferenceModel, bool, error)
}

// PreferenceHandler exposes the free-text preference extraction endpoint.
type PreferenceHandler struct {
	service extractionService
}

// NewPreferenceHandler constructs the handler.
func NewPreferenceHandler(service extractionService) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

// Extract godoc
// @Summary Extract a structured scheduling preference from free text
// @Tags Intake
// @Accept json
// @Produce json
// @Param request body dto.ExtractRequest true "Guardian free-text statement"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /intake/preferences [post]
func (h *PreferenceHandler) Extract(c *gin.Context) {
	var req dto.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if req.Text == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "text is required"))
		return
	}

	pref, cached, err := h.service.Extract(c.Request.Context(), req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ExtractResponse{Preference: *pref, Cached: cached})
}
