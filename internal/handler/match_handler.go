package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brightline-health/intake-api/internal/dto"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
	"github.com/brightline-health/intake-api/pkg/response"
)

type matchService interface {
	Match(ctx context.Context, req dto.MatchRequest) (*dto.MatchResponse, error)
	Export(ctx context.Context, req dto.MatchRequest, format string) ([]byte, string, error)
}

// MatchHandler exposes the availability-match endpoints.
type MatchHandler struct {
	service matchService
}

// NewMatchHandler constructs the handler.
func NewMatchHandler(service matchService) *MatchHandler {
	return &MatchHandler{service: service}
}

// Match godoc
// @Summary Match guardian preference against clinician availability
// @Tags Availability
// @Accept json
// @Produce json
// @Param request body dto.MatchRequest true "Validated preference plus scope"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /availability/match [post]
func (h *MatchHandler) Match(c *gin.Context) {
	var req dto.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	result, err := h.service.Match(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Export godoc
// @Summary Export matched slots as a printable document
// @Tags Availability
// @Accept json
// @Produce application/pdf
// @Param format query string false "pdf (default) or csv"
// @Param request body dto.MatchRequest true "Validated preference plus scope"
// @Success 200 {file} binary
// @Router /availability/match/export [post]
func (h *MatchHandler) Export(c *gin.Context) {
	var req dto.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	format := c.DefaultQuery("format", "pdf")
	if format != "pdf" && format != "csv" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be pdf or csv"))
		return
	}

	data, contentType, err := h.service.Export(c.Request.Context(), req, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("appointment-options-%s.%s", time.Now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
