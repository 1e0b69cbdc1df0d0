package dto

import "github.com/brightline-health/intake-api/internal/models"

// ExtractRequest carries the guardian's free-text scheduling statement.
type ExtractRequest struct {
	Text string `json:"text" validate:"required,min=3,max=2000"`
}

// ExtractResponse returns the validated preference structure.
type ExtractResponse struct {
	Preference models.PreferenceModel `json:"preference"`
	Cached     bool                   `json:"cached"`
}
