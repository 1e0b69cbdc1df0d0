package dto

import "github.com/brightline-health/intake-api/internal/models"

// MatchRequest is the availability-match payload.
type MatchRequest struct {
	Preference      models.PreferenceModel `json:"preference" validate:"required"`
	OrganizationID  int64                  `json:"organizationId" validate:"required,gt=0"`
	DisplayTimezone string                 `json:"displayTimezone" validate:"required,tzname"`
}

// FormattedSlot is one matched slot in the caller's display zone.
type FormattedSlot struct {
	AvailabilityID int64  `json:"availabilityId"`
	OwnerID        int64  `json:"ownerId"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	Timezone       string `json:"timezone"`
	LocationID     *int64 `json:"locationId,omitempty"`
}

// MatchResponse wraps the ordered slot list. An empty list is a success.
type MatchResponse struct {
	MatchedSlots []FormattedSlot `json:"matchedSlots"`
}
