package service

import (
	"fmt"
	"time"

	"github.com/brightline-health/intake-api/internal/dto"
	"github.com/brightline-health/intake-api/internal/models"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
)

// FormatterService projects internal slots into the external display-zone
// representation. It is a pure projection: count in equals count out, order
// preserved, instants unchanged.
type FormatterService struct{}

// NewFormatterService constructs the formatter.
func NewFormatterService() *FormatterService {
	return &FormatterService{}
}

// Format renders each slot's instants as wall-clock strings in the display
// zone. Re-parsing a rendered value in that zone recovers the same instant.
func (s *FormatterService) Format(slots []models.MatchedSlot, displayTimezone string) ([]dto.FormattedSlot, error) {
	loc, err := time.LoadLocation(displayTimezone)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown display timezone %q", displayTimezone))
	}

	out := make([]dto.FormattedSlot, len(slots))
	for i, slot := range slots {
		out[i] = dto.FormattedSlot{
			AvailabilityID: slot.RecordID,
			OwnerID:        slot.OwnerID,
			StartTime:      slot.Start.In(loc).Format(time.RFC3339),
			EndTime:        slot.End.In(loc).Format(time.RFC3339),
			Timezone:       displayTimezone,
			LocationID:     slot.LocationID,
		}
	}
	return out, nil
}
