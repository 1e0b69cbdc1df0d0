package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/brightline-health/intake-api/internal/dto"
	"github.com/brightline-health/intake-api/internal/models"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
	"github.com/brightline-health/intake-api/pkg/export"
)

type snapshotProvider interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	ForceRefresh(ctx context.Context) (*models.Snapshot, error)
	Stats() *models.Snapshot
}

// AvailabilityService orchestrates a match request: snapshot retrieval, the
// pure matching computation and display formatting.
type AvailabilityService struct {
	snapshots snapshotProvider
	engine    *MatchingService
	formatter *FormatterService
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(snapshots snapshotProvider, engine *MatchingService, formatter *FormatterService, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
		RegisterCustomValidators(validate)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		snapshots: snapshots,
		engine:    engine,
		formatter: formatter,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
}

// Match computes and formats the candidate slots for one request. No matches
// is a success with an empty list.
func (s *AvailabilityService) Match(ctx context.Context, req dto.MatchRequest) (*dto.MatchResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, joinMessages(ValidationMessages(err)))
	}

	snapshot, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSnapshot(len(snapshot.Records), snapshot.Rejected)

	start := time.Now()
	slots, err := s.engine.Match(req.Preference, snapshot, MatchOptions{
		OrganizationID: req.OrganizationID,
		Anchor:         time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveMatch(time.Since(start), len(slots))

	formatted, err := s.formatter.Format(slots, req.DisplayTimezone)
	if err != nil {
		return nil, err
	}
	if formatted == nil {
		formatted = []dto.FormattedSlot{}
	}
	return &dto.MatchResponse{MatchedSlots: formatted}, nil
}

// Export renders the match result as a downloadable document.
func (s *AvailabilityService) Export(ctx context.Context, req dto.MatchRequest, format string) ([]byte, string, error) {
	result, err := s.Match(ctx, req)
	if err != nil {
		return nil, "", err
	}

	table := export.Table{
		Headers: []string{"Clinician", "Start", "End", "Timezone", "Location"},
	}
	for _, slot := range result.MatchedSlots {
		location := ""
		if slot.LocationID != nil {
			location = fmt.Sprintf("%d", *slot.LocationID)
		}
		table.Rows = append(table.Rows, []string{
			fmt.Sprintf("%d", slot.OwnerID),
			slot.StartTime,
			slot.EndTime,
			slot.Timezone,
			location,
		})
	}

	switch format {
	case "csv":
		data, err := export.NewCSVExporter().Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv export")
		}
		return data, "text/csv", nil
	default:
		subtitle := fmt.Sprintf("%d appointment options, generated %s", len(result.MatchedSlots), time.Now().UTC().Format(time.RFC3339))
		data, err := export.NewPDFExporter().Render(table, "Appointment Options", subtitle)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf export")
		}
		return data, "application/pdf", nil
	}
}

// Reload forces a snapshot refresh and returns the new shape.
func (s *AvailabilityService) Reload(ctx context.Context) (*models.Snapshot, error) {
	snapshot, err := s.snapshots.ForceRefresh(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSnapshot(len(snapshot.Records), snapshot.Rejected)
	return snapshot, nil
}

// Stats returns the current snapshot shape without forcing a load.
func (s *AvailabilityService) Stats() *models.Snapshot {
	return s.snapshots.Stats()
}

func joinMessages(messages []string) string {
	return strings.Join(messages, "; ")
}
