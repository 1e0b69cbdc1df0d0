package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brightline-health/intake-api/internal/models"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
)

// AvailabilitySource loads raw availability rows into validated records. It
// returns the accepted records plus a count of rejected rows.
type AvailabilitySource interface {
	Load(ctx context.Context) ([]models.AvailabilityRecord, int, error)
}

var csvColumns = []string{
	"id", "user_id", "range_start", "range_end", "timezone", "day_of_week",
	"is_repeating", "end_on", "appointment_location_id", "parent_organization_id", "deleted_at",
}

// CSVAvailabilitySource reads availability records from a CSV file.
type CSVAvailabilitySource struct {
	path       string
	fallbackTZ string
	logger     *zap.Logger
}

// NewCSVAvailabilitySource constructs a CSV-backed source.
func NewCSVAvailabilitySource(path, fallbackTZ string, logger *zap.Logger) *CSVAvailabilitySource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVAvailabilitySource{path: path, fallbackTZ: fallbackTZ, logger: logger}
}

// Load reads and normalizes the whole file. A malformed row is a counted
// skip; an unreadable or structurally broken file fails the load as a whole.
func (s *CSVAvailabilitySource) Load(ctx context.Context) ([]models.AvailabilityRecord, int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrLoadFailure.Code, appErrors.ErrLoadFailure.Status, "open availability csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrLoadFailure.Code, appErrors.ErrLoadFailure.Status, "read availability csv header")
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrLoadFailure.Code, appErrors.ErrLoadFailure.Status, "availability csv header mismatch")
	}

	var (
		records  []models.AvailabilityRecord
		rejected int
		seen     = make(map[int64]struct{})
		line     = 1
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, appErrors.Wrap(err, appErrors.ErrLoadFailure.Code, appErrors.ErrLoadFailure.Status, "availability load cancelled")
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			// A row the csv reader itself cannot tokenize is a skip,
			// not a fatal condition.
			rejected++
			s.logger.Warn("availability row unreadable", zap.Int("line", line), zap.Error(err))
			continue
		}

		record, err := s.parseRow(row, index)
		if err != nil {
			rejected++
			s.logger.Warn("availability row rejected", zap.Int("line", line), zap.Error(err))
			continue
		}
		if _, dup := seen[record.ID]; dup {
			rejected++
			s.logger.Warn("availability row duplicate id", zap.Int("line", line), zap.Int64("id", record.ID))
			continue
		}
		seen[record.ID] = struct{}{}
		records = append(records, *record)
	}

	return records, rejected, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range csvColumns {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	return index, nil
}

func (s *CSVAvailabilitySource) parseRow(row []string, index map[string]int) (*models.AvailabilityRecord, error) {
	field := func(name string) string {
		i := index[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	id, err := strconv.ParseInt(field("id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", field("id"))
	}
	ownerID, err := strconv.ParseInt(field("user_id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id %q", field("user_id"))
	}
	orgID, err := strconv.ParseInt(field("parent_organization_id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid parent_organization_id %q", field("parent_organization_id"))
	}

	// Invalid or missing timezone falls back, it never rejects the row.
	zone := field("timezone")
	loc, zoneErr := time.LoadLocation(zone)
	if zone == "" || zoneErr != nil {
		zone = s.fallbackTZ
		loc, zoneErr = time.LoadLocation(zone)
		if zoneErr != nil {
			zone = "UTC"
			loc = time.UTC
		}
	}

	rangeStart, err := parseTimestamp(field("range_start"), loc)
	if err != nil {
		return nil, fmt.Errorf("invalid range_start: %w", err)
	}
	rangeEnd, err := parseTimestamp(field("range_end"), loc)
	if err != nil {
		return nil, fmt.Errorf("invalid range_end: %w", err)
	}
	if rangeStart.After(rangeEnd) {
		return nil, fmt.Errorf("range_start after range_end")
	}

	record := &models.AvailabilityRecord{
		ID:             id,
		OwnerID:        ownerID,
		RangeStart:     rangeStart,
		RangeEnd:       rangeEnd,
		Timezone:       zone,
		IsRepeating:    parseBool(field("is_repeating")),
		OrganizationID: orgID,
	}

	if raw := field("day_of_week"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil || day < 0 || day > 6 {
			return nil, fmt.Errorf("invalid day_of_week %q", raw)
		}
		record.DayOfWeek = &day
	}

	if raw := field("end_on"); raw != "" {
		endOn, err := parseDate(raw, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid end_on: %w", err)
		}
		record.EndOn = &endOn
	}

	if raw := field("appointment_location_id"); raw != "" {
		locationID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid appointment_location_id %q", raw)
		}
		record.LocationID = &locationID
	}

	if raw := field("deleted_at"); raw != "" {
		deletedAt, err := parseTimestamp(raw, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid deleted_at: %w", err)
		}
		record.DeletedAt = &deletedAt
	}

	return record, nil
}

// parseBool follows the source contract: "true"/"1" is true, anything else
// is false.
func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "true", "1":
		return true
	}
	return false
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts ISO-8601 values; naive timestamps are interpreted in
// the row's own zone.
func parseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(models.DateOnly, raw, loc); err == nil {
		return t, nil
	}
	return parseTimestamp(raw, loc)
}
