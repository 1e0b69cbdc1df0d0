package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/brightline-health/intake-api/internal/models"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
)

// PostgresAvailabilitySource loads availability records from a SQL table
// behind the same contract as the CSV source, so the matching engine never
// cares where the snapshot came from.
type PostgresAvailabilitySource struct {
	db         *sqlx.DB
	table      string
	fallbackTZ string
	logger     *zap.Logger
}

// NewPostgresAvailabilitySource constructs a Postgres-backed source.
func NewPostgresAvailabilitySource(db *sqlx.DB, table, fallbackTZ string, logger *zap.Logger) *PostgresAvailabilitySource {
	if table == "" {
		table = "availabilities"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresAvailabilitySource{db: db, table: table, fallbackTZ: fallbackTZ, logger: logger}
}

type availabilityRow struct {
	ID             int64      `db:"id"`
	OwnerID        int64      `db:"user_id"`
	RangeStart     time.Time  `db:"range_start"`
	RangeEnd       time.Time  `db:"range_end"`
	Timezone       *string    `db:"timezone"`
	DayOfWeek      *int       `db:"day_of_week"`
	IsRepeating    bool       `db:"is_repeating"`
	EndOn          *time.Time `db:"end_on"`
	LocationID     *int64     `db:"appointment_location_id"`
	OrganizationID int64      `db:"parent_organization_id"`
	DeletedAt      *time.Time `db:"deleted_at"`
}

// Load returns normalized records. A failing query is fatal to the load; a
// row violating the range invariant or duplicating an id is a counted skip.
func (s *PostgresAvailabilitySource) Load(ctx context.Context) ([]models.AvailabilityRecord, int, error) {
	query := fmt.Sprintf(`SELECT id, user_id, range_start, range_end, timezone, day_of_week, is_repeating, end_on, appointment_location_id, parent_organization_id, deleted_at FROM %s ORDER BY id`, s.table)

	var rows []availabilityRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrLoadFailure.Code, appErrors.ErrLoadFailure.Status, "query availability table")
	}

	var (
		records  []models.AvailabilityRecord
		rejected int
		seen     = make(map[int64]struct{})
	)
	for _, row := range rows {
		if _, dup := seen[row.ID]; dup {
			rejected++
			s.logger.Warn("availability row duplicate id", zap.Int64("id", row.ID))
			continue
		}
		if row.RangeStart.After(row.RangeEnd) {
			rejected++
			s.logger.Warn("availability row range inverted", zap.Int64("id", row.ID))
			continue
		}

		zone := s.fallbackTZ
		if row.Timezone != nil && *row.Timezone != "" {
			if _, err := time.LoadLocation(*row.Timezone); err == nil {
				zone = *row.Timezone
			}
		}
		if _, err := time.LoadLocation(zone); err != nil {
			zone = "UTC"
		}

		seen[row.ID] = struct{}{}
		records = append(records, models.AvailabilityRecord{
			ID:             row.ID,
			OwnerID:        row.OwnerID,
			RangeStart:     row.RangeStart,
			RangeEnd:       row.RangeEnd,
			Timezone:       zone,
			DayOfWeek:      row.DayOfWeek,
			IsRepeating:    row.IsRepeating,
			EndOn:          row.EndOn,
			LocationID:     row.LocationID,
			OrganizationID: row.OrganizationID,
			DeletedAt:      row.DeletedAt,
		})
	}

	return records, rejected, nil
}
