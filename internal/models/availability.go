package models

import "time"

// AvailabilityRecord is one normalized clinician availability row. Records
// are immutable after load; a repeating record's RangeStart/RangeEnd carry
// the time-of-day window of a single weekly occurrence.
type AvailabilityRecord struct {
	ID             int64      `db:"id" json:"id"`
	OwnerID        int64      `db:"user_id" json:"owner_id"`
	RangeStart     time.Time  `db:"range_start" json:"range_start"`
	RangeEnd       time.Time  `db:"range_end" json:"range_end"`
	Timezone       string     `db:"timezone" json:"timezone"`
	DayOfWeek      *int       `db:"day_of_week" json:"day_of_week,omitempty"`
	IsRepeating    bool       `db:"is_repeating" json:"is_repeating"`
	EndOn          *time.Time `db:"end_on" json:"end_on,omitempty"`
	LocationID     *int64     `db:"appointment_location_id" json:"location_id,omitempty"`
	OrganizationID int64      `db:"parent_organization_id" json:"organization_id"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Deleted reports whether the record is soft-deleted.
func (r AvailabilityRecord) Deleted() bool {
	return r.DeletedAt != nil
}

// Location resolves the record's zone. The repository guarantees a valid IANA
// name post-load; UTC is the defensive fallback.
func (r AvailabilityRecord) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Snapshot is one immutable, fully-loaded view of the availability dataset.
// It is replaced wholesale on refresh, never mutated in place.
type Snapshot struct {
	Records  []AvailabilityRecord `json:"records"`
	Rejected int                  `json:"rejected"`
	LoadedAt time.Time            `json:"loaded_at"`
}

// MatchedSlot is one concrete, bookable occurrence emitted by the matching
// engine. Start and End are absolute instants; Timezone is the source
// record's zone.
type MatchedSlot struct {
	RecordID   int64     `json:"record_id"`
	OwnerID    int64     `json:"owner_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Timezone   string    `json:"timezone"`
	LocationID *int64    `json:"location_id,omitempty"`
}
