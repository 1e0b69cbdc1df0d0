package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline-health/intake-api/internal/models"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
)

const testOrg = int64(77)

// anchor is a Monday.
var anchor = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func pacific(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return loc
}

func newEngine() *MatchingService {
	return NewMatchingService(MatchingConfig{HorizonDays: 14, MaxResults: 50, FallbackTZ: "America/Los_Angeles"}, nil)
}

func oneOff(id, owner int64, start, end time.Time, zone string) models.AvailabilityRecord {
	return models.AvailabilityRecord{
		ID:             id,
		OwnerID:        owner,
		RangeStart:     start,
		RangeEnd:       end,
		Timezone:       zone,
		OrganizationID: testOrg,
	}
}

func weekly(id, owner int64, day int, start, end time.Time, zone string) models.AvailabilityRecord {
	return models.AvailabilityRecord{
		ID:             id,
		OwnerID:        owner,
		RangeStart:     start,
		RangeEnd:       end,
		Timezone:       zone,
		DayOfWeek:      &day,
		IsRepeating:    true,
		OrganizationID: testOrg,
	}
}

func snapshotOf(records ...models.AvailabilityRecord) *models.Snapshot {
	return &models.Snapshot{Records: records, LoadedAt: anchor}
}

func matchAll() models.PreferenceModel {
	return models.PreferenceModel{RecurringPattern: models.PatternNone}
}

func TestMatchDeterministicOutput(t *testing.T) {
	loc := pacific(t)
	snap := snapshotOf(
		oneOff(2, 20, time.Date(2026, 3, 4, 10, 0, 0, 0, loc), time.Date(2026, 3, 4, 11, 0, 0, 0, loc), "America/Los_Angeles"),
		oneOff(1, 10, time.Date(2026, 3, 3, 9, 0, 0, 0, loc), time.Date(2026, 3, 3, 10, 0, 0, 0, loc), "America/Los_Angeles"),
	)
	engine := newEngine()

	first, err := engine.Match(matchAll(), snap, MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	second, err := engine.Match(matchAll(), snap, MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, first, 2)
	assert.Equal(t, int64(1), first[0].RecordID)
	assert.Equal(t, int64(2), first[1].RecordID)
}

func TestMatchExcludesSoftDeleted(t *testing.T) {
	loc := pacific(t)
	deletedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	record := oneOff(1, 10, time.Date(2026, 3, 3, 9, 0, 0, 0, loc), time.Date(2026, 3, 3, 10, 0, 0, 0, loc), "America/Los_Angeles")
	record.DeletedAt = &deletedAt

	slots, err := newEngine().Match(matchAll(), snapshotOf(record), MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestMatchScopesByOrganization(t *testing.T) {
	loc := pacific(t)
	record := oneOff(1, 10, time.Date(2026, 3, 3, 9, 0, 0, 0, loc), time.Date(2026, 3, 3, 10, 0, 0, 0, loc), "America/Los_Angeles")
	record.OrganizationID = testOrg + 1

	slots, err := newEngine().Match(matchAll(), snapshotOf(record), MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestMatchExpandsWeeklyRecurrence(t *testing.T) {
	loc := pacific(t)
	// Tuesdays 9:00-10:00 Pacific.
	record := weekly(1, 10, 2,
		time.Date(2026, 1, 6, 9, 0, 0, 0, loc), time.Date(2026, 1, 6, 10, 0, 0, 0, loc),
		"America/Los_Angeles")

	slots, err := newEngine().Match(matchAll(), snapshotOf(record), MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	// Two Tuesdays inside the 14-day horizon: March 3 and March 10.
	require.Len(t, slots, 2)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, loc).UTC(), slots[0].Start.UTC())
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, loc).UTC(), slots[1].Start.UTC())
}

func TestMatchRespectsRecurrenceEndOn(t *testing.T) {
	loc := pacific(t)
	record := weekly(1, 10, 2,
		time.Date(2026, 1, 6, 9, 0, 0, 0, loc), time.Date(2026, 1, 6, 10, 0, 0, 0, loc),
		"America/Los_Angeles")
	endOn := time.Date(2026, 3, 3, 0, 0, 0, 0, loc)
	record.EndOn = &endOn

	slots, err := newEngine().Match(matchAll(), snapshotOf(record), MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	// The end bound is inclusive: March 3 stays, March 10 is gone.
	require.Len(t, slots, 1)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, loc).UTC(), slots[0].Start.UTC())
}

func TestMatchSkipsRepeatingWithoutDayOfWeek(t *testing.T) {
	loc := pacific(t)
	record := weekly(1, 10, 2,
		time.Date(2026, 1, 6, 9, 0, 0, 0, loc), time.Date(2026, 1, 6, 10, 0, 0, 0, loc),
		"America/Los_Angeles")
	record.DayOfWeek = nil

	slots, err := newEngine().Match(matchAll(), snapshotOf(record), MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestMatchTimeRangeOverlapIsHalfOpen(t *testing.T) {
	loc := pacific(t)
	pref := models.PreferenceModel{
		TimeRanges: []models.TimeRange{
			{Start: "09:00", End: "10:00", Timezone: "America/Los_Angeles"},
		},
		RecurringPattern: models.PatternNone,
	}
	snap := snapshotOf(
		// 09:30-09:45 overlaps.
		oneOff(1, 10, time.Date(2026, 3, 3, 9, 30, 0, 0, loc), time.Date(2026, 3, 3, 9, 45, 0, 0, loc), "America/Los_Angeles"),
		// 10:00-10:15 touches the boundary and must not count.
		oneOff(2, 10, time.Date(2026, 3, 3, 10, 0, 0, 0, loc), time.Date(2026, 3, 3, 10, 15, 0, 0, loc), "America/Los_Angeles"),
	)

	slots, err := newEngine().Match(pref, snap, MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, int64(1), slots[0].RecordID)
}

func TestMatchTimeRangeCrossesZones(t *testing.T) {
	loc := pacific(t)
	// 12:00-13:00 Eastern is 09:00-10:00 Pacific.
	pref := models.PreferenceModel{
		TimeRanges: []models.TimeRange{
			{Start: "12:00", End: "13:00", Timezone: "America/New_York"},
		},
		RecurringPattern: models.PatternNone,
	}
	snap := snapshotOf(
		oneOff(1, 10, time.Date(2026, 3, 3, 9, 30, 0, 0, loc), time.Date(2026, 3, 3, 9, 45, 0, 0, loc), "America/Los_Angeles"),
		oneOff(2, 10, time.Date(2026, 3, 3, 14, 0, 0, 0, loc), time.Date(2026, 3, 3, 15, 0, 0, 0, loc), "America/Los_Angeles"),
	)

	slots, err := newEngine().Match(pref, snap, MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, int64(1), slots[0].RecordID)
}

func TestMatchDayOfWeekFilter(t *testing.T) {
	loc := pacific(t)
	pref := models.PreferenceModel{
		DaysOfWeek:       []int{1}, // Monday
		RecurringPattern: models.PatternNone,
	}
	// Wednesdays never qualify.
	record := weekly(1, 10, 3,
		time.Date(2026, 1, 7, 9, 0, 0, 0, loc), time.Date(2026, 1, 7, 10, 0, 0, 0, loc),
		"America/Los_Angeles")

	slots, err := newEngine().Match(pref, snapshotOf(record), MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestMatchRecurringPatternWeekends(t *testing.T) {
	loc := pacific(t)
	pref := models.PreferenceModel{RecurringPattern: models.PatternWeekends}
	snap := snapshotOf(
		// Saturday March 7.
		oneOff(1, 10, time.Date(2026, 3, 7, 9, 0, 0, 0, loc), time.Date(2026, 3, 7, 10, 0, 0, 0, loc), "America/Los_Angeles"),
		// Wednesday March 4.
		oneOff(2, 10, time.Date(2026, 3, 4, 9, 0, 0, 0, loc), time.Date(2026, 3, 4, 10, 0, 0, 0, loc), "America/Los_Angeles"),
	)

	slots, err := newEngine().Match(pref, snap, MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, int64(1), slots[0].RecordID)
}

func TestMatchSpecificDatesRestrict(t *testing.T) {
	loc := pacific(t)
	pref := models.PreferenceModel{
		SpecificDates:    []string{"2026-03-04"},
		RecurringPattern: models.PatternNone,
	}
	snap := snapshotOf(
		oneOff(1, 10, time.Date(2026, 3, 3, 9, 0, 0, 0, loc), time.Date(2026, 3, 3, 10, 0, 0, 0, loc), "America/Los_Angeles"),
		oneOff(2, 10, time.Date(2026, 3, 4, 9, 0, 0, 0, loc), time.Date(2026, 3, 4, 10, 0, 0, 0, loc), "America/Los_Angeles"),
	)

	slots, err := newEngine().Match(pref, snap, MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, int64(2), slots[0].RecordID)
}

func TestMatchDateConstraintsNarrowHorizon(t *testing.T) {
	loc := pacific(t)
	pref := models.PreferenceModel{
		DateConstraints:  &models.DateConstraints{StartDate: "2026-03-06", EndDate: "2026-03-09", Relative: "this weekend"},
		RecurringPattern: models.PatternNone,
	}
	snap := snapshotOf(
		oneOff(1, 10, time.Date(2026, 3, 3, 9, 0, 0, 0, loc), time.Date(2026, 3, 3, 10, 0, 0, 0, loc), "America/Los_Angeles"),
		oneOff(2, 10, time.Date(2026, 3, 7, 9, 0, 0, 0, loc), time.Date(2026, 3, 7, 10, 0, 0, 0, loc), "America/Los_Angeles"),
		oneOff(3, 10, time.Date(2026, 3, 12, 9, 0, 0, 0, loc), time.Date(2026, 3, 12, 10, 0, 0, 0, loc), "America/Los_Angeles"),
	)

	slots, err := newEngine().Match(pref, snap, MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, int64(2), slots[0].RecordID)
}

func TestMatchInvertedConstraintsRejected(t *testing.T) {
	pref := models.PreferenceModel{
		DateConstraints:  &models.DateConstraints{StartDate: "2026-03-10", EndDate: "2026-03-01"},
		RecurringPattern: models.PatternNone,
	}

	_, err := newEngine().Match(pref, snapshotOf(), MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPreference.Code, appErrors.FromError(err).Code)
}

func TestMatchPastConstraintWindowYieldsEmpty(t *testing.T) {
	loc := pacific(t)
	// Well-formed window, already over by the anchor.
	pref := models.PreferenceModel{
		DateConstraints:  &models.DateConstraints{StartDate: "2026-01-05", EndDate: "2026-01-12"},
		RecurringPattern: models.PatternNone,
	}
	snap := snapshotOf(
		oneOff(1, 10, time.Date(2026, 3, 3, 9, 0, 0, 0, loc), time.Date(2026, 3, 3, 10, 0, 0, 0, loc), "America/Los_Angeles"),
	)

	slots, err := newEngine().Match(pref, snap, MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestMatchRejectsOutOfRangeDay(t *testing.T) {
	pref := models.PreferenceModel{
		DaysOfWeek:       []int{9},
		RecurringPattern: models.PatternNone,
	}

	_, err := newEngine().Match(pref, snapshotOf(), MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPreference.Code, appErrors.FromError(err).Code)
}

func TestMatchDeduplicatesIdenticalSlots(t *testing.T) {
	loc := pacific(t)
	start := time.Date(2026, 3, 3, 9, 0, 0, 0, loc)
	end := time.Date(2026, 3, 3, 10, 0, 0, 0, loc)
	snap := snapshotOf(
		oneOff(5, 10, start, end, "America/Los_Angeles"),
		oneOff(3, 10, start, end, "America/Los_Angeles"),
	)

	slots, err := newEngine().Match(matchAll(), snap, MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	// The lowest record id survives.
	assert.Equal(t, int64(3), slots[0].RecordID)
}

func TestMatchBoundsResultCount(t *testing.T) {
	loc := pacific(t)
	engine := NewMatchingService(MatchingConfig{HorizonDays: 14, MaxResults: 3, FallbackTZ: "America/Los_Angeles"}, nil)

	var records []models.AvailabilityRecord
	for i := int64(1); i <= 6; i++ {
		day := time.Date(2026, 3, 3, 0, 0, 0, 0, loc).AddDate(0, 0, int(i-1))
		records = append(records, oneOff(i, 10,
			day.Add(9*time.Hour), day.Add(10*time.Hour), "America/Los_Angeles"))
	}

	slots, err := engine.Match(matchAll(), snapshotOf(records...), MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	require.Len(t, slots, 3)
	// Truncation drops the tail, never reorders.
	assert.Equal(t, int64(1), slots[0].RecordID)
	assert.Equal(t, int64(2), slots[1].RecordID)
	assert.Equal(t, int64(3), slots[2].RecordID)
}

func TestMatchEmptyResultIsNotAnError(t *testing.T) {
	loc := pacific(t)
	pref := models.PreferenceModel{
		TimeRanges: []models.TimeRange{
			{Start: "02:00", End: "03:00", Timezone: "America/Los_Angeles"},
		},
		RecurringPattern: models.PatternNone,
	}
	snap := snapshotOf(
		oneOff(1, 10, time.Date(2026, 3, 3, 9, 0, 0, 0, loc), time.Date(2026, 3, 3, 10, 0, 0, 0, loc), "America/Los_Angeles"),
	)

	slots, err := newEngine().Match(pref, snap, MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestMatchOrderIsTotal(t *testing.T) {
	loc := pacific(t)
	start := time.Date(2026, 3, 3, 9, 0, 0, 0, loc)
	snap := snapshotOf(
		oneOff(4, 20, start, start.Add(time.Hour), "America/Los_Angeles"),
		oneOff(2, 10, start, start.Add(30*time.Minute), "America/Los_Angeles"),
		oneOff(9, 10, start.Add(-time.Hour), start.Add(time.Hour), "America/Los_Angeles"),
	)

	slots, err := newEngine().Match(matchAll(), snap, MatchOptions{OrganizationID: testOrg, Anchor: anchor})
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, int64(9), slots[0].RecordID)
	assert.Equal(t, int64(2), slots[1].RecordID)
	assert.Equal(t, int64(4), slots[2].RecordID)
}
