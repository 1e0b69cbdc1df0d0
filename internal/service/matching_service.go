package service

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/brightline-health/intake-api/internal/models"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
)

// MatchingService computes the concrete appointment slots satisfying a
// guardian preference against an availability snapshot. Matching is pure and
// deterministic: fixed inputs always produce the same ordered output.
type MatchingService struct {
	horizonDays int
	maxResults  int
	fallbackTZ  string
	logger      *zap.Logger
}

// MatchingConfig tunes engine bounds.
type MatchingConfig struct {
	HorizonDays int
	MaxResults  int
	FallbackTZ  string
}

// NewMatchingService constructs the engine.
func NewMatchingService(cfg MatchingConfig, logger *zap.Logger) *MatchingService {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 28
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	if cfg.FallbackTZ == "" {
		cfg.FallbackTZ = "UTC"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchingService{
		horizonDays: cfg.HorizonDays,
		maxResults:  cfg.MaxResults,
		fallbackTZ:  cfg.FallbackTZ,
		logger:      logger,
	}
}

// MatchOptions scope one match invocation.
type MatchOptions struct {
	// OrganizationID restricts candidate records to one tenant.
	OrganizationID int64
	// Anchor is the "now" instant the horizon starts from.
	Anchor time.Time
}

// clockRange is a preference time range with its clock parts and zone
// resolved up front.
type clockRange struct {
	startHour, startMin int
	endHour, endMin     int
	loc                 *time.Location
}

// preference is the parsed, invariant-checked form of a PreferenceModel.
type preference struct {
	days     map[int]struct{}
	ranges   []clockRange
	specific map[string]struct{}
	pattern  models.RecurringPattern
	refLoc   *time.Location

	constraintStart *time.Time
	constraintEnd   *time.Time
}

// Match runs the full pipeline: horizon resolution, tenant and soft-delete
// filtering, occurrence expansion, preference filtering, dedup, ordering and
// bounding. An empty result is a normal outcome, never an error.
func (s *MatchingService) Match(pref models.PreferenceModel, snapshot *models.Snapshot, opts MatchOptions) ([]models.MatchedSlot, error) {
	parsed, err := s.parsePreference(pref)
	if err != nil {
		return nil, err
	}

	anchor := opts.Anchor
	if anchor.IsZero() {
		anchor = time.Now().UTC()
	}

	horizonStart, horizonEnd, ok := s.resolveHorizon(anchor, parsed)
	if !ok {
		return nil, nil
	}

	var slots []models.MatchedSlot
	for i := range snapshot.Records {
		record := &snapshot.Records[i]
		if record.Deleted() || record.OrganizationID != opts.OrganizationID {
			continue
		}
		for _, occ := range s.expand(record, horizonStart, horizonEnd) {
			if !s.accept(occ, parsed) {
				continue
			}
			slots = append(slots, models.MatchedSlot{
				RecordID:   record.ID,
				OwnerID:    record.OwnerID,
				Start:      occ.start,
				End:        occ.end,
				Timezone:   record.Timezone,
				LocationID: record.LocationID,
			})
		}
	}

	slots = orderAndDedup(slots)
	if len(slots) > s.maxResults {
		slots = slots[:s.maxResults]
	}
	return slots, nil
}

// parsePreference re-checks the cheap invariants the upstream validator
// already enforced. A violation here is a caller error, not retryable.
func (s *MatchingService) parsePreference(pref models.PreferenceModel) (*preference, error) {
	if !pref.RecurringPattern.Valid() {
		return nil, invalidPreference(fmt.Sprintf("unknown recurring pattern %q", pref.RecurringPattern))
	}

	parsed := &preference{pattern: pref.RecurringPattern}

	if len(pref.DaysOfWeek) > 0 {
		parsed.days = make(map[int]struct{}, len(pref.DaysOfWeek))
		for _, day := range pref.DaysOfWeek {
			if day < 0 || day > 6 {
				return nil, invalidPreference(fmt.Sprintf("day of week %d out of range", day))
			}
			parsed.days[day] = struct{}{}
		}
	}

	for _, tr := range pref.TimeRanges {
		sh, sm, err := models.ParseClock(tr.Start)
		if err != nil {
			return nil, invalidPreference(err.Error())
		}
		eh, em, err := models.ParseClock(tr.End)
		if err != nil {
			return nil, invalidPreference(err.Error())
		}
		loc, err := time.LoadLocation(tr.Timezone)
		if err != nil {
			return nil, invalidPreference(fmt.Sprintf("unknown timezone %q", tr.Timezone))
		}
		parsed.ranges = append(parsed.ranges, clockRange{
			startHour: sh, startMin: sm, endHour: eh, endMin: em, loc: loc,
		})
	}

	refLoc, err := time.LoadLocation(pref.ReferenceTimezone(s.fallbackTZ))
	if err != nil {
		refLoc = time.UTC
	}
	parsed.refLoc = refLoc

	if len(pref.SpecificDates) > 0 {
		parsed.specific = make(map[string]struct{}, len(pref.SpecificDates))
		for _, raw := range pref.SpecificDates {
			if _, err := time.Parse(models.DateOnly, raw); err != nil {
				return nil, invalidPreference(fmt.Sprintf("malformed specific date %q", raw))
			}
			parsed.specific[raw] = struct{}{}
		}
	}

	if dc := pref.DateConstraints; dc != nil {
		var startDate, endDate *time.Time
		if dc.StartDate != "" {
			t, err := time.ParseInLocation(models.DateOnly, dc.StartDate, refLoc)
			if err != nil {
				return nil, invalidPreference(fmt.Sprintf("malformed start date %q", dc.StartDate))
			}
			startDate = &t
		}
		if dc.EndDate != "" {
			t, err := time.ParseInLocation(models.DateOnly, dc.EndDate, refLoc)
			if err != nil {
				return nil, invalidPreference(fmt.Sprintf("malformed end date %q", dc.EndDate))
			}
			endDate = &t
		}
		// Inversion is a caller error. A well-formed window that happens to
		// lie in the past is not; it just matches nothing.
		if startDate != nil && endDate != nil && startDate.After(*endDate) {
			return nil, invalidPreference("date constraints are inverted")
		}
		parsed.constraintStart = startDate
		if endDate != nil {
			// Inclusive end date: the horizon closes at the following
			// midnight.
			end := endDate.AddDate(0, 0, 1)
			parsed.constraintEnd = &end
		}
	}

	return parsed, nil
}

// resolveHorizon computes [start, end) from the anchor, the default forward
// bound and any absolute date constraints. A window that already closed
// before the anchor resolves to an empty horizon, not an error.
func (s *MatchingService) resolveHorizon(anchor time.Time, parsed *preference) (time.Time, time.Time, bool) {
	start := anchor
	end := anchor.AddDate(0, 0, s.horizonDays)

	if parsed.constraintStart != nil && parsed.constraintStart.After(start) {
		start = *parsed.constraintStart
	}
	if parsed.constraintEnd != nil && parsed.constraintEnd.Before(end) {
		end = *parsed.constraintEnd
	}

	return start, end, end.After(start)
}

// occurrence is one dated instance of availability.
type occurrence struct {
	start time.Time
	end   time.Time
	loc   *time.Location
}

// expand turns a record into its concrete occurrences within the horizon.
func (s *MatchingService) expand(record *models.AvailabilityRecord, horizonStart, horizonEnd time.Time) []occurrence {
	loc := record.Location()

	if !record.IsRepeating {
		occ := occurrence{start: record.RangeStart, end: record.RangeEnd, loc: loc}
		if intersects(occ, horizonStart, horizonEnd) {
			return []occurrence{occ}
		}
		return nil
	}

	if record.DayOfWeek == nil {
		s.logger.Warn("repeating availability without day_of_week skipped", zap.Int64("id", record.ID))
		return nil
	}
	wantDay := time.Weekday(*record.DayOfWeek)

	startClock := record.RangeStart.In(loc)
	endClock := record.RangeEnd.In(loc)

	// Walk calendar dates in the record's zone. Starting a day early keeps
	// occurrences that began before the horizon but still overlap it.
	first := horizonStart.In(loc).AddDate(0, 0, -1)
	first = time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	last := horizonEnd.In(loc)

	var out []occurrence
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if day.Weekday() != wantDay {
			continue
		}
		if record.EndOn != nil {
			endOn := record.EndOn.In(loc)
			if dateAfter(day, endOn) {
				break
			}
		}
		occ := occurrence{
			start: time.Date(day.Year(), day.Month(), day.Day(), startClock.Hour(), startClock.Minute(), 0, 0, loc),
			end:   time.Date(day.Year(), day.Month(), day.Day(), endClock.Hour(), endClock.Minute(), 0, 0, loc),
			loc:   loc,
		}
		if intersects(occ, horizonStart, horizonEnd) {
			out = append(out, occ)
		}
	}
	return out
}

// accept applies the per-occurrence preference filters. Every test is
// independent and all must pass.
func (s *MatchingService) accept(occ occurrence, parsed *preference) bool {
	localDay := int(occ.start.In(occ.loc).Weekday())
	if parsed.days != nil {
		if _, ok := parsed.days[localDay]; !ok {
			return false
		}
	}

	if !parsed.pattern.Matches(occ.start.In(occ.loc).Weekday()) {
		return false
	}

	if len(parsed.ranges) > 0 {
		overlaps := false
		for _, cr := range parsed.ranges {
			if overlapsRange(occ, cr) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			return false
		}
	}

	if parsed.specific != nil {
		date := occ.start.In(parsed.refLoc).Format(models.DateOnly)
		if _, ok := parsed.specific[date]; !ok {
			return false
		}
	}

	return true
}

// overlapsRange anchors the preference range on the occurrence's calendar
// date as seen in the range's own zone, then compares absolute instants with
// the half-open rule: a zero-length touch does not count. The range is one
// dated window, anchored once on the occurrence's start date; an occurrence
// spanning multiple days is only compared against that first day's window.
func overlapsRange(occ occurrence, cr clockRange) bool {
	anchored := occ.start.In(cr.loc)
	year, month, day := anchored.Date()
	rangeStart := time.Date(year, month, day, cr.startHour, cr.startMin, 0, 0, cr.loc)
	rangeEnd := time.Date(year, month, day, cr.endHour, cr.endMin, 0, 0, cr.loc)
	return occ.start.Before(rangeEnd) && occ.end.After(rangeStart)
}

func intersects(occ occurrence, horizonStart, horizonEnd time.Time) bool {
	return occ.start.Before(horizonEnd) && occ.end.After(horizonStart)
}

// dateAfter reports whether a falls on a later calendar date than b in a's
// zone.
func dateAfter(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad > bd
}

type slotKey struct {
	owner int64
	start int64
	end   int64
}

// orderAndDedup imposes the total order (start, owner, record id) and drops
// exact duplicate (owner, start, end) triples, keeping the lowest record id.
func orderAndDedup(slots []models.MatchedSlot) []models.MatchedSlot {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.OwnerID != b.OwnerID {
			return a.OwnerID < b.OwnerID
		}
		return a.RecordID < b.RecordID
	})

	seen := make(map[slotKey]struct{}, len(slots))
	out := slots[:0]
	for _, slot := range slots {
		key := slotKey{owner: slot.OwnerID, start: slot.Start.UnixNano(), end: slot.End.UnixNano()}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, slot)
	}
	return out
}

func invalidPreference(detail string) error {
	return appErrors.Clone(appErrors.ErrInvalidPreference, detail)
}
