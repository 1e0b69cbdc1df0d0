package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RecurringPattern is a coarse weekday filter applied on top of DaysOfWeek.
type RecurringPattern string

const (
	PatternWeekdays RecurringPattern = "weekdays"
	PatternWeekends RecurringPattern = "weekends"
	PatternDaily    RecurringPattern = "daily"
	PatternNone     RecurringPattern = "none"
)

// Valid reports whether the pattern is one of the known values.
func (p RecurringPattern) Valid() bool {
	switch p {
	case PatternWeekdays, PatternWeekends, PatternDaily, PatternNone:
		return true
	}
	return false
}

// Matches reports whether the weekday passes the pattern filter.
func (p RecurringPattern) Matches(day time.Weekday) bool {
	switch p {
	case PatternWeekdays:
		return day >= time.Monday && day <= time.Friday
	case PatternWeekends:
		return day == time.Saturday || day == time.Sunday
	default:
		return true
	}
}

// TimeRange is a local time-of-day window in its own zone.
type TimeRange struct {
	Start    string `json:"start" validate:"required,hhmm"`
	End      string `json:"end" validate:"required,hhmm"`
	Timezone string `json:"timezone" validate:"required,tzname"`
}

// DateConstraints bounds the evaluation horizon. Relative is a free-form hint
// already resolved upstream; it is carried for observability and never
// parsed here.
type DateConstraints struct {
	StartDate string `json:"startDate,omitempty" validate:"omitempty,dateonly"`
	EndDate   string `json:"endDate,omitempty" validate:"omitempty,dateonly"`
	Relative  string `json:"relative,omitempty"`
}

// PreferenceModel is the validated structural statement of when a guardian is
// willing to meet. Instances are created per request and carry no identity.
type PreferenceModel struct {
	DaysOfWeek       []int            `json:"daysOfWeek" validate:"dive,gte=0,lte=6"`
	TimeRanges       []TimeRange      `json:"timeRanges" validate:"dive"`
	DateConstraints  *DateConstraints `json:"dateConstraints,omitempty"`
	SpecificDates    []string         `json:"specificDates" validate:"dive,dateonly"`
	RecurringPattern RecurringPattern `json:"recurringPattern" validate:"required,recurring_pattern"`
}

// ReferenceTimezone returns the zone used for SpecificDates comparisons: the
// first time range's zone when present, otherwise fallback.
func (p PreferenceModel) ReferenceTimezone(fallback string) string {
	if len(p.TimeRanges) > 0 && p.TimeRanges[0].Timezone != "" {
		return p.TimeRanges[0].Timezone
	}
	return fallback
}

// DateOnly is the wire format for calendar dates.
const DateOnly = "2006-01-02"

// ParseClock parses an "HH:MM" string into hour and minute.
func ParseClock(raw string) (int, int, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed clock value %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("clock hour out of range in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock minute out of range in %q", raw)
	}
	return hour, minute, nil
}
