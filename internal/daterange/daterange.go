// Package daterange turns relative and absolute date-range specs into concrete intervals.
package daterange

import (
	"fmt"
	"time"

	"github.com/kurihiro0119/business-reports/internal/domain"
)

// Resolve converts spec into a [from, to) interval relative to now.
// A date-only absolute end includes that whole day. It never reads the wall clock.
func Resolve(spec domain.DateRangeSpec, now time.Time) (domain.DateRange, error) {
	switch spec.Mode {
	case domain.DateRangeAbsolute:
		from, err := domain.ParseDate(spec.From)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("invalid from date %q: %w", spec.From, err)
		}
		to, err := domain.ParseDate(spec.To)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("invalid to date %q: %w", spec.To, err)
		}
		if to.Before(from) {
			return domain.DateRange{}, fmt.Errorf("from %s is after to %s", spec.From, spec.To)
		}
		end, err := domain.ParseRangeEnd(spec.To)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("invalid to date %q: %w", spec.To, err)
		}
		return domain.DateRange{From: from, To: end}, nil

	case domain.DateRangeRelative:
		from, err := relativeStart(spec.Value, now)
		if err != nil {
			return domain.DateRange{}, err
		}
		return domain.DateRange{From: from, To: now}, nil
	}

	return domain.DateRange{}, fmt.Errorf("unknown date range mode %q", spec.Mode)
}

func relativeStart(value domain.RelativeRange, now time.Time) (time.Time, error) {
	switch value {
	case domain.RangeToday:
		return StartOfDay(now), nil
	case domain.RangeLast7Days:
		return now.AddDate(0, 0, -7), nil
	case domain.RangeLast30Days:
		return now.AddDate(0, 0, -30), nil
	case domain.RangeQuarterToDay:
		return StartOfQuarter(now), nil
	case domain.RangeYearToDate:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	}
	return time.Time{}, fmt.Errorf("unknown relative range %q", value)
}

// StartOfDay returns midnight of t's calendar day in t's location
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfQuarter returns the first instant of t's calendar quarter
func StartOfQuarter(t time.Time) time.Time {
	quarter := (int(t.Month()) - 1) / 3
	return time.Date(t.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, t.Location())
}
