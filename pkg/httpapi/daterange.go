package httpapi

import (
	"fmt"
	"time"

	"github.com/reviewpilot/platform/pkg/common/models"
)

// Quick date-range options offered by the UI. They are resolved to absolute
// bounds here, before anything reaches the core.
const (
	RangeToday         = "today"
	RangeYesterday     = "yesterday"
	RangeLastWeek      = "last-1-week"
	RangeLastMonth     = "last-1-month"
	RangePreviousWeek  = "previous-week"
	RangePreviousMonth = "previous-month"
)

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).Add(24*time.Hour - time.Nanosecond)
}

// startOfWeek returns the Monday of t's week.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

func resolveQuickRange(option string, now time.Time) (models.DateRange, error) {
	switch option {
	case RangeToday:
		return models.DateRange{From: startOfDay(now), To: endOfDay(now)}, nil
	case RangeYesterday:
		y := now.AddDate(0, 0, -1)
		return models.DateRange{From: startOfDay(y), To: endOfDay(y)}, nil
	case RangeLastWeek:
		return models.DateRange{From: startOfDay(now.AddDate(0, 0, -6)), To: endOfDay(now)}, nil
	case RangeLastMonth:
		return models.DateRange{From: startOfDay(now.AddDate(0, -1, 0)), To: endOfDay(now)}, nil
	case RangePreviousWeek:
		thisWeek := startOfWeek(now)
		return models.DateRange{From: thisWeek.AddDate(0, 0, -7), To: endOfDay(thisWeek.AddDate(0, 0, -1))}, nil
	case RangePreviousMonth:
		firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		firstOfPrevMonth := firstOfThisMonth.AddDate(0, -1, 0)
		return models.DateRange{From: firstOfPrevMonth, To: endOfDay(firstOfThisMonth.AddDate(0, 0, -1))}, nil
	default:
		return models.DateRange{}, fmt.Errorf("unknown range option %q", option)
	}
}

// parseDate accepts a bare date or RFC3339 timestamp.
func parseDate(value string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q", value)
	}
	return t, false, nil
}
