package httpapi

import (
	"testing"
	"time"
)

// Wednesday 2024-05-15, mid-afternoon.
var ref = time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)

func TestResolveQuickRangeToday(t *testing.T) {
	rng, err := resolveQuickRange(RangeToday, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rng.From.Day() != 15 || rng.To.Day() != 15 {
		t.Fatalf("expected both bounds on the 15th, got %v .. %v", rng.From, rng.To)
	}
	if rng.From.Hour() != 0 || rng.To.Hour() != 23 {
		t.Fatalf("expected full day bounds, got %v .. %v", rng.From, rng.To)
	}
}

func TestResolveQuickRangeYesterday(t *testing.T) {
	rng, err := resolveQuickRange(RangeYesterday, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rng.From.Day() != 14 || rng.To.Day() != 14 {
		t.Fatalf("expected both bounds on the 14th, got %v .. %v", rng.From, rng.To)
	}
}

func TestResolveQuickRangeLastWeekSpansSevenDays(t *testing.T) {
	rng, err := resolveQuickRange(RangeLastWeek, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	days := rng.To.Sub(rng.From).Hours() / 24
	if days < 6.9 || days > 7.1 {
		t.Fatalf("expected ~7 day span, got %.2f days", days)
	}
}

func TestResolveQuickRangePreviousWeekIsMondayToSunday(t *testing.T) {
	rng, err := resolveQuickRange(RangePreviousWeek, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rng.From.Weekday() != time.Monday {
		t.Fatalf("expected Monday start, got %v", rng.From.Weekday())
	}
	if rng.To.Weekday() != time.Sunday {
		t.Fatalf("expected Sunday end, got %v", rng.To.Weekday())
	}
	if !rng.To.Before(startOfWeek(ref)) {
		t.Fatalf("previous week must end before this week starts")
	}
}

func TestResolveQuickRangePreviousMonth(t *testing.T) {
	rng, err := resolveQuickRange(RangePreviousMonth, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rng.From.Month() != time.April || rng.From.Day() != 1 {
		t.Fatalf("expected April 1 start, got %v", rng.From)
	}
	if rng.To.Month() != time.April || rng.To.Day() != 30 {
		t.Fatalf("expected April 30 end, got %v", rng.To)
	}
}

func TestResolveQuickRangeUnknownOption(t *testing.T) {
	if _, err := resolveQuickRange("last-century", ref); err == nil {
		t.Fatal("expected error for unknown option")
	}
}

func TestParseDateAcceptsBothFormats(t *testing.T) {
	d, dateOnly, err := parseDate("2024-05-15")
	if err != nil || !dateOnly {
		t.Fatalf("expected date-only parse, got %v err=%v", d, err)
	}

	d, dateOnly, err = parseDate("2024-05-15T10:00:00Z")
	if err != nil || dateOnly {
		t.Fatalf("expected timestamp parse, got %v err=%v", d, err)
	}

	if _, _, err := parseDate("15/05/2024"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
