package recurrence

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"graphcal/internal/models"
	"graphcal/internal/timeresolve"
)

func TestBuildPatternWeeklyNormalizesDays(t *testing.T) {
	p, err := BuildPattern(models.PatternWeekly, 0, []string{"monday", "FRIDAY", " wednesday "}, 12, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Monday", "Friday", "Wednesday"}
	if !reflect.DeepEqual(p.DaysOfWeek, want) {
		t.Errorf("DaysOfWeek = %v, want %v", p.DaysOfWeek, want)
	}
	if p.Interval != 1 {
		t.Errorf("Interval = %d, want default 1", p.Interval)
	}
	if p.DayOfMonth != 0 || p.Month != 0 {
		t.Errorf("weekly pattern kept day/month: %+v", p)
	}
}

func TestBuildPatternValidation(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		days     []string
		day      int
		month    int
		wantFail bool
	}{
		{"daily ignores extras", models.PatternDaily, []string{"Monday"}, 5, 5, false},
		{"weekly without days", models.PatternWeekly, nil, 0, 0, true},
		{"weekly unknown day", models.PatternWeekly, []string{"Funday"}, 0, 0, true},
		{"monthly ok", models.PatternAbsoluteMonthly, nil, 31, 0, false},
		{"monthly missing day", models.PatternAbsoluteMonthly, nil, 0, 0, true},
		{"monthly day 32", models.PatternAbsoluteMonthly, nil, 32, 0, true},
		{"yearly 31 february accepted", models.PatternAbsoluteYearly, nil, 31, 2, false},
		{"yearly missing month", models.PatternAbsoluteYearly, nil, 10, 0, true},
		{"yearly month 13", models.PatternAbsoluteYearly, nil, 10, 13, true},
		{"unsupported type", "relativeMonthly", nil, 1, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPattern(tt.typ, 1, tt.days, tt.day, tt.month)
			if tt.wantFail {
				var re *InvalidRecurrenceError
				if !errors.As(err, &re) {
					t.Fatalf("expected InvalidRecurrenceError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestBuildPatternYearlyFields(t *testing.T) {
	p, err := BuildPattern(models.PatternAbsoluteYearly, 2, []string{"Monday"}, 29, 12)
	if err != nil {
		t.Fatal(err)
	}
	want := models.RecurrencePattern{Type: models.PatternAbsoluteYearly, Interval: 2, DayOfMonth: 29, Month: 12}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("pattern = %+v, want %+v", p, want)
	}
}

func TestBuild(t *testing.T) {
	rec, err := Build(Params{
		Type:       models.PatternAbsoluteMonthly,
		Interval:   1,
		DayOfMonth: 15,
		StartDate:  "2025-01-01",
		EndDate:    "2025-12-31",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Range.Type != models.RangeEndDate || rec.Range.StartDate != "2025-01-01" || rec.Range.EndDate != "2025-12-31" {
		t.Errorf("range = %+v", rec.Range)
	}

	_, err = Build(Params{Type: models.PatternWeekly})
	if err == nil {
		t.Fatal("expected error for weekly without days")
	}
}

func TestBuildRangeDoesNotReorder(t *testing.T) {
	r := BuildRange("2026-01-01", "2025-01-01")
	if r.StartDate != "2026-01-01" || r.EndDate != "2025-01-01" {
		t.Errorf("range altered: %+v", r)
	}
}

func TestValidateTimeRange(t *testing.T) {
	if err := ValidateTimeRange("2025-06-01T10:00:00", "2025-06-01T11:00:00"); err != nil {
		t.Errorf("valid range rejected: %v", err)
	}

	err := ValidateTimeRange("2025-06-01T10:00:00", "2025-06-01T10:00:00")
	var tr *InvalidTimeRangeError
	if !errors.As(err, &tr) {
		t.Fatalf("expected InvalidTimeRangeError for empty range, got %v", err)
	}
	if !strings.Contains(err.Error(), "2025-06-01T10:00:00") {
		t.Errorf("error %q should mention the bounds", err)
	}

	err = ValidateTimeRange("yesterday", "2025-06-01T10:00:00")
	var fe *timeresolve.TimeFormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected TimeFormatError, got %v", err)
	}
}

func TestPreviewWeekly(t *testing.T) {
	rec, err := Build(Params{
		Type:       models.PatternWeekly,
		DaysOfWeek: []string{"monday", "wednesday"},
		StartDate:  "2025-06-02",
		EndDate:    "2025-06-11",
	})
	if err != nil {
		t.Fatal(err)
	}
	dtstart := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	got, err := Preview(rec, dtstart, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 4, 9, 11}
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences %v, want %d", len(got), got, len(want))
	}
	for i, d := range want {
		if got[i].Day() != d || got[i].Hour() != 9 {
			t.Errorf("occurrence %d = %v, want June %d 09:00", i, got[i], d)
		}
	}
}

func TestPreviewLimit(t *testing.T) {
	rec, err := Build(Params{Type: models.PatternDaily, Interval: 2, StartDate: "2025-01-01", EndDate: "2025-12-31"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Preview(rec, time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(got))
	}
	if got[2].Day() != 5 {
		t.Errorf("third occurrence = %v, want Jan 5", got[2])
	}
}

func TestToRRuleYearly(t *testing.T) {
	rec := models.PatternedRecurrence{
		Pattern: models.RecurrencePattern{Type: models.PatternAbsoluteYearly, Interval: 1, DayOfMonth: 29, Month: 12},
		Range:   BuildRange("2024-12-14", "2029-12-31"),
	}
	r, err := ToRRule(rec, time.Date(2024, 12, 14, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	s := r.String()
	for _, part := range []string{"FREQ=YEARLY", "BYMONTH=12", "BYMONTHDAY=29"} {
		if !strings.Contains(s, part) {
			t.Errorf("rule %q missing %s", s, part)
		}
	}
	if n := len(r.All()); n != 6 {
		t.Errorf("got %d occurrences, want 6", n)
	}
}
