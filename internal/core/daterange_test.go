package core

import (
	"reflect"
	"testing"
	"time"
)

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr bool
		days    int
	}{
		{name: "singleDay", from: "2024-10-24", to: "2024-10-24", days: 1},
		{name: "week", from: "2024-10-21", to: "2024-10-27", days: 7},
		{name: "acrossMonth", from: "2024-10-30", to: "2024-11-02", days: 4},
		{name: "reversed", from: "2024-10-25", to: "2024-10-24", wantErr: true},
		{name: "badFormat", from: "24-10-2024", to: "2024-10-24", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseDateRange(tt.from, tt.to)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDateRange(%q, %q) expected error", tt.from, tt.to)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDateRange() error = %v", err)
			}
			if got := len(r.Days()); got != tt.days {
				t.Errorf("Days() len = %d, want %d", got, tt.days)
			}
		})
	}
}

func TestDateRangeContains(t *testing.T) {
	r, _ := ParseDateRange("2024-10-01", "2024-10-31")
	if !r.Contains("2024-10-01") || !r.Contains("2024-10-31") {
		t.Error("Contains() should include both bounds")
	}
	if r.Contains("2024-11-01") || r.Contains("2024-09-30") {
		t.Error("Contains() should exclude dates outside the range")
	}
}

func TestCollapseDates(t *testing.T) {
	got := CollapseDates([]string{"2024-10-05", "2024-10-01", "2024-10-02", "2024-10-02", "garbage", "2024-10-03"})
	want := []string{"2024-10-01..2024-10-03", "2024-10-05"}

	var gotStr []string
	for _, r := range got {
		gotStr = append(gotStr, r.String())
	}
	if !reflect.DeepEqual(gotStr, want) {
		t.Errorf("CollapseDates() = %v, want %v", gotStr, want)
	}
}

func TestCollapseDatesEmpty(t *testing.T) {
	if got := CollapseDates(nil); len(got) != 0 {
		t.Errorf("CollapseDates(nil) = %v, want empty", got)
	}
}

func TestTruncateDayKeepsCalendarDate(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2024, 10, 24, 23, 30, 0, 0, loc)
	if got := TruncateDay(ts).Format(DateLayout); got != "2024-10-24" {
		t.Errorf("TruncateDay() = %s, want 2024-10-24", got)
	}
}

func TestAggregationKindSource(t *testing.T) {
	if KindSalesLineItems.Source() != SourceBork {
		t.Errorf("sales source = %s, want bork", KindSalesLineItems.Source())
	}
	if KindLaborHours.Source() != SourceEitje {
		t.Errorf("labor source = %s, want eitje", KindLaborHours.Source())
	}
}
