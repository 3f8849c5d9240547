package labor

import (
	"testing"

	"opsboard/internal/database/mongodb/model"
	"opsboard/internal/pkg/money"

	"go.mongodb.org/mongo-driver/bson"
)

func shift(sourceID, date string, raw bson.M) model.RawRecord {
	return model.RawRecord{Source: "eitje", SourceID: sourceID, LocationID: "L1", Date: date, RawData: raw}
}

func TestDuplicateShiftScenario(t *testing.T) {
	out := Aggregate([]model.RawRecord{
		shift("s1", "2024-10-24", bson.M{"user_id": 1, "team_id": 7, "hours": 8.0}),
		shift("s2", "2024-10-24", bson.M{"user_id": 1, "team_id": 7, "hours": 0}),
	})
	if len(out.Rows) != 1 {
		t.Fatalf("got %d rows want 1", len(out.Rows))
	}
	row := out.Rows[0]
	if row.ShiftCount != 2 {
		t.Fatalf("shiftCount: got %d want 2", row.ShiftCount)
	}
	if row.EmployeeCount != 1 {
		t.Fatalf("employeeCount: got %d want 1", row.EmployeeCount)
	}
	if row.TotalHoursWorked != 8 || row.AvgHoursPerEmployee != 8 {
		t.Fatalf("hours: got total %v avg %v", row.TotalHoursWorked, row.AvgHoursPerEmployee)
	}
	if row.UserID != "1" || row.TeamID != "7" || row.Date != "2024-10-24" || row.LocationID != "L1" {
		t.Fatalf("unexpected key %+v", row)
	}
}

func TestExactReingestionCountedOnce(t *testing.T) {
	raw := bson.M{"user_id": 1, "team_id": 7, "hours": 4.0}
	out := Aggregate([]model.RawRecord{shift("s1", "2024-10-24", raw), shift("s1", "2024-10-24", raw)})
	if out.Duplicates != 1 {
		t.Fatalf("duplicates: got %d want 1", out.Duplicates)
	}
	if out.Rows[0].ShiftCount != 1 || out.Rows[0].TotalHoursWorked != 4 {
		t.Fatalf("got %+v", out.Rows[0])
	}
}

func TestHoursAndCost(t *testing.T) {
	tests := []struct {
		name      string
		raw       bson.M
		wantHours float64
		wantCost  string
		wantRate  string
		warn      bool
	}{
		{name: "explicit hours and cost", raw: bson.M{"hours": 6.5, "wage_cost": "97,50"}, wantHours: 6.5, wantCost: "97.5", wantRate: "15"},
		{name: "start end minus break", raw: bson.M{"start": "2024-10-24T09:00:00Z", "end": "2024-10-24T17:30:00Z", "break_minutes": 30, "hourly_rate": 12}, wantHours: 8, wantCost: "96", wantRate: "12"},
		{name: "cost alias", raw: bson.M{"hours": 2, "cost": 30}, wantHours: 2, wantCost: "30", wantRate: "15"},
		{name: "no hours at all", raw: bson.M{"hourly_rate": 12}, wantHours: 0, wantCost: "0", wantRate: "0"},
		{name: "end before start", raw: bson.M{"start": "2024-10-24T17:00:00Z", "end": "2024-10-24T09:00:00Z"}, wantHours: 0, wantCost: "0", wantRate: "0", warn: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.raw["user_id"] = "u1"
			out := Aggregate([]model.RawRecord{shift("s", "2024-10-24", tt.raw)})
			if len(out.Rows) != 1 {
				t.Fatalf("got %d rows", len(out.Rows))
			}
			row := out.Rows[0]
			if row.TotalHoursWorked != tt.wantHours {
				t.Fatalf("hours: got %v want %v", row.TotalHoursWorked, tt.wantHours)
			}
			if !row.TotalWageCost.Equal(money.MustFromString(tt.wantCost)) {
				t.Fatalf("cost: got %s want %s", row.TotalWageCost, tt.wantCost)
			}
			if !row.AvgWagePerHour.Equal(money.MustFromString(tt.wantRate)) {
				t.Fatalf("wage per hour: got %s want %s", row.AvgWagePerHour, tt.wantRate)
			}
			if tt.warn != (len(out.Warnings) > 0) {
				t.Fatalf("warnings: %v", out.Warnings)
			}
		})
	}
}

func TestGroupingAndFallbacks(t *testing.T) {
	out := Aggregate([]model.RawRecord{
		shift("a", "2024-10-24", bson.M{"user_id": 1, "team": bson.M{"id": 7, "name": "Bar"}, "hours": 3}),
		shift("b", "2024-10-24", bson.M{"user_id": 2, "team_id": 7, "hours": 5}),
		shift("c", "2024-10-25", bson.M{"user_id": 1, "team_id": 7, "hours": 1}),
		{Source: "eitje", SourceID: "d", RawData: bson.M{"environment_id": "ENV9", "date": "2024-10-25", "user_id": 3, "hours": 2}},
		shift("e", "2024-10-25", nil),
		{Source: "eitje", SourceID: "f", LocationID: "L1", RawData: bson.M{"hours": 2}},
	})
	if len(out.Rows) != 4 {
		t.Fatalf("got %d rows want 4: %+v", len(out.Rows), out.Rows)
	}
	if out.Skipped != 2 {
		t.Fatalf("skipped: got %d want 2", out.Skipped)
	}
	first := out.Rows[0]
	if first.Date != "2024-10-24" || first.UserID != "1" || first.TeamName != "Bar" {
		t.Fatalf("rows should be sorted by key, got %+v", first)
	}
	env := out.Rows[2]
	if env.LocationID != "ENV9" {
		t.Fatalf("environment fallback: got %+v", env)
	}
}

func TestEmptyUserHasNoEmployees(t *testing.T) {
	out := Aggregate([]model.RawRecord{shift("open", "2024-10-24", bson.M{"team_id": 7, "hours": 4})})
	row := out.Rows[0]
	if row.EmployeeCount != 0 || row.AvgHoursPerEmployee != 0 || row.ShiftCount != 1 {
		t.Fatalf("got %+v", row)
	}
}
