package identity

import (
	"fmt"
	"testing"
	"time"

	"opsboard/internal/database/mongodb/model"

	"go.mongodb.org/mongo-driver/bson"
)

var now = time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)

func profile(id, eitjeID string, created time.Time) model.WorkerProfile {
	return model.WorkerProfile{ID: id, EitjeUserID: eitjeID, LocationID: "L1", CreatedAt: created}
}

func shift(sourceID, date string, userID, teamID any) model.RawRecord {
	return model.RawRecord{
		Source: "eitje", SourceID: sourceID, LocationID: "L1", Date: date,
		RawData: bson.M{"user_id": userID, "team_id": teamID, "team_name": fmt.Sprintf("team-%v", teamID), "hours": 4},
	}
}

func TestDedupTieBreak(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		profiles []model.WorkerProfile
		wantKept string
	}{
		{
			name:     "earliest createdAt wins regardless of input order",
			profiles: []model.WorkerProfile{profile("p2", "E1", t0.Add(time.Hour)), profile("p1", "E1", t0)},
			wantKept: "p1",
		},
		{
			name:     "same createdAt falls back to id",
			profiles: []model.WorkerProfile{profile("b", "E1", t0), profile("a", "E1", t0), profile("c", "E1", t0)},
			wantKept: "a",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, dups := Dedup(tt.profiles)
			if len(kept) != 1 || kept[0].ID != tt.wantKept {
				t.Fatalf("kept %+v want %s", kept, tt.wantKept)
			}
			if len(dups) != 1 || dups[0].KeptProfileID != tt.wantKept || len(dups[0].DroppedProfileIDs) != len(tt.profiles)-1 {
				t.Fatalf("duplicates %+v", dups)
			}
		})
	}
}

func TestNoTwoProfilesShareEitjeUserID(t *testing.T) {
	var profiles []model.WorkerProfile
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		profiles = append(profiles, profile(fmt.Sprintf("p%02d", i), fmt.Sprintf("E%d", i%7), t0.Add(time.Duration(30-i)*time.Minute)))
	}
	profiles = append(profiles, profile("blank1", "", t0), profile("blank2", "", t0))

	out := Reconcile(Input{WorkerProfiles: profiles, Now: now})
	seen := map[string]bool{}
	for _, p := range out.Profiles {
		if p.EitjeUserID == nil {
			continue
		}
		if seen[*p.EitjeUserID] {
			t.Fatalf("eitjeUserId %s appears twice", *p.EitjeUserID)
		}
		seen[*p.EitjeUserID] = true
	}
	if len(out.Profiles) != 9 {
		t.Fatalf("got %d profiles want 7 unique + 2 without eitje id", len(out.Profiles))
	}
	if len(out.Duplicates) != 7 {
		t.Fatalf("got %d duplicate groups want 7", len(out.Duplicates))
	}
}

func TestNamesAndWaiterMatching(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Input{
		UnifiedUsers: []model.UnifiedUser{
			{ID: "u1", FirstName: "Anna", LastName: "de Vries", SystemMappings: []model.SystemMapping{{System: "eitje", ExternalID: "E1"}}},
			{ID: "u2", Name: "Bram Jansen", SystemMappings: []model.SystemMapping{{System: "eitje", ExternalID: "E2"}, {System: "bork", ExternalID: "BRAM J"}}},
		},
		EitjeUsers: []model.EitjeUser{
			{ID: "E1", FirstName: "Ann", LastName: "Vries"},
			{ID: "E3", FirstName: "Chris", LastName: "Peters"},
		},
		BorkWaiterNames: []string{"ANNA DE VRIES", "Chris  Peters", "Bram Jansen"},
		WorkerProfiles: []model.WorkerProfile{
			profile("p1", "E1", t0),
			profile("p2", "E2", t0),
			profile("p3", "E3", t0),
			profile("p4", "E4", t0),
		},
		Now: now,
	}
	out := Reconcile(in)
	byProfile := map[string]model.UnifiedWorkerProfile{}
	for _, p := range out.Profiles {
		byProfile[p.ProfileID] = p
	}

	tests := []struct {
		profileID  string
		wantName   string
		wantWaiter string
		wantUser   string
	}{
		{profileID: "p1", wantName: "Anna de Vries", wantWaiter: "ANNA DE VRIES", wantUser: "u1"},
		{profileID: "p2", wantName: "Bram Jansen", wantWaiter: "BRAM J", wantUser: "u2"},
		{profileID: "p3", wantName: "Chris Peters", wantWaiter: "Chris  Peters", wantUser: ""},
		{profileID: "p4", wantName: "", wantWaiter: "", wantUser: ""},
	}
	for _, tt := range tests {
		t.Run(tt.profileID, func(t *testing.T) {
			p := byProfile[tt.profileID]
			if p.Name != tt.wantName {
				t.Fatalf("name: got %q want %q", p.Name, tt.wantName)
			}
			if got := deref(p.BorkWaiterName); got != tt.wantWaiter {
				t.Fatalf("waiter: got %q want %q", got, tt.wantWaiter)
			}
			if got := deref(p.UnifiedUserID); got != tt.wantUser {
				t.Fatalf("unified user: got %q want %q", got, tt.wantUser)
			}
		})
	}
	if len(out.Warnings) != 1 {
		t.Fatalf("expected one missing-name warning, got %v", out.Warnings)
	}
}

func TestTeamsFromShifts(t *testing.T) {
	in := Input{
		WorkerProfiles: []model.WorkerProfile{profile("p1", "1", now)},
		Shifts: []model.RawRecord{
			shift("s1", "2024-10-20", 1, 7),
			shift("s2", "2024-10-24", 1, 7),
			shift("s2", "2024-10-24", 1, 7),
			shift("s3", "2024-03-01", 1, 8),
			shift("s4", "2024-10-30", 99, 7),
			shift("s5", "2024-10-31", 99, 7),
		},
		Now: now,
	}
	out := Reconcile(in)
	if len(out.Profiles) != 1 {
		t.Fatalf("got %d profiles", len(out.Profiles))
	}
	teams := out.Profiles[0].Teams
	if len(teams) != 2 {
		t.Fatalf("got %d teams want 2", len(teams))
	}
	bar := teams[0]
	if bar.TeamID != "7" || bar.ShiftCount != 2 || !bar.IsActive || bar.TeamName != "team-7" {
		t.Fatalf("team 7: %+v", bar)
	}
	if bar.FirstShift.Format("2006-01-02") != "2024-10-20" || bar.LastShift.Format("2006-01-02") != "2024-10-24" {
		t.Fatalf("team 7 range: %s..%s", bar.FirstShift, bar.LastShift)
	}
	if teams[1].TeamID != "8" || teams[1].IsActive {
		t.Fatalf("team 8 should be inactive after 90 days: %+v", teams[1])
	}
	if !out.Profiles[0].IsActive {
		t.Fatal("profile with an active team is active")
	}

	if len(out.UnmatchedUsers) != 1 {
		t.Fatalf("got %d unmatched users want 1", len(out.UnmatchedUsers))
	}
	u := out.UnmatchedUsers[0]
	if u.EitjeUserID != "99" || u.ShiftCount != 2 || u.LastShift.Format("2006-01-02") != "2024-10-31" {
		t.Fatalf("unmatched: %+v", u)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
