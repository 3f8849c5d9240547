// Package identity 合併 unified 身分登錄、Eitje 使用者與 Bork 服務生名稱，
// 產生每位員工一列的 UnifiedWorkerProfile。
package identity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"opsboard/internal/aggregation/labor"
	"opsboard/internal/aggregation/normalize"
	"opsboard/internal/core"
	"opsboard/internal/database/mongodb/model"
)

// ActivityWindow 最後一次排班在此期間內的 team 視為在職
const ActivityWindow = 90 * 24 * time.Hour

const (
	SystemEitje = "eitje"
	SystemBork  = "bork"
)

type Input struct {
	UnifiedUsers    []model.UnifiedUser
	EitjeUsers      []model.EitjeUser
	BorkWaiterNames []string
	WorkerProfiles  []model.WorkerProfile
	Shifts          []model.RawRecord
	Now             time.Time
}

// DuplicateReport 同一 eitjeUserId 對到多筆主檔；Kept 依 (createdAt, _id) 最早者
type DuplicateReport struct {
	EitjeUserID       string   `json:"eitjeUserId"`
	KeptProfileID     string   `json:"keptProfileId"`
	DroppedProfileIDs []string `json:"droppedProfileIds"`
}

// UnmatchedUser 班表中有、主檔中沒有的 Eitje 使用者
type UnmatchedUser struct {
	EitjeUserID string    `json:"eitjeUserId"`
	LocationID  string    `json:"locationId"`
	ShiftCount  int       `json:"shiftCount"`
	LastShift   time.Time `json:"lastShift"`
}

type Output struct {
	Profiles       []model.UnifiedWorkerProfile
	Duplicates     []DuplicateReport
	UnmatchedUsers []UnmatchedUser
	Warnings       []string
}

// Reconcile 純函式；不讀寫 store
func Reconcile(in Input) Output {
	var out Output

	kept, duplicates := Dedup(in.WorkerProfiles)
	out.Duplicates = duplicates
	for _, d := range duplicates {
		out.Warnings = append(out.Warnings, fmt.Sprintf("eitjeUserId %s: %d duplicate profiles dropped, kept %s", d.EitjeUserID, len(d.DroppedProfileIDs), d.KeptProfileID))
	}

	ids := newLookup(in.UnifiedUsers, in.EitjeUsers, in.BorkWaiterNames)
	teams, shiftWarnings := teamsByUser(in.Shifts, in.Now)
	out.Warnings = append(out.Warnings, shiftWarnings...)

	known := make(map[string]struct{}, len(kept))
	for _, profile := range kept {
		if profile.EitjeUserID != "" {
			known[profile.EitjeUserID] = struct{}{}
		}
		unified := ids.profile(profile, teams[profile.EitjeUserID], in.Now)
		if unified.Name == "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("profile %s: no name in unified registry or eitje users", profile.ID))
		}
		out.Profiles = append(out.Profiles, unified)
	}

	for userID, memberships := range teams {
		if _, ok := known[userID]; ok || userID == "" {
			continue
		}
		unmatched := UnmatchedUser{EitjeUserID: userID}
		for _, m := range memberships {
			unmatched.ShiftCount += m.ShiftCount
			if m.LastShift.After(unmatched.LastShift) {
				unmatched.LastShift = m.LastShift
				unmatched.LocationID = m.locationID
			}
		}
		out.UnmatchedUsers = append(out.UnmatchedUsers, unmatched)
	}
	sort.Slice(out.UnmatchedUsers, func(i, j int) bool {
		return out.UnmatchedUsers[i].EitjeUserID < out.UnmatchedUsers[j].EitjeUserID
	})
	for _, u := range out.UnmatchedUsers {
		out.Warnings = append(out.Warnings, fmt.Sprintf("eitje user %s: %d shifts but no worker profile", u.EitjeUserID, u.ShiftCount))
	}
	return out
}

// Dedup 依 (createdAt asc, _id asc) 穩定排序後，每個 eitjeUserId 保留第一筆。
// 沒有 eitjeUserId 的主檔全部保留
func Dedup(profiles []model.WorkerProfile) ([]model.WorkerProfile, []DuplicateReport) {
	ordered := make([]model.WorkerProfile, len(profiles))
	copy(ordered, profiles)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	keptIndex := make(map[string]int)
	var kept []model.WorkerProfile
	reports := make(map[string]*DuplicateReport)
	for _, profile := range ordered {
		if profile.EitjeUserID == "" {
			kept = append(kept, profile)
			continue
		}
		idx, seen := keptIndex[profile.EitjeUserID]
		if !seen {
			keptIndex[profile.EitjeUserID] = len(kept)
			kept = append(kept, profile)
			continue
		}
		report, ok := reports[profile.EitjeUserID]
		if !ok {
			report = &DuplicateReport{EitjeUserID: profile.EitjeUserID, KeptProfileID: kept[idx].ID}
			reports[profile.EitjeUserID] = report
		}
		report.DroppedProfileIDs = append(report.DroppedProfileIDs, profile.ID)
	}

	duplicates := make([]DuplicateReport, 0, len(reports))
	for _, r := range reports {
		duplicates = append(duplicates, *r)
	}
	sort.Slice(duplicates, func(i, j int) bool { return duplicates[i].EitjeUserID < duplicates[j].EitjeUserID })
	return kept, duplicates
}

type membership struct {
	model.TeamMembership
	locationID string
}

// teamsByUser 以班表為準推導每位使用者的 team 歸屬
func teamsByUser(shifts []model.RawRecord, now time.Time) (map[string][]membership, []string) {
	type teamKey struct{ userID, teamID string }
	acc := make(map[teamKey]*membership)
	seen := make(map[string]struct{}, len(shifts))
	var warnings []string

	for _, record := range shifts {
		if record.SourceID != "" {
			if _, dup := seen[record.SourceID]; dup {
				continue
			}
			seen[record.SourceID] = struct{}{}
		}
		shift, _, ok := labor.Normalize(record)
		if !ok || shift.UserID == "" {
			continue
		}
		day, err := time.Parse(core.DateLayout, shift.Date)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("shift %s: unparseable date %q", record.SourceID, shift.Date))
			continue
		}
		key := teamKey{shift.UserID, shift.TeamID}
		m, exists := acc[key]
		if !exists {
			m = &membership{TeamMembership: model.TeamMembership{TeamID: shift.TeamID, FirstShift: day, LastShift: day}}
			acc[key] = m
		}
		if m.TeamName == "" {
			m.TeamName = shift.TeamName
		}
		m.ShiftCount++
		if day.Before(m.FirstShift) {
			m.FirstShift = day
		}
		if !day.Before(m.LastShift) {
			m.LastShift = day
			m.locationID = shift.LocationID
		}
	}

	out := make(map[string][]membership)
	for key, m := range acc {
		m.IsActive = now.Sub(m.LastShift) <= ActivityWindow
		out[key.userID] = append(out[key.userID], *m)
	}
	for userID := range out {
		teams := out[userID]
		sort.Slice(teams, func(i, j int) bool { return teams[i].TeamID < teams[j].TeamID })
	}
	return out, warnings
}

// lookup 一次建立、唯讀的對照表
type lookup struct {
	unifiedByID    map[string]model.UnifiedUser
	unifiedByEitje map[string]model.UnifiedUser
	eitjeByID      map[string]model.EitjeUser
	waiterByName   map[string]string
}

func newLookup(unified []model.UnifiedUser, eitje []model.EitjeUser, waiterNames []string) *lookup {
	l := &lookup{
		unifiedByID:    make(map[string]model.UnifiedUser, len(unified)),
		unifiedByEitje: make(map[string]model.UnifiedUser, len(unified)),
		eitjeByID:      make(map[string]model.EitjeUser, len(eitje)),
		waiterByName:   make(map[string]string, len(waiterNames)),
	}
	for _, u := range unified {
		if _, dup := l.unifiedByID[u.ID]; !dup && u.ID != "" {
			l.unifiedByID[u.ID] = u
		}
		for _, mapping := range u.SystemMappings {
			if strings.EqualFold(mapping.System, SystemEitje) && mapping.ExternalID != "" {
				if _, dup := l.unifiedByEitje[mapping.ExternalID]; !dup {
					l.unifiedByEitje[mapping.ExternalID] = u
				}
			}
		}
	}
	for _, u := range eitje {
		if _, dup := l.eitjeByID[u.ID]; !dup && u.ID != "" {
			l.eitjeByID[u.ID] = u
		}
	}
	for _, name := range waiterNames {
		key := normalize.Key(name)
		if _, dup := l.waiterByName[key]; !dup && key != "" {
			l.waiterByName[key] = name
		}
	}
	return l
}

func (l *lookup) unifiedFor(profile model.WorkerProfile) (model.UnifiedUser, bool) {
	if profile.UnifiedUserID != "" {
		if u, ok := l.unifiedByID[profile.UnifiedUserID]; ok {
			return u, true
		}
	}
	if profile.EitjeUserID != "" {
		if u, ok := l.unifiedByEitje[profile.EitjeUserID]; ok {
			return u, true
		}
	}
	return model.UnifiedUser{}, false
}

func (l *lookup) profile(profile model.WorkerProfile, teams []membership, now time.Time) model.UnifiedWorkerProfile {
	result := model.UnifiedWorkerProfile{
		ProfileID:  profile.ID,
		LocationID: profile.LocationID,
		Teams:      make([]model.TeamMembership, 0, len(teams)),
		UpdatedAt:  now,
	}
	if profile.EitjeUserID != "" {
		result.EitjeUserID = ptr(profile.EitjeUserID)
	}
	if profile.UnifiedUserID != "" {
		result.UnifiedUserID = ptr(profile.UnifiedUserID)
	}

	unified, hasUnified := l.unifiedFor(profile)
	if hasUnified {
		result.UnifiedUserID = ptr(unified.ID)
		result.FirstName, result.LastName = unified.FirstName, unified.LastName
		result.Name = strings.TrimSpace(unified.Name)
		if result.Name == "" {
			result.Name = normalize.FullName(unified.FirstName, unified.LastName)
		}
	}
	if result.Name == "" {
		if eitjeUser, ok := l.eitjeByID[profile.EitjeUserID]; ok {
			result.FirstName, result.LastName = eitjeUser.FirstName, eitjeUser.LastName
			result.Name = normalize.FullName(eitjeUser.FirstName, eitjeUser.LastName)
		}
	}

	if hasUnified {
		for _, mapping := range unified.SystemMappings {
			if strings.EqualFold(mapping.System, SystemBork) && mapping.ExternalID != "" {
				result.BorkWaiterName = ptr(mapping.ExternalID)
				break
			}
		}
	}
	if result.BorkWaiterName == nil && result.Name != "" {
		if waiter, ok := l.waiterByName[normalize.Key(result.Name)]; ok {
			result.BorkWaiterName = ptr(waiter)
		}
	}

	for _, m := range teams {
		result.Teams = append(result.Teams, m.TeamMembership)
		result.IsActive = result.IsActive || m.IsActive
	}
	return result
}

func ptr(s string) *string {
	return &s
}
