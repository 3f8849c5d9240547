// Package labor 依 (date, location, team, user) 彙總 Eitje 班表的工時與薪資成本。
package labor

import (
	"fmt"
	"math"
	"sort"

	"opsboard/internal/aggregation/normalize"
	"opsboard/internal/core"
	"opsboard/internal/database/mongodb/model"
	"opsboard/internal/pkg/money"

	"github.com/shopspring/decimal"
)

type Output struct {
	Rows     []model.LaborAggregated
	Warnings []string
	Skipped  int
	// Duplicates 同一 (source, sourceId) 重複匯入而被忽略的列
	Duplicates int
	Shifts     int
}

type groupKey struct {
	date       string
	locationID string
	teamID     string
	userID     string
}

type group struct {
	key      groupKey
	teamName string
	hours    float64
	cost     decimal.Decimal
	users    map[string]struct{}
	shifts   int
}

// Shift 單筆班表正規化後的欄位
type Shift struct {
	Date       string
	LocationID string
	TeamID     string
	TeamName   string
	UserID     string
	Hours      float64
	WageCost   decimal.Decimal
}

// Aggregate 相同人員的不同班次都計入 shiftCount；employeeCount 為不重複 userId 數
func Aggregate(shifts []model.RawRecord) Output {
	var out Output
	groups := make(map[groupKey]*group)
	seen := make(map[string]struct{}, len(shifts))

	for _, record := range shifts {
		if record.SourceID != "" {
			sourceKey := record.Source + "\x00" + record.SourceID
			if _, dup := seen[sourceKey]; dup {
				out.Duplicates++
				continue
			}
			seen[sourceKey] = struct{}{}
		}

		shift, warning, ok := Normalize(record)
		if warning != "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("shift %s: %s", record.SourceID, warning))
		}
		if !ok {
			out.Skipped++
			continue
		}
		out.Shifts++

		key := groupKey{date: shift.Date, locationID: shift.LocationID, teamID: shift.TeamID, userID: shift.UserID}
		g, exists := groups[key]
		if !exists {
			g = &group{key: key, users: make(map[string]struct{}), cost: decimal.Zero}
			groups[key] = g
		}
		if g.teamName == "" {
			g.teamName = shift.TeamName
		}
		g.hours += shift.Hours
		g.cost = g.cost.Add(shift.WageCost)
		g.shifts++
		if shift.UserID != "" {
			g.users[shift.UserID] = struct{}{}
		}
	}

	out.Rows = make([]model.LaborAggregated, 0, len(groups))
	for _, g := range groups {
		out.Rows = append(out.Rows, g.row())
	}
	sort.Slice(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i], out.Rows[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		if a.TeamID != b.TeamID {
			return a.TeamID < b.TeamID
		}
		return a.UserID < b.UserID
	})
	return out
}

func (g *group) row() model.LaborAggregated {
	employees := len(g.users)
	hours := roundHours(g.hours)
	row := model.LaborAggregated{
		Date:             g.key.date,
		LocationID:       g.key.locationID,
		TeamID:           g.key.teamID,
		UserID:           g.key.userID,
		TeamName:         g.teamName,
		TotalHoursWorked: hours,
		TotalWageCost:    money.New(g.cost).Round(),
		EmployeeCount:    employees,
		ShiftCount:       g.shifts,
		AvgWagePerHour:   money.Zero(),
	}
	if employees > 0 {
		row.AvgHoursPerEmployee = roundHours(g.hours / float64(employees))
	}
	if g.hours > 0 {
		row.AvgWagePerHour = money.New(g.cost).DivFloat(g.hours).Round()
	}
	return row
}

// Normalize 回傳 ok=false 表示整筆無法使用；warning 可能在 ok=true 時也有值
func Normalize(record model.RawRecord) (shift Shift, warning string, ok bool) {
	raw := record.RawData
	if raw == nil {
		return Shift{}, "missing rawData", false
	}

	shift.Date = record.Date
	if shift.Date == "" {
		if t, found := normalize.Time(raw, normalize.ShiftDate); found {
			shift.Date = t.Format(core.DateLayout)
		} else if t, found := normalize.Time(raw, normalize.ShiftStart); found {
			shift.Date = t.Format(core.DateLayout)
		}
	}
	if shift.Date == "" {
		return Shift{}, "no shift date", false
	}

	shift.LocationID = record.LocationID
	if shift.LocationID == "" {
		shift.LocationID = normalize.StringOr(raw, normalize.ShiftEnvironmentID, "")
	}
	shift.TeamID = normalize.StringOr(raw, normalize.ShiftTeamID, "")
	shift.TeamName = normalize.StringOr(raw, normalize.ShiftTeamName, "")
	shift.UserID = normalize.StringOr(raw, normalize.ShiftUserID, "")

	if hours, found := normalize.Float(raw, normalize.ShiftHours); found {
		shift.Hours = hours
	} else {
		start, hasStart := normalize.Time(raw, normalize.ShiftStart)
		end, hasEnd := normalize.Time(raw, normalize.ShiftEnd)
		if hasStart && hasEnd {
			breakMinutes, _ := normalize.Float(raw, normalize.ShiftBreakMinutes)
			worked := end.Sub(start).Hours() - breakMinutes/60
			if worked < 0 {
				warning = fmt.Sprintf("end %s before start %s, hours set to 0", end.Format("15:04"), start.Format("15:04"))
				worked = 0
			}
			shift.Hours = worked
		}
	}

	if cost, found := normalize.Decimal(raw, normalize.ShiftWageCost); found {
		shift.WageCost = cost
	} else if rate, found := normalize.Decimal(raw, normalize.ShiftHourlyRate); found {
		shift.WageCost = rate.Mul(decimal.NewFromFloat(shift.Hours))
	} else {
		shift.WageCost = decimal.Zero
	}
	return shift, warning, true
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
