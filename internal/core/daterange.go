package core

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout 原始資料與聚合資料的 date 欄位格式
const DateLayout = "2006-01-02"

// DateRange 以日曆日表示的閉區間 [From, To]
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// TruncateDay 取日曆日（UTC 午夜），忽略時區位移
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func NewDateRange(from, to time.Time) (DateRange, error) {
	from, to = TruncateDay(from), TruncateDay(to)
	if to.Before(from) {
		return DateRange{}, fmt.Errorf("invalid date range: %s is before %s", to.Format(DateLayout), from.Format(DateLayout))
	}
	return DateRange{From: from, To: to}, nil
}

func ParseDateRange(from, to string) (DateRange, error) {
	fromDate, err := time.Parse(DateLayout, from)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse from date %q: %w", from, err)
	}
	toDate, err := time.Parse(DateLayout, to)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse to date %q: %w", to, err)
	}
	return NewDateRange(fromDate, toDate)
}

func SingleDay(day time.Time) DateRange {
	day = TruncateDay(day)
	return DateRange{From: day, To: day}
}

func (r DateRange) FromKey() string { return r.From.Format(DateLayout) }
func (r DateRange) ToKey() string   { return r.To.Format(DateLayout) }

// Days 依序列出區間內每一天的 date key
func (r DateRange) Days() []string {
	var days []string
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DateLayout))
	}
	return days
}

func (r DateRange) Contains(date string) bool {
	return date >= r.FromKey() && date <= r.ToKey()
}

func (r DateRange) String() string {
	if r.From.Equal(r.To) {
		return r.FromKey()
	}
	return r.FromKey() + ".." + r.ToKey()
}

// CollapseDates 把離散的 date key 合併成連續區間；無法解析的 key 會被略過
func CollapseDates(dates []string) []DateRange {
	parsed := make([]time.Time, 0, len(dates))
	seen := make(map[string]struct{}, len(dates))
	for _, raw := range dates {
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		day, err := time.Parse(DateLayout, raw)
		if err != nil {
			continue
		}
		parsed = append(parsed, day)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Before(parsed[j]) })

	var ranges []DateRange
	for _, day := range parsed {
		if n := len(ranges); n > 0 && ranges[n-1].To.AddDate(0, 0, 1).Equal(day) {
			ranges[n-1].To = day
			continue
		}
		ranges = append(ranges, SingleDay(day))
	}
	return ranges
}
