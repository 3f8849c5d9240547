// Package normalize 把廠商 payload 中不一致的欄位命名對應到單一標準欄位。
// 聚合邏輯只透過這裡的 Field 與存取函式讀取 rawData，不直接碰原始 key。
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field 依序嘗試的別名；可使用 "team.id" 這類巢狀路徑
type Field []string

// Lookup 回傳第一個存在且非 null 的別名值
func Lookup(doc any, field Field) (any, bool) {
	m, ok := Map(doc)
	if !ok {
		return nil, false
	}
	for _, alias := range field {
		if v, ok := lookupPath(m, alias); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func lookupPath(m bson.M, path string) (any, bool) {
	if v, ok := m[path]; ok {
		return v, true
	}
	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		return nil, false
	}
	child, ok := Map(m[head])
	if !ok {
		return nil, false
	}
	return lookupPath(child, rest)
}

func Has(doc any, field Field) bool {
	_, ok := Lookup(doc, field)
	return ok
}

func String(doc any, field Field) (string, bool) {
	v, ok := Lookup(doc, field)
	if !ok {
		return "", false
	}
	return ToString(v)
}

// StringOr 取不到或為空字串時回傳 fallback
func StringOr(doc any, field Field, fallback string) string {
	if s, ok := String(doc, field); ok && s != "" {
		return s
	}
	return fallback
}

func Float(doc any, field Field) (float64, bool) {
	v, ok := Lookup(doc, field)
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

func Decimal(doc any, field Field) (decimal.Decimal, bool) {
	v, ok := Lookup(doc, field)
	if !ok {
		return decimal.Zero, false
	}
	return ToDecimal(v)
}

func Time(doc any, field Field) (time.Time, bool) {
	v, ok := Lookup(doc, field)
	if !ok {
		return time.Time{}, false
	}
	return ToTime(v)
}

func Slice(doc any, field Field) ([]any, bool) {
	v, ok := Lookup(doc, field)
	if !ok {
		return nil, false
	}
	return ToSlice(v)
}

// Map 接受 bson.M / bson.D / map[string]any
func Map(v any) (bson.M, bool) {
	switch x := v.(type) {
	case bson.M:
		return x, true
	case map[string]any:
		return bson.M(x), true
	case bson.D:
		m := make(bson.M, len(x))
		for _, e := range x {
			m[e.Key] = e.Value
		}
		return m, true
	case bson.Raw:
		var m bson.M
		if err := bson.Unmarshal(x, &m); err != nil {
			return nil, false
		}
		return m, true
	}
	return nil, false
}

func ToSlice(v any) ([]any, bool) {
	switch x := v.(type) {
	case bson.A:
		return []any(x), true
	case []any:
		return x, true
	case []bson.M:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out, true
	}
	return nil, false
}

// ToString 數字轉為不帶多餘小數的字串（12.0 → "12"）
func ToString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case primitive.ObjectID:
		return x.Hex(), true
	case primitive.Decimal128:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case nil:
		return "", false
	}
	return fmt.Sprint(v), true
}

func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	d, ok := ToDecimal(v)
	if !ok {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// ToDecimal 失敗時回傳 0, false
func ToDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(x), true
	case float32:
		return decimal.NewFromFloat32(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt32(x), true
	case int64:
		return decimal.NewFromInt(x), true
	case primitive.Decimal128:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case string:
		return parseNumber(x)
	}
	return decimal.Zero, false
}

// parseNumber 支援 "3,50"（逗號小數點）與 "1.234,50" / "1,234.50"（千分位）
func parseNumber(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ToTime 字串沒有時區時視為 UTC
func ToTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), true
	case primitive.DateTime:
		return x.Time().UTC(), true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// Key 比對姓名用：忽略大小寫與多餘空白
func Key(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// FullName 以空白串接非空的部分
func FullName(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
