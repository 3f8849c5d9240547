package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLookupAliases(t *testing.T) {
	tests := []struct {
		name string
		doc  any
		want float64
		ok   bool
	}{
		{name: "Qty", doc: bson.M{"Qty": 2}, want: 2, ok: true},
		{name: "lowercase", doc: bson.M{"qty": int32(3)}, want: 3, ok: true},
		{name: "Quantity as string", doc: bson.M{"Quantity": "1,5"}, want: 1.5, ok: true},
		{name: "bson.D", doc: bson.D{{Key: "quantity", Value: int64(-1)}}, want: -1, ok: true},
		{name: "null skipped", doc: bson.M{"Qty": nil, "Amount": 4.0}, want: 4, ok: true},
		{name: "missing", doc: bson.M{"Price": 1}, want: 0, ok: false},
		{name: "not a document", doc: "x", want: 0, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Float(tt.doc, Quantity)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("got (%v, %v) want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNestedPath(t *testing.T) {
	doc := bson.M{"team": bson.D{{Key: "id", Value: int32(7)}, {Key: "name", Value: "Bar"}}}
	if id, _ := String(doc, ShiftTeamID); id != "7" {
		t.Fatalf("team id: got %q want 7", id)
	}
	if name, _ := String(doc, ShiftTeamName); name != "Bar" {
		t.Fatalf("team name: got %q want Bar", name)
	}
}

func TestToDecimal(t *testing.T) {
	d128, err := primitive.ParseDecimal128("12.34")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{name: "float", in: 6.0, want: "6", ok: true},
		{name: "decimal128", in: d128, want: "12.34", ok: true},
		{name: "comma decimal", in: "3,50", want: "3.5", ok: true},
		{name: "european thousands", in: "1.234,50", want: "1234.5", ok: true},
		{name: "us thousands", in: "1,234.50", want: "1234.5", ok: true},
		{name: "currency sign", in: "€ 2.10", want: "2.1", ok: true},
		{name: "garbage", in: "n/a", want: "0", ok: false},
		{name: "bool", in: true, want: "0", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToDecimal(tt.in)
			if ok != tt.ok || !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("got (%s, %v) want (%s, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestToTime(t *testing.T) {
	want := time.Date(2024, 10, 24, 9, 30, 0, 0, time.UTC)
	inputs := []any{
		want,
		primitive.NewDateTimeFromTime(want),
		"2024-10-24T09:30:00Z",
		"2024-10-24T11:30:00+02:00",
		"2024-10-24 09:30:00",
	}
	for _, in := range inputs {
		got, ok := ToTime(in)
		if !ok || !got.Equal(want) {
			t.Fatalf("ToTime(%v) = %v, %v want %v", in, got, ok, want)
		}
	}
	if _, ok := ToTime(12); ok {
		t.Fatal("integers are not timestamps")
	}
}

func TestToString(t *testing.T) {
	if s, _ := ToString(12.0); s != "12" {
		t.Fatalf("got %q want 12", s)
	}
	if s, _ := ToString(int64(42)); s != "42" {
		t.Fatalf("got %q want 42", s)
	}
	if s, _ := ToString("  Anna "); s != "Anna" {
		t.Fatalf("got %q want Anna", s)
	}
}

func TestKey(t *testing.T) {
	if Key("  Anna   de  Vries ") != Key("anna de vries") {
		t.Fatal("names should match ignoring case and spacing")
	}
	if FullName("Anna", "", " de Vries ") != "Anna de Vries" {
		t.Fatalf("got %q", FullName("Anna", "", " de Vries "))
	}
}
