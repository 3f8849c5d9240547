package money

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestAmountArithmetic(t *testing.T) {
	price := MustFromString("3.10")
	total := price.MulFloat(3)
	if !total.Equal(MustFromString("9.30")) {
		t.Errorf("MulFloat() = %s, want 9.30", total)
	}
	if got := total.Add(MustFromString("-1.30")); !got.Equal(MustFromString("8")) {
		t.Errorf("Add() = %s, want 8.00", got)
	}
	if got := total.DivFloat(0); !got.IsZero() {
		t.Errorf("DivFloat(0) = %s, want 0", got)
	}
	if got := MustFromString("10").DivFloat(3).Round(); got.String() != "3.33" {
		t.Errorf("DivFloat(3).Round() = %s, want 3.33", got)
	}
}

func TestAmountStoredAsDecimal128(t *testing.T) {
	type row struct {
		Total Amount `bson:"total"`
	}
	raw, err := bson.Marshal(row{Total: MustFromString("12.345")})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if got := bson.Raw(raw).Lookup("total").Type; got != bson.TypeDecimal128 {
		t.Fatalf("stored type = %s, want decimal128", got)
	}

	var decoded row
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !decoded.Total.Equal(MustFromString("12.345")) {
		t.Errorf("decoded total = %s, want 12.345", decoded.Total.Decimal.String())
	}
}

func TestAmountDecodesLegacyDouble(t *testing.T) {
	raw, _ := bson.Marshal(bson.M{"total": 6.5})
	var decoded struct {
		Total Amount `bson:"total"`
	}
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !decoded.Total.Equal(FromFloat(6.5)) {
		t.Errorf("decoded total = %s, want 6.50", decoded.Total)
	}
}
