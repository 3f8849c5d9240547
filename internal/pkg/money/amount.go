// Package money 以 shopspring/decimal 表示金額，並以 BSON Decimal128 存入 MongoDB。
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Scale 聚合結果的金額小數位數
const Scale = 2

type Amount struct {
	decimal.Decimal
}

func Zero() Amount {
	return Amount{Decimal: decimal.Zero}
}

func New(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func FromFloat(f float64) Amount {
	return Amount{Decimal: decimal.NewFromFloat(f)}
}

func FromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero(), err
	}
	return Amount{Decimal: d}, nil
}

func MustFromString(s string) Amount {
	a, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Add(b.Decimal)}
}

func (a Amount) Mul(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Mul(b.Decimal)}
}

func (a Amount) MulFloat(f float64) Amount {
	return Amount{Decimal: a.Decimal.Mul(decimal.NewFromFloat(f))}
}

// DivFloat 除數為 0 時回傳 0
func (a Amount) DivFloat(f float64) Amount {
	if f == 0 {
		return Zero()
	}
	return Amount{Decimal: a.Decimal.DivRound(decimal.NewFromFloat(f), Scale+4)}
}

func (a Amount) Round() Amount {
	return Amount{Decimal: a.Decimal.Round(Scale)}
}

func (a Amount) Equal(b Amount) bool {
	return a.Decimal.Equal(b.Decimal)
}

func (a Amount) String() string {
	return a.Decimal.StringFixed(Scale)
}

func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := primitive.ParseDecimal128(a.Decimal.String())
	if err != nil {
		return 0, nil, fmt.Errorf("money: encode %s: %w", a.Decimal.String(), err)
	}
	return bson.MarshalValue(d)
}

func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Decimal128:
		d, err := decimal.NewFromString(raw.Decimal128().String())
		if err != nil {
			return fmt.Errorf("money: decode decimal128: %w", err)
		}
		a.Decimal = d
	case bsontype.Double:
		a.Decimal = decimal.NewFromFloat(raw.Double())
	case bsontype.Int32:
		a.Decimal = decimal.NewFromInt32(raw.Int32())
	case bsontype.Int64:
		a.Decimal = decimal.NewFromInt(raw.Int64())
	case bsontype.String:
		d, err := decimal.NewFromString(raw.StringValue())
		if err != nil {
			return fmt.Errorf("money: decode string: %w", err)
		}
		a.Decimal = d
	case bsontype.Null, bsontype.Undefined:
		a.Decimal = decimal.Zero
	default:
		return fmt.Errorf("money: cannot decode bson type %s", t)
	}
	return nil
}
