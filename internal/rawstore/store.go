// Package rawstore 定義聚合引擎所需的最小儲存介面：
// 原始資料的範圍查詢，以及聚合結果的 upsert / 刪除 / 批次寫入。
package rawstore

import (
	"context"
	"errors"
	"fmt"

	"opsboard/internal/core"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrUnavailable 連線、逾時等暫時性失敗；整段區間可以重跑
	ErrUnavailable = errors.New("raw store unavailable")
	// ErrDuplicateKey 違反唯一索引；重跑同一批資料只會再失敗一次
	ErrDuplicateKey = errors.New("raw store duplicate key")
)

// Store 過濾條件只使用等值、$gt/$gte/$lt/$lte/$in/$exists 與 $or
type Store interface {
	Find(ctx context.Context, collection core.MongoCollection, filter bson.M, opts ...FindOption) ([]bson.M, error)
	Distinct(ctx context.Context, collection core.MongoCollection, field string, filter bson.M) ([]any, error)
	BulkUpsert(ctx context.Context, collection core.MongoCollection, ops []UpsertOp) (BulkResult, error)
	DeleteMany(ctx context.Context, collection core.MongoCollection, filter bson.M) (int64, error)
	InsertMany(ctx context.Context, collection core.MongoCollection, docs []any) (BulkResult, error)
}

// Transactor 支援多筆操作原子提交的 store（Mongo replica set）
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UpsertOp Update 必須是 operator 文件（$set / $setOnInsert / $max）
type UpsertOp struct {
	Filter bson.M
	Update bson.M
}

type BulkResult struct {
	Matched  int64
	Modified int64
	Upserted int64
	Inserted int64
}

// SortKey 1 = 升冪，-1 = 降冪
type SortKey struct {
	Field     string
	Direction int
}

type FindOptions struct {
	Sort       []SortKey
	Projection []string
}

type FindOption func(*FindOptions)

func WithSort(keys ...SortKey) FindOption {
	return func(o *FindOptions) {
		o.Sort = append(o.Sort, keys...)
	}
}

func WithProjection(fields ...string) FindOption {
	return func(o *FindOptions) {
		o.Projection = append(o.Projection, fields...)
	}
}

func BuildFindOptions(opts ...FindOption) FindOptions {
	var o FindOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Unavailable 把底層錯誤標記為 ErrUnavailable，保留原始錯誤鏈
func Unavailable(op string, collection core.MongoCollection, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, collection, err)
}

// DuplicateKey 把唯一索引衝突標記為 ErrDuplicateKey
func DuplicateKey(op string, collection core.MongoCollection, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrDuplicateKey, op, collection, err)
}

// Decode 將查詢結果轉為具型別的 model
func Decode(doc bson.M, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

// DecodeAll 逐筆 Decode；任何一筆失敗即回傳錯誤與索引
func DecodeAll[T any](docs []bson.M) ([]T, error) {
	out := make([]T, 0, len(docs))
	for i, doc := range docs {
		var item T
		if err := Decode(doc, &item); err != nil {
			return nil, fmt.Errorf("decode document %d: %w", i, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// DateRangeFilter 原始資料與聚合資料共用的 (locationId, date) 範圍條件
func DateRangeFilter(r core.DateRange, locationID string) bson.M {
	filter := bson.M{
		"date": bson.M{"$gte": r.FromKey(), "$lte": r.ToKey()},
	}
	if locationID != "" {
		filter["locationId"] = locationID
	}
	return filter
}

// AsTransactor store 支援且已啟用 transaction 時回傳 Transactor
func AsTransactor(store Store) (Transactor, bool) {
	tx, ok := store.(Transactor)
	if !ok {
		return nil, false
	}
	if toggle, ok := store.(interface{ TransactionsEnabled() bool }); ok && !toggle.TransactionsEnabled() {
		return nil, false
	}
	return tx, true
}
