package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"opsboard/internal/core"
	"opsboard/internal/rawstore"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const coll core.MongoCollection = "things"

func seed(t *testing.T, s *Store) {
	t.Helper()
	base := time.Date(2024, 10, 24, 12, 0, 0, 0, time.UTC)
	err := s.Seed(coll,
		bson.M{"sourceId": "a", "date": "2024-10-23", "locationId": "L1", "updatedAt": base, "qty": int32(1)},
		bson.M{"sourceId": "b", "date": "2024-10-24", "locationId": "L1", "updatedAt": base.Add(time.Hour), "qty": 2.5},
		bson.M{"sourceId": "c", "date": "2024-10-25", "locationId": "L2", "updatedAt": base.Add(2 * time.Hour)},
	)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestFindFilters(t *testing.T) {
	s := New()
	seed(t, s)
	base := time.Date(2024, 10, 24, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter bson.M
		want   []string
	}{
		{name: "equality", filter: bson.M{"locationId": "L1"}, want: []string{"a", "b"}},
		{name: "date range", filter: bson.M{"date": bson.M{"$gte": "2024-10-24", "$lte": "2024-10-25"}}, want: []string{"b", "c"}},
		{name: "time gt", filter: bson.M{"updatedAt": bson.M{"$gt": base}}, want: []string{"b", "c"}},
		{name: "in", filter: bson.M{"sourceId": bson.M{"$in": []string{"a", "c"}}}, want: []string{"a", "c"}},
		{name: "exists false", filter: bson.M{"qty": bson.M{"$exists": false}}, want: []string{"c"}},
		{name: "numeric across types", filter: bson.M{"qty": bson.M{"$gte": 1}}, want: []string{"a", "b"}},
		{name: "or", filter: bson.M{"$or": bson.A{bson.M{"sourceId": "a"}, bson.M{"locationId": "L2"}}}, want: []string{"a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Find(context.Background(), coll, tt.filter, rawstore.WithSort(rawstore.SortKey{Field: "sourceId", Direction: 1}))
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if len(docs) != len(tt.want) {
				t.Fatalf("got %d docs want %d", len(docs), len(tt.want))
			}
			for i, doc := range docs {
				if doc["sourceId"] != tt.want[i] {
					t.Fatalf("doc %d: got %v want %s", i, doc["sourceId"], tt.want[i])
				}
			}
		})
	}
}

func TestDocumentsAreNormalizedToBSONTypes(t *testing.T) {
	s := New()
	seed(t, s)
	docs := s.All(coll)
	if _, ok := docs[0]["updatedAt"].(primitive.DateTime); !ok {
		t.Fatalf("updatedAt should decode as primitive.DateTime, got %T", docs[0]["updatedAt"])
	}
	if _, ok := docs[0]["_id"].(primitive.ObjectID); !ok {
		t.Fatalf("seed should assign an ObjectID, got %T", docs[0]["_id"])
	}
}

func TestBulkUpsert(t *testing.T) {
	s := New()
	ctx := context.Background()
	t0 := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	ops := []rawstore.UpsertOp{{
		Filter: bson.M{"source": "eitje", "locationId": "L1"},
		Update: bson.M{"$max": bson.M{"lastAggregatedAt": t0}, "$setOnInsert": bson.M{"createdAt": t0}},
	}}
	res, err := s.BulkUpsert(ctx, coll, ops)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if res.Upserted != 1 {
		t.Fatalf("got %+v want one upsert", res)
	}

	// 較舊的時間不得覆蓋
	older := []rawstore.UpsertOp{{
		Filter: bson.M{"source": "eitje", "locationId": "L1"},
		Update: bson.M{"$max": bson.M{"lastAggregatedAt": t0.Add(-time.Hour)}},
	}}
	res, err = s.BulkUpsert(ctx, coll, older)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if res.Matched != 1 || res.Modified != 0 {
		t.Fatalf("got %+v want matched without modification", res)
	}

	docs := s.All(coll)
	if len(docs) != 1 {
		t.Fatalf("got %d docs want 1", len(docs))
	}
	got := docs[0]["lastAggregatedAt"].(primitive.DateTime).Time().UTC()
	if !got.Equal(t0) {
		t.Fatalf("lastAggregatedAt moved to %v want %v", got, t0)
	}
	if docs[0]["source"] != "eitje" {
		t.Fatalf("filter equality fields should be copied into the upserted doc")
	}
}

func TestFailureInjection(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()
	boom := errors.New("boom")

	s.FailOn(OpDeleteMany, coll, boom, 1)
	if _, err := s.DeleteMany(ctx, coll, bson.M{}); !errors.Is(err, rawstore.ErrUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("got %v want ErrUnavailable wrapping boom", err)
	}
	n, err := s.DeleteMany(ctx, coll, bson.M{"locationId": "L1"})
	if err != nil {
		t.Fatalf("second delete should succeed: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted %d want 2", n)
	}
	if got := s.Calls(OpDeleteMany, coll); got != 2 {
		t.Fatalf("calls %d want 2", got)
	}
}

func TestUniqueIndex(t *testing.T) {
	s := New()
	const sales core.MongoCollection = "sales"
	s.UniqueIndex(sales, "locationId", "ticketKey")
	ctx := context.Background()

	if _, err := s.InsertMany(ctx, sales, []any{bson.M{"_id": "a", "locationId": "L1", "ticketKey": "T1"}}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		docs []any
	}{
		{name: "same _id", docs: []any{bson.M{"_id": "a", "locationId": "L2", "ticketKey": "T9"}}},
		{name: "same index key", docs: []any{bson.M{"_id": "b", "locationId": "L1", "ticketKey": "T1"}}},
		{name: "duplicate within batch", docs: []any{
			bson.M{"_id": "c", "locationId": "L3", "ticketKey": "T3"},
			bson.M{"_id": "d", "locationId": "L3", "ticketKey": "T3"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.InsertMany(ctx, sales, tt.docs)
			if !errors.Is(err, rawstore.ErrDuplicateKey) || errors.Is(err, rawstore.ErrUnavailable) {
				t.Fatalf("got %v want ErrDuplicateKey", err)
			}
		})
	}

	// ordered insert 保留衝突之前的文件
	if got := len(s.All(sales)); got != 2 {
		t.Fatalf("got %d docs want 2", got)
	}
	if _, err := s.InsertMany(ctx, sales, []any{bson.M{"_id": "e", "locationId": "L1", "ticketKey": "T2"}}); err != nil {
		t.Fatalf("distinct key should insert: %v", err)
	}
}

func TestTransactionRollback(t *testing.T) {
	s := NewTx()
	seed(t, s.Store)
	ctx := context.Background()

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.DeleteMany(ctx, coll, bson.M{}); err != nil {
			return err
		}
		return errors.New("insert failed")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := len(s.All(coll)); got != 3 {
		t.Fatalf("rollback left %d docs want 3", got)
	}
	if s.Rollbacks != 1 || s.Commits != 0 {
		t.Fatalf("got commits=%d rollbacks=%d", s.Commits, s.Rollbacks)
	}
}

func TestCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Find(ctx, coll, bson.M{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v want context.Canceled", err)
	}
}
