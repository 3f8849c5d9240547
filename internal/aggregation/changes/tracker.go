// Package changes 依每個 (source, locationId) 的 ChangeMarker 決定哪些日期需要重新聚合。
package changes

import (
	"context"
	"fmt"
	"time"

	"opsboard/internal/aggregation/normalize"
	"opsboard/internal/core"
	"opsboard/internal/database/mongodb/model"
	"opsboard/internal/rawstore"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Plan 一次 ChangedRanges 的決策結果，也供 API 檢視
type Plan struct {
	Source           core.Source          `json:"source"`
	LocationID       string               `json:"locationId"`
	Requested        core.DateRange       `json:"requested"`
	Mode             core.AggregationMode `json:"mode"`
	Ranges           []core.DateRange     `json:"ranges"`
	LastAggregatedAt *time.Time           `json:"lastAggregatedAt,omitempty"`
	// Reason 為何採用 full 模式
	Reason string `json:"reason,omitempty"`
}

type Tracker struct {
	store  rawstore.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewTracker(store rawstore.Store, logger *zap.Logger) *Tracker {
	return &Tracker{store: store, logger: logger, now: time.Now}
}

// RawCollection 各來源的原始資料集合
func RawCollection(source core.Source) (core.MongoCollection, error) {
	switch source {
	case core.SourceBork:
		return core.MongoCollectionBorkRawTickets, nil
	case core.SourceEitje:
		return core.MongoCollectionEitjeRawShifts, nil
	}
	return "", fmt.Errorf("no raw collection for source %q", source)
}

func markerFilter(source core.Source, locationID string) bson.M {
	return bson.M{"source": string(source), "locationId": locationID}
}

// Marker 尚未建立時回傳 nil, nil
func (t *Tracker) Marker(ctx context.Context, source core.Source, locationID string) (*model.ChangeMarker, error) {
	docs, err := t.store.Find(ctx, core.MongoCollectionAggregationMarkers, markerFilter(source, locationID))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var marker model.ChangeMarker
	if err := rawstore.Decode(docs[0], &marker); err != nil {
		return nil, fmt.Errorf("decode marker %s/%s: %w", source, locationID, err)
	}
	return &marker, nil
}

// ChangedRanges 標記不存在或任何查詢失敗時，整段 requested 視為已變更
func (t *Tracker) ChangedRanges(ctx context.Context, source core.Source, locationID string, requested core.DateRange) ([]core.DateRange, core.AggregationMode) {
	plan := t.Plan(ctx, source, locationID, requested)
	return plan.Ranges, plan.Mode
}

func (t *Tracker) Plan(ctx context.Context, source core.Source, locationID string, requested core.DateRange) Plan {
	plan := Plan{Source: source, LocationID: locationID, Requested: requested}
	full := func(reason string, err error) Plan {
		plan.Mode = core.ModeFull
		plan.Ranges = []core.DateRange{requested}
		plan.Reason = reason
		fields := []zap.Field{
			zap.String("source", string(source)),
			zap.String("location_id", locationID),
			zap.String("range", requested.String()),
			zap.String("reason", reason),
		}
		if err != nil {
			t.logger.Warn("change detection fell back to full range", append(fields, zap.Error(err))...)
		} else {
			t.logger.Debug("change detection uses full range", fields...)
		}
		return plan
	}

	collection, err := RawCollection(source)
	if err != nil {
		return full("unknown source", err)
	}
	marker, err := t.Marker(ctx, source, locationID)
	if err != nil {
		return full("marker read failed", err)
	}
	if marker == nil {
		return full("no marker", nil)
	}
	lastAggregatedAt := marker.LastAggregatedAt.UTC()
	plan.LastAggregatedAt = &lastAggregatedAt

	// 新匯入（ingestedAt）與既有資料更新（updatedAt）都算變更
	filter := rawstore.DateRangeFilter(requested, locationID)
	filter["$or"] = bson.A{
		bson.M{"updatedAt": bson.M{"$gt": lastAggregatedAt}},
		bson.M{"ingestedAt": bson.M{"$gt": lastAggregatedAt}},
	}
	values, err := t.store.Distinct(ctx, collection, "date", filter)
	if err != nil {
		return full("changed-date query failed", err)
	}

	dates := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := normalize.ToString(v); ok && s != "" {
			dates = append(dates, s)
		}
	}
	plan.Mode = core.ModeIncremental
	plan.Ranges = core.CollapseDates(dates)
	return plan
}

// Advance 以 $max 推進，並行的 pass 無法讓標記倒退
func (t *Tracker) Advance(ctx context.Context, source core.Source, locationID string, at time.Time) error {
	now := t.now().UTC()
	_, err := t.store.BulkUpsert(ctx, core.MongoCollectionAggregationMarkers, []rawstore.UpsertOp{{
		Filter: markerFilter(source, locationID),
		Update: bson.M{
			"$max":         bson.M{"lastAggregatedAt": at.UTC()},
			"$set":         bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
	}})
	if err != nil {
		return fmt.Errorf("advance marker %s/%s: %w", source, locationID, err)
	}
	return nil
}
