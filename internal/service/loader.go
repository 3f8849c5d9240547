package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"opsboard/internal/aggregation/normalize"
	"opsboard/internal/core"
	"opsboard/internal/database/mongodb/model"
	"opsboard/internal/rawstore"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 原始資料由 ingestion 寫入，欄位型別不保證一致（sourceId 可能是數字、date 可能是時間），
// 因此不直接 bson.Unmarshal，而是經過 normalize 逐欄轉換。

var rawMetaFields = []string{"_id", "source", "sourceId", "locationId", "date", "ingestedAt", "updatedAt", "rawData"}

func decodeRawRecord(doc bson.M) model.RawRecord {
	record := model.RawRecord{}
	if id, ok := doc["_id"].(primitive.ObjectID); ok {
		record.ID = id
	}
	record.Source, _ = normalize.ToString(doc["source"])
	record.SourceID, _ = normalize.ToString(doc["sourceId"])
	record.LocationID, _ = normalize.ToString(doc["locationId"])
	record.Date = dateKey(doc["date"])
	record.IngestedAt, _ = normalize.ToTime(doc["ingestedAt"])
	record.UpdatedAt, _ = normalize.ToTime(doc["updatedAt"])
	if raw, ok := normalize.Map(doc["rawData"]); ok {
		record.RawData = raw
	}
	return record
}

func dateKey(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if t, ok := normalize.ToTime(v); ok {
		return t.UTC().Format(core.DateLayout)
	}
	s, _ := normalize.ToString(v)
	return s
}

func (s *AggregationService) loadRawRecords(ctx context.Context, collection core.MongoCollection, filter bson.M) ([]model.RawRecord, error) {
	docs, err := s.store.Find(ctx, collection, filter,
		rawstore.WithSort(rawstore.SortKey{Field: "date", Direction: 1}, rawstore.SortKey{Field: "sourceId", Direction: 1}),
		rawstore.WithProjection(rawMetaFields...),
	)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	records := make([]model.RawRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, decodeRawRecord(doc))
	}
	return records, nil
}

// loadLocations 區間內出現過的門市，依字母排序
func (s *AggregationService) loadLocations(ctx context.Context, collection core.MongoCollection, r core.DateRange) ([]string, error) {
	values, err := s.store.Distinct(ctx, collection, "locationId", rawstore.DateRangeFilter(r, ""))
	if err != nil {
		return nil, fmt.Errorf("discover locations in %s: %w", collection, err)
	}
	locations := make([]string, 0, len(values))
	for _, v := range values {
		if loc, ok := normalize.ToString(v); ok && loc != "" {
			locations = append(locations, loc)
		}
	}
	sort.Strings(locations)
	return locations, nil
}

// loadProductGroups 未標 locationId 的群組視為所有門市共用
func (s *AggregationService) loadProductGroups(ctx context.Context, locationID string) ([]model.ProductGroup, error) {
	docs, err := s.store.Find(ctx, core.MongoCollectionBorkProductGroups, bson.M{},
		rawstore.WithSort(rawstore.SortKey{Field: "_id", Direction: 1}))
	if err != nil {
		return nil, fmt.Errorf("load product groups: %w", err)
	}
	groups := make([]model.ProductGroup, 0, len(docs))
	for _, doc := range docs {
		group := decodeProductGroup(doc)
		if group.GroupName == "" && group.GroupID == "" {
			continue
		}
		if group.LocationID != "" && locationID != "" && group.LocationID != locationID {
			continue
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func decodeProductGroup(doc bson.M) model.ProductGroup {
	group := model.ProductGroup{}
	if id, ok := doc["_id"].(primitive.ObjectID); ok {
		group.ID = id
	}
	group.LocationID, _ = normalize.ToString(doc["locationId"])
	group.GroupID = normalize.StringOr(doc, normalize.Field{"groupId", "GroupId", "group_id"}, "")
	group.GroupName = normalize.StringOr(doc, normalize.Field{"groupName", "GroupName", "group_name"}, "")
	group.ParentGroupID = optionalString(doc, normalize.Field{"parentGroupId", "ParentGroupId", "parent_group_id"})
	group.ParentGroupName = optionalString(doc, normalize.Field{"parentGroupName", "ParentGroupName", "parent_group_name"})
	if level, ok := normalize.Float(doc, normalize.Field{"groupLevel", "GroupLevel", "group_level"}); ok {
		l := int(level)
		group.GroupLevel = &l
	}
	return group
}

func optionalString(doc bson.M, field normalize.Field) *string {
	v, ok := normalize.String(doc, field)
	if !ok || v == "" {
		return nil
	}
	return &v
}

func (s *AggregationService) loadUnifiedUsers(ctx context.Context) ([]model.UnifiedUser, error) {
	docs, err := s.store.Find(ctx, core.MongoCollectionUnifiedUsers, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("load unified users: %w", err)
	}
	users := make([]model.UnifiedUser, 0, len(docs))
	for _, doc := range docs {
		user := model.UnifiedUser{
			ID:        idString(doc),
			FirstName: normalize.StringOr(doc, normalize.FirstName, ""),
			LastName:  normalize.StringOr(doc, normalize.LastName, ""),
			Name:      normalize.StringOr(doc, normalize.DisplayName, ""),
		}
		user.CreatedAt, _ = normalize.Time(doc, normalize.CreatedAt)
		mappings, _ := normalize.Slice(doc, normalize.SystemMappings)
		for _, m := range mappings {
			mapping, ok := normalize.Map(m)
			if !ok {
				continue
			}
			user.SystemMappings = append(user.SystemMappings, model.SystemMapping{
				System:     normalize.StringOr(mapping, normalize.MappingSystem, ""),
				ExternalID: normalize.StringOr(mapping, normalize.MappingID, ""),
			})
		}
		if user.ID != "" {
			users = append(users, user)
		}
	}
	return users, nil
}

// loadEitjeUsers 以 rawData 為主，缺 id 時退回 sourceId
func (s *AggregationService) loadEitjeUsers(ctx context.Context) ([]model.EitjeUser, error) {
	records, err := s.loadRawRecords(ctx, core.MongoCollectionEitjeRawUsers, bson.M{})
	if err != nil {
		return nil, err
	}
	users := make([]model.EitjeUser, 0, len(records))
	for _, record := range records {
		user := model.EitjeUser{
			ID:        normalize.StringOr(record.RawData, normalize.UserID, record.SourceID),
			FirstName: normalize.StringOr(record.RawData, normalize.FirstName, ""),
			LastName:  normalize.StringOr(record.RawData, normalize.LastName, ""),
		}
		if user.ID != "" {
			users = append(users, user)
		}
	}
	return users, nil
}

func (s *AggregationService) loadWorkerProfiles(ctx context.Context) ([]model.WorkerProfile, error) {
	docs, err := s.store.Find(ctx, core.MongoCollectionWorkerProfiles, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("load worker profiles: %w", err)
	}
	profiles := make([]model.WorkerProfile, 0, len(docs))
	for _, doc := range docs {
		profile := model.WorkerProfile{
			ID:            idString(doc),
			EitjeUserID:   normalize.StringOr(doc, normalize.EitjeUserID, ""),
			UnifiedUserID: normalize.StringOr(doc, normalize.UnifiedUserID, ""),
		}
		profile.LocationID, _ = normalize.ToString(doc["locationId"])
		profile.CreatedAt, _ = normalize.Time(doc, normalize.CreatedAt)
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func idString(doc bson.M) string {
	switch id := doc["_id"].(type) {
	case primitive.ObjectID:
		return id.Hex()
	case nil:
		return ""
	default:
		s, _ := normalize.ToString(id)
		return s
	}
}

// toSetDocument 聚合 model 轉成 $set 內容；_id 交給 upsert 決定
func toSetDocument(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "_id")
	return doc, nil
}

// lookbackFilter 身分比對只看近期的服務生名稱
func lookbackFilter(now time.Time, window time.Duration) bson.M {
	return bson.M{"date": bson.M{"$gte": now.Add(-window).UTC().Format(core.DateLayout)}}
}
