package repository

import (
	"context"
	"errors"
	"fmt"

	"opsboard/internal/core"
	client "opsboard/internal/database/client"
	"opsboard/internal/rawstore"
	"opsboard/internal/telemetry"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// MongoStore 以單一 MongoDB 資料庫實作 rawstore.Store / rawstore.Transactor
type MongoStore struct {
	client       *mongo.Client
	database     *mongo.Database
	transactions bool
	trace        *telemetry.Trace
}

var (
	_ rawstore.Store      = (*MongoStore)(nil)
	_ rawstore.Transactor = (*MongoStore)(nil)
)

func NewMongoStore(trace *telemetry.Trace, mongoClient *client.MongoClient) *MongoStore {
	store := &MongoStore{
		client:       mongoClient.Client(),
		database:     mongoClient.Database(),
		transactions: mongoClient.TransactionsEnabled(),
		trace:        trace,
	}
	_ = store.ensureIndexes(context.Background())
	return store
}

// 索引已存在時 Mongo 不會回錯；衝突（同名不同定義）也不視為致命
func (store *MongoStore) ensureIndexes(contextValue context.Context) error {
	for collection, models := range collectionIndexes {
		if len(models) == 0 {
			continue
		}
		_, _ = store.collection(collection).Indexes().CreateMany(contextValue, models)
	}
	return nil
}

func (store *MongoStore) collection(name core.MongoCollection) *mongo.Collection {
	return store.database.Collection(string(name))
}

func (store *MongoStore) TransactionsEnabled() bool {
	return store.transactions
}

func (store *MongoStore) Find(contextValue context.Context, collection core.MongoCollection, filter bson.M, opts ...rawstore.FindOption) (_ []bson.M, returnedError error) {
	contextValue, span, endSpan := store.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()
	store.trace.ApplyTraceAttributes(span, core.TraceStoreWriteMeta{Collection: string(collection), Op: "find"})

	findOptions := rawstore.BuildFindOptions(opts...)
	mongoOptions := options.Find()
	if len(findOptions.Sort) > 0 {
		sortDocument := bson.D{}
		for _, key := range findOptions.Sort {
			sortDocument = append(sortDocument, bson.E{Key: key.Field, Value: key.Direction})
		}
		mongoOptions.SetSort(sortDocument)
	}
	if len(findOptions.Projection) > 0 {
		projection := bson.M{}
		for _, field := range findOptions.Projection {
			projection[field] = 1
		}
		mongoOptions.SetProjection(projection)
	}

	cursor, findError := store.collection(collection).Find(contextValue, filter, mongoOptions)
	if findError != nil {
		return nil, classify("find", collection, findError)
	}
	defer cursor.Close(contextValue)

	var results []bson.M
	for cursor.Next(contextValue) {
		var document bson.M
		if decodeError := cursor.Decode(&document); decodeError != nil {
			return nil, classify("find", collection, decodeError)
		}
		results = append(results, document)
	}
	if cursorError := cursor.Err(); cursorError != nil {
		return nil, classify("find", collection, cursorError)
	}
	return results, nil
}

func (store *MongoStore) Distinct(contextValue context.Context, collection core.MongoCollection, field string, filter bson.M) (_ []any, returnedError error) {
	contextValue, span, endSpan := store.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()
	store.trace.ApplyTraceAttributes(span, core.TraceStoreWriteMeta{Collection: string(collection), Op: "distinct"})

	values, distinctError := store.collection(collection).Distinct(contextValue, field, filter)
	if distinctError != nil {
		return nil, classify("distinct", collection, distinctError)
	}
	return values, nil
}

func (store *MongoStore) BulkUpsert(contextValue context.Context, collection core.MongoCollection, ops []rawstore.UpsertOp) (_ rawstore.BulkResult, returnedError error) {
	if len(ops) == 0 {
		return rawstore.BulkResult{}, nil
	}
	contextValue, span, endSpan := store.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	models := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(op.Filter).
			SetUpdate(op.Update).
			SetUpsert(true))
	}
	bulkResult, bulkError := store.collection(collection).BulkWrite(contextValue, models, options.BulkWrite().SetOrdered(true))
	if bulkError != nil {
		return rawstore.BulkResult{}, classify("bulkUpsert", collection, bulkError)
	}

	result := rawstore.BulkResult{
		Matched:  bulkResult.MatchedCount,
		Modified: bulkResult.ModifiedCount,
		Upserted: bulkResult.UpsertedCount,
	}
	store.trace.ApplyTraceAttributes(span, core.TraceStoreWriteMeta{
		Collection: string(collection),
		Op:         "bulkUpsert",
		Matched:    result.Matched,
		Upserted:   result.Upserted,
	})
	return result, nil
}

func (store *MongoStore) DeleteMany(contextValue context.Context, collection core.MongoCollection, filter bson.M) (_ int64, returnedError error) {
	contextValue, span, endSpan := store.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	deleteResult, deleteError := store.collection(collection).DeleteMany(contextValue, filter)
	if deleteError != nil {
		return 0, classify("deleteMany", collection, deleteError)
	}
	store.trace.ApplyTraceAttributes(span, core.TraceStoreWriteMeta{
		Collection: string(collection),
		Op:         "deleteMany",
		Deleted:    deleteResult.DeletedCount,
	})
	return deleteResult.DeletedCount, nil
}

func (store *MongoStore) InsertMany(contextValue context.Context, collection core.MongoCollection, documents []any) (_ rawstore.BulkResult, returnedError error) {
	if len(documents) == 0 {
		return rawstore.BulkResult{}, nil
	}
	contextValue, span, endSpan := store.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	insertResult, insertError := store.collection(collection).InsertMany(contextValue, documents)
	if insertError != nil {
		return rawstore.BulkResult{}, classify("insertMany", collection, insertError)
	}
	result := rawstore.BulkResult{Inserted: int64(len(insertResult.InsertedIDs))}
	store.trace.ApplyTraceAttributes(span, core.TraceStoreWriteMeta{
		Collection: string(collection),
		Op:         "insertMany",
		Inserted:   result.Inserted,
	})
	return result, nil
}

// WithTransaction fn 內所有操作需使用傳入的 ctx（session context）
func (store *MongoStore) WithTransaction(contextValue context.Context, fn func(ctx context.Context) error) (returnedError error) {
	session, sessionError := store.client.StartSession()
	if sessionError != nil {
		return classify("startSession", "", sessionError)
	}
	defer session.EndSession(contextValue)

	_, returnedError = session.WithTransaction(contextValue, func(sessionContext mongo.SessionContext) (any, error) {
		return nil, fn(sessionContext)
	})
	return returnedError
}

// classify 只有連線、逾時與可重試的 server 錯誤標記為 rawstore.ErrUnavailable；
// 唯一索引衝突標記為 rawstore.ErrDuplicateKey，其餘錯誤原樣包裝
func classify(op string, collection core.MongoCollection, err error) error {
	var selection topology.ServerSelectionError
	var server mongo.ServerError
	switch {
	case mongo.IsDuplicateKeyError(err):
		return rawstore.DuplicateKey(op, collection, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.As(err, &selection):
		return rawstore.Unavailable(op, collection, err)
	case errors.As(err, &server) &&
		(server.HasErrorLabel("RetryableWriteError") || server.HasErrorLabel("TransientTransactionError")):
		return rawstore.Unavailable(op, collection, err)
	}
	return fmt.Errorf("%s %s: %w", op, collection, err)
}
