package repository

import (
	"opsboard/internal/core"
	"opsboard/internal/database/mongodb/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// collectionIndexes 啟動時建立；原始資料集合的索引由聚合查詢需求決定
var collectionIndexes = map[core.MongoCollection][]mongo.IndexModel{
	core.MongoCollectionBorkRawTickets:        model.RawRecordIndexes,
	core.MongoCollectionEitjeRawShifts:        model.RawRecordIndexes,
	core.MongoCollectionEitjeRawUsers:         model.RawRecordIndexes,
	core.MongoCollectionBorkProductGroups:     model.ProductGroupIndexes,
	core.MongoCollectionUnifiedUsers:          model.UnifiedUserIndexes,
	core.MongoCollectionWorkerProfiles:        model.WorkerProfileIndexes,
	core.MongoCollectionSalesLineItems:        model.SalesLineItemIndexes,
	core.MongoCollectionLaborHours:            model.LaborAggregatedIndexes,
	core.MongoCollectionUnifiedWorkerProfiles: model.UnifiedWorkerProfileIndexes,
	core.MongoCollectionAggregationMarkers:    model.ChangeMarkerIndexes,
}
