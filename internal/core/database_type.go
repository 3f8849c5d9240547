package core

// ─── Database Types ────────────────────────────────────────────────────────────

type MongoDatabaseName string
type MongoCollection string
type RedisKey string
type FluentdSubTag string

// ─── MongoDB ───────────────────────────────────────────────────────────────────

// MongoDBOpsboard 未設定 MONGODB__DATABASE 時使用的資料庫名稱
const (
	MongoDBOpsboard MongoDatabaseName = "opsboard"
)

// 原始資料（由 ingestion 寫入，聚合引擎唯讀）
const (
	MongoCollectionBorkRawTickets    MongoCollection = "bork_raw_tickets"
	MongoCollectionEitjeRawShifts    MongoCollection = "eitje_raw_shifts"
	MongoCollectionEitjeRawUsers     MongoCollection = "eitje_raw_users"
	MongoCollectionBorkProductGroups MongoCollection = "bork_product_groups"
	MongoCollectionUnifiedUsers      MongoCollection = "unified_users"
	MongoCollectionWorkerProfiles    MongoCollection = "worker_profiles"
)

// 聚合結果與控制狀態
const (
	MongoCollectionSalesLineItems        MongoCollection = "sales_line_items_aggregated"
	MongoCollectionLaborHours            MongoCollection = "labor_hours_aggregated"
	MongoCollectionUnifiedWorkerProfiles MongoCollection = "unified_worker_profiles"
	MongoCollectionAggregationMarkers    MongoCollection = "aggregation_markers"
)

// ─── Redis Keys ────────────────────────────────────────────────────────────────

const (
	RedisKeyServerName      RedisKey = "opsboard"         // 伺服器名稱
	RedisKeyAggregationLock RedisKey = "aggregation_lock" // 每個 (kind, location) 的聚合鎖
)

// ─── Fluentd ───────────────────────────────────────────────────────────────────

const (
	FluentdAggregationRun    FluentdSubTag = "aggregation_run"
	FluentdIdentityDuplicate FluentdSubTag = "identity_duplicate"
	FluentdIdentityUnmatched FluentdSubTag = "identity_unmatched"
)
