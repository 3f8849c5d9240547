package core

// Source 外部資料來源
type Source string

const (
	SourceEitje   Source = "eitje"   // 排班 / 工時
	SourceBork    Source = "bork"    // POS 銷售
	SourcePowerBI Source = "powerbi" // 財務報表（尚無聚合器）
)

// AggregationKind 聚合種類，同時作為鎖、指標與稽核紀錄的維度
type AggregationKind string

const (
	KindSalesLineItems AggregationKind = "sales_line_items"
	KindLaborHours     AggregationKind = "labor_hours"
	KindWorkerProfiles AggregationKind = "worker_profiles"
)

// Source 回傳該聚合種類讀取的原始來源
func (k AggregationKind) Source() Source {
	switch k {
	case KindSalesLineItems:
		return SourceBork
	default:
		return SourceEitje
	}
}

type AggregationMode string

const (
	ModeFull        AggregationMode = "full"
	ModeIncremental AggregationMode = "incremental"
)

// RunStatus 用於指標與稽核紀錄
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusSkipped   RunStatus = "skipped"
)
