package core

const (
	ContextTraceKey     = "telemetry_trace_ctx"
	ContextRequestIDKey = "request_id"
)

// ==== 型別安全 span name ====
// 專案全域建議都寫這裡，方便集中管理
type TraceSpanName string

const (
	SpanHttpRequest        TraceSpanName = "http_request"
	SpanLoggerMiddleware   TraceSpanName = "logger_middleware"
	SpanRecoveryMiddleware TraceSpanName = "recovery_middleware"
	SpanCorsMiddleware     TraceSpanName = "cors_middleware"
	SpanResponseMiddleware TraceSpanName = "response_middleware"
	SpanAuthMiddleware     TraceSpanName = "auth_middleware"

	SpanSalesPass    TraceSpanName = "aggregate_sales_line_items"
	SpanLaborPass    TraceSpanName = "aggregate_labor_hours"
	SpanIdentityPass TraceSpanName = "reconcile_worker_profiles"
	SpanReplaceRange TraceSpanName = "replace_sales_range"
)

// 指標名稱常數
type MetricName string

const (
	MetricHttpRequestsTotal        MetricName = "requests_total"
	MetricHttpRequestDuration      MetricName = "request_duration_seconds"
	MetricAggregationRunsTotal     MetricName = "aggregation_runs_total"
	MetricAggregationRecordsTotal  MetricName = "aggregation_records_total"
	MetricAggregationWarningsTotal MetricName = "aggregation_warnings_total"
	MetricAggregationDuration      MetricName = "aggregation_duration_seconds"
	MetricIdentityDuplicatesTotal  MetricName = "identity_duplicates_total"
)

// label name 常數
type MetricLabelName string

const (
	MetricLabelEndpoint MetricLabelName = "endpoint"
	MetricLabelStatus   MetricLabelName = "status"
	MetricLabelKind     MetricLabelName = "kind"
	MetricLabelMode     MetricLabelName = "mode"
)

type LoggerRequestMeta struct {
	Method     string            `trace:"request.method"`
	Path       string            `trace:"request.path"`
	FullPath   string            `trace:"request.full_path"`
	Query      string            `trace:"request.query"`
	Body       string            `trace:"request.body"`
	Host       string            `trace:"http.host"`
	UserAgent  string            `trace:"http.user_agent"`
	ContentLen int64             `trace:"http.request_content_length"`
	ClientIP   string            `trace:"net.peer.ip"`
	Params     map[string]string `trace:"http.request.param"`
}

type TraceHttpServerMeta struct {
	ClientAddr        string `trace:"client.address"`
	HttpRequestMethod string `trace:"http.request.method"`
	HttpRoute         string `trace:"http.route"`
	UrlPath           string `trace:"http.request.path"`
	UserAgent         string `trace:"user_agent.original"`
	ServerAddress     string `trace:"server.address"`
	NetworkPeerAddr   string `trace:"network.peer.address"`
	NetworkPeerPort   int    `trace:"network.peer.port"`
	NetworkProtoVer   string `trace:"network.protocol.version"`
	HttpStatusCode    int    `trace:"http.response.status_code"`
}

type TracePanicMeta struct {
	Path       string  `trace:"http.path"`
	Method     string  `trace:"http.method"`
	ClientIP   string  `trace:"net.peer.ip"`
	UserAgent  string  `trace:"http.user_agent"`
	DurationMs float64 `trace:"response.latency_ms"`
	Status     int     `trace:"http.status_code"`
	Message    string  `trace:"error.message"`
	Stack      string  `trace:"error.stack"`
}

type TraceResponseMeta struct {
	Path       string  `trace:"http.path"`
	Method     string  `trace:"http.method"`
	Status     int     `trace:"http.status_code"`
	Message    string  `trace:"response.message"`
	Code       int     `trace:"response.code"`
	DurationMs float64 `trace:"response.latency_ms"`
	Data       string  `trace:"response.data_preview"`
}

type TraceAuthMeta struct {
	Caller string   `trace:"auth.caller,omitempty"`
	Scopes []string `trace:"auth.scopes,omitempty"`
	Status string   `trace:"auth.status"`
}

// 單次聚合 pass（一個 kind + location）
type TraceAggregationPassMeta struct {
	RunID      string   `trace:"aggregation.run_id"`
	Kind       string   `trace:"aggregation.kind"`
	LocationID string   `trace:"aggregation.location_id"`
	From       string   `trace:"aggregation.from"`
	To         string   `trace:"aggregation.to"`
	Mode       string   `trace:"aggregation.mode"`
	Ranges     []string `trace:"aggregation.ranges"`
	Records    int      `trace:"aggregation.records"`
	Skipped    int      `trace:"aggregation.skipped"`
	Warnings   int      `trace:"aggregation.warnings"`
}

// 寫入聚合結果
type TraceStoreWriteMeta struct {
	Collection    string `trace:"store.collection"`
	Op            string `trace:"store.op"`
	Transactional bool   `trace:"store.transactional"`
	Attempts      int    `trace:"store.attempts"`
	Deleted       int64  `trace:"store.deleted"`
	Inserted      int64  `trace:"store.inserted"`
	Matched       int64  `trace:"store.matched"`
	Upserted      int64  `trace:"store.upserted"`
}

type TraceIdentityMeta struct {
	RunID          string `trace:"identity.run_id"`
	Profiles       int    `trace:"identity.profiles"`
	Duplicates     int    `trace:"identity.duplicate_groups"`
	UnmatchedUsers int    `trace:"identity.unmatched_users"`
	WaiterNames    int    `trace:"identity.bork_waiter_names"`
}
