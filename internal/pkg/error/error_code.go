package error

const (
	// 0 ~ 999: 成功類別
	SUCCESS = 0 // 200 OK

	// 40000 ~ 49999: 用戶請求錯誤 (400 系列)
	BAD_REQUEST_BODY    = 40000 // 400 - 無效的請求體
	BAD_REQUEST_PARAMS  = 40001 // 400 - 無效的請求參數
	BAD_REQUEST_HEADERS = 40002 // 400 - 無效的請求標頭
	INVALID_DATE_RANGE  = 40003 // 400 - 日期區間無效

	// 40100 ~ 40399: 驗證與權限錯誤 (401 403 系列)
	UNAUTHORIZED  = 40100 // 401 - 未授權
	INVALID_TOKEN = 40101 // 401 - token 失效
	FORBIDDEN     = 40301 // 403 - 禁止訪問

	// 40400 ~ 40499: 資源錯誤 (404 系列)
	NOT_FOUND = 40400 // 404 - 資源未找到

	// 40900 ~ 40999: 衝突 (409 系列)
	AGGREGATION_IN_PROGRESS = 40900 // 409 - 同一 key space 正在聚合

	// 49900: 呼叫端取消或超過執行時間
	AGGREGATION_CANCELLED = 49900 // 499 - 聚合被取消，marker 未推進

	// 50000 ~ 50199: 伺服器內部錯誤 (500 系列)
	INTERNAL_ERROR      = 50000 // 500 - 內部錯誤
	DATABASE_ERROR      = 50001 // 500 - 資料庫錯誤
	SERVICE_UNAVAILABLE = 50002 // 503 - 服務暫停 (維護模式)

	// 50300: 原始資料或聚合資料存取失敗，整個 pass 失敗
	STORE_UNAVAILABLE = 50300 // 503 - RawStore 無法讀寫

	// 50400 ~ 50499: 逾時
	GATEWAY_TIMEOUT = 50400 // 504 - 逾時
)
