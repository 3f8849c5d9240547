package config

type Aggregation struct {
	// 門市所在時區，用來換算「今天」與 cron 的回溯區間
	Timezone string `mapstructure:"TIMEZONE" json:"timezone" yaml:"timezone"`
	// 非 transaction 模式下，整段重跑的最大次數
	RetryAttempts          uint  `mapstructure:"RETRY_ATTEMPTS" json:"retryAttempts" yaml:"retryAttempts"`
	RetryInitialIntervalMs int64 `mapstructure:"RETRY_INITIAL_INTERVAL_MS" json:"retryInitialIntervalMs" yaml:"retryInitialIntervalMs"`
	// 單一 (kind, location) 鎖的存活秒數
	LockTTLSeconds int64 `mapstructure:"LOCK_TTL_SECONDS" json:"lockTTLSeconds" yaml:"lockTTLSeconds"`
	Cron           struct {
		Enabled      bool   `mapstructure:"ENABLED" json:"enabled" yaml:"enabled"`
		SalesSpec    string `mapstructure:"SALES_SPEC" json:"salesSpec" yaml:"salesSpec"`
		LaborSpec    string `mapstructure:"LABOR_SPEC" json:"laborSpec" yaml:"laborSpec"`
		IdentitySpec string `mapstructure:"IDENTITY_SPEC" json:"identitySpec" yaml:"identitySpec"`
		LookbackDays int    `mapstructure:"LOOKBACK_DAYS" json:"lookbackDays" yaml:"lookbackDays"`
		Concurrency  int    `mapstructure:"CONCURRENCY" json:"concurrency" yaml:"concurrency"`
	} `mapstructure:"CRON" json:"cron" yaml:"cron"`
}
