package config

// Fluentd 聚合執行與身分比對的稽核紀錄
type Fluentd struct {
	Enabled   bool   `mapstructure:"ENABLED" json:"enabled" yaml:"enabled"`
	Host      string `mapstructure:"HOST" json:"host" yaml:"host"`
	Port      int    `mapstructure:"PORT" json:"port" yaml:"port"`
	TagPrefix string `mapstructure:"TAG_PREFIX" json:"tagPrefix" yaml:"tagPrefix"`
	// 毫秒
	Timeout int64 `mapstructure:"TIMEOUT" json:"timeout" yaml:"timeout"`
	// 非同步送出，Fluentd 暫時斷線不會卡住聚合
	Async bool `mapstructure:"ASYNC" json:"async" yaml:"async"`
}
