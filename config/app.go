package config

type App struct {
	// 當前開發環境
	Env string `mapstructure:"ENV" json:"env" yaml:"env"`
	// 服務端口
	Port uint32 `mapstructure:"PORT" json:"port" yaml:"port"`
	// 服務名稱
	Name string `mapstructure:"NAME" json:"name" yaml:"name"`
	// 服務版本
	Version string `mapstructure:"VERSION" json:"version" yaml:"version"`
	// Secret Key 用於驗證觸發聚合的 Bearer JWT
	SecretKey string `mapstructure:"SECRET_KEY" json:"secret_key" yaml:"secret_key"`
	// 允許的 CORS 來源（儀表板手動觸發用）
	AllowOrigins []string `mapstructure:"ALLOW_ORIGINS" json:"allow_origins" yaml:"allow_origins"`
}
