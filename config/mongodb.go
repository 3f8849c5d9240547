package config

type MongoDB struct {
	URI      string `mapstructure:"URI" json:"uri" yaml:"uri"`
	Options  string `mapstructure:"OPTIONS" json:"options" yaml:"options"`
	Database string `mapstructure:"DATABASE" json:"database" yaml:"database"`
	// 需 replica set；開啟後銷售明細的刪除+寫入在同一個 transaction 內完成
	Transactions bool `mapstructure:"TRANSACTIONS" json:"transactions" yaml:"transactions"`
}
