package config

type TelemetryConfig struct {
	Metric struct {
		Enabled bool `yaml:"enabled" mapstructure:"ENABLED" json:"enabled"`
		// 聚合耗時 histogram 的 buckets（秒）
		Buckets []float64 `yaml:"buckets" mapstructure:"BUCKETS" json:"buckets"`
	} `yaml:"metric" mapstructure:"METRIC" json:"metric"`
	Trace struct {
		Enabled     bool    `yaml:"enabled" mapstructure:"ENABLED" json:"enabled"`
		EndpointUrl string  `yaml:"endpointUrl" mapstructure:"ENDPOINT_URL" json:"endpointUrl"`
		SampleRatio float64 `yaml:"sampleRatio" mapstructure:"SAMPLE_RATIO" json:"sampleRatio"`
	} `yaml:"trace" mapstructure:"TRACE" json:"trace"`
}
