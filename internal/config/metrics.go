package config

type Metrics struct {
	Enabled   bool   `env:"METRICS_ENABLED" envDefault:"false"`
	Namespace string `env:"METRICS_NAMESPACE" envDefault:"catalog"`
}
