package generatorsvc

import "time"

type Config struct {
	GRPCAddr        string        `envconfig:"ESCN_GENERATOR_GRPC_ADDR" default:"0.0.0.0:7070"`
	MetricsAddr     string        `envconfig:"ESCN_GENERATOR_METRICS_ADDR" default:"0.0.0.0:9092"`
	LogLevel        string        `envconfig:"ESCN_LOG_LEVEL" default:"info"`
	HitBudget       int           `envconfig:"ESCN_HIT_BUDGET" default:"10000"`
	ShutdownTimeout time.Duration `envconfig:"ESCN_SHUTDOWN_TIMEOUT" default:"30s"`
}
