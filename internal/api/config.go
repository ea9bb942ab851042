package api

import "time"

type Config struct {
	HTTPAddr        string        `envconfig:"ESCN_HTTP_ADDR" default:"0.0.0.0:8080"`
	DBDSN           string        `envconfig:"ESCN_DB_DSN" required:"true"`
	DBMaxConns      int32         `envconfig:"ESCN_DB_MAX_CONNS" default:"20"`
	MetricsAddr     string        `envconfig:"ESCN_METRICS_ADDR" default:"0.0.0.0:9090"`
	LogLevel        string        `envconfig:"ESCN_LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"ESCN_SHUTDOWN_TIMEOUT" default:"30s"`
	GeneratorAddr   string        `envconfig:"ESCN_GENERATOR_ADDR"`
	MaxBatch        int           `envconfig:"ESCN_MAX_BATCH" default:"1000"`
}
