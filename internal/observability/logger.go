package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the production JSON logger. Unknown levels fall back to info.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// StudentLogger returns a child logger scoped to one student operation.
func StudentLogger(base *zap.Logger, studentID, op, requestID string) *zap.Logger {
	fields := []zap.Field{
		zap.String("student_id", studentID),
		zap.String("op", op),
	}
	if requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	return base.With(fields...)
}
