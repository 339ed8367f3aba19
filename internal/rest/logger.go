package rest

import "go.uber.org/zap"

// Logger is the subset of a structured logger the client writes to. Both
// *zap.Logger and the gofulmen CLI/server loggers satisfy it.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}
