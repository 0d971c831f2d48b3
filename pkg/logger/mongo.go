package logger

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MongoMonitor logs MongoDB commands through zap
type MongoMonitor struct {
	ZapLogger     *zap.Logger
	SlowThreshold time.Duration
	Level         zapcore.Level
}

// NewMongoMonitor creates a command monitor with a slow command threshold and a log level
func NewMongoMonitor(zapLogger *zap.Logger, slowQuerySeconds float64, logLevel string) *MongoMonitor {
	return &MongoMonitor{
		ZapLogger:     zapLogger,
		SlowThreshold: time.Duration(slowQuerySeconds * float64(time.Second)),
		Level:         ParseLevel(logLevel),
	}
}

// CommandMonitor returns the driver hook to install on the client options
func (m *MongoMonitor) CommandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: m.Succeeded,
		Failed:    m.Failed,
	}
}

// Succeeded logs a completed command, as a warning when it exceeded the slow threshold
func (m *MongoMonitor) Succeeded(ctx context.Context, evt *event.CommandSucceededEvent) {
	fields := m.fields(evt.CommandFinishedEvent)
	logger := WithContext(ctx, m.ZapLogger)

	if m.SlowThreshold != 0 && evt.Duration > m.SlowThreshold && m.Level <= zapcore.WarnLevel {
		fields = append(fields, zap.Duration("threshold", m.SlowThreshold))
		logger.Warn("mongo slow command", fields...)
		return
	}

	if m.Level <= zapcore.DebugLevel {
		logger.Debug("mongo command", fields...)
	}
}

// Failed logs a command the server or driver rejected
func (m *MongoMonitor) Failed(ctx context.Context, evt *event.CommandFailedEvent) {
	if m.Level > zapcore.ErrorLevel {
		return
	}
	fields := append(m.fields(evt.CommandFinishedEvent), zap.String("failure", evt.Failure))
	WithContext(ctx, m.ZapLogger).Error("mongo command error", fields...)
}

func (m *MongoMonitor) fields(evt event.CommandFinishedEvent) []zap.Field {
	return []zap.Field{
		zap.String("command", evt.CommandName),
		zap.String("database", evt.DatabaseName),
		zap.Int64("mongo_request_id", evt.RequestID),
		zap.String("connection_id", evt.ConnectionID),
		zap.Duration("elapsed", evt.Duration),
		zap.Float64("elapsed_ms", float64(evt.Duration.Nanoseconds())/1e6),
	}
}
