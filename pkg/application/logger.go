package application

import (
	"context"
	"encoding/json"
)

type AppLogger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
	Trace(ctx context.Context, msg string, fields map[string]interface{})
}

func copyFields(fields map[string]interface{}, extra int) map[string]interface{} {
	logData := make(map[string]interface{}, len(fields)+extra)
	for k, v := range fields {
		logData[k] = v
	}
	return logData
}

func LogError(ctx context.Context, logger AppLogger, message string, err error, fields map[string]interface{}) {
	logData := copyFields(fields, 1)
	if err != nil {
		logData["error"] = err.Error()
	}
	logger.Error(ctx, message, logData)
}

// LogWarn is LogError for failures the caller recovers from.
func LogWarn(ctx context.Context, logger AppLogger, message string, err error, fields map[string]interface{}) {
	logData := copyFields(fields, 1)
	if err != nil {
		logData["error"] = err.Error()
	}
	logger.Warn(ctx, message, logData)
}

func LogInfo(ctx context.Context, logger AppLogger, message string, fields map[string]interface{}) {
	logger.Info(ctx, message, copyFields(fields, 0))
}

func LogDebug(ctx context.Context, logger AppLogger, message string, fields map[string]interface{}) {
	logger.Debug(ctx, message, copyFields(fields, 0))
}

func MarshalPayload[T any](payload T) ([]byte, error) {
	return json.Marshal(payload)
}

type nopLogger struct{}

// NopLogger discards everything. Handy for tests and optional collaborators.
func NopLogger() AppLogger { return nopLogger{} }

func (nopLogger) Info(context.Context, string, map[string]interface{})  {}
func (nopLogger) Debug(context.Context, string, map[string]interface{}) {}
func (nopLogger) Warn(context.Context, string, map[string]interface{})  {}
func (nopLogger) Error(context.Context, string, map[string]interface{}) {}
func (nopLogger) Trace(context.Context, string, map[string]interface{}) {}
