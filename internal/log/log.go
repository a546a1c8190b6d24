// Package log is a thin zap wrapper giving every call site a uniform
// shape: log.Error(ctx, msg, "key", value, ...). It exists so handlers,
// services, and stores never import zap directly, and so the audit
// package can assert "no PII in logs" against one choke point.
package log

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors zapcore levels with names calling code can read without
// importing zap.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Output selects the zap encoder.
type Output int8

const (
	OutputText Output = iota
	OutputJSON
)

var logger *zap.SugaredLogger

func init() {
	Config(LevelInfo, OutputJSON, os.Stderr)
}

// Config (re)configures the global logger. Safe to call once at boot;
// tests call it again to redirect to a buffer or os.Stdout in text mode.
func Config(level Level, output Output, w io.Writer) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if output == OutputJSON {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zapLevel(level))
	logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx so every log line in that
// request's call graph carries it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func fields(ctx context.Context, kv []interface{}) []interface{} {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return append([]interface{}{"requestId", id}, kv...)
	}
	return kv
}

func Debug(ctx context.Context, msg string, kv ...interface{}) {
	logger.Debugw(msg, fields(ctx, kv)...)
}

func Info(ctx context.Context, msg string, kv ...interface{}) {
	logger.Infow(msg, fields(ctx, kv)...)
}

func Warn(ctx context.Context, msg string, kv ...interface{}) {
	logger.Warnw(msg, fields(ctx, kv)...)
}

func Error(ctx context.Context, msg string, kv ...interface{}) {
	logger.Errorw(msg, fields(ctx, kv)...)
}
