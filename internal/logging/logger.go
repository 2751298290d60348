package logging

import (
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.SugaredLogger]

func init() {
	current.Store(zap.NewNop().Sugar())
}

// Setup installs the process logger. level is one of debug, info, warn, error.
func Setup(level string) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	current.Store(l.Sugar())
	return nil
}

// Use installs an existing logger, e.g. zaptest's in tests.
func Use(l *zap.Logger) {
	current.Store(l.Sugar())
}

// L returns the process logger.
func L() *zap.SugaredLogger { return current.Load() }

// Sync flushes buffered entries.
func Sync() { _ = current.Load().Sync() }

// LogRequest logs an outbound request.
func LogRequest(component, method, url string, params map[string]interface{}) {
	if len(params) > 0 {
		L().Infof("[%s] %s %s params=%v", component, method, url, params)
	} else {
		L().Infof("[%s] %s %s", component, method, url)
	}
}

// LogResponse logs a completed outbound request.
func LogResponse(component string, statusCode int, duration time.Duration, resultCount int) {
	L().Infof("[%s] response status=%d duration=%dms results=%d",
		component, statusCode, duration.Milliseconds(), resultCount)
}

// LogError logs a failed operation.
func LogError(component, operation string, err error) {
	L().Errorf("[%s] %s error: %v", component, operation, err)
}

// LogSnapshot logs a snapshot swap.
func LogSnapshot(component, source, digest string, districts int, duration time.Duration) {
	L().Infof("[%s] loaded snapshot source=%s digest=%s districts=%d in %dms",
		component, source, digest, districts, duration.Milliseconds())
}

// LogUpsert logs archive writes.
func LogUpsert(component string, count int, duration time.Duration) {
	L().Infof("[%s] upserted %d records in %dms",
		component, count, duration.Milliseconds())
}
