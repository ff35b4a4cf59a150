package logx

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base atomic.Pointer[zap.SugaredLogger]

func init() {
	base.Store(zap.NewNop().Sugar())
	_ = Init("info", "")
}

// Init builds the process logger. dev/local get the coloured console
// encoder; anything else gets production JSON.
func Init(level, env string) error {
	var cfg zap.Config
	if env == "dev" || env == "local" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return fmt.Errorf("logx: build logger: %w", err)
	}
	base.Store(logger.Sugar())
	return nil
}

// Use swaps the process logger, mainly for tests (zaptest/observer).
func Use(l *zap.Logger) {
	base.Store(l.WithOptions(zap.AddCallerSkip(2)).Sugar())
}

// Sync flushes buffered entries.
func Sync() {
	_ = base.Load().Sync()
}

// --- Public API ---

func Debug(component, msg string, args ...any) {
	logGeneric(zapcore.DebugLevel, component, "", msg, args...)
}

func Info(component, msg string, args ...any) {
	logGeneric(zapcore.InfoLevel, component, "", msg, args...)
}

func Warn(component, msg string, args ...any) {
	logGeneric(zapcore.WarnLevel, component, "", msg, args...)
}

func Error(component, msg string, args ...any) {
	logGeneric(zapcore.ErrorLevel, component, "", msg, args...)
}

// L logs at info level tagged with a request id.
func L(id, component, msg string, args ...any) {
	logGeneric(zapcore.InfoLevel, component, id, msg, args...)
}

// --- Core ---

func logGeneric(level zapcore.Level, component, id, msg string, args ...any) {
	l := base.Load()
	if !l.Desugar().Core().Enabled(level) {
		return
	}
	l = l.With("component", component)
	if id != "" {
		l = l.With("request_id", id)
	}
	l.Logf(level, msg, args...)
}

type Timer struct {
	start time.Time
	id    string
	comp  string
	op    string
}

func Start(id, comp, op string) *Timer {
	return &Timer{
		start: time.Now(),
		id:    id,
		comp:  comp,
		op:    op,
	}
}

// End logs and returns the elapsed time.
func (t *Timer) End() time.Duration {
	elapsed := time.Since(t.start)
	logGeneric(zapcore.DebugLevel, t.comp, t.id, "[TIMING] %s = %v", t.op, elapsed)
	return elapsed
}
