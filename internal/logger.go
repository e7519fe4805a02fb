package internal

import (
	"runtime"

	"go.uber.org/zap"
)

// Logger is the minimal logging contract the driver needs, the same
// one-method shape as the teacher's recovery.go Logger interface. Kept
// narrow so embedders can plug in whatever logging stack their own
// application uses.
type Logger interface {
	Error(v ...any)
}

// zapLogger is the default Logger, wired the way wmdanor-websocket's own
// WebSocket Conn wires go.uber.org/zap into itself.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewDefaultLogger returns a Logger backed by a production zap logger. It
// never returns an error; if zap's own construction fails (which in
// practice only happens under a broken global logging configuration) it
// falls back to zap's no-op logger rather than leaving the driver without
// one.
func NewDefaultLogger() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return &zapLogger{sugar: l.Sugar()}
}

func (l *zapLogger) Error(v ...any) {
	l.sugar.Error(v...)
}

// Recover wraps f so a panic inside an embedder's event callback is
// logged instead of crashing the goroutine the driver runs in. Grounded
// on the teacher's recovery.go Recovery(logger Logger) Caller.
func Recover(logger Logger, f func()) {
	defer func() {
		if e := recover(); e != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			logger.Error("websocket: panic recovered", e, string(buf))
		}
	}()
	f()
}
