package zaplog

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	logger atomic.Pointer[zap.Logger]
	nop    = zap.NewNop()
)

// Logger returns the process-wide logger, or a no-op logger if none has been
// set yet.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nop
}

func SetLogger(l *zap.Logger) { logger.Store(l) }

// OrNop returns l, or the process-wide logger if l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return Logger()
	}
	return l
}
