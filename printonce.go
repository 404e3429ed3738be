package rwlock

import (
	"sync"

	"go.uber.org/zap"
)

var (
	// Global map to track warnings already logged, by key
	warnedKeys sync.Map
)

// warnOnce logs msg at warn level only the first time key is seen during the
// process lifetime. It reports whether the message was logged.
func warnOnce(logger *zap.Logger, key, msg string, fields ...zap.Field) bool {
	if _, loaded := warnedKeys.LoadOrStore(key, true); loaded {
		return false
	}
	logger.Warn(msg, fields...)
	return true
}

// resetWarnOnce clears all tracked keys (mainly for testing)
func resetWarnOnce() {
	warnedKeys.Range(func(k, _ any) bool {
		warnedKeys.Delete(k)
		return true
	})
}
