package heclog

import "sync"

// The process-wide default logger is an explicit slot: nothing sets it
// implicitly, and callers that want ambient access opt in with SetDefault.
var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// SetDefault stores l in the process-wide slot, returning the previous
// occupant, if any.
func SetDefault(l *Logger) *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultLogger
	defaultLogger = l
	return prev
}

// Default returns the process-wide logger, or nil if none was set.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultLogger
}

// ClearDefault empties the slot, returning the previous occupant, if any.
// The logger is not closed.
func ClearDefault() *Logger {
	return SetDefault(nil)
}

// Record forwards to the default logger. It's a no-op when the slot is
// empty.
func Record(logType, eventName string, details map[string]interface{}) {
	if l := Default(); l != nil {
		l.Record(logType, eventName, details)
	}
}

// Flush forwards to the default logger. It's a no-op when the slot is
// empty.
func Flush() error {
	if l := Default(); l != nil {
		return l.Flush()
	}
	return nil
}
