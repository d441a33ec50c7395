package mdbcursor

import "sync/atomic"

// LoggerFunc is a callback function for logging (mdbx-go compatibility).
// args are alternating key/value pairs, as accepted by log/slog.
type LoggerFunc func(msg string, args ...any)

type loggerState struct {
	fn    LoggerFunc
	level LogLvl
}

// global logger settings
var globalLogger atomic.Pointer[loggerState]

func init() {
	globalLogger.Store(&loggerState{level: LogLvlWarn})
}

// SetLogger sets the logger function and level (mdbx-go compatibility).
// Returns the previous log level.
func SetLogger(logger LoggerFunc, level LogLvl) LogLvl {
	prev := globalLogger.Load()
	next := &loggerState{fn: logger, level: prev.level}
	if level != LogLvlDoNotChange {
		next.level = level
	}
	globalLogger.Store(next)
	return prev.level
}

// logAt emits msg when a logger is installed and level is enabled.
func logAt(level LogLvl, msg string, args ...any) {
	l := globalLogger.Load()
	if l.fn == nil || level > l.level {
		return
	}
	l.fn(msg, args...)
}

// trace logs cursor transitions at debug level.
func trace(msg string, args ...any) {
	logAt(LogLvlDebug, msg, args...)
}
