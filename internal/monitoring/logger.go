// Package monitoring holds the process-wide diagnostic loggers. Every
// component logs through Logf (and Debugf for verbose traces) so that the
// CLI, the remote service and tests can redirect or mute output in one place.
package monitoring

import (
	"log"
	"sync/atomic"
)

// LogFunc is the signature of the diagnostic loggers.
type LogFunc func(format string, v ...interface{})

// current holds the active logger. Services log from their own goroutines
// while the CLI swaps the logger, so access is atomic.
var current atomic.Pointer[LogFunc]

func init() {
	SetLogger(log.Printf)
}

// Logf logs through the current logger, log.Printf unless SetLogger
// replaced it.
func Logf(format string, v ...interface{}) {
	(*current.Load())(format, v...)
}

// Logger returns the current logger so tests can restore it.
func Logger() LogFunc {
	return *current.Load()
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f LogFunc) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	current.Store(&f)
}

var debug atomic.Bool

// SetDebug enables or disables Debugf output.
func SetDebug(on bool) {
	debug.Store(on)
}

// DebugEnabled reports whether Debugf currently emits anything.
func DebugEnabled() bool {
	return debug.Load()
}

// Debugf logs through Logf only when debug output is enabled.
func Debugf(format string, v ...interface{}) {
	if !debug.Load() {
		return
	}
	Logf("[debug] "+format, v...)
}

// Prefixed returns a logger that prepends a bracketed component tag,
// e.g. Prefixed("pipeline")("stage %s", name) logs "[pipeline] stage ...".
func Prefixed(component string) LogFunc {
	prefix := "[" + component + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
