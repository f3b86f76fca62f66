package revenium

import "log"

// Logger is the leveled logging sink used by the middleware. A custom
// implementation can be supplied with WithLogger; the default writes through
// the standard library logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type stdLogger struct {
	debug bool
}

func newStdLogger(debug bool) *stdLogger {
	return &stdLogger{debug: debug}
}

// Debug logs a message at debug level (only when debug mode is enabled).
func (l *stdLogger) Debug(msg string, args ...any) {
	if l.debug {
		log.Printf("[revenium:debug] "+msg, args...)
	}
}

// Info logs a message at info level.
func (l *stdLogger) Info(msg string, args ...any) {
	log.Printf("[revenium:info] "+msg, args...)
}

// Warn logs a message at warn level.
func (l *stdLogger) Warn(msg string, args ...any) {
	log.Printf("[revenium:warn] "+msg, args...)
}

// Error logs a message at error level.
func (l *stdLogger) Error(msg string, args ...any) {
	log.Printf("[revenium:error] "+msg, args...)
}
