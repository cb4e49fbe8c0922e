package logging

import "go.uber.org/zap"

// FailureLogger records failed client operations in the structured log.
type FailureLogger struct {
	logger *zap.Logger
}

// NewFailureLogger wraps logger; a nil logger discards entries.
func NewFailureLogger(logger *zap.Logger) *FailureLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailureLogger{logger: logger}
}

// Log writes one warning per failed operation.
func (l *FailureLogger) Log(userKey, operation string, err error) {
	l.logger.Warn("operation failed",
		zap.String("user_key", userKey),
		zap.String("operation", operation),
		zap.Error(err))
}

// FanOut forwards each failure to every wrapped log.
type FanOut []interface {
	Log(userKey, operation string, err error)
}

// Log forwards to every wrapped log in order.
func (f FanOut) Log(userKey, operation string, err error) {
	for _, target := range f {
		if target != nil {
			target.Log(userKey, operation, err)
		}
	}
}
