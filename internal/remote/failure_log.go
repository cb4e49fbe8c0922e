package remote

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	failureQueueSize   = 32
	failurePostTimeout = 5 * time.Second
)

type failureEntry struct {
	userKey   string
	operation string
	message   string
}

// FailureLog forwards failed operations to the service without blocking the caller.
// Entries that arrive while the queue is full are dropped with a warning.
type FailureLog struct {
	client *Client
	logger *zap.Logger
	queue  chan failureEntry
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewFailureLog starts the background sender.
func NewFailureLog(client *Client, logger *zap.Logger) *FailureLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := &FailureLog{
		client: client,
		logger: logger,
		queue:  make(chan failureEntry, failureQueueSize),
		done:   make(chan struct{}),
	}
	go log.run()
	return log
}

// Log enqueues a failure record.
func (l *FailureLog) Log(userKey, operation string, err error) {
	if l == nil {
		return
	}
	message := ""
	if err != nil {
		message = err.Error()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		l.logger.Warn("failure log closed; dropping entry", zap.String("operation", operation))
		return
	}
	select {
	case l.queue <- failureEntry{userKey: userKey, operation: operation, message: message}:
	default:
		l.logger.Warn("failure log queue full; dropping entry", zap.String("operation", operation))
	}
}

// Close stops accepting entries and waits for queued ones to be sent or ctx to end.
func (l *FailureLog) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *FailureLog) run() {
	defer close(l.done)
	for entry := range l.queue {
		ctx, cancel := context.WithTimeout(context.Background(), failurePostTimeout)
		if err := l.client.PostLog(ctx, entry.operation, entry.message); err != nil {
			l.logger.Warn("failed to forward failure log",
				zap.String("user_key", entry.userKey),
				zap.String("operation", entry.operation),
				zap.Error(err))
		}
		cancel()
	}
}
