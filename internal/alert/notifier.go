// Package alert handles sending operator notifications.
package alert

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notifier is the interface for sending alert messages.
type Notifier interface {
	Send(message string) error
	Close() error
}

// NoOpNotifier is a notifier that does nothing. It is used when alerting is disabled.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send does nothing and returns nil.
func (n *NoOpNotifier) Send(message string) error {
	return nil
}

// Close does nothing and returns nil.
func (n *NoOpNotifier) Close() error {
	return nil
}

// LogNotifier buffers alert messages and flushes them to the log on an
// interval, so a burst of failures produces one combined report instead
// of a line per message.
type LogNotifier struct {
	log            *zap.Logger
	bufferInterval time.Duration

	mu     sync.Mutex
	buffer []string
	done   chan struct{}
	once   sync.Once
}

// NewLogNotifier creates a notifier that writes buffered reports through
// the given logger. A non-positive interval disables buffering and every
// message is logged immediately.
func NewLogNotifier(log *zap.Logger, bufferInterval time.Duration) *LogNotifier {
	n := &LogNotifier{
		log:            log,
		bufferInterval: bufferInterval,
		done:           make(chan struct{}),
	}
	if bufferInterval > 0 {
		go n.flushLoop()
	}
	return n
}

// Send queues the message for the next flush, or logs it immediately when
// buffering is disabled.
func (n *LogNotifier) Send(message string) error {
	if n.bufferInterval <= 0 {
		n.log.Warn("alert", zap.String("message", message))
		return nil
	}
	n.mu.Lock()
	n.buffer = append(n.buffer, message)
	n.mu.Unlock()
	return nil
}

// Close flushes any pending messages and stops the flush loop.
func (n *LogNotifier) Close() error {
	n.once.Do(func() { close(n.done) })
	n.flush()
	return nil
}

func (n *LogNotifier) flushLoop() {
	ticker := time.NewTicker(n.bufferInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n.flush()
		case <-n.done:
			return
		}
	}
}

func (n *LogNotifier) flush() {
	n.mu.Lock()
	pending := n.buffer
	n.buffer = nil
	n.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	n.log.Warn("alert report",
		zap.Int("count", len(pending)),
		zap.String("messages", strings.Join(pending, "\n")),
	)
}
