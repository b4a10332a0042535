// Package notify collects short-lived user-facing notices (errors, warnings,
// confirmations) for the UI to display as toasts.
package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Level classifies a notice.
type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notice is one message queued for display.
type Notice struct {
	ID      uuid.UUID
	Level   Level
	Message string
	At      time.Time
}

// Center accumulates notices between UI frames. Owned by the UI thread.
type Center struct {
	logger  *logrus.Logger
	pending []Notice
}

// NewCenter creates an empty notification center.
func NewCenter(logger *logrus.Logger) *Center {
	return &Center{logger: logger}
}

// Push queues a notice and mirrors it to the log at the matching level.
func (c *Center) Push(level Level, message string) {
	c.pending = append(c.pending, Notice{
		ID:      uuid.New(),
		Level:   level,
		Message: message,
		At:      time.Now(),
	})

	entry := c.logger.WithField("notice", message)
	switch level {
	case Error:
		entry.Error("Notification")
	case Warning:
		entry.Warn("Notification")
	default:
		entry.Info("Notification")
	}
}

// Drain returns all pending notices and clears the queue.
func (c *Center) Drain() []Notice {
	pending := c.pending
	c.pending = nil
	return pending
}
