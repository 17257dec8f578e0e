package core

import (
	"sync"
	"time"

	"github.com/xiaopang/insight/internal/logger"
)

// NotificationLevel is the tone of a transient message.
type NotificationLevel string

const (
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
)

// Notification is a transient user-visible message about a mutation.
type Notification struct {
	ID      string            `json:"id"`
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
	At      time.Time         `json:"at"`
}

const defaultNotificationLimit = 20

// Notifier keeps the most recent notifications. Oldest entries fall off once
// the limit is reached.
type Notifier struct {
	mu    sync.Mutex
	items []Notification
	limit int
	log   *logger.Logger
	now   func() time.Time
}

// NewNotifier creates a notifier holding up to limit entries.
func NewNotifier(limit int, log *logger.Logger) *Notifier {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if log == nil {
		log = logger.Default()
	}
	return &Notifier{limit: limit, log: log, now: time.Now}
}

func (n *Notifier) push(level NotificationLevel, msg string) Notification {
	item := Notification{ID: generateID(), Level: level, Message: msg, At: n.now()}

	n.mu.Lock()
	n.items = append(n.items, item)
	if over := len(n.items) - n.limit; over > 0 {
		n.items = append([]Notification(nil), n.items[over:]...)
	}
	n.mu.Unlock()

	if level == NotifyError {
		n.log.Warn("notification", "message", msg)
	} else {
		n.log.Info("notification", "message", msg)
	}
	return item
}

// Success records a success message.
func (n *Notifier) Success(msg string) Notification { return n.push(NotifySuccess, msg) }

// Error records an error message.
func (n *Notifier) Error(msg string) Notification { return n.push(NotifyError, msg) }

// Recent returns a copy of the queued notifications, oldest first.
func (n *Notifier) Recent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.items...)
}

// Drain returns and clears the queue.
func (n *Notifier) Drain() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.items
	n.items = nil
	return out
}
