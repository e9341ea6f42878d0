package locations

import (
	"sync"
	"time"
)

// Notification is a short-lived user-facing message, the server-side
// analogue of a toast.
type Notification struct {
	Level   string    `json:"level"` // "info" or "error"
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier receives user-facing notifications emitted by store operations.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// RingNotifier keeps the most recent notifications in memory until the
// presentation layer drains them.
type RingNotifier struct {
	mu    sync.Mutex
	max   int
	items []Notification
}

// NewRingNotifier creates a notifier retaining at most max entries.
func NewRingNotifier(max int) *RingNotifier {
	if max <= 0 {
		max = 64
	}
	return &RingNotifier{max: max}
}

func (r *RingNotifier) Info(msg string)  { r.add("info", msg) }
func (r *RingNotifier) Error(msg string) { r.add("error", msg) }

func (r *RingNotifier) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, Notification{Level: level, Message: msg, At: time.Now().UTC()})
	if len(r.items) > r.max {
		r.items = r.items[len(r.items)-r.max:]
	}
}

// Drain returns all pending notifications and clears the buffer.
func (r *RingNotifier) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.items
	r.items = nil
	return out
}
