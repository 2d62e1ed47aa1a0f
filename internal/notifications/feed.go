package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notice is one user-facing message, typically a rollback report.
type Notice struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Feed keeps the most recent notices in memory so API clients can poll them.
type Feed struct {
	mu      sync.Mutex
	limit   int
	notices []Notice
	now     func() time.Time
}

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 50
	}
	return &Feed{limit: limit, now: time.Now}
}

func (f *Feed) Notify(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.notices = append(f.notices, Notice{
		ID:      uuid.NewString(),
		Time:    f.now().UTC(),
		Message: msg,
	})
	if over := len(f.notices) - f.limit; over > 0 {
		f.notices = append([]Notice(nil), f.notices[over:]...)
	}
}

// Recent returns notices newest first.
func (f *Feed) Recent() []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Notice, len(f.notices))
	for i, n := range f.notices {
		out[len(out)-1-i] = n
	}
	return out
}

type Notifier interface {
	Notify(msg string)
}

// Fanout delivers every notice to each of its targets in order.
type Fanout []Notifier

func (f Fanout) Notify(msg string) {
	for _, n := range f {
		n.Notify(msg)
	}
}
