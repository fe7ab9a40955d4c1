package app

import (
	"sync"

	"github.com/pscheid92/agromarket/internal/domain"
)

// subscriber holds at most one pending snapshot. A newer snapshot replaces
// the pending one instead of queueing behind it.
type subscriber struct {
	ch chan domain.Session

	mu     sync.Mutex
	last   uint64
	seen   bool
	closed bool
}

func newSubscriber() *subscriber {
	return &subscriber{ch: make(chan domain.Session, 1)}
}

// offer never blocks. Snapshots older than the last offered one are dropped.
func (sub *subscriber) offer(snap domain.Session) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.closed || (sub.seen && snap.Version <= sub.last) {
		return
	}
	sub.seen = true
	sub.last = snap.Version

	select {
	case <-sub.ch:
	default:
	}
	// Only offer sends, under mu, so the buffer has room now.
	sub.ch <- snap
}

func (sub *subscriber) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}
