package feed

import (
	"sync"

	"github.com/rendis/denguemap/internal/model"
)

// Guard discards responses that arrive after their requester was torn down or
// superseded by a newer request. Each Begin invalidates earlier tickets.
type Guard struct {
	mu     sync.Mutex
	gen    uint64
	closed bool
}

// Ticket identifies one in-flight request.
type Ticket struct {
	g   *Guard
	gen uint64
}

// Begin starts a request; any older ticket stops being current.
func (g *Guard) Begin() Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	return Ticket{g: g, gen: g.gen}
}

// Current reports whether the response for t may still be applied.
func (t Ticket) Current() bool {
	if t.g == nil {
		return false
	}
	t.g.mu.Lock()
	defer t.g.mu.Unlock()
	return !t.g.closed && t.g.gen == t.gen
}

// Close marks the owner as gone. Every outstanding ticket becomes stale.
func (g *Guard) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

func (g *Guard) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Deliver passes r through when t is current and replaces it with ErrStale otherwise.
func Deliver[T any](t Ticket, r model.Result[T]) model.Result[T] {
	if !t.Current() {
		return model.Err[T](model.ErrStale)
	}
	return r
}
