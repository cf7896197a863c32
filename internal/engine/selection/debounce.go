package selection

import (
	"sync"
	"time"
)

// Ticket identifies one submission to a Debouncer.
type Ticket uint64

// Debouncer collapses bursts of search input into the last value. Hosts with
// their own timer facility (e.g. a UI tick) call Submit and later Settle with
// the returned ticket; others use Run.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	seq     Ticket
	value   string
	settled bool
	timer   *time.Timer
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, settled: true}
}

func (d *Debouncer) Delay() time.Duration { return d.delay }

// Submit records value as the latest input and returns its ticket.
func (d *Debouncer) Submit(value string) Ticket {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	d.value = value
	d.settled = false
	return d.seq
}

// Settle returns the value for t if t is still the latest submission and has
// not been settled before.
func (d *Debouncer) Settle(t Ticket) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t != d.seq || d.settled {
		return "", false
	}
	d.settled = true
	return d.value, true
}

// Run submits value and calls fn with it after the delay, unless another value
// arrives first. fn runs on a timer goroutine.
func (d *Debouncer) Run(value string, fn func(string)) {
	t := d.Submit(value)
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		if v, ok := d.Settle(t); ok {
			fn(v)
		}
	})
	d.mu.Unlock()
}

// Stop cancels any scheduled Run callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.settled = true
}
