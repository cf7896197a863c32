package selection

import (
	"sync"
	"testing"
	"time"
)

func TestDebouncerOnlyLatestSettles(t *testing.T) {
	d := NewDebouncer(time.Second)
	t1 := d.Submit("fa")
	t2 := d.Submit("fair")

	if _, ok := d.Settle(t1); ok {
		t.Error("superseded ticket settled")
	}
	v, ok := d.Settle(t2)
	if !ok || v != "fair" {
		t.Fatalf("Settle(latest) = %q, %v", v, ok)
	}
	if _, ok := d.Settle(t2); ok {
		t.Error("ticket settled twice")
	}
}

func TestDebouncerRunCollapsesBurst(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var mu sync.Mutex
	var got []string
	done := make(chan struct{}, 4)
	fn := func(v string) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		done <- struct{}{}
	}

	for _, v := range []string{"c", "co", "com", "comm"} {
		d.Run(v, fn)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced callback never fired")
	}
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "comm" {
		t.Errorf("calls = %v, want [comm]", got)
	}
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	fired := make(chan string, 1)
	d.Run("x", func(v string) { fired <- v })
	d.Stop()

	select {
	case v := <-fired:
		t.Errorf("stopped debouncer fired %q", v)
	case <-time.After(50 * time.Millisecond):
	}
}
