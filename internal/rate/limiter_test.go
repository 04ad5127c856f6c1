package rate

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiterAdmitsUpToCapacity(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Window: time.Minute, Capacity: 15, Now: clock.Now})

	for i := 0; i < 15; i++ {
		d := l.Allow("10.0.0.1")
		if !d.Allowed {
			t.Fatalf("request %d rejected, expected admit", i+1)
		}
		if d.Remaining != 15-(i+1) {
			t.Fatalf("request %d: expected remaining %d, got %d", i+1, 15-(i+1), d.Remaining)
		}
		clock.Advance(time.Second)
	}

	d := l.Allow("10.0.0.1")
	if d.Allowed {
		t.Fatal("16th request within the window must be rejected")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("unexpected retry-after %v", d.RetryAfter)
	}
}

func TestLimiterRejectionIsNotRecorded(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Window: time.Minute, Capacity: 2, Now: clock.Now})

	l.Allow("a")
	l.Allow("a")
	for i := 0; i < 10; i++ {
		if l.Allow("a").Allowed {
			t.Fatal("expected rejection")
		}
	}
	if got := l.Count("a"); got != 2 {
		t.Fatalf("rejected calls must not be recorded, count=%d", got)
	}
}

func TestLimiterReadmitsAfterWindowElapses(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Window: time.Minute, Capacity: 3, Now: clock.Now})

	for i := 0; i < 3; i++ {
		l.Allow("a")
	}
	if l.Allow("a").Allowed {
		t.Fatal("expected saturation")
	}

	clock.Advance(time.Minute)
	if !l.Allow("a").Allowed {
		t.Fatal("expected identity to be admitted once the window elapsed")
	}
}

func TestLimiterSlidesRatherThanResets(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Window: time.Minute, Capacity: 2, Now: clock.Now})

	l.Allow("a") // t=0
	clock.Advance(40 * time.Second)
	l.Allow("a") // t=40
	clock.Advance(30 * time.Second)

	// t=70: the t=0 entry left the window, t=40 remains.
	if !l.Allow("a").Allowed {
		t.Fatal("expected one free slot at t=70")
	}
	if l.Allow("a").Allowed {
		t.Fatal("expected saturation at t=70 with entries at 40 and 70")
	}
}

func TestLimiterIdentitiesAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Window: time.Minute, Capacity: 1, Now: clock.Now})

	if !l.Allow("a").Allowed {
		t.Fatal("a should be admitted")
	}
	if !l.Allow("b").Allowed {
		t.Fatal("b should be admitted independently of a")
	}
	if l.Allow("a").Allowed {
		t.Fatal("a should be saturated")
	}
	if got := l.Len(); got != 2 {
		t.Fatalf("expected 2 tracked identities, got %d", got)
	}
}

func TestLimiterCheckReturnsSentinel(t *testing.T) {
	l := New(Config{Window: time.Minute, Capacity: 1})
	if err := l.Check("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Check("a"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestLimiterCountDropsEmptyWindows(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Window: time.Minute, Capacity: 5, Now: clock.Now})

	l.Allow("a")
	clock.Advance(2 * time.Minute)
	if got := l.Count("a"); got != 0 {
		t.Fatalf("expected empty window, got %d", got)
	}
	if got := l.Len(); got != 0 {
		t.Fatalf("expected empty identity to be dropped, len=%d", got)
	}
}

func TestLimiterReset(t *testing.T) {
	l := New(Config{Window: time.Minute, Capacity: 1})
	l.Allow("a")
	l.Reset("a")
	if !l.Allow("a").Allowed {
		t.Fatal("expected admit after reset")
	}
}

func TestLimiterDefaults(t *testing.T) {
	l := New(Config{})
	if l.Window() != 60*time.Second {
		t.Fatalf("unexpected default window %v", l.Window())
	}
	if l.Capacity() != 15 {
		t.Fatalf("unexpected default capacity %d", l.Capacity())
	}
}

func TestLimiterConcurrentSameIdentityNeverExceedsCapacity(t *testing.T) {
	const (
		capacity = 15
		workers  = 64
	)
	l := New(Config{Window: time.Hour, Capacity: capacity})

	var (
		admitted atomic.Int64
		start    = make(chan struct{})
		wg       sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if l.Allow("same-ip").Allowed {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := admitted.Load(); got != capacity {
		t.Fatalf("expected exactly %d admissions, got %d", capacity, got)
	}
}

func TestLimiterConcurrentDistinctIdentities(t *testing.T) {
	l := New(Config{Window: time.Hour, Capacity: 3, Shards: 4})

	var wg sync.WaitGroup
	var admitted atomic.Int64
	for i := 0; i < 50; i++ {
		id := string(rune('A' + i%26))
		wg.Add(1)
		go func(identity string) {
			defer wg.Done()
			if l.Allow(identity).Allowed {
				admitted.Add(1)
			}
		}(id + "-" + string(rune('a'+i/26)))
	}
	wg.Wait()

	if got := admitted.Load(); got != 50 {
		t.Fatalf("distinct identities should all be admitted, got %d", got)
	}
}

func TestLimiterSweepsIdleIdentities(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Window: time.Minute, Capacity: 5, Shards: 1, Now: clock.Now})

	for i := 0; i < 500; i++ {
		l.Allow(fmt.Sprintf("198.51.100.%d", i))
	}
	if got := l.Len(); got != 500 {
		t.Fatalf("expected 500 tracked identities, got %d", got)
	}

	clock.Advance(2 * time.Minute)
	for i := 0; i < sweepEvery; i++ {
		l.Allow("192.0.2.10")
	}

	if got := l.Len(); got != 1 {
		t.Fatalf("expected only the live identity after a sweep, got %d", got)
	}
	if got := l.Count("192.0.2.10"); got != 5 {
		t.Fatalf("sweep must keep live windows intact, count=%d", got)
	}
}

func TestLimiterSweepKeepsSaturatedIdentities(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Window: time.Minute, Capacity: 2, Shards: 1, Now: clock.Now})

	l.Allow("blocked")
	l.Allow("blocked")
	for i := 0; i < sweepEvery; i++ {
		l.Allow(fmt.Sprintf("other-%d", i))
	}

	if l.Allow("blocked").Allowed {
		t.Fatal("a sweep must not reopen a saturated window")
	}
}
