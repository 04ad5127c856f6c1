package rate

import (
	"hash/maphash"
	"sync"
	"time"
)

const (
	defaultWindow   = 60 * time.Second
	defaultCapacity = 15
	defaultShards   = 32

	// sweepEvery is how many Allow calls a shard takes between sweeps of
	// identities whose window has emptied.
	sweepEvery = 1024
)

// Config holds sliding-window tuning parameters.
type Config struct {
	Window   time.Duration
	Capacity int
	Shards   int
	Now      func() time.Time
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type shard struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	calls   int
}

// Limiter admits at most Capacity requests per identity within any trailing
// Window. It is safe for concurrent use; calls for the same identity are
// serialized by the identity's shard lock.
type Limiter struct {
	config Config
	seed   maphash.Seed
	shards []*shard
}

// New creates a sliding-window [Limiter]. Zero values fall back to a 60s
// window, capacity 15, 32 shards and the wall clock.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.Shards <= 0 {
		cfg.Shards = defaultShards
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	shards := make([]*shard, cfg.Shards)
	for i := range shards {
		shards[i] = &shard{windows: make(map[string][]time.Time)}
	}

	return &Limiter{
		config: cfg,
		seed:   maphash.MakeSeed(),
		shards: shards,
	}
}

// Allow prunes the identity's log, then either records now and admits, or
// rejects without recording when the window is saturated.
func (l *Limiter) Allow(identity string) Decision {
	s := l.shardFor(identity)
	now := l.config.Now()
	cutoff := now.Add(-l.config.Window)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls >= sweepEvery {
		s.calls = 0
		s.sweep(cutoff)
	}

	log := prune(s.windows[identity], cutoff)

	if len(log) >= l.config.Capacity {
		s.windows[identity] = log
		retry := log[0].Add(l.config.Window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Decision{
			Allowed:    false,
			Limit:      l.config.Capacity,
			Remaining:  0,
			RetryAfter: retry,
		}
	}

	if log == nil {
		log = make([]time.Time, 0, l.config.Capacity)
	}
	log = append(log, now)
	s.windows[identity] = log

	return Decision{
		Allowed:   true,
		Limit:     l.config.Capacity,
		Remaining: l.config.Capacity - len(log),
	}
}

// Check is Allow reduced to an error: nil when admitted, ErrRateLimited otherwise.
func (l *Limiter) Check(identity string) error {
	if !l.Allow(identity).Allowed {
		return ErrRateLimited
	}
	return nil
}

// Count returns the number of admitted requests still inside the window for
// identity. Pruning happens as a side effect.
func (l *Limiter) Count(identity string) int {
	s := l.shardFor(identity)
	cutoff := l.config.Now().Add(-l.config.Window)

	s.mu.Lock()
	defer s.mu.Unlock()

	log := prune(s.windows[identity], cutoff)
	if len(log) == 0 {
		delete(s.windows, identity)
		return 0
	}
	s.windows[identity] = log
	return len(log)
}

// Reset forgets everything recorded for identity.
func (l *Limiter) Reset(identity string) {
	s := l.shardFor(identity)

	s.mu.Lock()
	delete(s.windows, identity)
	s.mu.Unlock()
}

// Len reports how many identities currently hold a window entry.
func (l *Limiter) Len() int {
	n := 0
	for _, s := range l.shards {
		s.mu.Lock()
		n += len(s.windows)
		s.mu.Unlock()
	}
	return n
}

// Window returns the configured window duration.
func (l *Limiter) Window() time.Duration {
	return l.config.Window
}

// Capacity returns the configured per-window capacity.
func (l *Limiter) Capacity() int {
	return l.config.Capacity
}

// sweep deletes every identity with nothing left inside the window. The map
// therefore holds only identities seen within roughly the last Window plus
// sweepEvery calls per shard.
func (s *shard) sweep(cutoff time.Time) {
	for id, log := range s.windows {
		if len(log) == 0 || !log[len(log)-1].After(cutoff) {
			delete(s.windows, id)
		}
	}
}

func (l *Limiter) shardFor(identity string) *shard {
	if len(l.shards) == 1 {
		return l.shards[0]
	}
	h := maphash.String(l.seed, identity)
	return l.shards[h%uint64(len(l.shards))]
}

// prune drops timestamps at or before cutoff. Logs are append-only in time
// order, so the retained suffix is contiguous.
func prune(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return log
	}
	if i == len(log) {
		return nil
	}
	out := make([]time.Time, len(log)-i, cap(log))
	copy(out, log[i:])
	return out
}
