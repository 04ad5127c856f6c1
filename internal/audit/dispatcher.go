package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit return at once when the buffer is full. Otherwise
	// Emit waits for space or for the caller's context to end.
	DropIfFull bool
	// Now stamps events that arrive without a Timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Dispatcher stamps intake events with request context and hands them to a
// sink on its own goroutine, so a slow sink never delays a validation.
type Dispatcher struct {
	cfg  Config
	sink Sink
	ch   chan Event
	done chan struct{}
	wg   sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once

	dropped     atomic.Uint64
	mu          sync.Mutex
	droppedType map[string]uint64
	sinkPanics  atomic.Uint64
}

// NewDispatcher returns nil when auditing is disabled; every method of a nil
// Dispatcher is a no-op.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:         cfg,
		sink:        sink,
		ch:          make(chan Event, cfg.BufferSize),
		done:        make(chan struct{}),
		droppedType: make(map[string]uint64),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case ev := <-d.ch:
			d.deliver(ev)
		case <-d.done:
			// drain what was queued before Close
			for {
				select {
				case ev := <-d.ch:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if recover() != nil {
			d.sinkPanics.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), ev)
}

// Emit fills in the timestamp, request id and client IP from ctx when the
// event lacks them, then queues it. Events emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.enrich(ctx, &ev)

	if d.cfg.DropIfFull {
		select {
		case d.ch <- ev:
		case <-d.done:
		default:
			d.drop(ev.EventType)
		}
		return
	}

	select {
	case d.ch <- ev:
	case <-ctx.Done():
		d.drop(ev.EventType)
	case <-d.done:
	}
}

func (d *Dispatcher) enrich(ctx context.Context, ev *Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = d.cfg.Now().UTC()
	}
	if ev.RequestID == "" {
		ev.RequestID = RequestID(ctx)
	}
	if ev.IP == "" {
		ev.IP = ClientIP(ctx)
	}
}

func (d *Dispatcher) drop(eventType string) {
	d.dropped.Add(1)
	d.mu.Lock()
	d.droppedType[eventType]++
	d.mu.Unlock()
}

// Close stops accepting events and waits until the queue is drained.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports events lost to a full buffer or an expired caller context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType splits Dropped by event type. The map is a copy.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := make(map[string]uint64)
	if d == nil {
		return out
	}
	d.mu.Lock()
	for k, v := range d.droppedType {
		out[k] = v
	}
	d.mu.Unlock()
	return out
}

// SinkPanics counts events whose delivery panicked inside the sink.
func (d *Dispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.sinkPanics.Load()
}
