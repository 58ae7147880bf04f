package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls bus buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Bus asynchronously fans published events out to every subscribed sink.
// A nil *Bus is a valid no-op publisher, so callers never branch on the
// audit feature flag.
type Bus struct {
	cfg       Config
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once

	mu    sync.RWMutex
	sinks []Sink
}

func NewBus(cfg Config, sinks ...Sink) *Bus {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	b := &Bus{
		cfg:   cfg,
		ch:    make(chan Event, cfg.BufferSize),
		done:  make(chan struct{}),
		sinks: sinks,
	}

	b.wg.Add(1)
	go b.run()

	return b
}

// Subscribe adds a sink. Events published before the subscription are not
// replayed.
func (b *Bus) Subscribe(sink Sink) {
	if b == nil || sink == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	b.mu.Unlock()
}

func (b *Bus) run() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.ch:
			b.deliver(event)
		case <-b.done:
			for {
				select {
				case event := <-b.ch:
					b.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(event Event) {
	b.mu.RLock()
	sinks := b.sinks
	b.mu.RUnlock()
	for _, sink := range sinks {
		sink.Emit(context.Background(), event)
	}
}

// Publish stamps the event's ID and Timestamp if unset and enqueues it.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if b == nil || b.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = newEventID(event.Timestamp)
	}

	if b.cfg.DropIfFull {
		select {
		case b.ch <- event:
		case <-b.done:
		default:
			b.dropped.Add(1)
		}
		return
	}

	select {
	case b.ch <- event:
	case <-ctx.Done():
	case <-b.done:
	}
}

// Close drains the buffer into the sinks and stops the relay goroutine.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		close(b.done)
		b.wg.Wait()
	})
}

// Dropped reports how many events were discarded under drop-if-full.
func (b *Bus) Dropped() uint64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}
