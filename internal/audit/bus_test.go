package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestBusFansOutToAllSinks(t *testing.T) {
	a := NewChannelSink(4)
	b := NewChannelSink(4)
	bus := NewBus(Config{Enabled: true, BufferSize: 8}, a)
	bus.Subscribe(b)

	bus.Publish(context.Background(), Event{Type: TypeLogin, UserID: "u-1", Success: true})
	bus.Close()

	for name, sink := range map[string]*ChannelSink{"first": a, "second": b} {
		select {
		case ev := <-sink.Events():
			if ev.Type != TypeLogin || ev.UserID != "u-1" {
				t.Fatalf("%s sink got %+v", name, ev)
			}
			if ev.ID == "" || ev.Timestamp.IsZero() {
				t.Fatalf("%s sink: id/timestamp not stamped: %+v", name, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s sink never received the event", name)
		}
	}
}

func TestBusIDsAreSortable(t *testing.T) {
	sink := NewChannelSink(8)
	bus := NewBus(Config{Enabled: true, BufferSize: 8}, sink)

	bus.Publish(context.Background(), Event{Type: TypeLogin})
	bus.Publish(context.Background(), Event{Type: TypeLogout})
	bus.Close()

	first := <-sink.Events()
	second := <-sink.Events()
	if first.ID >= second.ID {
		t.Fatalf("ulid ids must be monotonic: %q vs %q", first.ID, second.ID)
	}
}

func TestNilBusIsNoOp(t *testing.T) {
	var bus *Bus
	bus.Publish(context.Background(), Event{Type: TypeLogin})
	bus.Close()
	if got := bus.Dropped(); got != 0 {
		t.Fatalf("nil bus dropped %d", got)
	}

	if bus := NewBus(Config{Enabled: false}); bus != nil {
		t.Fatalf("disabled config must return nil bus")
	}
}

func TestBusDropIfFull(t *testing.T) {
	// No relay goroutine drains the channel, so the second publish overflows.
	bus := &Bus{
		cfg:  Config{Enabled: true, BufferSize: 1, DropIfFull: true},
		ch:   make(chan Event, 1),
		done: make(chan struct{}),
	}

	bus.Publish(context.Background(), Event{Type: TypeLogin})
	bus.Publish(context.Background(), Event{Type: TypeLogin})
	if got := bus.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped event, got %d", got)
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{ID: "01J", Type: TypePasswordChange, UserID: "u-1", Success: true})
	sink.Emit(context.Background(), Event{ID: "01K", Type: TypeSessionExpire, SessionID: "s-1"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != TypePasswordChange || !ev.Success {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
