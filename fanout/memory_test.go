package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Envelope, 10)
	if err := bus.Subscribe(ctx, func(env Envelope) { got <- env }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for _, room := range []string{"conversation:1", "conversation:2", "conversation:3"} {
		env := Envelope{Origin: "a", Room: room, Payload: json.RawMessage(`{"op":"typing:start"}`)}
		if err := bus.Publish(ctx, env); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	for _, want := range []string{"conversation:1", "conversation:2", "conversation:3"} {
		select {
		case env := <-got:
			if env.Room != want {
				t.Fatalf("room = %s, want %s", env.Room, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestMemoryBusFansOutToEverySubscriber(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()
	ctx := context.Background()

	a := make(chan Envelope, 1)
	b := make(chan Envelope, 1)
	_ = bus.Subscribe(ctx, func(env Envelope) { a <- env })
	_ = bus.Subscribe(ctx, func(env Envelope) { b <- env })

	if err := bus.Publish(ctx, Envelope{Origin: "n1", Room: ""}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	for _, ch := range []chan Envelope{a, b} {
		select {
		case env := <-ch:
			if env.Origin != "n1" {
				t.Fatalf("origin = %s", env.Origin)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive envelope")
		}
	}
}

func TestMemoryBusClosed(t *testing.T) {
	bus := NewMemoryBus()
	bus.Close()

	if err := bus.Publish(context.Background(), Envelope{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Publish after close err = %v", err)
	}
	if err := bus.Subscribe(context.Background(), func(Envelope) {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Subscribe after close err = %v", err)
	}
}

func TestEnvelopeWireFormat(t *testing.T) {
	env := Envelope{
		Origin:       "node-a",
		Room:         "conversation:42",
		ExceptConnID: "c1",
		Payload:      json.RawMessage(`{"op":"typing:stop"}`),
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"origin":"node-a","room":"conversation:42","exceptConnId":"c1","payload":{"op":"typing:stop"}}`
	if string(data) != want {
		t.Fatalf("wire = %s\nwant  %s", data, want)
	}
}
