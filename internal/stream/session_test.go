package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionPublishAndSubscribe(t *testing.T) {
	session := NewSession(context.Background(), Config{})
	session.MarkOpen()

	session.Publish(&Event{Direction: DirSend, Payload: []byte("hello")})

	listener := session.Subscribe()
	defer listener.Cancel()

	if len(listener.Snapshot.Events) != 1 {
		t.Fatalf("expected snapshot with 1 event, got %d", len(listener.Snapshot.Events))
	}
	if listener.Snapshot.State != StateOpen {
		t.Fatalf("expected open state, got %d", listener.Snapshot.State)
	}

	session.Publish(&Event{Direction: DirReceive, Payload: []byte("world")})
	select {
	case evt := <-listener.C:
		if string(evt.Payload) != "world" {
			t.Fatalf("unexpected payload %q", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSessionCloseClosesListeners(t *testing.T) {
	session := NewSession(context.Background(), Config{})
	listener := session.Subscribe()

	session.Close(nil)

	select {
	case _, ok := <-listener.C:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("listener channel not closed")
	}

	state, err := session.State()
	if state != StateClosed || err != nil {
		t.Fatalf("expected clean close, got state=%d err=%v", state, err)
	}

	select {
	case <-session.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestSessionCloseWithError(t *testing.T) {
	session := NewSession(context.Background(), Config{})
	boom := errors.New("read failed")
	session.Close(boom)

	state, err := session.State()
	if state != StateFailed {
		t.Fatalf("expected failed state, got %d", state)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected stored error, got %v", err)
	}
}

func TestSessionEventSequencing(t *testing.T) {
	session := NewSession(context.Background(), Config{})
	session.Publish(&Event{Direction: DirSend})
	session.Publish(&Event{Direction: DirSend})

	events := session.EventsSnapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Sequence >= events[1].Sequence {
		t.Fatal("sequence numbers should be increasing")
	}
	if events[0].Timestamp.IsZero() {
		t.Fatal("publish should stamp missing timestamps")
	}
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	rb := newRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.append(&Event{Sequence: uint64(i + 1)})
	}
	got := rb.snapshot()
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Sequence != 3 || got[2].Sequence != 5 {
		t.Fatalf("expected sequences 3..5, got %d..%d", got[0].Sequence, got[2].Sequence)
	}
}

func TestSessionCancelPropagates(t *testing.T) {
	session := NewSession(context.Background(), Config{})
	session.Cancel()
	select {
	case <-session.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("session context should be cancelled")
	}
}
