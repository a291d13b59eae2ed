package client

import (
	"encoding/json"
	"testing"
)

func TestEventHub_OnAndEmit(t *testing.T) {
	hub := NewEventHub(testLogger())

	var got []string
	hub.On(EventNewMessage, func(data json.RawMessage) {
		got = append(got, string(data))
	})
	hub.Emit(EventNewMessage, json.RawMessage(`{"id":"m1"}`))
	hub.Emit(EventOrderUpdated, json.RawMessage(`{"id":"o1"}`)) // different event, ignored

	if len(got) != 1 || got[0] != `{"id":"m1"}` {
		t.Errorf("unexpected deliveries: %v", got)
	}
}

func TestEventHub_Unsubscribe(t *testing.T) {
	hub := NewEventHub(testLogger())

	calls := 0
	off := hub.On(EventNewMessage, func(json.RawMessage) { calls++ })
	hub.Emit(EventNewMessage, nil)
	off()
	hub.Emit(EventNewMessage, nil)

	if calls != 1 {
		t.Errorf("expected 1 delivery after unsubscribe, got %d", calls)
	}
	if n := hub.ListenerCount(EventNewMessage); n != 0 {
		t.Errorf("expected 0 listeners, got %d", n)
	}
}

func TestEventHub_PanickingListenerIsIsolated(t *testing.T) {
	hub := NewEventHub(testLogger())

	delivered := false
	hub.On(EventNewMessage, func(json.RawMessage) { panic("listener bug") })
	hub.On(EventNewMessage, func(json.RawMessage) { delivered = true })

	hub.Emit(EventNewMessage, nil)

	if !delivered {
		t.Error("a panicking listener must not starve the others")
	}
}

func TestEventHub_EmitWithoutListeners(t *testing.T) {
	hub := NewEventHub(testLogger())
	// Must not panic or block.
	hub.Emit(EventUserTyping, json.RawMessage(`{}`))
}
