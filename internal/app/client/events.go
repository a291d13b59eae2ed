package client

import (
	"encoding/json"
	gosync "sync"

	"golang.org/x/exp/slog"
)

// Event names carried over the realtime channel. Server-emitted events
// feed the cache; socket_* events report channel lifecycle to the UI.
type Event string

const (
	EventNewMessage              Event = "new_message"
	EventMessageRead             Event = "message_read"
	EventUserTyping              Event = "user_typing"
	EventUserStoppedTyping       Event = "user_stopped_typing"
	EventOrderUpdated            Event = "order_updated"
	EventDeliveryUpdated         Event = "delivery_updated"
	EventDeliveryLocationUpdated Event = "delivery_location_updated"
	EventUserStatusUpdated       Event = "user_status_updated"
	EventPendingNotifications    Event = "pending_notifications"

	EventSocketConnected    Event = "socket_connected"
	EventSocketDisconnected Event = "socket_disconnected"
	EventSocketError        Event = "socket_error"
	EventSocketMaxAttempts  Event = "socket_max_attempts"
)

// Listener receives the raw JSON payload of an event.
type Listener func(data json.RawMessage)

// EventHub is a minimal synchronous pub/sub. Listener panics are
// recovered per listener so one broken subscriber cannot take down
// delivery to the others or the emitting goroutine.
type EventHub struct {
	log *slog.Logger

	mu        gosync.RWMutex
	nextID    int
	listeners map[Event]map[int]Listener
}

func NewEventHub(log *slog.Logger) *EventHub {
	return &EventHub{
		log:       log,
		listeners: make(map[Event]map[int]Listener),
	}
}

// On registers a listener and returns its unsubscribe function.
// Unsubscribing twice is harmless.
func (h *EventHub) On(ev Event, fn Listener) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	if h.listeners[ev] == nil {
		h.listeners[ev] = make(map[int]Listener)
	}
	h.listeners[ev][id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners[ev], id)
	}
}

// Emit delivers data to every listener of ev. Delivery order between
// listeners is unspecified. Emitting with no listeners is a no-op.
func (h *EventHub) Emit(ev Event, data json.RawMessage) {
	h.mu.RLock()
	fns := make([]Listener, 0, len(h.listeners[ev]))
	for _, fn := range h.listeners[ev] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		h.dispatch(ev, fn, data)
	}
}

func (h *EventHub) dispatch(ev Event, fn Listener, data json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("event listener panicked", "event", string(ev), "panic", r)
		}
	}()
	fn(data)
}

// ListenerCount is used by tests and the status command.
func (h *EventHub) ListenerCount(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[ev])
}
