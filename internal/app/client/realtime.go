package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"
	"nhooyr.io/websocket"
)

// ChannelState is the realtime connection lifecycle state.
type ChannelState string

const (
	StateDisconnected        ChannelState = "disconnected"
	StateConnecting          ChannelState = "connecting"
	StateConnected           ChannelState = "connected"
	StateReconnecting        ChannelState = "reconnecting"
	StateError               ChannelState = "error"
	StateMaxAttemptsReached  ChannelState = "max_attempts_reached"
	StateNetworkDisconnected ChannelState = "network_disconnected"
)

const (
	reconnectBaseDelay   = 1 * time.Second
	reconnectMaxDelay    = 30 * time.Second
	maxReconnectAttempts = 5
)

var (
	ErrNoToken      = errors.New("realtime: no auth token")
	ErrOffline      = errors.New("realtime: device is offline")
	ErrNotConnected = errors.New("realtime: not connected")
)

// Frame is the wire envelope for both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// wsConn is the subset of the websocket connection the channel uses,
// extracted so tests can substitute a scripted connection.
type wsConn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Dialer opens a websocket connection to url authorized by token.
type Dialer func(ctx context.Context, url, token string) (wsConn, error)

type nhooyrConn struct {
	conn *websocket.Conn
}

func (c *nhooyrConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c *nhooyrConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *nhooyrConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "client disconnect")
}

// DialWebsocket is the production Dialer.
func DialWebsocket(ctx context.Context, url, token string) (wsConn, error) {
	wsURL := strings.Replace(url, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: map[string][]string{
			"Authorization": {"Bearer " + token},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return &nhooyrConn{conn: conn}, nil
}

// Channel maintains the realtime websocket connection: lifecycle state
// machine, exponential-backoff reconnects, room membership replay and
// event fan-out through the hub.
type Channel struct {
	url    string
	token  func() string
	online func() bool
	hub    *EventHub
	log    *slog.Logger

	dial  Dialer
	after func(time.Duration, func()) *time.Timer

	mu         gosync.Mutex
	state      ChannelState
	conn       wsConn
	attempts   int
	rooms      map[string]struct{}
	background bool
	cancelRead context.CancelFunc
	closed     bool
}

// NewChannel builds a disconnected channel. token and online are read
// lazily on every connect attempt so the channel follows auth and
// connectivity changes without rewiring.
func NewChannel(url string, token func() string, online func() bool, hub *EventHub, log *slog.Logger) *Channel {
	return &Channel{
		url:    url,
		token:  token,
		online: online,
		hub:    hub,
		log:    log,
		dial:   DialWebsocket,
		after:  time.AfterFunc,
		state:  StateDisconnected,
		rooms:  make(map[string]struct{}),
	}
}

// State returns the current lifecycle state.
func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether frames can be sent right now.
func (c *Channel) Connected() bool { return c.State() == StateConnected }

// backoffDelay is the reconnect delay before attempt n (0-based):
// 1s, 2s, 4s, 8s, ... capped at 30s.
func backoffDelay(attempts int) time.Duration {
	d := reconnectBaseDelay << uint(attempts)
	if d <= 0 || d > reconnectMaxDelay {
		return reconnectMaxDelay
	}
	return d
}

// Connect dials the server if a token is present and the device is
// online. On success joined rooms are replayed so a reconnect restores
// subscriptions transparently.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	token := c.token()
	if token == "" {
		c.state = StateDisconnected
		c.mu.Unlock()
		return ErrNoToken
	}
	if !c.online() {
		c.state = StateNetworkDisconnected
		c.mu.Unlock()
		return ErrOffline
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.dial(ctx, c.url, token)
	if err != nil {
		c.handleConnectError(err)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	readCtx, cancel := context.WithCancel(context.Background())
	c.cancelRead = cancel
	c.mu.Unlock()

	sort.Strings(rooms)
	for _, room := range rooms {
		c.send(readCtx, Frame{Event: joinEventFor(room), Data: roomPayload(room)})
	}

	c.log.Info("realtime connected", "url", c.url, "rooms", len(rooms))
	c.hub.Emit(EventSocketConnected, nil)

	go c.readLoop(readCtx, conn)
	return nil
}

// handleConnectError advances the attempt counter, terminating at
// max_attempts_reached or scheduling the next try with backoff.
func (c *Channel) handleConnectError(err error) {
	c.mu.Lock()
	c.attempts++
	attempts := c.attempts
	if attempts >= maxReconnectAttempts {
		c.state = StateMaxAttemptsReached
		c.mu.Unlock()
		c.log.Error("realtime gave up reconnecting", "attempts", attempts, "error", err)
		c.hub.Emit(EventSocketMaxAttempts, nil)
		return
	}
	c.state = StateError
	c.mu.Unlock()

	delay := backoffDelay(attempts)
	c.log.Warn("realtime connect failed", "attempt", attempts, "retry_in", delay, "error", err)
	c.hub.Emit(EventSocketError, nil)

	c.after(delay, func() {
		c.mu.Lock()
		retry := !c.closed && c.state == StateError
		if retry {
			c.state = StateReconnecting
		}
		c.mu.Unlock()
		if retry {
			c.Connect(context.Background())
		}
	})
}

// Reconnect resets the attempt counter and dials again. It is a no-op
// while connected or offline; the connectivity transition will call it
// again once the network is back.
func (c *Channel) Reconnect(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return
	}
	if !c.online() {
		c.state = StateNetworkDisconnected
		c.mu.Unlock()
		return
	}
	c.attempts = 0
	c.state = StateDisconnected
	c.mu.Unlock()

	c.Connect(ctx)
}

func (c *Channel) readLoop(ctx context.Context, conn wsConn) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			c.mu.Lock()
			if c.closed || c.conn != conn {
				c.mu.Unlock()
				return
			}
			c.conn = nil
			c.state = StateDisconnected
			offline := !c.online()
			if offline {
				c.state = StateNetworkDisconnected
			}
			c.mu.Unlock()

			c.log.Warn("realtime connection lost", "error", err)
			c.hub.Emit(EventSocketDisconnected, nil)
			if !offline {
				c.handleConnectError(err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.log.Warn("realtime frame decode failed", "error", err)
			continue
		}
		c.hub.Emit(Event(frame.Event), frame.Data)
	}
}

// send marshals and writes a frame, returning false when not connected.
func (c *Channel) send(ctx context.Context, frame Frame) bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return false
	}
	data, err := json.Marshal(frame)
	if err != nil {
		c.log.Error("realtime frame encode failed", "event", frame.Event, "error", err)
		return false
	}
	if err := conn.Write(ctx, data); err != nil {
		c.log.Warn("realtime write failed", "event", frame.Event, "error", err)
		return false
	}
	return true
}

func roomPayload(room string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"room": room})
	return data
}

// joinEventFor maps a room to the join event the server expects.
func joinEventFor(room string) string {
	switch {
	case strings.HasPrefix(room, "order:"):
		return "join_order_updates"
	case strings.HasPrefix(room, "delivery:"):
		return "join_delivery_tracking"
	default:
		return "join_chat"
	}
}

// joinRoom records membership unconditionally and emits the join frame
// when connected. Recording first means a join while disconnected is
// replayed by the next successful Connect.
func (c *Channel) joinRoom(ctx context.Context, room string) {
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
	c.send(ctx, Frame{Event: joinEventFor(room), Data: roomPayload(room)})
}

func (c *Channel) leaveRoom(ctx context.Context, room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
	c.send(ctx, Frame{Event: "leave_chat", Data: roomPayload(room)})
}

// JoinChat subscribes to a chat's message stream.
func (c *Channel) JoinChat(ctx context.Context, chatID string) {
	c.joinRoom(ctx, "chat:"+chatID)
}

// LeaveChat unsubscribes from a chat.
func (c *Channel) LeaveChat(ctx context.Context, chatID string) {
	c.leaveRoom(ctx, "chat:"+chatID)
}

// JoinOrderUpdates subscribes to status changes for an order.
func (c *Channel) JoinOrderUpdates(ctx context.Context, orderID string) {
	c.joinRoom(ctx, "order:"+orderID)
}

// JoinDeliveryTracking subscribes to courier position updates for a
// delivery.
func (c *Channel) JoinDeliveryTracking(ctx context.Context, deliveryID string) {
	c.joinRoom(ctx, "delivery:"+deliveryID)
}

// Rooms returns the recorded memberships, sorted.
func (c *Channel) Rooms() []string {
	c.mu.Lock()
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	c.mu.Unlock()
	sort.Strings(rooms)
	return rooms
}

// SendMessage pushes a chat message over the socket. A false return
// means the caller must rely on the sync queue for delivery.
func (c *Channel) SendMessage(ctx context.Context, chatID string, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("realtime message encode failed", "chat_id", chatID, "error", err)
		return false
	}
	return c.send(ctx, Frame{Event: "send_message", Data: data})
}

// MarkRead notifies the peer that messages in a chat were read.
func (c *Channel) MarkRead(ctx context.Context, chatID, messageID string) bool {
	data, _ := json.Marshal(map[string]string{"chatId": chatID, "messageId": messageID})
	return c.send(ctx, Frame{Event: "message_read", Data: data})
}

// StartTyping and StopTyping are fire-and-forget indicators.
func (c *Channel) StartTyping(ctx context.Context, chatID string) {
	c.send(ctx, Frame{Event: "typing_start", Data: roomPayload("chat:"+chatID)})
}

func (c *Channel) StopTyping(ctx context.Context, chatID string) {
	c.send(ctx, Frame{Event: "typing_stop", Data: roomPayload("chat:"+chatID)})
}

// SendDeliveryLocation publishes a courier position (courier role).
func (c *Channel) SendDeliveryLocation(ctx context.Context, deliveryID string, lat, lng float64) bool {
	data, _ := json.Marshal(map[string]any{"deliveryId": deliveryID, "latitude": lat, "longitude": lng})
	return c.send(ctx, Frame{Event: "delivery_location_update", Data: data})
}

// EnterBackground flags presence away without dropping the socket:
// messages keep arriving while the app is backgrounded.
func (c *Channel) EnterBackground(ctx context.Context) {
	c.mu.Lock()
	c.background = true
	c.mu.Unlock()
	data, _ := json.Marshal(map[string]string{"status": "away"})
	c.send(ctx, Frame{Event: "user_status_update", Data: data})
}

// EnterForeground restores presence, reconnecting first if the socket
// dropped while backgrounded.
func (c *Channel) EnterForeground(ctx context.Context) {
	c.mu.Lock()
	c.background = false
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected {
		c.Reconnect(ctx)
		return
	}
	data, _ := json.Marshal(map[string]string{"status": "online"})
	c.send(ctx, Frame{Event: "user_status_update", Data: data})
}

// Close tears the channel down for good; no reconnects follow.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = StateDisconnected
	conn := c.conn
	c.conn = nil
	if c.cancelRead != nil {
		c.cancelRead()
		c.cancelRead = nil
	}
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}
