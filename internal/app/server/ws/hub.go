package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	gosync "sync"

	"golang.org/x/exp/slog"
	"nhooyr.io/websocket"

	"vgsync/internal/app/server/store"
	"vgsync/internal/domain/chat"
)

// frame is the wire envelope, matching the client's realtime format.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Validator resolves a bearer token to a user id.
type Validator func(token string) (string, error)

type client struct {
	conn   *websocket.Conn
	userID string

	mu    gosync.Mutex
	rooms map[string]struct{}
}

func (c *client) write(ctx context.Context, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// Hub accepts websocket connections, tracks room membership and fans
// server events out to subscribed clients.
type Hub struct {
	store    *store.Store
	validate Validator
	log      *slog.Logger

	mu      gosync.RWMutex
	clients map[*client]struct{}
}

func NewHub(st *store.Store, validate Validator, log *slog.Logger) *Hub {
	h := &Hub{
		store:    st,
		validate: validate,
		log:      log.With(slog.String("component", "ws_hub")),
		clients:  make(map[*client]struct{}),
	}

	// Messages committed through batch sync reach rooms the same way
	// as messages sent over the socket.
	st.OnMessage(func(m chat.Message) {
		data, err := json.Marshal(m)
		if err != nil {
			return
		}
		h.Broadcast("chat:"+m.ChatID, frame{Event: "new_message", Data: data}, nil)
	})

	return h
}

// ServeHTTP upgrades the request and runs the connection until it
// drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		token = strings.TrimPrefix(header, "Bearer ")
	}

	userID, err := h.validate(token)
	if err != nil {
		h.log.Warn("websocket auth failed", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err)
		return
	}

	cl := &client{
		conn:   conn,
		userID: userID,
		rooms:  make(map[string]struct{}),
	}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Info("websocket connected", "user_id", userID, "total", total)

	ctx := r.Context()
	h.deliverPending(ctx, cl)
	h.readLoop(ctx, cl)

	h.mu.Lock()
	delete(h.clients, cl)
	total = len(h.clients)
	h.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "")
	h.log.Info("websocket disconnected", "user_id", userID, "total", total)
}

// deliverPending pushes unread notifications on connect, the
// store-and-forward half of offline support.
func (h *Hub) deliverPending(ctx context.Context, cl *client) {
	pending := h.store.NotificationsFor(cl.userID)
	if len(pending) == 0 {
		return
	}
	data, err := json.Marshal(pending)
	if err != nil {
		return
	}
	if err := cl.write(ctx, frame{Event: "pending_notifications", Data: data}); err != nil {
		h.log.Warn("pending notifications delivery failed", "user_id", cl.userID, "error", err)
	}
}

func (h *Hub) readLoop(ctx context.Context, cl *client) {
	for {
		_, data, err := cl.conn.Read(ctx)
		if err != nil {
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			h.log.Warn("bad frame", "user_id", cl.userID, "error", err)
			continue
		}
		h.handleFrame(ctx, cl, f)
	}
}

func (h *Hub) handleFrame(ctx context.Context, cl *client, f frame) {
	switch f.Event {
	case "join_chat", "join_order_updates", "join_delivery_tracking":
		var p struct {
			Room string `json:"room"`
		}
		if json.Unmarshal(f.Data, &p) != nil || p.Room == "" {
			return
		}
		cl.mu.Lock()
		cl.rooms[p.Room] = struct{}{}
		cl.mu.Unlock()

	case "leave_chat":
		var p struct {
			Room string `json:"room"`
		}
		if json.Unmarshal(f.Data, &p) != nil {
			return
		}
		cl.mu.Lock()
		delete(cl.rooms, p.Room)
		cl.mu.Unlock()

	case "send_message":
		var m chat.Message
		if json.Unmarshal(f.Data, &m) != nil || m.ChatID == "" {
			return
		}
		m.SenderID = cl.userID
		// Commit through the store; the OnMessage hook broadcasts.
		h.store.AppendMessage(m)

	case "message_read":
		var p struct {
			ChatID    string `json:"chatId"`
			MessageID string `json:"messageId"`
		}
		if json.Unmarshal(f.Data, &p) != nil {
			return
		}
		if h.store.MarkRead(p.ChatID, p.MessageID) {
			h.Broadcast("chat:"+p.ChatID, frame{Event: "message_read", Data: f.Data}, cl)
		}

	case "typing_start":
		h.relayToRoom(f, cl, "user_typing")

	case "typing_stop":
		h.relayToRoom(f, cl, "user_stopped_typing")

	case "user_status_update":
		h.broadcastAll(frame{Event: "user_status_updated", Data: statusPayload(cl.userID, f.Data)}, cl)

	case "delivery_location_update":
		var p struct {
			DeliveryID string `json:"deliveryId"`
		}
		if json.Unmarshal(f.Data, &p) != nil || p.DeliveryID == "" {
			return
		}
		h.Broadcast("delivery:"+p.DeliveryID, frame{Event: "delivery_location_updated", Data: f.Data}, cl)

	default:
		h.log.Debug("unhandled frame", "event", f.Event, "user_id", cl.userID)
	}
}

// relayToRoom forwards a room-scoped frame to other members under a new
// event name.
func (h *Hub) relayToRoom(f frame, from *client, event string) {
	var p struct {
		Room string `json:"room"`
	}
	if json.Unmarshal(f.Data, &p) != nil || p.Room == "" {
		return
	}
	h.Broadcast(p.Room, frame{Event: event, Data: f.Data}, from)
}

// Broadcast sends a frame to every member of room, skipping exclude.
func (h *Hub) Broadcast(room string, f frame, exclude *client) {
	h.mu.RLock()
	var members []*client
	for cl := range h.clients {
		if cl == exclude {
			continue
		}
		cl.mu.Lock()
		_, member := cl.rooms[room]
		cl.mu.Unlock()
		if member {
			members = append(members, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range members {
		if err := cl.write(context.Background(), f); err != nil {
			h.log.Warn("broadcast write failed", "room", room, "user_id", cl.userID, "error", err)
		}
	}
}

func (h *Hub) broadcastAll(f frame, exclude *client) {
	h.mu.RLock()
	var members []*client
	for cl := range h.clients {
		if cl != exclude {
			members = append(members, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range members {
		if err := cl.write(context.Background(), f); err != nil {
			h.log.Warn("broadcast write failed", "user_id", cl.userID, "error", err)
		}
	}
}

func statusPayload(userID string, data json.RawMessage) json.RawMessage {
	var p struct {
		Status string `json:"status"`
	}
	json.Unmarshal(data, &p)
	out, _ := json.Marshal(map[string]string{"userId": userID, "status": p.Status})
	return out
}
