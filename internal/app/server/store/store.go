package store

import (
	"fmt"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"vgsync/internal/domain/catalog"
	"vgsync/internal/domain/chat"
	"vgsync/internal/domain/order"
	syncdom "vgsync/internal/domain/sync"
	"vgsync/internal/domain/user"
)

// Store is the in-memory reference backend state. It exists to run the
// client end to end without external infrastructure; durability is out
// of scope.
type Store struct {
	log *slog.Logger

	mu            gosync.RWMutex
	users         map[string]user.User
	tokens        map[string]string
	products      map[string]catalog.Product
	orders        map[string]order.Order
	chats         map[string]chat.Chat
	messages      map[string][]chat.Message
	favorites     map[string]map[string]struct{}
	notifications map[string][]user.Notification
	tempIDs       map[string]string
	seq           int

	// onMessage is invoked outside the lock for every committed
	// message, letting the websocket hub fan it out to rooms.
	onMessage func(chat.Message)
}

func New(log *slog.Logger) *Store {
	return &Store{
		log:           log,
		users:         make(map[string]user.User),
		tokens:        make(map[string]string),
		products:      make(map[string]catalog.Product),
		orders:        make(map[string]order.Order),
		chats:         make(map[string]chat.Chat),
		messages:      make(map[string][]chat.Message),
		favorites:     make(map[string]map[string]struct{}),
		notifications: make(map[string][]user.Notification),
		tempIDs:       make(map[string]string),
	}
}

// OnMessage registers the committed-message hook. Set once at startup.
func (s *Store) OnMessage(fn func(chat.Message)) {
	s.onMessage = fn
}

func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s_%d", prefix, s.seq)
}

// ValidateToken resolves a bearer token to a user id.
func (s *Store) ValidateToken(token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.tokens[token]
	if !ok {
		return "", fmt.Errorf("unknown token")
	}
	return userID, nil
}

// AddUser registers a user with a fixed token.
func (s *Store) AddUser(u user.User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	s.tokens[token] = u.ID
}

// Profile returns the user's profile.
func (s *Store) Profile(userID string) (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	return u, ok
}

// PutProduct inserts or replaces a listing.
func (s *Store) PutProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// Products returns listings matching filter, newest first.
func (s *Store) Products(f catalog.Filter) []catalog.Product {
	s.mu.RLock()
	all := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		all = append(all, p)
	}
	s.mu.RUnlock()

	out := f.Apply(all)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// PutOrder inserts or replaces an order.
func (s *Store) PutOrder(o order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// OrdersFor returns orders where the user is buyer or seller.
func (s *Store) OrdersFor(userID string) []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []order.Order
	for _, o := range s.orders {
		if o.BuyerID == userID || o.SellerID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// PutChat inserts or replaces a conversation.
func (s *Store) PutChat(c chat.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[c.ID] = c
}

// ChatsFor returns the user's conversations.
func (s *Store) ChatsFor(userID string) []chat.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []chat.Chat
	for _, c := range s.chats {
		for _, p := range c.Participants {
			if p == userID {
				out = append(out, c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// Messages returns a chat's messages in send order.
func (s *Store) Messages(chatID string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[chatID]
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	return out
}

// AppendMessage commits a message with a server-assigned id and fires
// the onMessage hook. Messages arriving with a client placeholder id
// register it in the temp-id ledger, so the same send replayed over
// another path (socket first, batch safety net after, or the reverse)
// commits exactly once.
func (s *Store) AppendMessage(m chat.Message) chat.Message {
	s.mu.Lock()
	tempID := ""
	if strings.HasPrefix(m.ID, "temp_") {
		tempID = m.ID
		if serverID, done := s.tempIDs[tempID]; done {
			committed, _ := s.findMessageLocked(m.ChatID, serverID)
			s.mu.Unlock()
			return committed
		}
	}
	m.ID = s.nextID("msg")
	m.IsTemp = false
	if m.Status == "" || m.Status == chat.StatusPending {
		m.Status = chat.StatusSent
	}
	if tempID != "" {
		s.tempIDs[tempID] = m.ID
	}
	s.messages[m.ChatID] = append(s.messages[m.ChatID], m)
	if c, ok := s.chats[m.ChatID]; ok {
		c.LastMessage = m.Text
		c.UpdatedAt = m.SentAt
		s.chats[m.ChatID] = c
	}
	hook := s.onMessage
	s.mu.Unlock()

	if hook != nil {
		hook(m)
	}
	return m
}

func (s *Store) findMessageLocked(chatID, id string) (chat.Message, bool) {
	for _, m := range s.messages[chatID] {
		if m.ID == id {
			return m, true
		}
	}
	return chat.Message{}, false
}

// MarkRead flips a message to read status.
func (s *Store) MarkRead(chatID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[chatID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].Status = chat.StatusRead
			return true
		}
	}
	return false
}

// FavoritesFor returns the user's favorite listings.
func (s *Store) FavoritesFor(userID string) []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.Product
	for id := range s.favorites[userID] {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NotificationsFor returns the user's notifications, newest first.
func (s *Store) NotificationsFor(userID string) []user.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns := s.notifications[userID]
	out := make([]user.Notification, len(ns))
	copy(out, ns)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// AddNotification appends a notification for a user.
func (s *Store) AddNotification(n user.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = s.nextID("ntf")
	}
	s.notifications[n.UserID] = append(s.notifications[n.UserID], n)
}

// ApplyBatch processes queued client actions in order and assembles the
// full response payload: fresh data, synthesized conflicts and
// per-action rejections.
func (s *Store) ApplyBatch(userID string, req syncdom.BatchRequest) *syncdom.BatchResponse {
	resp := &syncdom.BatchResponse{Timestamp: time.Now()}

	for i := range req.Actions {
		action := req.Actions[i]
		if err := action.Validate(); err != nil {
			resp.Rejected = append(resp.Rejected, syncdom.ActionError{
				ActionID: action.ID,
				Status:   422,
				Message:  err.Error(),
			})
			continue
		}

		switch action.Type {
		case syncdom.ActionMessageSend:
			s.applyMessageSend(userID, action, resp)
		case syncdom.ActionProductCreate:
			s.applyProductCreate(userID, action, resp)
		case syncdom.ActionProductUpdate:
			s.applyProductUpdate(userID, action, resp)
		case syncdom.ActionFavoriteToggle:
			s.applyFavoriteToggle(userID, action, resp)
		default:
			resp.Rejected = append(resp.Rejected, syncdom.ActionError{
				ActionID: action.ID,
				Status:   422,
				Message:  "unsupported action type",
			})
		}
	}

	s.fillBatchData(userID, resp)
	return resp
}

func (s *Store) applyMessageSend(userID string, action syncdom.Action, resp *syncdom.BatchResponse) {
	p := action.MessageSend

	s.mu.Lock()
	if serverID, done := s.tempIDs[p.TempID]; done {
		// Same action replayed after a lost response. Report the
		// original commit again so the client still resolves its
		// optimistic copy.
		committed, ok := s.findMessageLocked(p.ChatID, serverID)
		s.mu.Unlock()
		if ok {
			resp.Resolved = append(resp.Resolved, syncdom.ResolvedTemp{
				Type:     action.Type,
				TempID:   p.TempID,
				ServerID: serverID,
				Message:  &committed,
			})
		}
		return
	}
	if _, ok := s.chats[p.ChatID]; !ok {
		s.mu.Unlock()
		resp.Rejected = append(resp.Rejected, syncdom.ActionError{
			ActionID: action.ID,
			Status:   404,
			Message:  "chat not found",
		})
		return
	}
	s.mu.Unlock()

	m := s.AppendMessage(chat.Message{
		ID:       p.TempID,
		ChatID:   p.ChatID,
		SenderID: userID,
		Text:     p.Message,
		SentAt:   p.SentAt,
	})
	resp.Resolved = append(resp.Resolved, syncdom.ResolvedTemp{
		Type:     action.Type,
		TempID:   p.TempID,
		ServerID: m.ID,
		Message:  &m,
	})
}

func (s *Store) applyProductCreate(userID string, action syncdom.Action, resp *syncdom.BatchResponse) {
	p := action.ProductCreate

	s.mu.Lock()
	defer s.mu.Unlock()
	if serverID, done := s.tempIDs[p.TempID]; done {
		if committed, ok := s.products[serverID]; ok {
			resp.Resolved = append(resp.Resolved, syncdom.ResolvedTemp{
				Type:     action.Type,
				TempID:   p.TempID,
				ServerID: serverID,
				Product:  &committed,
			})
		}
		return
	}

	product := p.Product
	product.ID = s.nextID("prod")
	product.SellerID = userID
	product.IsTemp = false
	if product.Status == "" {
		product.Status = catalog.StatusActive
	}
	s.products[product.ID] = product
	s.tempIDs[p.TempID] = product.ID
	resp.Resolved = append(resp.Resolved, syncdom.ResolvedTemp{
		Type:     action.Type,
		TempID:   p.TempID,
		ServerID: product.ID,
		Product:  &product,
	})
}

func (s *Store) applyProductUpdate(userID string, action syncdom.Action, resp *syncdom.BatchResponse) {
	p := action.ProductUpdate

	s.mu.Lock()
	defer s.mu.Unlock()

	productID := p.ProductID
	// Updates recorded offline may still reference the placeholder id
	// of a listing created in the same batch.
	if strings.HasPrefix(productID, "temp_") {
		if real, ok := s.tempIDs[productID]; ok {
			productID = real
		}
	}

	existing, ok := s.products[productID]
	if !ok {
		resp.Rejected = append(resp.Rejected, syncdom.ActionError{
			ActionID: action.ID,
			Status:   404,
			Message:  "product not found",
		})
		return
	}
	if existing.SellerID != userID {
		resp.Rejected = append(resp.Rejected, syncdom.ActionError{
			ActionID: action.ID,
			Status:   403,
			Message:  "not the listing owner",
		})
		return
	}

	// A server-side edit after the client snapshot wins: the client
	// discards its stale version and takes the fresh data below.
	if existing.UpdatedAt.After(p.Product.UpdatedAt) {
		resp.Conflicts = append(resp.Conflicts, syncdom.Conflict{
			Type:       action.Type,
			Resolution: syncdom.ServerWins,
			ClientData: &action,
			Reason:     "listing modified on server after client snapshot",
			CreatedAt:  time.Now(),
		})
		return
	}

	updated := p.Product
	updated.ID = productID
	updated.SellerID = existing.SellerID
	updated.CreatedAt = existing.CreatedAt
	updated.IsTemp = false
	s.products[productID] = updated
}

func (s *Store) applyFavoriteToggle(userID string, action syncdom.Action, resp *syncdom.BatchResponse) {
	p := action.FavoriteToggle

	s.mu.Lock()
	defer s.mu.Unlock()

	productID := p.ProductID
	if strings.HasPrefix(productID, "temp_") {
		if real, ok := s.tempIDs[productID]; ok {
			productID = real
		}
	}
	if _, ok := s.products[productID]; !ok {
		resp.Rejected = append(resp.Rejected, syncdom.ActionError{
			ActionID: action.ID,
			Status:   404,
			Message:  "product not found",
		})
		return
	}

	set := s.favorites[userID]
	if set == nil {
		set = make(map[string]struct{})
		s.favorites[userID] = set
	}
	if _, ok := set[productID]; ok {
		delete(set, productID)
	} else {
		set[productID] = struct{}{}
	}
}

func (s *Store) fillBatchData(userID string, resp *syncdom.BatchResponse) {
	if u, ok := s.Profile(userID); ok {
		resp.Data.Profile = &u
	}
	resp.Data.Products = s.Products(catalog.Filter{})
	resp.Data.Orders = s.OrdersFor(userID)
	resp.Data.Chats = s.ChatsFor(userID)
	for _, c := range resp.Data.Chats {
		resp.Data.Messages = append(resp.Data.Messages, s.Messages(c.ID)...)
	}
	resp.Data.Favorites = s.FavoritesFor(userID)
	resp.Data.Notifications = s.NotificationsFor(userID)
}
