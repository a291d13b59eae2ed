package store

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"vgsync/internal/domain/catalog"
	"vgsync/internal/domain/chat"
	syncdom "vgsync/internal/domain/sync"
	"vgsync/internal/domain/user"
)

func newTestStore() *Store {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func seedStore(s *Store) {
	s.AddUser(user.User{ID: "user_1", Name: "Aminatou"}, "token-1")
	s.AddUser(user.User{ID: "user_2", Name: "Jean-Pierre"}, "token-2")
	s.PutProduct(catalog.Product{
		ID:        "prod_1",
		SellerID:  "user_2",
		Title:     "Samsung Galaxy A14",
		Category:  "electronics",
		Price:     85000,
		Status:    catalog.StatusActive,
		UpdatedAt: time.Now().Add(-time.Hour),
	})
	s.PutChat(chat.Chat{ID: "chat_1", Participants: []string{"user_1", "user_2"}})
}

func TestStore_ValidateToken(t *testing.T) {
	s := newTestStore()
	seedStore(s)

	userID, err := s.ValidateToken("token-1")
	require.NoError(t, err)
	assert.Equal(t, "user_1", userID)

	_, err = s.ValidateToken("bogus")
	assert.Error(t, err)
}

func TestStore_AppendMessageUpdatesChat(t *testing.T) {
	s := newTestStore()
	seedStore(s)

	var hooked []chat.Message
	s.OnMessage(func(m chat.Message) { hooked = append(hooked, m) })

	sent := time.Now()
	m := s.AppendMessage(chat.Message{ChatID: "chat_1", SenderID: "user_1", Text: "bonjour", SentAt: sent})

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, chat.StatusSent, m.Status)
	assert.False(t, m.IsTemp)

	chats := s.ChatsFor("user_1")
	require.Len(t, chats, 1)
	assert.Equal(t, "bonjour", chats[0].LastMessage)

	require.Len(t, hooked, 1)
	assert.Equal(t, m.ID, hooked[0].ID)
}

func TestStore_ApplyBatch_MessageSend(t *testing.T) {
	s := newTestStore()
	seedStore(s)

	action := syncdom.NewMessageSend(syncdom.MessageSendPayload{
		ChatID:  "chat_1",
		TempID:  "temp_m1",
		Message: "bonjour",
		SentAt:  time.Now(),
	})
	action.ID = "act_1"

	resp := s.ApplyBatch("user_1", syncdom.BatchRequest{Actions: []syncdom.Action{action}})

	assert.Empty(t, resp.Rejected)
	assert.Empty(t, resp.Conflicts)
	require.Len(t, resp.Data.Messages, 1)
	assert.Equal(t, "bonjour", resp.Data.Messages[0].Text)
	assert.Equal(t, "user_1", resp.Data.Messages[0].SenderID)

	// The response maps the placeholder id to the committed record.
	require.Len(t, resp.Resolved, 1)
	assert.Equal(t, "temp_m1", resp.Resolved[0].TempID)
	require.NotNil(t, resp.Resolved[0].Message)
	assert.Equal(t, resp.Resolved[0].ServerID, resp.Resolved[0].Message.ID)
	assert.False(t, resp.Resolved[0].Message.IsTemp)

	// Replaying the same action after a lost response commits nothing
	// new but still reports the original resolution.
	resp = s.ApplyBatch("user_1", syncdom.BatchRequest{Actions: []syncdom.Action{action}})
	assert.Empty(t, resp.Rejected)
	assert.Len(t, resp.Data.Messages, 1)
	require.Len(t, resp.Resolved, 1)
	assert.Equal(t, "temp_m1", resp.Resolved[0].TempID)
}

func TestStore_SocketSendThenBatchReplay(t *testing.T) {
	s := newTestStore()
	seedStore(s)
	sent := time.Now()

	// The websocket path commits first: the frame still carries the
	// client's placeholder id.
	m := s.AppendMessage(chat.Message{
		ID:       "temp_m1",
		ChatID:   "chat_1",
		SenderID: "user_1",
		Text:     "bonjour",
		SentAt:   sent,
	})
	assert.NotEqual(t, "temp_m1", m.ID)

	// The queued safety-net copy of the same send arrives over the
	// batch endpoint.
	action := syncdom.NewMessageSend(syncdom.MessageSendPayload{
		ChatID:  "chat_1",
		TempID:  "temp_m1",
		Message: "bonjour",
		SentAt:  sent,
	})
	action.ID = "act_1"
	resp := s.ApplyBatch("user_1", syncdom.BatchRequest{Actions: []syncdom.Action{action}})

	assert.Empty(t, resp.Rejected)
	msgs := s.Messages("chat_1")
	require.Len(t, msgs, 1)
	assert.Equal(t, m.ID, msgs[0].ID)
	require.Len(t, resp.Resolved, 1)
	assert.Equal(t, m.ID, resp.Resolved[0].ServerID)

	// And the reverse replay over the socket is also absorbed.
	again := s.AppendMessage(chat.Message{
		ID:       "temp_m1",
		ChatID:   "chat_1",
		SenderID: "user_1",
		Text:     "bonjour",
		SentAt:   sent,
	})
	assert.Equal(t, m.ID, again.ID)
	assert.Len(t, s.Messages("chat_1"), 1)
}

func TestStore_ApplyBatch_MessageSendUnknownChat(t *testing.T) {
	s := newTestStore()
	seedStore(s)

	action := syncdom.NewMessageSend(syncdom.MessageSendPayload{
		ChatID:  "chat_missing",
		TempID:  "temp_m1",
		Message: "hello?",
		SentAt:  time.Now(),
	})
	action.ID = "act_1"

	resp := s.ApplyBatch("user_1", syncdom.BatchRequest{Actions: []syncdom.Action{action}})

	require.Len(t, resp.Rejected, 1)
	assert.Equal(t, "act_1", resp.Rejected[0].ActionID)
	assert.Equal(t, 404, resp.Rejected[0].Status)
}

func TestStore_ApplyBatch_ProductCreateThenUpdate(t *testing.T) {
	s := newTestStore()
	seedStore(s)
	now := time.Now()

	create := syncdom.NewProductCreate(syncdom.ProductCreatePayload{
		TempID: "temp_p1",
		Product: catalog.Product{
			ID:        "temp_p1",
			Title:     "Baby stroller",
			Category:  "kids",
			Price:     25000,
			IsTemp:    true,
			UpdatedAt: now,
		},
	})
	create.ID = "act_1"

	// The follow-up edit still references the placeholder id: both were
	// recorded offline before any server ack.
	update := syncdom.NewProductUpdate(syncdom.ProductUpdatePayload{
		ProductID: "temp_p1",
		Product: catalog.Product{
			Title:     "Baby stroller (barely used)",
			Category:  "kids",
			Price:     22000,
			UpdatedAt: now.Add(time.Minute),
		},
	})
	update.ID = "act_2"

	resp := s.ApplyBatch("user_1", syncdom.BatchRequest{Actions: []syncdom.Action{create, update}})

	assert.Empty(t, resp.Rejected)
	assert.Empty(t, resp.Conflicts)

	products := s.Products(catalog.Filter{Category: "kids"})
	require.Len(t, products, 1)
	created := products[0]
	assert.NotEqual(t, "temp_p1", created.ID)
	assert.False(t, created.IsTemp)
	assert.Equal(t, "user_1", created.SellerID)
	assert.Equal(t, int64(22000), created.Price)

	require.Len(t, resp.Resolved, 1)
	assert.Equal(t, "temp_p1", resp.Resolved[0].TempID)
	assert.Equal(t, created.ID, resp.Resolved[0].ServerID)
	require.NotNil(t, resp.Resolved[0].Product)
}

func TestStore_ApplyBatch_ProductUpdateConflict(t *testing.T) {
	s := newTestStore()
	seedStore(s)

	// The seller edited the listing on another device after this
	// client's snapshot.
	stale := syncdom.NewProductUpdate(syncdom.ProductUpdatePayload{
		ProductID: "prod_1",
		Product: catalog.Product{
			Title:     "Samsung Galaxy A14",
			Category:  "electronics",
			Price:     70000,
			UpdatedAt: time.Now().Add(-2 * time.Hour),
		},
	})
	stale.ID = "act_1"

	resp := s.ApplyBatch("user_2", syncdom.BatchRequest{Actions: []syncdom.Action{stale}})

	assert.Empty(t, resp.Rejected)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, syncdom.ServerWins, resp.Conflicts[0].Resolution)
	require.NotNil(t, resp.Conflicts[0].ClientData)
	assert.Equal(t, "act_1", resp.Conflicts[0].ClientData.ID)

	// Server state untouched.
	products := s.Products(catalog.Filter{Category: "electronics"})
	require.Len(t, products, 1)
	assert.Equal(t, int64(85000), products[0].Price)
}

func TestStore_ApplyBatch_ProductUpdateRejections(t *testing.T) {
	s := newTestStore()
	seedStore(s)

	missing := syncdom.NewProductUpdate(syncdom.ProductUpdatePayload{
		ProductID: "prod_missing",
		Product:   catalog.Product{UpdatedAt: time.Now()},
	})
	missing.ID = "act_1"

	notOwner := syncdom.NewProductUpdate(syncdom.ProductUpdatePayload{
		ProductID: "prod_1",
		Product:   catalog.Product{UpdatedAt: time.Now()},
	})
	notOwner.ID = "act_2"

	// user_1 does not own prod_1.
	resp := s.ApplyBatch("user_1", syncdom.BatchRequest{Actions: []syncdom.Action{missing, notOwner}})

	require.Len(t, resp.Rejected, 2)
	assert.Equal(t, 404, resp.Rejected[0].Status)
	assert.Equal(t, 403, resp.Rejected[1].Status)
}

func TestStore_ApplyBatch_FavoriteToggle(t *testing.T) {
	s := newTestStore()
	seedStore(s)

	toggle := syncdom.NewFavoriteToggle(syncdom.FavoriteTogglePayload{UserID: "user_1", ProductID: "prod_1"})
	toggle.ID = "act_1"

	resp := s.ApplyBatch("user_1", syncdom.BatchRequest{Actions: []syncdom.Action{toggle}})
	require.Len(t, resp.Data.Favorites, 1)
	assert.Equal(t, "prod_1", resp.Data.Favorites[0].ID)

	// Toggling again removes.
	toggle.ID = "act_2"
	resp = s.ApplyBatch("user_1", syncdom.BatchRequest{Actions: []syncdom.Action{toggle}})
	assert.Empty(t, resp.Data.Favorites)
}

func TestStore_ApplyBatch_InvalidActionRejected(t *testing.T) {
	s := newTestStore()
	seedStore(s)

	bad := syncdom.Action{ID: "act_1", Type: syncdom.ActionMessageSend}

	resp := s.ApplyBatch("user_1", syncdom.BatchRequest{Actions: []syncdom.Action{bad}})

	require.Len(t, resp.Rejected, 1)
	assert.Equal(t, 422, resp.Rejected[0].Status)
}

func TestStore_ApplyBatch_FillsUserScopedData(t *testing.T) {
	s := newTestStore()
	seedStore(s)

	resp := s.ApplyBatch("user_1", syncdom.BatchRequest{})

	require.NotNil(t, resp.Data.Profile)
	assert.Equal(t, "user_1", resp.Data.Profile.ID)
	assert.Len(t, resp.Data.Products, 1)
	assert.Len(t, resp.Data.Chats, 1)
	assert.False(t, resp.Timestamp.IsZero())
}
