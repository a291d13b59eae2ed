package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"vgsync/internal/app/client/config"
	"vgsync/internal/domain/catalog"
	"vgsync/internal/domain/chat"
	"vgsync/internal/domain/order"
	syncdom "vgsync/internal/domain/sync"
	"vgsync/internal/domain/user"
)

// Source tells the caller where a read was served from.
type Source string

const (
	SourceOnline Source = "online"
	SourceCache  Source = "cache"
)

// Result pairs loaded data with its provenance so the UI can show a
// staleness hint for cache-served reads.
type Result[T any] struct {
	Data   T
	Source Source
}

// App wires the offline-first client together: local store, cache,
// sync queue, network monitor and realtime channel.
type App struct {
	config  *config.Config
	log     *slog.Logger
	store   KVStore
	cache   *CacheManager
	queue   *SyncQueue
	api     *apiClient
	channel *Channel
	monitor *NetworkMonitor
	hub     *EventHub

	mu     gosync.RWMutex
	token  string
	userID string
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	var store KVStore
	sqlite, err := NewSQLiteStore(cfg.DataPath)
	if err != nil {
		log.Warn("sqlite unavailable, falling back to in-memory store", "error", err)
		store = NewMemoryStore()
	} else {
		store = sqlite
	}

	app := &App{
		config: cfg,
		log:    log,
		store:  store,
		hub:    NewEventHub(log),
	}

	app.cache = NewCacheManager(store, log)
	app.api = NewAPIClient(cfg, app.Token, log)

	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}
	healthURL := scheme + cfg.ServerAddress + "/api/v1/health"
	app.monitor = NewNetworkMonitor(NewHTTPProber(healthURL, cfg.SyncInterval), log)

	app.channel = NewChannel(scheme+cfg.ServerAddress+"/ws", app.Token, app.monitor.Online, app.hub, log)
	app.queue = NewSyncQueue(store, app.api, app.cache, app.monitor.Online, app.UserID, log)

	// Coming back online is the reconciliation trigger: flush the
	// queue first so server data reflects the offline writes, then
	// restore the realtime connection.
	app.monitor.OnTransition(func(online bool) {
		if !online {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()
		if err := app.queue.Drain(ctx); err != nil {
			log.Warn("queue drain after reconnect failed", "error", err)
		}
		app.channel.Reconnect(ctx)
	})
	app.monitor.SetQueueLength(app.queue.Pending)

	app.subscribeRealtimeEvents()

	if token, err := app.loadToken(); err == nil && token != "" {
		app.mu.Lock()
		app.token = token
		app.mu.Unlock()
		log.Debug("auth token loaded from file")
	}

	return app, nil
}

// subscribeRealtimeEvents folds server pushes into the cache so reads
// stay fresh without polling.
func (a *App) subscribeRealtimeEvents() {
	ctx := context.Background()

	a.hub.On(EventNewMessage, func(data json.RawMessage) {
		var m chat.Message
		if err := json.Unmarshal(data, &m); err != nil {
			a.log.Warn("bad new_message payload", "error", err)
			return
		}
		a.cache.MergeMessages(ctx, m.ChatID, []chat.Message{m})
	})

	a.hub.On(EventMessageRead, func(data json.RawMessage) {
		var p struct {
			ChatID    string `json:"chatId"`
			MessageID string `json:"messageId"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			a.log.Warn("bad message_read payload", "error", err)
			return
		}
		a.cache.UpdateMessageStatus(ctx, p.ChatID, p.MessageID, chat.StatusRead)
	})

	a.hub.On(EventOrderUpdated, func(data json.RawMessage) {
		var o order.Order
		if err := json.Unmarshal(data, &o); err != nil {
			a.log.Warn("bad order_updated payload", "error", err)
			return
		}
		a.cache.MergeOrders(ctx, []order.Order{o})
	})

	a.hub.On(EventPendingNotifications, func(data json.RawMessage) {
		var ns []user.Notification
		if err := json.Unmarshal(data, &ns); err != nil {
			a.log.Warn("bad pending_notifications payload", "error", err)
			return
		}
		a.cache.MergeNotifications(ctx, ns)
	})
}

// Start restores persisted state and brings the background machinery
// up. Connect errors are expected when starting offline and are only
// logged.
func (a *App) Start(ctx context.Context) {
	a.queue.Load(ctx)
	a.monitor.Start(ctx)

	if profile, ok := a.cache.CachedProfile(ctx); ok {
		a.mu.Lock()
		a.userID = profile.ID
		a.mu.Unlock()
	}

	if err := a.channel.Connect(ctx); err != nil {
		a.log.Info("realtime not connected at startup", "reason", err)
	}
}

// Close shuts the app down, leaving queued actions persisted for the
// next run.
func (a *App) Close() error {
	a.monitor.Close()
	if err := a.channel.Close(); err != nil {
		a.log.Warn("realtime close failed", "error", err)
	}
	return a.store.Close()
}

// Token returns the current auth token.
func (a *App) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// UserID returns the authenticated user's id, empty before the profile
// is known.
func (a *App) UserID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userID
}

// SetToken stores the auth token in memory and on disk, then brings
// the realtime channel up under the new identity.
func (a *App) SetToken(ctx context.Context, token string) error {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()

	if err := os.WriteFile(a.config.TokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}

	a.channel.Reconnect(ctx)
	return nil
}

// Logout drops the token and wipes cached data for the account.
func (a *App) Logout(ctx context.Context) error {
	a.mu.Lock()
	a.token = ""
	a.userID = ""
	a.mu.Unlock()

	if err := os.Remove(a.config.TokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token: %w", err)
	}
	a.cache.Clear(ctx)
	return a.channel.Close()
}

func (a *App) loadToken() (string, error) {
	data, err := os.ReadFile(a.config.TokenPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Cache exposes the cache manager for direct reads.
func (a *App) Cache() *CacheManager { return a.cache }

// Queue exposes the sync queue for status display.
func (a *App) Queue() *SyncQueue { return a.queue }

// Channel exposes the realtime channel.
func (a *App) Channel() *Channel { return a.channel }

// Hub exposes the event hub for UI subscriptions.
func (a *App) Hub() *EventHub { return a.hub }

// Monitor exposes the network monitor.
func (a *App) Monitor() *NetworkMonitor { return a.monitor }

// smartLoad serves a read online-first: fetch from the server and
// refresh the cache, or fall back to cached data when offline or the
// request fails.
func smartLoad[T any](a *App, ctx context.Context, fetch func(context.Context) (T, error), cached func(context.Context) T, store func(context.Context, T)) Result[T] {
	if a.monitor.Online() {
		data, err := fetch(ctx)
		if err == nil {
			store(ctx, data)
			return Result[T]{Data: data, Source: SourceOnline}
		}
		a.log.Warn("online fetch failed, serving cache", "error", err)
	}
	return Result[T]{Data: cached(ctx), Source: SourceCache}
}

// LoadProducts fetches listings matching filter, cache-backed.
func (a *App) LoadProducts(ctx context.Context, filter catalog.Filter) Result[[]catalog.Product] {
	return smartLoad(a, ctx,
		func(ctx context.Context) ([]catalog.Product, error) { return a.api.GetProducts(ctx, filter) },
		func(ctx context.Context) []catalog.Product { return a.cache.CachedProducts(ctx, filter) },
		func(ctx context.Context, products []catalog.Product) { a.cache.MergeProducts(ctx, products) },
	)
}

// LoadMyOrders fetches the user's orders, cache-backed.
func (a *App) LoadMyOrders(ctx context.Context) Result[[]order.Order] {
	return smartLoad(a, ctx,
		func(ctx context.Context) ([]order.Order, error) { return a.api.GetMyOrders(ctx) },
		func(ctx context.Context) []order.Order { return a.cache.CachedOrders(ctx, a.UserID()) },
		func(ctx context.Context, orders []order.Order) { a.cache.MergeOrders(ctx, orders) },
	)
}

// LoadChats fetches the user's conversations, cache-backed.
func (a *App) LoadChats(ctx context.Context) Result[[]chat.Chat] {
	return smartLoad(a, ctx,
		func(ctx context.Context) ([]chat.Chat, error) { return a.api.GetChats(ctx) },
		func(ctx context.Context) []chat.Chat { return a.cache.CachedChats(ctx) },
		func(ctx context.Context, chats []chat.Chat) { a.cache.MergeChats(ctx, chats) },
	)
}

// LoadMessages fetches a chat's recent messages, cache-backed.
func (a *App) LoadMessages(ctx context.Context, chatID string) Result[[]chat.Message] {
	return smartLoad(a, ctx,
		func(ctx context.Context) ([]chat.Message, error) { return a.api.GetMessages(ctx, chatID) },
		func(ctx context.Context) []chat.Message { return a.cache.CachedMessages(ctx, chatID) },
		func(ctx context.Context, msgs []chat.Message) { a.cache.MergeMessages(ctx, chatID, msgs) },
	)
}

// LoadFavorites fetches the user's favorites, cache-backed.
func (a *App) LoadFavorites(ctx context.Context) Result[[]catalog.Product] {
	userID := a.UserID()
	return smartLoad(a, ctx,
		func(ctx context.Context) ([]catalog.Product, error) { return a.api.GetFavorites(ctx) },
		func(ctx context.Context) []catalog.Product { return a.cache.CachedFavorites(ctx, userID) },
		func(ctx context.Context, favs []catalog.Product) { a.cache.CacheFavorites(ctx, userID, favs) },
	)
}

// LoadProfile fetches the user's profile, cache-backed. A fresh fetch
// also fixes the user id used for per-user cache keys.
func (a *App) LoadProfile(ctx context.Context) Result[*user.User] {
	res := smartLoad(a, ctx,
		func(ctx context.Context) (*user.User, error) { return a.api.GetProfile(ctx) },
		func(ctx context.Context) *user.User {
			if u, ok := a.cache.CachedProfile(ctx); ok {
				return &u
			}
			return nil
		},
		func(ctx context.Context, u *user.User) {
			if u != nil {
				a.cache.CacheProfile(ctx, *u)
			}
		},
	)
	if res.Data != nil {
		a.mu.Lock()
		a.userID = res.Data.ID
		a.mu.Unlock()
	}
	return res
}

// SendMessage records a chat message optimistically and queues it for
// sync. When the realtime channel is up the message is also pushed for
// instant delivery; the queued action remains the source of truth.
func (a *App) SendMessage(ctx context.Context, chatID, text string) (chat.Message, error) {
	now := time.Now()
	msg := chat.Message{
		ID:       tempID(),
		ChatID:   chatID,
		SenderID: a.UserID(),
		Text:     text,
		SentAt:   now,
		Status:   chat.StatusPending,
		IsTemp:   true,
	}
	a.cache.AppendLocalMessage(ctx, chatID, msg)

	action := syncdom.NewMessageSend(syncdom.MessageSendPayload{
		ChatID:  chatID,
		TempID:  msg.ID,
		Message: text,
		SentAt:  now,
	})
	if err := a.queue.Enqueue(ctx, action); err != nil {
		return chat.Message{}, fmt.Errorf("queue message: %w", err)
	}

	if a.channel.Connected() {
		a.channel.SendMessage(ctx, chatID, msg)
	}
	return msg, nil
}

// CreateProduct records a listing optimistically and queues it for
// sync.
func (a *App) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	now := time.Now()
	p.ID = tempID()
	p.SellerID = a.UserID()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.IsTemp = true
	if p.Status == "" {
		p.Status = catalog.StatusActive
	}
	a.cache.PutProduct(ctx, p)

	action := syncdom.NewProductCreate(syncdom.ProductCreatePayload{TempID: p.ID, Product: p})
	if err := a.queue.Enqueue(ctx, action); err != nil {
		return catalog.Product{}, fmt.Errorf("queue product create: %w", err)
	}
	return p, nil
}

// UpdateProduct records an edit optimistically and queues it for sync.
func (a *App) UpdateProduct(ctx context.Context, p catalog.Product) error {
	p.UpdatedAt = time.Now()
	a.cache.PutProduct(ctx, p)

	action := syncdom.NewProductUpdate(syncdom.ProductUpdatePayload{ProductID: p.ID, Product: p})
	if err := a.queue.Enqueue(ctx, action); err != nil {
		return fmt.Errorf("queue product update: %w", err)
	}
	return nil
}

// ToggleFavorite flips favorite membership locally and queues the
// change. Returns the new membership state.
func (a *App) ToggleFavorite(ctx context.Context, productID string) (bool, error) {
	userID := a.UserID()
	added := a.cache.ToggleFavorite(ctx, userID, productID)

	action := syncdom.NewFavoriteToggle(syncdom.FavoriteTogglePayload{UserID: userID, ProductID: productID})
	if err := a.queue.Enqueue(ctx, action); err != nil {
		return added, fmt.Errorf("queue favorite toggle: %w", err)
	}
	return added, nil
}

// Sync forces a queue drain, for the CLI sync command.
func (a *App) Sync(ctx context.Context) error {
	return a.queue.Drain(ctx)
}

// EnterBackground and EnterForeground forward app lifecycle changes to
// the realtime channel.
func (a *App) EnterBackground(ctx context.Context) { a.channel.EnterBackground(ctx) }
func (a *App) EnterForeground(ctx context.Context) { a.channel.EnterForeground(ctx) }

// tempID builds the client-side placeholder id for optimistic records.
func tempID() string {
	return "temp_" + uuid.NewString()
}
