package client

import (
	"context"
	"encoding/json"
	"sort"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"vgsync/internal/domain/catalog"
	"vgsync/internal/domain/chat"
	"vgsync/internal/domain/order"
	"vgsync/internal/domain/user"
)

const (
	cachePrefix  = "vg_cache_"
	cacheVersion = 1

	keyProducts      = cachePrefix + "products"
	keyOrders        = cachePrefix + "orders"
	keyChats         = cachePrefix + "chats"
	keyNotifications = cachePrefix + "notifications"
	keyProfile       = cachePrefix + "profile"

	// Per-chat message history is capped at the most recent entries;
	// older messages stay on the server only.
	maxCachedMessages = 100
)

func keyMessages(chatID string) string  { return cachePrefix + "messages_" + chatID }
func keyFavorites(userID string) string { return cachePrefix + "favorites_" + userID }

// envelope wraps every cached collection with write metadata.
type envelope[T any] struct {
	Data         T     `json:"data"`
	LastModified int64 `json:"_lastModified"`
	CacheVersion int   `json:"_cacheVersion"`
}

// keyed is implemented by every cacheable domain record.
type keyed interface {
	Key() string
	Temp() bool
}

// CacheManager structures domain collections inside the key-value store.
// It never surfaces storage failures to callers: writes degrade to
// no-ops, reads to cache misses, and corrupted payloads are treated as
// misses. All read-modify-write cycles are serialized by a single mutex
// so overlapping writers cannot clobber each other.
type CacheManager struct {
	store KVStore
	log   *slog.Logger

	mu    gosync.Mutex
	index *catalog.Index
}

func NewCacheManager(store KVStore, log *slog.Logger) *CacheManager {
	return &CacheManager{
		store: store,
		log:   log,
		index: catalog.NewIndex(),
	}
}

func cachePut[T any](ctx context.Context, c *CacheManager, key string, data T) {
	env := envelope[T]{
		Data:         data,
		LastModified: time.Now().UnixMilli(),
		CacheVersion: cacheVersion,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		c.log.Warn("cache serialize failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, string(raw)); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
}

func cacheGet[T any](ctx context.Context, c *CacheManager, key string) (T, bool) {
	var zero T
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed", "key", key, "error", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	var env envelope[T]
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		// Corrupted payloads are a cache miss, never an error.
		c.log.Warn("cache payload corrupted, treating as miss", "key", key, "error", err)
		return zero, false
	}
	return env.Data, true
}

// mergeByID folds incoming into existing keyed by id. An incoming entry
// overwrites the cached one with the same key unconditionally; the
// server side is authoritative and timestamps are not compared.
// Incoming temp records are ignored: they are client-origin
// placeholders the server must not echo back as authoritative. Existing
// keys absent from incoming are preserved, and merging the same incoming
// set twice is idempotent.
func mergeByID[T keyed](existing, incoming []T) []T {
	byKey := make(map[string]int, len(existing))
	out := make([]T, len(existing))
	copy(out, existing)
	for i, item := range out {
		byKey[item.Key()] = i
	}
	for _, item := range incoming {
		if item.Temp() {
			continue
		}
		if i, ok := byKey[item.Key()]; ok {
			out[i] = item
		} else {
			byKey[item.Key()] = len(out)
			out = append(out, item)
		}
	}
	return out
}

// --- Products ---

// CacheProducts replaces the cached product collection and rebuilds the
// derived product index synchronously.
func (c *CacheManager) CacheProducts(ctx context.Context, products []catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putProductsLocked(ctx, products)
}

func (c *CacheManager) putProductsLocked(ctx context.Context, products []catalog.Product) {
	cachePut(ctx, c, keyProducts, products)
	c.index.Rebuild(products)
}

// MergeProducts folds authoritative server products into the cache.
func (c *CacheManager) MergeProducts(ctx context.Context, incoming []catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, _ := cacheGet[[]catalog.Product](ctx, c, keyProducts)
	c.putProductsLocked(ctx, mergeByID(existing, incoming))
}

// PutProduct writes a single locally created or edited listing into the
// cache, temp or not. Used by the optimistic write path.
func (c *CacheManager) PutProduct(ctx context.Context, p catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, _ := cacheGet[[]catalog.Product](ctx, c, keyProducts)
	replaced := false
	for i := range existing {
		if existing[i].ID == p.ID {
			existing[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		existing = append(existing, p)
	}
	c.putProductsLocked(ctx, existing)
}

// ResolveTempProduct swaps a temp listing for its acknowledged server
// version.
func (c *CacheManager) ResolveTempProduct(ctx context.Context, tempID string, final catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, _ := cacheGet[[]catalog.Product](ctx, c, keyProducts)
	out := existing[:0]
	for _, p := range existing {
		if p.ID == tempID {
			continue
		}
		out = append(out, p)
	}
	c.putProductsLocked(ctx, mergeByID(out, []catalog.Product{final}))
}

// CachedProducts returns cached products narrowed by the filter.
// A cache miss yields nil.
func (c *CacheManager) CachedProducts(ctx context.Context, f catalog.Filter) []catalog.Product {
	products, ok := cacheGet[[]catalog.Product](ctx, c, keyProducts)
	if !ok {
		return nil
	}
	return f.Apply(products)
}

// ProductIndex exposes the derived category/seller/price-bucket index.
func (c *CacheManager) ProductIndex() *catalog.Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// --- Orders ---

func (c *CacheManager) CacheOrders(ctx context.Context, orders []order.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cachePut(ctx, c, keyOrders, orders)
}

func (c *CacheManager) MergeOrders(ctx context.Context, incoming []order.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, _ := cacheGet[[]order.Order](ctx, c, keyOrders)
	cachePut(ctx, c, keyOrders, mergeByID(existing, incoming))
}

// CachedOrders returns the cached orders the user participates in.
func (c *CacheManager) CachedOrders(ctx context.Context, userID string) []order.Order {
	orders, ok := cacheGet[[]order.Order](ctx, c, keyOrders)
	if !ok {
		return nil
	}
	if userID == "" {
		return orders
	}
	out := make([]order.Order, 0, len(orders))
	for _, o := range orders {
		if o.BuyerID == userID || o.SellerID == userID {
			out = append(out, o)
		}
	}
	return out
}

// --- Chats ---

func (c *CacheManager) CacheChats(ctx context.Context, chats []chat.Chat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cachePut(ctx, c, keyChats, chats)
}

func (c *CacheManager) MergeChats(ctx context.Context, incoming []chat.Chat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, _ := cacheGet[[]chat.Chat](ctx, c, keyChats)
	cachePut(ctx, c, keyChats, mergeByID(existing, incoming))
}

func (c *CacheManager) CachedChats(ctx context.Context) []chat.Chat {
	chats, _ := cacheGet[[]chat.Chat](ctx, c, keyChats)
	return chats
}

// --- Messages ---

// MergeMessages folds server messages into a chat's history: merge by
// id, sort ascending by sent time, truncate to the newest
// maxCachedMessages. Out-of-order arrival is corrected here.
func (c *CacheManager) MergeMessages(ctx context.Context, chatID string, incoming []chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, _ := cacheGet[[]chat.Message](ctx, c, keyMessages(chatID))
	c.putMessagesLocked(ctx, chatID, mergeByID(existing, incoming))
}

// AppendLocalMessage writes an optimistic (possibly temp) message into a
// chat's history. Unlike MergeMessages this path accepts temp records —
// the temp filter only guards against server echoes.
func (c *CacheManager) AppendLocalMessage(ctx context.Context, chatID string, m chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, _ := cacheGet[[]chat.Message](ctx, c, keyMessages(chatID))
	replaced := false
	for i := range existing {
		if existing[i].ID == m.ID {
			existing[i] = m
			replaced = true
			break
		}
	}
	if !replaced {
		existing = append(existing, m)
	}
	c.putMessagesLocked(ctx, chatID, existing)
}

// ResolveTempMessage swaps a temp message for its acknowledged server
// version once the corresponding sync action commits.
func (c *CacheManager) ResolveTempMessage(ctx context.Context, chatID, tempID string, final chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, _ := cacheGet[[]chat.Message](ctx, c, keyMessages(chatID))
	out := existing[:0]
	for _, m := range existing {
		if m.ID == tempID {
			continue
		}
		out = append(out, m)
	}
	c.putMessagesLocked(ctx, chatID, mergeByID(out, []chat.Message{final}))
}

// UpdateMessageStatus applies a delivery/read transition to one message.
func (c *CacheManager) UpdateMessageStatus(ctx context.Context, chatID, messageID string, status chat.MessageStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := cacheGet[[]chat.Message](ctx, c, keyMessages(chatID))
	if !ok {
		return
	}
	for i := range existing {
		if existing[i].ID == messageID {
			existing[i].Status = status
			break
		}
	}
	c.putMessagesLocked(ctx, chatID, existing)
}

func (c *CacheManager) putMessagesLocked(ctx context.Context, chatID string, msgs []chat.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
	if len(msgs) > maxCachedMessages {
		msgs = msgs[len(msgs)-maxCachedMessages:]
	}
	cachePut(ctx, c, keyMessages(chatID), msgs)
}

// CachedMessages returns a chat's history, ascending by sent time.
func (c *CacheManager) CachedMessages(ctx context.Context, chatID string) []chat.Message {
	msgs, _ := cacheGet[[]chat.Message](ctx, c, keyMessages(chatID))
	return msgs
}

// --- Favorites ---

func (c *CacheManager) CacheFavorites(ctx context.Context, userID string, favorites []catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cachePut(ctx, c, keyFavorites(userID), favorites)
}

func (c *CacheManager) MergeFavorites(ctx context.Context, userID string, incoming []catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, _ := cacheGet[[]catalog.Product](ctx, c, keyFavorites(userID))
	cachePut(ctx, c, keyFavorites(userID), mergeByID(existing, incoming))
}

func (c *CacheManager) CachedFavorites(ctx context.Context, userID string) []catalog.Product {
	favorites, _ := cacheGet[[]catalog.Product](ctx, c, keyFavorites(userID))
	return favorites
}

// ToggleFavorite flips favorite membership synchronously and returns the
// new state. When the product is not in the products cache a minimal
// placeholder is stored until the server round-trip fills it in.
func (c *CacheManager) ToggleFavorite(ctx context.Context, userID, productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	favorites, _ := cacheGet[[]catalog.Product](ctx, c, keyFavorites(userID))
	for i, p := range favorites {
		if p.ID == productID {
			favorites = append(favorites[:i], favorites[i+1:]...)
			cachePut(ctx, c, keyFavorites(userID), favorites)
			return false
		}
	}

	added := catalog.Product{ID: productID}
	if products, ok := cacheGet[[]catalog.Product](ctx, c, keyProducts); ok {
		for _, p := range products {
			if p.ID == productID {
				added = p
				break
			}
		}
	}
	favorites = append(favorites, added)
	cachePut(ctx, c, keyFavorites(userID), favorites)
	return true
}

// --- Notifications / profile ---

func (c *CacheManager) CacheNotifications(ctx context.Context, notifications []user.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cachePut(ctx, c, keyNotifications, notifications)
}

func (c *CacheManager) MergeNotifications(ctx context.Context, incoming []user.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, _ := cacheGet[[]user.Notification](ctx, c, keyNotifications)
	cachePut(ctx, c, keyNotifications, mergeByID(existing, incoming))
}

func (c *CacheManager) CachedNotifications(ctx context.Context) []user.Notification {
	notifications, _ := cacheGet[[]user.Notification](ctx, c, keyNotifications)
	return notifications
}

func (c *CacheManager) CacheProfile(ctx context.Context, u user.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cachePut(ctx, c, keyProfile, u)
}

func (c *CacheManager) CachedProfile(ctx context.Context) (user.User, bool) {
	return cacheGet[user.User](ctx, c, keyProfile)
}

// Clear evicts every cached collection. Queue and conflict state are
// owned by the sync queue and survive.
func (c *CacheManager) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.store.Keys(ctx)
	if err != nil {
		c.log.Warn("cache clear failed", "error", err)
		return
	}
	var evict []string
	for _, k := range keys {
		if len(k) >= len(cachePrefix) && k[:len(cachePrefix)] == cachePrefix {
			evict = append(evict, k)
		}
	}
	if err := c.store.MultiRemove(ctx, evict); err != nil {
		c.log.Warn("cache clear failed", "error", err)
		return
	}
	c.index.Rebuild(nil)
}
