package client

import (
	"context"
	"encoding/json"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"vgsync/internal/domain/chat"
	syncdom "vgsync/internal/domain/sync"
)

const (
	keyQueue         = "vg_sync_queue"
	keySyncTimestamp = "vg_sync_timestamp"
	keyConflicts     = "vg_sync_conflicts"
	keyDeadLetter    = "vg_sync_deadletter"

	// Drains are bounded so a huge backlog cannot hold a request open
	// indefinitely.
	drainBatchSize = 20

	// A validation-rejected action is retried this many times before it
	// moves to the dead-letter store.
	maxActionAttempts = 3

	// Delay before the asynchronous drain scheduled by Enqueue, and
	// between successive drains of a non-empty queue. Keeps partial
	// failures from tight-looping.
	drainRestDelay = time.Second
)

// batchSyncer is the transport the queue drains through.
type batchSyncer interface {
	BatchSync(ctx context.Context, req syncdom.BatchRequest) (*syncdom.BatchResponse, error)
}

// SyncQueue is the ordered, persisted log of pending client mutations.
// UI-facing code only appends; the drain routine is the only remover,
// and it removes committed prefixes exclusively, so causal order is
// preserved across restarts.
type SyncQueue struct {
	store  KVStore
	api    batchSyncer
	cache  *CacheManager
	log    *slog.Logger
	online func() bool
	userID func() string

	// after schedules deferred drains; replaced in tests.
	after func(d time.Duration, fn func()) *time.Timer

	mu       gosync.Mutex
	actions  []syncdom.Action
	lastSync time.Time
	draining bool
}

func NewSyncQueue(store KVStore, api batchSyncer, cache *CacheManager, online func() bool, userID func() string, log *slog.Logger) *SyncQueue {
	return &SyncQueue{
		store:  store,
		api:    api,
		cache:  cache,
		log:    log,
		online: online,
		userID: userID,
		after:  time.AfterFunc,
	}
}

// Load restores the persisted queue and sync timestamp. Corrupted state
// degrades to an empty queue.
func (q *SyncQueue) Load(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if raw, ok, err := q.store.Get(ctx, keyQueue); err == nil && ok {
		var actions []syncdom.Action
		if err := json.Unmarshal([]byte(raw), &actions); err != nil {
			q.log.Warn("sync queue corrupted, starting empty", "error", err)
		} else {
			q.actions = actions
		}
	}
	if raw, ok, err := q.store.Get(ctx, keySyncTimestamp); err == nil && ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			q.lastSync = ts
		}
	}
}

// Enqueue appends an action, persists the queue, and — when online —
// schedules an asynchronous drain so the caller never blocks on the
// network.
func (q *SyncQueue) Enqueue(ctx context.Context, action syncdom.Action) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}
	if err := action.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	q.actions = append(q.actions, action)
	q.persistLocked(ctx)
	q.mu.Unlock()

	q.log.Debug("sync action queued", "id", action.ID, "type", action.Type)

	if q.online() {
		q.after(drainRestDelay, func() {
			if err := q.Drain(context.Background()); err != nil {
				q.log.Warn("scheduled drain failed", "error", err)
			}
		})
	}
	return nil
}

// Drain sends the oldest batch to the batch-sync endpoint and reconciles
// the response. No-op when offline, empty, or already draining. On
// transport failure the queue is left untouched; the network monitor's
// next back-online transition re-triggers draining.
func (q *SyncQueue) Drain(ctx context.Context) error {
	if !q.online() {
		return nil
	}

	q.mu.Lock()
	if q.draining || len(q.actions) == 0 {
		q.mu.Unlock()
		return nil
	}
	q.draining = true
	n := len(q.actions)
	if n > drainBatchSize {
		n = drainBatchSize
	}
	batch := make([]syncdom.Action, n)
	copy(batch, q.actions[:n])
	last := q.lastSync
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	resp, err := q.api.BatchSync(ctx, syncdom.BatchRequest{
		LastSyncTimestamp: last,
		Actions:           batch,
	})
	if err != nil {
		q.log.Warn("batch sync failed, keeping queue", "batch", len(batch), "error", err)
		return err
	}

	// Server data is authoritative; merge before touching the queue so
	// a crash mid-drain re-sends rather than loses.
	q.applyBatchData(ctx, resp.Data)
	q.applyResolutions(ctx, resp.Resolved)

	retries := q.processConflicts(ctx, resp.Conflicts)
	retries = append(retries, q.processRejected(ctx, batch, resp.Rejected)...)

	q.mu.Lock()
	q.actions = append(q.actions[n:], retries...)
	q.lastSync = resp.Timestamp
	q.persistLocked(ctx)
	remaining := len(q.actions)
	q.mu.Unlock()

	q.log.Info("sync batch committed", "sent", len(batch), "remaining", remaining,
		"conflicts", len(resp.Conflicts), "rejected", len(resp.Rejected))

	if remaining > 0 {
		q.after(drainRestDelay, func() {
			if err := q.Drain(context.Background()); err != nil {
				q.log.Warn("follow-up drain failed", "error", err)
			}
		})
	}
	return nil
}

func (q *SyncQueue) applyBatchData(ctx context.Context, data syncdom.BatchData) {
	if data.Profile != nil {
		q.cache.CacheProfile(ctx, *data.Profile)
	}
	if len(data.Products) > 0 {
		q.cache.MergeProducts(ctx, data.Products)
	}
	if len(data.Orders) > 0 {
		q.cache.MergeOrders(ctx, data.Orders)
	}
	if len(data.Chats) > 0 {
		q.cache.MergeChats(ctx, data.Chats)
	}
	for chatID, msgs := range groupMessagesByChat(data.Messages) {
		q.cache.MergeMessages(ctx, chatID, msgs)
	}
	if len(data.Favorites) > 0 {
		q.cache.MergeFavorites(ctx, q.userID(), data.Favorites)
	}
	if len(data.Notifications) > 0 {
		q.cache.MergeNotifications(ctx, data.Notifications)
	}
}

// applyResolutions swaps optimistic placeholder records for the
// committed server copies the batch acknowledged. Safe on replays: a
// temp id already resolved is simply absent from the cache.
func (q *SyncQueue) applyResolutions(ctx context.Context, resolved []syncdom.ResolvedTemp) {
	for _, r := range resolved {
		switch {
		case r.Message != nil:
			q.cache.ResolveTempMessage(ctx, r.Message.ChatID, r.TempID, *r.Message)
		case r.Product != nil:
			q.cache.ResolveTempProduct(ctx, r.TempID, *r.Product)
		default:
			q.log.Warn("resolution without a committed record", "type", r.Type, "temp_id", r.TempID)
		}
	}
}

func groupMessagesByChat(msgs []chat.Message) map[string][]chat.Message {
	if len(msgs) == 0 {
		return nil
	}
	grouped := make(map[string][]chat.Message)
	for _, m := range msgs {
		grouped[m.ChatID] = append(grouped[m.ChatID], m)
	}
	return grouped
}

// processConflicts routes server conflict verdicts: server_wins needs no
// client action (merged already), client_wins re-enqueues the client's
// version at the tail, manual is persisted for user-driven resolution
// and never dropped.
func (q *SyncQueue) processConflicts(ctx context.Context, conflicts []syncdom.Conflict) []syncdom.Action {
	var retries []syncdom.Action
	for _, c := range conflicts {
		switch c.Resolution {
		case syncdom.ServerWins:
			// Authoritative data already merged.
		case syncdom.ClientWins:
			if c.ClientData == nil {
				q.log.Warn("client_wins conflict without client data", "type", c.Type)
				continue
			}
			retry := *c.ClientData
			retry.ID = uuid.NewString()
			retry.CreatedAt = time.Now()
			retry.RetryFlag = true
			retries = append(retries, retry)
		case syncdom.Manual:
			q.persistConflict(ctx, c)
		default:
			q.log.Warn("unknown conflict resolution", "resolution", c.Resolution)
		}
	}
	return retries
}

// processRejected handles validation-class rejections. Retrying cannot
// fix a 4xx, so each rejection bumps the action's attempt counter and
// the action dead-letters once the cap is reached instead of looping
// forever.
func (q *SyncQueue) processRejected(ctx context.Context, batch []syncdom.Action, rejected []syncdom.ActionError) []syncdom.Action {
	var retries []syncdom.Action
	for _, r := range rejected {
		var action *syncdom.Action
		for i := range batch {
			if batch[i].ID == r.ActionID {
				action = &batch[i]
				break
			}
		}
		if action == nil {
			continue
		}
		action.Attempts++
		if action.Attempts >= maxActionAttempts {
			q.log.Warn("action dead-lettered", "id", action.ID, "type", action.Type,
				"status", r.Status, "message", r.Message)
			q.persistDeadLetter(ctx, *action, r)
			continue
		}
		retries = append(retries, *action)
	}
	return retries
}

func (q *SyncQueue) persistConflict(ctx context.Context, c syncdom.Conflict) {
	var existing []syncdom.Conflict
	if raw, ok, err := q.store.Get(ctx, keyConflicts); err == nil && ok {
		_ = json.Unmarshal([]byte(raw), &existing)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	existing = append(existing, c)
	raw, err := json.Marshal(existing)
	if err != nil {
		q.log.Warn("conflict serialize failed", "error", err)
		return
	}
	if err := q.store.Set(ctx, keyConflicts, string(raw)); err != nil {
		q.log.Warn("conflict persist failed", "error", err)
	}
}

type deadLetter struct {
	Action   syncdom.Action      `json:"action"`
	Error    syncdom.ActionError `json:"error"`
	FailedAt time.Time           `json:"failedAt"`
}

func (q *SyncQueue) persistDeadLetter(ctx context.Context, a syncdom.Action, e syncdom.ActionError) {
	var existing []deadLetter
	if raw, ok, err := q.store.Get(ctx, keyDeadLetter); err == nil && ok {
		_ = json.Unmarshal([]byte(raw), &existing)
	}
	existing = append(existing, deadLetter{Action: a, Error: e, FailedAt: time.Now()})
	raw, err := json.Marshal(existing)
	if err != nil {
		q.log.Warn("dead letter serialize failed", "error", err)
		return
	}
	if err := q.store.Set(ctx, keyDeadLetter, string(raw)); err != nil {
		q.log.Warn("dead letter persist failed", "error", err)
	}
}

func (q *SyncQueue) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(q.actions)
	if err != nil {
		q.log.Warn("queue serialize failed", "error", err)
		return
	}
	if err := q.store.Set(ctx, keyQueue, string(raw)); err != nil {
		q.log.Warn("queue persist failed", "error", err)
	}
	if !q.lastSync.IsZero() {
		if err := q.store.Set(ctx, keySyncTimestamp, q.lastSync.Format(time.RFC3339Nano)); err != nil {
			q.log.Warn("sync timestamp persist failed", "error", err)
		}
	}
}

// Pending returns the number of undrained actions.
func (q *SyncQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Actions returns a snapshot of the queue, oldest first.
func (q *SyncQueue) Actions() []syncdom.Action {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]syncdom.Action, len(q.actions))
	copy(out, q.actions)
	return out
}

// LastSync returns the last committed sync timestamp.
func (q *SyncQueue) LastSync() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastSync
}

// Conflicts returns the persisted manual conflicts awaiting user-driven
// resolution.
func (q *SyncQueue) Conflicts(ctx context.Context) []syncdom.Conflict {
	var out []syncdom.Conflict
	if raw, ok, err := q.store.Get(ctx, keyConflicts); err == nil && ok {
		_ = json.Unmarshal([]byte(raw), &out)
	}
	return out
}

// DeadLetters returns actions abandoned after repeated validation
// rejections.
func (q *SyncQueue) DeadLetters(ctx context.Context) []syncdom.Action {
	var entries []deadLetter
	if raw, ok, err := q.store.Get(ctx, keyDeadLetter); err == nil && ok {
		_ = json.Unmarshal([]byte(raw), &entries)
	}
	out := make([]syncdom.Action, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}
