package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"vgsync/internal/domain/catalog"
	"vgsync/internal/domain/chat"
	syncdom "vgsync/internal/domain/sync"
)

// fakeSyncer scripts the batch-sync endpoint. Each call pops the next
// response; running out means an unexpected extra drain.
type fakeSyncer struct {
	requests  []syncdom.BatchRequest
	responses []*syncdom.BatchResponse
	err       error
}

func (f *fakeSyncer) BatchSync(_ context.Context, req syncdom.BatchRequest) (*syncdom.BatchResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &syncdom.BatchResponse{Timestamp: time.Now()}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func newTestQueue(t *testing.T, api batchSyncer, online bool) (*SyncQueue, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	cache := NewCacheManager(store, testLogger())
	isOnline := func() bool { return online }
	q := NewSyncQueue(store, api, cache, isOnline, func() string { return "user_1" }, testLogger())
	// Deferred drains run synchronously in tests would recurse; drop them
	// and call Drain explicitly instead.
	q.after = func(time.Duration, func()) *time.Timer { return nil }
	return q, store
}

func messageAction(text string) syncdom.Action {
	return syncdom.NewMessageSend(syncdom.MessageSendPayload{
		ChatID:  "chat_1",
		TempID:  "temp_" + text,
		Message: text,
		SentAt:  time.Now(),
	})
}

func TestSyncQueue_EnqueuePersistsAndOrders(t *testing.T) {
	q, store := newTestQueue(t, &fakeSyncer{}, false)
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		if err := q.Enqueue(ctx, messageAction(text)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	if q.Pending() != 3 {
		t.Fatalf("expected 3 pending, got %d", q.Pending())
	}
	actions := q.Actions()
	for i, want := range []string{"first", "second", "third"} {
		if actions[i].MessageSend.Message != want {
			t.Errorf("position %d: expected %q, got %q", i, want, actions[i].MessageSend.Message)
		}
	}

	// A fresh queue over the same store restores the same order.
	restored, _ := newTestQueue(t, &fakeSyncer{}, false)
	restored.store = store
	restored.Load(ctx)
	if restored.Pending() != 3 {
		t.Errorf("expected 3 restored actions, got %d", restored.Pending())
	}
	if restored.Actions()[0].MessageSend.Message != "first" {
		t.Errorf("restore lost ordering")
	}
}

func TestSyncQueue_EnqueueRejectsMismatchedPayload(t *testing.T) {
	q, _ := newTestQueue(t, &fakeSyncer{}, false)

	bad := syncdom.Action{Type: syncdom.ActionMessageSend}
	if err := q.Enqueue(context.Background(), bad); err == nil {
		t.Error("expected validation error for action without payload")
	}
	if q.Pending() != 0 {
		t.Errorf("invalid action must not be queued, pending=%d", q.Pending())
	}
}

func TestSyncQueue_DrainRemovesCommittedPrefix(t *testing.T) {
	api := &fakeSyncer{}
	q, _ := newTestQueue(t, api, true)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if err := q.Enqueue(ctx, messageAction(fmt.Sprintf("m%02d", i))); err != nil {
			t.Fatal(err)
		}
	}

	if err := q.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if len(api.requests) != 1 {
		t.Fatalf("expected 1 batch request, got %d", len(api.requests))
	}
	if got := len(api.requests[0].Actions); got != drainBatchSize {
		t.Errorf("expected batch of %d, got %d", drainBatchSize, got)
	}
	if q.Pending() != 5 {
		t.Errorf("expected 5 remaining after one batch, got %d", q.Pending())
	}
	if q.Actions()[0].MessageSend.Message != "m20" {
		t.Errorf("drain must remove the oldest prefix, head is %q", q.Actions()[0].MessageSend.Message)
	}

	if err := q.Drain(ctx); err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if q.Pending() != 0 {
		t.Errorf("expected empty queue, got %d", q.Pending())
	}
}

func TestSyncQueue_DrainKeepsQueueOnTransportError(t *testing.T) {
	api := &fakeSyncer{err: errors.New("connection refused")}
	q, _ := newTestQueue(t, api, true)
	ctx := context.Background()

	if err := q.Enqueue(ctx, messageAction("hello")); err != nil {
		t.Fatal(err)
	}

	if err := q.Drain(ctx); err == nil {
		t.Error("expected the transport error to surface")
	}
	if q.Pending() != 1 {
		t.Errorf("transport failure must not drop actions, pending=%d", q.Pending())
	}
}

func TestSyncQueue_DrainOfflineIsNoop(t *testing.T) {
	api := &fakeSyncer{}
	q, _ := newTestQueue(t, api, false)
	ctx := context.Background()

	if err := q.Enqueue(ctx, messageAction("hello")); err != nil {
		t.Fatal(err)
	}
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("offline drain should be a silent no-op: %v", err)
	}
	if len(api.requests) != 0 {
		t.Errorf("no request expected while offline, got %d", len(api.requests))
	}
	if q.Pending() != 1 {
		t.Errorf("queue must survive offline drain, pending=%d", q.Pending())
	}
}

func TestSyncQueue_ClientWinsReEnqueuedAtTail(t *testing.T) {
	conflicted := messageAction("mine")
	conflicted.ID = "act_1"
	api := &fakeSyncer{responses: []*syncdom.BatchResponse{{
		Conflicts: []syncdom.Conflict{{
			Type:       syncdom.ActionMessageSend,
			Resolution: syncdom.ClientWins,
			ClientData: &conflicted,
		}},
		Timestamp: time.Now(),
	}}}
	q, _ := newTestQueue(t, api, true)
	ctx := context.Background()

	if err := q.Enqueue(ctx, conflicted); err != nil {
		t.Fatal(err)
	}
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if q.Pending() != 1 {
		t.Fatalf("client_wins must re-enqueue, pending=%d", q.Pending())
	}
	retry := q.Actions()[0]
	if !retry.RetryFlag {
		t.Error("re-enqueued action must carry the retry flag")
	}
	if retry.ID == "act_1" {
		t.Error("re-enqueued action must get a fresh id")
	}
	if retry.MessageSend.Message != "mine" {
		t.Errorf("client payload lost: %q", retry.MessageSend.Message)
	}
}

func TestSyncQueue_ManualConflictPersisted(t *testing.T) {
	api := &fakeSyncer{responses: []*syncdom.BatchResponse{{
		Conflicts: []syncdom.Conflict{{
			Type:       syncdom.ActionProductUpdate,
			Resolution: syncdom.Manual,
			Reason:     "both sides changed the price",
		}},
		Timestamp: time.Now(),
	}}}
	q, _ := newTestQueue(t, api, true)
	ctx := context.Background()

	if err := q.Enqueue(ctx, messageAction("x")); err != nil {
		t.Fatal(err)
	}
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if q.Pending() != 0 {
		t.Errorf("manual conflict must not re-enqueue, pending=%d", q.Pending())
	}
	conflicts := q.Conflicts(ctx)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 persisted conflict, got %d", len(conflicts))
	}
	if conflicts[0].Reason != "both sides changed the price" {
		t.Errorf("conflict reason lost: %q", conflicts[0].Reason)
	}
}

func TestSyncQueue_ServerWinsDropsAction(t *testing.T) {
	api := &fakeSyncer{responses: []*syncdom.BatchResponse{{
		Conflicts: []syncdom.Conflict{{
			Type:       syncdom.ActionProductUpdate,
			Resolution: syncdom.ServerWins,
		}},
		Timestamp: time.Now(),
	}}}
	q, _ := newTestQueue(t, api, true)
	ctx := context.Background()

	if err := q.Enqueue(ctx, messageAction("x")); err != nil {
		t.Fatal(err)
	}
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if q.Pending() != 0 {
		t.Errorf("server_wins needs no retry, pending=%d", q.Pending())
	}
}

func TestSyncQueue_RejectedActionDeadLettersAfterCap(t *testing.T) {
	action := messageAction("broken")
	action.ID = "act_bad"
	reject := func() *syncdom.BatchResponse {
		return &syncdom.BatchResponse{
			Rejected: []syncdom.ActionError{{
				ActionID: "act_bad",
				Status:   422,
				Message:  "message too long",
			}},
			Timestamp: time.Now(),
		}
	}
	api := &fakeSyncer{responses: []*syncdom.BatchResponse{reject(), reject(), reject()}}
	q, _ := newTestQueue(t, api, true)
	ctx := context.Background()

	if err := q.Enqueue(ctx, action); err != nil {
		t.Fatal(err)
	}

	for i := 1; i < maxActionAttempts; i++ {
		if err := q.Drain(ctx); err != nil {
			t.Fatalf("drain %d: %v", i, err)
		}
		if q.Pending() != 1 {
			t.Fatalf("attempt %d: action should still be retrying, pending=%d", i, q.Pending())
		}
		if got := q.Actions()[0].Attempts; got != i {
			t.Fatalf("attempt %d: counter=%d", i, got)
		}
	}

	// Final rejection crosses the cap.
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("final drain: %v", err)
	}
	if q.Pending() != 0 {
		t.Errorf("dead-lettered action must leave the queue, pending=%d", q.Pending())
	}
	dead := q.DeadLetters(ctx)
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(dead))
	}
	if dead[0].ID != "act_bad" || dead[0].Attempts != maxActionAttempts {
		t.Errorf("unexpected dead letter: %+v", dead[0])
	}
}

func TestSyncQueue_DrainAdvancesSyncTimestamp(t *testing.T) {
	ts := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	api := &fakeSyncer{responses: []*syncdom.BatchResponse{{Timestamp: ts}}}
	q, _ := newTestQueue(t, api, true)
	ctx := context.Background()

	if err := q.Enqueue(ctx, messageAction("x")); err != nil {
		t.Fatal(err)
	}
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if !q.LastSync().Equal(ts) {
		t.Errorf("expected last sync %v, got %v", ts, q.LastSync())
	}
	if len(api.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(api.requests))
	}

	// The next batch reports the advanced timestamp.
	if err := q.Enqueue(ctx, messageAction("y")); err != nil {
		t.Fatal(err)
	}
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if !api.requests[1].LastSyncTimestamp.Equal(ts) {
		t.Errorf("second batch should carry the committed timestamp, got %v", api.requests[1].LastSyncTimestamp)
	}
}

func TestSyncQueue_DrainResolvesTempMessage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	cache := NewCacheManager(store, testLogger())

	sent := time.Now()
	cache.AppendLocalMessage(ctx, "chat_1", chat.Message{
		ID:     "temp_m1",
		ChatID: "chat_1",
		Text:   "bonjour",
		SentAt: sent,
		Status: chat.StatusPending,
		IsTemp: true,
	})

	committed := chat.Message{
		ID:     "msg_1",
		ChatID: "chat_1",
		Text:   "bonjour",
		SentAt: sent,
		Status: chat.StatusSent,
	}
	api := &fakeSyncer{responses: []*syncdom.BatchResponse{{
		Data: syncdom.BatchData{Messages: []chat.Message{committed}},
		Resolved: []syncdom.ResolvedTemp{{
			Type:     syncdom.ActionMessageSend,
			TempID:   "temp_m1",
			ServerID: "msg_1",
			Message:  &committed,
		}},
		Timestamp: time.Now(),
	}}}
	q := NewSyncQueue(store, api, cache, func() bool { return true }, func() string { return "user_1" }, testLogger())
	q.after = func(time.Duration, func()) *time.Timer { return nil }

	if err := q.Enqueue(ctx, syncdom.NewMessageSend(syncdom.MessageSendPayload{
		ChatID:  "chat_1",
		TempID:  "temp_m1",
		Message: "bonjour",
		SentAt:  sent,
	})); err != nil {
		t.Fatal(err)
	}
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	// The optimistic copy must be gone, not sitting next to the server
	// record.
	msgs := cache.CachedMessages(ctx, "chat_1")
	if len(msgs) != 1 {
		t.Fatalf("expected the temp record replaced by the committed one, got %d messages", len(msgs))
	}
	if msgs[0].ID != "msg_1" || msgs[0].IsTemp || msgs[0].Status != chat.StatusSent {
		t.Errorf("committed copy not applied: %+v", msgs[0])
	}
}

func TestSyncQueue_DrainResolvesTempProduct(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	cache := NewCacheManager(store, testLogger())

	draft := testProduct("temp_p1", "electronics", 45000, time.Now())
	draft.IsTemp = true
	cache.PutProduct(ctx, draft)

	committed := testProduct("prod_9", "electronics", 45000, time.Now())
	api := &fakeSyncer{responses: []*syncdom.BatchResponse{{
		Data: syncdom.BatchData{Products: []catalog.Product{committed}},
		Resolved: []syncdom.ResolvedTemp{{
			Type:     syncdom.ActionProductCreate,
			TempID:   "temp_p1",
			ServerID: "prod_9",
			Product:  &committed,
		}},
		Timestamp: time.Now(),
	}}}
	q := NewSyncQueue(store, api, cache, func() bool { return true }, func() string { return "user_1" }, testLogger())
	q.after = func(time.Duration, func()) *time.Timer { return nil }

	if err := q.Enqueue(ctx, syncdom.NewProductCreate(syncdom.ProductCreatePayload{
		TempID:  "temp_p1",
		Product: draft,
	})); err != nil {
		t.Fatal(err)
	}
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	got := cache.CachedProducts(ctx, catalog.Filter{})
	if len(got) != 1 {
		t.Fatalf("expected one listing after resolution, got %d", len(got))
	}
	if got[0].ID != "prod_9" || got[0].IsTemp {
		t.Errorf("draft not swapped for the committed listing: %+v", got[0])
	}
}
