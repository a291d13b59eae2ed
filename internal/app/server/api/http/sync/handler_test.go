package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"

	"vgsync/internal/app/server/api/http/middleware/auth"
	syncdom "vgsync/internal/domain/sync"
)

type MockBatcher struct {
	mock.Mock
}

func (m *MockBatcher) ApplyBatch(userID string, req syncdom.BatchRequest) *syncdom.BatchResponse {
	args := m.Called(userID, req)
	return args.Get(0).(*syncdom.BatchResponse)
}

func TestHandler_batchSync(t *testing.T) {
	t.Run("applies the batch for the authenticated user", func(t *testing.T) {
		// Arrange
		action := syncdom.NewMessageSend(syncdom.MessageSendPayload{
			ChatID:  "chat_1",
			TempID:  "temp_1",
			Message: "bonjour",
			SentAt:  time.Now(),
		})
		action.ID = "act_1"
		req := syncdom.BatchRequest{Actions: []syncdom.Action{action}}

		store := new(MockBatcher)
		store.On("ApplyBatch", "user_1", req).Return(&syncdom.BatchResponse{
			Timestamp: time.Now(),
		})
		h := NewHandler(store, slog.Default(), nil)
		ctx := auth.WithUserID(context.Background(), "user_1")

		// Act
		output, err := h.batchSync(ctx, &batchSyncInput{Body: req})

		// Assert
		assert.NoError(t, err)
		assert.NotNil(t, output)
		assert.False(t, output.Body.Timestamp.IsZero())
		store.AssertExpectations(t)
	})

	t.Run("rejects unauthenticated context", func(t *testing.T) {
		store := new(MockBatcher)
		h := NewHandler(store, slog.Default(), nil)

		output, err := h.batchSync(context.Background(), &batchSyncInput{})

		assert.Error(t, err)
		assert.Nil(t, output)
		store.AssertNotCalled(t, "ApplyBatch", mock.Anything, mock.Anything)
	})
}
