package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"

	"vgsync/internal/app/server/api/http/middleware/auth"
	"vgsync/internal/domain/catalog"
)

type MockLister struct {
	mock.Mock
}

func (m *MockLister) Products(f catalog.Filter) []catalog.Product {
	args := m.Called(f)
	return args.Get(0).([]catalog.Product)
}

func (m *MockLister) FavoritesFor(userID string) []catalog.Product {
	args := m.Called(userID)
	return args.Get(0).([]catalog.Product)
}

func TestHandler_list(t *testing.T) {
	t.Run("forwards query filters", func(t *testing.T) {
		// Arrange
		store := new(MockLister)
		wantFilter := catalog.Filter{
			Category: "electronics",
			MinPrice: 20000,
			MaxPrice: 90000,
		}
		store.On("Products", wantFilter).Return([]catalog.Product{
			{ID: "p1", Title: "Samsung Galaxy A14", Category: "electronics", Price: 85000},
		})
		h := NewHandler(store, slog.Default(), nil, nil)

		input := &listInput{
			Category: "electronics",
			MinPrice: 20000,
			MaxPrice: 90000,
		}

		// Act
		output, err := h.list(context.Background(), input)

		// Assert
		assert.NoError(t, err)
		assert.Len(t, output.Body.Products, 1)
		assert.Equal(t, "p1", output.Body.Products[0].ID)
		store.AssertExpectations(t)
	})

	t.Run("empty result stays a list", func(t *testing.T) {
		store := new(MockLister)
		store.On("Products", catalog.Filter{}).Return([]catalog.Product{})
		h := NewHandler(store, slog.Default(), nil, nil)

		output, err := h.list(context.Background(), &listInput{})

		assert.NoError(t, err)
		assert.NotNil(t, output.Body.Products)
		assert.Empty(t, output.Body.Products)
	})
}

func TestHandler_favorites(t *testing.T) {
	t.Run("returns the authenticated user's favorites", func(t *testing.T) {
		// Arrange
		store := new(MockLister)
		store.On("FavoritesFor", "user_1").Return([]catalog.Product{{ID: "p1"}})
		h := NewHandler(store, slog.Default(), nil, nil)
		ctx := auth.WithUserID(context.Background(), "user_1")

		// Act
		output, err := h.favorites(ctx, &favoritesInput{})

		// Assert
		assert.NoError(t, err)
		assert.Len(t, output.Body.Favorites, 1)
		store.AssertExpectations(t)
	})

	t.Run("rejects unauthenticated context", func(t *testing.T) {
		store := new(MockLister)
		h := NewHandler(store, slog.Default(), nil, nil)

		output, err := h.favorites(context.Background(), &favoritesInput{})

		assert.Error(t, err)
		assert.Nil(t, output)
		store.AssertNotCalled(t, "FavoritesFor", mock.Anything)
	})
}
