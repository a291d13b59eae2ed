package seed

import (
	"time"

	"vgsync/internal/app/server/store"
	"vgsync/internal/domain/catalog"
	"vgsync/internal/domain/chat"
	"vgsync/internal/domain/order"
	"vgsync/internal/domain/user"
)

// Demo loads a small fixture set so the client can be exercised
// against the reference backend out of the box. The demo token is
// "demo-token".
func Demo(st *store.Store) {
	now := time.Now()

	st.AddUser(user.User{
		ID:        "user_demo",
		Name:      "Aminatou Ngo",
		Phone:     "+237670000001",
		Region:    "Littoral",
		City:      "Douala",
		Role:      "buyer",
		UpdatedAt: now,
	}, "demo-token")
	st.AddUser(user.User{
		ID:        "user_seller",
		Name:      "Jean-Pierre Kamga",
		Phone:     "+237690000002",
		Region:    "Centre",
		City:      "Yaoundé",
		Role:      "seller",
		UpdatedAt: now,
	}, "seller-token")

	st.PutProduct(catalog.Product{
		ID:          "prod_1",
		SellerID:    "user_seller",
		Title:       "Samsung Galaxy A14",
		Description: "Lightly used, original charger included",
		Category:    "electronics",
		Price:       85000,
		Status:      catalog.StatusActive,
		CreatedAt:   now.Add(-72 * time.Hour),
		UpdatedAt:   now.Add(-72 * time.Hour),
	})
	st.PutProduct(catalog.Product{
		ID:          "prod_2",
		SellerID:    "user_seller",
		Title:       "Wooden dining table",
		Description: "Solid iroko, seats six",
		Category:    "furniture",
		Price:       45000,
		Status:      catalog.StatusActive,
		CreatedAt:   now.Add(-48 * time.Hour),
		UpdatedAt:   now.Add(-48 * time.Hour),
	})
	st.PutProduct(catalog.Product{
		ID:          "prod_3",
		SellerID:    "user_seller",
		Title:       "Baby stroller",
		Description: "Foldable, good condition",
		Category:    "kids",
		Price:       25000,
		Status:      catalog.StatusActive,
		CreatedAt:   now.Add(-24 * time.Hour),
		UpdatedAt:   now.Add(-24 * time.Hour),
	})

	st.PutOrder(order.Order{
		ID:         "order_1",
		BuyerID:    "user_demo",
		SellerID:   "user_seller",
		ProductIDs: []string{"prod_2"},
		Amount:     45000,
		Status:     order.StatusConfirmed,
		CreatedAt:  now.Add(-20 * time.Hour),
		UpdatedAt:  now.Add(-4 * time.Hour),
	})

	st.PutChat(chat.Chat{
		ID:           "chat_1",
		ProductID:    "prod_2",
		Participants: []string{"user_demo", "user_seller"},
		LastMessage:  "Is the table still available?",
		UpdatedAt:    now.Add(-2 * time.Hour),
	})
	st.AppendMessage(chat.Message{
		ChatID:   "chat_1",
		SenderID: "user_demo",
		Text:     "Is the table still available?",
		SentAt:   now.Add(-2 * time.Hour),
	})

	st.AddNotification(user.Notification{
		UserID:    "user_demo",
		Title:     "Order confirmed",
		Body:      "Your order for the dining table was confirmed by the seller",
		CreatedAt: now.Add(-4 * time.Hour),
	})
}
