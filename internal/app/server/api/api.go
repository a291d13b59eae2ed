// Reference backend for the offline-first marketplace client:
//
// GET  /api/v1/health                # liveness (public)
// GET  /api/v1/products              # listings with filter query (public)
// GET  /api/v1/products/favorites    # user's favorites (auth)
// GET  /api/v1/orders/my-orders      # user's orders (auth)
// GET  /api/v1/chats                 # user's conversations (auth)
// GET  /api/v1/chats/{id}/messages   # conversation messages (auth)
// GET  /api/v1/users/profile         # profile (auth)
// POST /api/v1/sync                  # batch synchronization (auth)
// GET  /ws                           # realtime channel (auth)

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	chatAPI "vgsync/internal/app/server/api/http/chat"
	healthAPI "vgsync/internal/app/server/api/http/health"
	"vgsync/internal/app/server/api/http/middleware"
	"vgsync/internal/app/server/api/http/middleware/auth"
	"vgsync/internal/app/server/api/http/middleware/logger"
	orderAPI "vgsync/internal/app/server/api/http/order"
	productAPI "vgsync/internal/app/server/api/http/product"
	syncAPI "vgsync/internal/app/server/api/http/sync"
	userAPI "vgsync/internal/app/server/api/http/user"
	"vgsync/internal/app/server/store"
	"vgsync/internal/app/server/ws"
)

type Handlers struct {
	Health  *healthAPI.Handler
	Product *productAPI.Handler
	Order   *orderAPI.Handler
	Chat    *chatAPI.Handler
	User    *userAPI.Handler
	Sync    *syncAPI.Handler
}

// New builds a *chi.Mux with every operation registered through huma
// plus the websocket endpoint.
func New(st *store.Store, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Vide-Grenier Sync API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(st, log)
	h.Health.SetupRoutes(API)
	h.Product.SetupRoutes(API)
	h.Order.SetupRoutes(API)
	h.Chat.SetupRoutes(API)
	h.User.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	hub := ws.NewHub(st, st.ValidateToken, log)
	mux.Get("/ws", hub.ServeHTTP)

	return mux
}

func handlers(st *store.Store, log *slog.Logger) *Handlers {
	authMW := auth.New(st.ValidateToken, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	productPublic := middlewares.GetAllAndClear()
	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	productHandler := productAPI.NewHandler(st, log, productPublic, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	orderHandler := orderAPI.NewHandler(st, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	chatHandler := chatAPI.NewHandler(st, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	userHandler := userAPI.NewHandler(st, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	syncHandler := syncAPI.NewHandler(st, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:  healthHandler,
		Product: productHandler,
		Order:   orderHandler,
		Chat:    chatHandler,
		User:    userHandler,
		Sync:    syncHandler,
	}
}
