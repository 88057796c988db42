package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/cashsession"
	"github.com/cafepos/terminal/internal/config"
	"github.com/cafepos/terminal/internal/coordinator"
	"github.com/cafepos/terminal/internal/gateway"
	"github.com/cafepos/terminal/internal/handler"
	mw "github.com/cafepos/terminal/internal/middleware"
	"github.com/cafepos/terminal/internal/poller"
	"github.com/cafepos/terminal/internal/state"
	"github.com/cafepos/terminal/internal/ws"
)

// Services are the components the local API exposes.
type Services struct {
	Gateway     *gateway.Gateway
	Sessions    *cashsession.Manager
	Coordinator *coordinator.Coordinator
	Poller      *poller.Poller
	State       *state.AppState
	Hub         *ws.Hub
}

// New creates a Chi router with all terminal routes wired up.
// Everything except login, health and the WebSocket needs a token of the
// operator currently logged in on this terminal.
func New(cfg *config.Config, svc Services, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.Recover(logger))
	r.Use(mw.LogRequests(logger))

	// CORS for the UI shell
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(svc.Gateway, svc.Sessions, svc.Poller, svc.State, cfg.JWTSecret, logger.Named("auth"))
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(svc.Hub, cfg.JWTSecret, svc.State.OperatorID, w, r)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireOperator(svc.State.OperatorID))

		authHandler.RegisterProtectedRoutes(r)
		handler.NewCatalogHandler(svc.Gateway).RegisterRoutes(r)
		handler.NewCartHandler(svc.State, svc.Gateway).RegisterRoutes(r)
		handler.NewSessionHandler(svc.Sessions, svc.State, svc.Hub, logger.Named("session")).RegisterRoutes(r)
		handler.NewOrderHandler(svc.Coordinator, svc.Poller, svc.State).RegisterRoutes(r)
		handler.NewHistoryHandler(svc.Coordinator).RegisterRoutes(r)
	})

	return r
}
