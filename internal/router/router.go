package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nexpos/engine/internal/config"
	"github.com/nexpos/engine/internal/handler"
	mw "github.com/nexpos/engine/internal/middleware"
	"github.com/nexpos/engine/internal/service"
	"github.com/nexpos/engine/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Route groups apply coarse role gating; the engine re-checks the
// capability table on every operation.
func New(cfg *config.Config, engine *service.Engine, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(engine, cfg.Auth.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{topic}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.Auth.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.Auth.JWTSecret))

		r.Get("/auth/me", authHandler.Me)
		r.Post("/auth/refresh", authHandler.Refresh)

		// POS routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequirePOS)

			qr := handler.NewQRService(cfg.UPI.VPA, cfg.UPI.PayeeName, cfg.UPI.QRSize, cfg.UPI.QRLevel)
			orderHandler := handler.NewOrderHandler(engine, qr)
			orderHandler.RegisterRoutes(r)

			shiftHandler := handler.NewShiftHandler(engine)
			shiftHandler.RegisterRoutes(r)

			customerHandler := handler.NewCustomerHandler(engine)
			customerHandler.RegisterRoutes(r)
		})

		// Kitchen routes (chefs included)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireKitchen)

			kitchenHandler := handler.NewKitchenHandler(engine)
			kitchenHandler.RegisterRoutes(r)
		})

		// Catalog and reservation routes, open to every authenticated
		// role. The engine rejects mutations from roles without
		// settings access.
		adminHandler := handler.NewAdminHandler(engine)
		adminHandler.RegisterRoutes(r)

		// Back-office routes (admin only)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireSettings)
			adminHandler.RegisterBackOfficeRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
