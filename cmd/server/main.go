package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/hiddenpay/backend/internal/config"
	"github.com/hiddenpay/backend/internal/events"
	"github.com/hiddenpay/backend/internal/handler"
	appMiddleware "github.com/hiddenpay/backend/internal/middleware"
	"github.com/hiddenpay/backend/internal/service"
	"github.com/hiddenpay/backend/internal/store"
	"github.com/hiddenpay/backend/internal/store/memory"
	"github.com/hiddenpay/backend/internal/store/postgres"
	"github.com/hiddenpay/backend/internal/ws"
	"github.com/hiddenpay/backend/pkg/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer st.Close()

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword, st)
	if err := authSvc.SeedAdmin(ctx); err != nil {
		log.Fatalf("admin seed error: %v", err)
	}

	bus := events.NewBus()
	ledgerSvc := service.NewLedgerService(st, payment.NewTokenGateway(), bus)
	accountSvc := service.NewAccountService(st)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	platformHandler := handler.NewPlatformHandler(ledgerSvc)
	merchantHandler := handler.NewMerchantHandler(ledgerSvc)
	productHandler := handler.NewProductHandler(ledgerSvc)
	subscriptionHandler := handler.NewSubscriptionHandler(ledgerSvc)
	accountHandler := handler.NewAccountHandler(accountSvc)
	healthHandler := handler.NewHealthHandler(st)
	eventsHandler := ws.NewEventsHandler(bus, authSvc)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global rate limiter (20 req/sec per IP, burst of 40)
	globalRL := appMiddleware.NewRateLimiter(20, 40)
	r.Use(globalRL.Middleware())

	// Public routes
	r.Get("/health", healthHandler.Check)
	r.Get("/api/platform", platformHandler.Get)
	r.Get("/api/merchants/{addr}", merchantHandler.Get)
	r.Get("/api/merchants/{addr}/products", merchantHandler.ListProducts)
	r.Get("/api/subscriptions/{addr}/verify", subscriptionHandler.Verify)

	// Auth routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter())
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// Protected API routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		r.Get("/api/auth/me", authHandler.Me)

		// Merchants & products
		r.Post("/api/merchants", merchantHandler.Create)
		r.Post("/api/products", productHandler.Create)
		r.Patch("/api/products/{addr}/active", productHandler.SetActive)

		// Subscriptions
		r.Post("/api/subscriptions", subscriptionHandler.Create)
		r.Get("/api/subscriptions", subscriptionHandler.List)
		r.Get("/api/subscriptions/{addr}", subscriptionHandler.Get)
		r.Put("/api/subscriptions/{addr}/proof", subscriptionHandler.UpdateProof)
		r.Delete("/api/subscriptions/{addr}", subscriptionHandler.Cancel)

		// Funding accounts
		r.Post("/api/accounts", accountHandler.Open)
		r.Get("/api/accounts/{addr}", accountHandler.Get)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)
			r.Post("/api/platform/initialize", platformHandler.Initialize)
			r.Post("/api/merchants/{addr}/verify", merchantHandler.Verify)
			r.Post("/api/accounts/{addr}/deposit", accountHandler.Deposit)
		})
	})

	// WebSocket event feed (auth via query param)
	r.HandleFunc("/ws/events", eventsHandler.Handle)

	// Start server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// WriteTimeout must be 0 for WebSocket connections (they are long-lived)
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("hiddenpay backend listening at http://%s (store: %s)", addr, cfg.StoreDriver)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == "memory" {
		log.Println("using in-memory store (data is not persisted)")
		return memory.New(), nil
	}

	pg, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := pg.RunMigrations(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	log.Println("database connected & migrated")
	return pg, nil
}
