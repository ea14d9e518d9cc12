package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/quantdesk/ai-gateway/internal/api"
	"github.com/quantdesk/ai-gateway/internal/config"
	"github.com/quantdesk/ai-gateway/internal/database"
	"github.com/quantdesk/ai-gateway/internal/proxy"
	"github.com/quantdesk/ai-gateway/internal/quota"
)

func main() {
	config.Load()

	if err := database.Init(); err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close()

	ledger := quota.NewLedger(config.Cfg.DefaultPlan)
	client := proxy.NewClient(
		config.Cfg.UpstreamURL,
		config.Cfg.UpstreamAPIKey,
		time.Duration(config.Cfg.RequestTimeoutSec)*time.Second,
		config.Cfg.ReasoningFallbackLimit,
	)
	server := api.NewServer(ledger, client)

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	// Health (no identity)
	r.Get("/health", api.HealthCheck)

	r.Route("/v1", func(r chi.Router) {
		r.Use(api.IdentityMiddleware)
		r.Post("/chat", server.Chat)
		r.Post("/chat/stream", server.ChatStream)
		r.Get("/models", server.Models)
		r.Get("/quota", server.Quota)
		r.Get("/usage", server.Usage)
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: r,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("AI gateway starting on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("AI gateway stopped")
}
