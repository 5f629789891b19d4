package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timedquiz/internal/app"
	"timedquiz/internal/config"
	"timedquiz/internal/service"
	"timedquiz/internal/transport/rest"
	"timedquiz/internal/transport/ws"
)

// @title timedquiz API
// @version 1.0
// @description Random question sets for timed quiz attempts
// @host localhost:8080
// @BasePath /
func main() {
	log.Println("started")
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	a := app.New(cfg)

	questionRepo, err := a.QuestionRepo(ctx)
	if err != nil {
		log.Fatal("Failed to open question bank:", err)
	}
	storage, err := a.Storage(ctx)
	if err != nil {
		log.Fatal("Failed to open state storage:", err)
	}

	// Initialize services
	samplingSvc := service.NewSamplingService(questionRepo)

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	wsHandler := ws.NewHandler(wsHub, samplingSvc, storage)

	router := rest.NewRouter(&rest.Container{
		Sampler:      samplingSvc,
		DefaultCount: cfg.DefaultCount,
		CORS:         cfg.CORS,
		WSHandler:    wsHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Printf("Question source: %s, state store: %s", cfg.QuestionSource, cfg.StateStore)
		log.Println("Endpoints:")
		log.Println("  GET  /api/questions")
		log.Println("  WS   /api/ws/quiz?profile={name}")
		log.Println("  GET  /health")
		log.Println("  GET  /swagger/doc.json")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	wsHub.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Server forced to shutdown:", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Println(err)
	}

	log.Println("Server exited")
}
