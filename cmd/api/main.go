package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canvas-backend/infrastructure/config"
	"canvas-backend/infrastructure/di"
	"canvas-backend/interfaces/http/rest"
	"canvas-backend/interfaces/http/rest/handlers"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	router := rest.NewRouter(
		handlers.NewProjectHandler(container.ProjectService, container.CanvasManager, container.Logger),
		handlers.NewCanvasHandler(container.CanvasManager, container.Metrics, container.Logger),
		handlers.NewChatHandler(container.CanvasManager, container.ChatClient, container.Metrics, container.Logger),
		container.JWTValidator,
		cfg.EnableCORS,
		container.Logger,
	)

	srv := &http.Server{
		Addr:        cfg.ServerAddress,
		Handler:     router.Setup(),
		ReadTimeout: 15 * time.Second,
		// Write timeout must outlast a full chat stream.
		WriteTimeout: cfg.ChatRequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	// Flush every open canvas session before exit so no debounced save
	// is lost.
	container.Shutdown(shutdownCtx)

	log.Println("Server stopped")
}
