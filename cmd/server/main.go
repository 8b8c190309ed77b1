// Package main provides the HTTP entry point for the UW-Parkside question answering service.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bull/uwp-rag-server/internal/api"
	"github.com/bull/uwp-rag-server/internal/bootstrap"
	mcpserver "github.com/bull/uwp-rag-server/internal/mcp"
)

var version = "dev"

func main() {
	// Background ingestion runs live until shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Error("Close resources failed", "error", err)
		}
	}()

	runner := app.NewRunner(ctx)
	if err := runner.Recover(ctx); err != nil {
		slog.Warn("Failed to recover ingestion status", "error", err)
	}

	server := mcpserver.NewServer(&mcpserver.Config{
		Answerer: app.Answers,
		Searcher: app.Retriever,
		Status:   runner,
		Version:  version,
	})

	router := api.NewRouter(api.Deps{
		Answerer:        app.Answers,
		Ingest:          runner,
		Index:           app.Store,
		EmbedModel:      app.Embedder.Model(),
		ChatModel:       app.Chat.Model(),
		DefaultMaxPages: app.Config.Ingest.MaxPages,
		AllowedOrigins:  app.Config.AllowedOriginsList(),
		GinMode:         app.Config.Server.GinMode,
		MCP:             mcpserver.NewHTTPHandler(server, nil),
		Logger:          app.Logger,
	})

	httpServer := &http.Server{
		Addr:              app.Config.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Server starting",
			"addr", httpServer.Addr,
			"vector_backend", app.Config.Vector.Backend,
			"collection", app.Store.CollectionName(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	waitForShutdown(httpServer)

	// Cancel a running ingestion and let it record its final status
	cancel()
	runner.Wait()
}

func waitForShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
