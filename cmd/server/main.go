// Package main provides the image index server: upload and search API plus MCP.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bull/imgindex-server/internal/app"
	"github.com/bull/imgindex-server/internal/config"
	"github.com/bull/imgindex-server/internal/httpapi"
	mcpserver "github.com/bull/imgindex-server/internal/mcp"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if !config.LoadDotEnv() {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	server := mcpserver.NewServer(&mcpserver.Config{
		Store:    a.Store,
		Searcher: a.Search,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(a.Store, a.Blobs))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, cfg.MCPStateless))
	httpapi.NewHandler(a.Pipeline, a.Search, cfg.MaxUploadBytes, logger).Register(mux)

	addr := "0.0.0.0:" + cfg.Port
	httpServer := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if cfg.ServerMode {
		// HTTP mode: API and MCP over HTTP for remote clients
		log.Printf("Starting HTTP server on %s (API at /api, MCP at /mcp, health at /health)", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	// Stdio mode: MCP over stdin/stdout, HTTP API in the background
	go func() {
		log.Printf("Starting HTTP server on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	log.Println("Starting image index MCP server (stdio mode)...")
	if err := server.Run(ctx); err != nil {
		log.Printf("server error: %v", err)
		os.Exit(1)
	}
}
