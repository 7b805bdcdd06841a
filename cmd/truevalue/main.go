// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command truevalue starts the TrueValue AI real-estate analysis server.
//
// TrueValue answers natural-language property investment questions for the
// Dubai market with:
//   - An LLM orchestration loop with tool calling (max 7 rounds per query)
//   - 8 analysis tools (listings, chiller costs, title deeds, market trends,
//     building issues, supply pipeline, scoring, comparison)
//   - Live API tiers with deterministic mock fallback when keys are absent
//   - BadgerDB-backed tool result cache with per-tool TTLs
//   - Per-user conversation memory for follow-up questions
//
// Usage:
//
//	ANTHROPIC_API_KEY=sk-... go run ./cmd/truevalue
//	ANTHROPIC_API_KEY=sk-... go run ./cmd/truevalue -port 9090
//
// With live data sources:
//
//	BAYUT_API_KEY=... DUBAI_REST_API_KEY=... REDDIT_USER_AGENT=truevalue/1.0 \
//	  ANTHROPIC_API_KEY=sk-... go run ./cmd/truevalue
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/estate/health
//
//	# List the analysis tools
//	curl http://localhost:8080/v1/estate/tools | jq
//
//	# Run an analysis query
//	curl -X POST http://localhost:8080/v1/estate/query \
//	  -H "Content-Type: application/json" \
//	  -d '{"query": "Is a 2BR in Dubai Marina at 2M AED a good buy?", "user_id": "u1"}'
//
//	# Supply pipeline research for a zone
//	curl http://localhost:8080/v1/estate/zones/jvc/pipeline | jq
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/truevalueai/truevalue/services/estate"
	"github.com/truevalueai/truevalue/services/estate/cache"
	badgerstore "github.com/truevalueai/truevalue/services/estate/storage/badger"
	"github.com/truevalueai/truevalue/services/estate/tools"
	"github.com/truevalueai/truevalue/services/llm"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	cacheDir := flag.String("cache-dir", "", "BadgerDB cache directory (default $CACHE_DIR or ~/.truevalue/cache/tools)")
	noCache := flag.Bool("no-cache", false, "Disable the tool result cache")
	traceStdout := flag.Bool("trace-stdout", false, "Export OTel spans to stdout (development)")
	maxIterations := flag.Int("max-iterations", 0, "Model round-trip ceiling per query (0 = default)")
	flag.Parse()

	// Set Gin mode and log level together.
	level := slog.LevelInfo
	if *debug {
		gin.SetMode(gin.DebugMode)
		level = slog.LevelDebug
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// W3C TraceContext propagation so trace context flows from incoming
	// headers through all handlers and the agent loop.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	shutdownTracing := setupTracing(*traceStdout)

	// Model client. The engine cannot degrade without one.
	client, err := llm.NewAnthropicClient(logger)
	if err != nil {
		slog.Error("Model client unavailable; set ANTHROPIC_API_KEY",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Model client connected", slog.String("model", client.Model()))

	// Tool result cache. Graceful degradation: if BadgerDB cannot open,
	// every tool call computes fresh.
	cacheLayer, cacheDB := openCache(*cacheDir, *noCache, logger)

	engine := estate.NewEngine(estate.Config{
		Client: client,
		ToolDeps: tools.Deps{
			BayutAPIKey:     os.Getenv("BAYUT_API_KEY"),
			DubaiRESTAPIKey: os.Getenv("DUBAI_REST_API_KEY"),
			RedditUserAgent: os.Getenv("REDDIT_USER_AGENT"),
			Logger:          logger,
		},
		Cache:         cacheLayer,
		MaxIterations: *maxIterations,
		Logger:        logger,
	})

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("truevalue"))
	if *debug {
		router.Use(gin.Logger())
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Register routes under /v1/estate
	v1 := router.Group("/v1")
	estate.RegisterRoutes(v1, estate.NewHandlers(engine))

	printBanner(*port, tools.LiveSourcesSummary(
		os.Getenv("BAYUT_API_KEY"),
		os.Getenv("DUBAI_REST_API_KEY"),
		os.Getenv("REDDIT_USER_AGENT"),
	))

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down TrueValue server")
		engine.Close()
		if cacheDB != nil {
			if err := cacheDB.Close(); err != nil {
				slog.Warn("Failed to close cache BadgerDB", slog.String("error", err.Error()))
			}
		}
		shutdownTracing()
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting TrueValue server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// setupTracing installs a stdout span exporter when enabled and returns the
// shutdown func. Without it, spans are created against the no-op global
// provider and cost nothing.
func setupTracing(enabled bool) func() {
	if !enabled {
		return func() {}
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		slog.Warn("Stdout trace exporter unavailable, tracing disabled",
			slog.String("error", err.Error()))
		return func() {}
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Warn("Tracer provider shutdown failed", slog.String("error", err.Error()))
		}
	}
}

// openCache opens the BadgerDB-backed tool result cache.
//
// Resolution order for the directory: the -cache-dir flag, the CACHE_DIR
// environment variable, then ~/.truevalue/cache/tools. Graceful degradation:
// any failure logs a warning and returns a nil layer, which disables caching
// without affecting correctness.
func openCache(flagDir string, disabled bool, logger *slog.Logger) (*cache.Layer, *badgerstore.DB) {
	if disabled {
		slog.Info("Tool result cache disabled by flag")
		return nil, nil
	}

	dir := flagDir
	if dir == "" {
		dir = os.Getenv("CACHE_DIR")
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Warn("Cannot resolve home directory, tool cache disabled",
				slog.String("error", err.Error()))
			return nil, nil
		}
		dir = filepath.Join(home, ".truevalue", "cache", "tools")
	}

	db, err := badgerstore.OpenDB(badgerstore.DiskConfig(dir))
	if err != nil {
		slog.Warn("Cache BadgerDB unavailable, tool results will not be cached",
			slog.String("path", dir),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	slog.Info("Cache BadgerDB opened", slog.String("path", dir))
	return cache.NewLayer(cache.NewBadgerStore(db, logger), nil, logger), db
}

func printBanner(port int, liveSources string) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                      TRUEVALUE AI SERVER                          ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Dubai real-estate investment analysis with LLM tool calling.     ║
║  Live sources: %-50s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/estate/health             │  ║
║  │                                                             │  ║
║  │ # List the 8 analysis tools                                 │  ║
║  │ curl http://localhost:%d/v1/estate/tools | jq         │  ║
║  │                                                             │  ║
║  │ # Run an analysis query                                     │  ║
║  │ curl -X POST http://localhost:%d/v1/estate/query \    │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"query": "Is a 2BR in Marina at 2M a good buy?"}'    │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── POST /v1/estate/query - Investment analysis                  ║
║  ├── GET  /v1/estate/tools - Tool discovery                       ║
║  ├── GET  /v1/estate/zones/:zone/pipeline - Supply research       ║
║  ├── GET  /v1/estate/health, /ready - Probes                      ║
║  └── GET  /metrics - Prometheus metrics                           ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, liveSources, port, port, port)
}
