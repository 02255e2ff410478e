// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command orchestrator starts the Aleutian chat agent HTTP server.
//
// It reads configuration from environment variables, wires the model
// providers and tool catalog, and serves the streaming chat API.
//
// # Environment Variables
//
//   - ORCHESTRATOR_PORT: HTTP server port (default: 12210)
//   - DEEPSEEK_API_KEY: Enables the deepseek provider
//   - OPENAI_API_KEY: Enables the openai provider
//   - OLLAMA_BASE_URL: Enables the ollama provider
//   - TAVILY_API_KEY: Enables the web_search tool
//   - ORCHESTRATOR_API_TOKEN: Bearer token required on every request
//     (unset leaves the API open for local use)
//   - SYSTEM_PROMPT: Persona prepended to every conversation
//   - SESSION_IDLE_TTL / SESSION_SUSPENDED_TTL: Eviction windows
//     (Go duration syntax, e.g. "30m")
//   - EVICTION_LOG_PATH: Session eviction audit log (optional)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector
//     (default: aleutian-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o orchestrator ./cmd/orchestrator
//
//	# Run
//	DEEPSEEK_API_KEY=... ./orchestrator
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/AleutianAI/chatagent/pkg/logging"
	"github.com/AleutianAI/chatagent/services/llm"
	"github.com/AleutianAI/chatagent/services/orchestrator/agent"
	"github.com/AleutianAI/chatagent/services/orchestrator/handlers"
	"github.com/AleutianAI/chatagent/services/orchestrator/middleware"
	"github.com/AleutianAI/chatagent/services/orchestrator/observability"
	"github.com/AleutianAI/chatagent/services/orchestrator/routes"
	"github.com/AleutianAI/chatagent/services/orchestrator/tools"
	"github.com/AleutianAI/chatagent/services/orchestrator/ttl"
)

const defaultSystemPrompt = "You are a helpful assistant. Use the available " +
	"tools when they would improve your answer, and say so when you cannot " +
	"help."

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "aleutian-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("chatagent-orchestrator")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// buildProviders registers every model backend with credentials.
func buildProviders() *llm.ProviderRegistry {
	registry := llm.NewProviderRegistry()

	if client, err := llm.NewDeepSeekChatClient(""); err != nil {
		slog.Info("DeepSeek provider disabled", "reason", err)
	} else {
		registry.Register("deepseek", llm.Provider{
			Client: client,
			Models: []string{"deepseek-chat", "deepseek-reasoner"},
		})
		slog.Info("Registered DeepSeek provider")
	}

	if client, err := llm.NewOpenAIChatClient(""); err != nil {
		slog.Info("OpenAI provider disabled", "reason", err)
	} else {
		registry.Register("openai", llm.Provider{
			Client: client,
			Models: []string{"gpt-4o", "gpt-4o-mini"},
		})
		slog.Info("Registered OpenAI provider")
	}

	if client, err := llm.NewOllamaClient(""); err != nil {
		slog.Info("Ollama provider disabled", "reason", err)
	} else {
		// Open model list: Ollama serves whatever is pulled locally.
		registry.Register("ollama", llm.Provider{Client: client})
		slog.Info("Registered Ollama provider")
	}

	return registry
}

// buildToolCatalog registers every tool whose dependencies are met.
func buildToolCatalog() *tools.Catalog {
	catalog := tools.NewCatalog()
	catalog.Register(tools.NewWeatherTool())
	catalog.Register(tools.NewBookingTool())

	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		catalog.Register(tools.NewSearchTool(key))
		slog.Info("Registered web_search tool")
	} else {
		slog.Info("TAVILY_API_KEY not set, web_search tool disabled")
	}
	return catalog
}

func reaperConfigFromEnv() ttl.ReaperConfig {
	config := ttl.DefaultReaperConfig()
	if raw := os.Getenv("SESSION_IDLE_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			config.IdleTTL = d
		} else {
			slog.Warn("Invalid SESSION_IDLE_TTL, using default", "value", raw)
		}
	}
	if raw := os.Getenv("SESSION_SUSPENDED_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			config.SuspendedTTL = d
		} else {
			slog.Warn("Invalid SESSION_SUSPENDED_TTL, using default", "value", raw)
		}
	}
	return config
}

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		Service: "orchestrator",
	})
	slog.SetDefault(logger.Slog())

	port := os.Getenv("ORCHESTRATOR_PORT")
	if port == "" {
		port = "12210"
	}

	tracerCleanup, err := initTracer()
	if err != nil {
		slog.Warn("Tracing disabled", "error", err)
	} else {
		defer tracerCleanup(context.Background())
	}

	metrics := observability.InitMetrics()
	providers := buildProviders()
	if len(providers.Names()) == 0 {
		slog.Error("No model providers configured; set DEEPSEEK_API_KEY, " +
			"OPENAI_API_KEY, or OLLAMA_BASE_URL")
		os.Exit(1)
	}

	catalog := buildToolCatalog()
	sessions := agent.NewRegistry()

	systemPrompt := os.Getenv("SYSTEM_PROMPT")
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	invokerOpts := tools.DefaultInvokerOptions()
	invokerOpts.Metrics = metrics
	chatService := handlers.NewChatService(sessions, providers, catalog,
		tools.NewInvoker(catalog, &invokerOpts), metrics)
	chatService.SystemPrompt = systemPrompt
	admin := handlers.NewSessionAdmin(sessions)

	var audit *ttl.EvictionLogger
	if path := os.Getenv("EVICTION_LOG_PATH"); path != "" {
		audit, err = ttl.NewEvictionLogger(path)
		if err != nil {
			slog.Warn("Eviction audit log disabled", "path", path, "error", err)
			audit = nil
		} else {
			defer audit.Close()
		}
	}

	reaper := ttl.NewReaper(sessions, metrics, audit, reaperConfigFromEnv(), nil)
	if err := reaper.Start(context.Background()); err != nil {
		slog.Error("Failed to start session reaper", "error", err)
		os.Exit(1)
	}
	defer reaper.Stop()

	router := gin.Default()
	router.Use(otelgin.Middleware("chatagent-orchestrator"))
	router.Use(middleware.AuthMiddleware(os.Getenv("ORCHESTRATOR_API_TOKEN")))
	routes.SetupRoutes(router, chatService, admin)

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		slog.Info("Starting the orchestrator server", "port", port,
			"providers", providers.Names())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}
}
