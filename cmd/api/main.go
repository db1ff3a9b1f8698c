package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"

	_ "github.com/bizmatters/agent-builder/workflow-orchestrator/docs" // swagger docs
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/auth"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/config"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/gateway"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/metrics"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/orchestration"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/workflow"
)

// @title Workflow Orchestrator API
// @version 1.0
// @description Session gateway for the circuit analysis and component drafting workflows.
// @description
// @description A session stages netlist, BOM and conditions files for the analysis server, tracks its
// @description part search progress, names the circuit, and drives part classification and document
// @description generation on the drafting server. State changes are pushed over a websocket.

// @contact.name API Support
// @contact.email support@bizmatters.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize OpenTelemetry
	tp, err := initTracer()
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}

	workflowMetrics, err := metrics.NewWorkflowMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Backend clients
	analysisClient := orchestration.NewAnalysisClient(cfg.AnalysisServerURL, cfg.UpstreamTimeout)
	draftingClient := orchestration.NewDraftingClient(cfg.DraftingServerURL, cfg.UpstreamTimeout)
	log.Printf(`{"level":"info","message":"Backends configured","analysis":"%s","drafting":"%s"}`, cfg.AnalysisServerURL, cfg.DraftingServerURL)

	registry := workflow.NewRegistry(analysisClient, draftingClient, workflow.RegistryConfig{
		MaxSessions:     cfg.Session.MaxSessions,
		SessionTTL:      cfg.Session.TTL,
		PollInterval:    cfg.PollInterval,
		PreviewLines:    cfg.PreviewLines,
		UpstreamTimeout: cfg.UpstreamTimeout,
	}, workflowMetrics)

	jwtManager, err := auth.NewJWTManager(cfg.Session.TokenSecret)
	if err != nil {
		log.Fatalf("Failed to initialize JWT manager: %v", err)
	}

	// Initialize gateway layer
	gatewayHandler := gateway.NewHandler(registry, jwtManager, cfg.Session.TokenTTL, map[string]gateway.HealthChecker{
		"analysis": analysisClient,
		"drafting": draftingClient,
	})
	snapshotStream := gateway.NewSnapshotStream(registry, cfg.AllowedOrigins)

	// Setup Gin router
	router := gin.Default()
	router.Use(structuredLoggingMiddleware())
	router.Use(gateway.CORS(cfg.AllowedOrigins))

	gateway.RegisterRoutes(router, gatewayHandler, snapshotStream, jwtManager)

	// Swagger documentation (public)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Generation and downloads wait on the drafting server.
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting Workflow Orchestrator API server on %s\n", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Ends every snapshot stream so hijacked websocket connections let go.
	registry.Close()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Printf("Failed to flush traces: %v", err)
	}

	log.Println("Server exited")
}

// initTracer initializes OpenTelemetry tracing
func initTracer() (*trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

// structuredLoggingMiddleware provides structured JSON logging for all requests
func structuredLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)

		logEntry := map[string]interface{}{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}

		// Set by the session middleware, or by CreateSession
		if sessionID := c.GetString(auth.SessionIDKey); sessionID != "" {
			logEntry["session_id"] = sessionID
		}

		if len(c.Errors) > 0 {
			logEntry["errors"] = c.Errors.String()
		}

		logJSON, _ := json.Marshal(logEntry)
		log.Println(string(logJSON))
	}
}
