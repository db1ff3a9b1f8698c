package integration

import (
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/auth"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/config"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/gateway"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/metrics"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/orchestration"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/workflow"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/tests/helpers"
)

// Environment holds the backends a test runs against. With
// INTEGRATION_ANALYSIS_URL and INTEGRATION_DRAFTING_URL set the real
// servers are used; otherwise in-process fakes are started.
type Environment struct {
	AnalysisURL string
	DraftingURL string

	// Set only when running against fakes
	Analysis *helpers.AnalysisServer
	Drafting *helpers.DraftingServer
}

// UsingFakes reports whether the backends are the in-process fakes.
func (e *Environment) UsingFakes() bool {
	return e.Analysis != nil
}

// SetupEnvironment picks the backends for t.
func SetupEnvironment(t *testing.T) *Environment {
	t.Helper()

	analysisURL := os.Getenv("INTEGRATION_ANALYSIS_URL")
	draftingURL := os.Getenv("INTEGRATION_DRAFTING_URL")
	if analysisURL != "" && draftingURL != "" {
		t.Logf("Using real backends - analysis: %s, drafting: %s", analysisURL, draftingURL)
		return &Environment{AnalysisURL: analysisURL, DraftingURL: draftingURL}
	}

	a := helpers.NewAnalysisServer()
	t.Cleanup(a.Close)
	d := helpers.NewDraftingServer()
	t.Cleanup(d.Close)
	return &Environment{
		AnalysisURL: a.APIURL(),
		DraftingURL: d.APIURL(),
		Analysis:    a,
		Drafting:    d,
	}
}

// RequireFakes skips t unless the fakes are in use.
func (e *Environment) RequireFakes(t *testing.T) {
	t.Helper()
	if !e.UsingFakes() {
		t.Skip("needs scripted backends")
	}
}

// Orchestrator is a gateway wired the way cmd/api wires it.
type Orchestrator struct {
	Server   *httptest.Server
	Registry *workflow.Registry
}

// StartOrchestrator serves the gateway for env. mutate may adjust the
// configuration before wiring.
func StartOrchestrator(t *testing.T, env *Environment, mutate func(*config.Config)) *Orchestrator {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.AnalysisServerURL = env.AnalysisURL
	cfg.DraftingServerURL = env.DraftingURL
	cfg.PollInterval = 10 * time.Millisecond
	cfg.UpstreamTimeout = 10 * time.Second
	cfg.Session.TokenSecret = "integration-secret"
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	m, err := metrics.NewWorkflowMetrics()
	require.NoError(t, err)

	analysis := orchestration.NewAnalysisClient(cfg.AnalysisServerURL, cfg.UpstreamTimeout)
	drafting := orchestration.NewDraftingClient(cfg.DraftingServerURL, cfg.UpstreamTimeout)
	registry := workflow.NewRegistry(analysis, drafting, workflow.RegistryConfig{
		MaxSessions:     cfg.Session.MaxSessions,
		SessionTTL:      cfg.Session.TTL,
		PollInterval:    cfg.PollInterval,
		PreviewLines:    cfg.PreviewLines,
		UpstreamTimeout: cfg.UpstreamTimeout,
	}, m)

	jm, err := auth.NewJWTManager(cfg.Session.TokenSecret)
	require.NoError(t, err)

	router := gin.New()
	router.Use(gateway.CORS(cfg.AllowedOrigins))
	gateway.RegisterRoutes(router,
		gateway.NewHandler(registry, jm, cfg.Session.TokenTTL, map[string]gateway.HealthChecker{
			"analysis": analysis,
			"drafting": drafting,
		}),
		gateway.NewSnapshotStream(registry, cfg.AllowedOrigins),
		jm,
	)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		registry.Close()
		server.Close()
	})
	return &Orchestrator{Server: server, Registry: registry}
}
