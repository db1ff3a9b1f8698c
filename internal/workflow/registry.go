package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/metrics"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/orchestration"
)

const (
	DefaultMaxSessions = 64
	DefaultSessionTTL  = 30 * time.Minute
)

// RegistryConfig bounds the registry and tunes new sessions.
type RegistryConfig struct {
	MaxSessions     int
	SessionTTL      time.Duration
	PollInterval    time.Duration
	PreviewLines    int
	UpstreamTimeout time.Duration
}

// Registry holds the open sessions. The least recently used session is
// evicted once MaxSessions is reached, and sessions idle for SessionTTL
// expire; both close the session.
type Registry struct {
	analysis orchestration.AnalysisAPI
	drafting orchestration.DraftingAPI
	cfg      RegistryConfig
	metrics  *metrics.WorkflowMetrics

	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
	closed   bool
}

// NewRegistry creates an empty registry.
func NewRegistry(analysis orchestration.AnalysisAPI, drafting orchestration.DraftingAPI, cfg RegistryConfig, m *metrics.WorkflowMetrics) *Registry {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	r := &Registry{
		analysis: analysis,
		drafting: drafting,
		cfg:      cfg,
		metrics:  m,
	}
	r.sessions = expirable.NewLRU[string, *Session](cfg.MaxSessions, r.onEvict, cfg.SessionTTL)
	return r
}

func (r *Registry) onEvict(id string, s *Session) {
	if err := s.Close("evicted"); err == nil {
		log.Printf(`{"level":"info","message":"Session evicted","session_id":"%s"}`, id)
	}
}

// TTL is the idle lifetime of a session.
func (r *Registry) TTL() time.Duration {
	return r.cfg.SessionTTL
}

// Create opens a new session.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("registry is shut down")
	}

	id := uuid.New().String()
	s := NewSession(id, r.analysis, r.drafting, Options{
		PollInterval:    r.cfg.PollInterval,
		PreviewLines:    r.cfg.PreviewLines,
		UpstreamTimeout: r.cfg.UpstreamTimeout,
		Metrics:         r.metrics,
	})
	r.sessions.Add(id, s)
	r.metrics.RecordSessionOpened(ctx)

	log.Printf(`{"level":"info","message":"Session created","session_id":"%s"}`, id)
	return s, nil
}

// Get returns an open session and refreshes its idle timer.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	r.sessions.Add(id, s)
	return s, nil
}

// Delete closes and removes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions.Peek(id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	_ = s.Close("deleted")

	r.mu.Lock()
	r.sessions.Remove(id)
	r.mu.Unlock()
	return nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Close closes every session and refuses new ones.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.sessions.Purge()
}
