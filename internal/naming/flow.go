// Package naming resolves the circuit name of an analysis session, either
// from the analysis server's suggestion or from manual entry.
package naming

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/metrics"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
)

// Generator suggests a circuit name for the detected chips.
type Generator interface {
	CircuitName(ctx context.Context, chips []string) (string, error)
}

// Flow is one presentation of the circuit-name dialog. It generates at most
// once and completes at most once.
type Flow struct {
	enter sync.Once

	mu        sync.Mutex
	generator Generator
	chips     []string
	known     string
	state     models.CircuitNameSession
	dismissed bool

	timeout  time.Duration
	metrics  *metrics.WorkflowMetrics
	onChange func()
}

// DefaultTimeout bounds one name generation.
const DefaultTimeout = 60 * time.Second

// Option configures a Flow.
type Option func(*Flow)

// WithKnownName skips generation and presents name as generated.
func WithKnownName(name string) Option {
	return func(f *Flow) { f.known = strings.TrimSpace(name) }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMetrics records resolved names.
func WithMetrics(m *metrics.WorkflowMetrics) Option {
	return func(f *Flow) { f.metrics = m }
}

// WithOnChange registers a callback invoked after every state change.
func WithOnChange(fn func()) Option {
	return func(f *Flow) { f.onChange = fn }
}

// NewFlow creates a flow for chips. Nothing happens until Enter.
func NewFlow(generator Generator, chips []string, opts ...Option) *Flow {
	f := &Flow{
		generator: generator,
		chips:     append([]string{}, chips...),
		timeout:   DefaultTimeout,
		state:     models.CircuitNameSession{Mode: models.NameAutoGenerating},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Enter presents the flow. Only the first call has an effect; it blocks
// until the name is generated. Generation failure yields
// models.UnknownCircuitName. Generation outlives cancellation of ctx since
// its result is shared by every later Enter.
func (f *Flow) Enter(ctx context.Context) models.CircuitNameSession {
	f.enter.Do(func() {
		if f.known != "" {
			f.mu.Lock()
			f.state.Mode = models.NameGenerated
			f.state.Generated = f.known
			f.mu.Unlock()
			f.changed()
			return
		}

		f.changed()

		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		name, err := f.generator.CircuitName(genCtx, f.chips)
		cancel()
		name = strings.TrimSpace(name)
		if err != nil || name == "" {
			if err != nil {
				log.Printf(`{"level":"warn","message":"Circuit name generation failed, using fallback","error":"%v"}`, err)
			}
			name = models.UnknownCircuitName
		}

		f.mu.Lock()
		f.state.Generated = name
		if f.state.Mode == models.NameAutoGenerating {
			f.state.Mode = models.NameGenerated
		}
		f.mu.Unlock()
		f.changed()
	})
	return f.Snapshot()
}

// Accept completes the flow with the generated name.
func (f *Flow) Accept(ctx context.Context) (models.CircuitNameSession, error) {
	f.mu.Lock()
	if err := f.closedLocked(); err != nil {
		f.mu.Unlock()
		return f.Snapshot(), err
	}
	if f.state.Mode != models.NameGenerated {
		mode := f.state.Mode
		f.mu.Unlock()
		return f.Snapshot(), models.NewValidationError("circuit name", "cannot accept in %s mode", mode)
	}
	f.complete(f.state.Generated, models.NameSourceGenerated)
	f.mu.Unlock()

	f.metrics.RecordNameResolved(ctx, string(models.NameSourceGenerated))
	f.changed()
	return f.Snapshot(), nil
}

// SwitchToManual moves from the generated name to manual entry.
func (f *Flow) SwitchToManual() (models.CircuitNameSession, error) {
	f.mu.Lock()
	if err := f.closedLocked(); err != nil {
		f.mu.Unlock()
		return f.Snapshot(), err
	}
	switch f.state.Mode {
	case models.NameManualEntry:
		f.mu.Unlock()
		return f.Snapshot(), nil
	case models.NameAutoGenerating:
		f.mu.Unlock()
		return f.Snapshot(), models.NewValidationError("circuit name", "name is still being generated")
	}
	f.state.Mode = models.NameManualEntry
	f.mu.Unlock()

	f.changed()
	return f.Snapshot(), nil
}

// SubmitManual completes the flow with a non-blank manual name.
func (f *Flow) SubmitManual(ctx context.Context, name string) (models.CircuitNameSession, error) {
	name = strings.TrimSpace(name)

	f.mu.Lock()
	if err := f.closedLocked(); err != nil {
		f.mu.Unlock()
		return f.Snapshot(), err
	}
	if f.state.Mode != models.NameManualEntry {
		f.mu.Unlock()
		return f.Snapshot(), models.NewValidationError("circuit name", "switch to manual entry first")
	}
	if name == "" {
		f.mu.Unlock()
		return f.Snapshot(), models.NewValidationError("circuit name", "please enter a circuit name")
	}
	f.state.Manual = name
	f.complete(name, models.NameSourceManual)
	f.mu.Unlock()

	f.metrics.RecordNameResolved(ctx, string(models.NameSourceManual))
	f.changed()
	return f.Snapshot(), nil
}

// Dismiss closes the presentation without an outcome.
func (f *Flow) Dismiss() error {
	f.mu.Lock()
	if err := f.closedLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.dismissed = true
	f.mu.Unlock()

	f.changed()
	return nil
}

// Outcome returns the resolved name once the flow completed.
func (f *Flow) Outcome() (string, models.NameSource, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.state.Completed {
		return "", "", false
	}
	return f.state.Resolved, f.state.Source, true
}

// Open reports whether the flow still accepts actions.
func (f *Flow) Open() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closedLocked() == nil
}

// Snapshot returns a copy of the flow state.
func (f *Flow) Snapshot() models.CircuitNameSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) complete(name string, source models.NameSource) {
	f.state.Completed = true
	f.state.Resolved = name
	f.state.Source = source
}

func (f *Flow) closedLocked() error {
	if f.state.Completed || f.dismissed {
		return models.ErrClosed
	}
	return nil
}

func (f *Flow) changed() {
	if f.onChange != nil {
		f.onChange()
	}
}
