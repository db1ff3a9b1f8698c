// Package progress tracks a long-running server-side processing run by
// polling its status endpoint.
package progress

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/metrics"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
)

// DefaultInterval is the time between two status requests.
const DefaultInterval = time.Second

// Source is the server side of a processing run.
type Source interface {
	Progress(ctx context.Context) (*models.ProgressState, error)
	Parts(ctx context.Context) (*models.CategorizedParts, error)
}

// Poller owns the ProgressState and the categorized results of a session.
type Poller struct {
	armMu    sync.Mutex
	shutdown bool

	mu       sync.Mutex
	source   Source
	interval time.Duration
	state    models.ProgressState
	parts    *models.CategorizedParts
	partsErr string
	run      uint64
	armedAt  time.Time
	cancel   context.CancelFunc
	done     chan struct{}

	metrics  *metrics.WorkflowMetrics
	onChange func()
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMetrics records polls and finished runs.
func WithMetrics(m *metrics.WorkflowMetrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// WithOnChange registers a callback invoked after every state change.
func WithOnChange(fn func()) Option {
	return func(p *Poller) { p.onChange = fn }
}

// NewPoller creates an idle poller.
func NewPoller(source Source, opts ...Option) *Poller {
	p := &Poller{
		source:   source,
		interval: DefaultInterval,
		state:    models.ProgressState{Status: models.ProgressIdle},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Arm starts a new run expecting total parts. A run still in flight is
// cancelled and waited for first. Arm returns the new run number, or 0
// once the poller has been shut down.
func (p *Poller) Arm(total int) uint64 {
	p.armMu.Lock()
	defer p.armMu.Unlock()

	if p.shutdown {
		return 0
	}
	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.run++
	run := p.run
	p.state = models.ProgressState{Total: max(total, 0), Status: models.ProgressProcessing}
	p.parts = nil
	p.partsErr = ""
	p.armedAt = time.Now()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	log.Printf(`{"level":"info","message":"Progress polling armed","run":%d,"total":%d}`, run, total)
	p.changed()

	go p.loop(ctx, run, done)
	return run
}

// Stop cancels the active run, if any, and returns once its loop exited.
// The progress state is left as last observed.
func (p *Poller) Stop() {
	p.armMu.Lock()
	defer p.armMu.Unlock()
	p.stopLocked()
}

// Shutdown stops the active run and turns every later Arm into a no-op.
func (p *Poller) Shutdown() {
	p.armMu.Lock()
	defer p.armMu.Unlock()
	p.shutdown = true
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the active run exits or ctx is done.
func (p *Poller) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active reports whether a poll loop is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// State returns a copy of the current progress state.
func (p *Poller) State() models.ProgressState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Parts returns a copy of the categorized results, or nil before they load.
func (p *Poller) Parts() *models.CategorizedParts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parts.Clone()
}

// PartsError is the message of the last failed results fetch.
func (p *Poller) PartsError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.partsErr
}

// ReloadResults fetches the categorized results again. It is only valid
// once the run completed.
func (p *Poller) ReloadResults(ctx context.Context) (*models.CategorizedParts, error) {
	p.mu.Lock()
	status, run := p.state.Status, p.run
	p.mu.Unlock()

	if status != models.ProgressCompleted {
		return nil, models.NewValidationError("reload results", "processing has not completed (status %s)", status)
	}
	if err := p.fetchParts(ctx, run); err != nil {
		return nil, err
	}
	return p.Parts(), nil
}

func (p *Poller) loop(ctx context.Context, run uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		reported, err := p.source.Progress(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.recordPollError(ctx, run, err)
			continue
		}
		p.metrics.RecordPoll(ctx, "ok")

		status, ok := p.apply(run, reported)
		if !ok {
			return
		}
		switch status {
		case models.ProgressCompleted:
			p.finish(ctx, run, status)
			_ = p.fetchParts(ctx, run)
			return
		case models.ProgressFailed:
			p.finish(ctx, run, status)
			log.Printf(`{"level":"warn","message":"Server-side processing failed","run":%d}`, run)
			return
		}
	}
}

// apply overwrites the local state with a server report. It returns false
// when run is no longer current.
func (p *Poller) apply(run uint64, reported *models.ProgressState) (models.ProgressStatus, bool) {
	p.mu.Lock()
	if p.run != run {
		p.mu.Unlock()
		return 0, false
	}

	next := reported.Normalize()
	if next.Total == 0 {
		next.Total = p.state.Total
		next = next.Normalize()
	}
	if !p.state.Status.CanAdvanceTo(next.Status) {
		next.Status = p.state.Status
	}
	next.LastError = ""
	p.state = next
	status := next.Status
	p.mu.Unlock()

	p.changed()
	return status, true
}

func (p *Poller) recordPollError(ctx context.Context, run uint64, err error) {
	log.Printf(`{"level":"warn","message":"Progress poll failed","run":%d,"error":"%v"}`, run, err)
	p.metrics.RecordPoll(ctx, "error")

	p.mu.Lock()
	if p.run != run {
		p.mu.Unlock()
		return
	}
	p.state.LastError = models.MessageOf(models.NewTransportError("progress", err))
	p.mu.Unlock()

	p.changed()
}

func (p *Poller) finish(ctx context.Context, run uint64, status models.ProgressStatus) {
	p.mu.Lock()
	elapsed := time.Since(p.armedAt)
	current := p.run == run
	if current && status == models.ProgressFailed {
		p.state.LastError = models.NewPollTerminalFailure("progress").UserMessage()
	}
	p.mu.Unlock()

	if current {
		p.metrics.RecordRunFinished(ctx, status.String(), elapsed)
	}
}

func (p *Poller) fetchParts(ctx context.Context, run uint64) error {
	parts, err := p.source.Parts(ctx)

	p.mu.Lock()
	if p.run != run {
		p.mu.Unlock()
		return models.ErrSuperseded
	}
	if err != nil {
		stepErr := models.NewTransportError("results", err)
		if errors.Is(err, context.Canceled) {
			p.mu.Unlock()
			return stepErr
		}
		p.partsErr = stepErr.UserMessage()
		p.mu.Unlock()

		log.Printf(`{"level":"warn","message":"Fetching categorized results failed","run":%d,"error":"%v"}`, run, err)
		p.changed()
		return stepErr
	}
	if parts == nil {
		parts = &models.CategorizedParts{}
	}
	p.parts = parts.Clone()
	p.partsErr = ""
	p.mu.Unlock()

	log.Printf(`{"level":"info","message":"Categorized results loaded","run":%d,"total":%d}`, run, parts.Total)
	p.changed()
	return nil
}

func (p *Poller) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}
