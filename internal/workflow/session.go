// Package workflow composes the per-session orchestrator: uploads, progress
// polling, the classification pipeline and circuit naming.
package workflow

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/metrics"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/naming"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/orchestration"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/pipeline"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/progress"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/upload"
)

// Options tune the components of a session.
type Options struct {
	PollInterval    time.Duration
	PreviewLines    int
	UpstreamTimeout time.Duration
	Metrics         *metrics.WorkflowMetrics
}

// Session is the orchestrator of one browser session. It is the only
// caller of its components.
type Session struct {
	id        string
	createdAt time.Time

	analysis orchestration.AnalysisAPI
	drafting orchestration.DraftingAPI
	metrics  *metrics.WorkflowMetrics

	upstreamTimeout time.Duration

	uploads  *upload.Coordinator
	poller   *progress.Poller
	pipeline *pipeline.Pipeline

	mu          sync.Mutex
	chips       []string
	template    *models.TemplateInfo
	flow        *naming.Flow
	circuitName string
	nameSource  models.NameSource
	closed      bool

	pubMu       sync.Mutex
	version     uint64
	subscribers map[uint64]chan models.Snapshot
	nextSub     uint64
}

// NewSession wires a session against the two backend servers.
func NewSession(id string, analysis orchestration.AnalysisAPI, drafting orchestration.DraftingAPI, opts Options) *Session {
	s := &Session{
		id:              id,
		createdAt:       time.Now(),
		analysis:        analysis,
		drafting:        drafting,
		metrics:         opts.Metrics,
		upstreamTimeout: opts.UpstreamTimeout,
		chips:           []string{},
		subscribers:     make(map[uint64]chan models.Snapshot),
	}

	s.uploads = upload.NewCoordinator(
		upload.Router{Analysis: analysis, Drafting: drafting},
		upload.WithPreviewLines(opts.PreviewLines),
		upload.WithMetrics(opts.Metrics),
		upload.WithOnChange(s.publish),
	)
	s.poller = progress.NewPoller(analysis,
		progress.WithInterval(opts.PollInterval),
		progress.WithMetrics(opts.Metrics),
		progress.WithOnChange(s.publish),
	)
	s.pipeline = pipeline.New(drafting,
		pipeline.WithMetrics(opts.Metrics),
		pipeline.WithOnChange(s.publish),
	)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.ErrSessionClosed
	}
	return nil
}

// Upload sends one file to its slot. A BOM upload that reports chips arms
// progress polling; a template upload replaces the template handle.
func (s *Session) Upload(ctx context.Context, slot models.Slot, filename string, content io.Reader) (*upload.Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	res, err := s.uploads.Upload(ctx, slot, filename, content)
	if err != nil {
		return nil, err
	}
	if !s.applyUpload(res) {
		return nil, models.ErrSessionClosed
	}
	return res, nil
}

// UploadBatch sends files for several slots concurrently.
func (s *Session) UploadBatch(ctx context.Context, files []upload.File) ([]upload.BatchResult, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	results := s.uploads.UploadBatch(ctx, files)
	for _, r := range results {
		if r.Err == nil && r.Result != nil && !s.applyUpload(r.Result) {
			return nil, models.ErrSessionClosed
		}
	}
	return results, nil
}

// applyUpload reports false when the session closed while the upload was
// in flight; nothing is applied then.
func (s *Session) applyUpload(res *upload.Result) bool {
	switch {
	case res.Signal != nil:
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return false
		}
		s.chips = append([]string{}, res.Signal.Chips...)
		s.flow = nil
		s.circuitName = ""
		s.nameSource = ""
		s.mu.Unlock()

		log.Printf(`{"level":"info","message":"BOM accepted, polling progress","session_id":"%s","chips":%d,"total":%d}`,
			s.id, len(res.Signal.Chips), res.Signal.Total)
		s.poller.Arm(res.Signal.Total)

	case res.Slot.Slot == models.SlotTemplate:
		id := res.Receipt.TemplateID
		if id == "" {
			id = res.Slot.Filename
		}
		at := time.Now()
		if res.Slot.UploadedAt != nil {
			at = *res.Slot.UploadedAt
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return false
		}
		s.template = &models.TemplateInfo{ID: id, Filename: res.Slot.Filename, UploadedAt: at}
		s.mu.Unlock()
		s.publish()
	}
	return true
}

// ReloadResults fetches the categorized results again.
func (s *Session) ReloadResults(ctx context.Context) (*models.CategorizedParts, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.poller.ReloadResults(ctx)
}

// nameAvailable reports whether the circuit-name dialog may be presented:
// all analysis files uploaded and results loaded.
func (s *Session) nameAvailable() bool {
	return s.uploads.AllUploaded(models.AnalysisSlots...) && s.poller.Parts() != nil
}

// PresentName opens the circuit-name dialog. An already open presentation
// is returned as is; otherwise a new one is entered, generating a name
// unless one was resolved before.
func (s *Session) PresentName(ctx context.Context) (models.CircuitNameSession, error) {
	if err := s.checkOpen(); err != nil {
		return models.CircuitNameSession{}, err
	}
	if !s.nameAvailable() {
		return models.CircuitNameSession{}, models.NewValidationError("circuit name",
			"upload all analysis files and wait for the results first")
	}

	s.mu.Lock()
	flow := s.flow
	if flow == nil || !flow.Open() {
		flow = naming.NewFlow(s.analysis, s.chips,
			naming.WithKnownName(s.circuitName),
			naming.WithTimeout(s.upstreamTimeout),
			naming.WithMetrics(s.metrics),
			naming.WithOnChange(s.publish),
		)
		s.flow = flow
	}
	s.mu.Unlock()

	return flow.Enter(ctx), nil
}

func (s *Session) currentFlow() (*naming.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, models.ErrSessionClosed
	}
	if s.flow == nil {
		return nil, models.NewValidationError("circuit name", "the circuit name dialog is not open")
	}
	return s.flow, nil
}

func (s *Session) resolveName(flow *naming.Flow) {
	name, source, ok := flow.Outcome()
	if !ok {
		return
	}
	s.mu.Lock()
	if s.flow == flow {
		s.circuitName = name
		s.nameSource = source
	}
	s.mu.Unlock()

	log.Printf(`{"level":"info","message":"Circuit name resolved","session_id":"%s","name":"%s","source":"%s"}`, s.id, name, source)
	s.publish()
}

// AcceptName completes the dialog with the generated name.
func (s *Session) AcceptName(ctx context.Context) (models.CircuitNameSession, error) {
	flow, err := s.currentFlow()
	if err != nil {
		return models.CircuitNameSession{}, err
	}
	state, err := flow.Accept(ctx)
	if err != nil {
		return state, err
	}
	s.resolveName(flow)
	return state, nil
}

// SwitchNameToManual switches the dialog to manual entry.
func (s *Session) SwitchNameToManual() (models.CircuitNameSession, error) {
	flow, err := s.currentFlow()
	if err != nil {
		return models.CircuitNameSession{}, err
	}
	return flow.SwitchToManual()
}

// SubmitManualName completes the dialog with a manual name.
func (s *Session) SubmitManualName(ctx context.Context, name string) (models.CircuitNameSession, error) {
	flow, err := s.currentFlow()
	if err != nil {
		return models.CircuitNameSession{}, err
	}
	state, err := flow.SubmitManual(ctx, name)
	if err != nil {
		return state, err
	}
	s.resolveName(flow)
	return state, nil
}

// DismissName closes the dialog without an outcome.
func (s *Session) DismissName() error {
	flow, err := s.currentFlow()
	if err != nil {
		return err
	}
	return flow.Dismiss()
}

// Search classifies a part number and fetches its parameters.
func (s *Session) Search(ctx context.Context, partNumber string) (models.PipelineState, error) {
	if err := s.checkOpen(); err != nil {
		return models.PipelineState{}, err
	}
	return s.pipeline.Search(ctx, partNumber)
}

// RetryParameters fetches the parameters of the current part again.
func (s *Session) RetryParameters(ctx context.Context) (models.PipelineState, error) {
	if err := s.checkOpen(); err != nil {
		return models.PipelineState{}, err
	}
	return s.pipeline.RetryParameters(ctx)
}

// EditParameter changes one parameter value.
func (s *Session) EditParameter(key, value string) (models.PipelineState, error) {
	if err := s.checkOpen(); err != nil {
		return models.PipelineState{}, err
	}
	return s.pipeline.EditParameter(key, value)
}

// Generate produces a document from the current template and parameters.
func (s *Session) Generate(ctx context.Context, description string) (*models.GenerationResult, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	var template *models.TemplateInfo
	if s.template != nil {
		t := *s.template
		template = &t
	}
	s.mu.Unlock()

	return s.pipeline.Generate(ctx, template, description)
}

// Artifact returns the output filename of a generation.
func (s *Session) Artifact(generation uint64) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	return s.pipeline.Artifact(generation)
}

// Download streams the artifact of a generation into w.
func (s *Session) Download(ctx context.Context, generation uint64, w io.Writer) (int64, string, error) {
	if err := s.checkOpen(); err != nil {
		return 0, "", err
	}
	return s.pipeline.Download(ctx, generation, w)
}

// Templates lists the templates the drafting server knows.
func (s *Session) Templates(ctx context.Context) ([]models.TemplateEntry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	entries, err := s.drafting.Templates(ctx)
	if err != nil {
		return nil, models.NewTransportError("templates", err)
	}
	return entries, nil
}

// Snapshot returns the current state without bumping the version.
func (s *Session) Snapshot() models.Snapshot {
	s.pubMu.Lock()
	version := s.version
	s.pubMu.Unlock()
	return s.build(version)
}

func (s *Session) build(version uint64) models.Snapshot {
	state := s.poller.State()
	parts := s.poller.Parts()

	s.mu.Lock()
	snap := models.Snapshot{
		SessionID:   s.id,
		Version:     version,
		Chips:       append([]string{}, s.chips...),
		CircuitName: s.circuitName,
		NameSource:  s.nameSource,
		Closed:      s.closed,
	}
	if s.template != nil {
		t := *s.template
		snap.Template = &t
	}
	flow := s.flow
	s.mu.Unlock()

	if flow != nil && flow.Open() {
		fs := flow.Snapshot()
		snap.NameFlow = &fs
	}
	snap.Slots = s.uploads.Snapshot()
	snap.Progress = state
	snap.Percent = state.Percent()
	snap.Parts = parts
	snap.PartsError = s.poller.PartsError()
	snap.NameAvailable = parts != nil && s.uploads.AllUploaded(models.AnalysisSlots...)
	snap.Pipeline = s.pipeline.Snapshot()
	snap.UpdatedAt = time.Now()
	return snap
}

// publish bumps the version and hands the new snapshot to every
// subscriber, replacing any snapshot the subscriber has not read yet.
func (s *Session) publish() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	if s.subscribers == nil {
		return
	}
	s.version++
	snap := s.build(s.version)
	for _, ch := range s.subscribers {
		deliver(ch, snap)
	}
}

func deliver(ch chan models.Snapshot, snap models.Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Subscribe returns a channel holding the latest snapshot, primed with the
// current one. The channel is closed by cancel or when the session closes.
func (s *Session) Subscribe() (<-chan models.Snapshot, func(), error) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	if s.subscribers == nil {
		return nil, nil, models.ErrSessionClosed
	}
	ch := make(chan models.Snapshot, 1)
	s.nextSub++
	id := s.nextSub
	s.subscribers[id] = ch
	ch <- s.build(s.version)

	cancel := func() {
		s.pubMu.Lock()
		defer s.pubMu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel, nil
}

// Close tears the session down. Polling stops and subscriber channels are
// closed after a final snapshot. Later calls return models.ErrSessionClosed.
func (s *Session) Close(reason string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ErrSessionClosed
	}
	s.closed = true
	s.mu.Unlock()

	s.poller.Shutdown()

	s.pubMu.Lock()
	s.version++
	final := s.build(s.version)
	for id, ch := range s.subscribers {
		deliver(ch, final)
		close(ch)
		delete(s.subscribers, id)
	}
	s.subscribers = nil
	s.pubMu.Unlock()

	log.Printf(`{"level":"info","message":"Session closed","session_id":"%s","reason":"%s"}`, s.id, reason)
	s.metrics.RecordSessionClosed(context.Background(), reason)
	return nil
}
