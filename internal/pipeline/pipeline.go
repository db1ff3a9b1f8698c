// Package pipeline runs the part classification steps of the drafting
// workflow: classify, fetch parameters, edit, generate and download.
package pipeline

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/metrics"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/orchestration"
)

// Backend is the subset of the drafting server the pipeline calls.
type Backend interface {
	Classify(ctx context.Context, partNumber string) (*models.ClassificationResult, error)
	FetchParameters(ctx context.Context, partNumber, componentType string) (models.ParameterSet, error)
	GenerateDocument(ctx context.Context, req models.GenerationRequest) (*orchestration.GenerateDocumentResponse, error)
	Download(ctx context.Context, filename string, w io.Writer) (int64, error)
}

// Pipeline owns the classification, parameter and generation state of a
// session. Every search and every generation gets its own invocation token;
// a response whose token is no longer current is discarded.
type Pipeline struct {
	mu      sync.Mutex
	backend Backend

	searchToken    uint64
	fetchSeq       uint64
	partNumber     string
	stage          models.PipelineStage
	classification *models.ClassificationResult
	params         models.ParameterSet
	paramsLoaded   bool

	genToken   uint64
	generation *models.GenerationResult

	classifyErr string
	paramsErr   string
	generateErr string

	metrics  *metrics.WorkflowMetrics
	onChange func()
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records step outcomes.
func WithMetrics(m *metrics.WorkflowMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithOnChange registers a callback invoked after every state change.
func WithOnChange(fn func()) Option {
	return func(p *Pipeline) { p.onChange = fn }
}

// New creates an idle pipeline.
func New(backend Backend, opts ...Option) *Pipeline {
	p := &Pipeline{backend: backend, params: models.ParameterSet{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Search classifies partNumber and then fetches its parameters. Any earlier
// classification, parameters and generation are discarded before the
// classify call is made.
func (p *Pipeline) Search(ctx context.Context, partNumber string) (models.PipelineState, error) {
	partNumber = strings.TrimSpace(partNumber)
	if partNumber == "" {
		return p.Snapshot(), models.NewValidationError("classify", "please enter a part number")
	}

	p.mu.Lock()
	p.searchToken++
	token := p.searchToken
	p.partNumber = partNumber
	p.stage = models.StageClassifying
	p.classification = nil
	p.params = models.ParameterSet{}
	p.paramsLoaded = false
	p.generation = nil
	p.classifyErr, p.paramsErr, p.generateErr = "", "", ""
	p.mu.Unlock()
	p.changed()

	start := time.Now()
	result, err := p.backend.Classify(ctx, partNumber)

	p.mu.Lock()
	if p.searchToken != token {
		p.mu.Unlock()
		return p.Snapshot(), models.ErrSuperseded
	}
	if err != nil {
		stepErr := models.NewTransportError("classify", err)
		p.classifyErr = stepErr.UserMessage()
		p.stage = models.StageFailed
		p.mu.Unlock()

		log.Printf(`{"level":"warn","message":"Classification failed","part_number":"%s","error":"%v"}`, partNumber, err)
		p.metrics.RecordPipelineStep(ctx, "classify", "failed", time.Since(start))
		p.changed()
		return p.Snapshot(), stepErr
	}
	if result.PartNumber == "" {
		result.PartNumber = partNumber
	}
	classification := *result
	p.classification = &classification
	p.mu.Unlock()

	p.metrics.RecordPipelineStep(ctx, "classify", "ok", time.Since(start))
	p.changed()

	if err := p.fetch(ctx, token); err != nil {
		return p.Snapshot(), err
	}
	return p.Snapshot(), nil
}

// RetryParameters fetches the parameters again for the current
// classification.
func (p *Pipeline) RetryParameters(ctx context.Context) (models.PipelineState, error) {
	p.mu.Lock()
	token := p.searchToken
	ready := p.classification != nil
	p.mu.Unlock()

	if !ready {
		return p.Snapshot(), models.NewValidationError("fetch parameters", "classify a part number first")
	}
	if err := p.fetch(ctx, token); err != nil {
		return p.Snapshot(), err
	}
	return p.Snapshot(), nil
}

func (p *Pipeline) fetch(ctx context.Context, token uint64) error {
	p.mu.Lock()
	if p.searchToken != token || p.classification == nil {
		p.mu.Unlock()
		return models.ErrSuperseded
	}
	p.fetchSeq++
	seq := p.fetchSeq
	partNumber := p.classification.PartNumber
	componentType := p.classification.ComponentType
	p.stage = models.StageFetchingParameters
	p.paramsErr = ""
	p.mu.Unlock()
	p.changed()

	start := time.Now()
	params, err := p.backend.FetchParameters(ctx, partNumber, componentType)

	p.mu.Lock()
	if p.searchToken != token || p.fetchSeq != seq {
		p.mu.Unlock()
		return models.ErrSuperseded
	}
	if err != nil {
		stepErr := models.NewTransportError("fetch parameters", err)
		p.paramsErr = stepErr.UserMessage()
		p.stage = models.StageFailed
		p.mu.Unlock()

		log.Printf(`{"level":"warn","message":"Fetching parameters failed","part_number":"%s","component_type":"%s","error":"%v"}`, partNumber, componentType, err)
		p.metrics.RecordPipelineStep(ctx, "fetch_parameters", "failed", time.Since(start))
		p.changed()
		return stepErr
	}
	p.params = params.Clone()
	p.paramsLoaded = true
	p.stage = models.StageReady
	p.mu.Unlock()

	p.metrics.RecordPipelineStep(ctx, "fetch_parameters", "ok", time.Since(start))
	p.changed()
	return nil
}

// EditParameter replaces the value of one existing parameter.
func (p *Pipeline) EditParameter(key, value string) (models.PipelineState, error) {
	p.mu.Lock()
	if !p.paramsLoaded {
		p.mu.Unlock()
		return p.Snapshot(), models.NewValidationError("edit parameter", "no parameters loaded")
	}
	if _, ok := p.params[key]; !ok {
		p.mu.Unlock()
		return p.Snapshot(), models.NewValidationError("edit parameter", "unknown parameter %q", key)
	}
	p.params[key] = value
	p.mu.Unlock()

	p.changed()
	return p.Snapshot(), nil
}

// Generate asks the drafting server to fill template with the current
// classification and parameters.
func (p *Pipeline) Generate(ctx context.Context, template *models.TemplateInfo, description string) (*models.GenerationResult, error) {
	if template == nil || template.ID == "" {
		return nil, models.NewValidationError("generate", "please upload a template first")
	}

	p.mu.Lock()
	if p.classification == nil || !p.paramsLoaded {
		p.mu.Unlock()
		return nil, models.NewValidationError("generate", "classify a part number and load its parameters first")
	}
	p.genToken++
	token := p.genToken
	search := p.searchToken
	req := models.GenerationRequest{
		TemplatePath:  template.ID,
		PartNumber:    p.classification.PartNumber,
		ComponentType: p.classification.ComponentType,
		Parameters:    p.params.Clone(),
		Description:   description,
	}
	p.stage = models.StageGenerating
	p.generation = nil
	p.generateErr = ""
	p.mu.Unlock()
	p.changed()

	start := time.Now()
	resp, err := p.backend.GenerateDocument(ctx, req)

	p.mu.Lock()
	if p.genToken != token || p.searchToken != search {
		p.mu.Unlock()
		return nil, models.ErrSuperseded
	}

	var stepErr *models.StepError
	switch {
	case err != nil:
		stepErr = models.NewTransportError("generate", err)
	case !resp.Success:
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		stepErr = models.NewSemanticFailure("generate", msg)
	}

	result := &models.GenerationResult{Token: token}
	if stepErr != nil {
		result.Message = stepErr.UserMessage()
		p.generateErr = result.Message
		p.stage = models.StageReady
	} else {
		result.Success = true
		result.OutputFilename = resp.OutputFilename
		result.Message = resp.Message
		p.stage = models.StageGenerated
	}
	p.generation = result
	out := *result
	p.mu.Unlock()

	if stepErr != nil {
		log.Printf(`{"level":"warn","message":"Document generation failed","part_number":"%s","error":"%s"}`, req.PartNumber, stepErr.Error())
		p.metrics.RecordPipelineStep(ctx, "generate", "failed", time.Since(start))
		p.changed()
		return &out, stepErr
	}

	log.Printf(`{"level":"info","message":"Document generated","part_number":"%s","output":"%s"}`, req.PartNumber, out.OutputFilename)
	p.metrics.RecordPipelineStep(ctx, "generate", "ok", time.Since(start))
	p.changed()
	return &out, nil
}

// Artifact returns the output filename of generation token. Only the
// latest generation has an artifact, and only if it succeeded.
func (p *Pipeline) Artifact(token uint64) (string, error) {
	p.mu.Lock()
	gen := p.generation
	latest := p.genToken
	p.mu.Unlock()

	if token != latest || gen == nil || gen.Token != token {
		if token < latest {
			return "", models.ErrSuperseded
		}
		return "", models.NewValidationError("download", "no document generated for invocation %d", token)
	}
	if !gen.Success || gen.OutputFilename == "" {
		return "", models.NewValidationError("download", "generation %d did not produce a document", token)
	}
	return gen.OutputFilename, nil
}

// Download streams the artifact of generation token into w.
func (p *Pipeline) Download(ctx context.Context, token uint64, w io.Writer) (int64, string, error) {
	filename, err := p.Artifact(token)
	if err != nil {
		return 0, "", err
	}

	n, err := p.backend.Download(ctx, filename, w)
	if err != nil {
		log.Printf(`{"level":"warn","message":"Artifact download failed","filename":"%s","error":"%v"}`, filename, err)
		return n, filename, models.NewTransportError("download", err)
	}
	return n, filename, nil
}

// Snapshot returns a copy of the pipeline state.
func (p *Pipeline) Snapshot() models.PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := models.PipelineState{
		Stage:            p.stage,
		SearchToken:      p.searchToken,
		PartNumber:       p.partNumber,
		Parameters:       p.params.Clone(),
		ParametersLoaded: p.paramsLoaded,
		ClassifyError:    p.classifyErr,
		ParametersError:  p.paramsErr,
		GenerateError:    p.generateErr,
	}
	if p.classification != nil {
		c := *p.classification
		state.Classification = &c
	}
	if p.generation != nil {
		g := *p.generation
		state.Generation = &g
	}
	return state
}

func (p *Pipeline) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}
