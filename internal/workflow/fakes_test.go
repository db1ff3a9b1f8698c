package workflow

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/orchestration"
)

type fakeAnalysis struct {
	mu         sync.Mutex
	uploads    []models.Slot
	progress   []models.ProgressState
	polls      int
	partsCalls int
	nameCalls  [][]string
	name       string

	// When set, a BOM upload signals bomStarted and waits for bomRelease.
	bomStarted chan struct{}
	bomRelease chan struct{}
}

func newFakeAnalysis() *fakeAnalysis {
	return &fakeAnalysis{
		progress: []models.ProgressState{
			{Done: 10, Total: 42, Status: models.ProgressProcessing},
			{Done: 25, Total: 42, Status: models.ProgressProcessing},
			{Done: 42, Total: 42, Status: models.ProgressCompleted},
		},
		name: "Buck Converter",
	}
}

func (f *fakeAnalysis) UploadSlot(_ context.Context, slot models.Slot, filename string, content io.Reader) (*models.UploadReceipt, error) {
	body, _ := io.ReadAll(content)
	if slot == models.SlotBOM && f.bomRelease != nil {
		close(f.bomStarted)
		<-f.bomRelease
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, slot)
	f.mu.Unlock()

	receipt := &models.UploadReceipt{Filename: filename, Preview: strings.Split(string(body), "\n")}
	if slot == models.SlotBOM {
		receipt.Chips = []string{"LM2596", "TPS5430"}
		receipt.HasChips = true
		receipt.TotalParts = 42
	}
	return receipt, nil
}

func (f *fakeAnalysis) Progress(context.Context) (*models.ProgressState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := min(f.polls, len(f.progress)-1)
	f.polls++
	state := f.progress[idx]
	return &state, nil
}

func (f *fakeAnalysis) Parts(context.Context) (*models.CategorizedParts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partsCalls++
	return &models.CategorizedParts{
		Capacitors: []models.PartRecord{{"designator": "C1", "value": "18pF"}},
		Resistors:  []models.PartRecord{{"designator": "R1", "value": "10k"}},
		Total:      2,
	}, nil
}

func (f *fakeAnalysis) CircuitName(_ context.Context, chips []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nameCalls = append(f.nameCalls, chips)
	return f.name, nil
}

func (f *fakeAnalysis) IsHealthy(context.Context) bool { return true }

func (f *fakeAnalysis) counts() (polls, parts, names int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls, f.partsCalls, len(f.nameCalls)
}

type fakeDrafting struct {
	mu        sync.Mutex
	generated []models.GenerationRequest
	success   bool
}

func (f *fakeDrafting) UploadTemplate(_ context.Context, filename string, _ io.Reader) (*models.UploadReceipt, error) {
	return &models.UploadReceipt{Filename: filename, TemplateID: filename}, nil
}

func (f *fakeDrafting) Classify(_ context.Context, partNumber string) (*models.ClassificationResult, error) {
	return &models.ClassificationResult{PartNumber: partNumber, ComponentType: "capacitor", Confidence: "high"}, nil
}

func (f *fakeDrafting) FetchParameters(context.Context, string, string) (models.ParameterSet, error) {
	return models.ParameterSet{"Capacitance": "18pF", "Voltage": "50V"}, nil
}

func (f *fakeDrafting) GenerateDocument(_ context.Context, req models.GenerationRequest) (*orchestration.GenerateDocumentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, req)
	if !f.success {
		return &orchestration.GenerateDocumentResponse{Success: false, Error: "generation failed"}, nil
	}
	return &orchestration.GenerateDocumentResponse{Success: true, OutputFilename: req.PartNumber + ".docx"}, nil
}

func (f *fakeDrafting) Download(_ context.Context, filename string, w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "artifact "+filename)
	return int64(n), err
}

func (f *fakeDrafting) Templates(context.Context) ([]models.TemplateEntry, error) {
	return []models.TemplateEntry{{ID: "spec.docx", Path: "/templates/spec.docx"}}, nil
}

func (f *fakeDrafting) IsHealthy(context.Context) bool { return true }
