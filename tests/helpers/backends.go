package helpers

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
)

// ProgressReport is one scripted answer of the fake analysis server.
type ProgressReport struct {
	Done   int    `json:"done"`
	Total  int    `json:"total"`
	Status string `json:"status"`
}

// AnalysisServer is an in-process stand-in for the analysis server. Its
// API lives under URL()+"/api".
type AnalysisServer struct {
	server *httptest.Server

	mu          sync.Mutex
	progress    []ProgressReport
	next        int
	parts       models.CategorizedParts
	chips       []string
	circuitName string
	failUpload  map[string]string
	calls       map[string]int
	lastChips   []string
}

// NewAnalysisServer starts a server whose BOM upload reports chips and
// whose progress goes 10, 25, 42 of 42.
func NewAnalysisServer() *AnalysisServer {
	a := &AnalysisServer{
		progress:    DefaultProgress(),
		parts:       DefaultParts(),
		chips:       []string{"TPS54331", "LM358"},
		circuitName: "Buck Converter",
		failUpload:  map[string]string{},
		calls:       map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload/{kind}", a.upload)
	mux.HandleFunc("GET /api/progress", a.getProgress)
	mux.HandleFunc("GET /api/parts", a.getParts)
	mux.HandleFunc("POST /api/circuit-name", a.generateName)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		a.count("health")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	a.server = httptest.NewServer(mux)
	return a
}

// DefaultProgress is the 42-part run used across tests.
func DefaultProgress() []ProgressReport {
	return []ProgressReport{
		{Done: 10, Total: 42, Status: "processing"},
		{Done: 25, Total: 42, Status: "processing"},
		{Done: 42, Total: 42, Status: "completed"},
	}
}

// DefaultParts is the categorized result of DefaultProgress.
func DefaultParts() models.CategorizedParts {
	return models.CategorizedParts{
		Capacitors: []models.PartRecord{{"ref": "C1", "part_number": "GCM1885C1H180JA16D"}},
		Resistors:  []models.PartRecord{{"ref": "R1", "part_number": "RC0603FR-0710KL"}},
		Others:     []models.PartRecord{},
		Total:      2,
	}
}

// URL is the server root.
func (a *AnalysisServer) URL() string { return a.server.URL }

// APIURL is the base URL the analysis client expects.
func (a *AnalysisServer) APIURL() string { return a.server.URL + "/api" }

// Close shuts the server down.
func (a *AnalysisServer) Close() { a.server.Close() }

// SetProgress replaces the scripted progress reports.
func (a *AnalysisServer) SetProgress(reports ...ProgressReport) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progress = reports
	a.next = 0
}

// SetCircuitName sets the generated name; empty makes generation fail.
func (a *AnalysisServer) SetCircuitName(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.circuitName = name
}

// FailUpload makes uploads of kind ("xml", "csv", "yaml") answer with message.
func (a *AnalysisServer) FailUpload(kind, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failUpload[kind] = message
}

// Calls returns how often endpoint was hit ("upload/csv", "progress",
// "parts", "circuit-name", "health").
func (a *AnalysisServer) Calls(endpoint string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[endpoint]
}

// LastChips returns the chips of the last name request.
func (a *AnalysisServer) LastChips() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.lastChips...)
}

func (a *AnalysisServer) count(endpoint string) {
	a.mu.Lock()
	a.calls[endpoint]++
	a.mu.Unlock()
}

func (a *AnalysisServer) upload(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	a.count("upload/" + kind)

	a.mu.Lock()
	failure, failing := a.failUpload[kind]
	chips := append([]string{}, a.chips...)
	total := 0
	if len(a.progress) > 0 {
		total = a.progress[len(a.progress)-1].Total
	}
	a.mu.Unlock()

	if failing {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": failure})
		return
	}

	filename, lines, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file part"})
		return
	}

	resp := map[string]any{
		"filename": filename,
		"filepath": "/uploads/" + filename,
		"preview":  lines,
	}
	if kind == "csv" {
		resp["chips"] = chips
		resp["total_parts"] = total
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *AnalysisServer) getProgress(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.calls["progress"]++
	var report ProgressReport
	if len(a.progress) > 0 {
		report = a.progress[a.next]
		if a.next < len(a.progress)-1 {
			a.next++
		}
	}
	a.mu.Unlock()
	writeJSON(w, http.StatusOK, report)
}

func (a *AnalysisServer) getParts(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.calls["parts"]++
	parts := a.parts
	a.mu.Unlock()
	writeJSON(w, http.StatusOK, parts)
}

func (a *AnalysisServer) generateName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Chips []string `json:"chips"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	a.mu.Lock()
	a.calls["circuit-name"]++
	a.lastChips = req.Chips
	name := a.circuitName
	a.mu.Unlock()

	if name == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "name generation failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"circuit_name": name})
}

// DraftingServer is an in-process stand-in for the drafting server. Its
// API lives under URL()+"/api" and its health check at URL()+"/health".
type DraftingServer struct {
	server *httptest.Server

	mu             sync.Mutex
	componentType  string
	parameters     map[string]string
	generateOK     bool
	generateError  string
	artifact       []byte
	lastGeneration map[string]any
	calls          map[string]int
}

// NewDraftingServer starts a server that classifies every part as a
// capacitor and generates documents successfully.
func NewDraftingServer() *DraftingServer {
	d := &DraftingServer{
		componentType: "capacitor",
		parameters: map[string]string{
			"Capacitance":                "18pF",
			"Rated Voltage":              "50V",
			"Temperature Characteristic": "C0G",
		},
		generateOK: true,
		artifact:   []byte("PK\x03\x04 fake docx"),
		calls:      map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload-template", d.uploadTemplate)
	mux.HandleFunc("POST /api/classify-component", d.classify)
	mux.HandleFunc("POST /api/fetch-parameters", d.fetchParameters)
	mux.HandleFunc("POST /api/generate-document", d.generate)
	mux.HandleFunc("GET /api/download/{filename}", d.download)
	mux.HandleFunc("GET /api/templates", func(w http.ResponseWriter, r *http.Request) {
		d.count("templates")
		writeJSON(w, http.StatusOK, map[string]any{
			"templates": []models.TemplateEntry{{ID: "spec.docx", Path: "/templates/spec.docx"}},
		})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		d.count("health")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	d.server = httptest.NewServer(mux)
	return d
}

// URL is the server root.
func (d *DraftingServer) URL() string { return d.server.URL }

// APIURL is the base URL the drafting client expects.
func (d *DraftingServer) APIURL() string { return d.server.URL + "/api" }

// Close shuts the server down.
func (d *DraftingServer) Close() { d.server.Close() }

// Artifact returns the bytes served for every download.
func (d *DraftingServer) Artifact() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.artifact...)
}

// RejectGeneration makes generation answer success:false with message.
func (d *DraftingServer) RejectGeneration(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generateOK = false
	d.generateError = message
}

// LastGeneration returns the body of the last generation request.
func (d *DraftingServer) LastGeneration() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastGeneration
}

// Calls returns how often endpoint was hit.
func (d *DraftingServer) Calls(endpoint string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[endpoint]
}

func (d *DraftingServer) count(endpoint string) {
	d.mu.Lock()
	d.calls[endpoint]++
	d.mu.Unlock()
}

func (d *DraftingServer) uploadTemplate(w http.ResponseWriter, r *http.Request) {
	d.count("upload-template")
	filename, _, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "No file uploaded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"template_id": filename,
		"filename":    filename,
		"message":     "Template uploaded successfully",
	})
}

func (d *DraftingServer) classify(w http.ResponseWriter, r *http.Request) {
	d.count("classify-component")
	var req struct {
		PartNumber string `json:"part_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PartNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "part_number is required"})
		return
	}

	d.mu.Lock()
	componentType := d.componentType
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, models.ClassificationResult{
		PartNumber:    req.PartNumber,
		ComponentType: componentType,
		Confidence:    "high",
	})
}

func (d *DraftingServer) fetchParameters(w http.ResponseWriter, r *http.Request) {
	d.count("fetch-parameters")
	d.mu.Lock()
	params := make(map[string]string, len(d.parameters))
	for k, v := range d.parameters {
		params[k] = v
	}
	d.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"parameters": params})
}

func (d *DraftingServer) generate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	d.mu.Lock()
	d.calls["generate-document"]++
	d.lastGeneration = body
	ok := d.generateOK
	failure := d.generateError
	d.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": failure})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"output_filename": "generated_GCM1885C1H180JA16D.docx",
	})
}

func (d *DraftingServer) download(w http.ResponseWriter, r *http.Request) {
	d.count("download")
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.Artifact())
}

// readUpload returns the filename and lines of the "file" form field.
func readUpload(r *http.Request) (string, []string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(io.LimitReader(file, 1<<20))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if lines == nil {
		lines = []string{}
	}
	return header.Filename, lines, scanner.Err()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
