// Command smoke drives a running orchestrator through both workflows and
// reports what worked.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
)

const (
	defaultOrchestratorURL = "http://localhost:8080"
	defaultPartNumber      = "GCM1885C1H180JA16D"
	stepTimeout            = 60 * time.Second
)

type TestResult struct {
	TestName string
	Success  bool
	Error    error
	Details  string
}

type smoke struct {
	baseURL   string
	client    *http.Client
	sessionID string
	token     string
	events    chan models.SessionEvent
}

func main() {
	log.Println("Starting Workflow Orchestrator smoke run")

	s := &smoke{
		baseURL: strings.TrimSuffix(envOr("ORCHESTRATOR_URL", defaultOrchestratorURL), "/"),
		client:  &http.Client{Timeout: stepTimeout},
		events:  make(chan models.SessionEvent, 64),
	}

	results := []TestResult{s.testReady()}
	open := s.testCreateSession()
	results = append(results, open)
	if open.Success {
		results = append(results, s.testStream())
		results = append(results, s.testAnalysisWorkflow())
		results = append(results, s.testDraftingWorkflow())
		results = append(results, s.testTeardown())
	}

	printTestResults(results)
}

func (s *smoke) testReady() TestResult {
	log.Println("Step: backend readiness")
	resp, err := s.client.Get(s.baseURL + "/ready")
	if err != nil {
		return TestResult{TestName: "Readiness", Error: err, Details: "orchestrator unreachable"}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return TestResult{TestName: "Readiness", Error: fmt.Errorf("status %d", resp.StatusCode), Details: string(body)}
	}
	return TestResult{TestName: "Readiness", Success: true, Details: "both backends healthy"}
}

func (s *smoke) testCreateSession() TestResult {
	log.Println("Step: open session")
	var resp struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	if err := s.call(http.MethodPost, "/api/sessions", nil, "", &resp); err != nil {
		return TestResult{TestName: "Create session", Error: err}
	}
	s.sessionID, s.token = resp.SessionID, resp.Token
	return TestResult{TestName: "Create session", Success: true, Details: "session " + s.sessionID}
}

func (s *smoke) testStream() TestResult {
	log.Println("Step: snapshot stream")
	wsURL := strings.Replace(s.baseURL, "http", "ws", 1) +
		fmt.Sprintf("/api/sessions/%s/ws?token=%s", s.sessionID, s.token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return TestResult{TestName: "Snapshot stream", Error: err, Details: "failed to connect"}
	}

	go func() {
		defer conn.Close()
		defer close(s.events)
		for {
			var event models.SessionEvent
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			select {
			case s.events <- event:
			default:
			}
		}
	}()

	select {
	case event, ok := <-s.events:
		if !ok || event.EventType != models.EventTypeSnapshot {
			return TestResult{TestName: "Snapshot stream", Error: fmt.Errorf("unexpected first event %q", event.EventType)}
		}
		return TestResult{TestName: "Snapshot stream", Success: true, Details: fmt.Sprintf("initial snapshot version %d", event.Version)}
	case <-time.After(5 * time.Second):
		return TestResult{TestName: "Snapshot stream", Error: fmt.Errorf("no initial snapshot")}
	}
}

func (s *smoke) testAnalysisWorkflow() TestResult {
	log.Println("Step: analysis workflow")
	files := []struct {
		slot, env, name, sample string
	}{
		{"netlist", "NETLIST_FILE", "smoke.xml", `<?xml version="1.0"?><export><components/></export>`},
		{"bom", "BOM_FILE", "smoke.csv", "Reference,Value,Part Number\nC1,18pF," + defaultPartNumber + "\n"},
		{"conditions", "CONDITIONS_FILE", "smoke.yaml", "ambient_temperature: 25\n"},
	}
	for _, f := range files {
		name, content, err := fileOrSample(f.env, f.name, f.sample)
		if err != nil {
			return TestResult{TestName: "Analysis workflow", Error: err}
		}
		if err := s.upload(f.slot, name, content); err != nil {
			return TestResult{TestName: "Analysis workflow", Error: err, Details: "upload " + f.slot}
		}
	}

	snap, err := s.waitFor(func(snap models.Snapshot) bool {
		return snap.Progress.Status.Terminal() && (snap.Parts != nil || snap.PartsError != "" || snap.Progress.Status == models.ProgressFailed)
	})
	if err != nil {
		return TestResult{TestName: "Analysis workflow", Error: err, Details: "waiting for progress"}
	}
	if snap.Progress.Status == models.ProgressFailed || snap.Parts == nil {
		return TestResult{TestName: "Analysis workflow", Error: fmt.Errorf("run ended %s: %s%s", snap.Progress.Status, snap.Progress.LastError, snap.PartsError)}
	}

	var flow models.CircuitNameSession
	if err := s.call(http.MethodPost, s.sessionPath("/circuit-name"), nil, "", &flow); err != nil {
		return TestResult{TestName: "Analysis workflow", Error: err, Details: "present circuit name"}
	}
	if err := s.call(http.MethodPost, s.sessionPath("/circuit-name/accept"), nil, "", &flow); err != nil {
		return TestResult{TestName: "Analysis workflow", Error: err, Details: "accept circuit name"}
	}

	return TestResult{
		TestName: "Analysis workflow",
		Success:  true,
		Details:  fmt.Sprintf("%d parts, circuit %q", snap.Parts.Count(), flow.Resolved),
	}
}

func (s *smoke) testDraftingWorkflow() TestResult {
	log.Println("Step: drafting workflow")
	path := os.Getenv("TEMPLATE_FILE")
	if path == "" {
		return TestResult{TestName: "Drafting workflow", Success: true, Details: "skipped, TEMPLATE_FILE not set"}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return TestResult{TestName: "Drafting workflow", Error: err}
	}
	if err := s.upload("template", filepath.Base(path), content); err != nil {
		return TestResult{TestName: "Drafting workflow", Error: err, Details: "upload template"}
	}

	var state models.PipelineState
	search := map[string]string{"part_number": envOr("PART_NUMBER", defaultPartNumber)}
	if err := s.call(http.MethodPost, s.sessionPath("/search"), search, "", &state); err != nil {
		return TestResult{TestName: "Drafting workflow", Error: err, Details: "search"}
	}

	var gen struct {
		Generation  models.GenerationResult `json:"generation"`
		DownloadURL string                  `json:"download_url"`
	}
	if err := s.call(http.MethodPost, s.sessionPath("/documents"), map[string]string{"description": "smoke run"}, "", &gen); err != nil {
		return TestResult{TestName: "Drafting workflow", Error: err, Details: "generate"}
	}

	req, _ := http.NewRequest(http.MethodGet, s.baseURL+gen.DownloadURL, nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := s.client.Do(req)
	if err != nil {
		return TestResult{TestName: "Drafting workflow", Error: err, Details: "download"}
	}
	defer resp.Body.Close()
	out := filepath.Join(os.TempDir(), gen.Generation.OutputFilename)
	f, err := os.Create(out)
	if err != nil {
		return TestResult{TestName: "Drafting workflow", Error: err}
	}
	defer f.Close()
	n, err := io.Copy(f, resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return TestResult{TestName: "Drafting workflow", Error: fmt.Errorf("download status %d: %v", resp.StatusCode, err)}
	}

	return TestResult{
		TestName: "Drafting workflow",
		Success:  true,
		Details:  fmt.Sprintf("%s classified as %s, %d bytes written to %s", state.PartNumber, state.Classification.ComponentType, n, out),
	}
}

func (s *smoke) testTeardown() TestResult {
	log.Println("Step: teardown")
	if err := s.call(http.MethodDelete, s.sessionPath(""), nil, "", nil); err != nil {
		return TestResult{TestName: "Teardown", Error: err}
	}
	deadline := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-s.events:
			if !ok {
				return TestResult{TestName: "Teardown", Error: fmt.Errorf("stream ended without session.closed")}
			}
			if event.EventType == models.EventTypeClosed {
				return TestResult{TestName: "Teardown", Success: true, Details: "stream received session.closed"}
			}
		case <-deadline:
			return TestResult{TestName: "Teardown", Error: fmt.Errorf("no session.closed event")}
		}
	}
}

// waitFor consumes stream events until a snapshot satisfies done.
func (s *smoke) waitFor(done func(models.Snapshot) bool) (models.Snapshot, error) {
	deadline := time.After(stepTimeout)
	for {
		select {
		case event, ok := <-s.events:
			if !ok {
				return models.Snapshot{}, fmt.Errorf("stream closed")
			}
			if event.EventType != models.EventTypeSnapshot {
				continue
			}
			raw, _ := json.Marshal(event.Data)
			var snap models.Snapshot
			if err := json.Unmarshal(raw, &snap); err != nil {
				return models.Snapshot{}, err
			}
			if done(snap) {
				return snap, nil
			}
		case <-deadline:
			return models.Snapshot{}, fmt.Errorf("timed out after %s", stepTimeout)
		}
	}
}

func (s *smoke) sessionPath(suffix string) string {
	return "/api/sessions/" + s.sessionID + suffix
}

func (s *smoke) upload(slot, filename string, content []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return s.call(http.MethodPost, s.sessionPath("/uploads/"+slot), &buf, w.FormDataContentType(), nil)
}

// call sends body (JSON-encoded unless it is an io.Reader) and decodes the
// response into out.
func (s *smoke) call(method, path string, body any, contentType string, out any) error {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		r = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequest(method, s.baseURL+path, r)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr models.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s %s: status %d: %s (%s)", method, path, resp.StatusCode, apiErr.Error, apiErr.Code)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fileOrSample(env, name, sample string) (string, []byte, error) {
	path := os.Getenv(env)
	if path == "" {
		return name, []byte(sample), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", env, err)
	}
	return filepath.Base(path), content, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func printTestResults(results []TestResult) {
	log.Println(strings.Repeat("=", 80))
	log.Println("WORKFLOW ORCHESTRATOR SMOKE RESULTS")
	log.Println(strings.Repeat("=", 80))

	successCount := 0
	for _, result := range results {
		status := "FAILED"
		if result.Success {
			status = "PASSED"
			successCount++
		}

		log.Printf("%s %s", status, result.TestName)
		if result.Details != "" {
			log.Printf("   Details: %s", result.Details)
		}
		if result.Error != nil {
			log.Printf("   Error: %v", result.Error)
		}
	}

	log.Println(strings.Repeat("-", 80))
	log.Printf("SUMMARY: %d/%d steps passed", successCount, len(results))
	log.Println(strings.Repeat("=", 80))

	if successCount != len(results) {
		os.Exit(1)
	}
}
