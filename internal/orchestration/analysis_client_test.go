package orchestration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
)

func newTestAnalysisClient(t *testing.T, handler http.HandlerFunc) *AnalysisClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAnalysisClient(server.URL, 5*time.Second)
}

func TestNewAnalysisClient(t *testing.T) {
	t.Setenv("ANALYSIS_SERVER_URL", "")
	client := NewAnalysisClient("", 0)

	assert.NotNil(t, client)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.tracer)
	assert.NotNil(t, client.breaker)
	assert.Equal(t, "http://localhost:5000/api", client.baseURL)
	assert.Equal(t, 60*time.Second, client.httpClient.Timeout)
}

func TestAnalysisClient_UploadSlot(t *testing.T) {
	tests := []struct {
		name           string
		slot           models.Slot
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedError  string
		expected       *models.UploadReceipt
	}{
		{
			name: "bom_upload_with_chips",
			slot: models.SlotBOM,
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/upload/csv", r.URL.Path)
				assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

				file, header, err := r.FormFile("file")
				if !assert.NoError(t, err) {
					return
				}
				defer file.Close()
				body, _ := io.ReadAll(file)
				assert.Equal(t, "bom.csv", header.Filename)
				assert.Equal(t, "pn,ref\n", string(body))

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"filename":"bom.csv","preview":["pn,ref"],"chips":["U1","U2"],"total_parts":42}`))
			},
			expected: &models.UploadReceipt{
				Filename:   "bom.csv",
				Preview:    []string{"pn,ref"},
				Chips:      []string{"U1", "U2"},
				HasChips:   true,
				TotalParts: 42,
			},
		},
		{
			name: "bom_upload_with_empty_chips",
			slot: models.SlotBOM,
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"filename":"bom.csv","preview":[],"chips":[],"total_parts":3}`))
			},
			expected: &models.UploadReceipt{
				Filename:   "bom.csv",
				Preview:    []string{},
				Chips:      []string{},
				HasChips:   true,
				TotalParts: 3,
			},
		},
		{
			name: "conditions_upload_uses_yaml_segment",
			slot: models.SlotConditions,
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/upload/yaml", r.URL.Path)
				w.Write([]byte(`{"filename":"cond(1).yaml","preview":["a: 1"]}`))
			},
			expected: &models.UploadReceipt{
				Filename: "cond(1).yaml",
				Preview:  []string{"a: 1"},
			},
		},
		{
			name: "server_rejects_file",
			slot: models.SlotNetlist,
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"Invalid file extension for xml"}`))
			},
			expectedError: "Invalid file extension for xml",
		},
		{
			name: "template_slot_not_served",
			slot: models.SlotTemplate,
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			},
			expectedError: "not served by the analysis server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestAnalysisClient(t, tt.serverResponse)

			name := map[models.Slot]string{
				models.SlotBOM:        "bom.csv",
				models.SlotConditions: "cond.yaml",
				models.SlotNetlist:    "net.xml",
				models.SlotTemplate:   "t.docx",
			}[tt.slot]
			result, err := client.UploadSlot(context.Background(), tt.slot, name, strings.NewReader("pn,ref\n"))

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAnalysisClient_Progress(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedError  string
		expected       *models.ProgressState
	}{
		{
			name: "processing",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/progress", r.URL.Path)
				w.Write([]byte(`{"done":10,"total":42,"status":"processing"}`))
			},
			expected: &models.ProgressState{Done: 10, Total: 42, Status: models.ProgressProcessing},
		},
		{
			name: "error_status_reads_as_failed",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"done":3,"total":42,"status":"error"}`))
			},
			expected: &models.ProgressState{Done: 3, Total: 42, Status: models.ProgressFailed},
		},
		{
			name: "unknown_status",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"done":3,"total":42,"status":"exploded"}`))
			},
			expectedError: "unknown progress status",
		},
		{
			name: "server_error",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal server error"))
			},
			expectedError: "analysis-server returned status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestAnalysisClient(t, tt.serverResponse)

			result, err := client.Progress(context.Background())

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAnalysisClient_Parts(t *testing.T) {
	client := newTestAnalysisClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/parts", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"capacitors": []map[string]interface{}{{"Part": "C1", "Capacitance": "18pF"}},
			"resistors":  []map[string]interface{}{{"Part": "R1", "Resistance": "10k"}},
			"others":     []map[string]interface{}{},
		})
	})

	parts, err := client.Parts(context.Background())
	require.NoError(t, err)
	assert.Len(t, parts.Capacitors, 1)
	assert.Len(t, parts.Resistors, 1)
	assert.Empty(t, parts.Others)
	assert.Equal(t, 2, parts.Total)
	assert.Equal(t, "18pF", parts.Capacitors[0]["Capacitance"])
}

func TestAnalysisClient_CircuitName(t *testing.T) {
	client := newTestAnalysisClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/circuit-name", r.URL.Path)

		var req circuitNameRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"U1", "U2"}, req.Chips)

		w.Write([]byte(`{"circuit_name":"Buck Converter"}`))
	})

	name, err := client.CircuitName(context.Background(), []string{"U1", "U2"})
	require.NoError(t, err)
	assert.Equal(t, "Buck Converter", name)
}

func TestAnalysisClient_IsHealthy(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedHealth bool
	}{
		{
			name: "healthy_service",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/health", r.URL.Path)
				w.Write([]byte(`{"status": "ok"}`))
			},
			expectedHealth: true,
		},
		{
			name: "unhealthy_service",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			expectedHealth: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			client := NewAnalysisClient(server.URL+"/api", time.Second)
			assert.Equal(t, tt.expectedHealth, client.IsHealthy(context.Background()))
		})
	}
}

func TestAnalysisClient_CircuitBreaker(t *testing.T) {
	calls := 0
	client := newTestAnalysisClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Service unavailable"))
	})

	var lastErr error
	for i := 0; i < 10; i++ {
		_, lastErr = client.Progress(context.Background())
		assert.Error(t, lastErr)
	}

	assert.Contains(t, lastErr.Error(), "circuit breaker is open")
	assert.Equal(t, 6, calls)
	assert.False(t, client.IsHealthy(context.Background()))
}

func TestAnalysisClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	calls := 0
	client := newTestAnalysisClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Parts data not available yet"}`))
	})

	for i := 0; i < 10; i++ {
		_, err := client.Parts(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Parts data not available yet")
	}
	assert.Equal(t, 10, calls)
}

func TestAnalysisClient_ContextCancellation(t *testing.T) {
	client := newTestAnalysisClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`{"done":0,"total":1,"status":"processing"}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Progress(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context deadline exceeded")
}
