package orchestration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
)

// AnalysisAPI is the analysis server as seen by the orchestrator.
type AnalysisAPI interface {
	UploadSlot(ctx context.Context, slot models.Slot, filename string, content io.Reader) (*models.UploadReceipt, error)
	Progress(ctx context.Context) (*models.ProgressState, error)
	Parts(ctx context.Context) (*models.CategorizedParts, error)
	CircuitName(ctx context.Context, chips []string) (string, error)
	IsHealthy(ctx context.Context) bool
}

// AnalysisClient handles communication with the analysis server, which
// stores netlist/BOM/conditions files and runs the part search job.
type AnalysisClient struct {
	*transport
}

// analysisUploadResponse is the upload payload; chips is a pointer because
// its presence, not its length, marks a BOM that started processing.
type analysisUploadResponse struct {
	Filename    string    `json:"filename"`
	Filepath    string    `json:"filepath"`
	Preview     []string  `json:"preview"`
	PartNumbers []string  `json:"part_numbers,omitempty"`
	Chips       *[]string `json:"chips,omitempty"`
	TotalParts  int       `json:"total_parts,omitempty"`
}

type progressResponse struct {
	Done   int    `json:"done"`
	Total  int    `json:"total"`
	Status string `json:"status"`
}

type circuitNameRequest struct {
	Chips []string `json:"chips"`
}

type circuitNameResponse struct {
	CircuitName string `json:"circuit_name"`
}

// NewAnalysisClient creates a new analysis server client. An empty baseURL
// is read from ANALYSIS_SERVER_URL.
func NewAnalysisClient(baseURL string, timeout time.Duration) *AnalysisClient {
	if baseURL == "" {
		baseURL = baseURLFromEnv("ANALYSIS_SERVER_URL", "http://localhost:5000/api")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AnalysisClient{transport: newTransport("analysis-server", baseURL, timeout)}
}

// SetBaseURL sets the base URL for testing purposes
func (c *AnalysisClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// UploadSlot sends one netlist, BOM or conditions file.
func (c *AnalysisClient) UploadSlot(ctx context.Context, slot models.Slot, filename string, content io.Reader) (*models.UploadReceipt, error) {
	if slot.Workflow() != models.WorkflowAnalysis {
		return nil, fmt.Errorf("slot %q is not served by the analysis server", slot)
	}

	var resp analysisUploadResponse
	err := c.call(ctx, "upload", func(ctx context.Context) error {
		return c.doMultipart(ctx, "/upload/"+slot.PathSegment(), filename, content, &resp)
	}, attribute.String("slot", string(slot)), attribute.String("filename", filename))
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s file: %w", slot, err)
	}

	receipt := &models.UploadReceipt{
		Filename:   resp.Filename,
		Preview:    resp.Preview,
		TotalParts: resp.TotalParts,
	}
	if resp.Chips != nil {
		receipt.HasChips = true
		receipt.Chips = append([]string{}, (*resp.Chips)...)
	}
	return receipt, nil
}

// Progress reads the state of the part search job.
func (c *AnalysisClient) Progress(ctx context.Context) (*models.ProgressState, error) {
	var resp progressResponse
	err := c.call(ctx, "get_progress", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/progress", nil, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	status, err := models.ParseProgressStatus(resp.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return &models.ProgressState{Done: resp.Done, Total: resp.Total, Status: status}, nil
}

// Parts fetches the categorized results of a completed job.
func (c *AnalysisClient) Parts(ctx context.Context) (*models.CategorizedParts, error) {
	var parts models.CategorizedParts
	err := c.call(ctx, "get_parts", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/parts", nil, &parts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get parts: %w", err)
	}
	if parts.Total == 0 {
		parts.Total = parts.Count()
	}
	return &parts, nil
}

// CircuitName asks the server to derive a circuit name from the chips.
func (c *AnalysisClient) CircuitName(ctx context.Context, chips []string) (string, error) {
	if chips == nil {
		chips = []string{}
	}

	var resp circuitNameResponse
	err := c.call(ctx, "circuit_name", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/circuit-name", circuitNameRequest{Chips: chips}, &resp)
	}, attribute.Int("chips", len(chips)))
	if err != nil {
		return "", fmt.Errorf("failed to generate circuit name: %w", err)
	}
	return resp.CircuitName, nil
}

// IsHealthy checks if the analysis server is healthy
func (c *AnalysisClient) IsHealthy(ctx context.Context) bool {
	return c.healthy(ctx, c.baseURL+"/health")
}
