package orchestration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
)

// DraftingAPI is the drafting server as seen by the orchestrator.
type DraftingAPI interface {
	UploadTemplate(ctx context.Context, filename string, content io.Reader) (*models.UploadReceipt, error)
	Classify(ctx context.Context, partNumber string) (*models.ClassificationResult, error)
	FetchParameters(ctx context.Context, partNumber, componentType string) (models.ParameterSet, error)
	GenerateDocument(ctx context.Context, req models.GenerationRequest) (*GenerateDocumentResponse, error)
	Download(ctx context.Context, filename string, w io.Writer) (int64, error)
	Templates(ctx context.Context) ([]models.TemplateEntry, error)
	IsHealthy(ctx context.Context) bool
}

// DraftingClient handles communication with the drafting server, which
// classifies parts, looks up their parameters and renders documents.
type DraftingClient struct {
	*transport
}

type templateUploadResponse struct {
	Success    bool   `json:"success"`
	TemplateID string `json:"template_id"`
	Filename   string `json:"filename"`
	Message    string `json:"message"`
}

type classifyRequest struct {
	PartNumber string `json:"part_number"`
}

type fetchParametersRequest struct {
	PartNumber    string `json:"part_number"`
	ComponentType string `json:"component_type"`
}

type fetchParametersResponse struct {
	Parameters map[string]string `json:"parameters"`
}

// GenerateDocumentResponse is the drafting server's generation answer.
type GenerateDocumentResponse struct {
	Success        bool   `json:"success"`
	OutputFilename string `json:"output_filename"`
	Error          string `json:"error,omitempty"`
	Message        string `json:"message,omitempty"`
}

type templatesResponse struct {
	Templates []models.TemplateEntry `json:"templates"`
}

// NewDraftingClient creates a new drafting server client. An empty baseURL
// is read from DRAFTING_SERVER_URL.
func NewDraftingClient(baseURL string, timeout time.Duration) *DraftingClient {
	if baseURL == "" {
		baseURL = baseURLFromEnv("DRAFTING_SERVER_URL", "http://localhost:8000/api")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &DraftingClient{transport: newTransport("drafting-server", baseURL, timeout)}
}

// SetBaseURL sets the base URL for testing purposes
func (c *DraftingClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// UploadTemplate sends a .docx template and returns its handle.
func (c *DraftingClient) UploadTemplate(ctx context.Context, filename string, content io.Reader) (*models.UploadReceipt, error) {
	var resp templateUploadResponse
	err := c.call(ctx, "upload_template", func(ctx context.Context) error {
		return c.doMultipart(ctx, "/upload-template", filename, content, &resp)
	}, attribute.String("filename", filename))
	if err != nil {
		return nil, fmt.Errorf("failed to upload template: %w", err)
	}
	if resp.TemplateID == "" {
		return nil, fmt.Errorf("invalid template_id in response: %+v", resp)
	}

	stored := resp.Filename
	if stored == "" {
		stored = resp.TemplateID
	}
	return &models.UploadReceipt{
		Filename:   stored,
		Preview:    []string{},
		TemplateID: resp.TemplateID,
	}, nil
}

// Classify asks for the component type of a part number.
func (c *DraftingClient) Classify(ctx context.Context, partNumber string) (*models.ClassificationResult, error) {
	var result models.ClassificationResult
	err := c.call(ctx, "classify_component", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/classify-component", classifyRequest{PartNumber: partNumber}, &result)
	}, attribute.String("part_number", partNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to classify component: %w", err)
	}
	if result.PartNumber == "" {
		result.PartNumber = partNumber
	}
	return &result, nil
}

// FetchParameters retrieves the parameter table for a classified part.
func (c *DraftingClient) FetchParameters(ctx context.Context, partNumber, componentType string) (models.ParameterSet, error) {
	var resp fetchParametersResponse
	err := c.call(ctx, "fetch_parameters", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/fetch-parameters", fetchParametersRequest{
			PartNumber:    partNumber,
			ComponentType: componentType,
		}, &resp)
	}, attribute.String("part_number", partNumber), attribute.String("component_type", componentType))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch parameters: %w", err)
	}
	return models.ParameterSet(resp.Parameters).Clone(), nil
}

// GenerateDocument renders a document from the template and parameters.
func (c *DraftingClient) GenerateDocument(ctx context.Context, req models.GenerationRequest) (*GenerateDocumentResponse, error) {
	if req.Parameters == nil {
		req.Parameters = models.ParameterSet{}
	}

	var resp GenerateDocumentResponse
	err := c.call(ctx, "generate_document", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/generate-document", req, &resp)
	}, attribute.String("part_number", req.PartNumber), attribute.Int("parameters", len(req.Parameters)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate document: %w", err)
	}
	return &resp, nil
}

// Download streams a generated document into w.
func (c *DraftingClient) Download(ctx context.Context, filename string, w io.Writer) (int64, error) {
	var n int64
	err := c.call(ctx, "download", func(ctx context.Context) error {
		var err error
		n, err = c.stream(ctx, "/download/"+url.PathEscape(filename), w)
		return err
	}, attribute.String("filename", filename))
	if err != nil {
		return n, fmt.Errorf("failed to download %s: %w", filename, err)
	}
	return n, nil
}

// Templates lists the templates the drafting server knows about.
func (c *DraftingClient) Templates(ctx context.Context) ([]models.TemplateEntry, error) {
	var resp templatesResponse
	err := c.call(ctx, "list_templates", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/templates", nil, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	if resp.Templates == nil {
		resp.Templates = []models.TemplateEntry{}
	}
	return resp.Templates, nil
}

// IsHealthy checks if the drafting server is healthy. Its health endpoint
// sits at the server root, outside the /api prefix.
func (c *DraftingClient) IsHealthy(ctx context.Context) bool {
	return c.healthy(ctx, strings.TrimSuffix(c.baseURL, "/api")+"/health")
}
