package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/auth"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/upload"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/workflow"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// HealthChecker is a backend the gateway depends on.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	registry   *workflow.Registry
	jwtManager *auth.JWTManager
	tokenTTL   time.Duration
	backends   map[string]HealthChecker
}

// NewHandler creates a new gateway handler. backends are checked by Ready.
func NewHandler(registry *workflow.Registry, jwtManager *auth.JWTManager, tokenTTL time.Duration, backends map[string]HealthChecker) *Handler {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &Handler{
		registry:   registry,
		jwtManager: jwtManager,
		tokenTTL:   tokenTTL,
		backends:   backends,
	}
}

func (h *Handler) session(c *gin.Context) (*workflow.Session, bool) {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return s, true
}

// CreateSessionResponse represents a newly opened session
type CreateSessionResponse struct {
	SessionID string          `json:"session_id" msgpack:"session_id"`
	Token     string          `json:"token" msgpack:"token"`
	ExpiresAt time.Time       `json:"expires_at" msgpack:"expires_at"`
	Snapshot  models.Snapshot `json:"snapshot" msgpack:"snapshot"`
}

// TokenResponse represents a refreshed session token
type TokenResponse struct {
	Token     string    `json:"token" msgpack:"token"`
	ExpiresAt time.Time `json:"expires_at" msgpack:"expires_at"`
}

// CreateSession godoc
// @Summary Open a session
// @Description Create a workflow session and return the token that grants access to it
// @Tags sessions
// @Produce json
// @Success 201 {object} CreateSessionResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()

	s, err := h.registry.Create(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(ctx, s.ID(), h.tokenTTL)
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to issue session token","session_id":"%s","error":"%v"}`, s.ID(), err)
		_ = h.registry.Delete(s.ID())
		respondError(c, err)
		return
	}

	c.Set(auth.SessionIDKey, s.ID())
	render(c, http.StatusCreated, CreateSessionResponse{
		SessionID: s.ID(),
		Token:     token,
		ExpiresAt: expiresAt,
		Snapshot:  s.Snapshot(),
	})
}

// GetSession godoc
// @Summary Get session snapshot
// @Description Return the current state of the session (msgpack when Accept is application/msgpack)
// @Tags sessions
// @Produce json,application/msgpack
// @Param id path string true "Session ID"
// @Success 200 {object} models.Snapshot
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, s.Snapshot())
}

// DeleteSession godoc
// @Summary Close a session
// @Description Stop polling, drop all session state and end every snapshot stream
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id} [delete]
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.registry.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RefreshToken godoc
// @Summary Refresh session token
// @Description Issue a new token for the session before the current one expires
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/token [post]
func (h *Handler) RefreshToken(c *gin.Context) {
	if _, ok := h.session(c); !ok {
		return
	}

	token, expiresAt, err := h.jwtManager.RefreshToken(c.Request.Context(), c.GetString(auth.TokenKey), h.tokenTTL)
	if err != nil {
		render(c, http.StatusUnauthorized, models.ErrorResponse{
			Error: "Failed to refresh token",
			Code:  models.ErrCodeUnauthorized,
		})
		return
	}
	render(c, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}

// UploadResponse represents the outcome of one slot upload
type UploadResponse struct {
	Slot       models.FileSlot `json:"slot" msgpack:"slot"`
	Chips      []string        `json:"chips,omitempty" msgpack:"chips,omitempty"`
	TotalParts int             `json:"total_parts,omitempty" msgpack:"total_parts,omitempty"`
}

// UploadSlot godoc
// @Summary Upload a file to a slot
// @Description Upload a netlist (.xml), BOM (.csv), conditions (.yml/.yaml) or template (.docx) file
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param slot path string true "Slot (netlist, bom, conditions, template)"
// @Param file formData file true "File to upload"
// @Success 200 {object} UploadResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/uploads/{slot} [post]
func (h *Handler) UploadSlot(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	raw := c.Param("slot")
	slot, known := models.ParseSlot(raw)
	if !known {
		slot = models.Slot(raw)
	}

	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, models.NewValidationError("upload", "no file selected for %s", slot))
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, models.NewValidationError("upload", "failed to read uploaded file"))
		return
	}
	defer file.Close()

	res, err := s.Upload(c.Request.Context(), slot, header.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, http.StatusOK, uploadResponse(res))
}

func uploadResponse(res *upload.Result) UploadResponse {
	resp := UploadResponse{Slot: res.Slot}
	if res.Signal != nil {
		resp.Chips = res.Signal.Chips
		resp.TotalParts = res.Signal.Total
	}
	return resp
}

// BatchItem represents one slot of a batch upload
type BatchItem struct {
	Slot   string          `json:"slot" msgpack:"slot"`
	Upload *UploadResponse `json:"upload,omitempty" msgpack:"upload,omitempty"`
	Error  string          `json:"error,omitempty" msgpack:"error,omitempty"`
	Code   string          `json:"code,omitempty" msgpack:"code,omitempty"`
}

// BatchUploadResponse represents the outcome of a batch upload
type BatchUploadResponse struct {
	Results []BatchItem `json:"results" msgpack:"results"`
}

// UploadBatch godoc
// @Summary Upload several slots at once
// @Description Upload files for several slots concurrently; form field names are slot names
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} BatchUploadResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/uploads [post]
func (h *Handler) UploadBatch(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File) == 0 {
		respondError(c, models.NewValidationError("upload", "no files selected"))
		return
	}

	var (
		files   []upload.File
		opened  []multipart.File
		results []BatchItem
	)
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for field, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		slot, known := models.ParseSlot(field)
		if !known {
			results = append(results, BatchItem{
				Slot:  field,
				Error: fmt.Sprintf("unknown slot %q", field),
				Code:  models.ErrCodeValidationFailed,
			})
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			results = append(results, BatchItem{
				Slot:  string(slot),
				Error: "failed to read uploaded file",
				Code:  models.ErrCodeValidationFailed,
			})
			continue
		}
		opened = append(opened, f)
		files = append(files, upload.File{Slot: slot, Filename: headers[0].Filename, Content: f})
	}

	batch, err := s.UploadBatch(c.Request.Context(), files)
	if err != nil {
		respondError(c, err)
		return
	}
	for _, r := range batch {
		item := BatchItem{Slot: string(r.Slot)}
		if r.Err != nil {
			_, item.Code = statusFor(r.Err)
			item.Error = models.MessageOf(r.Err)
		} else {
			resp := uploadResponse(r.Result)
			item.Upload = &resp
		}
		results = append(results, item)
	}

	render(c, http.StatusOK, BatchUploadResponse{Results: results})
}

// ReloadResults godoc
// @Summary Reload categorized results
// @Description Fetch the categorized parts of a completed run again
// @Tags analysis
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.CategorizedParts
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/results/reload [post]
func (h *Handler) ReloadResults(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	parts, err := s.ReloadResults(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, http.StatusOK, parts)
}

// PresentName godoc
// @Summary Present the circuit name dialog
// @Description Open the dialog, generating a name from the BOM chips unless one is already known
// @Tags circuit-name
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.CircuitNameSession
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/circuit-name [post]
func (h *Handler) PresentName(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	state, err := s.PresentName(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, http.StatusOK, state)
}

// AcceptName godoc
// @Summary Accept the generated circuit name
// @Tags circuit-name
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.CircuitNameSession
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/circuit-name/accept [post]
func (h *Handler) AcceptName(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	state, err := s.AcceptName(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, http.StatusOK, state)
}

// ManualName godoc
// @Summary Switch to manual circuit name entry
// @Tags circuit-name
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.CircuitNameSession
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/circuit-name/manual [post]
func (h *Handler) ManualName(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	state, err := s.SwitchNameToManual()
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, http.StatusOK, state)
}

// SubmitNameRequest represents a manually entered circuit name
type SubmitNameRequest struct {
	Name string `json:"name"`
}

// SubmitName godoc
// @Summary Submit a manual circuit name
// @Tags circuit-name
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body SubmitNameRequest true "Circuit name"
// @Success 200 {object} models.CircuitNameSession
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/circuit-name/submit [post]
func (h *Handler) SubmitName(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req SubmitNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	state, err := s.SubmitManualName(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, http.StatusOK, state)
}

// DismissName godoc
// @Summary Dismiss the circuit name dialog
// @Description Close the dialog without choosing a name
// @Tags circuit-name
// @Param id path string true "Session ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/circuit-name [delete]
func (h *Handler) DismissName(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.DismissName(); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchRequest represents a part number search
type SearchRequest struct {
	PartNumber string `json:"part_number"`
}

// Search godoc
// @Summary Classify a part number
// @Description Classify the part number and fetch its parameters
// @Tags drafting
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body SearchRequest true "Part number"
// @Success 200 {object} models.PipelineState
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/search [post]
func (h *Handler) Search(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	state, err := s.Search(c.Request.Context(), req.PartNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, http.StatusOK, state)
}

// RetryParameters godoc
// @Summary Fetch parameters again
// @Tags drafting
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.PipelineState
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/parameters/retry [post]
func (h *Handler) RetryParameters(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	state, err := s.RetryParameters(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, http.StatusOK, state)
}

// EditParameterRequest represents a new parameter value
type EditParameterRequest struct {
	Value string `json:"value"`
}

// EditParameter godoc
// @Summary Edit one parameter
// @Tags drafting
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param key path string true "Parameter name"
// @Param request body EditParameterRequest true "New value"
// @Success 200 {object} models.PipelineState
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/parameters/{key} [put]
func (h *Handler) EditParameter(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req EditParameterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	state, err := s.EditParameter(c.Param("key"), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, http.StatusOK, state)
}

// GenerateRequest represents a document generation request
type GenerateRequest struct {
	Description string `json:"description"`
}

// GenerateResponse represents a generated document
type GenerateResponse struct {
	Generation  models.GenerationResult `json:"generation" msgpack:"generation"`
	DownloadURL string                  `json:"download_url" msgpack:"download_url"`
}

// Generate godoc
// @Summary Generate a document
// @Description Fill the uploaded template with the current part and parameters
// @Tags drafting
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body GenerateRequest false "Optional description"
// @Success 200 {object} GenerateResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/documents [post]
func (h *Handler) Generate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req GenerateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "Invalid request")
			return
		}
	}

	gen, err := s.Generate(c.Request.Context(), req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, http.StatusOK, GenerateResponse{
		Generation:  *gen,
		DownloadURL: fmt.Sprintf("/api/sessions/%s/documents/%d", s.ID(), gen.Token),
	})
}

// Download godoc
// @Summary Download a generated document
// @Description Stream the artifact of the latest successful generation
// @Tags drafting
// @Produce application/vnd.openxmlformats-officedocument.wordprocessingml.document
// @Param id path string true "Session ID"
// @Param generation path int true "Generation token"
// @Success 200 {file} file
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/documents/{generation} [get]
func (h *Handler) Download(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	token, err := strconv.ParseUint(c.Param("generation"), 10, 64)
	if err != nil {
		respondError(c, models.NewValidationError("download", "invalid generation %q", c.Param("generation")))
		return
	}

	filename, err := s.Artifact(token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", docxContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)

	n, _, err := s.Download(c.Request.Context(), token, c.Writer)
	if err != nil {
		if n == 0 && !c.Writer.Written() {
			c.Writer.Header().Del("Content-Disposition")
			c.Writer.Header().Del("Content-Type")
			respondError(c, err)
			return
		}
		log.Printf(`{"level":"error","message":"Download interrupted","session_id":"%s","filename":"%s","bytes":%d,"error":"%v"}`, s.ID(), filename, n, err)
		c.Abort()
	}
}

// TemplatesResponse represents the templates known to the drafting server
type TemplatesResponse struct {
	Templates []models.TemplateEntry `json:"templates" msgpack:"templates"`
}

// Templates godoc
// @Summary List templates
// @Tags drafting
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} TemplatesResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/templates [get]
func (h *Handler) Templates(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	entries, err := s.Templates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []models.TemplateEntry{}
	}
	render(c, http.StatusOK, TemplatesResponse{Templates: entries})
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Ready godoc
// @Summary Readiness probe
// @Description Ready when both backend servers answer their health checks
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	for name, backend := range h.backends {
		if !backend.IsHealthy(ctx) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  name + " server unavailable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
