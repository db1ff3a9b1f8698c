package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/auth"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/orchestration"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/workflow"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/tests/helpers"
)

type testGateway struct {
	router   *gin.Engine
	analysis *helpers.AnalysisServer
	drafting *helpers.DraftingServer
	registry *workflow.Registry
	jwt      *auth.JWTManager
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	a := helpers.NewAnalysisServer()
	t.Cleanup(a.Close)
	d := helpers.NewDraftingServer()
	t.Cleanup(d.Close)

	analysis := orchestration.NewAnalysisClient(a.APIURL(), 5*time.Second)
	drafting := orchestration.NewDraftingClient(d.APIURL(), 5*time.Second)

	registry := workflow.NewRegistry(analysis, drafting, workflow.RegistryConfig{
		PollInterval: 5 * time.Millisecond,
	}, nil)
	t.Cleanup(registry.Close)

	jm, err := auth.NewJWTManager("test-secret")
	require.NoError(t, err)

	h := NewHandler(registry, jm, time.Hour, map[string]HealthChecker{
		"analysis": analysis,
		"drafting": drafting,
	})
	router := gin.New()
	RegisterRoutes(router, h, NewSnapshotStream(registry, nil), jm)

	return &testGateway{router: router, analysis: a, drafting: d, registry: registry, jwt: jm}
}

func (g *testGateway) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func (g *testGateway) doJSON(method, path, token string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	return g.do(method, path, token, r, "application/json")
}

func (g *testGateway) createSession(t *testing.T) (string, string) {
	t.Helper()
	w := g.do(http.MethodPost, "/api/sessions", "", nil, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp CreateSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.SessionID, resp.Token
}

func (g *testGateway) upload(t *testing.T, id, token, slot, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := helpers.MultipartFile("file", filename, content)
	return g.do(http.MethodPost, "/api/sessions/"+id+"/uploads/"+slot, token, body, ct)
}

func (g *testGateway) snapshot(t *testing.T, id, token string) models.Snapshot {
	t.Helper()
	w := g.do(http.MethodGet, "/api/sessions/"+id, token, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestCreateSession(t *testing.T) {
	g := newTestGateway(t)

	w := g.do(http.MethodPost, "/api/sessions", "", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
	assert.Equal(t, resp.SessionID, resp.Snapshot.SessionID)
	assert.Len(t, resp.Snapshot.Slots, len(models.AllSlots))
	assert.Equal(t, 1, g.registry.Len())

	claims, err := g.jwt.ValidateToken(t.Context(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, claims.SessionID)
}

func TestSessionRoutes_Authorization(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)
	otherID, otherToken := g.createSession(t)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
		code   string
	}{
		{"missing token", "/api/sessions/" + id, "", http.StatusUnauthorized, models.ErrCodeUnauthorized},
		{"garbage token", "/api/sessions/" + id, "not-a-jwt", http.StatusUnauthorized, models.ErrCodeUnauthorized},
		{"token of another session", "/api/sessions/" + id, otherToken, http.StatusForbidden, models.ErrCodeForbidden},
		{"own session", "/api/sessions/" + otherID, otherToken, http.StatusOK, ""},
		{"own session via query", "/api/sessions/" + id + "?token=" + token, "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := g.do(http.MethodGet, tt.path, tt.token, nil, "")
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeError(t, w).Code)
			}
		})
	}
}

func TestDeleteSession(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)

	w := g.do(http.MethodDelete, "/api/sessions/"+id, token, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, g.registry.Len())

	w = g.do(http.MethodGet, "/api/sessions/"+id, token, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrCodeNotFound, decodeError(t, w).Code)

	w = g.do(http.MethodDelete, "/api/sessions/"+id, token, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshToken(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)

	w := g.do(http.MethodPost, "/api/sessions/"+id+"/token", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	w = g.do(http.MethodGet, "/api/sessions/"+id, resp.Token, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadSlot_Validation(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)

	t.Run("wrong extension", func(t *testing.T) {
		w := g.upload(t, id, token, "netlist", "board.txt", "x")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, models.ErrCodeValidationFailed, resp.Code)
		assert.Equal(t, "upload", resp.Details["step"])
		assert.Equal(t, 0, g.analysis.Calls("upload/xml"))
	})

	t.Run("unknown slot", func(t *testing.T) {
		w := g.upload(t, id, token, "schematic", "board.xml", "x")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, models.ErrCodeValidationFailed, decodeError(t, w).Code)
	})

	t.Run("no file", func(t *testing.T) {
		w := g.do(http.MethodPost, "/api/sessions/"+id+"/uploads/bom", token, strings.NewReader(""), "multipart/form-data; boundary=x")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, models.ErrCodeValidationFailed, decodeError(t, w).Code)
	})

	t.Run("server rejects file", func(t *testing.T) {
		g.analysis.FailUpload("yaml", "Invalid YAML file")
		w := g.upload(t, id, token, "conditions", "cond.yaml", "::")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "Invalid YAML file", decodeError(t, w).Error)

		slot, ok := g.snapshot(t, id, token).Slot(models.SlotConditions)
		require.True(t, ok)
		assert.Equal(t, "Invalid YAML file", slot.Error)
		assert.False(t, slot.Uploaded())
	})
}

func TestUploadSlot_PathSegmentAlias(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)

	w := g.upload(t, id, token, "xml", "board.xml", helpers.NetlistXML)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.SlotNetlist, resp.Slot.Slot)
	assert.Equal(t, "board.xml", resp.Slot.Filename)
	assert.NotEmpty(t, resp.Slot.Preview)
}

func TestAnalysisFlow(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)
	base := "/api/sessions/" + id

	w := g.doJSON(http.MethodPost, base+"/circuit-name", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "dialog needs uploads and results")

	require.Equal(t, http.StatusOK, g.upload(t, id, token, "netlist", "board.xml", helpers.NetlistXML).Code)

	w = g.upload(t, id, token, "bom", "bom.csv", helpers.BigCSV(20))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var bom UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bom))
	assert.Equal(t, []string{"TPS54331", "LM358"}, bom.Chips)
	assert.Equal(t, 42, bom.TotalParts)
	assert.Len(t, bom.Slot.Preview, 10)

	require.Equal(t, http.StatusOK, g.upload(t, id, token, "conditions", "cond.yaml", helpers.ConditionsYAML).Code)

	require.Eventually(t, func() bool {
		return g.snapshot(t, id, token).Parts != nil
	}, 2*time.Second, 10*time.Millisecond)

	snap := g.snapshot(t, id, token)
	assert.Equal(t, models.ProgressCompleted, snap.Progress.Status)
	assert.Equal(t, 42, snap.Progress.Done)
	assert.Equal(t, 100, snap.Percent)
	assert.Equal(t, 2, snap.Parts.Total)
	assert.True(t, snap.NameAvailable)
	assert.Equal(t, 1, g.analysis.Calls("parts"))

	w = g.doJSON(http.MethodPost, base+"/circuit-name", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var flow models.CircuitNameSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flow))
	assert.Equal(t, models.NameGenerated, flow.Mode)
	assert.Equal(t, "Buck Converter", flow.Generated)
	assert.Equal(t, []string{"TPS54331", "LM358"}, g.analysis.LastChips())

	w = g.doJSON(http.MethodPost, base+"/circuit-name/accept", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = g.doJSON(http.MethodPost, base+"/circuit-name/accept", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	snap = g.snapshot(t, id, token)
	assert.Equal(t, "Buck Converter", snap.CircuitName)
	assert.Equal(t, models.NameSourceGenerated, snap.NameSource)

	w = g.doJSON(http.MethodPost, base+"/results/reload", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, g.analysis.Calls("parts"))
}

func TestCircuitName_Manual(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)
	base := "/api/sessions/" + id

	g.analysis.SetCircuitName("")
	require.Equal(t, http.StatusOK, g.upload(t, id, token, "netlist", "board.xml", helpers.NetlistXML).Code)
	require.Equal(t, http.StatusOK, g.upload(t, id, token, "bom", "bom.csv", helpers.BOMCSV).Code)
	require.Equal(t, http.StatusOK, g.upload(t, id, token, "conditions", "cond.yml", helpers.ConditionsYAML).Code)
	require.Eventually(t, func() bool {
		return g.snapshot(t, id, token).NameAvailable
	}, 2*time.Second, 10*time.Millisecond)

	w := g.doJSON(http.MethodPost, base+"/circuit-name", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var flow models.CircuitNameSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flow))
	assert.Equal(t, models.UnknownCircuitName, flow.Generated)

	w = g.doJSON(http.MethodPost, base+"/circuit-name/manual", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = g.doJSON(http.MethodPost, base+"/circuit-name/accept", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "accept is not offered in manual mode")

	w = g.doJSON(http.MethodPost, base+"/circuit-name/submit", token, SubmitNameRequest{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = g.doJSON(http.MethodPost, base+"/circuit-name/submit", token, SubmitNameRequest{Name: "  Motor Driver "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	snap := g.snapshot(t, id, token)
	assert.Equal(t, "Motor Driver", snap.CircuitName)
	assert.Equal(t, models.NameSourceManual, snap.NameSource)
}

func TestCircuitName_Dismiss(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)
	base := "/api/sessions/" + id

	w := g.do(http.MethodDelete, base+"/circuit-name", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "nothing to dismiss")

	require.Equal(t, http.StatusOK, g.upload(t, id, token, "netlist", "board.xml", helpers.NetlistXML).Code)
	require.Equal(t, http.StatusOK, g.upload(t, id, token, "bom", "bom.csv", helpers.BOMCSV).Code)
	require.Equal(t, http.StatusOK, g.upload(t, id, token, "conditions", "cond.yml", helpers.ConditionsYAML).Code)
	require.Eventually(t, func() bool {
		return g.snapshot(t, id, token).NameAvailable
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusOK, g.doJSON(http.MethodPost, base+"/circuit-name", token, nil).Code)
	w = g.do(http.MethodDelete, base+"/circuit-name", token, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, g.snapshot(t, id, token).CircuitName)
}

func TestDraftingFlow(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)
	base := "/api/sessions/" + id

	w := g.doJSON(http.MethodPost, base+"/documents", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "template required")

	w = g.upload(t, id, token, "template", "spec.docx", helpers.TemplateDOCX)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := g.snapshot(t, id, token)
	require.NotNil(t, snap.Template)
	assert.Equal(t, "spec.docx", snap.Template.ID)

	w = g.doJSON(http.MethodPost, base+"/search", token, SearchRequest{PartNumber: "GCM1885C1H180JA16D"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var state models.PipelineState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, models.StageReady, state.Stage)
	require.NotNil(t, state.Classification)
	assert.Equal(t, "capacitor", state.Classification.ComponentType)
	assert.Equal(t, "18pF", state.Parameters["Capacitance"])

	w = g.doJSON(http.MethodPut, base+"/parameters/Capacitance", token, EditParameterRequest{Value: "22pF"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "22pF", state.Parameters["Capacitance"])
	assert.Equal(t, "50V", state.Parameters["Rated Voltage"])

	w = g.doJSON(http.MethodPut, base+"/parameters/Inductance", token, EditParameterRequest{Value: "1uH"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = g.doJSON(http.MethodPost, base+"/documents", token, GenerateRequest{Description: "Input filter capacitor"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var gen GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gen))
	assert.True(t, gen.Generation.Success)
	assert.Equal(t, fmt.Sprintf("/api/sessions/%s/documents/%d", id, gen.Generation.Token), gen.DownloadURL)

	sent := g.drafting.LastGeneration()
	assert.Equal(t, "spec.docx", sent["template_path"])
	assert.Equal(t, "GCM1885C1H180JA16D", sent["part_number"])
	assert.Equal(t, "capacitor", sent["component_type"])
	assert.Equal(t, "Input filter capacitor", sent["description"])
	assert.Equal(t, "22pF", sent["parameters"].(map[string]any)["Capacitance"])

	w = g.do(http.MethodGet, gen.DownloadURL, token, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, g.drafting.Artifact(), w.Body.Bytes())
	assert.Equal(t, docxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "generated_GCM1885C1H180JA16D.docx")

	w = g.do(http.MethodGet, base+"/documents/abc", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerate_Rejected(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)
	base := "/api/sessions/" + id

	g.drafting.RejectGeneration("Template has no placeholders")
	require.Equal(t, http.StatusOK, g.upload(t, id, token, "template", "spec.docx", helpers.TemplateDOCX).Code)
	require.Equal(t, http.StatusOK, g.doJSON(http.MethodPost, base+"/search", token, SearchRequest{PartNumber: "GCM1885C1H180JA16D"}).Code)

	w := g.doJSON(http.MethodPost, base+"/documents", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, models.ErrCodeUpstreamRejected, resp.Code)
	assert.Equal(t, "Template has no placeholders", resp.Error)

	w = g.do(http.MethodGet, base+"/documents/1", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, g.drafting.Calls("download"))

	snap := g.snapshot(t, id, token)
	assert.Equal(t, models.StageReady, snap.Pipeline.Stage)
	assert.Equal(t, "Template has no placeholders", snap.Pipeline.GenerateError)
	assert.Equal(t, "18pF", snap.Pipeline.Parameters["Capacitance"])
}

func TestSearch_Validation(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)

	w := g.doJSON(http.MethodPost, "/api/sessions/"+id+"/search", token, SearchRequest{PartNumber: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrCodeValidationFailed, decodeError(t, w).Code)
	assert.Equal(t, 0, g.drafting.Calls("classify-component"))

	w = g.do(http.MethodPost, "/api/sessions/"+id+"/search", token, strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrCodeInvalidRequest, decodeError(t, w).Code)
}

func TestUploadBatch(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)

	body, ct := helpers.MultipartFiles(map[string][2]string{
		"netlist":    {"board.xml", helpers.NetlistXML},
		"bom":        {"bom.csv", helpers.BOMCSV},
		"conditions": {"cond.txt", helpers.ConditionsYAML},
		"readme":     {"README.md", "# hi"},
	})
	w := g.do(http.MethodPost, "/api/sessions/"+id+"/uploads", token, body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BatchUploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 4)

	bySlot := map[string]BatchItem{}
	for _, item := range resp.Results {
		bySlot[item.Slot] = item
	}
	require.NotNil(t, bySlot["netlist"].Upload)
	require.NotNil(t, bySlot["bom"].Upload)
	assert.Equal(t, []string{"TPS54331", "LM358"}, bySlot["bom"].Upload.Chips)
	assert.Equal(t, models.ErrCodeValidationFailed, bySlot["conditions"].Code)
	assert.Equal(t, models.ErrCodeValidationFailed, bySlot["readme"].Code)
	assert.Equal(t, 0, g.analysis.Calls("upload/yaml"))
}

func TestTemplates(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)

	w := g.do(http.MethodGet, "/api/sessions/"+id+"/templates", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp TemplatesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Templates, 1)
	assert.Equal(t, "spec.docx", resp.Templates[0].ID)
}

func TestGetSession_Msgpack(t *testing.T) {
	g := newTestGateway(t)
	id, token := g.createSession(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/msgpack")
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/msgpack", w.Header().Get("Content-Type"))

	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, id, decoded["session_id"])
	assert.Contains(t, decoded, "slots")
}

func TestHealthAndReady(t *testing.T) {
	g := newTestGateway(t)

	w := g.do(http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = g.do(http.MethodGet, "/ready", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, g.drafting.Calls("health"))
	assert.Equal(t, 1, g.analysis.Calls("health"))

	g.drafting.Close()
	w = g.do(http.MethodGet, "/ready", "", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "drafting")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("session x: %w", models.ErrNotFound), http.StatusNotFound, models.ErrCodeNotFound},
		{"session closed", models.ErrSessionClosed, http.StatusGone, models.ErrCodeSessionClosed},
		{"superseded", models.ErrSuperseded, http.StatusConflict, models.ErrCodeSuperseded},
		{"flow closed", models.ErrClosed, http.StatusConflict, models.ErrCodeInvalidRequest},
		{"validation", models.NewValidationError("search", "blank"), http.StatusBadRequest, models.ErrCodeValidationFailed},
		{"semantic", models.NewSemanticFailure("generate", "nope"), http.StatusUnprocessableEntity, models.ErrCodeUpstreamRejected},
		{"transport", models.NewTransportError("classify", errors.New("dial tcp")), http.StatusBadGateway, models.ErrCodeUpstreamFailed},
		{"poll terminal", models.NewPollTerminalFailure("progress"), http.StatusBadGateway, models.ErrCodeUpstreamFailed},
		{"other", errors.New("boom"), http.StatusInternalServerError, models.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
