package upload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/orchestration"
)

func TestRouter_Upload(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/upload/csv":
			json.NewEncoder(w).Encode(map[string]any{"filename": "b.csv", "preview": []string{}, "chips": []string{"U1"}, "total_parts": 3})
		case "/api/upload-template":
			json.NewEncoder(w).Encode(map[string]any{"filename": "t.docx", "template_id": "tpl-1"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	router := Router{
		Analysis: orchestration.NewAnalysisClient(server.URL+"/api", 5*time.Second),
		Drafting: orchestration.NewDraftingClient(server.URL+"/api", 5*time.Second),
	}
	ctx := context.Background()

	receipt, err := router.Upload(ctx, models.SlotBOM, "b.csv", strings.NewReader("a,b"))
	require.NoError(t, err)
	assert.True(t, receipt.HasChips)
	assert.Equal(t, 3, receipt.TotalParts)

	receipt, err = router.Upload(ctx, models.SlotTemplate, "t.docx", strings.NewReader("PK"))
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", receipt.TemplateID)

	_, err = router.Upload(ctx, models.Slot("other"), "x.xml", strings.NewReader(""))
	assert.Error(t, err)

	assert.Equal(t, []string{"/api/upload/csv", "/api/upload-template"}, paths)
}
