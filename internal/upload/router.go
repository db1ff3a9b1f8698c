package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/orchestration"
)

// Router sends analysis slots to the analysis server and the template slot
// to the drafting server.
type Router struct {
	Analysis orchestration.AnalysisAPI
	Drafting orchestration.DraftingAPI
}

// Upload implements Endpoint.
func (r Router) Upload(ctx context.Context, slot models.Slot, filename string, content io.Reader) (*models.UploadReceipt, error) {
	switch slot.Workflow() {
	case models.WorkflowAnalysis:
		return r.Analysis.UploadSlot(ctx, slot, filename, content)
	case models.WorkflowDrafting:
		return r.Drafting.UploadTemplate(ctx, filename, content)
	}
	return nil, fmt.Errorf("no endpoint for slot %q", slot)
}
