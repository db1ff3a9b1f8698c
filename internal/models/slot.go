package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Slot identifies the role an uploaded file plays in a session.
type Slot string

const (
	SlotNetlist    Slot = "netlist"
	SlotBOM        Slot = "bom"
	SlotConditions Slot = "conditions"
	SlotTemplate   Slot = "template"
)

// Workflow groups the slots that feed the same backend server.
type Workflow string

const (
	WorkflowAnalysis Workflow = "analysis"
	WorkflowDrafting Workflow = "drafting"
)

type slotSpec struct {
	extensions []string
	segment    string
	workflow   Workflow
}

var slotSpecs = map[Slot]slotSpec{
	SlotNetlist:    {extensions: []string{".xml"}, segment: "xml", workflow: WorkflowAnalysis},
	SlotBOM:        {extensions: []string{".csv"}, segment: "csv", workflow: WorkflowAnalysis},
	SlotConditions: {extensions: []string{".yml", ".yaml"}, segment: "yaml", workflow: WorkflowAnalysis},
	SlotTemplate:   {extensions: []string{".docx"}, workflow: WorkflowDrafting},
}

// AnalysisSlots lists the slots that must all be filled before the analysis
// results can be reviewed, in display order.
var AnalysisSlots = []Slot{SlotNetlist, SlotBOM, SlotConditions}

// AllSlots lists every known slot in display order.
var AllSlots = []Slot{SlotNetlist, SlotBOM, SlotConditions, SlotTemplate}

// ParseSlot resolves a slot name, also accepting the server path segment
// ("xml", "csv", "yaml") used by the analysis server.
func ParseSlot(name string) (Slot, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := slotSpecs[Slot(name)]; ok {
		return Slot(name), true
	}
	for slot, spec := range slotSpecs {
		if spec.segment != "" && spec.segment == name {
			return slot, true
		}
	}
	return "", false
}

// Valid reports whether s is one of the known slots.
func (s Slot) Valid() bool {
	_, ok := slotSpecs[s]
	return ok
}

// AcceptedExtensions returns the lower-case extensions the slot accepts.
func (s Slot) AcceptedExtensions() []string {
	spec, ok := slotSpecs[s]
	if !ok {
		return nil
	}
	out := make([]string, len(spec.extensions))
	copy(out, spec.extensions)
	return out
}

// Accepts reports whether filename carries one of the slot's extensions.
// Matching ignores case.
func (s Slot) Accepts(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return false
	}
	for _, allowed := range slotSpecs[s].extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// PathSegment is the analysis server's name for the slot.
func (s Slot) PathSegment() string {
	return slotSpecs[s].segment
}

// Workflow returns the workflow the slot belongs to.
func (s Slot) Workflow() Workflow {
	return slotSpecs[s].workflow
}

// ArmsProgress reports whether a successful upload to this slot starts
// server-side processing that must be polled.
func (s Slot) ArmsProgress() bool {
	return s == SlotBOM
}

// FileSlot is the client-side record of one slot's upload.
type FileSlot struct {
	Slot       Slot       `json:"slot" msgpack:"slot"`
	Filename   string     `json:"filename,omitempty" msgpack:"filename,omitempty"`
	Preview    []string   `json:"preview" msgpack:"preview"`
	Error      string     `json:"error,omitempty" msgpack:"error,omitempty"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty" msgpack:"uploaded_at,omitempty"`
}

// Uploaded reports whether the slot holds a successfully uploaded file.
func (f FileSlot) Uploaded() bool {
	return f.Filename != ""
}

// Clone returns a deep copy safe to hand to readers.
func (f FileSlot) Clone() FileSlot {
	out := f
	out.Preview = append([]string(nil), f.Preview...)
	if out.Preview == nil {
		out.Preview = []string{}
	}
	if f.UploadedAt != nil {
		at := *f.UploadedAt
		out.UploadedAt = &at
	}
	return out
}

// UploadReceipt is what a backend reports after storing an uploaded file.
type UploadReceipt struct {
	Filename   string   `json:"filename"`
	Preview    []string `json:"preview"`
	Chips      []string `json:"chips,omitempty"`
	HasChips   bool     `json:"-"`
	TotalParts int      `json:"total_parts,omitempty"`
	TemplateID string   `json:"template_id,omitempty"`
}
