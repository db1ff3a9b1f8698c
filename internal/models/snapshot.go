package models

import "time"

// Snapshot is a read-only copy of one session's state. Version increases
// with every state change of the session.
type Snapshot struct {
	SessionID     string              `json:"session_id" msgpack:"session_id"`
	Version       uint64              `json:"version" msgpack:"version"`
	Slots         []FileSlot          `json:"slots" msgpack:"slots"`
	Progress      ProgressState       `json:"progress" msgpack:"progress"`
	Percent       int                 `json:"percent" msgpack:"percent"`
	Chips         []string            `json:"chips" msgpack:"chips"`
	Parts         *CategorizedParts   `json:"parts,omitempty" msgpack:"parts,omitempty"`
	PartsError    string              `json:"parts_error,omitempty" msgpack:"parts_error,omitempty"`
	NameAvailable bool                `json:"circuit_name_available" msgpack:"circuit_name_available"`
	NameFlow      *CircuitNameSession `json:"circuit_name_flow,omitempty" msgpack:"circuit_name_flow,omitempty"`
	CircuitName   string              `json:"circuit_name,omitempty" msgpack:"circuit_name,omitempty"`
	NameSource    NameSource          `json:"circuit_name_source,omitempty" msgpack:"circuit_name_source,omitempty"`
	Template      *TemplateInfo       `json:"template,omitempty" msgpack:"template,omitempty"`
	Pipeline      PipelineState       `json:"pipeline" msgpack:"pipeline"`
	Closed        bool                `json:"closed" msgpack:"closed"`
	UpdatedAt     time.Time           `json:"updated_at" msgpack:"updated_at"`
}

// Slot returns the slot entry of the snapshot.
func (s Snapshot) Slot(slot Slot) (FileSlot, bool) {
	for _, fs := range s.Slots {
		if fs.Slot == slot {
			return fs, true
		}
	}
	return FileSlot{}, false
}
