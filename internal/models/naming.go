package models

// UnknownCircuitName is shown when the circuit name cannot be generated.
const UnknownCircuitName = "Unknown Circuit"

// NameMode is the state of a circuit-name presentation.
type NameMode int

const (
	NameAutoGenerating NameMode = iota
	NameGenerated
	NameManualEntry
)

var nameModeNames = map[NameMode]string{
	NameAutoGenerating: "auto-generating",
	NameGenerated:      "generated",
	NameManualEntry:    "manual-entry",
}

func (m NameMode) String() string {
	if name, ok := nameModeNames[m]; ok {
		return name
	}
	return "unknown"
}

func (m NameMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *NameMode) UnmarshalText(text []byte) error {
	for mode, name := range nameModeNames {
		if name == string(text) {
			*m = mode
			return nil
		}
	}
	*m = NameAutoGenerating
	return nil
}

// NameSource tells which path produced a resolved circuit name.
type NameSource string

const (
	NameSourceGenerated NameSource = "generated"
	NameSourceManual    NameSource = "manual"
)

// CircuitNameSession is the published state of one name presentation.
type CircuitNameSession struct {
	Mode      NameMode   `json:"mode" msgpack:"mode"`
	Generated string     `json:"generated,omitempty" msgpack:"generated,omitempty"`
	Manual    string     `json:"manual,omitempty" msgpack:"manual,omitempty"`
	Completed bool       `json:"completed" msgpack:"completed"`
	Resolved  string     `json:"resolved,omitempty" msgpack:"resolved,omitempty"`
	Source    NameSource `json:"source,omitempty" msgpack:"source,omitempty"`
}

// Authoritative returns the name that currently counts: a submitted manual
// name always wins over the generated one.
func (c CircuitNameSession) Authoritative() string {
	if c.Source == NameSourceManual && c.Manual != "" {
		return c.Manual
	}
	return c.Generated
}
